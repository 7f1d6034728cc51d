package chat

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/log"
	"github.com/suPer8Hu/ai-assistant/internal/ai"
	"github.com/suPer8Hu/ai-assistant/internal/common"
	"github.com/suPer8Hu/ai-assistant/internal/models"
	"github.com/suPer8Hu/ai-assistant/internal/storage"
)

const (
	DefaultTitle = "New Conversation"

	maxTitleLen = 255

	// messages.content is TEXT, which MySQL caps at 65,535 bytes
	maxContentBytes = 32000
	maxReplyBytes   = 60000
)

// Replier is the part of ai.Assistant the turn needs.
type Replier interface {
	GenerateReply(ctx context.Context, history []ai.Message) string
}

type Service struct {
	store             storage.Storage
	replier           Replier
	events            EventPublisher
	contextWindowSize int
	logger            *log.Logger
}

// NewService builds the chat service. contextWindowSize <= 0 sends the full
// history to the provider; otherwise only the most recent messages.
func NewService(store storage.Storage, replier Replier, events EventPublisher, contextWindowSize int) *Service {
	if events == nil {
		events = NopPublisher{}
	}
	if contextWindowSize < 0 || contextWindowSize > 1000 {
		contextWindowSize = 0
	}
	return &Service{
		store:             store,
		replier:           replier,
		events:            events,
		contextWindowSize: contextWindowSize,
		logger:            log.Default().WithPrefix("chat"),
	}
}

func (s *Service) ListConversations(ctx context.Context, userID uint64) ([]models.Conversation, error) {
	return s.store.GetConversations(ctx, userID)
}

// CreateConversation uses DefaultTitle for a blank title.
func (s *Service) CreateConversation(ctx context.Context, userID uint64, title string) (*models.Conversation, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		title = DefaultTitle
	}
	if utf8.RuneCountInString(title) > maxTitleLen {
		return nil, common.ValidationError("title is too long")
	}
	c := &models.Conversation{UserID: userID, Title: title}
	if err := s.store.CreateConversation(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// ownedConversation returns NotFound for a missing conversation and
// Authorization for one owned by somebody else.
func (s *Service) ownedConversation(ctx context.Context, userID, conversationID uint64, action string) (*models.Conversation, error) {
	c, err := s.store.GetConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if c.UserID != userID {
		return nil, common.AuthorizationError("Not authorized to " + action + " this conversation")
	}
	return c, nil
}

func (s *Service) ListMessages(ctx context.Context, userID, conversationID uint64) ([]models.Message, error) {
	if _, err := s.ownedConversation(ctx, userID, conversationID, "view"); err != nil {
		return nil, err
	}
	return s.store.GetMessages(ctx, conversationID)
}

// ValidateContent checks a user message before anything is stored.
func ValidateContent(content string) error {
	if strings.TrimSpace(content) == "" {
		return common.ValidationError("content is required")
	}
	if len(content) > maxContentBytes {
		return common.ValidationError("content is too long")
	}
	return nil
}

// SendMessage runs one chat turn: store the user message, ask the assistant
// with the conversation history, store the reply. Validation and ownership
// failures happen before anything is written; the assistant never fails, so
// a stored user message is always followed by an assistant message unless
// the database itself errors.
func (s *Service) SendMessage(ctx context.Context, userID, conversationID uint64, content string) (userMsg, aiMsg *models.Message, err error) {
	// 1) validate + verify ownership
	if err := ValidateContent(content); err != nil {
		return nil, nil, err
	}
	if _, err := s.ownedConversation(ctx, userID, conversationID, "update"); err != nil {
		return nil, nil, err
	}

	// 2) store user message
	userMsg = &models.Message{
		ConversationID: conversationID,
		Role:           models.RoleUser,
		Content:        content,
	}
	if err := s.store.CreateMessage(ctx, userMsg); err != nil {
		return nil, nil, err
	}

	// 3) history in ASC order (oldest -> newest)
	history, err := s.store.GetMessages(ctx, conversationID)
	if err != nil {
		return nil, nil, err
	}
	if s.contextWindowSize > 0 && len(history) > s.contextWindowSize {
		history = history[len(history)-s.contextWindowSize:]
	}
	providerMsgs := make([]ai.Message, 0, len(history))
	for _, m := range history {
		providerMsgs = append(providerMsgs, ai.Message{Role: m.Role, Content: m.Content})
	}

	// 4) call assistant (never fails)
	reply := s.replier.GenerateReply(ctx, providerMsgs)

	// 5) store assistant message
	aiMsg = &models.Message{
		ConversationID: conversationID,
		Role:           models.RoleAssistant,
		Content:        truncateBytes(reply, maxReplyBytes),
	}
	if err := s.store.CreateMessage(ctx, aiMsg); err != nil {
		return nil, nil, err
	}

	ev := TurnEvent{
		ConversationID:     conversationID,
		UserID:             userID,
		UserMessageID:      userMsg.ID,
		AssistantMessageID: aiMsg.ID,
		UserContent:        content,
		CreatedAt:          aiMsg.CreatedAt,
	}
	if err := s.events.PublishTurn(ctx, ev); err != nil {
		s.logger.Warn("publish turn event failed", "conversation_id", conversationID, "err", err)
	}

	return userMsg, aiMsg, nil
}

// truncateBytes cuts s to at most n bytes without splitting a rune.
func truncateBytes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	s = s[:n]
	for len(s) > 0 {
		r, size := utf8.DecodeLastRuneInString(s)
		if r != utf8.RuneError || size > 1 {
			break
		}
		s = s[:len(s)-1]
	}
	return s
}
