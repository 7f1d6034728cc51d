package storage

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/suPer8Hu/ai-assistant/internal/common"
	"github.com/suPer8Hu/ai-assistant/internal/models"
)

type MemoryStore struct {
	mu sync.RWMutex

	users         map[uint64]*models.User
	conversations map[uint64]*models.Conversation
	messages      map[uint64]*models.Message

	userSeq         uint64
	conversationSeq uint64
	messageSeq      uint64

	byExternalID map[string]uint64
	byEmail      map[string]uint64

	now func() time.Time
}

var _ Storage = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:         make(map[uint64]*models.User),
		conversations: make(map[uint64]*models.Conversation),
		messages:      make(map[uint64]*models.Message),
		byExternalID:  make(map[string]uint64),
		byEmail:       make(map[string]uint64),
		now:           time.Now,
	}
}

func emailKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// copies keep callers from mutating stored records
func copyUser(u *models.User) *models.User {
	cp := *u
	if u.GoogleID != nil {
		g := *u.GoogleID
		cp.GoogleID = &g
	}
	if u.Password != nil {
		p := *u.Password
		cp.Password = &p
	}
	return &cp
}

func (s *MemoryStore) GetUser(ctx context.Context, id uint64) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, common.NotFoundError("user not found")
	}
	return copyUser(u), nil
}

func (s *MemoryStore) GetUserByExternalID(ctx context.Context, externalID string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byExternalID[externalID]
	if !ok || externalID == "" {
		return nil, common.NotFoundError("user not found")
	}
	return copyUser(s.users[id]), nil
}

func (s *MemoryStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byEmail[emailKey(email)]
	if !ok {
		return nil, common.NotFoundError("user not found")
	}
	return copyUser(s.users[id]), nil
}

func (s *MemoryStore) CreateUser(ctx context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := emailKey(u.Email)
	if _, taken := s.byEmail[key]; taken {
		return common.ConflictError("email already in use")
	}
	ext := ""
	if u.GoogleID != nil {
		ext = *u.GoogleID
	}
	if ext != "" {
		if _, taken := s.byExternalID[ext]; taken {
			return common.ConflictError("external id already in use")
		}
	}

	s.userSeq++
	u.ID = s.userSeq
	u.Email = key
	u.LastLogin = s.now()

	s.users[u.ID] = copyUser(u)
	s.byEmail[key] = u.ID
	if ext != "" {
		s.byExternalID[ext] = u.ID
	}
	return nil
}

func (s *MemoryStore) UpdateUserLastLogin(ctx context.Context, id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[id]; ok {
		u.LastLogin = s.now()
	}
	return nil
}

func (s *MemoryStore) GetConversations(ctx context.Context, userID uint64) ([]models.Conversation, error) {
	s.mu.RLock()
	out := make([]models.Conversation, 0)
	for _, c := range s.conversations {
		if c.UserID == userID {
			out = append(out, *c)
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (s *MemoryStore) GetConversation(ctx context.Context, id uint64) (*models.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.conversations[id]
	if !ok {
		return nil, common.NotFoundError("Conversation not found")
	}
	cp := *c
	return &cp, nil
}

func (s *MemoryStore) CreateConversation(ctx context.Context, c *models.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.conversationSeq++
	now := s.now()
	c.ID = s.conversationSeq
	c.CreatedAt = now
	c.UpdatedAt = now

	cp := *c
	s.conversations[c.ID] = &cp
	return nil
}

func (s *MemoryStore) UpdateConversationTitle(ctx context.Context, id uint64, title string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.conversations[id]
	if !ok {
		return common.NotFoundError("Conversation not found")
	}
	c.Title = title
	return nil
}

func (s *MemoryStore) GetMessages(ctx context.Context, conversationID uint64) ([]models.Message, error) {
	s.mu.RLock()
	out := make([]models.Message, 0)
	for _, m := range s.messages {
		if m.ConversationID == conversationID {
			out = append(out, *m)
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *MemoryStore) CreateMessage(ctx context.Context, m *models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.conversations[m.ConversationID]
	if !ok {
		return common.NotFoundError("Conversation not found")
	}

	s.messageSeq++
	now := s.now()
	m.ID = s.messageSeq
	m.CreatedAt = now

	cp := *m
	s.messages[m.ID] = &cp
	c.UpdatedAt = now
	return nil
}

func (s *MemoryStore) Close() error { return nil }
