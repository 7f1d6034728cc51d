package chat

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/suPer8Hu/ai-assistant/internal/ai"
	"github.com/suPer8Hu/ai-assistant/internal/common"
	"github.com/suPer8Hu/ai-assistant/internal/db"
	"github.com/suPer8Hu/ai-assistant/internal/models"
	"github.com/suPer8Hu/ai-assistant/internal/storage"
)

type recordingReplier struct {
	last  []ai.Message
	reply string
}

func (p *recordingReplier) GenerateReply(ctx context.Context, history []ai.Message) string {
	// copy to avoid mutations
	p.last = append([]ai.Message(nil), history...)
	if p.reply == "" {
		return "ok"
	}
	return p.reply
}

type recordingPublisher struct {
	events []TurnEvent
	err    error
}

func (p *recordingPublisher) PublishTurn(ctx context.Context, ev TurnEvent) error {
	p.events = append(p.events, ev)
	return p.err
}

func openTestStore(t *testing.T) storage.Storage {
	t.Helper()
	gdb, err := db.Connect("sqlite:" + filepath.Join(t.TempDir(), "chat.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	s := storage.NewGormStore(gdb)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func seedUser(t *testing.T, s storage.Storage, email string) *models.User {
	t.Helper()
	u := &models.User{Name: "U", Email: email}
	if err := s.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func TestSendMessage_WritesUserAndAssistant(t *testing.T) {
	store := openTestStore(t)
	u := seedUser(t, store, "a@x.com")

	prov := &recordingReplier{}
	pub := &recordingPublisher{}
	svc := NewService(store, prov, pub, 0)

	conv, err := svc.CreateConversation(context.Background(), u.ID, "")
	if err != nil {
		t.Fatalf("create conversation: %v", err)
	}
	if conv.Title != DefaultTitle {
		t.Fatalf("expected default title, got %q", conv.Title)
	}

	userMsg, aiMsg, err := svc.SendMessage(context.Background(), u.ID, conv.ID, "Hello")
	if err != nil {
		t.Fatalf("send message: %v", err)
	}
	if userMsg.Role != models.RoleUser || userMsg.Content != "Hello" {
		t.Fatalf("unexpected user msg: role=%q content=%q", userMsg.Role, userMsg.Content)
	}
	if aiMsg.Role != models.RoleAssistant || aiMsg.Content != "ok" || aiMsg.ID == 0 {
		t.Fatalf("unexpected assistant msg: %+v", aiMsg)
	}

	msgs, err := store.GetMessages(context.Background(), conv.ID)
	if err != nil {
		t.Fatalf("get messages: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if len(prov.last) != 1 || prov.last[0].Content != "Hello" {
		t.Fatalf("provider got %+v", prov.last)
	}
	if len(pub.events) != 1 || pub.events[0].AssistantMessageID != aiMsg.ID || pub.events[0].UserContent != "Hello" {
		t.Fatalf("unexpected events %+v", pub.events)
	}
}

func TestSendMessage_SendsFullHistoryInOrder(t *testing.T) {
	store := storage.NewMemoryStore()
	u := seedUser(t, store, "h@x.com")
	prov := &recordingReplier{}
	svc := NewService(store, prov, nil, 0)

	conv, _ := svc.CreateConversation(context.Background(), u.ID, "History")
	for _, c := range []string{"one", "two", "three"} {
		if _, _, err := svc.SendMessage(context.Background(), u.ID, conv.ID, c); err != nil {
			t.Fatalf("send %s: %v", c, err)
		}
	}
	// 2 full turns + the new user message
	if len(prov.last) != 5 {
		t.Fatalf("expected 5 history messages, got %d", len(prov.last))
	}
	want := []string{"one", "ok", "two", "ok", "three"}
	for i, m := range prov.last {
		if m.Content != want[i] {
			t.Fatalf("history[%d] = %q, want %q", i, m.Content, want[i])
		}
	}
}

func TestSendMessage_UsesContextWindow(t *testing.T) {
	store := storage.NewMemoryStore()
	u := seedUser(t, store, "w@x.com")

	prov := &recordingReplier{}
	window := 3
	svc := NewService(store, prov, nil, window)

	conv, _ := svc.CreateConversation(context.Background(), u.ID, "")

	// seed messages: 5 messages already in history
	for i := 0; i < 5; i++ {
		role := models.RoleUser
		if i%2 == 1 {
			role = models.RoleAssistant
		}
		if err := store.CreateMessage(context.Background(), &models.Message{
			ConversationID: conv.ID,
			Role:           role,
			Content:        "seed",
		}); err != nil {
			t.Fatalf("seed msg %d: %v", i, err)
		}
	}

	if _, _, err := svc.SendMessage(context.Background(), u.ID, conv.ID, "new"); err != nil {
		t.Fatalf("send message: %v", err)
	}
	if len(prov.last) != window {
		t.Fatalf("expected provider to receive %d messages, got %d", window, len(prov.last))
	}
	if last := prov.last[len(prov.last)-1]; last.Role != models.RoleUser || last.Content != "new" {
		t.Fatalf("expected last provider msg to be new user msg, got role=%q content=%q", last.Role, last.Content)
	}
}

func TestSendMessage_Rejections(t *testing.T) {
	store := storage.NewMemoryStore()
	owner := seedUser(t, store, "owner@x.com")
	intruder := seedUser(t, store, "intruder@x.com")
	svc := NewService(store, &recordingReplier{}, nil, 0)
	conv, _ := svc.CreateConversation(context.Background(), owner.ID, "")

	cases := []struct {
		name    string
		userID  uint64
		convID  uint64
		content string
		want    error
	}{
		{"blank content", owner.ID, conv.ID, "   ", common.ErrValidation},
		{"missing conversation", owner.ID, conv.ID + 10, "hi", common.ErrNotFound},
		{"foreign conversation", intruder.ID, conv.ID, "hi", common.ErrAuthorization},
		{"too long", owner.ID, conv.ID, strings.Repeat("x", maxContentBytes+1), common.ErrValidation},
		{"too many bytes", owner.ID, conv.ID, strings.Repeat("😀", maxContentBytes/4+1), common.ErrValidation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := svc.SendMessage(context.Background(), tc.userID, tc.convID, tc.content)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}

	msgs, _ := store.GetMessages(context.Background(), conv.ID)
	if len(msgs) != 0 {
		t.Fatalf("rejected turns must not persist anything, got %d messages", len(msgs))
	}
}

func TestSendMessage_PublishFailureIsIgnored(t *testing.T) {
	store := storage.NewMemoryStore()
	u := seedUser(t, store, "p@x.com")
	pub := &recordingPublisher{err: errors.New("broker down")}
	svc := NewService(store, &recordingReplier{reply: "fine"}, pub, 0)
	conv, _ := svc.CreateConversation(context.Background(), u.ID, "")

	_, aiMsg, err := svc.SendMessage(context.Background(), u.ID, conv.ID, "hello")
	if err != nil {
		t.Fatalf("send message: %v", err)
	}
	if aiMsg.Content != "fine" {
		t.Fatalf("unexpected reply %q", aiMsg.Content)
	}
}

func TestListMessages_Ownership(t *testing.T) {
	store := storage.NewMemoryStore()
	owner := seedUser(t, store, "o@x.com")
	other := seedUser(t, store, "x@x.com")
	svc := NewService(store, &recordingReplier{}, nil, 0)
	conv, _ := svc.CreateConversation(context.Background(), owner.ID, "")
	_, _, _ = svc.SendMessage(context.Background(), owner.ID, conv.ID, "secret")

	if _, err := svc.ListMessages(context.Background(), other.ID, conv.ID); !errors.Is(err, common.ErrAuthorization) {
		t.Fatalf("expected authorization error, got %v", err)
	}
	msgs, err := svc.ListMessages(context.Background(), owner.ID, conv.ID)
	if err != nil || len(msgs) != 2 {
		t.Fatalf("owner should see 2 messages, got %d (%v)", len(msgs), err)
	}
}

func TestCreateConversation_TitleTooLong(t *testing.T) {
	svc := NewService(storage.NewMemoryStore(), &recordingReplier{}, nil, 0)
	_, err := svc.CreateConversation(context.Background(), 1, strings.Repeat("t", maxTitleLen+1))
	if !errors.Is(err, common.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestSendMessage_LongReplyIsTruncated(t *testing.T) {
	store := storage.NewMemoryStore()
	u := seedUser(t, store, "long@x.com")
	svc := NewService(store, &recordingReplier{reply: strings.Repeat("é", maxReplyBytes)}, nil, 0)
	conv, _ := svc.CreateConversation(context.Background(), u.ID, "")

	_, aiMsg, err := svc.SendMessage(context.Background(), u.ID, conv.ID, "write a lot")
	if err != nil {
		t.Fatalf("send message: %v", err)
	}
	if len(aiMsg.Content) > maxReplyBytes {
		t.Fatalf("reply not truncated: %d bytes", len(aiMsg.Content))
	}
	if !utf8.ValidString(aiMsg.Content) {
		t.Fatalf("truncation split a rune")
	}
}

func TestTruncateBytes(t *testing.T) {
	if got := truncateBytes("héllo", 2); got != "h" {
		t.Fatalf("expected rune-safe cut, got %q", got)
	}
	if got := truncateBytes("héllo", 3); got != "hé" {
		t.Fatalf("unexpected cut %q", got)
	}
	if got := truncateBytes("abc", 10); got != "abc" {
		t.Fatalf("short strings must be unchanged, got %q", got)
	}
}
