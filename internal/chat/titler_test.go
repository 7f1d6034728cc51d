package chat

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/suPer8Hu/ai-assistant/internal/storage"
)

func TestTitleFromMessage(t *testing.T) {
	if got := TitleFromMessage("  plan a\n trip   to Rome "); got != "plan a trip to Rome" {
		t.Fatalf("unexpected title %q", got)
	}

	long := strings.Repeat("word ", 30)
	got := TitleFromMessage(long)
	if !strings.HasSuffix(got, "…") {
		t.Fatalf("expected ellipsis, got %q", got)
	}
	if utf8.RuneCountInString(got) > titleMaxRunes+1 {
		t.Fatalf("title too long: %d runes", utf8.RuneCountInString(got))
	}
	if strings.Contains(got, "wor…") {
		t.Fatalf("expected a word boundary cut, got %q", got)
	}
}

func TestTitler_Handle(t *testing.T) {
	store := storage.NewMemoryStore()
	u := seedUser(t, store, "t@x.com")
	svc := NewService(store, &recordingReplier{}, nil, 0)
	titler := NewTitler(store)
	ctx := context.Background()

	untitled, _ := svc.CreateConversation(ctx, u.ID, "")
	named, _ := svc.CreateConversation(ctx, u.ID, "Keep me")

	changed, err := titler.Handle(ctx, TurnEvent{ConversationID: untitled.ID, UserContent: "Help me write a cover letter"})
	if err != nil || !changed {
		t.Fatalf("expected title change, changed=%v err=%v", changed, err)
	}
	c, _ := store.GetConversation(ctx, untitled.ID)
	if c.Title != "Help me write a cover letter" {
		t.Fatalf("unexpected title %q", c.Title)
	}

	changed, err = titler.Handle(ctx, TurnEvent{ConversationID: named.ID, UserContent: "anything"})
	if err != nil || changed {
		t.Fatalf("custom titles must be kept, changed=%v err=%v", changed, err)
	}

	if _, err := titler.Handle(ctx, TurnEvent{ConversationID: 9999, UserContent: "x"}); err == nil {
		t.Fatalf("expected error for missing conversation")
	}
}
