package chat

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/suPer8Hu/ai-assistant/internal/storage"
)

const titleMaxRunes = 60

// Titler renames conversations that still carry DefaultTitle after their
// first turn.
type Titler struct {
	store storage.Storage
}

func NewTitler(store storage.Storage) *Titler {
	return &Titler{store: store}
}

// Handle returns true when the title was changed.
func (t *Titler) Handle(ctx context.Context, ev TurnEvent) (bool, error) {
	c, err := t.store.GetConversation(ctx, ev.ConversationID)
	if err != nil {
		return false, err
	}
	if c.Title != DefaultTitle {
		return false, nil
	}
	title := TitleFromMessage(ev.UserContent)
	if title == "" {
		return false, nil
	}
	if err := t.store.UpdateConversationTitle(ctx, c.ID, title); err != nil {
		return false, err
	}
	return true, nil
}

// TitleFromMessage collapses whitespace and cuts at a word boundary.
func TitleFromMessage(content string) string {
	s := strings.Join(strings.Fields(content), " ")
	if utf8.RuneCountInString(s) <= titleMaxRunes {
		return s
	}
	runes := []rune(s)[:titleMaxRunes]
	cut := string(runes)
	if i := strings.LastIndexByte(cut, ' '); i > titleMaxRunes/2 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " ,.;:-") + "…"
}
