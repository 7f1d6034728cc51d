package chat

import (
	"context"
	"time"
)

// TurnEvent describes a completed chat turn. It is published after both
// messages are stored.
type TurnEvent struct {
	ConversationID     uint64    `json:"conversation_id"`
	UserID             uint64    `json:"user_id"`
	UserMessageID      uint64    `json:"user_message_id"`
	AssistantMessageID uint64    `json:"assistant_message_id"`
	UserContent        string    `json:"user_content"`
	CreatedAt          time.Time `json:"created_at"`
}

type EventPublisher interface {
	PublishTurn(ctx context.Context, ev TurnEvent) error
}

type NopPublisher struct{}

func (NopPublisher) PublishTurn(context.Context, TurnEvent) error { return nil }
