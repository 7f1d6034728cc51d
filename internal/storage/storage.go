// Package storage persists users, conversations and messages. Two backends
// satisfy Storage: MemoryStore for development and tests, GormStore for
// production databases.
package storage

import (
	"context"

	"github.com/suPer8Hu/ai-assistant/internal/models"
)

type Storage interface {
	GetUser(ctx context.Context, id uint64) (*models.User, error)
	GetUserByExternalID(ctx context.Context, externalID string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	// CreateUser assigns ID and LastLogin. A reused email or external id
	// fails with common.ErrConflict and stores nothing.
	CreateUser(ctx context.Context, u *models.User) error
	// UpdateUserLastLogin is a no-op for unknown ids.
	UpdateUserLastLogin(ctx context.Context, id uint64) error

	// GetConversations returns userID's conversations, most recently updated first.
	GetConversations(ctx context.Context, userID uint64) ([]models.Conversation, error)
	GetConversation(ctx context.Context, id uint64) (*models.Conversation, error)
	CreateConversation(ctx context.Context, c *models.Conversation) error
	// UpdateConversationTitle leaves UpdatedAt untouched.
	UpdateConversationTitle(ctx context.Context, id uint64, title string) error

	// GetMessages returns messages oldest first.
	GetMessages(ctx context.Context, conversationID uint64) ([]models.Message, error)
	// CreateMessage sets CreatedAt and moves the parent conversation's
	// UpdatedAt to the same instant.
	CreateMessage(ctx context.Context, m *models.Message) error

	Close() error
}

const (
	BackendMemory     = "memory"
	BackendRelational = "relational"
)
