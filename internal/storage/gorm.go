package storage

import (
	"context"
	"errors"
	"time"

	"github.com/suPer8Hu/ai-assistant/internal/common"
	"github.com/suPer8Hu/ai-assistant/internal/models"
	"gorm.io/gorm"
)

// GormStore is the relational backend. Uniqueness of users.email and
// users.google_id is enforced by the schema.
type GormStore struct {
	db  *gorm.DB
	now func() time.Time
}

var _ Storage = (*GormStore)(nil)

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{
		db: db,
		// millisecond precision survives every supported driver unchanged
		now: func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
	}
}

func notFound(err error, msg string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return common.NotFoundError(msg)
	}
	return common.InternalError("database", err)
}

func (s *GormStore) GetUser(ctx context.Context, id uint64) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).First(&u, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "user not found")
	}
	return &u, nil
}

func (s *GormStore) GetUserByExternalID(ctx context.Context, externalID string) (*models.User, error) {
	if externalID == "" {
		return nil, common.NotFoundError("user not found")
	}
	var u models.User
	if err := s.db.WithContext(ctx).
		Where("google_id = ?", externalID).
		First(&u).Error; err != nil {
		return nil, notFound(err, "user not found")
	}
	return &u, nil
}

func (s *GormStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).
		Where("email = ?", emailKey(email)).
		First(&u).Error; err != nil {
		return nil, notFound(err, "user not found")
	}
	return &u, nil
}

func (s *GormStore) CreateUser(ctx context.Context, u *models.User) error {
	u.Email = emailKey(u.Email)
	if u.GoogleID != nil && *u.GoogleID == "" {
		u.GoogleID = nil
	}
	u.LastLogin = s.now()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&models.User{}).Where("email = ?", u.Email).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return common.ConflictError("email already in use")
		}
		if u.GoogleID != nil {
			if err := tx.Model(&models.User{}).Where("google_id = ?", *u.GoogleID).Count(&n).Error; err != nil {
				return err
			}
			if n > 0 {
				return common.ConflictError("external id already in use")
			}
		}
		return tx.Create(u).Error
	})
	if err == nil {
		return nil
	}
	u.ID = 0
	if errors.Is(err, common.ErrConflict) {
		return err
	}
	// a concurrent insert can still lose the race at the unique index
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return common.ConflictError("email already in use")
	}
	return common.InternalError("create user", err)
}

func (s *GormStore) UpdateUserLastLogin(ctx context.Context, id uint64) error {
	err := s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", id).
		UpdateColumn("last_login", s.now()).Error
	if err != nil {
		return common.InternalError("update last login", err)
	}
	return nil
}

func (s *GormStore) GetConversations(ctx context.Context, userID uint64) ([]models.Conversation, error) {
	convs := make([]models.Conversation, 0)
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("updated_at DESC").
		Order("id DESC").
		Find(&convs).Error; err != nil {
		return nil, common.InternalError("list conversations", err)
	}
	return convs, nil
}

func (s *GormStore) GetConversation(ctx context.Context, id uint64) (*models.Conversation, error) {
	var c models.Conversation
	if err := s.db.WithContext(ctx).First(&c, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "Conversation not found")
	}
	return &c, nil
}

func (s *GormStore) CreateConversation(ctx context.Context, c *models.Conversation) error {
	now := s.now()
	c.CreatedAt = now
	c.UpdatedAt = now
	if err := s.db.WithContext(ctx).Create(c).Error; err != nil {
		return common.InternalError("create conversation", err)
	}
	return nil
}

func (s *GormStore) UpdateConversationTitle(ctx context.Context, id uint64, title string) error {
	res := s.db.WithContext(ctx).Model(&models.Conversation{}).
		Where("id = ?", id).
		UpdateColumn("title", title)
	if res.Error != nil {
		return common.InternalError("update conversation title", res.Error)
	}
	if res.RowsAffected == 0 {
		// MySQL reports 0 when the title is unchanged, so confirm the row exists
		if _, err := s.GetConversation(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

func (s *GormStore) GetMessages(ctx context.Context, conversationID uint64) ([]models.Message, error) {
	msgs := make([]models.Message, 0)
	if err := s.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&msgs).Error; err != nil {
		return nil, common.InternalError("list messages", err)
	}
	return msgs, nil
}

func (s *GormStore) CreateMessage(ctx context.Context, m *models.Message) error {
	now := s.now()
	m.CreatedAt = now
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// SQLite does not enforce the foreign key unless the pragma is on
		var n int64
		if err := tx.Model(&models.Conversation{}).Where("id = ?", m.ConversationID).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return common.NotFoundError("Conversation not found")
		}
		if err := tx.Create(m).Error; err != nil {
			return err
		}
		return tx.Model(&models.Conversation{}).
			Where("id = ?", m.ConversationID).
			UpdateColumn("updated_at", now).Error
	})
	if err != nil {
		m.ID = 0
		if errors.Is(err, common.ErrNotFound) {
			return err
		}
		return common.InternalError("create message", err)
	}
	return nil
}

func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
