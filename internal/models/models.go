package models

import "time"

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type User struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	GoogleID  *string   `gorm:"type:varchar(64);uniqueIndex" json:"-"`
	FirstName string    `gorm:"type:varchar(128);not null;default:''" json:"firstName"`
	LastName  string    `gorm:"type:varchar(128);not null;default:''" json:"lastName"`
	Name      string    `gorm:"type:varchar(255);not null" json:"name"`
	Email     string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Password  *string   `gorm:"type:varchar(255)" json:"-"`
	Picture   string    `gorm:"type:varchar(1024);not null;default:''" json:"picture"`
	LastLogin time.Time `gorm:"not null" json:"lastLogin"`
}

func (User) TableName() string { return "users" }

// HasPassword reports whether the user can sign in with the local flow.
func (u *User) HasPassword() bool {
	return u.Password != nil && *u.Password != ""
}

// PublicUser is the shape returned by /api/auth/user.
type PublicUser struct {
	ID      uint64 `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Picture string `json:"picture"`
}

func (u *User) Public() PublicUser {
	return PublicUser{ID: u.ID, Name: u.Name, Email: u.Email, Picture: u.Picture}
}

type Conversation struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    uint64    `gorm:"not null;index:idx_conv_user_updated,priority:1" json:"userId"`
	Title     string    `gorm:"type:varchar(255);not null" json:"title"`
	CreatedAt time.Time `gorm:"not null" json:"createdAt"`
	UpdatedAt time.Time `gorm:"not null;index:idx_conv_user_updated,priority:2" json:"updatedAt"`

	User *User `gorm:"foreignKey:UserID;references:ID" json:"-"`
}

func (Conversation) TableName() string { return "conversations" }

type Message struct {
	ID             uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	ConversationID uint64    `gorm:"not null;index:idx_msg_conv_created,priority:1" json:"conversationId"`
	Role           string    `gorm:"type:varchar(16);not null" json:"role"`
	Content        string    `gorm:"type:text;not null" json:"content"`
	CreatedAt      time.Time `gorm:"not null;index:idx_msg_conv_created,priority:2" json:"createdAt"`

	Conversation *Conversation `gorm:"foreignKey:ConversationID;references:ID" json:"-"`
}

func (Message) TableName() string { return "messages" }

// ValidRole reports whether r is one of the two message roles.
func ValidRole(r string) bool {
	return r == RoleUser || r == RoleAssistant
}
