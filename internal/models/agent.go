package models

import "time"

type AgentType string

const (
	AgentChat     AgentType = "chat"
	AgentEmail    AgentType = "email"
	AgentCreative AgentType = "creative"
	AgentResearch AgentType = "research"
	AgentCustom   AgentType = "custom"
)

// Agent is a named assistant configuration. Only the schema exists for now;
// nothing serves agents over HTTP yet.
type Agent struct {
	ID           uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID       uint64    `gorm:"not null;index" json:"userId"`
	Name         string    `gorm:"type:varchar(255);not null" json:"name"`
	Type         AgentType `gorm:"type:varchar(16);not null" json:"type"`
	Description  string    `gorm:"type:text;not null" json:"description"`
	SystemPrompt string    `gorm:"type:text;not null" json:"systemPrompt"`
	IsActive     bool      `gorm:"not null;default:true" json:"isActive"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`

	User    *User         `gorm:"foreignKey:UserID;references:ID" json:"-"`
	Configs []AgentConfig `gorm:"foreignKey:AgentID" json:"configs,omitempty"`
}

func (Agent) TableName() string { return "agents" }

type AgentConfig struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	AgentID   uint64    `gorm:"not null;index" json:"agentId"`
	Key       string    `gorm:"type:varchar(128);not null" json:"key"`
	Value     string    `gorm:"type:text;not null" json:"value"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (AgentConfig) TableName() string { return "agent_configs" }

// All lists every persisted model in migration order.
func All() []any {
	return []any{&User{}, &Conversation{}, &Message{}, &Agent{}, &AgentConfig{}}
}
