package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Conversation struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	Title     string    `gorm:"size:256;not null" json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (c *Conversation) BeforeCreate(_ *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

// MessageSource cites a chunk used to produce an assistant message.
type MessageSource struct {
	DocumentID string  `json:"document_id"`
	Title      string  `json:"title"`
	Excerpt    string  `json:"excerpt"`
	Relevance  float64 `json:"relevance"`
}

// Message is an append-only entry in a conversation log.
type Message struct {
	ID             uint                               `gorm:"primaryKey" json:"id"`
	ConversationID string                             `gorm:"size:36;not null;index" json:"conversation_id"`
	Role           string                             `gorm:"size:16;not null" json:"role"`
	Content        string                             `gorm:"type:longtext;not null" json:"content"`
	Sources        datatypes.JSONSlice[MessageSource] `json:"sources,omitempty"`
	CreatedAt      time.Time                          `gorm:"index" json:"created_at"`
}
