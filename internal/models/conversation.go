package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Conversation is an ephemeral thread between one anonymous visitor and one
// creator. It is created on the first paid message and deleted (with its
// messages) by the retention sweep once ExpiresAt has passed.
type Conversation struct {
	ID        string `gorm:"primaryKey" json:"id"` // UUID
	CreatorID string `gorm:"type:uuid;not null;index" json:"creator_id"`
	VisitorID string `gorm:"type:text;not null" json:"visitor_id"`

	// IsOpened flips when the creator spends a life on the thread.
	IsOpened  bool      `json:"is_opened"`
	StartedAt time.Time `json:"started_at"`
	ExpiresAt time.Time `gorm:"index" json:"expires_at"`
}

func (c *Conversation) BeforeCreate(tx *gorm.DB) (err error) {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	return
}

// Message is a single entry in a conversation.
type Message struct {
	gorm.Model

	ConversationID string `gorm:"type:uuid;not null;index" json:"conversation_id"`
	// SenderID is the visitor's anon ID or the creator's ID.
	SenderID string `gorm:"type:text;not null" json:"sender_id"`
	// Kind indicates the kind of message (e.g. "text", "system").
	Kind    string `gorm:"type:text;not null" json:"kind"`
	Content string `gorm:"type:text;not null" json:"content"`
}
