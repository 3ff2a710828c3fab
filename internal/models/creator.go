package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// Creator is a paid account that owes replies. Lives and LastRefillAt are
// mutated only through the lives throttle, never written directly.
type Creator struct {
	ID     string `gorm:"primaryKey" json:"id"` // UUID
	Handle string `gorm:"uniqueIndex" json:"handle"`

	// TelegramChatID receives push notifications; empty when not linked.
	TelegramChatID string `json:"-"`
	// PayoutAccount is the opaque destination handed to the payment provider.
	PayoutAccount string         `json:"-"`
	Topics        pq.StringArray `gorm:"type:text[]" json:"topics"`

	Lives        int       `json:"lives"`
	MaxLives     int       `json:"max_lives"`
	IsUnlimited  bool      `json:"is_unlimited"`
	LastRefillAt time.Time `json:"last_refill_at"`
}

// BeforeCreate is a GORM hook that assigns a UUID when none is set.
func (c *Creator) BeforeCreate(tx *gorm.DB) (err error) {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	return
}
