package models

import "gorm.io/gorm"

// TipStatus is the closed set of escrow states for a paid tip.
type TipStatus string

const (
	TipPending   TipStatus = "pending"   // paid, reply still owed
	TipFulfilled TipStatus = "fulfilled" // creator replied, awaiting payout
	TipRefunded  TipStatus = "refunded"  // returned to the visitor
	TipPaidOut   TipStatus = "paid_out"  // transferred to the creator
)

// transitions is the full set of legal status edges. Anything not listed
// here must be rejected before the row is written.
var transitions = map[TipStatus][]TipStatus{
	TipPending:   {TipFulfilled, TipRefunded},
	TipFulfilled: {TipPaidOut},
}

// CanTransition reports whether moving from -> to is a legal edge.
func CanTransition(from, to TipStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the status has no outgoing edges.
func (s TipStatus) IsTerminal() bool {
	return len(transitions[s]) == 0
}

// Tip is one escrowed payment owed a reply. Rows are never deleted, they
// form the audit trail; soft-delete via gorm.Model.DeletedAt is unused.
type Tip struct {
	gorm.Model

	CreatorID      string `gorm:"type:uuid;not null;index" json:"creator_id"`
	ConversationID string `gorm:"type:uuid;index" json:"conversation_id"`

	// AmountCents is the tip value in the smallest currency unit.
	AmountCents int64     `gorm:"not null" json:"amount_cents"`
	Status      TipStatus `gorm:"type:text;not null;default:'pending'" json:"status"`

	// PaymentRef is the payment provider's charge handle. It doubles as the
	// idempotency key for Open and is immutable once set.
	PaymentRef string `gorm:"uniqueIndex;not null" json:"payment_ref"`
}
