package models

// Event is the payload pushed to live connections. Type discriminates the
// payload; the router never interprets the rest of the fields.
type Event struct {
	Type string `json:"type"` // "welcome", "new_message", "tip_status", "conversation_opened"

	ConversationID string `json:"conversation_id,omitempty"`
	CreatorID      string `json:"creator_id,omitempty"`
	SenderID       string `json:"sender_id,omitempty"`
	Content        string `json:"content,omitempty"`

	TipID       uint      `json:"tip_id,omitempty"`
	TipStatus   TipStatus `json:"tip_status,omitempty"`
	AmountCents int64     `json:"amount_cents,omitempty"`
}

// RoutedEvent is the envelope published over Redis so every server process
// can deliver the event to its own local room members.
type RoutedEvent struct {
	Namespace string `json:"namespace"` // "chat" or "dashboard"
	Key       string `json:"key"`
	Event     Event  `json:"event"`
}
