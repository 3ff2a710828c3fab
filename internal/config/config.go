package config

import "time"

const (
	// Lives
	DefaultMaxLives = 6
	RefillInterval  = 15 * time.Minute

	// Escrow
	RefundDeadline     = 72 * time.Hour
	MinPayoutCents     = 5000
	PaymentRefGuardTTL = 24 * time.Hour

	// Conversations
	ConversationRetention = 7 * 24 * time.Hour

	// Sweeper
	ConversationSweepPeriod = 60 * time.Second
	RefundSweepPeriod       = 15 * time.Minute

	// Tokens
	VisitorTokenTTL = 72 * time.Hour
	CreatorTokenTTL = 24 * time.Hour
)

// EventChannel is the Redis Pub/Sub channel carrying realtime events
// between server processes.
const EventChannel = "events:broadcast"
