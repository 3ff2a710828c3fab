package handler

import (
	"log"
	"net/http"
	"time"

	"paidreply/backend/internal/config"
	"paidreply/backend/internal/fanout"
	"paidreply/backend/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type paymentWebhook struct {
	CreatorID   string `json:"creator_id" binding:"required"`
	VisitorID   string `json:"visitor_id" binding:"required"`
	AmountCents int64  `json:"amount_cents" binding:"required,gt=0"`
	PaymentRef  string `json:"payment_ref" binding:"required"`
	Content     string `json:"content" binding:"required"`
}

// PaymentConfirmed is the payment provider's webhook. A confirmed charge
// opens an escrowed tip and the conversation carrying the visitor's first
// message, then fans a new_message event out to the creator's dashboard.
// Retried notifications for the same payment ref are benign replays.
func (h *Handler) PaymentConfirmed(c *gin.Context) {
	var req paymentWebhook
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid webhook payload"})
		return
	}

	// Fast replay check; the unique index on payment_ref is the real guard.
	if seen, err := h.Storage.WasPaymentRefSeen(req.PaymentRef); err == nil && seen {
		c.JSON(http.StatusOK, gin.H{"status": "already_processed"})
		return
	}

	creator, err := h.Storage.GetCreatorByID(req.CreatorID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Creator not found"})
		return
	}

	// The conversation and the paid first message are persisted before the
	// tip row. Once the tip exists the message it paid for is already
	// durable, so a crash between the writes is healed by the provider's
	// retry instead of leaving a Pending tip whose message was lost. An
	// orphan conversation from a failed or replayed attempt carries no tip
	// and is collected by the retention sweep.
	now := time.Now()
	conv := &models.Conversation{
		ID:        uuid.New().String(),
		CreatorID: creator.ID,
		VisitorID: req.VisitorID,
		StartedAt: now,
		ExpiresAt: now.Add(config.ConversationRetention),
	}
	if err := h.Storage.SaveConversation(conv); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not record payment, retry later"})
		return
	}
	msg := &models.Message{
		ConversationID: conv.ID,
		SenderID:       req.VisitorID,
		Kind:           "text",
		Content:        req.Content,
	}
	if err := h.Storage.SaveMessage(msg); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not record payment, retry later"})
		return
	}

	tip, created, err := h.Ledger.Open(creator.ID, conv.ID, req.AmountCents, req.PaymentRef)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not record payment, retry later"})
		return
	}
	if !created {
		// Replay: the winner's conversation already carries the message.
		c.JSON(http.StatusOK, gin.H{"status": "already_processed", "tip_id": tip.ID, "conversation_id": tip.ConversationID})
		return
	}

	if err := h.Storage.MarkPaymentRefSeen(req.PaymentRef); err != nil {
		log.Printf("handler: could not mark payment ref %s seen: %v", req.PaymentRef, err)
	}

	h.publish(fanout.NamespaceDashboard, creator.ID, models.Event{
		Type:           "new_message",
		ConversationID: conv.ID,
		CreatorID:      creator.ID,
		SenderID:       req.VisitorID,
		Content:        req.Content,
		TipID:          tip.ID,
		TipStatus:      tip.Status,
		AmountCents:    tip.AmountCents,
	})
	h.Notifier.NotifyNewPaidMessage(creator.TelegramChatID, tip.AmountCents, req.Content)

	c.JSON(http.StatusCreated, gin.H{
		"conversation_id": conv.ID,
		"tip_id":          tip.ID,
		"expires_at":      conv.ExpiresAt,
	})
}
