package handler

import (
	"errors"
	"net/http"
	"strconv"

	"paidreply/backend/internal/escrow"
	"paidreply/backend/internal/fanout"
	"paidreply/backend/internal/models"
	"paidreply/backend/internal/storage"

	"github.com/gin-gonic/gin"
)

// FulfillTip moves a tip from Pending to Fulfilled. This is the hook for the
// reply-audit collaborator; the service itself never decides fulfillment.
func (h *Handler) FulfillTip(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid tip id"})
		return
	}

	tip, err := h.Ledger.MarkFulfilled(uint(id))
	if errors.Is(err, storage.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Tip not found"})
		return
	}
	if errors.Is(err, escrow.ErrInvalidTransition) {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not fulfill tip, retry later"})
		return
	}

	h.publish(fanout.NamespaceDashboard, tip.CreatorID, models.Event{
		Type:        "tip_status",
		CreatorID:   tip.CreatorID,
		TipID:       tip.ID,
		TipStatus:   tip.Status,
		AmountCents: tip.AmountCents,
	})
	c.JSON(http.StatusOK, gin.H{"tip": tip})
}

// SweepRefunds triggers the refund pass on demand.
func (h *Handler) SweepRefunds(c *gin.Context) {
	refunded, err := h.Sweeper.SweepRefunds()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Refund sweep failed, retry later"})
		return
	}

	for _, tip := range refunded {
		h.publish(fanout.NamespaceDashboard, tip.CreatorID, models.Event{
			Type:        "tip_status",
			CreatorID:   tip.CreatorID,
			TipID:       tip.ID,
			TipStatus:   tip.Status,
			AmountCents: tip.AmountCents,
		})
	}
	c.JSON(http.StatusOK, gin.H{"refunded": len(refunded)})
}

// Payout aggregates a creator's fulfilled tips into one transfer.
func (h *Handler) Payout(c *gin.Context) {
	creatorID := c.Param("creator_id")

	result, err := h.Ledger.Payout(creatorID)
	if errors.Is(err, storage.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Creator not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Payout failed, retry later"})
		return
	}

	if result.TransferID == "" {
		c.JSON(http.StatusOK, gin.H{
			"status":      "below_threshold",
			"total_cents": result.TotalCents,
		})
		return
	}

	for _, tip := range result.Tips {
		h.publish(fanout.NamespaceDashboard, tip.CreatorID, models.Event{
			Type:        "tip_status",
			CreatorID:   tip.CreatorID,
			TipID:       tip.ID,
			TipStatus:   tip.Status,
			AmountCents: tip.AmountCents,
		})
	}
	if creator, err := h.Storage.GetCreatorByID(creatorID); err == nil {
		h.Notifier.NotifyPayout(creator.TelegramChatID, result.TotalCents, result.TransferID)
	}

	c.JSON(http.StatusOK, gin.H{
		"status":      "paid_out",
		"total_cents": result.TotalCents,
		"transfer_id": result.TransferID,
		"tips":        len(result.Tips),
	})
}
