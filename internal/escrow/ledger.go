// Package escrow owns the lifecycle of paid tips. A tip is opened Pending
// when the payment processor confirms a charge, becomes Fulfilled once the
// reply audit accepts the creator's answer, and ends either Refunded (the
// reply never came) or PaidOut (transferred to the creator).
package escrow

import (
	"errors"
	"fmt"
	"log"
	"time"

	"paidreply/backend/internal/config"
	"paidreply/backend/internal/models"
	"paidreply/backend/internal/payment"
	"paidreply/backend/internal/storage"
)

var (
	ErrInvalidTransition = errors.New("invalid tip status transition")
	ErrInvalidAmount     = errors.New("tip amount must be positive")
	ErrEmptyPaymentRef   = errors.New("payment ref must not be empty")
)

// Ledger handles the business logic of the escrow state machine. All status
// writes go through the store's compare-and-set, validated against the
// transition table in models.
type Ledger struct {
	Storage  storage.Storage
	Provider payment.Provider

	MinPayoutCents int64
	Now            func() time.Time
}

// NewLedger creates a new escrow ledger.
func NewLedger(s storage.Storage, p payment.Provider) *Ledger {
	return &Ledger{
		Storage:        s,
		Provider:       p,
		MinPayoutCents: config.MinPayoutCents,
		Now:            time.Now,
	}
}

// Open records a confirmed payment as a Pending tip. It is idempotent under
// retried payment notifications: a second call with the same paymentRef
// returns the existing tip unchanged instead of creating a duplicate. The
// returned flag reports whether this call created the row.
func (l *Ledger) Open(creatorID, conversationID string, amountCents int64, paymentRef string) (*models.Tip, bool, error) {
	if amountCents <= 0 {
		return nil, false, ErrInvalidAmount
	}
	if paymentRef == "" {
		return nil, false, ErrEmptyPaymentRef
	}

	tip := &models.Tip{
		CreatorID:      creatorID,
		ConversationID: conversationID,
		AmountCents:    amountCents,
		Status:         models.TipPending,
		PaymentRef:     paymentRef,
	}
	created, err := l.Storage.CreateTipIfAbsent(tip)
	if err != nil {
		return nil, false, err
	}
	return tip, created, nil
}

// MarkFulfilled moves a tip from Pending to Fulfilled. Invoked by the reply
// audit collaborator once the creator's answer has been accepted.
func (l *Ledger) MarkFulfilled(tipID uint) (*models.Tip, error) {
	return l.transition(tipID, models.TipPending, models.TipFulfilled)
}

// transition applies one validated compare-and-set edge.
func (l *Ledger) transition(tipID uint, from, to models.TipStatus) (*models.Tip, error) {
	if !models.CanTransition(from, to) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}

	rows, err := l.Storage.UpdateTipStatus(tipID, from, to)
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		tip, err := l.Storage.GetTipByID(tipID)
		if err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: tip %d is %s, not %s", ErrInvalidTransition, tipID, tip.Status, from)
	}
	return l.Storage.GetTipByID(tipID)
}

// RefundOverdue refunds every Pending tip older than the deadline and moves
// it to Refunded. Items are processed one at a time: a provider failure on
// one tip is logged and skipped so the rest of the batch still completes,
// and the failed tip stays Pending for the next sweep. Returns only the
// tips that actually transitioned.
func (l *Ledger) RefundOverdue(deadline time.Duration) ([]models.Tip, error) {
	cutoff := l.Now().Add(-deadline)
	overdue, err := l.Storage.ListOverduePendingTips(cutoff)
	if err != nil {
		return nil, err
	}

	var refunded []models.Tip
	for _, tip := range overdue {
		err := l.Provider.Refund(tip.PaymentRef)
		if err != nil && !errors.Is(err, payment.ErrAlreadyRefunded) {
			log.Printf("escrow: refund of tip %d failed, retrying next sweep: %v", tip.ID, err)
			continue
		}

		rows, err := l.Storage.UpdateTipStatus(tip.ID, models.TipPending, models.TipRefunded)
		if err != nil {
			log.Printf("escrow: could not mark tip %d refunded: %v", tip.ID, err)
			continue
		}
		if rows == 0 {
			// Moved out of Pending since selection; nothing to do.
			continue
		}

		tip.Status = models.TipRefunded
		refunded = append(refunded, tip)
	}
	return refunded, nil
}

// PayoutResult reports the outcome of a payout run. When TotalCents is below
// the minimum threshold, Tips is empty and no transfer was made.
type PayoutResult struct {
	Tips       []models.Tip
	TotalCents int64
	TransferID string
}

// Payout aggregates the creator's Fulfilled tips into one transfer and moves
// them to PaidOut. The batch update is keyed by the exact tip ids that were
// summed, so a tip fulfilled after the sum was computed is never swept in.
func (l *Ledger) Payout(creatorID string) (*PayoutResult, error) {
	creator, err := l.Storage.GetCreatorByID(creatorID)
	if err != nil {
		return nil, err
	}

	tips, err := l.Storage.ListFulfilledTips(creatorID)
	if err != nil {
		return nil, err
	}

	var total int64
	ids := make([]uint, 0, len(tips))
	for _, tip := range tips {
		total += tip.AmountCents
		ids = append(ids, tip.ID)
	}

	if total < l.MinPayoutCents {
		return &PayoutResult{TotalCents: total}, nil
	}

	transferID, err := l.Provider.Transfer(creator.PayoutAccount, total)
	if err != nil {
		return nil, fmt.Errorf("transfer to creator %s failed: %w", creatorID, err)
	}

	rows, err := l.Storage.MarkTipsPaidOut(ids)
	if err != nil {
		// The transfer went out but the rows were not advanced; the next
		// payout run must not double-pay, so this needs operator attention.
		log.Printf("ERROR: transfer %s sent but %d tips not marked paid out: %v", transferID, len(ids), err)
		return nil, err
	}

	paid := tips
	if rows != int64(len(ids)) {
		// Some rows changed concurrently; re-read so the result reports
		// only the tips that actually reached PaidOut.
		log.Printf("escrow: payout %s advanced %d of %d tips (rest changed concurrently)", transferID, rows, len(ids))
		paid = make([]models.Tip, 0, len(tips))
		for _, tip := range tips {
			stored, err := l.Storage.GetTipByID(tip.ID)
			if err != nil || stored.Status != models.TipPaidOut {
				continue
			}
			paid = append(paid, *stored)
		}
	} else {
		for i := range paid {
			paid[i].Status = models.TipPaidOut
		}
	}
	return &PayoutResult{Tips: paid, TotalCents: total, TransferID: transferID}, nil
}
