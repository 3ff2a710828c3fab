// Package sweeper runs the recurring cleanup passes: deleting conversations
// past their retention deadline and refunding tips past their fulfillment
// deadline. Both pass bodies are idempotent, so an abandoned run is retried
// harmlessly on the next tick.
package sweeper

import (
	"log"
	"sync"
	"sync/atomic"
	"time"

	"paidreply/backend/internal/config"
	"paidreply/backend/internal/escrow"
	"paidreply/backend/internal/models"
	"paidreply/backend/internal/storage"
)

// Sweeper owns the two periodic passes and their lifecycle.
type Sweeper struct {
	Storage storage.Storage
	Ledger  *escrow.Ledger

	ConversationPeriod time.Duration
	RefundPeriod       time.Duration
	RefundDeadline     time.Duration
	Now                func() time.Time

	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup

	convInFlight   atomic.Bool
	refundInFlight atomic.Bool
}

// NewSweeper creates a sweeper with the configured periods and deadline.
func NewSweeper(s storage.Storage, ledger *escrow.Ledger) *Sweeper {
	return &Sweeper{
		Storage:            s,
		Ledger:             ledger,
		ConversationPeriod: config.ConversationSweepPeriod,
		RefundPeriod:       config.RefundSweepPeriod,
		RefundDeadline:     config.RefundDeadline,
		Now:                time.Now,
		stopCh:             make(chan struct{}),
	}
}

// Start launches both periodic passes. Each runs once immediately, then on
// its own ticker until Stop is called.
func (s *Sweeper) Start() {
	if s.running {
		return
	}
	s.running = true

	s.wg.Add(2)
	go s.loop(s.ConversationPeriod, func() { s.SweepConversations() })
	go s.loop(s.RefundPeriod, func() { s.SweepRefunds() })
	log.Printf("sweeper: started (conversations every %v, refunds every %v)",
		s.ConversationPeriod, s.RefundPeriod)
}

// Stop halts the tickers and waits for in-flight passes to finish.
func (s *Sweeper) Stop() {
	if !s.running {
		return
	}
	s.running = false
	close(s.stopCh)
	s.wg.Wait()
	log.Println("sweeper: stopped")
}

func (s *Sweeper) loop(period time.Duration, pass func()) {
	defer s.wg.Done()

	pass()

	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			pass()
		case <-s.stopCh:
			return
		}
	}
}

// SweepConversations deletes every conversation whose retention deadline has
// passed, cascading to its messages. Skipped when a previous run of the same
// pass is still in flight.
func (s *Sweeper) SweepConversations() (int64, error) {
	if !s.convInFlight.CompareAndSwap(false, true) {
		return 0, nil
	}
	defer s.convInFlight.Store(false)

	deleted, err := s.Storage.DeleteExpiredConversations(s.Now())
	if err != nil {
		log.Printf("sweeper: conversation pass failed: %v", err)
		return 0, err
	}
	if deleted > 0 {
		log.Printf("sweeper: deleted %d expired conversations", deleted)
	}
	return deleted, nil
}

// SweepRefunds drives overdue Pending tips through the refund transition.
// Also invoked on demand by the operator endpoint and the admin CLI.
func (s *Sweeper) SweepRefunds() ([]models.Tip, error) {
	if !s.refundInFlight.CompareAndSwap(false, true) {
		return nil, nil
	}
	defer s.refundInFlight.Store(false)

	refunded, err := s.Ledger.RefundOverdue(s.RefundDeadline)
	if err != nil {
		log.Printf("sweeper: refund pass failed: %v", err)
		return nil, err
	}
	if len(refunded) > 0 {
		log.Printf("sweeper: refunded %d overdue tips", len(refunded))
	}
	return refunded, nil
}
