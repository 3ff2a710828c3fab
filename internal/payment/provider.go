// Package payment defines the contract the escrow ledger uses to talk to
// the payment processor. The real integration lives outside this service;
// only the narrow refund/transfer surface is consumed here.
package payment

import (
	"errors"
	"log"

	"github.com/google/uuid"
)

// ErrAlreadyRefunded signals that the charge was refunded earlier, e.g. by
// a previous sweep that crashed before committing. Callers treat it as a
// successful refund.
var ErrAlreadyRefunded = errors.New("charge already refunded")

type Provider interface {
	// Refund returns nil when the charge was refunded, ErrAlreadyRefunded
	// when it had been refunded before, and any other error on failure.
	Refund(paymentRef string) error
	// Transfer moves an aggregate amount to the destination account and
	// returns the provider's transfer id.
	Transfer(destination string, amountCents int64) (string, error)
}

// DryRun is a Provider for local development: it logs every call and
// pretends it succeeded.
type DryRun struct{}

func (DryRun) Refund(paymentRef string) error {
	log.Printf("payment: DRY RUN refund of charge %s", paymentRef)
	return nil
}

func (DryRun) Transfer(destination string, amountCents int64) (string, error) {
	id := "dryrun-" + uuid.New().String()
	log.Printf("payment: DRY RUN transfer of %d cents to %s (%s)", amountCents, destination, id)
	return id, nil
}
