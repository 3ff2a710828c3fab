package handler

import (
	"log"

	"paidreply/backend/internal/escrow"
	"paidreply/backend/internal/fanout"
	"paidreply/backend/internal/lives"
	"paidreply/backend/internal/models"
	"paidreply/backend/internal/storage"
	"paidreply/backend/internal/sweeper"
	"paidreply/backend/internal/telegram"
)

// Handler holds the services the HTTP layer dispatches into.
type Handler struct {
	Storage  storage.Storage
	Router   *fanout.Router
	Throttle *lives.Service
	Ledger   *escrow.Ledger
	Sweeper  *sweeper.Sweeper
	Notifier *telegram.Notifier
}

func NewHandler(s storage.Storage, r *fanout.Router, t *lives.Service, l *escrow.Ledger, sw *sweeper.Sweeper, n *telegram.Notifier) *Handler {
	return &Handler{
		Storage:  s,
		Router:   r,
		Throttle: t,
		Ledger:   l,
		Sweeper:  sw,
		Notifier: n,
	}
}

// publish routes an event over the Redis bus; the local event bridge (and
// every other server process) delivers it to room members.
func (h *Handler) publish(ns fanout.Namespace, key string, ev models.Event) {
	err := h.Storage.PublishEvent(models.RoutedEvent{
		Namespace: string(ns),
		Key:       key,
		Event:     ev,
	})
	if err != nil {
		log.Printf("handler: could not publish %s event: %v", ev.Type, err)
	}
}
