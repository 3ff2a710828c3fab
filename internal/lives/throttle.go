// Package lives implements the regenerating reply budget for creators.
// Opening a paid conversation costs one life; lives refill on a fixed
// interval up to the creator's cap. Unlimited-tier creators are never
// charged.
package lives

import (
	"fmt"
	"time"

	"paidreply/backend/internal/config"
	"paidreply/backend/internal/models"
	"paidreply/backend/internal/storage"
)

// ErrInsufficientLives is returned by Consume when the creator has no lives
// left. It carries what a client needs to render a countdown.
type ErrInsufficientLives struct {
	Lives           int
	MinutesToRefill int
}

func (e *ErrInsufficientLives) Error() string {
	return fmt.Sprintf("no lives left (next refill in %d min)", e.MinutesToRefill)
}

// Service owns all mutation of Creator.Lives and Creator.LastRefillAt.
type Service struct {
	Storage  storage.Storage
	Interval time.Duration
	Now      func() time.Time
}

func NewService(s storage.Storage) *Service {
	return &Service{
		Storage:  s,
		Interval: config.RefillInterval,
		Now:      time.Now,
	}
}

// RefillIfDue credits the creator with one life per whole refill interval
// elapsed since LastRefillAt, capped at MaxLives, and persists the result.
// It never decrements. Unlimited creators and creators already at cap are
// returned unchanged. The write is conditional on the LastRefillAt the
// computation used, so a refill computed from a stale read can never
// overwrite a concurrent decrement; a lost race returns a fresh read with
// nothing credited (whoever won also refreshed the refill anchor).
func (s *Service) RefillIfDue(creator *models.Creator) (*models.Creator, error) {
	if creator.IsUnlimited || creator.Lives >= creator.MaxLives {
		return creator, nil
	}

	now := s.Now()
	intervals := int(now.Sub(creator.LastRefillAt) / s.Interval)
	if intervals < 1 {
		return creator, nil
	}

	gain := intervals
	if room := creator.MaxLives - creator.Lives; gain > room {
		gain = room
	}

	rows, err := s.Storage.RefillLives(creator.ID, creator.Lives+gain, now, creator.LastRefillAt)
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		return s.Storage.GetCreatorByID(creator.ID)
	}

	creator.Lives += gain
	creator.LastRefillAt = now
	return creator, nil
}

// Consume spends one life. The decrement is a single conditional UPDATE
// against the store, so concurrent callers racing for the last life cannot
// both succeed. A zero-row result is re-read once: the creator may have been
// upgraded to unlimited in the meantime, otherwise the budget is exhausted.
func (s *Service) Consume(creatorID string) (*models.Creator, error) {
	creator, err := s.Storage.GetCreatorByID(creatorID)
	if err != nil {
		return nil, err
	}

	creator, err = s.RefillIfDue(creator)
	if err != nil {
		return nil, err
	}
	if creator.IsUnlimited {
		return creator, nil
	}

	now := s.Now()
	rows, err := s.Storage.DecrementLives(creatorID, now)
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		current, err := s.Storage.GetCreatorByID(creatorID)
		if err != nil {
			return nil, err
		}
		if current.IsUnlimited {
			return current, nil
		}
		return nil, &ErrInsufficientLives{
			Lives:           current.Lives,
			MinutesToRefill: s.MinutesToNextRefill(current),
		}
	}

	if creator.Lives > 0 {
		creator.Lives--
	}
	creator.LastRefillAt = now
	return creator, nil
}

// MinutesToNextRefill reports whole minutes until the next life is credited.
// Zero when the creator is unlimited or already at cap.
func (s *Service) MinutesToNextRefill(creator *models.Creator) int {
	if creator.IsUnlimited || creator.Lives >= creator.MaxLives {
		return 0
	}
	intervalMin := int(s.Interval.Minutes())
	elapsedMin := int(s.Now().Sub(creator.LastRefillAt).Minutes())
	return intervalMin - (elapsedMin % intervalMin)
}
