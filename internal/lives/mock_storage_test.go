package lives_test

import (
	"sync"
	"time"

	"paidreply/backend/internal/models"
	"paidreply/backend/internal/storage"
)

// fakeStorage is an in-memory Storage good enough for throttle tests. The
// conditional decrement is applied under a mutex, mirroring the atomicity
// the real store provides with a conditional UPDATE.
type fakeStorage struct {
	mu       sync.Mutex
	creators map[string]*models.Creator
	saves    int
	refills  int

	// beforeDecrement and beforeRefill, when set, run under the lock right
	// before the conditional update is evaluated (used to simulate
	// concurrent changes such as a tier upgrade or another consumer's
	// refill-and-spend landing first).
	beforeDecrement func(creators map[string]*models.Creator)
	beforeRefill    func(creators map[string]*models.Creator)
}

func newFakeStorage(creators ...*models.Creator) *fakeStorage {
	f := &fakeStorage{creators: make(map[string]*models.Creator)}
	for _, c := range creators {
		cc := *c
		f.creators[c.ID] = &cc
	}
	return f
}

func (f *fakeStorage) GetCreatorByID(id string) (*models.Creator, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.creators[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cc := *c
	return &cc, nil
}

func (f *fakeStorage) SaveCreator(creator *models.Creator) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cc := *creator
	f.creators[creator.ID] = &cc
	f.saves++
	return nil
}

func (f *fakeStorage) DecrementLives(creatorID string, now time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.beforeDecrement != nil {
		f.beforeDecrement(f.creators)
	}
	c, ok := f.creators[creatorID]
	if !ok || c.Lives <= 0 || c.IsUnlimited {
		return 0, nil
	}
	c.Lives--
	c.LastRefillAt = now
	return 1, nil
}

func (f *fakeStorage) RefillLives(creatorID string, lives int, now, observed time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.beforeRefill != nil {
		f.beforeRefill(f.creators)
	}
	c, ok := f.creators[creatorID]
	if !ok || !c.LastRefillAt.Equal(observed) {
		return 0, nil
	}
	c.Lives = lives
	c.LastRefillAt = now
	f.refills++
	return 1, nil
}

// The throttle never touches the rest of the interface.

func (f *fakeStorage) CreateTipIfAbsent(tip *models.Tip) (bool, error) { return false, nil }
func (f *fakeStorage) GetTipByID(id uint) (*models.Tip, error)         { return nil, storage.ErrNotFound }
func (f *fakeStorage) UpdateTipStatus(id uint, from, to models.TipStatus) (int64, error) {
	return 0, nil
}
func (f *fakeStorage) ListOverduePendingTips(cutoff time.Time) ([]models.Tip, error) {
	return nil, nil
}
func (f *fakeStorage) ListFulfilledTips(creatorID string) ([]models.Tip, error) { return nil, nil }
func (f *fakeStorage) MarkTipsPaidOut(ids []uint) (int64, error)                { return 0, nil }
func (f *fakeStorage) SaveConversation(conv *models.Conversation) error         { return nil }
func (f *fakeStorage) GetConversationByID(id string) (*models.Conversation, error) {
	return nil, storage.ErrNotFound
}
func (f *fakeStorage) MarkConversationOpened(id string) error                  { return nil }
func (f *fakeStorage) DeleteExpiredConversations(now time.Time) (int64, error) { return 0, nil }
func (f *fakeStorage) SaveMessage(msg *models.Message) error                   { return nil }
func (f *fakeStorage) GetConversationHistory(conversationID string) ([]models.Message, error) {
	return nil, nil
}
func (f *fakeStorage) PublishEvent(ev models.RoutedEvent) error   { return nil }
func (f *fakeStorage) WasPaymentRefSeen(ref string) (bool, error) { return false, nil }
func (f *fakeStorage) MarkPaymentRefSeen(ref string) error        { return nil }
