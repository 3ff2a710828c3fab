package escrow_test

import (
	"time"

	"paidreply/backend/internal/models"

	"github.com/stretchr/testify/mock"
)

// MockStorage is a testify mock of the storage.Storage interface.
type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) GetCreatorByID(id string) (*models.Creator, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Creator), args.Error(1)
}

func (m *MockStorage) SaveCreator(creator *models.Creator) error {
	args := m.Called(creator)
	return args.Error(0)
}

func (m *MockStorage) DecrementLives(creatorID string, now time.Time) (int64, error) {
	args := m.Called(creatorID, now)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockStorage) RefillLives(creatorID string, lives int, now, observed time.Time) (int64, error) {
	args := m.Called(creatorID, lives, now, observed)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockStorage) CreateTipIfAbsent(tip *models.Tip) (bool, error) {
	args := m.Called(tip)
	return args.Bool(0), args.Error(1)
}

func (m *MockStorage) GetTipByID(id uint) (*models.Tip, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Tip), args.Error(1)
}

func (m *MockStorage) UpdateTipStatus(id uint, from, to models.TipStatus) (int64, error) {
	args := m.Called(id, from, to)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockStorage) ListOverduePendingTips(cutoff time.Time) ([]models.Tip, error) {
	args := m.Called(cutoff)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Tip), args.Error(1)
}

func (m *MockStorage) ListFulfilledTips(creatorID string) ([]models.Tip, error) {
	args := m.Called(creatorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Tip), args.Error(1)
}

func (m *MockStorage) MarkTipsPaidOut(ids []uint) (int64, error) {
	args := m.Called(ids)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockStorage) SaveConversation(conv *models.Conversation) error {
	args := m.Called(conv)
	return args.Error(0)
}

func (m *MockStorage) GetConversationByID(id string) (*models.Conversation, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Conversation), args.Error(1)
}

func (m *MockStorage) MarkConversationOpened(id string) error {
	args := m.Called(id)
	return args.Error(0)
}

func (m *MockStorage) DeleteExpiredConversations(now time.Time) (int64, error) {
	args := m.Called(now)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockStorage) SaveMessage(msg *models.Message) error {
	args := m.Called(msg)
	return args.Error(0)
}

func (m *MockStorage) GetConversationHistory(conversationID string) ([]models.Message, error) {
	args := m.Called(conversationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Message), args.Error(1)
}

func (m *MockStorage) PublishEvent(ev models.RoutedEvent) error {
	args := m.Called(ev)
	return args.Error(0)
}

func (m *MockStorage) WasPaymentRefSeen(paymentRef string) (bool, error) {
	args := m.Called(paymentRef)
	return args.Bool(0), args.Error(1)
}

func (m *MockStorage) MarkPaymentRefSeen(paymentRef string) error {
	args := m.Called(paymentRef)
	return args.Error(0)
}

// MockProvider is a testify mock of the payment.Provider interface.
type MockProvider struct {
	mock.Mock
}

func (m *MockProvider) Refund(paymentRef string) error {
	args := m.Called(paymentRef)
	return args.Error(0)
}

func (m *MockProvider) Transfer(destination string, amountCents int64) (string, error) {
	args := m.Called(destination, amountCents)
	return args.String(0), args.Error(1)
}
