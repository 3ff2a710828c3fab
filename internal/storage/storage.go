package storage

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"paidreply/backend/internal/config"
	"paidreply/backend/internal/models"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// ErrNotFound is returned when a creator, tip or conversation does not exist.
var ErrNotFound = errors.New("record not found")

type Storage interface {
	// Creators
	GetCreatorByID(id string) (*models.Creator, error)
	SaveCreator(creator *models.Creator) error
	// DecrementLives atomically spends one life: the decrement applies only
	// while the stored row still has lives > 0 and is not unlimited. The
	// returned row count communicates success (1) or a lost race (0).
	DecrementLives(creatorID string, now time.Time) (int64, error)
	// RefillLives persists a computed refill, guarded by the last_refill_at
	// value the computation was based on. Zero rows means the row changed
	// concurrently and the credit must be recomputed from a fresh read.
	RefillLives(creatorID string, lives int, now, observed time.Time) (int64, error)

	// Tips
	CreateTipIfAbsent(tip *models.Tip) (created bool, err error)
	GetTipByID(id uint) (*models.Tip, error)
	// UpdateTipStatus is a compare-and-set on the status column.
	UpdateTipStatus(id uint, from, to models.TipStatus) (int64, error)
	ListOverduePendingTips(cutoff time.Time) ([]models.Tip, error)
	ListFulfilledTips(creatorID string) ([]models.Tip, error)
	// MarkTipsPaidOut batch-updates exactly the given ids, never a filter.
	MarkTipsPaidOut(ids []uint) (int64, error)

	// Conversations
	SaveConversation(conv *models.Conversation) error
	GetConversationByID(id string) (*models.Conversation, error)
	MarkConversationOpened(id string) error
	DeleteExpiredConversations(now time.Time) (int64, error)
	SaveMessage(msg *models.Message) error
	GetConversationHistory(conversationID string) ([]models.Message, error)

	// Realtime
	PublishEvent(ev models.RoutedEvent) error

	// Webhook replay guard
	WasPaymentRefSeen(paymentRef string) (bool, error)
	MarkPaymentRefSeen(paymentRef string) error
}

type Service struct {
	DB    *gorm.DB
	Redis *redis.Client
	Ctx   context.Context
}

// NewStorageService Constructor
func NewStorageService(db *gorm.DB, rdb *redis.Client) *Service {
	return &Service{
		DB:    db,
		Redis: rdb,
		Ctx:   context.Background(),
	}
}

// GetCreatorByID loads a creator from PostgreSQL.
func (s *Service) GetCreatorByID(id string) (*models.Creator, error) {
	var creator models.Creator
	err := s.DB.Where("id = ?", id).First(&creator).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &creator, nil
}

// SaveCreator persists the creator row.
func (s *Service) SaveCreator(creator *models.Creator) error {
	return s.DB.Save(creator).Error
}

// DecrementLives performs the conditional decrement as a single UPDATE so
// two concurrent callers can never both spend the last life.
func (s *Service) DecrementLives(creatorID string, now time.Time) (int64, error) {
	res := s.DB.Model(&models.Creator{}).
		Where("id = ? AND lives > 0 AND is_unlimited = ?", creatorID, false).
		Updates(map[string]interface{}{
			"lives":          gorm.Expr("lives - 1"),
			"last_refill_at": now,
		})
	return res.RowsAffected, res.Error
}

// RefillLives writes a refill result conditionally, the same way
// DecrementLives spends one: the UPDATE applies only while last_refill_at
// still matches the value the caller read, so it can never overwrite a
// concurrent decrement.
func (s *Service) RefillLives(creatorID string, lives int, now, observed time.Time) (int64, error) {
	res := s.DB.Model(&models.Creator{}).
		Where("id = ? AND last_refill_at = ?", creatorID, observed).
		Updates(map[string]interface{}{
			"lives":          lives,
			"last_refill_at": now,
		})
	return res.RowsAffected, res.Error
}

// CreateTipIfAbsent creates the tip unless a row with the same payment ref
// already exists, in which case the existing row is loaded into tip. A
// uniqueness violation from a concurrent replay resolves to the winner's row.
func (s *Service) CreateTipIfAbsent(tip *models.Tip) (bool, error) {
	res := s.DB.Where("payment_ref = ?", tip.PaymentRef).FirstOrCreate(tip)
	if res.Error == nil {
		return res.RowsAffected > 0, nil
	}

	// Likely a duplicate-key race with another replay; re-read by ref.
	var existing models.Tip
	if readErr := s.DB.Where("payment_ref = ?", tip.PaymentRef).First(&existing).Error; readErr == nil {
		*tip = existing
		return false, nil
	}
	return false, res.Error
}

func (s *Service) GetTipByID(id uint) (*models.Tip, error) {
	var tip models.Tip
	err := s.DB.First(&tip, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &tip, nil
}

// UpdateTipStatus moves a single tip from -> to, succeeding only when the
// stored status still matches from.
func (s *Service) UpdateTipStatus(id uint, from, to models.TipStatus) (int64, error) {
	res := s.DB.Model(&models.Tip{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	return res.RowsAffected, res.Error
}

// ListOverduePendingTips returns pending tips created before the cutoff.
// Rows with a non-positive amount are never eligible for refund.
func (s *Service) ListOverduePendingTips(cutoff time.Time) ([]models.Tip, error) {
	var tips []models.Tip
	err := s.DB.Where("status = ? AND amount_cents > 0 AND created_at < ?",
		models.TipPending, cutoff).
		Order("created_at asc").
		Find(&tips).Error
	if err != nil {
		log.Printf("ERROR: Failed to list overdue tips: %v", err)
		return nil, err
	}
	return tips, nil
}

func (s *Service) ListFulfilledTips(creatorID string) ([]models.Tip, error) {
	var tips []models.Tip
	err := s.DB.Where("creator_id = ? AND status = ? AND amount_cents > 0",
		creatorID, models.TipFulfilled).
		Order("created_at asc").
		Find(&tips).Error
	if err != nil {
		log.Printf("ERROR: Failed to list fulfilled tips for creator %s: %v", creatorID, err)
		return nil, err
	}
	return tips, nil
}

// MarkTipsPaidOut updates exactly the given ids. The status guard keeps a
// tip that was concurrently refunded out of the batch.
func (s *Service) MarkTipsPaidOut(ids []uint) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := s.DB.Model(&models.Tip{}).
		Where("id IN ? AND status = ?", ids, models.TipFulfilled).
		Update("status", models.TipPaidOut)
	return res.RowsAffected, res.Error
}

// SaveConversation persists the conversation row.
func (s *Service) SaveConversation(conv *models.Conversation) error {
	return s.DB.Save(conv).Error
}

func (s *Service) GetConversationByID(id string) (*models.Conversation, error) {
	var conv models.Conversation
	err := s.DB.Where("id = ?", id).First(&conv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

// MarkConversationOpened flips is_opened once the creator has spent a life.
func (s *Service) MarkConversationOpened(id string) error {
	return s.DB.Model(&models.Conversation{}).
		Where("id = ?", id).
		Update("is_opened", true).Error
}

// DeleteExpiredConversations removes every conversation past its retention
// deadline together with its messages. Returns the number of conversations
// deleted.
func (s *Service) DeleteExpiredConversations(now time.Time) (int64, error) {
	var ids []string
	if err := s.DB.Model(&models.Conversation{}).
		Where("expires_at <= ?", now).
		Pluck("id", &ids).Error; err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Unscoped().Where("conversation_id IN ?", ids).
			Delete(&models.Message{}).Error; err != nil {
			return err
		}
		return tx.Where("id IN ?", ids).Delete(&models.Conversation{}).Error
	})
	if err != nil {
		log.Printf("ERROR: Failed to delete expired conversations: %v", err)
		return 0, err
	}
	return int64(len(ids)), nil
}

// SaveMessage persists a message and backfills its generated ID.
func (s *Service) SaveMessage(msg *models.Message) error {
	if err := s.DB.Create(msg).Error; err != nil {
		log.Printf("ERROR: Failed to save message for conversation %s: %v", msg.ConversationID, err)
		return err
	}
	return nil
}

// GetConversationHistory returns the messages of a conversation in send order.
func (s *Service) GetConversationHistory(conversationID string) ([]models.Message, error) {
	var history []models.Message
	err := s.DB.Where("conversation_id = ?", conversationID).
		Order("created_at asc").
		Find(&history).Error
	if err != nil {
		log.Printf("ERROR: Failed to get history for conversation %s: %v", conversationID, err)
		return nil, err
	}
	return history, nil
}

// PublishEvent publishes a routed event to Redis Pub/Sub so every server
// process can fan it out to its local room members.
func (s *Service) PublishEvent(ev models.RoutedEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return s.Redis.Publish(s.Ctx, config.EventChannel, payload).Err()
}

// SubscribeEvents subscribes to the realtime event channel.
func (s *Service) SubscribeEvents() *redis.PubSub {
	return s.Redis.Subscribe(s.Ctx, config.EventChannel)
}

// WasPaymentRefSeen is a fast Redis check used by the webhook handler to
// short-circuit obvious replays before touching PostgreSQL. The unique index
// on payment_ref remains the source of truth.
func (s *Service) WasPaymentRefSeen(paymentRef string) (bool, error) {
	key := "payref:" + paymentRef
	_, err := s.Redis.Get(s.Ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// MarkPaymentRefSeen records a processed payment ref with a TTL.
func (s *Service) MarkPaymentRefSeen(paymentRef string) error {
	key := "payref:" + paymentRef
	return s.Redis.Set(s.Ctx, key, "1", config.PaymentRefGuardTTL).Err()
}
