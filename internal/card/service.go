// Package card implements card top-up submission and gateway callback
// reconciliation. A transaction moves from pending to a terminal status at
// most once; replayed callbacks are absorbed by a conditional update.
package card

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/kiemxuonline/kiemxu/internal/models"
	"github.com/kiemxuonline/kiemxu/internal/settings"
	"github.com/kiemxuonline/kiemxu/internal/wallet"
)

// Card flow errors.
var (
	// ErrValidation indicates the submission failed telco-specific checks.
	ErrValidation = errors.New("card: validation failed")
	// ErrUnknownRequest indicates a callback for an unknown requestId.
	ErrUnknownRequest = errors.New("card: unknown request id")
)

// Gateway submits cards to the top-up provider. The true result arrives
// later via callback; Submit only forwards.
type Gateway interface {
	Submit(ctx context.Context, requestID, telco, code, serial string, amount int64) error
}

// Service handles card submissions and callback reconciliation.
type Service struct {
	db      *gorm.DB
	gateway Gateway
}

// NewService constructs a card Service.
func NewService(db *gorm.DB, gateway Gateway) *Service {
	return &Service{db: db, gateway: gateway}
}

// CallbackInput is a parsed provider callback.
type CallbackInput struct {
	RequestID string // Idempotency key from the original submission.
	Status    int    // Terminal CardStatus* value.
	Value     int64  // Provider-resolved card value, VND.
	Message   string // Provider-reported reason.
}

// Submit validates the card, persists a pending transaction and forwards it
// to the gateway. The user balance is untouched until the callback settles.
func (s *Service) Submit(ctx context.Context, userID uint64, telco, code, serial string, amount int64) (*models.CardTransaction, error) {
	normalized, errTelco := NormalizeTelco(telco)
	if errTelco != nil {
		return nil, errors.Join(ErrValidation, errTelco)
	}
	if errValidate := ValidateCard(normalized, code, serial, amount); errValidate != nil {
		return nil, errors.Join(ErrValidation, errValidate)
	}

	tx := models.CardTransaction{
		RequestID:     uuid.NewString(),
		UserID:        userID,
		Telco:         normalized,
		Code:          code,
		Serial:        serial,
		DeclaredValue: amount,
		Status:        models.CardStatusPending,
	}
	if errCreate := s.db.WithContext(ctx).Create(&tx).Error; errCreate != nil {
		return nil, errCreate
	}

	// Forward off the request path; a gateway outage leaves the row pending
	// for the callback or an admin retry.
	go s.forward(tx)

	return &tx, nil
}

// forward submits the card to the gateway with a bounded timeout.
func (s *Service) forward(tx models.CardTransaction) {
	if s.gateway == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if errSubmit := s.gateway.Submit(ctx, tx.RequestID, tx.Telco, tx.Code, tx.Serial, tx.DeclaredValue); errSubmit != nil {
		log.WithFields(log.Fields{
			"request_id": tx.RequestID,
			"telco":      tx.Telco,
		}).Warnf("card gateway submit failed: %v", errSubmit)
	}
}

// HandleCallback settles a pending transaction. The pending→terminal flip is
// a conditional update; only the delivery that wins it credits coins, so
// duplicated callbacks are no-ops.
func (s *Service) HandleCallback(ctx context.Context, input CallbackInput) error {
	var existing models.CardTransaction
	if errFind := s.db.WithContext(ctx).
		Where("request_id = ?", input.RequestID).
		First(&existing).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return ErrUnknownRequest
		}
		return errFind
	}

	// A pending announcement is not a settlement; keep waiting for the
	// terminal delivery.
	if input.Status == models.CardStatusPending {
		log.WithField("request_id", input.RequestID).Debug("card callback still pending")
		return nil
	}

	status := input.Status
	if status != models.CardStatusSuccess && status != models.CardStatusWrongValue && status != models.CardStatusFailed {
		status = models.CardStatusFailed
	}

	coins := int64(0)
	if status == models.CardStatusSuccess {
		// Credit on the resolved value, never the declared one.
		coins = input.Value * settings.CardRatePer1000() / 1000
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		res := tx.Model(&models.CardTransaction{}).
			Where("request_id = ? AND status = ?", input.RequestID, models.CardStatusPending).
			Updates(map[string]any{
				"status":         status,
				"resolved_value": input.Value,
				"coins_credited": coins,
				"message":        input.Message,
				"settled_at":     now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// Already terminal: replayed delivery.
			log.WithField("request_id", input.RequestID).Debug("card callback replay ignored")
			return nil
		}

		if coins > 0 {
			if errCredit := wallet.Credit(ctx, tx, existing.UserID, coins, models.LedgerCardTopup, existing.ID, existing.Telco); errCredit != nil {
				return errCredit
			}
		}

		log.WithFields(log.Fields{
			"request_id": input.RequestID,
			"status":     status,
			"coins":      coins,
		}).Info("card transaction settled")
		return nil
	})
}

// History returns the user's card transactions, newest first.
func (s *Service) History(ctx context.Context, userID uint64, limit int) ([]models.CardTransaction, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	var rows []models.CardTransaction
	if errFind := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error; errFind != nil {
		return nil, errFind
	}
	return rows, nil
}
