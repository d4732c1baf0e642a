// Package gift implements gift token ("giftcode") redemption. The use cap
// holds under concurrent claims via a conditional used_count increment, and
// the unique usage row limits each user to one claim per token.
package gift

import (
	"context"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	dbutil "github.com/kiemxuonline/kiemxu/internal/db"
	"github.com/kiemxuonline/kiemxu/internal/models"
	"github.com/kiemxuonline/kiemxu/internal/wallet"
)

// Gift redemption errors.
var (
	// ErrNotFound indicates an unknown or disabled token.
	ErrNotFound = errors.New("gift: token not found")
	// ErrExpired indicates the token is past its expiry.
	ErrExpired = errors.New("gift: token expired")
	// ErrExhausted indicates the token's use cap is reached.
	ErrExhausted = errors.New("gift: token exhausted")
	// ErrAlreadyRedeemed indicates the user already claimed this token.
	ErrAlreadyRedeemed = errors.New("gift: already redeemed")
)

// Service handles gift token redemption.
type Service struct {
	db *gorm.DB
}

// NewService constructs a gift Service.
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// Redeem claims a token for the user and credits its coin value.
func (s *Service) Redeem(ctx context.Context, userID uint64, code string) (int64, error) {
	var token models.GiftToken
	if errFind := s.db.WithContext(ctx).
		Where("code = ? AND is_enabled = ?", code, true).
		First(&token).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return 0, ErrNotFound
		}
		return 0, errFind
	}
	if token.ExpiresAt != nil && time.Now().After(*token.ExpiresAt) {
		return 0, ErrExpired
	}

	errTx := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		usage := models.GiftTokenUsage{
			TokenID: token.ID,
			UserID:  userID,
			Coins:   token.CoinValue,
		}
		if errUsage := tx.Create(&usage).Error; errUsage != nil {
			if dbutil.IsDuplicateKeyError(errUsage) {
				return ErrAlreadyRedeemed
			}
			return errUsage
		}

		res := tx.Model(&models.GiftToken{}).
			Where("id = ? AND used_count < max_uses", token.ID).
			Update("used_count", gorm.Expr("used_count + 1"))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrExhausted
		}

		return wallet.Credit(ctx, tx, userID, token.CoinValue, models.LedgerGiftToken, token.ID, token.Code)
	})
	if errTx != nil {
		return 0, errTx
	}

	log.WithFields(log.Fields{
		"user_id": userID,
		"token":   token.Code,
		"coins":   token.CoinValue,
	}).Info("gift token redeemed")

	return token.CoinValue, nil
}
