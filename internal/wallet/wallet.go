// Package wallet centralizes coin balance mutations. Every credit and debit
// is a single conditional UPDATE plus an append-only ledger row; balances
// are never computed from a prior read.
package wallet

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/kiemxuonline/kiemxu/internal/models"
)

// Wallet errors.
var (
	// ErrInvalidAmount indicates a non-positive amount.
	ErrInvalidAmount = errors.New("wallet: amount must be positive")
	// ErrInsufficientBalance indicates a debit exceeding the current balance.
	ErrInsufficientBalance = errors.New("wallet: insufficient balance")
	// ErrUserNotFound indicates the user row does not exist.
	ErrUserNotFound = errors.New("wallet: user not found")
)

// Credit adds coins to a user inside the given transaction and records a
// ledger entry.
func Credit(ctx context.Context, tx *gorm.DB, userID uint64, amount int64, reason string, referenceID uint64, note string) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}

	res := tx.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		Update("coins", gorm.Expr("coins + ?", amount))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrUserNotFound
	}

	return tx.WithContext(ctx).Create(&models.CoinLedger{
		UserID:      userID,
		Amount:      amount,
		Reason:      reason,
		ReferenceID: referenceID,
		Note:        note,
	}).Error
}

// Debit removes coins from a user inside the given transaction, guarded by
// the current balance, and records a ledger entry. Returns
// ErrInsufficientBalance when the guard fails.
func Debit(ctx context.Context, tx *gorm.DB, userID uint64, amount int64, reason string, referenceID uint64, note string) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}

	res := tx.WithContext(ctx).Model(&models.User{}).
		Where("id = ? AND coins >= ?", userID, amount).
		Update("coins", gorm.Expr("coins - ?", amount))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		var count int64
		if errCount := tx.WithContext(ctx).Model(&models.User{}).
			Where("id = ?", userID).
			Count(&count).Error; errCount != nil {
			return errCount
		}
		if count == 0 {
			return ErrUserNotFound
		}
		return ErrInsufficientBalance
	}

	return tx.WithContext(ctx).Create(&models.CoinLedger{
		UserID:      userID,
		Amount:      -amount,
		Reason:      reason,
		ReferenceID: referenceID,
		Note:        note,
	}).Error
}

// Balance returns the user's current coin balance.
func Balance(ctx context.Context, db *gorm.DB, userID uint64) (int64, error) {
	var user models.User
	if errFind := db.WithContext(ctx).Select("id", "coins").First(&user, userID).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return 0, ErrUserNotFound
		}
		return 0, errFind
	}
	return user.Coins, nil
}
