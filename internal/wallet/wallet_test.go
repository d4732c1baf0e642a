package wallet

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/kiemxuonline/kiemxu/internal/models"
)

func setupWalletTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:wallet_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, errOpen := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if errOpen != nil {
		t.Fatalf("open db: %v", errOpen)
	}
	if errMigrate := db.AutoMigrate(&models.User{}, &models.CoinLedger{}); errMigrate != nil {
		t.Fatalf("migrate db: %v", errMigrate)
	}
	return db
}

func createUser(t *testing.T, db *gorm.DB, coins int64) *models.User {
	t.Helper()
	user := models.User{
		Username:     fmt.Sprintf("user_%d", time.Now().UnixNano()),
		Password:     "x",
		Coins:        coins,
		Role:         models.RoleUser,
		ReferralCode: fmt.Sprintf("ref_%d", time.Now().UnixNano()),
	}
	if errCreate := db.Create(&user).Error; errCreate != nil {
		t.Fatalf("create user: %v", errCreate)
	}
	return &user
}

func TestCreditAddsCoinsAndLedger(t *testing.T) {
	db := setupWalletTestDB(t)
	user := createUser(t, db, 100)

	if errCredit := Credit(context.Background(), db, user.ID, 50, models.LedgerMissionReward, 7, ""); errCredit != nil {
		t.Fatalf("credit: %v", errCredit)
	}

	balance, errBalance := Balance(context.Background(), db, user.ID)
	if errBalance != nil {
		t.Fatalf("balance: %v", errBalance)
	}
	if balance != 150 {
		t.Fatalf("balance = %d, want 150", balance)
	}

	var entry models.CoinLedger
	if errFind := db.Where("user_id = ?", user.ID).First(&entry).Error; errFind != nil {
		t.Fatalf("ledger entry: %v", errFind)
	}
	if entry.Amount != 50 || entry.Reason != models.LedgerMissionReward || entry.ReferenceID != 7 {
		t.Fatalf("unexpected ledger entry: %+v", entry)
	}
}

func TestDebitRejectsOverdraw(t *testing.T) {
	db := setupWalletTestDB(t)
	user := createUser(t, db, 30)

	errDebit := Debit(context.Background(), db, user.ID, 31, models.LedgerMinigameBet, 0, "")
	if !errors.Is(errDebit, ErrInsufficientBalance) {
		t.Fatalf("debit = %v, want ErrInsufficientBalance", errDebit)
	}

	balance, _ := Balance(context.Background(), db, user.ID)
	if balance != 30 {
		t.Fatalf("balance = %d, want unchanged 30", balance)
	}

	var count int64
	db.Model(&models.CoinLedger{}).Where("user_id = ?", user.ID).Count(&count)
	if count != 0 {
		t.Fatalf("ledger entries = %d, want 0 after failed debit", count)
	}
}

func TestDebitExactBalanceSucceeds(t *testing.T) {
	db := setupWalletTestDB(t)
	user := createUser(t, db, 30)

	if errDebit := Debit(context.Background(), db, user.ID, 30, models.LedgerMinigameBet, 0, ""); errDebit != nil {
		t.Fatalf("debit: %v", errDebit)
	}
	balance, _ := Balance(context.Background(), db, user.ID)
	if balance != 0 {
		t.Fatalf("balance = %d, want 0", balance)
	}
}

func TestCreditUnknownUser(t *testing.T) {
	db := setupWalletTestDB(t)

	errCredit := Credit(context.Background(), db, 9999, 10, models.LedgerAdminAdjust, 0, "")
	if !errors.Is(errCredit, ErrUserNotFound) {
		t.Fatalf("credit = %v, want ErrUserNotFound", errCredit)
	}
}

func TestRejectNonPositiveAmounts(t *testing.T) {
	db := setupWalletTestDB(t)
	user := createUser(t, db, 10)

	if errCredit := Credit(context.Background(), db, user.ID, 0, models.LedgerAdminAdjust, 0, ""); !errors.Is(errCredit, ErrInvalidAmount) {
		t.Fatalf("credit zero = %v, want ErrInvalidAmount", errCredit)
	}
	if errDebit := Debit(context.Background(), db, user.ID, -5, models.LedgerAdminAdjust, 0, ""); !errors.Is(errDebit, ErrInvalidAmount) {
		t.Fatalf("debit negative = %v, want ErrInvalidAmount", errDebit)
	}
}
