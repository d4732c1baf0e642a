package checkin

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/kiemxuonline/kiemxu/internal/localtime"
	"github.com/kiemxuonline/kiemxu/internal/models"
	"github.com/kiemxuonline/kiemxu/internal/settings"
)

func setupCheckinTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:checkin_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, errOpen := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if errOpen != nil {
		t.Fatalf("open db: %v", errOpen)
	}
	if errMigrate := db.AutoMigrate(&models.User{}, &models.CheckIn{}, &models.CoinLedger{}); errMigrate != nil {
		t.Fatalf("migrate db: %v", errMigrate)
	}
	return db
}

func createCheckinUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()
	user := models.User{
		Username:     fmt.Sprintf("user_%d", time.Now().UnixNano()),
		Password:     "x",
		Role:         models.RoleUser,
		ReferralCode: fmt.Sprintf("ref_%d", time.Now().UnixNano()),
	}
	if errCreate := db.Create(&user).Error; errCreate != nil {
		t.Fatalf("create user: %v", errCreate)
	}
	return &user
}

func TestCheckInOncePerDay(t *testing.T) {
	settings.StoreDBConfig(time.Now(), nil)
	db := setupCheckinTestDB(t)
	svc := NewService(db)
	user := createCheckinUser(t, db)

	status, errCheckin := svc.CheckIn(context.Background(), user.ID)
	if errCheckin != nil {
		t.Fatalf("checkin: %v", errCheckin)
	}
	if !status.CheckedInToday || status.Streak != 1 {
		t.Fatalf("status = %+v", status)
	}

	if _, errCheckin := svc.CheckIn(context.Background(), user.ID); !errors.Is(errCheckin, ErrAlreadyCheckedIn) {
		t.Fatalf("second checkin = %v, want ErrAlreadyCheckedIn", errCheckin)
	}

	var userRow models.User
	db.First(&userRow, user.ID)
	if userRow.Coins != settings.DefaultCheckinReward {
		t.Fatalf("coins = %d, want one reward", userRow.Coins)
	}
}

func TestCheckInContinuesStreakFromYesterday(t *testing.T) {
	db := setupCheckinTestDB(t)
	svc := NewService(db)
	user := createCheckinUser(t, db)

	yesterday := time.Now().AddDate(0, 0, -1)
	if errUpdate := db.Model(user).Updates(map[string]any{
		"checkin_streak":  3,
		"last_checkin_at": yesterday,
	}).Error; errUpdate != nil {
		t.Fatalf("seed streak: %v", errUpdate)
	}

	status, errCheckin := svc.CheckIn(context.Background(), user.ID)
	if errCheckin != nil {
		t.Fatalf("checkin: %v", errCheckin)
	}
	if status.Streak != 4 {
		t.Fatalf("streak = %d, want 4", status.Streak)
	}
}

func TestCheckInResetsBrokenStreak(t *testing.T) {
	db := setupCheckinTestDB(t)
	svc := NewService(db)
	user := createCheckinUser(t, db)

	lastWeek := time.Now().AddDate(0, 0, -5)
	if errUpdate := db.Model(user).Updates(map[string]any{
		"checkin_streak":  9,
		"last_checkin_at": lastWeek,
	}).Error; errUpdate != nil {
		t.Fatalf("seed streak: %v", errUpdate)
	}

	status, errCheckin := svc.CheckIn(context.Background(), user.ID)
	if errCheckin != nil {
		t.Fatalf("checkin: %v", errCheckin)
	}
	if status.Streak != 1 {
		t.Fatalf("streak = %d, want reset to 1", status.Streak)
	}
}

func TestTodayStatus(t *testing.T) {
	db := setupCheckinTestDB(t)
	svc := NewService(db)
	user := createCheckinUser(t, db)

	status, errToday := svc.Today(context.Background(), user.ID)
	if errToday != nil {
		t.Fatalf("today: %v", errToday)
	}
	if status.CheckedInToday {
		t.Fatalf("should not be checked in yet")
	}

	if _, errCheckin := svc.CheckIn(context.Background(), user.ID); errCheckin != nil {
		t.Fatalf("checkin: %v", errCheckin)
	}
	status, errToday = svc.Today(context.Background(), user.ID)
	if errToday != nil {
		t.Fatalf("today: %v", errToday)
	}
	if !status.CheckedInToday {
		t.Fatalf("should be checked in; day key %s", localtime.Today())
	}
}
