package mission

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

func setupMissionTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:mission_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, errOpen := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if errOpen != nil {
		t.Fatalf("open db: %v", errOpen)
	}
	if errMigrate := db.AutoMigrate(
		&models.User{}, &models.Mission{}, &models.MissionStart{},
		&models.MissionLock{}, &models.CoinLedger{},
	); errMigrate != nil {
		t.Fatalf("migrate db: %v", errMigrate)
	}
	return db
}

func createMissionUser(t *testing.T, db *gorm.DB, referredBy *uint64) *models.User {
	t.Helper()
	user := models.User{
		Username:     fmt.Sprintf("user_%d_%d", time.Now().UnixNano(), len(t.Name())),
		Password:     "x",
		Role:         models.RoleUser,
		ReferralCode: fmt.Sprintf("ref_%d_%d", time.Now().UnixNano(), len(t.Name())),
		ReferredByID: referredBy,
	}
	if errCreate := db.Create(&user).Error; errCreate != nil {
		t.Fatalf("create user: %v", errCreate)
	}
	return &user
}

func createMission(t *testing.T, db *gorm.DB, reward int64, requiresCode bool, code string) *models.Mission {
	t.Helper()
	m := models.Mission{
		Name:         "visit link",
		TargetURL:    "https://example.com/landing",
		ShortURL:     "https://s.example/abc",
		Reward:       reward,
		RequiresCode: requiresCode,
		Code:         code,
		IsActive:     true,
	}
	if errCreate := db.Create(&m).Error; errCreate != nil {
		t.Fatalf("create mission: %v", errCreate)
	}
	return &m
}

func TestStartUnknownMission(t *testing.T) {
	db := setupMissionTestDB(t)
	svc := NewService(db)
	user := createMissionUser(t, db, nil)

	if _, errStart := svc.Start(context.Background(), user.ID, 404, "1.2.3.4"); !errors.Is(errStart, ErrNotFound) {
		t.Fatalf("start = %v, want ErrNotFound", errStart)
	}
}

func TestStartInactiveMission(t *testing.T) {
	db := setupMissionTestDB(t)
	svc := NewService(db)
	user := createMissionUser(t, db, nil)
	m := createMission(t, db, 100, false, "")
	if errUpdate := db.Model(m).Update("is_active", false).Error; errUpdate != nil {
		t.Fatalf("deactivate: %v", errUpdate)
	}

	if _, errStart := svc.Start(context.Background(), user.ID, m.ID, "1.2.3.4"); !errors.Is(errStart, ErrNotFound) {
		t.Fatalf("start = %v, want ErrNotFound", errStart)
	}
}

func TestStartRefreshesMarker(t *testing.T) {
	db := setupMissionTestDB(t)
	svc := NewService(db)
	user := createMissionUser(t, db, nil)
	m := createMission(t, db, 100, false, "")

	if _, errStart := svc.Start(context.Background(), user.ID, m.ID, "1.2.3.4"); errStart != nil {
		t.Fatalf("first start: %v", errStart)
	}
	if _, errStart := svc.Start(context.Background(), user.ID, m.ID, "5.6.7.8"); errStart != nil {
		t.Fatalf("second start: %v", errStart)
	}

	var markers []models.MissionStart
	if errFind := db.Where("user_id = ?", user.ID).Find(&markers).Error; errFind != nil {
		t.Fatalf("find markers: %v", errFind)
	}
	if len(markers) != 1 {
		t.Fatalf("markers = %d, want 1", len(markers))
	}
	if markers[0].IP != "5.6.7.8" {
		t.Fatalf("marker ip = %q, want refreshed", markers[0].IP)
	}
}

func TestVerifyWithoutStart(t *testing.T) {
	db := setupMissionTestDB(t)
	svc := NewService(db)
	user := createMissionUser(t, db, nil)
	m := createMission(t, db, 100, false, "")

	if _, errVerify := svc.Verify(context.Background(), user.ID, m.ID, "", "1.2.3.4"); !errors.Is(errVerify, ErrNotStarted) {
		t.Fatalf("verify = %v, want ErrNotStarted", errVerify)
	}
}

func TestVerifyCodeFlowEndToEnd(t *testing.T) {
	db := setupMissionTestDB(t)
	svc := NewService(db)
	referrer := createMissionUser(t, db, nil)
	user := createMissionUser(t, db, &referrer.ID)
	m := createMission(t, db, 100, true, "ABC123")

	if _, errStart := svc.Start(context.Background(), user.ID, m.ID, "1.2.3.4"); errStart != nil {
		t.Fatalf("start: %v", errStart)
	}

	// Wrong case must fail without mutating state.
	if _, errVerify := svc.Verify(context.Background(), user.ID, m.ID, "abc123", "1.2.3.4"); !errors.Is(errVerify, ErrInvalidCode) {
		t.Fatalf("verify wrong case = %v, want ErrInvalidCode", errVerify)
	}
	var balanceCheck models.User
	db.First(&balanceCheck, user.ID)
	if balanceCheck.Coins != 0 {
		t.Fatalf("balance after invalid code = %d, want 0", balanceCheck.Coins)
	}

	result, errVerify := svc.Verify(context.Background(), user.ID, m.ID, "ABC123", "1.2.3.4")
	if errVerify != nil {
		t.Fatalf("verify: %v", errVerify)
	}
	if result.Reward != 100 || result.Balance != 100 {
		t.Fatalf("result = %+v, want reward 100 balance 100", result)
	}
	if result.Commission != 20 {
		t.Fatalf("commission = %d, want 20", result.Commission)
	}

	var referrerRow models.User
	db.First(&referrerRow, referrer.ID)
	if referrerRow.Coins != 20 {
		t.Fatalf("referrer coins = %d, want 20", referrerRow.Coins)
	}

	var missionRow models.Mission
	db.First(&missionRow, m.ID)
	if missionRow.Uses != 1 {
		t.Fatalf("uses = %d, want 1", missionRow.Uses)
	}
}

func TestVerifyTwiceCreditsOnce(t *testing.T) {
	db := setupMissionTestDB(t)
	svc := NewService(db)
	user := createMissionUser(t, db, nil)
	m := createMission(t, db, 100, false, "")

	if _, errStart := svc.Start(context.Background(), user.ID, m.ID, "1.2.3.4"); errStart != nil {
		t.Fatalf("start: %v", errStart)
	}
	if _, errVerify := svc.Verify(context.Background(), user.ID, m.ID, "", "1.2.3.4"); errVerify != nil {
		t.Fatalf("first verify: %v", errVerify)
	}

	// A second start the same day is rejected by the lock.
	if _, errStart := svc.Start(context.Background(), user.ID, m.ID, "1.2.3.4"); !errors.Is(errStart, ErrAlreadyLocked) {
		t.Fatalf("restart = %v, want ErrAlreadyLocked", errStart)
	}

	// A second verify reports the completed state even though the first
	// one consumed the start marker.
	if _, errVerify := svc.Verify(context.Background(), user.ID, m.ID, "", "1.2.3.4"); !errors.Is(errVerify, ErrAlreadyLocked) {
		t.Fatalf("second verify = %v, want ErrAlreadyLocked", errVerify)
	}

	// Same outcome when the marker is recreated by a fresh-looking replay.
	if errMarker := db.Create(&models.MissionStart{
		UserID: user.ID, MissionID: m.ID, StartedAt: time.Now(),
	}).Error; errMarker != nil {
		t.Fatalf("recreate marker: %v", errMarker)
	}
	if _, errVerify := svc.Verify(context.Background(), user.ID, m.ID, "", "1.2.3.4"); !errors.Is(errVerify, ErrAlreadyLocked) {
		t.Fatalf("replayed verify = %v, want ErrAlreadyLocked", errVerify)
	}

	var userRow models.User
	db.First(&userRow, user.ID)
	if userRow.Coins != 100 {
		t.Fatalf("balance = %d, want exactly one reward credit", userRow.Coins)
	}
}

func TestVerifyMaxUses(t *testing.T) {
	db := setupMissionTestDB(t)
	svc := NewService(db)
	m := createMission(t, db, 100, false, "")
	if errUpdate := db.Model(m).Updates(map[string]any{"max_uses": 1, "uses": 1}).Error; errUpdate != nil {
		t.Fatalf("cap mission: %v", errUpdate)
	}
	user := createMissionUser(t, db, nil)

	if _, errStart := svc.Start(context.Background(), user.ID, m.ID, "1.2.3.4"); errStart != nil {
		t.Fatalf("start: %v", errStart)
	}
	if _, errVerify := svc.Verify(context.Background(), user.ID, m.ID, "", "1.2.3.4"); !errors.Is(errVerify, ErrMaxUsesExceeded) {
		t.Fatalf("verify = %v, want ErrMaxUsesExceeded", errVerify)
	}

	var userRow models.User
	db.First(&userRow, user.ID)
	if userRow.Coins != 0 {
		t.Fatalf("balance = %d, want 0 after rollback", userRow.Coins)
	}
}

func TestVerifyExpiredMarker(t *testing.T) {
	db := setupMissionTestDB(t)
	svc := NewService(db)
	user := createMissionUser(t, db, nil)
	m := createMission(t, db, 100, false, "")

	stale := time.Now().Add(-3 * time.Hour)
	if errMarker := db.Create(&models.MissionStart{
		UserID: user.ID, MissionID: m.ID, StartedAt: stale,
	}).Error; errMarker != nil {
		t.Fatalf("create marker: %v", errMarker)
	}

	if _, errVerify := svc.Verify(context.Background(), user.ID, m.ID, "", "1.2.3.4"); !errors.Is(errVerify, ErrNotStarted) {
		t.Fatalf("verify = %v, want ErrNotStarted for stale marker", errVerify)
	}
}

func TestListMarksCompletedMissions(t *testing.T) {
	db := setupMissionTestDB(t)
	svc := NewService(db)
	user := createMissionUser(t, db, nil)
	done := createMission(t, db, 100, false, "")
	todo := createMission(t, db, 50, false, "")

	if _, errStart := svc.Start(context.Background(), user.ID, done.ID, "1.2.3.4"); errStart != nil {
		t.Fatalf("start: %v", errStart)
	}
	if _, errVerify := svc.Verify(context.Background(), user.ID, done.ID, "", "1.2.3.4"); errVerify != nil {
		t.Fatalf("verify: %v", errVerify)
	}

	views, errList := svc.List(context.Background(), user.ID)
	if errList != nil {
		t.Fatalf("list: %v", errList)
	}
	if len(views) != 2 {
		t.Fatalf("views = %d, want 2", len(views))
	}
	for _, view := range views {
		switch view.ID {
		case done.ID:
			if !view.CompletedToday {
				t.Fatalf("mission %d should be completed today", view.ID)
			}
		case todo.ID:
			if view.CompletedToday {
				t.Fatalf("mission %d should not be completed", view.ID)
			}
		}
	}
}
