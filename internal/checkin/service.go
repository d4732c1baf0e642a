// Package checkin implements the daily check-in reward. One check-in per
// user per local calendar day, enforced by the unique (user, day) index.
package checkin

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	dbutil "github.com/kiemxuonline/kiemxu/internal/db"
	"github.com/kiemxuonline/kiemxu/internal/localtime"
	"github.com/kiemxuonline/kiemxu/internal/models"
	"github.com/kiemxuonline/kiemxu/internal/settings"
	"github.com/kiemxuonline/kiemxu/internal/wallet"
)

// ErrAlreadyCheckedIn indicates the user already checked in today.
var ErrAlreadyCheckedIn = errors.New("checkin: already checked in today")

// Service handles daily check-ins.
type Service struct {
	db *gorm.DB
}

// NewService constructs a checkin Service.
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// Status reports today's check-in state for the user.
type Status struct {
	CheckedInToday bool  `json:"checked_in_today"`
	Streak         int   `json:"streak"`
	Reward         int64 `json:"reward"`
}

// Today returns the user's current check-in status.
func (s *Service) Today(ctx context.Context, userID uint64) (*Status, error) {
	var user models.User
	if errFind := s.db.WithContext(ctx).
		Select("id", "checkin_streak", "last_checkin_at").
		First(&user, userID).Error; errFind != nil {
		return nil, errFind
	}

	checkedIn := user.LastCheckinAt != nil && localtime.DayKey(*user.LastCheckinAt) == localtime.Today()
	return &Status{
		CheckedInToday: checkedIn,
		Streak:         user.CheckinStreak,
		Reward:         settings.CheckinReward(),
	}, nil
}

// CheckIn claims today's reward. The streak continues when yesterday was
// also claimed and resets otherwise.
func (s *Service) CheckIn(ctx context.Context, userID uint64) (*Status, error) {
	reward := settings.CheckinReward()
	now := time.Now()
	today := localtime.Today()
	yesterday := localtime.DayKey(now.AddDate(0, 0, -1))

	var user models.User
	if errFind := s.db.WithContext(ctx).
		Select("id", "checkin_streak", "last_checkin_at").
		First(&user, userID).Error; errFind != nil {
		return nil, errFind
	}

	streak := 1
	if user.LastCheckinAt != nil && localtime.DayKey(*user.LastCheckinAt) == yesterday {
		streak = user.CheckinStreak + 1
	}

	errTx := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		record := models.CheckIn{
			UserID: userID,
			Day:    today,
			Coins:  reward,
			Streak: streak,
		}
		if errCreate := tx.Create(&record).Error; errCreate != nil {
			if dbutil.IsDuplicateKeyError(errCreate) {
				return ErrAlreadyCheckedIn
			}
			return errCreate
		}

		if errUpdate := tx.Model(&models.User{}).
			Where("id = ?", userID).
			Updates(map[string]any{
				"checkin_streak":  streak,
				"last_checkin_at": now,
			}).Error; errUpdate != nil {
			return errUpdate
		}

		return wallet.Credit(ctx, tx, userID, reward, models.LedgerCheckin, record.ID, today)
	})
	if errTx != nil {
		return nil, errTx
	}

	return &Status{CheckedInToday: true, Streak: streak, Reward: reward}, nil
}
