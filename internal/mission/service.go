// Package mission implements the mission start/verify flow. The reward is
// credited exactly once per user per mission per local calendar day,
// enforced by the mission lock's unique index rather than application-level
// flags.
package mission

import (
	"context"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	dbutil "github.com/kiemxuonline/kiemxu/internal/db"
	"github.com/kiemxuonline/kiemxu/internal/localtime"
	"github.com/kiemxuonline/kiemxu/internal/models"
	"github.com/kiemxuonline/kiemxu/internal/settings"
	"github.com/kiemxuonline/kiemxu/internal/wallet"
)

// Mission flow errors.
var (
	// ErrNotFound indicates a missing or inactive mission.
	ErrNotFound = errors.New("mission: not found")
	// ErrAlreadyLocked indicates the user already completed the mission today.
	ErrAlreadyLocked = errors.New("mission: already completed today")
	// ErrNotStarted indicates verify was called without an unexpired start marker.
	ErrNotStarted = errors.New("mission: not started")
	// ErrInvalidCode indicates a confirmation code mismatch.
	ErrInvalidCode = errors.New("mission: invalid code")
	// ErrMaxUsesExceeded indicates the mission's global completion cap is reached.
	ErrMaxUsesExceeded = errors.New("mission: max uses exceeded")
)

// Service orchestrates mission listing, start and verification.
type Service struct {
	db *gorm.DB
}

// NewService constructs a mission Service.
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// View is a mission as presented to a user, with the caller's lock state
// for the current day.
type View struct {
	ID             uint64 `json:"id"`
	Name           string `json:"name"`
	Description    string `json:"description"`
	ShortURL       string `json:"short_url"`
	Reward         int64  `json:"reward"`
	RequiresCode   bool   `json:"requires_code"`
	PublicCode     string `json:"public_code,omitempty"`
	CompletedToday bool   `json:"completed_today"`
}

// VerifyResult reports a successful verification.
type VerifyResult struct {
	Reward     int64 // Xu credited to the user.
	Commission int64 // Xu credited to the referrer, 0 when none.
	Balance    int64 // User balance after crediting.
}

// List returns active missions. When userID is non-zero, CompletedToday is
// computed from today's mission locks.
func (s *Service) List(ctx context.Context, userID uint64) ([]View, error) {
	var missions []models.Mission
	if errFind := s.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("reward DESC, id ASC").
		Find(&missions).Error; errFind != nil {
		return nil, errFind
	}

	locked := map[uint64]bool{}
	if userID != 0 && len(missions) > 0 {
		var locks []models.MissionLock
		if errLocks := s.db.WithContext(ctx).
			Where("user_id = ? AND day = ?", userID, localtime.Today()).
			Find(&locks).Error; errLocks != nil {
			return nil, errLocks
		}
		for _, lock := range locks {
			locked[lock.MissionID] = true
		}
	}

	views := make([]View, 0, len(missions))
	for _, m := range missions {
		views = append(views, newView(m, locked[m.ID]))
	}
	return views, nil
}

// Get returns one active mission with the caller's lock state.
func (s *Service) Get(ctx context.Context, userID, missionID uint64) (*View, error) {
	m, errFind := s.findActive(ctx, s.db, missionID)
	if errFind != nil {
		return nil, errFind
	}

	completed := false
	if userID != 0 {
		var count int64
		if errCount := s.db.WithContext(ctx).Model(&models.MissionLock{}).
			Where("user_id = ? AND mission_id = ? AND day = ?", userID, missionID, localtime.Today()).
			Count(&count).Error; errCount != nil {
			return nil, errCount
		}
		completed = count > 0
	}

	view := newView(*m, completed)
	return &view, nil
}

// Start reserves a start marker for the user. Repeated starts refresh the
// marker; no funds move here.
func (s *Service) Start(ctx context.Context, userID, missionID uint64, ip string) (string, error) {
	m, errFind := s.findActive(ctx, s.db, missionID)
	if errFind != nil {
		return "", errFind
	}

	if errLocked := s.checkNotLocked(ctx, s.db, userID, missionID); errLocked != nil {
		return "", errLocked
	}

	marker := models.MissionStart{
		UserID:    userID,
		MissionID: missionID,
		IP:        ip,
		StartedAt: time.Now(),
	}
	if errUpsert := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "mission_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"ip", "started_at"}),
	}).Create(&marker).Error; errUpsert != nil {
		return "", errUpsert
	}

	log.WithFields(log.Fields{
		"user_id":    userID,
		"mission_id": missionID,
		"ip":         ip,
	}).Debug("mission started")

	return m.ShortURL, nil
}

// Verify checks the confirmation code, inserts today's lock, and credits the
// reward and referral commission in one transaction.
func (s *Service) Verify(ctx context.Context, userID, missionID uint64, code, ip string) (*VerifyResult, error) {
	result := &VerifyResult{}

	errTx := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		m, errFind := s.findActive(ctx, tx, missionID)
		if errFind != nil {
			return errFind
		}

		// Today's lock outranks the marker: a completed mission reports
		// already-completed even after the marker is consumed.
		if errLocked := s.checkNotLocked(ctx, tx, userID, missionID); errLocked != nil {
			return errLocked
		}

		var marker models.MissionStart
		if errMarker := tx.WithContext(ctx).
			Where("user_id = ? AND mission_id = ?", userID, missionID).
			First(&marker).Error; errMarker != nil {
			if errors.Is(errMarker, gorm.ErrRecordNotFound) {
				return ErrNotStarted
			}
			return errMarker
		}
		if time.Since(marker.StartedAt) > settings.MissionStartTTL() {
			return ErrNotStarted
		}

		// Case-sensitive exact match; mismatch mutates nothing.
		if m.RequiresCode && code != m.Code {
			return ErrInvalidCode
		}

		lock := models.MissionLock{
			UserID:    userID,
			MissionID: missionID,
			Day:       localtime.Today(),
			IP:        ip,
		}
		if errLock := tx.WithContext(ctx).Create(&lock).Error; errLock != nil {
			if dbutil.IsDuplicateKeyError(errLock) {
				return ErrAlreadyLocked
			}
			return errLock
		}

		res := tx.WithContext(ctx).Model(&models.Mission{}).
			Where("id = ? AND (max_uses = 0 OR uses < max_uses)", missionID).
			Update("uses", gorm.Expr("uses + 1"))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrMaxUsesExceeded
		}

		if errCredit := wallet.Credit(ctx, tx, userID, m.Reward, models.LedgerMissionReward, m.ID, m.Name); errCredit != nil {
			return errCredit
		}
		result.Reward = m.Reward

		var user models.User
		if errUser := tx.WithContext(ctx).Select("id", "coins", "referred_by_id").First(&user, userID).Error; errUser != nil {
			return errUser
		}
		result.Balance = user.Coins

		if user.ReferredByID != nil {
			commission := m.Reward * settings.CommissionPercent() / 100
			if commission > 0 {
				if errCommission := wallet.Credit(ctx, tx, *user.ReferredByID, commission, models.LedgerReferralCommission, m.ID, ""); errCommission != nil {
					// A deleted referrer must not fail the completing user's reward.
					if !errors.Is(errCommission, wallet.ErrUserNotFound) {
						return errCommission
					}
				} else {
					result.Commission = commission
				}
			}
		}

		return tx.WithContext(ctx).
			Where("user_id = ? AND mission_id = ?", userID, missionID).
			Delete(&models.MissionStart{}).Error
	})
	if errTx != nil {
		return nil, errTx
	}

	log.WithFields(log.Fields{
		"user_id":    userID,
		"mission_id": missionID,
		"reward":     result.Reward,
	}).Info("mission verified")

	return result, nil
}

// findActive loads a mission and maps missing/inactive to ErrNotFound.
func (s *Service) findActive(ctx context.Context, tx *gorm.DB, missionID uint64) (*models.Mission, error) {
	var m models.Mission
	if errFind := tx.WithContext(ctx).
		Where("id = ? AND is_active = ?", missionID, true).
		First(&m).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, errFind
	}
	return &m, nil
}

// checkNotLocked rejects a start when today's lock already exists.
func (s *Service) checkNotLocked(ctx context.Context, tx *gorm.DB, userID, missionID uint64) error {
	var count int64
	if errCount := tx.WithContext(ctx).Model(&models.MissionLock{}).
		Where("user_id = ? AND mission_id = ? AND day = ?", userID, missionID, localtime.Today()).
		Count(&count).Error; errCount != nil {
		return errCount
	}
	if count > 0 {
		return ErrAlreadyLocked
	}
	return nil
}

func newView(m models.Mission, completed bool) View {
	view := View{
		ID:             m.ID,
		Name:           m.Name,
		Description:    m.Description,
		ShortURL:       m.ShortURL,
		Reward:         m.Reward,
		RequiresCode:   m.RequiresCode,
		CompletedToday: completed,
	}
	if m.RequiresCode && m.PublicCode {
		view.PublicCode = m.Code
	}
	return view
}
