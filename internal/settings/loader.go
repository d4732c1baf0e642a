package settings

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/kiemxuonline/kiemxu/internal/models"
)

// RefreshDBConfigSnapshot reloads all settings from the database and updates the in-memory snapshot.
//
// This is required at process startup; otherwise DBConfigValue() will return empty values until
// an admin updates settings via the API (which triggers refresh).
func RefreshDBConfigSnapshot(ctx context.Context, db *gorm.DB) error {
	if db == nil {
		return errors.New("settings: nil db")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var rows []models.Setting
	if errFind := db.WithContext(ctx).
		Select("key", "value", "updated_at").
		Order("key ASC").
		Find(&rows).Error; errFind != nil {
		return errFind
	}

	values := make(map[string]json.RawMessage, len(rows))
	maxUpdatedAt := time.Time{}
	maxUpdatedKey := ""
	for _, row := range rows {
		key := strings.TrimSpace(row.Key)
		if key == "" {
			continue
		}
		values[key] = row.Value
		rowUpdatedAt := row.UpdatedAt.UTC()
		if rowUpdatedAt.After(maxUpdatedAt) || (rowUpdatedAt.Equal(maxUpdatedAt) && key > maxUpdatedKey) {
			maxUpdatedAt = rowUpdatedAt
			maxUpdatedKey = key
		}
	}

	StoreDBConfig(maxUpdatedAt, values)
	return nil
}

// CommissionPercent returns the effective referral commission percent.
func CommissionPercent() int64 {
	val := Int64Value(CommissionPercentKey, DefaultCommissionPercent)
	if val < 0 || val > 100 {
		return DefaultCommissionPercent
	}
	return val
}

// CardRatePer1000 returns xu credited per 1000 VND of resolved card value.
func CardRatePer1000() int64 {
	val := Int64Value(CardRateKey, DefaultCardRate)
	if val <= 0 {
		return DefaultCardRate
	}
	return val
}

// CheckinReward returns the daily check-in reward in xu.
func CheckinReward() int64 {
	val := Int64Value(CheckinRewardKey, DefaultCheckinReward)
	if val <= 0 {
		return DefaultCheckinReward
	}
	return val
}

// MinigameMultiplier returns the Tài/Xỉu win payout multiplier.
func MinigameMultiplier() float64 {
	val := FloatValue(MinigameMultiplierKey, DefaultMinigameMultiplier)
	if val <= 1 {
		return DefaultMinigameMultiplier
	}
	return val
}

// MinigameMinBet returns the minimum Tài/Xỉu bet in xu.
func MinigameMinBet() int64 {
	val := Int64Value(MinigameMinBetKey, DefaultMinigameMinBet)
	if val <= 0 {
		return DefaultMinigameMinBet
	}
	return val
}

// MarketFeePercent returns the marketplace fee percent on account sales.
func MarketFeePercent() int64 {
	val := Int64Value(MarketFeePercentKey, DefaultMarketFeePercent)
	if val < 0 || val > 100 {
		return DefaultMarketFeePercent
	}
	return val
}

// AuctionBidStep returns the minimum auction bid increment in xu.
func AuctionBidStep() int64 {
	val := Int64Value(AuctionBidStepKey, DefaultAuctionBidStep)
	if val <= 0 {
		return DefaultAuctionBidStep
	}
	return val
}

// MissionStartTTL returns how long a mission start marker stays valid.
func MissionStartTTL() time.Duration {
	minutes := Int64Value(MissionStartTTLMinutesKey, DefaultMissionStartTTLMinutes)
	if minutes <= 0 {
		minutes = DefaultMissionStartTTLMinutes
	}
	return time.Duration(minutes) * time.Minute
}
