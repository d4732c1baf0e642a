package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/kiemxuonline/kiemxu/internal/models"
	"github.com/kiemxuonline/kiemxu/internal/settings"
)

// SettingsHandler manages DB-backed settings.
type SettingsHandler struct {
	db *gorm.DB
}

// NewSettingsHandler constructs a SettingsHandler.
func NewSettingsHandler(db *gorm.DB) *SettingsHandler {
	return &SettingsHandler{db: db}
}

// List returns all stored settings plus the effective values of the known
// keys, defaults applied.
func (h *SettingsHandler) List(c *gin.Context) {
	var rows []models.Setting
	if errFind := h.db.WithContext(c.Request.Context()).Order("key ASC").Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}

	stored := make(map[string]json.RawMessage, len(rows))
	for _, row := range rows {
		stored[row.Key] = row.Value
	}

	c.JSON(http.StatusOK, gin.H{
		"stored": stored,
		"effective": gin.H{
			settings.SiteNameKey:              settings.StringValue(settings.SiteNameKey, settings.DefaultSiteName),
			settings.CommissionPercentKey:     settings.CommissionPercent(),
			settings.CardRateKey:              settings.CardRatePer1000(),
			settings.CheckinRewardKey:         settings.CheckinReward(),
			settings.MinigameMultiplierKey:    settings.MinigameMultiplier(),
			settings.MinigameMinBetKey:        settings.MinigameMinBet(),
			settings.MarketFeePercentKey:      settings.MarketFeePercent(),
			settings.AuctionBidStepKey:        settings.AuctionBidStep(),
			settings.MissionStartTTLMinutesKey: int64(settings.MissionStartTTL().Minutes()),
		},
	})
}

// Update upserts setting keys and refreshes the in-memory snapshot so new
// values take effect immediately.
func (h *SettingsHandler) Update(c *gin.Context) {
	var body map[string]json.RawMessage
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if len(body) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "nothing to update"})
		return
	}

	errTx := h.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		for key, value := range body {
			key = strings.TrimSpace(key)
			if key == "" {
				continue
			}
			row := models.Setting{Key: key, Value: value}
			if errUpsert := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "key"}},
				DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
			}).Create(&row).Error; errUpsert != nil {
				return errUpsert
			}
		}
		return nil
	})
	if errTx != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update settings failed"})
		return
	}

	if errRefresh := settings.RefreshDBConfigSnapshot(c.Request.Context(), h.db); errRefresh != nil {
		log.WithError(errRefresh).Warn("settings snapshot refresh failed")
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
