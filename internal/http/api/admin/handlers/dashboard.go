package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/kiemxuonline/kiemxu/internal/localtime"
	"github.com/kiemxuonline/kiemxu/internal/models"
)

// DashboardHandler serves the admin overview numbers.
type DashboardHandler struct {
	db *gorm.DB
}

// NewDashboardHandler constructs a DashboardHandler.
func NewDashboardHandler(db *gorm.DB) *DashboardHandler {
	return &DashboardHandler{db: db}
}

// Stats returns platform-wide counters and today's activity.
func (h *DashboardHandler) Stats(c *gin.Context) {
	ctx := c.Request.Context()
	today := localtime.Today()
	dayStart := time.Now().Truncate(24 * time.Hour)

	var totalUsers, newUsersToday int64
	if errCount := h.db.WithContext(ctx).Model(&models.User{}).Count(&totalUsers).Error; errCount != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	h.db.WithContext(ctx).Model(&models.User{}).
		Where("created_at >= ?", dayStart).
		Count(&newUsersToday)

	var totalCoins struct{ Total int64 }
	h.db.WithContext(ctx).Model(&models.User{}).
		Select("COALESCE(SUM(coins), 0) AS total").
		Scan(&totalCoins)

	var missionsToday int64
	h.db.WithContext(ctx).Model(&models.MissionLock{}).
		Where("day = ?", today).
		Count(&missionsToday)

	var checkinsToday int64
	h.db.WithContext(ctx).Model(&models.CheckIn{}).
		Where("day = ?", today).
		Count(&checkinsToday)

	var pendingCards, settledCardsToday int64
	h.db.WithContext(ctx).Model(&models.CardTransaction{}).
		Where("status = ?", models.CardStatusPending).
		Count(&pendingCards)
	h.db.WithContext(ctx).Model(&models.CardTransaction{}).
		Where("status = ? AND settled_at >= ?", models.CardStatusSuccess, dayStart).
		Count(&settledCardsToday)

	var cardCoinsToday struct{ Total int64 }
	h.db.WithContext(ctx).Model(&models.CardTransaction{}).
		Select("COALESCE(SUM(coins_credited), 0) AS total").
		Where("status = ? AND settled_at >= ?", models.CardStatusSuccess, dayStart).
		Scan(&cardCoinsToday)

	var roundsToday int64
	h.db.WithContext(ctx).Model(&models.MinigameRound{}).
		Where("created_at >= ?", dayStart).
		Count(&roundsToday)

	var openListings int64
	h.db.WithContext(ctx).Model(&models.Account{}).
		Where("status = ?", models.AccountAvailable).
		Count(&openListings)

	type topMission struct {
		MissionID   uint64 `json:"mission_id"`
		Name        string `json:"name"`
		Completions int64  `json:"completions"`
	}
	var topMissions []topMission
	h.db.WithContext(ctx).Model(&models.MissionLock{}).
		Select("mission_locks.mission_id, missions.name, COUNT(*) AS completions").
		Joins("JOIN missions ON missions.id = mission_locks.mission_id").
		Group("mission_locks.mission_id, missions.name").
		Order("completions DESC").
		Limit(5).
		Scan(&topMissions)

	c.JSON(http.StatusOK, gin.H{
		"users": gin.H{
			"total":       totalUsers,
			"new_today":   newUsersToday,
			"total_coins": totalCoins.Total,
		},
		"today": gin.H{
			"mission_completions": missionsToday,
			"checkins":            checkinsToday,
			"cards_settled":       settledCardsToday,
			"card_coins":          cardCoinsToday.Total,
			"minigame_rounds":     roundsToday,
		},
		"cards": gin.H{
			"pending": pendingCards,
		},
		"market": gin.H{
			"open_listings": openListings,
		},
		"top_missions": topMissions,
	})
}
