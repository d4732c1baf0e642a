package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kiemxuonline/kiemxu/internal/settings"
)

// GetPublicConfig returns the settings the front-end needs before login.
func GetPublicConfig(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"site_name":           settings.StringValue(settings.SiteNameKey, settings.DefaultSiteName),
		"card_rate_per_1000":  settings.CardRatePer1000(),
		"checkin_reward":      settings.CheckinReward(),
		"minigame_multiplier": settings.MinigameMultiplier(),
		"minigame_min_bet":    settings.MinigameMinBet(),
		"auction_bid_step":    settings.AuctionBidStep(),
	})
}
