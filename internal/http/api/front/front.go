package front

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/kiemxuonline/kiemxu/internal/card"
	"github.com/kiemxuonline/kiemxu/internal/checkin"
	"github.com/kiemxuonline/kiemxu/internal/config"
	"github.com/kiemxuonline/kiemxu/internal/gift"
	internalhttp "github.com/kiemxuonline/kiemxu/internal/http"
	"github.com/kiemxuonline/kiemxu/internal/http/api/front/handlers"
	"github.com/kiemxuonline/kiemxu/internal/market"
	"github.com/kiemxuonline/kiemxu/internal/minigame"
	"github.com/kiemxuonline/kiemxu/internal/mission"
	"github.com/kiemxuonline/kiemxu/internal/models"
	"github.com/kiemxuonline/kiemxu/internal/provider"
	"github.com/kiemxuonline/kiemxu/internal/ratelimit"
	"github.com/kiemxuonline/kiemxu/internal/security"
)

// Deps bundles what the front routes need.
type Deps struct {
	DB          *gorm.DB
	JWT         config.JWTConfig
	CardService *card.Service
	CardGateway *provider.CardGateway
	Limiter     *ratelimit.Limiter
}

// RegisterFrontRoutes registers public and authenticated user-facing routes.
func RegisterFrontRoutes(r *gin.Engine, deps Deps) {
	if r == nil || deps.DB == nil {
		return
	}

	api := r.Group("/api")

	authHandler := handlers.NewAuthHandler(deps.DB, deps.JWT)
	api.POST("/auth/register",
		internalhttp.RateLimitMiddleware(deps.Limiter, "register", 10, time.Hour),
		authHandler.Register)
	api.POST("/auth/login",
		internalhttp.RateLimitMiddleware(deps.Limiter, "login", 30, 10*time.Minute),
		authHandler.Login)
	api.GET("/config", handlers.GetPublicConfig)

	minigameHandler := handlers.NewMinigameHandler(minigame.NewService(deps.DB))
	api.GET("/public/minigame/recent-winners", minigameHandler.Winners)

	cardHandler := handlers.NewCardHandler(deps.CardService, deps.CardGateway)
	api.POST("/card/callback", cardHandler.Callback)

	authed := api.Group("")
	authed.Use(userAuthMiddleware(deps.DB, deps.JWT))

	profileHandler := handlers.NewProfileHandler(deps.DB)
	authed.GET("/profile", profileHandler.Get)
	authed.PUT("/profile/password", profileHandler.ChangePassword)
	authed.GET("/profile/ledger", profileHandler.Ledger)

	missionHandler := handlers.NewMissionHandler(mission.NewService(deps.DB))
	authed.GET("/missions", missionHandler.List)
	authed.GET("/missions/:id", missionHandler.Get)
	authed.POST("/missions/:id/start", missionHandler.Start)
	authed.POST("/missions/:id/verify",
		internalhttp.RateLimitMiddleware(deps.Limiter, "mission_verify", 60, time.Minute),
		missionHandler.Verify)

	authed.POST("/card/charge",
		internalhttp.RateLimitMiddleware(deps.Limiter, "card_charge", 20, 10*time.Minute),
		cardHandler.Charge)
	authed.GET("/card/history", cardHandler.History)

	checkinHandler := handlers.NewCheckinHandler(checkin.NewService(deps.DB))
	authed.GET("/checkin", checkinHandler.Status)
	authed.POST("/checkin", checkinHandler.CheckIn)

	authed.POST("/public/minigame/tai-xiu",
		internalhttp.RateLimitMiddleware(deps.Limiter, "minigame", 120, time.Minute),
		minigameHandler.Play)

	giftHandler := handlers.NewGiftHandler(gift.NewService(deps.DB))
	authed.POST("/gift/redeem",
		internalhttp.RateLimitMiddleware(deps.Limiter, "gift_redeem", 30, 10*time.Minute),
		giftHandler.Redeem)

	accountHandler := handlers.NewAccountHandler(market.NewService(deps.DB))
	authed.GET("/accounts", accountHandler.List)
	authed.GET("/accounts/:id", accountHandler.Get)
	authed.POST("/accounts/:id/buy", accountHandler.Buy)
	authed.POST("/accounts/:id/bid", accountHandler.Bid)
}

// userAuthMiddleware validates user JWTs and loads the user into context.
func userAuthMiddleware(db *gorm.DB, jwtCfg config.JWTConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization header"})
			return
		}

		token := strings.TrimPrefix(authHeader, "Bearer ")
		if token == authHeader {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization format"})
			return
		}
		token = strings.TrimSpace(token)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "empty token"})
			return
		}

		claims, errJWT := security.ParseToken(jwtCfg.Secret, token)
		if errJWT != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		var user models.User
		if errFind := db.WithContext(c.Request.Context()).First(&user, claims.UserID).Error; errFind != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
			return
		}
		if user.Role == models.RoleBanned {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "user banned"})
			return
		}

		c.Set("userID", user.ID)
		c.Next()
	}
}
