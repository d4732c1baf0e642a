package admin

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/kiemxuonline/kiemxu/internal/config"
	"github.com/kiemxuonline/kiemxu/internal/http/api/admin/handlers"
	"github.com/kiemxuonline/kiemxu/internal/models"
	"github.com/kiemxuonline/kiemxu/internal/provider"
	"github.com/kiemxuonline/kiemxu/internal/security"
)

// RegisterAdminRoutes registers the admin panel API.
func RegisterAdminRoutes(r *gin.Engine, db *gorm.DB, jwtCfg config.JWTConfig, shortener *provider.Shortener) {
	if r == nil || db == nil {
		return
	}

	api := r.Group("/api/admin")

	authHandler := handlers.NewAuthHandler(db, jwtCfg)
	api.POST("/login", authHandler.Login)
	// Second step of the TOTP flow: same body plus the code.
	api.POST("/login/totp", authHandler.Login)

	authed := api.Group("")
	authed.Use(adminAuthMiddleware(db, jwtCfg))

	authed.GET("/me", authHandler.Me)
	authed.POST("/mfa/totp/prepare", authHandler.PrepareTOTP)
	authed.POST("/mfa/totp/confirm", authHandler.ConfirmTOTP)
	authed.POST("/mfa/totp/disable", authHandler.DisableTOTP)

	userHandler := handlers.NewUserHandler(db)
	authed.GET("/users", userHandler.List)
	authed.GET("/users/:id", userHandler.Get)
	authed.POST("/users/:id/adjust-coins", userHandler.AdjustCoins)
	authed.POST("/users/:id/ban", userHandler.Ban)
	authed.POST("/users/:id/unban", userHandler.Unban)
	authed.DELETE("/users/:id", userHandler.Delete)

	missionHandler := handlers.NewMissionAdminHandler(db, shortener)
	authed.GET("/missions", missionHandler.List)
	authed.POST("/missions", missionHandler.Create)
	authed.PUT("/missions/:id", missionHandler.Update)
	authed.DELETE("/missions/:id", missionHandler.Delete)

	providerHandler := handlers.NewProviderHandler(db)
	authed.GET("/providers", providerHandler.List)
	authed.POST("/providers", providerHandler.Create)
	authed.PUT("/providers/:id", providerHandler.Update)
	authed.DELETE("/providers/:id", providerHandler.Delete)

	giftHandler := handlers.NewGiftTokenHandler(db)
	authed.GET("/gift-tokens", giftHandler.List)
	authed.POST("/gift-tokens", giftHandler.Create)
	authed.PUT("/gift-tokens/:id", giftHandler.Update)
	authed.DELETE("/gift-tokens/:id", giftHandler.Delete)

	cardHandler := handlers.NewCardAdminHandler(db)
	authed.GET("/card-transactions", cardHandler.List)

	accountHandler := handlers.NewAccountAdminHandler(db)
	authed.GET("/accounts", accountHandler.List)
	authed.POST("/accounts", accountHandler.Create)
	authed.PUT("/accounts/:id", accountHandler.Update)
	authed.DELETE("/accounts/:id", accountHandler.Remove)

	settingsHandler := handlers.NewSettingsHandler(db)
	authed.GET("/settings", settingsHandler.List)
	authed.PUT("/settings", settingsHandler.Update)

	dashboardHandler := handlers.NewDashboardHandler(db)
	authed.GET("/dashboard", dashboardHandler.Stats)
}

// adminAuthMiddleware validates admin JWTs and loads the admin into context.
func adminAuthMiddleware(db *gorm.DB, jwtCfg config.JWTConfig) gin.HandlerFunc {
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

		claims, errJWT := security.ParseAdminToken(jwtCfg.Secret, token)
		if errJWT != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		var admin models.Admin
		if errFind := db.WithContext(c.Request.Context()).First(&admin, claims.AdminID).Error; errFind != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "admin not found"})
			return
		}
		if !admin.Active {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin disabled"})
			return
		}

		c.Set("adminID", admin.ID)
		c.Next()
	}
}
