package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	dbutil "github.com/kiemxuonline/kiemxu/internal/db"
	"github.com/kiemxuonline/kiemxu/internal/models"
)

// GiftTokenHandler manages gift tokens from the admin panel.
type GiftTokenHandler struct {
	db *gorm.DB
}

// NewGiftTokenHandler constructs a GiftTokenHandler.
func NewGiftTokenHandler(db *gorm.DB) *GiftTokenHandler {
	return &GiftTokenHandler{db: db}
}

// List returns all gift tokens with usage counts.
func (h *GiftTokenHandler) List(c *gin.Context) {
	var tokens []models.GiftToken
	if errFind := h.db.WithContext(c.Request.Context()).Order("id DESC").Find(&tokens).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"tokens": tokens})
}

// giftTokenRequest defines the create/update body for a gift token.
type giftTokenRequest struct {
	Code      string     `json:"code"`
	CoinValue int64      `json:"coin_value"`
	MaxUses   int64      `json:"max_uses"`
	ExpiresAt *time.Time `json:"expires_at"`
	IsEnabled *bool      `json:"is_enabled"`
}

// Create adds a gift token.
func (h *GiftTokenHandler) Create(c *gin.Context) {
	var body giftTokenRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	code := strings.TrimSpace(body.Code)
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing code"})
		return
	}
	if body.CoinValue <= 0 || body.MaxUses <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "coin_value and max_uses must be positive"})
		return
	}

	token := models.GiftToken{
		Code:      code,
		CoinValue: body.CoinValue,
		MaxUses:   body.MaxUses,
		ExpiresAt: body.ExpiresAt,
		IsEnabled: true,
	}
	if body.IsEnabled != nil {
		token.IsEnabled = *body.IsEnabled
	}
	if errCreate := h.db.WithContext(c.Request.Context()).Create(&token).Error; errCreate != nil {
		if dbutil.IsDuplicateKeyError(errCreate) {
			c.JSON(http.StatusConflict, gin.H{"error": "code already exists"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create token failed"})
		return
	}
	c.JSON(http.StatusCreated, token)
}

// Update modifies a gift token. The code itself is immutable.
func (h *GiftTokenHandler) Update(c *gin.Context) {
	tokenID, errParse := strconv.ParseUint(c.Param("id"), 10, 64)
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid token id"})
		return
	}
	var body giftTokenRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	updates := map[string]any{}
	if body.CoinValue > 0 {
		updates["coin_value"] = body.CoinValue
	}
	if body.MaxUses > 0 {
		updates["max_uses"] = body.MaxUses
	}
	if body.ExpiresAt != nil {
		updates["expires_at"] = body.ExpiresAt
	}
	if body.IsEnabled != nil {
		updates["is_enabled"] = *body.IsEnabled
	}
	if len(updates) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "nothing to update"})
		return
	}

	res := h.db.WithContext(c.Request.Context()).Model(&models.GiftToken{}).
		Where("id = ?", tokenID).
		Updates(updates)
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "token not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// Delete disables a gift token. Usage rows stay for audit.
func (h *GiftTokenHandler) Delete(c *gin.Context) {
	tokenID, errParse := strconv.ParseUint(c.Param("id"), 10, 64)
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid token id"})
		return
	}

	res := h.db.WithContext(c.Request.Context()).Model(&models.GiftToken{}).
		Where("id = ?", tokenID).
		Update("is_enabled", false)
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "token not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
