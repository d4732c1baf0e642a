package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/kiemxuonline/kiemxu/internal/models"
	"github.com/kiemxuonline/kiemxu/internal/util"
)

// ProviderHandler manages link-shortening providers.
type ProviderHandler struct {
	db *gorm.DB
}

// NewProviderHandler constructs a ProviderHandler.
func NewProviderHandler(db *gorm.DB) *ProviderHandler {
	return &ProviderHandler{db: db}
}

// List returns all providers.
func (h *ProviderHandler) List(c *gin.Context) {
	var providers []models.Provider
	if errFind := h.db.WithContext(c.Request.Context()).Order("id ASC").Find(&providers).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}

	out := make([]gin.H, 0, len(providers))
	for _, p := range providers {
		out = append(out, gin.H{
			"id":            p.ID,
			"name":          p.Name,
			"api_url":       p.APIURL,
			"api_key":       util.MaskSecret(p.APIKey),
			"rate_per_1000": p.RatePer1000,
			"extra":         p.Extra,
			"is_enabled":    p.IsEnabled,
			"created_at":    p.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"providers": out})
}

// providerRequest defines the create/update body for a provider.
type providerRequest struct {
	Name        string         `json:"name"`
	APIURL      string         `json:"api_url"`
	APIKey      string         `json:"api_key"`
	RatePer1000 int64          `json:"rate_per_1000"`
	Extra       datatypes.JSON `json:"extra"`
	IsEnabled   *bool          `json:"is_enabled"`
}

// Create adds a provider.
func (h *ProviderHandler) Create(c *gin.Context) {
	var body providerRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(body.Name) == "" || strings.TrimSpace(body.APIURL) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing name or api_url"})
		return
	}

	p := models.Provider{
		Name:        strings.TrimSpace(body.Name),
		APIURL:      strings.TrimSpace(body.APIURL),
		APIKey:      strings.TrimSpace(body.APIKey),
		RatePer1000: body.RatePer1000,
		Extra:       body.Extra,
		IsEnabled:   true,
	}
	if body.IsEnabled != nil {
		p.IsEnabled = *body.IsEnabled
	}
	if errCreate := h.db.WithContext(c.Request.Context()).Create(&p).Error; errCreate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create provider failed"})
		return
	}
	c.JSON(http.StatusCreated, p)
}

// Update modifies a provider.
func (h *ProviderHandler) Update(c *gin.Context) {
	providerID, errParse := strconv.ParseUint(c.Param("id"), 10, 64)
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid provider id"})
		return
	}
	var body providerRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	updates := map[string]any{}
	if name := strings.TrimSpace(body.Name); name != "" {
		updates["name"] = name
	}
	if apiURL := strings.TrimSpace(body.APIURL); apiURL != "" {
		updates["api_url"] = apiURL
	}
	if apiKey := strings.TrimSpace(body.APIKey); apiKey != "" {
		updates["api_key"] = apiKey
	}
	if body.RatePer1000 > 0 {
		updates["rate_per_1000"] = body.RatePer1000
	}
	if len(body.Extra) > 0 {
		updates["extra"] = body.Extra
	}
	if body.IsEnabled != nil {
		updates["is_enabled"] = *body.IsEnabled
	}
	if len(updates) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "nothing to update"})
		return
	}

	res := h.db.WithContext(c.Request.Context()).Model(&models.Provider{}).
		Where("id = ?", providerID).
		Updates(updates)
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "provider not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// Delete removes a provider. Missions keep their already-shortened links.
func (h *ProviderHandler) Delete(c *gin.Context) {
	providerID, errParse := strconv.ParseUint(c.Param("id"), 10, 64)
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid provider id"})
		return
	}

	errTx := h.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		if errDetach := tx.Model(&models.Mission{}).
			Where("provider_id = ?", providerID).
			Update("provider_id", nil).Error; errDetach != nil {
			return errDetach
		}
		return tx.Delete(&models.Provider{}, providerID).Error
	})
	if errTx != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
