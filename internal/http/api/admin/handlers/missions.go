package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/kiemxuonline/kiemxu/internal/models"
	"github.com/kiemxuonline/kiemxu/internal/provider"
)

// MissionAdminHandler manages missions from the admin panel.
type MissionAdminHandler struct {
	db        *gorm.DB
	shortener *provider.Shortener
}

// NewMissionAdminHandler constructs a MissionAdminHandler. The shortener may
// be nil, in which case missions keep their target URL as the short link.
func NewMissionAdminHandler(db *gorm.DB, shortener *provider.Shortener) *MissionAdminHandler {
	return &MissionAdminHandler{db: db, shortener: shortener}
}

// List returns all missions including inactive ones.
func (h *MissionAdminHandler) List(c *gin.Context) {
	var missions []models.Mission
	if errFind := h.db.WithContext(c.Request.Context()).
		Preload("Provider").
		Order("id DESC").
		Find(&missions).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"missions": missions})
}

// missionRequest defines the create/update body for a mission.
type missionRequest struct {
	Name         string  `json:"name"`
	Description  string  `json:"description"`
	ProviderID   *uint64 `json:"provider_id"`
	TargetURL    string  `json:"target_url"`
	Reward       int64   `json:"reward"`
	RequiresCode bool    `json:"requires_code"`
	Code         string  `json:"code"`
	PublicCode   bool    `json:"public_code"`
	MaxUses      int64   `json:"max_uses"`
	IsActive     *bool   `json:"is_active"`
}

func (r *missionRequest) validate() string {
	if strings.TrimSpace(r.Name) == "" {
		return "missing name"
	}
	if strings.TrimSpace(r.TargetURL) == "" {
		return "missing target_url"
	}
	if r.Reward <= 0 {
		return "reward must be positive"
	}
	if r.RequiresCode && strings.TrimSpace(r.Code) == "" {
		return "missing code"
	}
	if r.MaxUses < 0 {
		return "max_uses must not be negative"
	}
	return ""
}

// shorten wraps the target URL through the mission's provider. A shortener
// failure falls back to the raw target so the mission stays usable.
func (h *MissionAdminHandler) shorten(c *gin.Context, providerID *uint64, targetURL string) string {
	if h.shortener == nil || providerID == nil {
		return targetURL
	}
	var p models.Provider
	if errFind := h.db.WithContext(c.Request.Context()).First(&p, *providerID).Error; errFind != nil {
		return targetURL
	}
	short, errShorten := h.shortener.Shorten(c.Request.Context(), &p, targetURL)
	if errShorten != nil {
		log.WithError(errShorten).WithField("provider_id", *providerID).Warn("shorten failed, using target url")
		return targetURL
	}
	return short
}

// Create adds a mission, shortening its target through the provider.
func (h *MissionAdminHandler) Create(c *gin.Context) {
	var body missionRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if msg := body.validate(); msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}

	m := models.Mission{
		Name:         strings.TrimSpace(body.Name),
		Description:  strings.TrimSpace(body.Description),
		ProviderID:   body.ProviderID,
		TargetURL:    strings.TrimSpace(body.TargetURL),
		ShortURL:     h.shorten(c, body.ProviderID, strings.TrimSpace(body.TargetURL)),
		Reward:       body.Reward,
		RequiresCode: body.RequiresCode,
		Code:         strings.TrimSpace(body.Code),
		PublicCode:   body.PublicCode,
		MaxUses:      body.MaxUses,
		IsActive:     true,
	}
	if body.IsActive != nil {
		m.IsActive = *body.IsActive
	}
	if errCreate := h.db.WithContext(c.Request.Context()).Create(&m).Error; errCreate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create mission failed"})
		return
	}
	c.JSON(http.StatusCreated, m)
}

// Update modifies a mission; a changed target URL is re-shortened.
func (h *MissionAdminHandler) Update(c *gin.Context) {
	missionID, errParse := strconv.ParseUint(c.Param("id"), 10, 64)
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid mission id"})
		return
	}
	var body missionRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if msg := body.validate(); msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}

	var m models.Mission
	if errFind := h.db.WithContext(c.Request.Context()).First(&m, missionID).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "mission not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}

	targetURL := strings.TrimSpace(body.TargetURL)
	shortURL := m.ShortURL
	if targetURL != m.TargetURL || !equalProviderID(body.ProviderID, m.ProviderID) {
		shortURL = h.shorten(c, body.ProviderID, targetURL)
	}

	updates := map[string]any{
		"name":          strings.TrimSpace(body.Name),
		"description":   strings.TrimSpace(body.Description),
		"provider_id":   body.ProviderID,
		"target_url":    targetURL,
		"short_url":     shortURL,
		"reward":        body.Reward,
		"requires_code": body.RequiresCode,
		"code":          strings.TrimSpace(body.Code),
		"public_code":   body.PublicCode,
		"max_uses":      body.MaxUses,
	}
	if body.IsActive != nil {
		updates["is_active"] = *body.IsActive
	}
	if errUpdate := h.db.WithContext(c.Request.Context()).Model(&m).Updates(updates).Error; errUpdate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update mission failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// Delete deactivates a mission. Locks and ledger rows stay for audit.
func (h *MissionAdminHandler) Delete(c *gin.Context) {
	missionID, errParse := strconv.ParseUint(c.Param("id"), 10, 64)
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid mission id"})
		return
	}

	res := h.db.WithContext(c.Request.Context()).Model(&models.Mission{}).
		Where("id = ?", missionID).
		Update("is_active", false)
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "mission not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func equalProviderID(a, b *uint64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
