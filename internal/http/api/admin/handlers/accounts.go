package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/kiemxuonline/kiemxu/internal/models"
)

// AccountAdminHandler manages marketplace listings from the admin panel.
type AccountAdminHandler struct {
	db *gorm.DB
}

// NewAccountAdminHandler constructs an AccountAdminHandler.
func NewAccountAdminHandler(db *gorm.DB) *AccountAdminHandler {
	return &AccountAdminHandler{db: db}
}

// List returns listings in any status.
func (h *AccountAdminHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if offset < 0 {
		offset = 0
	}

	query := h.db.WithContext(c.Request.Context()).Model(&models.Account{})
	if status := strings.TrimSpace(c.Query("status")); status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if errCount := query.Count(&total).Error; errCount != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}

	var rows []models.Account
	if errFind := query.
		Order("id DESC").
		Limit(limit).
		Offset(offset).
		Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"accounts": rows, "total": total})
}

// accountRequest defines the create/update body for a listing.
type accountRequest struct {
	SellerID      uint64         `json:"seller_id"`
	Title         string         `json:"title"`
	Description   string         `json:"description"`
	Credentials   datatypes.JSON `json:"credentials"`
	Images        datatypes.JSON `json:"images"`
	SaleType      string         `json:"sale_type"`
	Price         int64          `json:"price"`
	AuctionEndsAt *time.Time     `json:"auction_ends_at"`
}

// Create adds a listing on behalf of a seller.
func (h *AccountAdminHandler) Create(c *gin.Context) {
	var body accountRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if body.SellerID == 0 || strings.TrimSpace(body.Title) == "" || len(body.Credentials) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing seller_id, title or credentials"})
		return
	}
	if body.Price <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "price must be positive"})
		return
	}
	saleType := body.SaleType
	if saleType == "" {
		saleType = models.SaleTypeFixed
	}
	if saleType != models.SaleTypeFixed && saleType != models.SaleTypeAuction {
		c.JSON(http.StatusBadRequest, gin.H{"error": "sale_type must be fixed or auction"})
		return
	}
	if saleType == models.SaleTypeAuction && body.AuctionEndsAt == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "auction requires auction_ends_at"})
		return
	}

	account := models.Account{
		SellerID:      body.SellerID,
		Title:         strings.TrimSpace(body.Title),
		Description:   strings.TrimSpace(body.Description),
		Credentials:   body.Credentials,
		Images:        body.Images,
		SaleType:      saleType,
		Price:         body.Price,
		AuctionEndsAt: body.AuctionEndsAt,
		Status:        models.AccountAvailable,
	}
	if errCreate := h.db.WithContext(c.Request.Context()).Create(&account).Error; errCreate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create account failed"})
		return
	}
	c.JSON(http.StatusCreated, account)
}

// Update modifies an available listing. Sold listings are immutable.
func (h *AccountAdminHandler) Update(c *gin.Context) {
	accountID, errParse := strconv.ParseUint(c.Param("id"), 10, 64)
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid account id"})
		return
	}
	var body accountRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	updates := map[string]any{}
	if title := strings.TrimSpace(body.Title); title != "" {
		updates["title"] = title
	}
	if description := strings.TrimSpace(body.Description); description != "" {
		updates["description"] = description
	}
	if len(body.Credentials) > 0 {
		updates["credentials"] = body.Credentials
	}
	if len(body.Images) > 0 {
		updates["images"] = body.Images
	}
	if body.Price > 0 {
		updates["price"] = body.Price
	}
	if body.AuctionEndsAt != nil {
		updates["auction_ends_at"] = body.AuctionEndsAt
	}
	if len(updates) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "nothing to update"})
		return
	}

	res := h.db.WithContext(c.Request.Context()).Model(&models.Account{}).
		Where("id = ? AND status = ?", accountID, models.AccountAvailable).
		Updates(updates)
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "account not found or not editable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// Remove takes a listing off the marketplace.
func (h *AccountAdminHandler) Remove(c *gin.Context) {
	accountID, errParse := strconv.ParseUint(c.Param("id"), 10, 64)
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid account id"})
		return
	}

	res := h.db.WithContext(c.Request.Context()).Model(&models.Account{}).
		Where("id = ? AND status = ?", accountID, models.AccountAvailable).
		Update("status", models.AccountRemoved)
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "account not found or not removable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
