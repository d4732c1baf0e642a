package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/kiemxuonline/kiemxu/internal/models"
)

// CardAdminHandler lists card transactions for reconciliation.
type CardAdminHandler struct {
	db *gorm.DB
}

// NewCardAdminHandler constructs a CardAdminHandler.
func NewCardAdminHandler(db *gorm.DB) *CardAdminHandler {
	return &CardAdminHandler{db: db}
}

// List returns card transactions, filterable by status and user.
func (h *CardAdminHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if offset < 0 {
		offset = 0
	}

	query := h.db.WithContext(c.Request.Context()).Model(&models.CardTransaction{})
	if statusRaw := strings.TrimSpace(c.Query("status")); statusRaw != "" {
		status, errParse := strconv.Atoi(statusRaw)
		if errParse != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
			return
		}
		query = query.Where("status = ?", status)
	}
	if userRaw := strings.TrimSpace(c.Query("user_id")); userRaw != "" {
		userID, errParse := strconv.ParseUint(userRaw, 10, 64)
		if errParse != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user_id"})
			return
		}
		query = query.Where("user_id = ?", userID)
	}

	var total int64
	if errCount := query.Count(&total).Error; errCount != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}

	var rows []models.CardTransaction
	if errFind := query.
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"transactions": rows, "total": total})
}
