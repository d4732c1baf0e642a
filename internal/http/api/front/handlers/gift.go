package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/kiemxuonline/kiemxu/internal/gift"
)

// GiftHandler serves gift token redemption.
type GiftHandler struct {
	svc *gift.Service
}

// NewGiftHandler constructs a GiftHandler.
func NewGiftHandler(svc *gift.Service) *GiftHandler {
	return &GiftHandler{svc: svc}
}

// redeemRequest defines the request body for redemption.
type redeemRequest struct {
	Code string `json:"code"`
}

// Redeem claims a gift token for the signed-in user.
func (h *GiftHandler) Redeem(c *gin.Context) {
	var body redeemRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	code := strings.TrimSpace(body.Code)
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing code"})
		return
	}

	coins, errRedeem := h.svc.Redeem(c.Request.Context(), getUserID(c), code)
	if errRedeem != nil {
		switch {
		case errors.Is(errRedeem, gift.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "token not found"})
		case errors.Is(errRedeem, gift.ErrExpired):
			c.JSON(http.StatusConflict, gin.H{"error": "token expired"})
		case errors.Is(errRedeem, gift.ErrExhausted):
			c.JSON(http.StatusConflict, gin.H{"error": "token exhausted"})
		case errors.Is(errRedeem, gift.ErrAlreadyRedeemed):
			c.JSON(http.StatusConflict, gin.H{"error": "already redeemed"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "redeem failed"})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"coins": coins})
}
