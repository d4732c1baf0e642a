package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/kiemxuonline/kiemxu/internal/minigame"
)

// MinigameHandler serves the Tài/Xỉu endpoints.
type MinigameHandler struct {
	svc *minigame.Service
}

// NewMinigameHandler constructs a MinigameHandler.
func NewMinigameHandler(svc *minigame.Service) *MinigameHandler {
	return &MinigameHandler{svc: svc}
}

// playRequest defines the request body for one round.
type playRequest struct {
	Bet    int64  `json:"bet"`
	Choice string `json:"choice"`
}

// Play runs one round against the house.
func (h *MinigameHandler) Play(c *gin.Context) {
	var body playRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	result, errPlay := h.svc.Play(c.Request.Context(), getUserID(c), body.Bet, body.Choice)
	if errPlay != nil {
		switch {
		case errors.Is(errPlay, minigame.ErrInvalidChoice):
			c.JSON(http.StatusBadRequest, gin.H{"error": "choice must be tai or xiu"})
		case errors.Is(errPlay, minigame.ErrBetTooSmall):
			c.JSON(http.StatusBadRequest, gin.H{"error": "bet below minimum"})
		case errors.Is(errPlay, minigame.ErrInsufficientBalance):
			c.JSON(http.StatusConflict, gin.H{"error": "insufficient balance"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "play failed"})
		}
		return
	}
	c.JSON(http.StatusOK, result)
}

// Winners returns the recent winners feed, usernames masked.
func (h *MinigameHandler) Winners(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	winners, errList := h.svc.RecentWinners(c.Request.Context(), limit)
	if errList != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"winners": winners})
}
