package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kiemxuonline/kiemxu/internal/checkin"
)

// CheckinHandler serves the daily check-in endpoints.
type CheckinHandler struct {
	svc *checkin.Service
}

// NewCheckinHandler constructs a CheckinHandler.
func NewCheckinHandler(svc *checkin.Service) *CheckinHandler {
	return &CheckinHandler{svc: svc}
}

// Status returns today's check-in state.
func (h *CheckinHandler) Status(c *gin.Context) {
	status, errToday := h.svc.Today(c.Request.Context(), getUserID(c))
	if errToday != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, status)
}

// CheckIn claims today's reward.
func (h *CheckinHandler) CheckIn(c *gin.Context) {
	status, errCheckin := h.svc.CheckIn(c.Request.Context(), getUserID(c))
	if errCheckin != nil {
		if errors.Is(errCheckin, checkin.ErrAlreadyCheckedIn) {
			c.JSON(http.StatusConflict, gin.H{"error": "already checked in today"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "checkin failed"})
		return
	}
	c.JSON(http.StatusOK, status)
}
