package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/kiemxuonline/kiemxu/internal/mission"
)

// MissionHandler serves the user mission flow.
type MissionHandler struct {
	svc *mission.Service
}

// NewMissionHandler constructs a MissionHandler.
func NewMissionHandler(svc *mission.Service) *MissionHandler {
	return &MissionHandler{svc: svc}
}

// List returns active missions with the caller's completion state.
func (h *MissionHandler) List(c *gin.Context) {
	views, errList := h.svc.List(c.Request.Context(), getUserID(c))
	if errList != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"missions": views})
}

// Get returns one mission.
func (h *MissionHandler) Get(c *gin.Context) {
	missionID, errParse := strconv.ParseUint(c.Param("id"), 10, 64)
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid mission id"})
		return
	}

	view, errGet := h.svc.Get(c.Request.Context(), getUserID(c), missionID)
	if errGet != nil {
		if errors.Is(errGet, mission.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "mission not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, view)
}

// Start creates the start marker and returns the shortened link.
func (h *MissionHandler) Start(c *gin.Context) {
	missionID, errParse := strconv.ParseUint(c.Param("id"), 10, 64)
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid mission id"})
		return
	}

	shortURL, errStart := h.svc.Start(c.Request.Context(), getUserID(c), missionID, c.ClientIP())
	if errStart != nil {
		switch {
		case errors.Is(errStart, mission.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "mission not found"})
		case errors.Is(errStart, mission.ErrAlreadyLocked):
			c.JSON(http.StatusConflict, gin.H{"error": "mission already completed today"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "start failed"})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"short_url": shortURL})
}

// verifyRequest defines the request body for mission verification.
type verifyRequest struct {
	Code string `json:"code"`
}

// Verify checks the confirmation code and credits the reward.
func (h *MissionHandler) Verify(c *gin.Context) {
	missionID, errParse := strconv.ParseUint(c.Param("id"), 10, 64)
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid mission id"})
		return
	}

	var body verifyRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	result, errVerify := h.svc.Verify(c.Request.Context(), getUserID(c), missionID, body.Code, c.ClientIP())
	if errVerify != nil {
		switch {
		case errors.Is(errVerify, mission.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "mission not found"})
		case errors.Is(errVerify, mission.ErrNotStarted):
			c.JSON(http.StatusConflict, gin.H{"error": "mission not started"})
		case errors.Is(errVerify, mission.ErrInvalidCode):
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid code"})
		case errors.Is(errVerify, mission.ErrAlreadyLocked):
			c.JSON(http.StatusConflict, gin.H{"error": "mission already completed today"})
		case errors.Is(errVerify, mission.ErrMaxUsesExceeded):
			c.JSON(http.StatusConflict, gin.H{"error": "mission max uses reached"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "verify failed"})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"reward":  result.Reward,
		"balance": result.Balance,
	})
}
