package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/kiemxuonline/kiemxu/internal/card"
	"github.com/kiemxuonline/kiemxu/internal/provider"
)

// CardHandler serves card top-up submission, history and the gateway
// callback.
type CardHandler struct {
	svc     *card.Service
	gateway *provider.CardGateway
}

// NewCardHandler constructs a CardHandler. The gateway may be nil when
// callback signature checks are not configured.
func NewCardHandler(svc *card.Service, gateway *provider.CardGateway) *CardHandler {
	return &CardHandler{svc: svc, gateway: gateway}
}

// chargeRequest defines the request body for a card submission.
type chargeRequest struct {
	Telco  string `json:"telco"`
	Code   string `json:"code"`
	Serial string `json:"serial"`
	Amount int64  `json:"amount"`
}

// Charge validates and submits a card. Coins arrive later via callback.
func (h *CardHandler) Charge(c *gin.Context) {
	var body chargeRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	tx, errSubmit := h.svc.Submit(c.Request.Context(), getUserID(c), body.Telco, body.Code, body.Serial, body.Amount)
	if errSubmit != nil {
		if errors.Is(errSubmit, card.ErrValidation) {
			c.JSON(http.StatusBadRequest, gin.H{"error": errSubmit.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "submit failed"})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{
		"request_id": tx.RequestID,
		"status":     tx.Status,
	})
}

// callbackRequest defines the gateway callback body.
type callbackRequest struct {
	RequestID string `json:"request_id" form:"request_id"`
	Status    int    `json:"status" form:"status"`
	Value     int64  `json:"value" form:"value"`
	Message   string `json:"message" form:"message"`
	Code      string `json:"code" form:"code"`
	Serial    string `json:"serial" form:"serial"`
	Sign      string `json:"sign" form:"sign"`
}

// Callback settles a pending card transaction. Replayed deliveries are
// acknowledged without crediting twice.
func (h *CardHandler) Callback(c *gin.Context) {
	var body callbackRequest
	if errBind := c.ShouldBind(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	if body.RequestID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing request_id"})
		return
	}
	if h.gateway != nil && !h.gateway.VerifyCallbackSign(body.Code, body.Serial, body.Sign) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "bad signature"})
		return
	}

	errHandle := h.svc.HandleCallback(c.Request.Context(), card.CallbackInput{
		RequestID: body.RequestID,
		Status:    body.Status,
		Value:     body.Value,
		Message:   body.Message,
	})
	if errHandle != nil {
		if errors.Is(errHandle, card.ErrUnknownRequest) {
			c.JSON(http.StatusNotFound, gin.H{"error": "unknown request id"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "callback failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// History returns the user's card transactions.
func (h *CardHandler) History(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	rows, errHistory := h.svc.History(c.Request.Context(), getUserID(c), limit)
	if errHistory != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}

	out := make([]gin.H, 0, len(rows))
	for _, tx := range rows {
		out = append(out, gin.H{
			"request_id":     tx.RequestID,
			"telco":          tx.Telco,
			"declared_value": tx.DeclaredValue,
			"resolved_value": tx.ResolvedValue,
			"coins_credited": tx.CoinsCredited,
			"status":         tx.Status,
			"message":        tx.Message,
			"created_at":     tx.CreatedAt,
			"settled_at":     tx.SettledAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"transactions": out})
}
