package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/kiemxuonline/kiemxu/internal/market"
)

// AccountHandler serves the account marketplace.
type AccountHandler struct {
	svc *market.Service
}

// NewAccountHandler constructs an AccountHandler.
func NewAccountHandler(svc *market.Service) *AccountHandler {
	return &AccountHandler{svc: svc}
}

// List returns available listings.
func (h *AccountHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if offset < 0 {
		offset = 0
	}

	rows, total, errList := h.svc.List(c.Request.Context(), c.Query("sale_type"), limit, offset)
	if errList != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}

	out := make([]gin.H, 0, len(rows))
	for _, row := range rows {
		out = append(out, gin.H{
			"id":              row.ID,
			"title":           row.Title,
			"description":     row.Description,
			"images":          row.Images,
			"sale_type":       row.SaleType,
			"price":           row.Price,
			"current_bid":     row.CurrentBid,
			"auction_ends_at": row.AuctionEndsAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"accounts": out, "total": total})
}

// Get returns one listing; credentials only for the buyer or seller.
func (h *AccountHandler) Get(c *gin.Context) {
	accountID, errParse := strconv.ParseUint(c.Param("id"), 10, 64)
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid account id"})
		return
	}

	row, errGet := h.svc.Get(c.Request.Context(), getUserID(c), accountID)
	if errGet != nil {
		if errors.Is(errGet, market.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "account not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, row)
}

// Buy purchases a fixed-price listing.
func (h *AccountHandler) Buy(c *gin.Context) {
	accountID, errParse := strconv.ParseUint(c.Param("id"), 10, 64)
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid account id"})
		return
	}

	bought, errBuy := h.svc.Buy(c.Request.Context(), getUserID(c), accountID)
	if errBuy != nil {
		switch {
		case errors.Is(errBuy, market.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "account not found"})
		case errors.Is(errBuy, market.ErrNotAvailable):
			c.JSON(http.StatusConflict, gin.H{"error": "account no longer available"})
		case errors.Is(errBuy, market.ErrNotAuction):
			c.JSON(http.StatusBadRequest, gin.H{"error": "listing is an auction"})
		case errors.Is(errBuy, market.ErrOwnListing):
			c.JSON(http.StatusBadRequest, gin.H{"error": "cannot buy own listing"})
		case errors.Is(errBuy, market.ErrInsufficientBalance):
			c.JSON(http.StatusConflict, gin.H{"error": "insufficient balance"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "buy failed"})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":          bought.ID,
		"status":      bought.Status,
		"credentials": bought.Credentials,
	})
}

// bidRequest defines the request body for an auction bid.
type bidRequest struct {
	Amount int64 `json:"amount"`
}

// Bid places an auction bid.
func (h *AccountHandler) Bid(c *gin.Context) {
	accountID, errParse := strconv.ParseUint(c.Param("id"), 10, 64)
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid account id"})
		return
	}
	var body bidRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	errBid := h.svc.Bid(c.Request.Context(), getUserID(c), accountID, body.Amount)
	if errBid != nil {
		switch {
		case errors.Is(errBid, market.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "account not found"})
		case errors.Is(errBid, market.ErrNotAvailable), errors.Is(errBid, market.ErrAuctionClosed):
			c.JSON(http.StatusConflict, gin.H{"error": "auction closed"})
		case errors.Is(errBid, market.ErrNotAuction):
			c.JSON(http.StatusBadRequest, gin.H{"error": "listing is not an auction"})
		case errors.Is(errBid, market.ErrOwnListing):
			c.JSON(http.StatusBadRequest, gin.H{"error": "cannot bid on own listing"})
		case errors.Is(errBid, market.ErrBidTooLow):
			c.JSON(http.StatusConflict, gin.H{"error": "bid too low"})
		case errors.Is(errBid, market.ErrInsufficientBalance):
			c.JSON(http.StatusConflict, gin.H{"error": "insufficient balance"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "bid failed"})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
