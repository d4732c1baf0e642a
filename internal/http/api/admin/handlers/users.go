package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	dbutil "github.com/kiemxuonline/kiemxu/internal/db"
	"github.com/kiemxuonline/kiemxu/internal/models"
	"github.com/kiemxuonline/kiemxu/internal/wallet"
)

// UserHandler manages platform users from the admin panel.
type UserHandler struct {
	db *gorm.DB
}

// NewUserHandler constructs a UserHandler.
func NewUserHandler(db *gorm.DB) *UserHandler {
	return &UserHandler{db: db}
}

// List returns users with optional username search.
func (h *UserHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if offset < 0 {
		offset = 0
	}

	query := h.db.WithContext(c.Request.Context()).Model(&models.User{})
	if search := strings.TrimSpace(c.Query("search")); search != "" {
		pattern := dbutil.NormalizeLikePattern(h.db, "%"+search+"%")
		query = query.Where(dbutil.CaseInsensitiveLikeExpr(h.db, "username"), pattern)
	}

	var total int64
	if errCount := query.Count(&total).Error; errCount != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}

	var users []models.User
	if errFind := query.
		Order("id DESC").
		Limit(limit).
		Offset(offset).
		Find(&users).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}

	out := make([]gin.H, 0, len(users))
	for _, user := range users {
		out = append(out, gin.H{
			"id":             user.ID,
			"username":       user.Username,
			"email":          user.Email,
			"coins":          user.Coins,
			"role":           user.Role,
			"ip":             user.IP,
			"referral_code":  user.ReferralCode,
			"referred_by_id": user.ReferredByID,
			"created_at":     user.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"users": out, "total": total})
}

// Get returns one user with recent ledger entries.
func (h *UserHandler) Get(c *gin.Context) {
	userID, errParse := strconv.ParseUint(c.Param("id"), 10, 64)
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	var user models.User
	if errFind := h.db.WithContext(c.Request.Context()).First(&user, userID).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}

	var ledger []models.CoinLedger
	if errLedger := h.db.WithContext(c.Request.Context()).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Limit(50).
		Find(&ledger).Error; errLedger != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":             user.ID,
		"username":       user.Username,
		"email":          user.Email,
		"coins":          user.Coins,
		"role":           user.Role,
		"checkin_streak": user.CheckinStreak,
		"created_at":     user.CreatedAt,
		"ledger":         ledger,
	})
}

// adjustCoinsRequest defines the request body for a manual adjustment.
type adjustCoinsRequest struct {
	Amount int64  `json:"amount"`
	Note   string `json:"note"`
}

// AdjustCoins credits or debits a user's balance with a ledger trail.
func (h *UserHandler) AdjustCoins(c *gin.Context) {
	userID, errParse := strconv.ParseUint(c.Param("id"), 10, 64)
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}
	var body adjustCoinsRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if body.Amount == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "amount must be non-zero"})
		return
	}

	errTx := h.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		if body.Amount > 0 {
			return wallet.Credit(c.Request.Context(), tx, userID, body.Amount, models.LedgerAdminAdjust, getAdminID(c), body.Note)
		}
		return wallet.Debit(c.Request.Context(), tx, userID, -body.Amount, models.LedgerAdminAdjust, getAdminID(c), body.Note)
	})
	if errTx != nil {
		switch {
		case errors.Is(errTx, wallet.ErrUserNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		case errors.Is(errTx, wallet.ErrInsufficientBalance):
			c.JSON(http.StatusConflict, gin.H{"error": "insufficient balance"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "adjust failed"})
		}
		return
	}

	balance, errBalance := wallet.Balance(c.Request.Context(), h.db, userID)
	if errBalance != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"coins": balance})
}

// Ban locks a user out of coin-earning operations.
func (h *UserHandler) Ban(c *gin.Context) {
	h.setRole(c, models.RoleBanned)
}

// Unban restores a banned user.
func (h *UserHandler) Unban(c *gin.Context) {
	h.setRole(c, models.RoleUser)
}

// Delete removes a user and their activity rows. The coin ledger is kept
// for audit.
func (h *UserHandler) Delete(c *gin.Context) {
	userID, errParse := strconv.ParseUint(c.Param("id"), 10, 64)
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	errTx := h.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&models.User{}, userID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		if errStarts := tx.Where("user_id = ?", userID).Delete(&models.MissionStart{}).Error; errStarts != nil {
			return errStarts
		}
		return tx.Model(&models.User{}).
			Where("referred_by_id = ?", userID).
			Update("referred_by_id", nil).Error
	})
	if errTx != nil {
		if errors.Is(errTx, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *UserHandler) setRole(c *gin.Context, role string) {
	userID, errParse := strconv.ParseUint(c.Param("id"), 10, 64)
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	res := h.db.WithContext(c.Request.Context()).Model(&models.User{}).
		Where("id = ?", userID).
		Update("role", role)
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "role": role})
}
