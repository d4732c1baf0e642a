package handlers

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/kiemxuonline/kiemxu/internal/config"
	dbutil "github.com/kiemxuonline/kiemxu/internal/db"
	"github.com/kiemxuonline/kiemxu/internal/models"
	"github.com/kiemxuonline/kiemxu/internal/security"
)

// AuthHandler handles user authentication endpoints.
type AuthHandler struct {
	db     *gorm.DB
	jwtCfg config.JWTConfig
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(db *gorm.DB, jwtCfg config.JWTConfig) *AuthHandler {
	return &AuthHandler{db: db, jwtCfg: jwtCfg}
}

// newReferralCode returns a random 8-character uppercase hex code.
func newReferralCode() (string, error) {
	buf := make([]byte, 4)
	if _, errRead := rand.Read(buf); errRead != nil {
		return "", errRead
	}
	return strings.ToUpper(hex.EncodeToString(buf)), nil
}

// registerRequest defines the request body for user registration.
type registerRequest struct {
	Username     string `json:"username"`
	Email        string `json:"email"`
	Password     string `json:"password"`
	ReferralCode string `json:"referral_code"`
}

// Register creates a new user account, optionally attached to a referrer.
func (h *AuthHandler) Register(c *gin.Context) {
	var body registerRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	username := strings.TrimSpace(body.Username)
	if len(username) < 3 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username too short"})
		return
	}
	password := strings.TrimSpace(body.Password)
	if len(password) < 6 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "password too short"})
		return
	}

	var referrerID *uint64
	if code := strings.TrimSpace(body.ReferralCode); code != "" {
		var referrer models.User
		if errFind := h.db.WithContext(c.Request.Context()).
			Where("referral_code = ?", code).
			First(&referrer).Error; errFind != nil {
			if errors.Is(errFind, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusBadRequest, gin.H{"error": "unknown referral code"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
			return
		}
		referrerID = &referrer.ID
	}

	hash, errHash := security.HashPassword(password)
	if errHash != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "hash password failed"})
		return
	}

	// The unique index on username is the real duplicate guard; retry only
	// covers referral code collisions.
	for attempt := 0; attempt < 3; attempt++ {
		code, errCode := newReferralCode()
		if errCode != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "generate referral code failed"})
			return
		}
		user := models.User{
			Username:     username,
			Email:        strings.TrimSpace(body.Email),
			Password:     hash,
			Role:         models.RoleUser,
			ReferralCode: code,
			ReferredByID: referrerID,
			IP:           c.ClientIP(),
		}
		errCreate := h.db.WithContext(c.Request.Context()).Create(&user).Error
		if errCreate == nil {
			c.JSON(http.StatusCreated, gin.H{
				"id":            user.ID,
				"username":      user.Username,
				"referral_code": user.ReferralCode,
			})
			return
		}
		if dbutil.IsDuplicateKeyError(errCreate) {
			var count int64
			h.db.WithContext(c.Request.Context()).Model(&models.User{}).
				Where("username = ?", username).
				Count(&count)
			if count > 0 {
				c.JSON(http.StatusConflict, gin.H{"error": "username already exists"})
				return
			}
			continue
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create user failed"})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": "create user failed"})
}

// loginRequest defines the request body for login.
type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login authenticates a user and issues a JWT.
func (h *AuthHandler) Login(c *gin.Context) {
	var body loginRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	username := strings.TrimSpace(body.Username)
	password := strings.TrimSpace(body.Password)
	if username == "" || password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing username or password"})
		return
	}

	var user models.User
	if errFind := h.db.WithContext(c.Request.Context()).Where("username = ?", username).First(&user).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	if !security.CheckPassword(user.Password, password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}
	if user.Role == models.RoleBanned {
		c.JSON(http.StatusForbidden, gin.H{"error": "user banned"})
		return
	}

	token, errToken := security.GenerateToken(h.jwtCfg.Secret, user.ID, user.Username, user.Role, h.jwtCfg.UserExpiry)
	if errToken != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "sign token failed"})
		return
	}

	h.db.WithContext(c.Request.Context()).Model(&user).Update("ip", c.ClientIP())

	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"user": gin.H{
			"id":       user.ID,
			"username": user.Username,
			"coins":    user.Coins,
		},
	})
}
