package admin

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/kiemxuonline/kiemxu/internal/config"
	dbpkg "github.com/kiemxuonline/kiemxu/internal/db"
	"github.com/kiemxuonline/kiemxu/internal/models"
	"github.com/kiemxuonline/kiemxu/internal/security"
	"github.com/kiemxuonline/kiemxu/internal/settings"
)

var testJWT = config.JWTConfig{
	Secret:      "admin-test-secret",
	UserExpiry:  time.Hour,
	AdminExpiry: time.Hour,
}

func setupAdminRouter(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	settings.StoreDBConfig(time.Now(), nil)

	dsn := fmt.Sprintf("file:admin_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, errOpen := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if errOpen != nil {
		t.Fatalf("open db: %v", errOpen)
	}
	if errMigrate := dbpkg.Migrate(db); errMigrate != nil {
		t.Fatalf("migrate db: %v", errMigrate)
	}

	r := gin.New()
	RegisterAdminRoutes(r, db, testJWT, nil)
	return r, db
}

func createAdmin(t *testing.T, db *gorm.DB, username string) *models.Admin {
	t.Helper()
	hash, errHash := security.HashPassword("admin-pass")
	if errHash != nil {
		t.Fatalf("hash password: %v", errHash)
	}
	admin := models.Admin{Username: username, Password: hash, Active: true, IsSuperAdmin: true}
	if errCreate := db.Create(&admin).Error; errCreate != nil {
		t.Fatalf("create admin: %v", errCreate)
	}
	return &admin
}

func doJSON(t *testing.T, r *gin.Engine, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if errEncode := json.NewEncoder(&buf).Encode(body); errEncode != nil {
			t.Fatalf("encode body: %v", errEncode)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if errDecode := json.Unmarshal(w.Body.Bytes(), &out); errDecode != nil {
		t.Fatalf("decode response: %v (%s)", errDecode, w.Body.String())
	}
	return out
}

func adminToken(t *testing.T, r *gin.Engine) string {
	t.Helper()
	w := doJSON(t, r, http.MethodPost, "/api/admin/login", "", gin.H{
		"username": "root",
		"password": "admin-pass",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("admin login: %d %s", w.Code, w.Body.String())
	}
	token, _ := decodeBody(t, w)["token"].(string)
	if token == "" {
		t.Fatalf("no token in login response")
	}
	return token
}

func TestAdminLoginAndMe(t *testing.T) {
	r, db := setupAdminRouter(t)
	createAdmin(t, db, "root")

	token := adminToken(t, r)

	w := doJSON(t, r, http.MethodGet, "/api/admin/me", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("me: %d %s", w.Code, w.Body.String())
	}
	if decodeBody(t, w)["username"] != "root" {
		t.Fatalf("unexpected admin identity")
	}

	w = doJSON(t, r, http.MethodPost, "/api/admin/login", "", gin.H{"username": "root", "password": "wrong"})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("bad login = %d, want 401", w.Code)
	}

	// A user token must not open admin routes.
	userToken, errToken := security.GenerateToken(testJWT.Secret, 1, "someone", models.RoleUser, time.Hour)
	if errToken != nil {
		t.Fatalf("sign user token: %v", errToken)
	}
	w = doJSON(t, r, http.MethodGet, "/api/admin/me", userToken, nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("user token on admin route = %d, want 401", w.Code)
	}
}

func TestAdminLoginRequiresTOTPWhenEnabled(t *testing.T) {
	r, db := setupAdminRouter(t)
	admin := createAdmin(t, db, "root")
	db.Model(admin).Update("totp_secret", "JBSWY3DPEHPK3PXP")

	w := doJSON(t, r, http.MethodPost, "/api/admin/login", "", gin.H{
		"username": "root",
		"password": "admin-pass",
	})
	if w.Code != http.StatusForbidden {
		t.Fatalf("login without totp = %d, want 403", w.Code)
	}

	w = doJSON(t, r, http.MethodPost, "/api/admin/login", "", gin.H{
		"username": "root",
		"password": "admin-pass",
		"code":     "000000",
	})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("login with wrong totp = %d, want 401", w.Code)
	}
}

func TestAdminAdjustCoinsAndBan(t *testing.T) {
	r, db := setupAdminRouter(t)
	createAdmin(t, db, "root")
	token := adminToken(t, r)

	user := models.User{Username: "target", Password: "x", Coins: 100, Role: models.RoleUser, ReferralCode: "T1"}
	db.Create(&user)

	w := doJSON(t, r, http.MethodPost, fmt.Sprintf("/api/admin/users/%d/adjust-coins", user.ID), token, gin.H{
		"amount": 400, "note": "bonus",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("adjust: %d %s", w.Code, w.Body.String())
	}
	if decodeBody(t, w)["coins"].(float64) != 500 {
		t.Fatalf("coins after credit mismatch")
	}

	// Debit beyond the balance is refused.
	w = doJSON(t, r, http.MethodPost, fmt.Sprintf("/api/admin/users/%d/adjust-coins", user.ID), token, gin.H{
		"amount": -900,
	})
	if w.Code != http.StatusConflict {
		t.Fatalf("overdraw adjust = %d, want 409", w.Code)
	}

	w = doJSON(t, r, http.MethodPost, fmt.Sprintf("/api/admin/users/%d/ban", user.ID), token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("ban: %d", w.Code)
	}
	var row models.User
	db.First(&row, user.ID)
	if row.Role != models.RoleBanned {
		t.Fatalf("role = %s, want banned", row.Role)
	}

	var ledgerCount int64
	db.Model(&models.CoinLedger{}).Where("user_id = ?", user.ID).Count(&ledgerCount)
	if ledgerCount != 1 {
		t.Fatalf("ledger rows = %d, want 1", ledgerCount)
	}
}

func TestAdminMissionCRUD(t *testing.T) {
	r, db := setupAdminRouter(t)
	createAdmin(t, db, "root")
	token := adminToken(t, r)

	w := doJSON(t, r, http.MethodPost, "/api/admin/missions", token, gin.H{
		"name":          "Theo dõi kênh",
		"target_url":    "https://example.com/ch",
		"reward":        150,
		"requires_code": true,
		"code":          "KENH99",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create mission: %d %s", w.Code, w.Body.String())
	}
	missionID := uint64(decodeBody(t, w)["ID"].(float64))

	// No shortener configured: short link falls back to the target.
	var m models.Mission
	db.First(&m, missionID)
	if m.ShortURL != "https://example.com/ch" {
		t.Fatalf("short_url = %s", m.ShortURL)
	}

	w = doJSON(t, r, http.MethodPut, fmt.Sprintf("/api/admin/missions/%d", missionID), token, gin.H{
		"name":       "Theo dõi kênh",
		"target_url": "https://example.com/ch",
		"reward":     175,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("update mission: %d %s", w.Code, w.Body.String())
	}
	db.First(&m, missionID)
	if m.Reward != 175 {
		t.Fatalf("reward = %d, want 175", m.Reward)
	}

	w = doJSON(t, r, http.MethodDelete, fmt.Sprintf("/api/admin/missions/%d", missionID), token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("delete mission: %d", w.Code)
	}
	db.First(&m, missionID)
	if m.IsActive {
		t.Fatalf("mission should be deactivated")
	}

	// Rejects a reward-less mission.
	w = doJSON(t, r, http.MethodPost, "/api/admin/missions", token, gin.H{
		"name":       "x",
		"target_url": "https://example.com",
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("invalid mission = %d, want 400", w.Code)
	}
}

func TestAdminSettingsUpdateTakesEffect(t *testing.T) {
	r, db := setupAdminRouter(t)
	createAdmin(t, db, "root")
	token := adminToken(t, r)

	w := doJSON(t, r, http.MethodPut, "/api/admin/settings", token, gin.H{
		settings.CheckinRewardKey:     75,
		settings.CommissionPercentKey: 10,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("update settings: %d %s", w.Code, w.Body.String())
	}

	if got := settings.CheckinReward(); got != 75 {
		t.Fatalf("checkin reward = %d, want 75", got)
	}
	if got := settings.CommissionPercent(); got != 10 {
		t.Fatalf("commission = %d, want 10", got)
	}

	var count int64
	db.Model(&models.Setting{}).Count(&count)
	if count != 2 {
		t.Fatalf("settings rows = %d, want 2", count)
	}

	w = doJSON(t, r, http.MethodGet, "/api/admin/settings", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list settings: %d", w.Code)
	}
}

func TestAdminDashboard(t *testing.T) {
	r, db := setupAdminRouter(t)
	createAdmin(t, db, "root")
	token := adminToken(t, r)

	db.Create(&models.User{Username: "u1", Password: "x", Coins: 250, Role: models.RoleUser, ReferralCode: "D1"})

	w := doJSON(t, r, http.MethodGet, "/api/admin/dashboard", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("dashboard: %d %s", w.Code, w.Body.String())
	}
	users := decodeBody(t, w)["users"].(map[string]any)
	if users["total"].(float64) != 1 {
		t.Fatalf("total users = %v", users["total"])
	}
	if users["total_coins"].(float64) != 250 {
		t.Fatalf("total coins = %v", users["total_coins"])
	}
}
