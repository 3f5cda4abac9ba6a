package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	appconfig "netwin-backend/config"
	"netwin-backend/middleware"
	"netwin-backend/models"
	"netwin-backend/services"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type memStore struct{}

func (memStore) Put(_ context.Context, key string, _ []byte, _ string) (string, error) {
	return "https://cdn.test/" + key, nil
}

type testEnv struct {
	app    *fiber.App
	db     *gorm.DB
	issuer *middleware.TokenIssuer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(models.All()...))

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	store := memStore{}
	events := services.NoopPublisher{}
	notifier := services.NewNotificationService(db)
	users := services.NewUserService(db)
	svc := Services{
		Users:         users,
		Tournaments:   services.NewTournamentService(db, store, users, notifier, events),
		Wallet:        services.NewWalletService(db, store, notifier, events),
		KYC:           services.NewKYCService(db, store, notifier, events),
		Notifications: notifier,
		Support:       services.NewSupportService(db, notifier),
		Stats:         services.NewStatsService(db),
		OTP:           services.NewOTPService(services.NewOTPStore(rdb), services.LogMailer{}, users),
		Sweeper:       services.NewStatusSweeper(db, events),
	}

	issuer := middleware.NewTokenIssuer(appconfig.AuthConfig{JWTSecret: "test-secret", Issuer: "netwin", TokenTTL: time.Hour})
	app := NewApp(appconfig.ServerConfig{AllowedOrigins: "http://localhost:3000", ServiceToken: "svc"}, issuer, svc)
	return &testEnv{app: app, db: db, issuer: issuer}
}

func (e *testEnv) token(t *testing.T, userID string, roles ...string) string {
	t.Helper()
	tok, err := e.issuer.Issue(userID, userID+"@netwin.test", roles)
	require.NoError(t, err)
	return tok
}

func (e *testEnv) do(t *testing.T, method, path, token string, body interface{}) (int, map[string]interface{}) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	out := map[string]interface{}{}
	raw, _ := io.ReadAll(resp.Body)
	_ = json.Unmarshal(raw, &out)
	return resp.StatusCode, out
}

func (e *testEnv) seedUser(t *testing.T, id, balance string) {
	t.Helper()
	require.NoError(t, e.db.Create(&models.User{
		ID: id, Email: id + "@netwin.test", Username: id, Currency: "INR",
		WalletBalance: decimal.RequireFromString(balance), KYCStatus: models.KYCNotSubmitted, Role: models.RoleUser,
	}).Error)
}

func (e *testEnv) seedTournament(t *testing.T, fee int64) string {
	t.Helper()
	tr := &models.Tournament{
		Title: "Night Cup", Game: "BGMI", Mode: models.ModeSolo, StartTime: time.Now().UTC().Add(6 * time.Hour),
		EntryFee: decimal.NewFromInt(fee), Currency: "INR", MaxPlayers: 100, Status: models.StatusUpcoming,
	}
	require.NoError(t, e.db.Create(tr).Error)
	return tr.ID
}

func TestHealthAndMetrics(t *testing.T) {
	env := newTestEnv(t)
	status, body := env.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["status"])

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	resp, err := env.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestSecuredRoutesRequireToken(t *testing.T) {
	env := newTestEnv(t)
	status, body := env.do(t, http.MethodGet, "/api/users/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "UNAUTHORIZED", body["code"])
}

func TestJoinEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "rich", "100")
	env.seedUser(t, "poor", "10")
	tid := env.seedTournament(t, 50)

	status, body := env.do(t, http.MethodPost, "/api/tournaments/"+tid+"/join", env.token(t, "rich", "user"), map[string]interface{}{
		"team_name": "Rich Squad",
	})
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "50", body["wallet_balance"])

	status, body = env.do(t, http.MethodPost, "/api/tournaments/"+tid+"/join", env.token(t, "rich", "user"), nil)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "Already registered for this tournament", body["error"])

	status, body = env.do(t, http.MethodPost, "/api/tournaments/"+tid+"/join", env.token(t, "poor", "user"), nil)
	assert.Equal(t, http.StatusPaymentRequired, status)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "Insufficient wallet balance", body["error"])

	status, body = env.do(t, http.MethodPost, "/api/tournaments/nope/join", env.token(t, "poor", "user"), nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "Tournament not found", body["error"])

	status, body = env.do(t, http.MethodGet, "/api/users/me/matches", env.token(t, "rich", "user"), nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Len(t, body["matches"], 1)
}

func TestWalletValidation(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "u1", "0")

	status, body := env.do(t, http.MethodPost, "/api/wallet/deposits", env.token(t, "u1", "user"), map[string]interface{}{
		"amount": "500",
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "INVALID_INPUT", body["code"])

	status, _ = env.do(t, http.MethodPost, "/api/wallet/deposits", env.token(t, "u1", "user"), map[string]interface{}{
		"amount": "500", "utr": "UTR-1",
	})
	assert.Equal(t, http.StatusCreated, status)

	status, body = env.do(t, http.MethodGet, "/api/wallet/balance", env.token(t, "u1", "user"), nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "0", body["balance"])
}

func TestTransactionsVisibility(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "u1", "0")
	env.seedUser(t, "u2", "0")

	status, _ := env.do(t, http.MethodGet, "/api/users/u2/transactions", env.token(t, "u1", "user"), nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = env.do(t, http.MethodGet, "/api/users/me/transactions", env.token(t, "u1", "user"), nil)
	assert.Equal(t, http.StatusOK, status)

	status, _ = env.do(t, http.MethodGet, "/api/users/u2/transactions", env.token(t, "admin", "user", "admin"), nil)
	assert.Equal(t, http.StatusOK, status)
}

func TestAdminSurface(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "u1", "0")

	status, _ := env.do(t, http.MethodGet, "/api/admin/deposits", env.token(t, "u1", "user"), nil)
	assert.Equal(t, http.StatusForbidden, status)

	admin := env.token(t, "admin-1", "user", "admin")
	status, body := env.do(t, http.MethodPost, "/api/admin/tournaments", admin, map[string]interface{}{
		"title":       "Admin Cup",
		"mode":        "duo",
		"start_time":  time.Now().UTC().Add(48 * time.Hour).Format(time.RFC3339),
		"entry_fee":   "20",
		"max_players": 50,
	})
	require.Equal(t, http.StatusCreated, status, body)
	tid, _ := body["id"].(string)
	require.NotEmpty(t, tid)
	_, hasRoom := body["room_password"]
	assert.False(t, hasRoom)

	status, body = env.do(t, http.MethodPatch, "/api/admin/tournaments/"+tid+"/status", admin, map[string]string{"status": "live"})
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "live", body["status"])

	status, body = env.do(t, http.MethodPost, "/api/admin/tournaments/"+tid+"/cancel", admin, map[string]string{"reason": "test"})
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(0), body["refunds"])
}

func TestInternalStatusSweep(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/internal/status-sweep", nil)
	resp, err := env.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req = httptest.NewRequest(http.MethodPost, "/internal/status-sweep", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer svc")
	resp, err = env.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestOTPEndpoints(t *testing.T) {
	env := newTestEnv(t)

	status, _ := env.do(t, http.MethodPost, "/api/auth/send-otp", "", map[string]string{"email": "not-an-email"})
	assert.Equal(t, http.StatusBadRequest, status)

	status, body := env.do(t, http.MethodPost, "/api/auth/send-otp", "", map[string]string{"email": "player@netwin.test"})
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["success"])

	status, _ = env.do(t, http.MethodPost, "/api/auth/verify-otp", "", map[string]string{"email": "player@netwin.test", "otp": "12ab56"})
	assert.Equal(t, http.StatusBadRequest, status)
}
