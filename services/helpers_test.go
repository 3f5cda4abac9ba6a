package services

import (
	"context"
	"encoding/base64"
	"fmt"
	"sync"
	"testing"
	"time"

	"netwin-backend/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// pngBlob is a base64 payload that sniffs as image/png.
var pngBlob = base64.StdEncoding.EncodeToString([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"))

// testNow is a fixed UTC instant with whole seconds so SQLite text
// timestamps compare correctly.
var testNow = time.Date(2026, 3, 14, 18, 0, 0, 0, time.UTC)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(models.All()...))
	return db
}

type fakeStore struct {
	mu   sync.Mutex
	keys []string
	err  error
}

func (f *fakeStore) Put(_ context.Context, key string, _ []byte, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.keys = append(f.keys, key)
	return "https://cdn.test/" + key, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []string
}

func (p *recordingPublisher) Publish(_ context.Context, event string, _ interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) Events() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.events...)
}

func seedUser(t *testing.T, db *gorm.DB, balance string, mutate ...func(*models.User)) *models.User {
	t.Helper()
	id := uuid.NewString()
	u := &models.User{
		ID:            id,
		Email:         id[:8] + "@netwin.test",
		Username:      "player_" + id[:8],
		GameID:        "5" + id[:8],
		Currency:      "INR",
		WalletBalance: decimal.RequireFromString(balance),
		KYCStatus:     models.KYCNotSubmitted,
		Role:          models.RoleUser,
	}
	for _, m := range mutate {
		m(u)
	}
	require.NoError(t, db.Create(u).Error)
	return u
}

func seedTournament(t *testing.T, db *gorm.DB, mutate ...func(*models.Tournament)) *models.Tournament {
	t.Helper()
	tr := &models.Tournament{
		Title:         "Erangel Evening Cup",
		Game:          "BGMI",
		Mode:          models.ModeSolo,
		StartTime:     testNow.Add(3 * time.Hour),
		EntryFee:      decimal.NewFromInt(50),
		PrizePool:     decimal.NewFromInt(1000),
		PerKillReward: decimal.NewFromInt(10),
		Currency:      "INR",
		MaxPlayers:    100,
		Status:        models.StatusUpcoming,
		RoomID:        "room-42",
		RoomPassword:  "hunter2",
	}
	for _, m := range mutate {
		m(tr)
	}
	require.NoError(t, db.Create(tr).Error)
	return tr
}

func newTournamentService(db *gorm.DB) (*TournamentService, *fakeStore, *recordingPublisher) {
	store := &fakeStore{}
	events := &recordingPublisher{}
	svc := NewTournamentService(db, store, NewUserService(db), NewNotificationService(db), events)
	svc.Now = func() time.Time { return testNow }
	return svc, store, events
}

func reloadUser(t *testing.T, db *gorm.DB, id string) models.User {
	t.Helper()
	var u models.User
	require.NoError(t, db.First(&u, "id = ?", id).Error)
	return u
}

func reloadTournament(t *testing.T, db *gorm.DB, id string) models.Tournament {
	t.Helper()
	var tr models.Tournament
	require.NoError(t, db.First(&tr, "id = ?", id).Error)
	return tr
}

func count(t *testing.T, db *gorm.DB, model interface{}, query string, args ...interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(model).Where(query, args...).Count(&n).Error)
	return n
}
