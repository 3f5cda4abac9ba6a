package services

import (
	"context"
	"errors"
	"time"

	"netwin-backend/apperrors"
	"netwin-backend/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type StatsService struct {
	DB *gorm.DB
}

func NewStatsService(db *gorm.DB) *StatsService {
	return &StatsService{DB: db}
}

// ensureStatsRecord makes sure a PlayerStats row exists (idempotent).
func ensureStatsRecord(tx *gorm.DB, userID string) error {
	return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&models.PlayerStats{
		UserID:        userID,
		TotalWinnings: decimal.Zero,
	}).Error
}

// recordVerifiedResult folds one verified match into the user's lifetime
// counters. Must run inside the verifying transaction.
func recordVerifiedResult(tx *gorm.DB, userID string, kills, position int, winnings decimal.Decimal, at time.Time) error {
	if err := ensureStatsRecord(tx, userID); err != nil {
		return err
	}
	var stats models.PlayerStats
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&stats, "user_id = ?", userID).Error; err != nil {
		return err
	}

	stats.MatchesPlayed++
	stats.TotalKills += int64(kills)
	stats.TotalWinnings = stats.TotalWinnings.Add(winnings)
	if position == 1 {
		stats.Wins++
		stats.LastWinAt = &at
	}
	return tx.Save(&stats).Error
}

// Get returns the user's lifetime stats; users without verified results get
// a zero record.
func (s *StatsService) Get(ctx context.Context, userID string) (*models.PlayerStats, error) {
	var stats models.PlayerStats
	err := s.DB.WithContext(ctx).First(&stats, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &models.PlayerStats{UserID: userID, TotalWinnings: decimal.Zero}, nil
	}
	if err != nil {
		return nil, apperrors.Database(err, "failed to fetch stats")
	}
	return &stats, nil
}
