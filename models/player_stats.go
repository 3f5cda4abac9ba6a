package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PlayerStats tracks lifetime counters for each user (denormalized for performance).
// Rows are only touched when an admin verifies a match result.
type PlayerStats struct {
	UserID        string          `gorm:"primaryKey;type:varchar(64)" json:"user_id"`
	MatchesPlayed int64           `json:"matches_played" gorm:"default:0"`
	TotalKills    int64           `json:"total_kills" gorm:"default:0"`
	Wins          int64           `json:"wins" gorm:"default:0"`
	TotalWinnings decimal.Decimal `json:"total_winnings" gorm:"type:numeric(14,2);not null;default:0"`
	LastWinAt     *time.Time      `json:"last_win_at,omitempty"`

	Timestamps
}
