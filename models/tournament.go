package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type TournamentStatus string

const (
	StatusUpcoming  TournamentStatus = "upcoming"
	StatusLive      TournamentStatus = "live"
	StatusCompleted TournamentStatus = "completed"
	StatusCancelled TournamentStatus = "cancelled"
)

func (s TournamentStatus) Valid() bool {
	switch s {
	case StatusUpcoming, StatusLive, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

const (
	ModeSolo  = "solo"
	ModeDuo   = "duo"
	ModeSquad = "squad"
)

// TeamSize returns the number of players a single registration occupies.
func TeamSize(mode string) int {
	switch mode {
	case ModeDuo:
		return 2
	case ModeSquad:
		return 4
	default:
		return 1
	}
}

// Tournament is a scheduled custom-room match players pay to enter.
type Tournament struct {
	Base
	Title         string           `json:"title" gorm:"not null"`
	Slug          string           `json:"slug" gorm:"index"`
	Game          string           `json:"game" gorm:"not null;default:'BGMI'"`
	Mode          string           `json:"mode" gorm:"type:varchar(8);not null;default:'solo'"`
	Map           string           `json:"map"`
	Description   string           `json:"description"`
	Rules         string           `json:"rules" gorm:"type:text"`
	BannerURL     string           `json:"banner_url"`
	StartTime     time.Time        `json:"start_time" gorm:"not null;index"`
	EntryFee      decimal.Decimal  `json:"entry_fee" gorm:"type:numeric(14,2);not null;default:0"`
	PrizePool     decimal.Decimal  `json:"prize_pool" gorm:"type:numeric(14,2);not null;default:0"`
	PerKillReward decimal.Decimal  `json:"per_kill_reward" gorm:"type:numeric(14,2);not null;default:0"`
	Currency      string           `json:"currency" gorm:"type:varchar(3);not null;default:'INR'"`
	MaxPlayers    int              `json:"max_players" gorm:"not null;default:100"`
	// Counters are only incremented inside the join transaction.
	RegisteredPlayers int              `json:"registered_players" gorm:"not null;default:0"`
	RegisteredTeams   int              `json:"registered_teams" gorm:"not null;default:0"`
	Status            TournamentStatus `json:"status" gorm:"type:varchar(16);not null;default:'upcoming';index"`
	StatusManual      bool             `json:"status_manual" gorm:"not null;default:false"`
	RoomID            string           `json:"-"`
	RoomPassword      string           `json:"-"`
}

// Teammate is a squad member registered alongside the paying user.
type Teammate struct {
	Name   string `json:"name" validate:"required,max=64"`
	GameID string `json:"game_id" validate:"required,max=64"`
}

type ResultStatus string

const (
	ResultNone     ResultStatus = "none"
	ResultPending  ResultStatus = "pending"
	ResultVerified ResultStatus = "verified"
	ResultRejected ResultStatus = "rejected"
)

// TournamentRegistration links a user to a tournament. Result fields are written
// at join time and again on result submission.
type TournamentRegistration struct {
	Base
	TournamentID      string                        `json:"tournament_id" gorm:"not null;uniqueIndex:idx_registration_tournament_user"`
	UserID            string                        `json:"user_id" gorm:"not null;uniqueIndex:idx_registration_tournament_user;index"`
	Username          string                        `json:"username"`
	GameID            string                        `json:"game_id"`
	TeamName          string                        `json:"team_name"`
	Teammates         datatypes.JSONSlice[Teammate] `json:"teammates"`
	EntryFeePaid      decimal.Decimal               `json:"entry_fee_paid" gorm:"type:numeric(14,2);not null;default:0"`
	Kills             int                           `json:"kills" gorm:"not null;default:0"`
	Position          int                           `json:"position" gorm:"not null;default:0"`
	ResultImageURL    string                        `json:"result_image_url"`
	ResultStatus      ResultStatus                  `json:"result_status" gorm:"type:varchar(16);not null;default:'none'"`
	Winnings          decimal.Decimal               `json:"winnings" gorm:"type:numeric(14,2);not null;default:0"`
	ResultSubmittedAt *time.Time                    `json:"result_submitted_at,omitempty"`
	ResultNote        string                        `json:"result_note,omitempty"`
}

// UserMatch is the denormalized per-user view of a joined tournament.
type UserMatch struct {
	Base
	UserID         string           `json:"user_id" gorm:"not null;index"`
	TournamentID   string           `json:"tournament_id" gorm:"not null;index"`
	RegistrationID string           `json:"registration_id" gorm:"not null"`
	Title          string           `json:"title"`
	Game           string           `json:"game"`
	Mode           string           `json:"mode"`
	StartTime      time.Time        `json:"start_time"`
	EntryFee       decimal.Decimal  `json:"entry_fee" gorm:"type:numeric(14,2);not null;default:0"`
	Status         TournamentStatus `json:"status" gorm:"type:varchar(16)"`
	Kills          int              `json:"kills"`
	Position       int              `json:"position"`
	Winnings       decimal.Decimal  `json:"winnings" gorm:"type:numeric(14,2);not null;default:0"`
	ResultStatus   ResultStatus     `json:"result_status" gorm:"type:varchar(16);not null;default:'none'"`
}
