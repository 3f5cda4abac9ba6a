package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"netwin-backend/apperrors"
	"netwin-backend/models"
	"netwin-backend/utils"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type JoinRequest struct {
	TeamName  string            `json:"team_name" validate:"omitempty,max=64"`
	Teammates []models.Teammate `json:"teammates" validate:"omitempty,max=3,dive"`
	GameID    string            `json:"game_id" validate:"omitempty,max=64"`
}

type JoinResult struct {
	Registration  models.TournamentRegistration `json:"registration"`
	Transaction   models.WalletTransaction      `json:"transaction"`
	Match         models.UserMatch              `json:"match"`
	WalletBalance decimal.Decimal               `json:"wallet_balance"`
}

// JoinTournament registers userID for a tournament and debits the entry fee.
// Every write happens in one transaction with the tournament and user rows
// locked, so either all records exist afterwards or none do.
func (s *TournamentService) JoinTournament(ctx context.Context, userID, tournamentID string, req JoinRequest) (*JoinResult, error) {
	now := s.now()
	var (
		result     JoinResult
		tournament models.Tournament
		user       models.User
	)

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&tournament, "id = ?", tournamentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTournamentNotFound
			}
			return err
		}
		if DeriveStatus(tournament, now) != models.StatusUpcoming {
			return ErrTournamentNotOpen
		}

		teamSize := models.TeamSize(tournament.Mode)
		if tournament.RegisteredPlayers+teamSize > tournament.MaxPlayers {
			return ErrTournamentFull
		}
		if len(req.Teammates) > teamSize-1 {
			return ErrTooManyTeammates
		}

		var existing int64
		if err := tx.Model(&models.TournamentRegistration{}).
			Where("tournament_id = ? AND user_id = ?", tournamentID, userID).
			Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return ErrAlreadyRegistered
		}

		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&user, "id = ?", userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return err
		}
		if user.Currency != "" && tournament.Currency != "" && user.Currency != tournament.Currency {
			return ErrCurrencyMismatch
		}
		if user.WalletBalance.LessThan(tournament.EntryFee) {
			return ErrInsufficientBalance
		}
		balanceAfter := user.WalletBalance.Sub(tournament.EntryFee)

		gameID := strings.TrimSpace(req.GameID)
		if gameID == "" {
			gameID = user.GameID
		}
		reg := models.TournamentRegistration{
			TournamentID: tournament.ID,
			UserID:       user.ID,
			Username:     user.Username,
			GameID:       gameID,
			TeamName:     strings.TrimSpace(req.TeamName),
			Teammates:    req.Teammates,
			EntryFeePaid: tournament.EntryFee,
			ResultStatus: models.ResultNone,
		}
		if reg.Teammates == nil {
			reg.Teammates = []models.Teammate{}
		}
		if err := createRegistration(tx, &reg); err != nil {
			return err
		}

		ledger := models.WalletTransaction{
			UserID:        user.ID,
			Type:          models.TxEntryFee,
			Amount:        tournament.EntryFee,
			Currency:      tournament.Currency,
			Status:        models.TxApproved,
			Description:   "Entry fee: " + tournament.Title,
			ReferenceID:   reg.ID,
			BalanceBefore: user.WalletBalance,
			BalanceAfter:  balanceAfter,
		}
		if err := tx.Create(&ledger).Error; err != nil {
			return err
		}

		if err := tx.Model(&models.User{}).Where("id = ?", user.ID).Update("wallet_balance", balanceAfter).Error; err != nil {
			return err
		}

		match := models.UserMatch{
			UserID:         user.ID,
			TournamentID:   tournament.ID,
			RegistrationID: reg.ID,
			Title:          tournament.Title,
			Game:           tournament.Game,
			Mode:           tournament.Mode,
			StartTime:      tournament.StartTime,
			EntryFee:       tournament.EntryFee,
			Status:         models.StatusUpcoming,
			Winnings:       decimal.Zero,
			ResultStatus:   models.ResultNone,
		}
		if err := tx.Create(&match).Error; err != nil {
			return err
		}

		if err := tx.Model(&models.Tournament{}).Where("id = ?", tournament.ID).Updates(map[string]interface{}{
			"registered_players": gorm.Expr("registered_players + ?", teamSize),
			"registered_teams":   gorm.Expr("registered_teams + ?", 1),
		}).Error; err != nil {
			return err
		}

		result = JoinResult{Registration: reg, Transaction: ledger, Match: match, WalletBalance: balanceAfter}
		return nil
	})
	if err != nil {
		appErr := apperrors.From(asAppError(err, "failed to join tournament"))
		tournamentJoins.WithLabelValues(strings.ToLower(string(appErr.Code))).Inc()
		if appErr.Code == apperrors.CodeDatabaseError {
			utils.Log.Errorw("[JOIN] ❌ transaction failed", "user_id", userID, "tournament_id", tournamentID, "error", err)
		} else {
			utils.Log.Infow("[JOIN] rejected", "user_id", userID, "tournament_id", tournamentID, "reason", appErr.Message)
		}
		return nil, appErr
	}
	tournamentJoins.WithLabelValues("ok").Inc()

	if gameID := strings.TrimSpace(req.GameID); gameID != "" && gameID != user.GameID && s.Users != nil {
		if err := s.Users.UpdateGameID(ctx, userID, gameID); err != nil {
			utils.Log.Warnw("[JOIN] ⚠️ failed to update game id", "user_id", userID, "error", err)
		}
	}
	s.Notifier.Notify(ctx, userID, models.NotifyTournament, "Tournament joined",
		fmt.Sprintf("You joined %s. Entry fee of %s %s was deducted.", tournament.Title, tournament.EntryFee.StringFixed(2), tournament.Currency))
	publish(ctx, s.Events, EventTournamentJoined, map[string]interface{}{
		"tournament_id":   tournament.ID,
		"user_id":         userID,
		"registration_id": result.Registration.ID,
		"entry_fee":       tournament.EntryFee.String(),
		"team_size":       models.TeamSize(tournament.Mode),
	})
	utils.Log.Infow("[JOIN] ✅ registered", "user_id", userID, "tournament_id", tournament.ID, "balance_after", result.WalletBalance.String())
	return &result, nil
}

// createRegistration inserts reg. The unique index on (tournament_id, user_id)
// catches a join that raced past the in-transaction check.
func createRegistration(tx *gorm.DB, reg *models.TournamentRegistration) error {
	if err := tx.Create(reg).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrAlreadyRegistered
		}
		return err
	}
	return nil
}
