package services

import (
	"context"
	"errors"
	"fmt"

	"netwin-backend/apperrors"
	"netwin-backend/models"
	"netwin-backend/utils"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrNotRegistered      = apperrors.Forbidden("You are not registered for this tournament")
	ErrResultsNotOpen     = apperrors.New(apperrors.CodeNotOpen, "Results can only be submitted once the match has started")
	ErrResultLocked       = apperrors.Conflict("Result has already been verified")
	ErrRegistrationAbsent = apperrors.NotFound("Registration not found")
	ErrResultNotPending   = apperrors.Conflict("Result is not pending review")
)

type ResultInput struct {
	Kills      int    `json:"kills" validate:"min=0,max=100"`
	Position   int    `json:"position" validate:"required,min=1,max=100"`
	Screenshot string `json:"screenshot" validate:"required"`
}

// SubmitResult stores a player's claimed kills and placement with a
// screenshot as proof. Resubmission is allowed until an admin verifies it.
func (s *TournamentService) SubmitResult(ctx context.Context, userID, tournamentID string, in ResultInput) (*models.TournamentRegistration, error) {
	if in.Kills < 0 || in.Position < 1 {
		return nil, apperrors.InvalidInput("kills must be >= 0 and position >= 1")
	}
	t, err := s.findTournament(s.DB.WithContext(ctx), tournamentID)
	if err != nil {
		return nil, err
	}
	status := DeriveStatus(*t, s.now())
	if status != models.StatusLive && status != models.StatusCompleted {
		return nil, ErrResultsNotOpen
	}

	var reg models.TournamentRegistration
	if err := s.DB.WithContext(ctx).Where("tournament_id = ? AND user_id = ?", tournamentID, userID).First(&reg).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotRegistered
		}
		return nil, apperrors.Database(err, "failed to fetch registration")
	}
	if reg.ResultStatus == models.ResultVerified {
		return nil, ErrResultLocked
	}

	url, err := uploadBlob(ctx, s.Store, fmt.Sprintf("results/%s/%s", tournamentID, userID), in.Screenshot)
	if err != nil {
		return nil, err
	}

	submittedAt := s.now()
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.TournamentRegistration{}).
			Where("id = ? AND result_status <> ?", reg.ID, models.ResultVerified).
			Updates(map[string]interface{}{
				"kills":               in.Kills,
				"position":            in.Position,
				"result_image_url":    url,
				"result_status":       models.ResultPending,
				"result_submitted_at": submittedAt,
				"result_note":         "",
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrResultLocked
		}
		if err := tx.Model(&models.UserMatch{}).Where("registration_id = ?", reg.ID).Updates(map[string]interface{}{
			"kills":         in.Kills,
			"position":      in.Position,
			"result_status": models.ResultPending,
		}).Error; err != nil {
			return err
		}
		return tx.First(&reg, "id = ?", reg.ID).Error
	})
	if err != nil {
		return nil, asAppError(err, "failed to submit result")
	}

	publish(ctx, s.Events, EventResultSubmitted, map[string]interface{}{
		"tournament_id": tournamentID, "user_id": userID, "registration_id": reg.ID,
		"kills": in.Kills, "position": in.Position,
	})
	return &reg, nil
}

type VerifyResultInput struct {
	Prize decimal.Decimal `json:"prize"`
	Note  string          `json:"note"`
}

// VerifyResult accepts a pending result, credits kills × per-kill reward plus
// any placement prize, and folds the match into the player's stats.
func (s *TournamentService) VerifyResult(ctx context.Context, adminID, registrationID string, in VerifyResultInput) (*models.TournamentRegistration, error) {
	if in.Prize.IsNegative() {
		return nil, apperrors.InvalidInput("prize must not be negative")
	}
	var (
		reg      models.TournamentRegistration
		title    string
		winnings decimal.Decimal
	)
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&reg, "id = ?", registrationID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRegistrationAbsent
			}
			return err
		}
		if reg.ResultStatus != models.ResultPending {
			return ErrResultNotPending
		}
		t, err := s.findTournament(tx, reg.TournamentID)
		if err != nil {
			return err
		}
		title = t.Title
		winnings = t.PerKillReward.Mul(decimal.NewFromInt(int64(reg.Kills))).Add(in.Prize)

		if winnings.IsPositive() {
			var user models.User
			if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&user, "id = ?", reg.UserID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return ErrUserNotFound
				}
				return err
			}
			after := user.WalletBalance.Add(winnings)
			if err := tx.Create(&models.WalletTransaction{
				UserID:        user.ID,
				Type:          models.TxWinning,
				Amount:        winnings,
				Currency:      t.Currency,
				Status:        models.TxApproved,
				Description:   "Winnings: " + t.Title,
				ReferenceID:   reg.ID,
				BalanceBefore: user.WalletBalance,
				BalanceAfter:  after,
			}).Error; err != nil {
				return err
			}
			if err := tx.Model(&models.User{}).Where("id = ?", user.ID).Update("wallet_balance", after).Error; err != nil {
				return err
			}
		}

		if err := tx.Model(&models.TournamentRegistration{}).Where("id = ?", reg.ID).Updates(map[string]interface{}{
			"result_status": models.ResultVerified,
			"winnings":      winnings,
			"result_note":   in.Note,
		}).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.UserMatch{}).Where("registration_id = ?", reg.ID).Updates(map[string]interface{}{
			"result_status": models.ResultVerified,
			"winnings":      winnings,
		}).Error; err != nil {
			return err
		}
		if err := recordVerifiedResult(tx, reg.UserID, reg.Kills, reg.Position, winnings, s.now()); err != nil {
			return err
		}
		return tx.First(&reg, "id = ?", reg.ID).Error
	})
	if err != nil {
		return nil, asAppError(err, "failed to verify result")
	}

	s.Notifier.Notify(ctx, reg.UserID, models.NotifyResult, "Result verified",
		fmt.Sprintf("Your result for %s was verified. Winnings: %s.", title, winnings.StringFixed(2)))
	utils.Log.Infow("[RESULT] ✅ verified", "registration_id", reg.ID, "by", adminID, "winnings", winnings.String())
	return &reg, nil
}

func (s *TournamentService) RejectResult(ctx context.Context, adminID, registrationID, reason string) (*models.TournamentRegistration, error) {
	var reg models.TournamentRegistration
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&reg, "id = ?", registrationID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRegistrationAbsent
			}
			return err
		}
		if reg.ResultStatus != models.ResultPending {
			return ErrResultNotPending
		}
		if err := tx.Model(&models.TournamentRegistration{}).Where("id = ?", reg.ID).Updates(map[string]interface{}{
			"result_status": models.ResultRejected,
			"result_note":   reason,
		}).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.UserMatch{}).Where("registration_id = ?", reg.ID).
			Update("result_status", models.ResultRejected).Error; err != nil {
			return err
		}
		return tx.First(&reg, "id = ?", reg.ID).Error
	})
	if err != nil {
		return nil, asAppError(err, "failed to reject result")
	}

	msg := "Your submitted result was rejected."
	if reason != "" {
		msg += " Reason: " + reason
	}
	s.Notifier.Notify(ctx, reg.UserID, models.NotifyResult, "Result rejected", msg)
	utils.Log.Infow("[RESULT] rejected", "registration_id", reg.ID, "by", adminID)
	return &reg, nil
}
