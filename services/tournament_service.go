package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"netwin-backend/apperrors"
	"netwin-backend/models"
	"netwin-backend/utils"

	"github.com/gosimple/slug"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrTournamentNotFound  = apperrors.NotFound("Tournament not found")
	ErrTournamentNotOpen   = apperrors.New(apperrors.CodeNotOpen, "Tournament is not open for registration")
	ErrTournamentFull      = apperrors.New(apperrors.CodeTournamentFull, "Tournament is full")
	ErrAlreadyRegistered   = apperrors.Conflict("Already registered for this tournament")
	ErrInsufficientBalance = apperrors.New(apperrors.CodeInsufficientBalance, "Insufficient wallet balance")
	ErrTooManyTeammates    = apperrors.InvalidInput("Too many teammates for this mode")
	ErrCurrencyMismatch    = apperrors.InvalidInput("Tournament currency does not match your wallet currency")
	ErrTournamentClosed    = apperrors.Conflict("Tournament is already completed or cancelled")
	ErrInvalidStatus       = apperrors.InvalidInput("Invalid tournament status")
)

// RoomRevealLead is how long before the start registered players get the room credentials.
const RoomRevealLead = 15 * time.Minute

type TournamentService struct {
	DB       *gorm.DB
	Store    utils.ObjectStore
	Users    *UserService
	Notifier *NotificationService
	Events   EventPublisher
	Now      func() time.Time
}

func NewTournamentService(db *gorm.DB, store utils.ObjectStore, users *UserService, notifier *NotificationService, events EventPublisher) *TournamentService {
	return &TournamentService{
		DB:       db,
		Store:    store,
		Users:    users,
		Notifier: notifier,
		Events:   events,
		Now:      time.Now,
	}
}

func (s *TournamentService) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

type TournamentFilter struct {
	Status models.TournamentStatus
	Game   string
	Mode   string
	Limit  int
}

// ListTournaments returns tournaments with their derived status. Nothing is
// written on this path; the sweeper persists transitions.
func (s *TournamentService) ListTournaments(ctx context.Context, f TournamentFilter) ([]models.Tournament, error) {
	if f.Limit <= 0 || f.Limit > 200 {
		f.Limit = 100
	}
	q := s.DB.WithContext(ctx).Model(&models.Tournament{})
	if f.Game != "" {
		q = q.Where("game = ?", f.Game)
	}
	if f.Mode != "" {
		q = q.Where("mode = ?", f.Mode)
	}
	// Stored status can lag behind the clock, so the filter mirrors
	// DeriveStatus in SQL and LIMIT only ever cuts matching rows.
	now := s.now()
	active := []models.TournamentStatus{models.StatusUpcoming, models.StatusLive}
	cutoff := now.Add(-EstimatedMatchDuration)
	switch f.Status {
	case models.StatusCancelled:
		q = q.Where("status = ?", models.StatusCancelled)
	case models.StatusCompleted:
		q = q.Where("(status = ? OR (status IN ? AND start_time <= ? AND NOT (status = ? AND status_manual = ?)))",
			models.StatusCompleted, active, cutoff, models.StatusLive, true)
	case models.StatusLive:
		q = q.Where("status IN ?", active).
			Where("((status = ? AND status_manual = ?) OR (start_time <= ? AND start_time > ?))",
				models.StatusLive, true, now, cutoff)
	case models.StatusUpcoming:
		q = q.Where("status IN ? AND start_time > ? AND NOT (status = ? AND status_manual = ?)",
			active, now, models.StatusLive, true)
	}

	var tournaments []models.Tournament
	if err := q.Order("start_time ASC").Limit(f.Limit).Find(&tournaments).Error; err != nil {
		return nil, apperrors.Database(err, "failed to fetch tournaments")
	}

	out := make([]models.Tournament, 0, len(tournaments))
	for _, t := range tournaments {
		t.Status = DeriveStatus(t, now)
		if f.Status != "" && t.Status != f.Status {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

type TournamentDetail struct {
	models.Tournament
	AvailableSlots   int                            `json:"available_slots"`
	EstimatedEndTime time.Time                      `json:"estimated_end_time"`
	IsRegistered     bool                           `json:"is_registered"`
	Registration     *models.TournamentRegistration `json:"registration,omitempty"`
	RoomID           string                         `json:"room_id,omitempty"`
	RoomPassword     string                         `json:"room_password,omitempty"`
}

// GetTournament returns one tournament as seen by viewerID. Room credentials
// are only included for registered players close to or after the start.
func (s *TournamentService) GetTournament(ctx context.Context, id, viewerID string) (*TournamentDetail, error) {
	t, err := s.findTournament(s.DB.WithContext(ctx), id)
	if err != nil {
		return nil, err
	}
	now := s.now()
	t.Status = DeriveStatus(*t, now)

	detail := &TournamentDetail{
		Tournament:       *t,
		AvailableSlots:   t.MaxPlayers - t.RegisteredPlayers,
		EstimatedEndTime: EstimatedEndTime(*t),
	}
	if detail.AvailableSlots < 0 {
		detail.AvailableSlots = 0
	}

	if viewerID != "" {
		var reg models.TournamentRegistration
		err := s.DB.WithContext(ctx).Where("tournament_id = ? AND user_id = ?", id, viewerID).First(&reg).Error
		switch {
		case err == nil:
			detail.IsRegistered = true
			detail.Registration = &reg
			if t.Status == models.StatusLive || (t.Status == models.StatusUpcoming && !now.Before(t.StartTime.Add(-RoomRevealLead))) {
				detail.RoomID = t.RoomID
				detail.RoomPassword = t.RoomPassword
			}
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return nil, apperrors.Database(err, "failed to fetch registration")
		}
	}
	return detail, nil
}

func (s *TournamentService) findTournament(db *gorm.DB, id string) (*models.Tournament, error) {
	var t models.Tournament
	if err := db.First(&t, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, apperrors.Database(err, "failed to fetch tournament")
	}
	return &t, nil
}

// ListUserMatches returns the user's joined tournaments, newest first, with
// the current derived status of each tournament.
func (s *TournamentService) ListUserMatches(ctx context.Context, userID string) ([]models.UserMatch, error) {
	var matches []models.UserMatch
	if err := s.DB.WithContext(ctx).Where("user_id = ?", userID).Order("start_time DESC").Find(&matches).Error; err != nil {
		return nil, apperrors.Database(err, "failed to fetch matches")
	}
	if len(matches) == 0 {
		return matches, nil
	}

	ids := make([]string, 0, len(matches))
	for _, m := range matches {
		ids = append(ids, m.TournamentID)
	}
	var tournaments []models.Tournament
	if err := s.DB.WithContext(ctx).Where("id IN ?", ids).Find(&tournaments).Error; err != nil {
		return nil, apperrors.Database(err, "failed to fetch tournaments")
	}
	byID := make(map[string]models.Tournament, len(tournaments))
	for _, t := range tournaments {
		byID[t.ID] = t
	}
	now := s.now()
	for i := range matches {
		if t, ok := byID[matches[i].TournamentID]; ok {
			matches[i].Status = DeriveStatus(t, now)
		}
	}
	return matches, nil
}

// --- Admin ---

type CreateTournamentInput struct {
	Title         string          `json:"title" validate:"required,max=120"`
	Game          string          `json:"game" validate:"omitempty,max=32"`
	Mode          string          `json:"mode" validate:"required,oneof=solo duo squad"`
	Map           string          `json:"map" validate:"omitempty,max=32"`
	Description   string          `json:"description"`
	Rules         string          `json:"rules"`
	StartTime     time.Time       `json:"start_time" validate:"required"`
	EntryFee      decimal.Decimal `json:"entry_fee"`
	PrizePool     decimal.Decimal `json:"prize_pool"`
	PerKillReward decimal.Decimal `json:"per_kill_reward"`
	Currency      string          `json:"currency" validate:"omitempty,len=3"`
	MaxPlayers    int             `json:"max_players" validate:"required,min=1,max=1000"`
	RoomID        string          `json:"room_id"`
	RoomPassword  string          `json:"room_password"`
	Banner        string          `json:"banner,omitempty"` // base64 image
}

func (s *TournamentService) CreateTournament(ctx context.Context, in CreateTournamentInput) (*models.Tournament, error) {
	if in.EntryFee.IsNegative() || in.PrizePool.IsNegative() || in.PerKillReward.IsNegative() {
		return nil, apperrors.InvalidInput("Amounts must not be negative")
	}
	if !in.StartTime.After(s.now()) {
		return nil, apperrors.InvalidInput("start_time must be in the future")
	}
	cur := "INR"
	if in.Currency != "" {
		c, err := NormalizeCurrency(in.Currency)
		if err != nil {
			return nil, err
		}
		cur = c
	}
	game := strings.TrimSpace(in.Game)
	if game == "" {
		game = "BGMI"
	}

	t := &models.Tournament{
		Title:         strings.TrimSpace(in.Title),
		Game:          game,
		Mode:          in.Mode,
		Map:           in.Map,
		Description:   in.Description,
		Rules:         in.Rules,
		StartTime:     in.StartTime.UTC(),
		EntryFee:      in.EntryFee,
		PrizePool:     in.PrizePool,
		PerKillReward: in.PerKillReward,
		Currency:      cur,
		MaxPlayers:    in.MaxPlayers,
		Status:        models.StatusUpcoming,
		RoomID:        in.RoomID,
		RoomPassword:  in.RoomPassword,
	}
	t.ID = newID()
	t.Slug = fmt.Sprintf("%s-%s", slug.Make(t.Title), t.ID[:8])

	if in.Banner != "" {
		url, err := s.upload(ctx, "tournaments/banners/"+t.ID, in.Banner)
		if err != nil {
			return nil, err
		}
		t.BannerURL = url
	}

	if err := s.DB.WithContext(ctx).Create(t).Error; err != nil {
		return nil, apperrors.Database(err, "failed to create tournament")
	}
	utils.Log.Infow("[TOURNAMENT] ✅ created", "tournament_id", t.ID, "title", t.Title, "start_time", t.StartTime)
	return t, nil
}

type UpdateTournamentInput struct {
	Title         *string          `json:"title" validate:"omitempty,max=120"`
	Map           *string          `json:"map" validate:"omitempty,max=32"`
	Description   *string          `json:"description"`
	Rules         *string          `json:"rules"`
	StartTime     *time.Time       `json:"start_time"`
	EntryFee      *decimal.Decimal `json:"entry_fee"`
	PrizePool     *decimal.Decimal `json:"prize_pool"`
	PerKillReward *decimal.Decimal `json:"per_kill_reward"`
	MaxPlayers    *int             `json:"max_players" validate:"omitempty,min=1,max=1000"`
	RoomID        *string          `json:"room_id"`
	RoomPassword  *string          `json:"room_password"`
	Banner        *string          `json:"banner,omitempty"`
}

func (s *TournamentService) UpdateTournament(ctx context.Context, id string, in UpdateTournamentInput) (*models.Tournament, error) {
	var bannerURL string
	if in.Banner != nil && *in.Banner != "" {
		url, err := s.upload(ctx, "tournaments/banners/"+id, *in.Banner)
		if err != nil {
			return nil, err
		}
		bannerURL = url
	}

	var updated models.Tournament
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		t, err := s.findTournament(tx.Clauses(clause.Locking{Strength: "UPDATE"}), id)
		if err != nil {
			return err
		}
		status := DeriveStatus(*t, s.now())
		if status == models.StatusCancelled || status == models.StatusCompleted {
			return ErrTournamentClosed
		}

		updates := map[string]interface{}{}
		if in.Title != nil {
			updates["title"] = strings.TrimSpace(*in.Title)
			updates["slug"] = fmt.Sprintf("%s-%s", slug.Make(*in.Title), t.ID[:8])
		}
		if in.Map != nil {
			updates["map"] = *in.Map
		}
		if in.Description != nil {
			updates["description"] = *in.Description
		}
		if in.Rules != nil {
			updates["rules"] = *in.Rules
		}
		if in.StartTime != nil {
			if status != models.StatusUpcoming {
				return apperrors.InvalidInput("start_time can only change before the tournament starts")
			}
			if !in.StartTime.After(s.now()) {
				return apperrors.InvalidInput("start_time must be in the future")
			}
			updates["start_time"] = in.StartTime.UTC()
		}
		if in.EntryFee != nil {
			if t.RegisteredTeams > 0 {
				return apperrors.Conflict("Entry fee cannot change once players have joined")
			}
			if in.EntryFee.IsNegative() {
				return apperrors.InvalidInput("Amounts must not be negative")
			}
			updates["entry_fee"] = *in.EntryFee
		}
		if in.PrizePool != nil {
			if in.PrizePool.IsNegative() {
				return apperrors.InvalidInput("Amounts must not be negative")
			}
			updates["prize_pool"] = *in.PrizePool
		}
		if in.PerKillReward != nil {
			if in.PerKillReward.IsNegative() {
				return apperrors.InvalidInput("Amounts must not be negative")
			}
			updates["per_kill_reward"] = *in.PerKillReward
		}
		if in.MaxPlayers != nil {
			if *in.MaxPlayers < t.RegisteredPlayers {
				return apperrors.Conflict("max_players is below the number of registered players")
			}
			updates["max_players"] = *in.MaxPlayers
		}
		if in.RoomID != nil {
			updates["room_id"] = *in.RoomID
		}
		if in.RoomPassword != nil {
			updates["room_password"] = *in.RoomPassword
		}
		if bannerURL != "" {
			updates["banner_url"] = bannerURL
		}
		if len(updates) > 0 {
			if err := tx.Model(&models.Tournament{}).Where("id = ?", id).Updates(updates).Error; err != nil {
				return err
			}
		}
		if in.StartTime != nil || in.Title != nil {
			matchUpdates := map[string]interface{}{}
			if in.StartTime != nil {
				matchUpdates["start_time"] = in.StartTime.UTC()
			}
			if in.Title != nil {
				matchUpdates["title"] = strings.TrimSpace(*in.Title)
			}
			if err := tx.Model(&models.UserMatch{}).Where("tournament_id = ?", id).Updates(matchUpdates).Error; err != nil {
				return err
			}
		}
		return tx.First(&updated, "id = ?", id).Error
	})
	if err != nil {
		return nil, asAppError(err, "failed to update tournament")
	}
	return &updated, nil
}

// SetStatus pins a tournament to live or completed. "auto" releases the pin
// and hands the tournament back to the clock. Upcoming is never pinned, and a
// finished tournament cannot be reopened. Cancellation goes through
// CancelTournament because it refunds.
func (s *TournamentService) SetStatus(ctx context.Context, id string, status string) (*models.Tournament, error) {
	var out models.Tournament
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		t, err := s.findTournament(tx.Clauses(clause.Locking{Strength: "UPDATE"}), id)
		if err != nil {
			return err
		}
		if st := DeriveStatus(*t, s.now()); st == models.StatusCancelled || st == models.StatusCompleted {
			return ErrTournamentClosed
		}

		var next models.TournamentStatus
		manual := true
		switch {
		case status == "auto":
			manual = false
			released := *t
			released.StatusManual = false
			released.Status = models.StatusUpcoming
			next = DeriveStatus(released, s.now())
		case models.TournamentStatus(status) == models.StatusCancelled:
			return apperrors.InvalidInput("Use the cancel endpoint to cancel a tournament")
		case models.TournamentStatus(status) == models.StatusUpcoming:
			return apperrors.InvalidInput(`Use "auto" to return a tournament to its schedule`)
		case models.TournamentStatus(status).Valid():
			next = models.TournamentStatus(status)
		default:
			return ErrInvalidStatus
		}

		if err := tx.Model(&models.Tournament{}).Where("id = ?", id).
			Updates(map[string]interface{}{"status": next, "status_manual": manual}).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.UserMatch{}).Where("tournament_id = ?", id).Update("status", next).Error; err != nil {
			return err
		}
		return tx.First(&out, "id = ?", id).Error
	})
	if err != nil {
		return nil, asAppError(err, "failed to update status")
	}
	publish(ctx, s.Events, EventTournamentStatus, map[string]interface{}{"tournament_id": id, "to": out.Status, "manual": out.StatusManual})
	return &out, nil
}

// CancelTournament cancels a tournament and refunds every paid entry fee in
// the same transaction.
func (s *TournamentService) CancelTournament(ctx context.Context, adminID, id, reason string) (int, error) {
	var refunded []models.TournamentRegistration
	var title string
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		t, err := s.findTournament(tx.Clauses(clause.Locking{Strength: "UPDATE"}), id)
		if err != nil {
			return err
		}
		if st := DeriveStatus(*t, s.now()); st == models.StatusCancelled || st == models.StatusCompleted {
			return ErrTournamentClosed
		}
		title = t.Title

		var regs []models.TournamentRegistration
		if err := tx.Where("tournament_id = ?", id).Find(&regs).Error; err != nil {
			return err
		}
		sort.Slice(regs, func(i, j int) bool { return regs[i].UserID < regs[j].UserID })

		for _, reg := range regs {
			if !reg.EntryFeePaid.IsPositive() {
				continue
			}
			var user models.User
			if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&user, "id = ?", reg.UserID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					utils.Log.Warnw("[TOURNAMENT] refund skipped, user missing", "user_id", reg.UserID, "tournament_id", id)
					continue
				}
				return err
			}
			after := user.WalletBalance.Add(reg.EntryFeePaid)
			if err := tx.Create(&models.WalletTransaction{
				UserID:        user.ID,
				Type:          models.TxRefund,
				Amount:        reg.EntryFeePaid,
				Currency:      t.Currency,
				Status:        models.TxApproved,
				Description:   "Refund: " + t.Title + " cancelled",
				ReferenceID:   reg.ID,
				BalanceBefore: user.WalletBalance,
				BalanceAfter:  after,
			}).Error; err != nil {
				return err
			}
			if err := tx.Model(&models.User{}).Where("id = ?", user.ID).Update("wallet_balance", after).Error; err != nil {
				return err
			}
			refunded = append(refunded, reg)
		}

		if err := tx.Model(&models.Tournament{}).Where("id = ?", id).
			Updates(map[string]interface{}{"status": models.StatusCancelled, "status_manual": true}).Error; err != nil {
			return err
		}
		return tx.Model(&models.UserMatch{}).Where("tournament_id = ?", id).Update("status", models.StatusCancelled).Error
	})
	if err != nil {
		return 0, asAppError(err, "failed to cancel tournament")
	}

	for _, reg := range refunded {
		s.Notifier.Notify(ctx, reg.UserID, models.NotifyTournament, "Tournament cancelled",
			fmt.Sprintf("%s was cancelled. Your entry fee of %s has been refunded.", title, reg.EntryFeePaid.StringFixed(2)))
	}
	publish(ctx, s.Events, EventTournamentCancelled, map[string]interface{}{
		"tournament_id": id, "cancelled_by": adminID, "reason": reason, "refunds": len(refunded),
	})
	utils.Log.Infow("[TOURNAMENT] cancelled", "tournament_id", id, "by", adminID, "refunds", len(refunded))
	return len(refunded), nil
}

func (s *TournamentService) ListRegistrations(ctx context.Context, tournamentID string) ([]models.TournamentRegistration, error) {
	if _, err := s.findTournament(s.DB.WithContext(ctx), tournamentID); err != nil {
		return nil, err
	}
	var regs []models.TournamentRegistration
	if err := s.DB.WithContext(ctx).Where("tournament_id = ?", tournamentID).Order("created_at ASC").Find(&regs).Error; err != nil {
		return nil, apperrors.Database(err, "failed to fetch registrations")
	}
	return regs, nil
}

func (s *TournamentService) upload(ctx context.Context, keyPrefix, encoded string) (string, error) {
	return uploadBlob(ctx, s.Store, keyPrefix, encoded)
}
