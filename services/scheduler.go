package services

import (
	"context"
	"time"

	"netwin-backend/models"
	"netwin-backend/utils"

	"github.com/go-co-op/gocron/v2"
	"gorm.io/gorm"
)

// StatusSweeper is the single writer of clock-driven tournament status
// transitions. Read paths only derive.
type StatusSweeper struct {
	DB     *gorm.DB
	Events EventPublisher
	Now    func() time.Time

	sched gocron.Scheduler
}

func NewStatusSweeper(db *gorm.DB, events EventPublisher) *StatusSweeper {
	return &StatusSweeper{DB: db, Events: events, Now: time.Now}
}

// Start runs Sweep every interval until Stop is called.
func (s *StatusSweeper) Start(interval time.Duration) error {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return err
	}
	_, err = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), interval)
			defer cancel()
			if _, err := s.Sweep(ctx); err != nil {
				utils.Log.Errorw("[SCHEDULER] status sweep failed", "error", err)
			}
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return err
	}
	sched.Start()
	s.sched = sched
	utils.Log.Infow("[SCHEDULER] ✅ tournament status sweeper running", "interval", interval.String())
	return nil
}

func (s *StatusSweeper) Stop() {
	if s.sched != nil {
		_ = s.sched.Shutdown()
	}
}

// Sweep persists every clock-driven transition that is due and returns how
// many tournaments changed.
func (s *StatusSweeper) Sweep(ctx context.Context) (int, error) {
	now := s.Now()

	var tournaments []models.Tournament
	err := s.DB.WithContext(ctx).
		Where("status IN ? AND start_time <= ?",
			[]models.TournamentStatus{models.StatusUpcoming, models.StatusLive}, now).
		Find(&tournaments).Error
	if err != nil {
		return 0, err
	}

	changed := 0
	for _, t := range tournaments {
		next := DeriveStatus(t, now)
		if next == t.Status {
			continue
		}
		updated := false
		err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			// Guard on the old status so a concurrent admin edit is not overwritten.
			res := tx.Model(&models.Tournament{}).
				Where("id = ? AND status = ? AND status_manual = ?", t.ID, t.Status, t.StatusManual).
				Updates(map[string]interface{}{"status": next, "status_manual": false})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return nil
			}
			updated = true
			return tx.Model(&models.UserMatch{}).
				Where("tournament_id = ?", t.ID).
				Update("status", next).Error
		})
		if err != nil {
			utils.Log.Errorw("[SCHEDULER] failed to update tournament status", "tournament_id", t.ID, "error", err)
			continue
		}
		if !updated {
			continue
		}
		changed++
		statusTransitions.WithLabelValues(string(next)).Inc()
		publish(ctx, s.Events, EventTournamentStatus, map[string]interface{}{
			"tournament_id": t.ID, "from": t.Status, "to": next,
		})
		utils.Log.Infow("[SCHEDULER] tournament status updated", "tournament_id", t.ID, "from", t.Status, "to", next)
	}
	return changed, nil
}
