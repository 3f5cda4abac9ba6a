package services

import (
	"time"

	"netwin-backend/models"
)

// EstimatedMatchDuration is how long after its start a tournament is assumed
// to be over when nobody has closed it by hand.
const EstimatedMatchDuration = 2 * time.Hour

// DeriveStatus computes the effective status of t at now. Cancelled and
// completed are terminal. A manual live wins over the clock; a manual upcoming
// does not, so a started match can never be reopened for joins.
func DeriveStatus(t models.Tournament, now time.Time) models.TournamentStatus {
	switch t.Status {
	case models.StatusCancelled, models.StatusCompleted:
		return t.Status
	}
	if t.StatusManual && t.Status == models.StatusLive {
		return t.Status
	}
	if !now.Before(t.StartTime.Add(EstimatedMatchDuration)) {
		return models.StatusCompleted
	}
	if !now.Before(t.StartTime) {
		return models.StatusLive
	}
	return models.StatusUpcoming
}

// EstimatedEndTime is the instant the clock moves t to completed.
func EstimatedEndTime(t models.Tournament) time.Time {
	return t.StartTime.Add(EstimatedMatchDuration)
}
