package services

import (
	"context"
	"testing"
	"time"

	"netwin-backend/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveStatus(t *testing.T) {
	start := testNow
	cases := []struct {
		name   string
		stored models.TournamentStatus
		manual bool
		now    time.Time
		want   models.TournamentStatus
	}{
		{"before start", models.StatusUpcoming, false, start.Add(-time.Minute), models.StatusUpcoming},
		{"at start", models.StatusUpcoming, false, start, models.StatusLive},
		{"during match", models.StatusUpcoming, false, start.Add(119 * time.Minute), models.StatusLive},
		{"after estimated end", models.StatusLive, false, start.Add(2 * time.Hour), models.StatusCompleted},
		{"cancelled is terminal", models.StatusCancelled, false, start.Add(time.Hour), models.StatusCancelled},
		{"completed is terminal", models.StatusCompleted, false, start.Add(-time.Hour), models.StatusCompleted},
		{"manual live before start", models.StatusLive, true, start.Add(-time.Hour), models.StatusLive},
		{"manual live after estimated end", models.StatusLive, true, start.Add(3 * time.Hour), models.StatusLive},
		{"manual upcoming yields to the clock", models.StatusUpcoming, true, start.Add(10 * time.Minute), models.StatusLive},
		{"manual upcoming after estimated end", models.StatusUpcoming, true, start.Add(3 * time.Hour), models.StatusCompleted},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tr := models.Tournament{StartTime: start, Status: tc.stored, StatusManual: tc.manual}
			assert.Equal(t, tc.want, DeriveStatus(tr, tc.now))
		})
	}
}

func TestStatusSweeper(t *testing.T) {
	db := newTestDB(t)
	events := &recordingPublisher{}
	sweeper := NewStatusSweeper(db, events)
	sweeper.Now = func() time.Time { return testNow }

	future := seedTournament(t, db)
	started := seedTournament(t, db, func(tr *models.Tournament) { tr.StartTime = testNow.Add(-30 * time.Minute) })
	finished := seedTournament(t, db, func(tr *models.Tournament) {
		tr.StartTime = testNow.Add(-3 * time.Hour)
		tr.Status = models.StatusLive
	})
	pinned := seedTournament(t, db, func(tr *models.Tournament) {
		tr.StartTime = testNow.Add(-3 * time.Hour)
		tr.Status = models.StatusLive
		tr.StatusManual = true
	})
	stalePin := seedTournament(t, db, func(tr *models.Tournament) {
		tr.StartTime = testNow.Add(-3 * time.Hour)
		tr.StatusManual = true
	})
	require.NoError(t, db.Create(&models.UserMatch{
		UserID: "u1", TournamentID: started.ID, RegistrationID: "r1", StartTime: started.StartTime, Status: models.StatusUpcoming,
	}).Error)

	changed, err := sweeper.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, changed)

	assert.Equal(t, models.StatusUpcoming, reloadTournament(t, db, future.ID).Status)
	assert.Equal(t, models.StatusLive, reloadTournament(t, db, started.ID).Status)
	assert.Equal(t, models.StatusCompleted, reloadTournament(t, db, finished.ID).Status)
	assert.Equal(t, models.StatusLive, reloadTournament(t, db, pinned.ID).Status)
	cleared := reloadTournament(t, db, stalePin.ID)
	assert.Equal(t, models.StatusCompleted, cleared.Status)
	assert.False(t, cleared.StatusManual)

	var match models.UserMatch
	require.NoError(t, db.First(&match, "tournament_id = ?", started.ID).Error)
	assert.Equal(t, models.StatusLive, match.Status)
	assert.Len(t, events.Events(), 3)

	// Nothing left to do on a second pass.
	changed, err = sweeper.Sweep(context.Background())
	require.NoError(t, err)
	assert.Zero(t, changed)
}

func TestListTournamentsDerivesWithoutWriting(t *testing.T) {
	db := newTestDB(t)
	svc, _, _ := newTournamentService(db)
	started := seedTournament(t, db, func(tr *models.Tournament) { tr.StartTime = testNow.Add(-10 * time.Minute) })
	seedTournament(t, db)

	live, err := svc.ListTournaments(context.Background(), TournamentFilter{Status: models.StatusLive})
	require.NoError(t, err)
	require.Len(t, live, 1)
	assert.Equal(t, started.ID, live[0].ID)
	assert.Equal(t, models.StatusLive, live[0].Status)

	// stored row untouched
	assert.Equal(t, models.StatusUpcoming, reloadTournament(t, db, started.ID).Status)

	all, err := svc.ListTournaments(context.Background(), TournamentFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestListTournamentsLimitAppliesAfterStatusFilter(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	svc, _, _ := newTournamentService(db)

	// The sweeper has not run: these are stored upcoming but are over by the clock.
	for i := 0; i < 3; i++ {
		seedTournament(t, db, func(tr *models.Tournament) { tr.StartTime = testNow.Add(-time.Duration(3+i) * time.Hour) })
	}
	live := seedTournament(t, db, func(tr *models.Tournament) { tr.StartTime = testNow.Add(-30 * time.Minute) })
	pinned := seedTournament(t, db, func(tr *models.Tournament) {
		tr.StartTime = testNow.Add(-5 * time.Hour)
		tr.Status = models.StatusLive
		tr.StatusManual = true
	})
	upcoming := seedTournament(t, db)

	got, err := svc.ListTournaments(ctx, TournamentFilter{Status: models.StatusUpcoming, Limit: 1})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, upcoming.ID, got[0].ID)

	got, err = svc.ListTournaments(ctx, TournamentFilter{Status: models.StatusLive, Limit: 2})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, pinned.ID, got[0].ID)
	assert.Equal(t, live.ID, got[1].ID)

	got, err = svc.ListTournaments(ctx, TournamentFilter{Status: models.StatusCompleted, Limit: 10})
	require.NoError(t, err)
	assert.Len(t, got, 3)
	for _, tr := range got {
		assert.Equal(t, models.StatusCompleted, tr.Status)
	}
}
