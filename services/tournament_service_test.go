package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"netwin-backend/apperrors"
	"netwin-backend/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateTournament(t *testing.T) {
	db := newTestDB(t)
	svc, store, _ := newTournamentService(db)

	tr, err := svc.CreateTournament(context.Background(), CreateTournamentInput{
		Title:      "Sunday Squad Showdown",
		Mode:       models.ModeSquad,
		StartTime:  testNow.Add(24 * time.Hour),
		EntryFee:   decimal.NewFromInt(100),
		MaxPlayers: 64,
		Banner:     pngBlob,
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(tr.Slug, "sunday-squad-showdown-"))
	assert.Equal(t, "BGMI", tr.Game)
	assert.Equal(t, "INR", tr.Currency)
	require.Len(t, store.keys, 1)
	assert.True(t, strings.HasPrefix(store.keys[0], "tournaments/banners/"+tr.ID))
	assert.Equal(t, "https://cdn.test/"+store.keys[0], tr.BannerURL)

	_, err = svc.CreateTournament(context.Background(), CreateTournamentInput{
		Title: "Past", Mode: models.ModeSolo, StartTime: testNow.Add(-time.Hour), MaxPlayers: 10,
	})
	assert.Error(t, err)
}

func TestGetTournamentRevealsRoomToRegisteredPlayers(t *testing.T) {
	db := newTestDB(t)
	svc, _, _ := newTournamentService(db)
	player := seedUser(t, db, "100")
	outsider := seedUser(t, db, "100")
	tr := seedTournament(t, db, func(tr *models.Tournament) { tr.StartTime = testNow.Add(10 * time.Minute) })

	_, err := svc.JoinTournament(context.Background(), player.ID, tr.ID, JoinRequest{})
	require.NoError(t, err)

	detail, err := svc.GetTournament(context.Background(), tr.ID, player.ID)
	require.NoError(t, err)
	assert.True(t, detail.IsRegistered)
	assert.Equal(t, "room-42", detail.RoomID)
	assert.Equal(t, "hunter2", detail.RoomPassword)
	assert.Equal(t, 99, detail.AvailableSlots)

	detail, err = svc.GetTournament(context.Background(), tr.ID, outsider.ID)
	require.NoError(t, err)
	assert.False(t, detail.IsRegistered)
	assert.Empty(t, detail.RoomID)

	_, err = svc.GetTournament(context.Background(), "nope", player.ID)
	assert.ErrorIs(t, err, ErrTournamentNotFound)
}

func TestCancelTournamentRefundsEveryEntry(t *testing.T) {
	db := newTestDB(t)
	svc, _, events := newTournamentService(db)
	tr := seedTournament(t, db)
	a := seedUser(t, db, "80")
	b := seedUser(t, db, "50")

	for _, u := range []*models.User{a, b} {
		_, err := svc.JoinTournament(context.Background(), u.ID, tr.ID, JoinRequest{})
		require.NoError(t, err)
	}
	assert.True(t, reloadUser(t, db, b.ID).WalletBalance.IsZero())

	refunds, err := svc.CancelTournament(context.Background(), "admin-1", tr.ID, "server issues")
	require.NoError(t, err)
	assert.Equal(t, 2, refunds)

	assert.True(t, decimal.NewFromInt(80).Equal(reloadUser(t, db, a.ID).WalletBalance))
	assert.True(t, decimal.NewFromInt(50).Equal(reloadUser(t, db, b.ID).WalletBalance))
	assert.EqualValues(t, 2, count(t, db, &models.WalletTransaction{}, "type = ?", models.TxRefund))

	after := reloadTournament(t, db, tr.ID)
	assert.Equal(t, models.StatusCancelled, after.Status)
	assert.EqualValues(t, 2, count(t, db, &models.UserMatch{}, "tournament_id = ? AND status = ?", tr.ID, models.StatusCancelled))
	assert.Contains(t, events.Events(), EventTournamentCancelled)

	_, err = svc.CancelTournament(context.Background(), "admin-1", tr.ID, "")
	assert.ErrorIs(t, err, ErrTournamentClosed)
}

func TestSetStatusManualAndAuto(t *testing.T) {
	db := newTestDB(t)
	svc, _, _ := newTournamentService(db)
	tr := seedTournament(t, db)

	out, err := svc.SetStatus(context.Background(), tr.ID, string(models.StatusLive))
	require.NoError(t, err)
	assert.Equal(t, models.StatusLive, out.Status)
	assert.True(t, out.StatusManual)

	out, err = svc.SetStatus(context.Background(), tr.ID, "auto")
	require.NoError(t, err)
	assert.Equal(t, models.StatusUpcoming, out.Status)
	assert.False(t, out.StatusManual)

	_, err = svc.SetStatus(context.Background(), tr.ID, string(models.StatusCancelled))
	assert.Error(t, err)
	_, err = svc.SetStatus(context.Background(), tr.ID, "bogus")
	assert.ErrorIs(t, err, ErrInvalidStatus)

	_, err = svc.SetStatus(context.Background(), tr.ID, string(models.StatusUpcoming))
	assert.Equal(t, apperrors.CodeInvalidInput, apperrors.From(err).Code)
	assert.False(t, reloadTournament(t, db, tr.ID).StatusManual)
}

func TestSetStatusCannotReopenFinishedTournament(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	svc, _, _ := newTournamentService(db)
	user := seedUser(t, db, "200")

	overByClock := seedTournament(t, db, func(tr *models.Tournament) { tr.StartTime = testNow.Add(-3 * time.Hour) })
	closed := seedTournament(t, db, func(tr *models.Tournament) {
		tr.StartTime = testNow.Add(-3 * time.Hour)
		tr.Status = models.StatusCompleted
	})

	for _, id := range []string{overByClock.ID, closed.ID} {
		for _, status := range []string{"auto", string(models.StatusLive), string(models.StatusUpcoming)} {
			_, err := svc.SetStatus(ctx, id, status)
			assert.ErrorIs(t, err, ErrTournamentClosed, "status %s", status)
		}
		_, err := svc.JoinTournament(ctx, user.ID, id, JoinRequest{})
		assert.ErrorIs(t, err, ErrTournamentNotOpen)
	}
	assert.True(t, decimal.NewFromInt(200).Equal(reloadUser(t, db, user.ID).WalletBalance))
	assert.Equal(t, models.StatusCompleted, reloadTournament(t, db, closed.ID).Status)
}

func TestResultLifecycle(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	svc, store, _ := newTournamentService(db)
	user := seedUser(t, db, "100")
	tr := seedTournament(t, db)

	_, err := svc.JoinTournament(ctx, user.ID, tr.ID, JoinRequest{})
	require.NoError(t, err)

	// Not started yet.
	_, err = svc.SubmitResult(ctx, user.ID, tr.ID, ResultInput{Kills: 4, Position: 1, Screenshot: pngBlob})
	assert.ErrorIs(t, err, ErrResultsNotOpen)

	svc.Now = func() time.Time { return tr.StartTime.Add(30 * time.Minute) }

	outsider := seedUser(t, db, "0")
	_, err = svc.SubmitResult(ctx, outsider.ID, tr.ID, ResultInput{Kills: 1, Position: 2, Screenshot: pngBlob})
	assert.ErrorIs(t, err, ErrNotRegistered)

	reg, err := svc.SubmitResult(ctx, user.ID, tr.ID, ResultInput{Kills: 4, Position: 1, Screenshot: pngBlob})
	require.NoError(t, err)
	assert.Equal(t, models.ResultPending, reg.ResultStatus)
	require.Len(t, store.keys, 1)
	assert.True(t, strings.HasPrefix(store.keys[0], "results/"+tr.ID+"/"+user.ID))

	verified, err := svc.VerifyResult(ctx, "admin-1", reg.ID, VerifyResultInput{Prize: decimal.NewFromInt(500)})
	require.NoError(t, err)
	assert.Equal(t, models.ResultVerified, verified.ResultStatus)
	// 4 kills x 10 + 500
	assert.True(t, decimal.NewFromInt(540).Equal(verified.Winnings))
	assert.True(t, decimal.NewFromInt(590).Equal(reloadUser(t, db, user.ID).WalletBalance))

	stats, err := NewStatsService(db).Get(ctx, user.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, stats.MatchesPlayed)
	assert.EqualValues(t, 4, stats.TotalKills)
	assert.EqualValues(t, 1, stats.Wins)
	assert.True(t, decimal.NewFromInt(540).Equal(stats.TotalWinnings))

	// Verified results are locked and cannot be verified twice.
	_, err = svc.SubmitResult(ctx, user.ID, tr.ID, ResultInput{Kills: 9, Position: 1, Screenshot: pngBlob})
	assert.ErrorIs(t, err, ErrResultLocked)
	_, err = svc.VerifyResult(ctx, "admin-1", reg.ID, VerifyResultInput{})
	assert.ErrorIs(t, err, ErrResultNotPending)
	assert.EqualValues(t, 1, count(t, db, &models.WalletTransaction{}, "type = ?", models.TxWinning))
}

func TestRejectResultAllowsResubmission(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	svc, _, _ := newTournamentService(db)
	user := seedUser(t, db, "100")
	tr := seedTournament(t, db, func(tr *models.Tournament) { tr.StartTime = testNow.Add(-time.Hour) })
	require.NoError(t, db.Create(&models.TournamentRegistration{
		TournamentID: tr.ID, UserID: user.ID, EntryFeePaid: tr.EntryFee, ResultStatus: models.ResultNone,
	}).Error)

	reg, err := svc.SubmitResult(ctx, user.ID, tr.ID, ResultInput{Kills: 2, Position: 7, Screenshot: pngBlob})
	require.NoError(t, err)

	rejected, err := svc.RejectResult(ctx, "admin-1", reg.ID, "blurry screenshot")
	require.NoError(t, err)
	assert.Equal(t, models.ResultRejected, rejected.ResultStatus)
	assert.Equal(t, "blurry screenshot", rejected.ResultNote)
	assert.True(t, decimal.NewFromInt(100).Equal(reloadUser(t, db, user.ID).WalletBalance))

	again, err := svc.SubmitResult(ctx, user.ID, tr.ID, ResultInput{Kills: 2, Position: 7, Screenshot: pngBlob})
	require.NoError(t, err)
	assert.Equal(t, models.ResultPending, again.ResultStatus)
}
