package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureMailer struct {
	mu    sync.Mutex
	codes map[string]string
	err   error
}

func (m *captureMailer) SendOTP(_ context.Context, email, code string, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if m.codes == nil {
		m.codes = map[string]string{}
	}
	m.codes[email] = code
	return nil
}

func (m *captureMailer) last(email string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.codes[email]
}

func newOTPService(t *testing.T, users *UserService) (*OTPService, *captureMailer, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	mailer := &captureMailer{}
	return NewOTPService(NewOTPStore(client), mailer, users), mailer, mr
}

func TestOTPSendAndVerify(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	user := seedUser(t, db, "0")
	svc, mailer, mr := newOTPService(t, NewUserService(db))

	require.NoError(t, svc.SendOTP(ctx, "  "+user.Email+" "))
	code := mailer.last(user.Email)
	require.Len(t, code, 6)

	// Only the hash is stored.
	stored, err := mr.Get("otp:code:" + user.Email)
	require.NoError(t, err)
	assert.NotEqual(t, code, stored)
	assert.Equal(t, hashOTP(user.Email, code), stored)

	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}
	assert.ErrorIs(t, svc.VerifyOTP(ctx, user.Email, wrong), ErrOTPInvalid)

	require.NoError(t, svc.VerifyOTP(ctx, user.Email, code))
	assert.True(t, reloadUser(t, db, user.ID).EmailVerified)

	// consumed
	assert.ErrorIs(t, svc.VerifyOTP(ctx, user.Email, code), ErrOTPExpired)
}

func TestOTPExpires(t *testing.T) {
	ctx := context.Background()
	svc, mailer, mr := newOTPService(t, nil)

	require.NoError(t, svc.SendOTP(ctx, "a@netwin.test"))
	mr.FastForward(OTPTTL + time.Second)
	assert.ErrorIs(t, svc.VerifyOTP(ctx, "a@netwin.test", mailer.last("a@netwin.test")), ErrOTPExpired)
}

func TestOTPSendLimit(t *testing.T) {
	ctx := context.Background()
	svc, _, mr := newOTPService(t, nil)

	for i := 0; i < OTPMaxSends; i++ {
		require.NoError(t, svc.SendOTP(ctx, "b@netwin.test"))
	}
	assert.ErrorIs(t, svc.SendOTP(ctx, "b@netwin.test"), ErrOTPRateLimited)

	// The window resets.
	mr.FastForward(OTPSendWindow + time.Second)
	assert.NoError(t, svc.SendOTP(ctx, "b@netwin.test"))
}

func TestOTPAttemptLimit(t *testing.T) {
	ctx := context.Background()
	svc, mailer, _ := newOTPService(t, nil)

	require.NoError(t, svc.SendOTP(ctx, "c@netwin.test"))
	code := mailer.last("c@netwin.test")
	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}
	for i := 0; i < OTPMaxAttempts; i++ {
		assert.ErrorIs(t, svc.VerifyOTP(ctx, "c@netwin.test", wrong), ErrOTPInvalid)
	}
	assert.ErrorIs(t, svc.VerifyOTP(ctx, "c@netwin.test", code), ErrOTPAttempts)
	// the code was burned
	assert.ErrorIs(t, svc.VerifyOTP(ctx, "c@netwin.test", code), ErrOTPExpired)
}

func TestOTPDeliveryFailureClearsCode(t *testing.T) {
	ctx := context.Background()
	svc, mailer, mr := newOTPService(t, nil)
	mailer.err = errors.New("relay down")

	assert.Error(t, svc.SendOTP(ctx, "d@netwin.test"))
	assert.False(t, mr.Exists("otp:code:d@netwin.test"))
}
