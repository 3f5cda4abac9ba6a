package services

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"
	"time"

	"netwin-backend/apperrors"
	"netwin-backend/utils"
)

const (
	OTPTTL         = 10 * time.Minute
	OTPSendWindow  = 10 * time.Minute
	OTPMaxSends    = 3
	OTPMaxAttempts = 5
	otpDigits      = 6
)

var (
	ErrOTPRateLimited = apperrors.New(apperrors.CodeRateLimited, "Too many OTP requests")
	ErrOTPExpired     = apperrors.InvalidInput("OTP expired or not found")
	ErrOTPInvalid     = apperrors.InvalidInput("Invalid OTP")
	ErrOTPAttempts    = apperrors.New(apperrors.CodeRateLimited, "Too many attempts, request a new OTP")
)

type OTPService struct {
	Store  *OTPStore
	Mailer Mailer
	Users  *UserService
}

func NewOTPService(store *OTPStore, mailer Mailer, users *UserService) *OTPService {
	return &OTPService{Store: store, Mailer: mailer, Users: users}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func hashOTP(email, code string) string {
	sum := sha256.Sum256([]byte(email + ":" + code))
	return hex.EncodeToString(sum[:])
}

func generateOTP() (string, error) {
	limit := big.NewInt(1_000_000)
	n, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", otpDigits, n.Int64()), nil
}

// SendOTP issues a fresh code for email, replacing any earlier one.
func (s *OTPService) SendOTP(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if email == "" {
		return apperrors.InvalidInput("email is required")
	}

	sends, err := s.Store.CountSend(ctx, email, OTPSendWindow)
	if err != nil {
		otpSends.WithLabelValues("error").Inc()
		return apperrors.Wrap(err, apperrors.CodeInternal, "failed to send OTP")
	}
	if sends > OTPMaxSends {
		otpSends.WithLabelValues("rate_limited").Inc()
		return ErrOTPRateLimited
	}

	code, err := generateOTP()
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeInternal, "failed to send OTP")
	}
	if err := s.Store.SaveCode(ctx, email, hashOTP(email, code), OTPTTL); err != nil {
		otpSends.WithLabelValues("error").Inc()
		return apperrors.Wrap(err, apperrors.CodeInternal, "failed to send OTP")
	}
	if err := s.Mailer.SendOTP(ctx, email, code, OTPTTL); err != nil {
		utils.Log.Errorw("[OTP] ❌ delivery failed", "email", email, "error", err)
		if cerr := s.Store.Clear(ctx, email); cerr != nil {
			utils.Log.Warnw("[OTP] failed to clear undelivered code", "email", email, "error", cerr)
		}
		otpSends.WithLabelValues("error").Inc()
		return apperrors.Wrap(err, apperrors.CodeInternal, "failed to send OTP")
	}
	otpSends.WithLabelValues("ok").Inc()
	return nil
}

// VerifyOTP checks code against the live hash. The code is consumed on
// success, and after too many wrong guesses.
func (s *OTPService) VerifyOTP(ctx context.Context, email, code string) error {
	email = normalizeEmail(email)
	code = strings.TrimSpace(code)
	if email == "" || code == "" {
		return apperrors.InvalidInput("email and otp are required")
	}

	stored, ok, err := s.Store.CodeHash(ctx, email)
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeInternal, "failed to verify OTP")
	}
	if !ok {
		return ErrOTPExpired
	}

	attempts, err := s.Store.CountAttempt(ctx, email, OTPTTL)
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeInternal, "failed to verify OTP")
	}
	if attempts > OTPMaxAttempts {
		if err := s.Store.Clear(ctx, email); err != nil {
			utils.Log.Warnw("[OTP] failed to clear exhausted code", "email", email, "error", err)
		}
		return ErrOTPAttempts
	}

	if subtle.ConstantTimeCompare([]byte(stored), []byte(hashOTP(email, code))) != 1 {
		return ErrOTPInvalid
	}

	if err := s.Store.Clear(ctx, email); err != nil {
		utils.Log.Warnw("[OTP] failed to clear used code", "email", email, "error", err)
	}
	if s.Users != nil {
		if err := s.Users.MarkEmailVerified(ctx, email); err != nil {
			utils.Log.Warnw("[OTP] ⚠️ failed to mark email verified", "email", email, "error", err)
		}
	}
	return nil
}
