package apperrors_test

import (
	"errors"
	"fmt"
	"testing"

	"netwin-backend/apperrors"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	cases := map[apperrors.ErrorCode]int{
		apperrors.CodeNotFound:            fiber.StatusNotFound,
		apperrors.CodeInvalidInput:        fiber.StatusBadRequest,
		apperrors.CodeInsufficientBalance: fiber.StatusPaymentRequired,
		apperrors.CodeTournamentFull:      fiber.StatusConflict,
		apperrors.CodeRateLimited:         fiber.StatusTooManyRequests,
		apperrors.CodeDatabaseError:       fiber.StatusInternalServerError,
	}
	for code, want := range cases {
		assert.Equal(t, want, apperrors.New(code, "x").HTTPStatus(), string(code))
	}
}

func TestIsMatchesWrappedSentinel(t *testing.T) {
	sentinel := apperrors.New(apperrors.CodeConflict, "Already registered for this tournament")
	wrapped := fmt.Errorf("join: %w", apperrors.Wrap(errors.New("duplicate key"), apperrors.CodeConflict, "Already registered for this tournament"))

	assert.ErrorIs(t, wrapped, sentinel)
	assert.NotErrorIs(t, wrapped, apperrors.NotFound("Tournament not found"))
}

func TestFromWrapsUnknownErrors(t *testing.T) {
	appErr := apperrors.From(errors.New("boom"))
	assert.Equal(t, apperrors.CodeInternal, appErr.Code)
	assert.Equal(t, "internal server error", appErr.Message)
	assert.Nil(t, apperrors.From(nil))
}
