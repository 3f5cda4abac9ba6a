package apperrors

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

type ErrorCode string

const (
	CodeNotFound            ErrorCode = "NOT_FOUND"
	CodeInvalidInput        ErrorCode = "INVALID_INPUT"
	CodeUnauthorized        ErrorCode = "UNAUTHORIZED"
	CodeForbidden           ErrorCode = "FORBIDDEN"
	CodeConflict            ErrorCode = "CONFLICT"
	CodeInsufficientBalance ErrorCode = "INSUFFICIENT_BALANCE"
	CodeNotOpen             ErrorCode = "NOT_OPEN"
	CodeTournamentFull      ErrorCode = "TOURNAMENT_FULL"
	CodeRateLimited         ErrorCode = "RATE_LIMITED"
	CodeStorageError        ErrorCode = "STORAGE_ERROR"
	CodeDatabaseError       ErrorCode = "DATABASE_ERROR"
	CodeInternal            ErrorCode = "INTERNAL"
)

type AppError struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error { return e.Err }

// Is matches sentinel errors by code and message so a wrapped copy of a
// sentinel still satisfies errors.Is.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Message == t.Message
}

func New(code ErrorCode, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

func Wrap(err error, code ErrorCode, message string) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

func NotFound(message string) *AppError     { return New(CodeNotFound, message) }
func InvalidInput(message string) *AppError { return New(CodeInvalidInput, message) }
func Forbidden(message string) *AppError    { return New(CodeForbidden, message) }
func Conflict(message string) *AppError     { return New(CodeConflict, message) }

func Database(err error, message string) *AppError {
	return Wrap(err, CodeDatabaseError, message)
}

// HTTPStatus maps a code to the status code the API answers with.
func (e *AppError) HTTPStatus() int {
	switch e.Code {
	case CodeNotFound:
		return fiber.StatusNotFound
	case CodeInvalidInput:
		return fiber.StatusBadRequest
	case CodeUnauthorized:
		return fiber.StatusUnauthorized
	case CodeForbidden:
		return fiber.StatusForbidden
	case CodeConflict, CodeNotOpen, CodeTournamentFull:
		return fiber.StatusConflict
	case CodeInsufficientBalance:
		return fiber.StatusPaymentRequired
	case CodeRateLimited:
		return fiber.StatusTooManyRequests
	case CodeStorageError:
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}

// From extracts an AppError from err, wrapping unknown errors as INTERNAL.
func From(err error) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return Wrap(err, CodeInternal, "internal server error")
}
