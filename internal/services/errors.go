package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/ajramos/inboxpilot/internal/gmail"
)

// Standard service errors. Front ends map them to user-facing responses.
var (
	// Network and connectivity errors
	ErrNetworkUnavailable = errors.New("network unavailable")
	ErrTimeout            = errors.New("operation timed out")
	ErrUnauthorized       = errors.New("unauthorized access")

	// Data errors
	ErrNotFound        = errors.New("resource not found")
	ErrInvalidInput    = errors.New("invalid input provided")
	ErrMessageNotFound = errors.New("message not found")

	// Session errors
	ErrBusy         = errors.New("another command is still running")
	ErrEmptyCommand = errors.New("command is empty")
	ErrNoSelection  = errors.New("no email selected")

	// Cache errors
	ErrCacheUnavailable = errors.New("cache unavailable")

	// Service errors
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrRateLimited        = errors.New("rate limited")

	// AI service specific errors
	ErrProviderUnavailable = errors.New("AI provider not available")
	ErrEmptyContent        = errors.New("content cannot be empty")
)

// IsRetryableError determines if an error should be retried
func IsRetryableError(err error) bool {
	return errors.Is(err, ErrNetworkUnavailable) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrServiceUnavailable) ||
		errors.Is(err, ErrRateLimited) ||
		errors.Is(err, context.DeadlineExceeded)
}

// IsPermanentError determines if an error is permanent and should not be retried
func IsPermanentError(err error) bool {
	return errors.Is(err, ErrUnauthorized) ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrMessageNotFound) ||
		errors.Is(err, ErrEmptyCommand)
}

// wrapMailError translates gmail package errors into service errors, keeping
// the original message.
func wrapMailError(op string, err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, gmail.ErrUnauthorized):
		return fmt.Errorf("%s: %w: %v", op, ErrUnauthorized, err)
	case errors.Is(err, gmail.ErrMessageNotFound):
		return fmt.Errorf("%s: %w: %v", op, ErrMessageNotFound, err)
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%s: %w: %v", op, ErrTimeout, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
