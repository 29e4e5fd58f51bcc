// Package businessflow contains the core business logic and use cases for the greeting agent
package businessflow

import (
	"errors"
	"fmt"
)

// Business flow error constants
var (
	// Client-related errors
	ErrClientNotFound   = errors.New("client not found")
	ErrRecipientMissing = errors.New("client has no email or phone to deliver to")

	// Event-related errors
	ErrEventNotFound      = errors.New("event not found")
	ErrEventTitleRequired = errors.New("event title is required")
	ErrEventDateRequired  = errors.New("event date is required")
	ErrEventTypeInvalid   = errors.New("event type is invalid")

	// Greeting-related errors
	ErrGreetingNotFound  = errors.New("greeting not found")
	ErrInvalidTransition = errors.New("greeting status transition is not allowed")

	// Delivery-related errors
	ErrChannelUnknown    = errors.New("delivery channel is unknown")
	ErrSendLockHeld      = errors.New("another delivery attempt holds the send lock")
	ErrCacheNotAvailable = errors.New("cache not available")

	// Auth errors
	ErrIncorrectCredentials = errors.New("incorrect email or password")
	ErrAdminNotConfigured   = errors.New("admin credentials are not configured")

	// Feedback errors
	ErrFeedbackOutcomeInvalid  = errors.New("feedback outcome is invalid")
	ErrFeedbackScoreOutOfRange = errors.New("feedback score must be between 1 and 5")

	// Import errors
	ErrImportFileInvalid = errors.New("import file could not be parsed")
)

type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func NewBusinessErrorf(code, message string, err error, args ...any) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: fmt.Sprintf(message, args...),
		Err:     err,
	}
}

func IsClientNotFound(err error) bool {
	return errors.Is(err, ErrClientNotFound)
}

func IsRecipientMissing(err error) bool {
	return errors.Is(err, ErrRecipientMissing)
}

func IsEventNotFound(err error) bool {
	return errors.Is(err, ErrEventNotFound)
}

func IsGreetingNotFound(err error) bool {
	return errors.Is(err, ErrGreetingNotFound)
}

func IsInvalidTransition(err error) bool {
	return errors.Is(err, ErrInvalidTransition)
}

func IsChannelUnknown(err error) bool {
	return errors.Is(err, ErrChannelUnknown)
}

func IsIncorrectCredentials(err error) bool {
	return errors.Is(err, ErrIncorrectCredentials)
}

func IsImportFileInvalid(err error) bool {
	return errors.Is(err, ErrImportFileInvalid)
}

func IsAdminNotConfigured(err error) bool {
	return errors.Is(err, ErrAdminNotConfigured)
}

func IsEventTitleRequired(err error) bool {
	return errors.Is(err, ErrEventTitleRequired)
}

func IsEventDateRequired(err error) bool {
	return errors.Is(err, ErrEventDateRequired)
}

func IsFeedbackOutcomeInvalid(err error) bool {
	return errors.Is(err, ErrFeedbackOutcomeInvalid)
}

func IsFeedbackScoreOutOfRange(err error) bool {
	return errors.Is(err, ErrFeedbackScoreOutOfRange)
}
