// Package businessflow contains the core business logic and use cases for the AI backoffice workflows
package businessflow

import (
	"errors"
	"fmt"
)

// Business flow error constants
var (
	// Auth errors
	ErrUserNotFound      = errors.New("user not found")
	ErrAccountInactive   = errors.New("account is inactive")
	ErrIncorrectPassword = errors.New("incorrect password")

	// Tenant errors
	ErrTenantNotFound  = errors.New("tenant not found")
	ErrTenantInactive  = errors.New("tenant is inactive")
	ErrNotTenantMember = errors.New("user is not a member of this tenant")

	// Lead errors
	ErrLeadNotFound          = errors.New("lead not found")
	ErrLeadContactRequired   = errors.New("lead requires an email or phone number")
	ErrCaptchaFailed         = errors.New("captcha verification failed")
	ErrInteractionNotAllowed = errors.New("interaction content is required")

	// AI provider and parsing errors
	ErrProviderUnavailable = errors.New("AI provider is unavailable")
	ErrProviderTimeout     = errors.New("AI provider timed out")
	ErrUnparsableAIOutput  = errors.New("AI output could not be parsed")

	// Calendar and content errors
	ErrCalendarNotFound      = errors.New("calendar not found")
	ErrCalendarSlotOccupied  = errors.New("a non-draft calendar already exists for this month")
	ErrDuplicateContentTopic = errors.New("content for this topic already exists in the calendar")
	ErrContentItemNotFound   = errors.New("content item not found")
	ErrInvalidPlatform       = errors.New("unsupported platform")
	ErrItemHasNoImagePending = errors.New("content item is not awaiting an image")

	// Campaign errors
	ErrCampaignNotFound  = errors.New("campaign not found")
	ErrNoMetricsInWindow = errors.New("no metrics recorded for the requested window")
	ErrInvalidDateRange  = errors.New("start date cannot be after end date")

	// Filter errors
	ErrInvalidPage     = errors.New("page must be at least 1")
	ErrInvalidPageSize = errors.New("page size must be between 1 and 100")
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

func IsUserNotFound(err error) bool {
	return errors.Is(err, ErrUserNotFound)
}

func IsAccountInactive(err error) bool {
	return errors.Is(err, ErrAccountInactive)
}

func IsIncorrectPassword(err error) bool {
	return errors.Is(err, ErrIncorrectPassword)
}

func IsTenantNotFound(err error) bool {
	return errors.Is(err, ErrTenantNotFound)
}

func IsTenantInactive(err error) bool {
	return errors.Is(err, ErrTenantInactive)
}

func IsNotTenantMember(err error) bool {
	return errors.Is(err, ErrNotTenantMember)
}

func IsLeadNotFound(err error) bool {
	return errors.Is(err, ErrLeadNotFound)
}

func IsCaptchaFailed(err error) bool {
	return errors.Is(err, ErrCaptchaFailed)
}

func IsProviderUnavailable(err error) bool {
	return errors.Is(err, ErrProviderUnavailable)
}

func IsProviderTimeout(err error) bool {
	return errors.Is(err, ErrProviderTimeout)
}

func IsUnparsableAIOutput(err error) bool {
	return errors.Is(err, ErrUnparsableAIOutput)
}

func IsCalendarNotFound(err error) bool {
	return errors.Is(err, ErrCalendarNotFound)
}

func IsCalendarSlotOccupied(err error) bool {
	return errors.Is(err, ErrCalendarSlotOccupied)
}

func IsDuplicateContentTopic(err error) bool {
	return errors.Is(err, ErrDuplicateContentTopic)
}

func IsContentItemNotFound(err error) bool {
	return errors.Is(err, ErrContentItemNotFound)
}

func IsCampaignNotFound(err error) bool {
	return errors.Is(err, ErrCampaignNotFound)
}

func IsNoMetricsInWindow(err error) bool {
	return errors.Is(err, ErrNoMetricsInWindow)
}

func IsLeadContactRequired(err error) bool {
	return errors.Is(err, ErrLeadContactRequired)
}

func IsInvalidPlatform(err error) bool {
	return errors.Is(err, ErrInvalidPlatform)
}

func IsItemHasNoImagePending(err error) bool {
	return errors.Is(err, ErrItemHasNoImagePending)
}

func IsInvalidDateRange(err error) bool {
	return errors.Is(err, ErrInvalidDateRange)
}
