package repositories

import (
	"errors"

	"github.com/vsinha/shopfloor/pkg/domain/entities"
)

// errorCodes maps job service sentinels to the codes carried in API error responses.
// Order matters: the most specific sentinel of a wrapped error wins.
var errorCodes = []struct {
	code string
	err  error
}{
	{"job_not_found", entities.ErrJobNotFound},
	{"negative_delta", entities.ErrNegativeDelta},
	{"unknown_priority", entities.ErrUnknownPriority},
	{"unknown_status", entities.ErrUnknownStatus},
	{"not_in_progress", entities.ErrNotInProgress},
	{"no_remaining_operations", entities.ErrNoRemainingOperations},
	{"illegal_transition", entities.ErrIllegalTransition},
	{"empty_plan", entities.ErrEmptyPlan},
	{"missing_work_center_type", entities.ErrMissingWorkCenterType},
	{"invalid_plan", entities.ErrInvalidPlan},
	{"invalid_request", ErrInvalidRequest},
}

// ErrorCode returns the machine-readable code for err, or "" when err matches no known sentinel
func ErrorCode(err error) string {
	for _, entry := range errorCodes {
		if errors.Is(err, entry.err) {
			return entry.code
		}
	}
	return ""
}

// ErrorForCode returns the sentinel behind code, or nil for an unknown code
func ErrorForCode(code string) error {
	for _, entry := range errorCodes {
		if entry.code == code {
			return entry.err
		}
	}
	return nil
}
