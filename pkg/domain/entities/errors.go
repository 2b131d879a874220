package entities

import (
	"errors"
	"fmt"
)

var (
	ErrIllegalTransition     = errors.New("illegal transition")
	ErrInvalidPlan           = errors.New("invalid routing plan")
	ErrEmptyPlan             = errors.New("routing plan has no operations")
	ErrMissingWorkCenterType = errors.New("operation is missing its required work center type")
	ErrNotInProgress         = errors.New("job is not in process")
	ErrNegativeDelta         = errors.New("piece delta cannot be negative")
	ErrRemoteFailure         = errors.New("remote mutation failed")
	ErrMovePending           = errors.New("a change for this job is still pending")
	ErrJobNotFound           = errors.New("job not found")
	ErrUnknownPriority       = errors.New("unknown priority")
	ErrUnknownStatus         = errors.New("unknown status")
	ErrUnknownColumn         = errors.New("column does not accept cards")
	ErrNoRemainingOperations = errors.New("no remaining operations")
)

// TransitionError is returned when a requested status is not reachable from the current one
type TransitionError struct {
	JobNumber string
	From      Status
	To        Status
	Reason    string
}

func (e *TransitionError) Error() string {
	msg := fmt.Sprintf("illegal transition from %s to %s", e.From, e.To)
	if e.JobNumber != "" {
		msg = fmt.Sprintf("job %s: %s", e.JobNumber, msg)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func (e *TransitionError) Unwrap() error {
	return ErrIllegalTransition
}

// PlanFailure classifies why a routing plan failed validation
type PlanFailure int

const (
	PlanOK PlanFailure = iota
	EmptyPlan
	MissingWorkCenterType
)

// String method for PlanFailure enum
func (f PlanFailure) String() string {
	switch f {
	case PlanOK:
		return "OK"
	case EmptyPlan:
		return "EmptyPlan"
	case MissingWorkCenterType:
		return "MissingWorkCenterType"
	default:
		return "Unknown"
	}
}

// PlanValidationError carries the failure kind and the offending sequence numbers
type PlanValidationError struct {
	Failure   PlanFailure
	Sequences []int
}

func (e *PlanValidationError) Error() string {
	switch e.Failure {
	case EmptyPlan:
		return fmt.Sprintf("%v: %v", ErrInvalidPlan, ErrEmptyPlan)
	case MissingWorkCenterType:
		return fmt.Sprintf("%v: %v (sequences %v)", ErrInvalidPlan, ErrMissingWorkCenterType, e.Sequences)
	default:
		return ErrInvalidPlan.Error()
	}
}

func (e *PlanValidationError) Unwrap() []error {
	switch e.Failure {
	case EmptyPlan:
		return []error{ErrInvalidPlan, ErrEmptyPlan}
	case MissingWorkCenterType:
		return []error{ErrInvalidPlan, ErrMissingWorkCenterType}
	default:
		return []error{ErrInvalidPlan}
	}
}
