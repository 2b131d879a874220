package entities

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// PlanMetadata describes the material and destination of a routing plan
type PlanMetadata struct {
	Division     string          `json:"division"`
	DueDate      time.Time       `json:"dueDate"`
	MaterialCode string          `json:"materialCode"`
	Commodity    string          `json:"commodity"`
	Thickness    decimal.Decimal `json:"thickness"`
	Form         string          `json:"form"`
	Grade        string          `json:"grade"`
	LocationID   string          `json:"locationId"`
}

// RoutingPlan is the ordered sequence of operations a job passes through
type RoutingPlan struct {
	Operations []Operation `json:"operations"`
	PlanMetadata
}

// ValidationResult is the outcome of validating a routing plan
type ValidationResult struct {
	Failure          PlanFailure
	MissingSequences []int
}

// Valid reports whether the plan can be attached to a job
func (r ValidationResult) Valid() bool {
	return r.Failure == PlanOK
}

// Err returns nil for a valid plan, otherwise a *PlanValidationError
func (r ValidationResult) Err() error {
	if r.Valid() {
		return nil
	}
	return &PlanValidationError{
		Failure:   r.Failure,
		Sequences: append([]int(nil), r.MissingSequences...),
	}
}

// Validate checks the plan is non-empty and every operation names a work center type.
// Missing operations are reported by position (1-based), the sequence they take once attached.
func (p RoutingPlan) Validate() ValidationResult {
	if len(p.Operations) == 0 {
		return ValidationResult{Failure: EmptyPlan}
	}
	var missing []int
	for i, op := range p.Operations {
		if strings.TrimSpace(op.RequiredWorkCenterType) == "" {
			missing = append(missing, i+1)
		}
	}
	if len(missing) > 0 {
		return ValidationResult{Failure: MissingWorkCenterType, MissingSequences: missing}
	}
	return ValidationResult{Failure: PlanOK}
}

// Clone returns a deep copy of the plan
func (p RoutingPlan) Clone() RoutingPlan {
	clone := p
	clone.Operations = append([]Operation(nil), p.Operations...)
	return clone
}

// Resequence rewrites sequence numbers as 1..N in slice order
func (p *RoutingPlan) Resequence() {
	for i := range p.Operations {
		p.Operations[i].Sequence = i + 1
	}
}

// Operation returns the operation with the given sequence number
func (p RoutingPlan) Operation(sequence int) (Operation, bool) {
	if sequence < 1 || sequence > len(p.Operations) {
		return Operation{}, false
	}
	return p.Operations[sequence-1], true
}
