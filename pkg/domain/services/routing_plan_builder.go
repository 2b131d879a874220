package services

import (
	"fmt"
	"strings"

	"github.com/vsinha/shopfloor/pkg/domain/entities"
	"github.com/vsinha/shopfloor/pkg/domain/repositories"
)

// OperationInput is a partially specified operation added to a draft plan
type OperationInput struct {
	RequiredWorkCenterType string
	AssignedWorkCenterID   string
	Name                   string
	SkillLevel             entities.SkillLevel
}

// RoutingPlanBuilder edits a draft routing plan against a work center catalog.
// Sequence numbers in the draft are always 1..N.
type RoutingPlanBuilder struct {
	catalog repositories.WorkCenterCatalog
	draft   entities.RoutingPlan
}

// NewRoutingPlanBuilder creates a builder with an empty draft
func NewRoutingPlanBuilder(catalog repositories.WorkCenterCatalog) *RoutingPlanBuilder {
	return &RoutingPlanBuilder{catalog: catalog}
}

// NewRoutingPlanBuilderFrom starts a replanning session from an existing plan
func NewRoutingPlanBuilderFrom(catalog repositories.WorkCenterCatalog, plan entities.RoutingPlan) *RoutingPlanBuilder {
	draft := plan.Clone()
	draft.Resequence()
	return &RoutingPlanBuilder{catalog: catalog, draft: draft}
}

// SetMetadata replaces the plan-level metadata
func (b *RoutingPlanBuilder) SetMetadata(meta entities.PlanMetadata) {
	b.draft.PlanMetadata = meta
}

// AddOperation appends an operation with the next sequence number.
// A missing work center is auto-bound when exactly one online candidate exists.
func (b *RoutingPlanBuilder) AddOperation(in OperationInput) entities.Operation {
	op := b.resolve(in)
	op.Sequence = len(b.draft.Operations) + 1
	b.draft.Operations = append(b.draft.Operations, op)
	return op
}

// RemoveOperation removes the operation with the given sequence number
func (b *RoutingPlanBuilder) RemoveOperation(sequence int) error {
	if sequence < 1 || sequence > len(b.draft.Operations) {
		return fmt.Errorf("no operation with sequence %d in a plan of %d operations", sequence, len(b.draft.Operations))
	}
	i := sequence - 1
	b.draft.Operations = append(b.draft.Operations[:i], b.draft.Operations[i+1:]...)
	b.draft.Resequence()
	return nil
}

// Reorder moves the operation at fromIndex to toIndex (zero-based)
func (b *RoutingPlanBuilder) Reorder(fromIndex, toIndex int) error {
	n := len(b.draft.Operations)
	if fromIndex < 0 || fromIndex >= n {
		return fmt.Errorf("from index %d out of range [0,%d)", fromIndex, n)
	}
	if toIndex < 0 || toIndex >= n {
		return fmt.Errorf("to index %d out of range [0,%d)", toIndex, n)
	}
	if fromIndex == toIndex {
		return nil
	}

	moved := b.draft.Operations[fromIndex]
	ops := make([]entities.Operation, 0, n)
	ops = append(ops, b.draft.Operations[:fromIndex]...)
	ops = append(ops, b.draft.Operations[fromIndex+1:]...)
	ops = append(ops[:toIndex], append([]entities.Operation{moved}, ops[toIndex:]...)...)
	b.draft.Operations = ops
	b.draft.Resequence()
	return nil
}

// FromTemplate replaces the draft operations with a named catalog template
func (b *RoutingPlanBuilder) FromTemplate(name string) error {
	template, err := b.catalog.GetTemplate(name)
	if err != nil {
		return fmt.Errorf("failed to load routing template %q: %w", name, err)
	}
	b.FromTemplateSteps(template.Steps)
	return nil
}

// FromTemplateSteps replaces the draft operations with the given steps
func (b *RoutingPlanBuilder) FromTemplateSteps(steps []entities.TemplateStep) {
	b.draft.Operations = nil
	for _, step := range steps {
		b.AddOperation(OperationInput{
			RequiredWorkCenterType: step.WorkCenterType,
			Name:                   step.Name,
			SkillLevel:             step.SkillLevel,
		})
	}
}

// Validate checks the draft
func (b *RoutingPlanBuilder) Validate() entities.ValidationResult {
	return b.draft.Validate()
}

// Draft returns a copy of the current draft
func (b *RoutingPlanBuilder) Draft() entities.RoutingPlan {
	return b.draft.Clone()
}

// Build returns the draft if it is attachable
func (b *RoutingPlanBuilder) Build() (entities.RoutingPlan, error) {
	if err := b.draft.Validate().Err(); err != nil {
		return entities.RoutingPlan{}, err
	}
	return b.draft.Clone(), nil
}

func (b *RoutingPlanBuilder) resolve(in OperationInput) entities.Operation {
	typeCode := strings.TrimSpace(in.RequiredWorkCenterType)
	op := entities.Operation{
		RequiredWorkCenterType: typeCode,
		AssignedWorkCenterID:   strings.TrimSpace(in.AssignedWorkCenterID),
		Name:                   strings.TrimSpace(in.Name),
		SkillLevel:             in.SkillLevel,
	}
	if typeCode == "" {
		return op
	}

	if op.Name == "" {
		op.Name = typeCode
		if wct, err := b.catalog.GetWorkCenterType(typeCode); err == nil && wct.Name != "" {
			op.Name = wct.Name
		}
	}

	if op.AssignedWorkCenterID == "" {
		candidates, err := b.catalog.GetOnlineWorkCenters(typeCode, b.draft.LocationID)
		if err == nil && len(candidates) == 1 {
			op.AssignedWorkCenterID = candidates[0].ID
		}
	}
	return op
}
