package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/vsinha/shopfloor/pkg/domain/entities"
)

// TrackerConfig configures workflow-dependent behavior of the ExecutionTracker
type TrackerConfig struct {
	// CompleteTarget is where Complete moves an IN_PROCESS job: WAITING_QC or PACKAGING.
	CompleteTarget entities.Status
}

// DefaultTrackerConfig routes completed work through quality control
func DefaultTrackerConfig() TrackerConfig {
	return TrackerConfig{CompleteTarget: entities.StatusWaitingQC}
}

// IssueInput describes a shop-floor issue
type IssueInput struct {
	Category   string
	Message    string
	ReportedBy string
}

// ExecutionTracker exposes the named shop-floor actions over the Job aggregate
type ExecutionTracker struct {
	registry       *entities.Registry
	completeTarget entities.Status
	now            func() time.Time
}

// NewExecutionTracker creates a tracker, checking the complete target against the registry
func NewExecutionTracker(registry *entities.Registry, config TrackerConfig) (*ExecutionTracker, error) {
	target := config.CompleteTarget
	if target == "" {
		target = DefaultTrackerConfig().CompleteTarget
	}
	if target != entities.StatusWaitingQC && target != entities.StatusPackaging {
		return nil, fmt.Errorf("complete target must be %s or %s, got %s", entities.StatusWaitingQC, entities.StatusPackaging, target)
	}
	if !registry.Has(target) || !registry.CanTransition(entities.StatusInProcess, target) {
		return nil, fmt.Errorf("complete target %s is not a successor of %s", target, entities.StatusInProcess)
	}
	if target == entities.StatusWaitingQC && (!registry.Has(entities.StatusPackaging) ||
		!registry.CanTransition(entities.StatusWaitingQC, entities.StatusPackaging)) {
		return nil, fmt.Errorf("%s must lead to %s when completing through quality control", entities.StatusWaitingQC, entities.StatusPackaging)
	}

	return &ExecutionTracker{
		registry:       registry,
		completeTarget: target,
		now:            func() time.Time { return time.Now().UTC() },
	}, nil
}

// WithClock replaces the tracker's time source
func (t *ExecutionTracker) WithClock(now func() time.Time) *ExecutionTracker {
	t.now = now
	return t
}

// CompleteTarget returns the configured post-processing status
func (t *ExecutionTracker) CompleteTarget() entities.Status {
	return t.completeTarget
}

// Start moves a SCHEDULED job to IN_PROCESS and stamps its actual start
func (t *ExecutionTracker) Start(job *entities.Job) error {
	if err := requireStatus(job, entities.StatusInProcess, "start", entities.StatusScheduled); err != nil {
		return err
	}
	now := t.now()
	if err := job.Transition(t.registry, entities.StatusInProcess, now); err != nil {
		return err
	}
	job.SetActualStart(now)
	return nil
}

// Pause returns an IN_PROCESS job to SCHEDULED. The transition clears its actual start.
func (t *ExecutionTracker) Pause(job *entities.Job) error {
	if err := requireStatus(job, entities.StatusScheduled, "pause", entities.StatusInProcess); err != nil {
		return err
	}
	return job.Transition(t.registry, entities.StatusScheduled, t.now())
}

// Complete finishes processing. IN_PROCESS goes to the configured target, WAITING_QC goes to PACKAGING.
func (t *ExecutionTracker) Complete(job *entities.Job) error {
	target := t.completeTarget
	if job.Status() == entities.StatusWaitingQC {
		target = entities.StatusPackaging
	}
	if err := requireStatus(job, target, "complete", entities.StatusInProcess, entities.StatusWaitingQC); err != nil {
		return err
	}
	return job.Transition(t.registry, target, t.now())
}

// RecordOutput adds good and scrap pieces to an IN_PROCESS job
func (t *ExecutionTracker) RecordOutput(job *entities.Job, goodDelta, scrapDelta int64) error {
	return job.RecordOutput(goodDelta, scrapDelta)
}

// AdvanceOperation moves an IN_PROCESS job to its next routing operation
func (t *ExecutionTracker) AdvanceOperation(job *entities.Job) error {
	return job.AdvanceOperation()
}

// ReportIssue annotates a job for human follow-up. Status is not changed.
func (t *ExecutionTracker) ReportIssue(job *entities.Job, in IssueInput) error {
	message := strings.TrimSpace(in.Message)
	if message == "" {
		return fmt.Errorf("issue message cannot be empty")
	}
	if t.registry.IsTerminal(job.Status()) {
		return &entities.TransitionError{
			JobNumber: job.JobNumber(),
			From:      job.Status(),
			To:        job.Status(),
			Reason:    "issues cannot be reported on a closed job",
		}
	}
	job.AddIssue(entities.IssueReport{
		At:         t.now(),
		Category:   strings.ToUpper(strings.TrimSpace(in.Category)),
		Message:    message,
		ReportedBy: in.ReportedBy,
	})
	return nil
}

// Hold parks a job in ON_HOLD
func (t *ExecutionTracker) Hold(job *entities.Job) error {
	return job.Transition(t.registry, entities.StatusOnHold, t.now())
}

// Resume moves an ON_HOLD job back to an active status. Resuming straight into
// IN_PROCESS stamps the actual start unless the job had already started.
func (t *ExecutionTracker) Resume(job *entities.Job, to entities.Status) error {
	if err := requireStatus(job, to, "resume", entities.StatusOnHold); err != nil {
		return err
	}
	now := t.now()
	if err := job.Transition(t.registry, to, now); err != nil {
		return err
	}
	if to == entities.StatusInProcess && job.ActualStart().IsZero() {
		job.SetActualStart(now)
	}
	return nil
}

// Cancel marks a job CANCELLED. Jobs are never deleted by the engine.
func (t *ExecutionTracker) Cancel(job *entities.Job) error {
	return job.Transition(t.registry, entities.StatusCancelled, t.now())
}

func requireStatus(job *entities.Job, to entities.Status, action string, allowed ...entities.Status) error {
	for _, s := range allowed {
		if job.Status() == s {
			return nil
		}
	}
	return &entities.TransitionError{
		JobNumber: job.JobNumber(),
		From:      job.Status(),
		To:        to,
		Reason:    fmt.Sprintf("%s requires status %v", action, allowed),
	}
}
