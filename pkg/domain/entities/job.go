package entities

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Progress tracks piece counts for a job. CompletedPieces may exceed TargetPieces.
type Progress struct {
	TargetPieces    int64 `json:"targetPieces"`
	CompletedPieces int64 `json:"completedPieces"`
	ScrapPieces     int64 `json:"scrapPieces"`
}

// TimelineEntry records one status change
type TimelineEntry struct {
	At   time.Time `json:"at"`
	From Status    `json:"from"`
	To   Status    `json:"to"`
}

// IssueReport is a shop-floor annotation raised for human follow-up
type IssueReport struct {
	At         time.Time `json:"at"`
	Category   string    `json:"category,omitempty"`
	Message    string    `json:"message"`
	ReportedBy string    `json:"reportedBy,omitempty"`
}

// Job is the aggregate for one unit of manufacturing work. Status only changes via Transition.
type Job struct {
	id              string
	jobNumber       string
	status          Status
	priority        Priority
	routingPlan     *RoutingPlan
	progress        Progress
	currentSequence int

	operationType string
	instructions  string
	notes         string
	locationID    string

	createdAt      time.Time
	scheduledStart time.Time
	actualStart    time.Time
	dueDate        time.Time

	timeline []TimelineEntry
	issues   []IssueReport
}

// NewJobParams holds the inputs for creating a job
type NewJobParams struct {
	ID            string
	JobNumber     string
	Priority      Priority
	OperationType string
	Instructions  string
	Notes         string
	LocationID    string
	TargetPieces  int64
	DueDate       time.Time
	CreatedAt     time.Time
}

// NewJob creates a validated Job in ORDERED with no routing plan
func NewJob(params NewJobParams) (*Job, error) {
	if params.JobNumber == "" {
		return nil, fmt.Errorf("job number cannot be empty")
	}
	if params.TargetPieces < 0 {
		return nil, fmt.Errorf("target pieces cannot be negative, got %d", params.TargetPieces)
	}
	id := params.ID
	if id == "" {
		id = uuid.NewString()
	}
	priority := params.Priority
	if priority == "" {
		priority = PriorityNormal
	}
	createdAt := params.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	return &Job{
		id:            id,
		jobNumber:     params.JobNumber,
		status:        StatusOrdered,
		priority:      priority,
		progress:      Progress{TargetPieces: params.TargetPieces},
		operationType: params.OperationType,
		instructions:  params.Instructions,
		notes:         params.Notes,
		locationID:    params.LocationID,
		createdAt:     createdAt,
		dueDate:       params.DueDate,
	}, nil
}

func (j *Job) ID() string                { return j.id }
func (j *Job) JobNumber() string         { return j.jobNumber }
func (j *Job) Status() Status            { return j.status }
func (j *Job) Priority() Priority        { return j.priority }
func (j *Job) Progress() Progress        { return j.progress }
func (j *Job) CurrentSequence() int      { return j.currentSequence }
func (j *Job) OperationType() string     { return j.operationType }
func (j *Job) Instructions() string      { return j.instructions }
func (j *Job) Notes() string             { return j.notes }
func (j *Job) LocationID() string        { return j.locationID }
func (j *Job) CreatedAt() time.Time      { return j.createdAt }
func (j *Job) ScheduledStart() time.Time { return j.scheduledStart }
func (j *Job) ActualStart() time.Time    { return j.actualStart }
func (j *Job) DueDate() time.Time        { return j.dueDate }

// RoutingPlan returns a copy of the attached plan, nil until planned
func (j *Job) RoutingPlan() *RoutingPlan {
	if j.routingPlan == nil {
		return nil
	}
	plan := j.routingPlan.Clone()
	return &plan
}

// Timeline returns the recorded status changes, oldest first
func (j *Job) Timeline() []TimelineEntry {
	return append([]TimelineEntry(nil), j.timeline...)
}

// Issues returns the reported issues, oldest first
func (j *Job) Issues() []IssueReport {
	return append([]IssueReport(nil), j.issues...)
}

// CurrentOperation returns the active routing operation
func (j *Job) CurrentOperation() (Operation, bool) {
	if j.routingPlan == nil {
		return Operation{}, false
	}
	return j.routingPlan.Operation(j.currentSequence)
}

// WorkCenterID is the work center of the active operation while the job is on the floor
func (j *Job) WorkCenterID() string {
	switch j.status {
	case StatusScheduled, StatusInProcess, StatusWaitingQC:
	default:
		return ""
	}
	op, ok := j.CurrentOperation()
	if !ok {
		return ""
	}
	return op.AssignedWorkCenterID
}

// Transition moves the job to status to along a registry edge and records it on the timeline
func (j *Job) Transition(registry *Registry, to Status, at time.Time) error {
	if !registry.CanTransition(j.status, to) {
		return &TransitionError{JobNumber: j.jobNumber, From: j.status, To: to}
	}
	j.timeline = append(j.timeline, TimelineEntry{At: at, From: j.status, To: to})
	j.status = to
	// A job waiting to start has not started, however it got there.
	if to == StatusScheduled || to == StatusOrdered {
		j.actualStart = time.Time{}
	}
	// Back in ORDERED starts a new planning cycle; an ORDERED job never holds a plan.
	if to == StatusOrdered {
		j.routingPlan = nil
		j.currentSequence = 0
		j.scheduledStart = time.Time{}
	}
	return nil
}

// Plan attaches a routing plan. From ORDERED it also moves the job to SCHEDULED;
// from SCHEDULED it atomically replaces the existing plan.
func (j *Job) Plan(registry *Registry, plan RoutingPlan, at time.Time) error {
	if err := plan.Validate().Err(); err != nil {
		return err
	}

	switch j.status {
	case StatusOrdered:
		if err := j.Transition(registry, StatusScheduled, at); err != nil {
			return err
		}
		j.scheduledStart = at
	case StatusScheduled:
	default:
		return &TransitionError{
			JobNumber: j.jobNumber,
			From:      j.status,
			To:        StatusScheduled,
			Reason:    "routing plan can only be attached while ORDERED or SCHEDULED",
		}
	}

	attached := plan.Clone()
	attached.Resequence()
	j.routingPlan = &attached
	j.currentSequence = 1
	if !attached.DueDate.IsZero() {
		j.dueDate = attached.DueDate
	}
	if attached.LocationID != "" {
		j.locationID = attached.LocationID
	}
	return nil
}

// RecordOutput adds good and scrap pieces. The job must be IN_PROCESS.
func (j *Job) RecordOutput(goodDelta, scrapDelta int64) error {
	if j.status != StatusInProcess {
		return fmt.Errorf("job %s is %s: %w", j.jobNumber, j.status, ErrNotInProgress)
	}
	if goodDelta < 0 || scrapDelta < 0 {
		return fmt.Errorf("good %d, scrap %d: %w", goodDelta, scrapDelta, ErrNegativeDelta)
	}
	j.progress.CompletedPieces += goodDelta
	j.progress.ScrapPieces += scrapDelta
	return nil
}

// ProgressPercent is completed/target*100 rounded to two places, zero when there is no target
func (j *Job) ProgressPercent() decimal.Decimal {
	if j.progress.TargetPieces <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(j.progress.CompletedPieces).
		Div(decimal.NewFromInt(j.progress.TargetPieces)).
		Mul(decimal.NewFromInt(100)).
		Round(2)
}

// AdvanceOperation moves to the next routing operation. The job must be IN_PROCESS.
func (j *Job) AdvanceOperation() error {
	if j.status != StatusInProcess {
		return fmt.Errorf("job %s is %s: %w", j.jobNumber, j.status, ErrNotInProgress)
	}
	if j.routingPlan == nil || j.currentSequence >= len(j.routingPlan.Operations) {
		return fmt.Errorf("job %s at operation %d: %w", j.jobNumber, j.currentSequence, ErrNoRemainingOperations)
	}
	j.currentSequence++
	return nil
}

// SetPriority changes the display priority
func (j *Job) SetPriority(ladder *PriorityLadder, p Priority) error {
	if !ladder.Contains(p) {
		return fmt.Errorf("%w: %s", ErrUnknownPriority, p)
	}
	j.priority = p
	return nil
}

// SetTargetPieces changes the piece target
func (j *Job) SetTargetPieces(target int64) error {
	if target < 0 {
		return fmt.Errorf("target pieces cannot be negative, got %d", target)
	}
	j.progress.TargetPieces = target
	return nil
}

func (j *Job) SetInstructions(instructions string) { j.instructions = instructions }
func (j *Job) SetNotes(notes string)               { j.notes = notes }
func (j *Job) SetDueDate(due time.Time)            { j.dueDate = due }
func (j *Job) SetActualStart(at time.Time)         { j.actualStart = at }

// AddIssue appends an issue report without touching status
func (j *Job) AddIssue(issue IssueReport) {
	j.issues = append(j.issues, issue)
}

// Clone returns a deep copy of the job
func (j *Job) Clone() *Job {
	clone := *j
	if j.routingPlan != nil {
		plan := j.routingPlan.Clone()
		clone.routingPlan = &plan
	}
	clone.timeline = append([]TimelineEntry(nil), j.timeline...)
	clone.issues = append([]IssueReport(nil), j.issues...)
	return &clone
}
