package entities

import (
	"fmt"
	"time"
)

// JobSnapshot is the transport and persistence form of a Job
type JobSnapshot struct {
	ID              string          `json:"id"`
	JobNumber       string          `json:"jobNumber"`
	Status          Status          `json:"status"`
	Priority        Priority        `json:"priority"`
	RoutingPlan     *RoutingPlan    `json:"routingPlan,omitempty"`
	Progress        Progress        `json:"progress"`
	CurrentSequence int             `json:"currentSequence,omitempty"`
	WorkCenterID    string          `json:"workCenterId,omitempty"`
	OperationType   string          `json:"operationType,omitempty"`
	Instructions    string          `json:"instructions,omitempty"`
	Notes           string          `json:"notes,omitempty"`
	LocationID      string          `json:"locationId,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
	ScheduledStart  *time.Time      `json:"scheduledStart,omitempty"`
	ActualStart     *time.Time      `json:"actualStart,omitempty"`
	DueDate         *time.Time      `json:"dueDate,omitempty"`
	Timeline        []TimelineEntry `json:"timeline,omitempty"`
	Issues          []IssueReport   `json:"issues,omitempty"`
}

// Snapshot returns the job's current state as a JobSnapshot
func (j *Job) Snapshot() JobSnapshot {
	return JobSnapshot{
		ID:              j.id,
		JobNumber:       j.jobNumber,
		Status:          j.status,
		Priority:        j.priority,
		RoutingPlan:     j.RoutingPlan(),
		Progress:        j.progress,
		CurrentSequence: j.currentSequence,
		WorkCenterID:    j.WorkCenterID(),
		OperationType:   j.operationType,
		Instructions:    j.instructions,
		Notes:           j.notes,
		LocationID:      j.locationID,
		CreatedAt:       j.createdAt,
		ScheduledStart:  timePtr(j.scheduledStart),
		ActualStart:     timePtr(j.actualStart),
		DueDate:         timePtr(j.dueDate),
		Timeline:        j.Timeline(),
		Issues:          j.Issues(),
	}
}

// RestoreJob rebuilds a Job from a snapshot, rejecting states the registry does not allow
func RestoreJob(registry *Registry, s JobSnapshot) (*Job, error) {
	if s.ID == "" {
		return nil, fmt.Errorf("job id cannot be empty")
	}
	if s.JobNumber == "" {
		return nil, fmt.Errorf("job number cannot be empty")
	}
	if !registry.Has(s.Status) {
		return nil, fmt.Errorf("job %s: %w: %q", s.JobNumber, ErrUnknownStatus, s.Status)
	}
	if s.Progress.TargetPieces < 0 || s.Progress.CompletedPieces < 0 || s.Progress.ScrapPieces < 0 {
		return nil, fmt.Errorf("job %s: piece counts cannot be negative", s.JobNumber)
	}

	job := &Job{
		id:              s.ID,
		jobNumber:       s.JobNumber,
		status:          s.Status,
		priority:        s.Priority,
		progress:        s.Progress,
		currentSequence: s.CurrentSequence,
		operationType:   s.OperationType,
		instructions:    s.Instructions,
		notes:           s.Notes,
		locationID:      s.LocationID,
		createdAt:       s.CreatedAt,
		scheduledStart:  timeValue(s.ScheduledStart),
		actualStart:     timeValue(s.ActualStart),
		dueDate:         timeValue(s.DueDate),
		timeline:        append([]TimelineEntry(nil), s.Timeline...),
		issues:          append([]IssueReport(nil), s.Issues...),
	}
	if job.priority == "" {
		job.priority = PriorityNormal
	}

	if s.RoutingPlan != nil {
		if s.Status == StatusOrdered {
			return nil, fmt.Errorf("job %s: an %s job cannot hold a routing plan", s.JobNumber, StatusOrdered)
		}
		if err := s.RoutingPlan.Validate().Err(); err != nil {
			return nil, fmt.Errorf("job %s: %w", s.JobNumber, err)
		}
		plan := s.RoutingPlan.Clone()
		plan.Resequence()
		job.routingPlan = &plan
		if job.currentSequence < 1 || job.currentSequence > len(plan.Operations) {
			job.currentSequence = 1
		}
	} else {
		job.currentSequence = 0
	}
	return job, nil
}

// Clone returns a deep copy of the snapshot
func (s JobSnapshot) Clone() JobSnapshot {
	clone := s
	if s.RoutingPlan != nil {
		plan := s.RoutingPlan.Clone()
		clone.RoutingPlan = &plan
	}
	clone.ScheduledStart = timePtr(timeValue(s.ScheduledStart))
	clone.ActualStart = timePtr(timeValue(s.ActualStart))
	clone.DueDate = timePtr(timeValue(s.DueDate))
	clone.Timeline = append([]TimelineEntry(nil), s.Timeline...)
	clone.Issues = append([]IssueReport(nil), s.Issues...)
	return clone
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func timeValue(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}
