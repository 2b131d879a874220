package events

import (
	"time"

	"github.com/vsinha/shopfloor/pkg/domain/entities"
	"github.com/vsinha/shopfloor/pkg/domain/repositories"
)

const (
	JobCreatedEvent       = "job.created"
	JobStatusChangedEvent = "job.status.changed"
	JobPlannedEvent       = "job.planned"
	JobReplannedEvent     = "job.replanned"
	JobUpdatedEvent       = "job.updated"

	BoardMoveConfirmedEvent  = "board.move.confirmed"
	BoardMoveRolledBackEvent = "board.move.rolled_back"
	BoardMoveRejectedEvent   = "board.move.rejected"
)

// JobEventTypes lists every job lifecycle event type
var JobEventTypes = []string{
	JobCreatedEvent,
	JobStatusChangedEvent,
	JobPlannedEvent,
	JobReplannedEvent,
	JobUpdatedEvent,
}

// BoardEventTypes lists every board reconciliation event type
var BoardEventTypes = []string{
	BoardMoveConfirmedEvent,
	BoardMoveRolledBackEvent,
	BoardMoveRejectedEvent,
}

type JobCreated struct {
	Job entities.JobSnapshot `json:"job"`
}

type JobStatusChanged struct {
	JobID     string          `json:"jobId"`
	JobNumber string          `json:"jobNumber"`
	From      entities.Status `json:"from"`
	To        entities.Status `json:"to"`
	Note      string          `json:"note,omitempty"`
	At        time.Time       `json:"at"`
}

type JobPlanned struct {
	Job         entities.JobSnapshot     `json:"job"`
	DispatchJob repositories.DispatchJob `json:"dispatchJob"`
}

type JobUpdated struct {
	Job    entities.JobSnapshot `json:"job"`
	Fields []string             `json:"fields"`
}

// BoardMove describes how one optimistic board change was resolved
type BoardMove struct {
	JobID     string          `json:"jobId"`
	JobNumber string          `json:"jobNumber"`
	Field     string          `json:"field"`
	From      string          `json:"from"`
	To        string          `json:"to"`
	Status    entities.Status `json:"status"`
	Reason    string          `json:"reason,omitempty"`
}

func NewJobCreatedEvent(job entities.JobSnapshot) Event {
	return NewEvent(JobCreatedEvent, job.ID, JobCreated{Job: job})
}

func NewJobStatusChangedEvent(job entities.JobSnapshot, from entities.Status, note string) Event {
	at := time.Now().UTC()
	if n := len(job.Timeline); n > 0 {
		at = job.Timeline[n-1].At
	}
	return NewEvent(JobStatusChangedEvent, job.ID, JobStatusChanged{
		JobID:     job.ID,
		JobNumber: job.JobNumber,
		From:      from,
		To:        job.Status,
		Note:      note,
		At:        at,
	})
}

func NewJobPlannedEvent(job entities.JobSnapshot, dispatch repositories.DispatchJob, replanned bool) Event {
	eventType := JobPlannedEvent
	if replanned {
		eventType = JobReplannedEvent
	}
	return NewEvent(eventType, job.ID, JobPlanned{Job: job, DispatchJob: dispatch})
}

func NewJobUpdatedEvent(job entities.JobSnapshot, fields []string) Event {
	return NewEvent(JobUpdatedEvent, job.ID, JobUpdated{Job: job, Fields: fields})
}

// NewBoardMoveEvent builds one of the board.move.* events
func NewBoardMoveEvent(eventType string, move BoardMove) Event {
	return NewEvent(eventType, move.JobID, move)
}
