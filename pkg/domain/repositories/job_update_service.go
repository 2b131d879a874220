package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vsinha/shopfloor/pkg/domain/entities"
)

// ErrInvalidRequest marks a request the job service refuses before touching any job
var ErrInvalidRequest = errors.New("invalid request")

// StatusUpdate asks the backend to move a job to Status
type StatusUpdate struct {
	Status entities.Status `json:"status"`
	Note   string          `json:"note,omitempty"`
}

// CreateJobRequest creates a job in ORDERED
type CreateJobRequest struct {
	OperationType string            `json:"operationType"`
	Priority      entities.Priority `json:"priority"`
	Instructions  string            `json:"instructions"`
	Notes         string            `json:"notes"`
	Status        entities.Status   `json:"status,omitempty"`
	TargetPieces  int64             `json:"targetPieces,omitempty"`
	DueDate       *time.Time        `json:"dueDate,omitempty"`
	LocationID    string            `json:"locationId,omitempty"`
}

// JobPatch is a partial update. Nil fields are left untouched; Status is always refused.
type JobPatch struct {
	Priority     *entities.Priority `json:"priority,omitempty"`
	Instructions *string            `json:"instructions,omitempty"`
	Notes        *string            `json:"notes,omitempty"`
	TargetPieces *int64             `json:"targetPieces,omitempty"`
	DueDate      *time.Time         `json:"dueDate,omitempty"`
	Status       *entities.Status   `json:"status,omitempty"`
}

// DispatchJob is the shop-floor work item created for the first operation of a plan
type DispatchJob struct {
	ID             string `json:"id"`
	JobID          string `json:"jobId"`
	Sequence       int    `json:"sequence"`
	WorkCenterType string `json:"workCenterType"`
	WorkCenterID   string `json:"workCenterId,omitempty"`
	Status         string `json:"status"`
}

// PlanAttachment is the result of attaching or replacing a routing plan
type PlanAttachment struct {
	Job         entities.JobSnapshot `json:"job"`
	DispatchJob DispatchJob          `json:"dispatchJob"`
	Operations  []entities.Operation `json:"operations"`
}

// JobUpdateService is the authoritative backend for job mutations.
// Implementations re-validate transitions and plans independently of the caller.
type JobUpdateService interface {
	ListJobs(ctx context.Context, filter JobFilter) ([]entities.JobSnapshot, error)
	UpdateStatus(ctx context.Context, jobID string, update StatusUpdate) (*entities.JobSnapshot, error)
	AttachPlan(ctx context.Context, jobID string, plan entities.RoutingPlan) (*PlanAttachment, error)
	CreateJob(ctx context.Context, req CreateJobRequest) (*entities.JobSnapshot, error)
	UpdateJob(ctx context.Context, jobID string, patch JobPatch) (*entities.JobSnapshot, error)
}

// RemoteError is a failed call to a remote job service
type RemoteError struct {
	Op         string
	StatusCode int
	Message    string
	Err        error
}

func (e *RemoteError) Error() string {
	switch {
	case e.StatusCode != 0:
		return fmt.Sprintf("%s: %v: %d %s", e.Op, entities.ErrRemoteFailure, e.StatusCode, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v: %v", e.Op, entities.ErrRemoteFailure, e.Err)
	default:
		return fmt.Sprintf("%s: %v", e.Op, entities.ErrRemoteFailure)
	}
}

func (e *RemoteError) Unwrap() []error {
	if e.Err != nil {
		return []error{entities.ErrRemoteFailure, e.Err}
	}
	return []error{entities.ErrRemoteFailure}
}

// Shop-floor actions accepted by Track
const (
	ActionStart    = "start"
	ActionPause    = "pause"
	ActionComplete = "complete"
	ActionOutput   = "output"
	ActionAdvance  = "advance"
	ActionIssue    = "issue"
	ActionHold     = "hold"
	ActionResume   = "resume"
	ActionCancel   = "cancel"
)

// TrackRequest is one named shop-floor action on a job
type TrackRequest struct {
	Action     string          `json:"action"`
	Good       int64           `json:"good,omitempty"`
	Scrap      int64           `json:"scrap,omitempty"`
	ResumeTo   entities.Status `json:"resumeTo,omitempty"`
	Category   string          `json:"category,omitempty"`
	Message    string          `json:"message,omitempty"`
	ReportedBy string          `json:"reportedBy,omitempty"`
}

// ShopFloorService runs execution tracker actions against the authoritative job state
type ShopFloorService interface {
	// GetJob resolves ref as a job id first, then as a job number
	GetJob(ctx context.Context, ref string) (*entities.JobSnapshot, error)
	Track(ctx context.Context, jobID string, req TrackRequest) (*entities.JobSnapshot, error)
}
