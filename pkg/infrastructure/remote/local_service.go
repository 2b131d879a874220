package remote

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vsinha/shopfloor/pkg/domain/entities"
	"github.com/vsinha/shopfloor/pkg/domain/repositories"
	"github.com/vsinha/shopfloor/pkg/domain/services"
	"github.com/vsinha/shopfloor/pkg/infrastructure/events"
	"github.com/vsinha/shopfloor/pkg/infrastructure/logging"
)

// DispatchQueued is the status of a freshly created dispatch job
const DispatchQueued = "QUEUED"

// LocalJobService is the authoritative job backend. It re-validates every
// transition and plan against its own registry regardless of what the caller checked.
type LocalJobService struct {
	mu         sync.Mutex
	repo       repositories.JobRepository
	registry   *entities.Registry
	ladder     *entities.PriorityLadder
	tracker    *services.ExecutionTracker
	eventStore events.EventStore
	logger     *zap.Logger
	now        func() time.Time
}

// Option configures a LocalJobService
type Option func(*LocalJobService)

// WithEventStore publishes every accepted mutation to store
func WithEventStore(store events.EventStore) Option {
	return func(s *LocalJobService) { s.eventStore = store }
}

// WithTracker sets the execution tracker used by Track
func WithTracker(tracker *services.ExecutionTracker) Option {
	return func(s *LocalJobService) { s.tracker = tracker }
}

// WithLogger sets the service logger
func WithLogger(logger *zap.Logger) Option {
	return func(s *LocalJobService) { s.logger = logging.OrNop(logger) }
}

// WithClock replaces the service time source
func WithClock(now func() time.Time) Option {
	return func(s *LocalJobService) { s.now = now }
}

// NewLocalJobService creates a job service over repo
func NewLocalJobService(
	repo repositories.JobRepository,
	registry *entities.Registry,
	ladder *entities.PriorityLadder,
	opts ...Option,
) *LocalJobService {
	s := &LocalJobService{
		repo:     repo,
		registry: registry,
		ladder:   ladder,
		logger:   zap.NewNop(),
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.tracker == nil {
		if tracker, err := services.NewExecutionTracker(registry, services.DefaultTrackerConfig()); err == nil {
			s.tracker = tracker.WithClock(func() time.Time { return s.now() })
		}
	}
	return s
}

var (
	_ repositories.JobUpdateService = (*LocalJobService)(nil)
	_ repositories.ShopFloorService = (*LocalJobService)(nil)
)

// ListJobs returns the jobs matching filter
func (s *LocalJobService) ListJobs(ctx context.Context, filter repositories.JobFilter) ([]entities.JobSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.repo.List(filter)
}

// GetJob returns one job by id, falling back to its job number
func (s *LocalJobService) GetJob(ctx context.Context, ref string) (*entities.JobSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	job, err := s.repo.Get(ref)
	if errors.Is(err, entities.ErrJobNotFound) {
		return s.repo.GetByNumber(strings.ToUpper(strings.TrimSpace(ref)))
	}
	return job, err
}

// UpdateStatus moves a job along one registry edge
func (s *LocalJobService) UpdateStatus(ctx context.Context, jobID string, update repositories.StatusUpdate) (*entities.JobSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	to, err := entities.ParseStatus(string(update.Status))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", repositories.ErrInvalidRequest, err)
	}
	if !s.registry.Has(to) {
		return nil, fmt.Errorf("%w: %w: %q", repositories.ErrInvalidRequest, entities.ErrUnknownStatus, update.Status)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	job, err := s.load(jobID)
	if err != nil {
		return nil, err
	}
	from := job.Status()
	now := s.now()
	if err := job.Transition(s.registry, to, now); err != nil {
		s.logger.Debug("status update refused",
			zap.String("job_id", jobID), zap.String("from", from.String()), zap.String("to", to.String()))
		return nil, err
	}
	if to == entities.StatusInProcess && job.ActualStart().IsZero() {
		job.SetActualStart(now)
	}

	snapshot, err := s.save(job)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("job status changed",
		zap.String("job_id", jobID), zap.String("from", from.String()), zap.String("to", to.String()))
	s.publish(events.NewJobStatusChangedEvent(snapshot, from, update.Note))
	return &snapshot, nil
}

// AttachPlan attaches or replaces a routing plan and queues a dispatch job for its first operation
func (s *LocalJobService) AttachPlan(ctx context.Context, jobID string, plan entities.RoutingPlan) (*repositories.PlanAttachment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	job, err := s.load(jobID)
	if err != nil {
		return nil, err
	}
	replanned := job.Status() == entities.StatusScheduled
	if err := job.Plan(s.registry, plan, s.now()); err != nil {
		return nil, err
	}

	snapshot, err := s.save(job)
	if err != nil {
		return nil, err
	}
	first, _ := job.CurrentOperation()
	dispatch := repositories.DispatchJob{
		ID:             uuid.NewString(),
		JobID:          job.ID(),
		Sequence:       first.Sequence,
		WorkCenterType: first.RequiredWorkCenterType,
		WorkCenterID:   first.AssignedWorkCenterID,
		Status:         DispatchQueued,
	}
	s.logger.Debug("routing plan attached",
		zap.String("job_id", jobID),
		zap.Int("operations", len(snapshot.RoutingPlan.Operations)),
		zap.Bool("replanned", replanned))
	s.publish(events.NewJobPlannedEvent(snapshot, dispatch, replanned))

	return &repositories.PlanAttachment{
		Job:         snapshot,
		DispatchJob: dispatch,
		Operations:  snapshot.RoutingPlan.Operations,
	}, nil
}

// CreateJob creates a job in ORDERED with the next free job number
func (s *LocalJobService) CreateJob(ctx context.Context, req repositories.CreateJobRequest) (*entities.JobSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if req.Status != "" && req.Status != entities.StatusOrdered {
		return nil, fmt.Errorf("%w: jobs are created in %s, got %s", repositories.ErrInvalidRequest, entities.StatusOrdered, req.Status)
	}
	priority, err := s.ladder.Parse(string(req.Priority))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", repositories.ErrInvalidRequest, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	number, err := s.repo.NextJobNumber()
	if err != nil {
		return nil, fmt.Errorf("failed to allocate job number: %w", err)
	}
	params := entities.NewJobParams{
		JobNumber:     number,
		Priority:      priority,
		OperationType: strings.TrimSpace(req.OperationType),
		Instructions:  req.Instructions,
		Notes:         req.Notes,
		LocationID:    req.LocationID,
		TargetPieces:  req.TargetPieces,
		CreatedAt:     s.now(),
	}
	if req.DueDate != nil {
		params.DueDate = *req.DueDate
	}
	job, err := entities.NewJob(params)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", repositories.ErrInvalidRequest, err)
	}

	snapshot, err := s.save(job)
	if err != nil {
		return nil, err
	}
	s.logger.Info("job created", zap.String("job_id", job.ID()), zap.String("job_number", number))
	s.publish(events.NewJobCreatedEvent(snapshot))
	return &snapshot, nil
}

// UpdateJob applies a partial update. Status cannot be changed here.
func (s *LocalJobService) UpdateJob(ctx context.Context, jobID string, patch repositories.JobPatch) (*entities.JobSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if patch.Status != nil {
		return nil, fmt.Errorf("%w: status changes must go through the status endpoint", repositories.ErrInvalidRequest)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	job, err := s.load(jobID)
	if err != nil {
		return nil, err
	}

	var fields []string
	if patch.Priority != nil {
		p, err := s.ladder.Parse(string(*patch.Priority))
		if err != nil {
			return nil, fmt.Errorf("%w: %w", repositories.ErrInvalidRequest, err)
		}
		if err := job.SetPriority(s.ladder, p); err != nil {
			return nil, fmt.Errorf("%w: %w", repositories.ErrInvalidRequest, err)
		}
		fields = append(fields, "priority")
	}
	if patch.TargetPieces != nil {
		if err := job.SetTargetPieces(*patch.TargetPieces); err != nil {
			return nil, fmt.Errorf("%w: %w", repositories.ErrInvalidRequest, err)
		}
		fields = append(fields, "targetPieces")
	}
	if patch.Instructions != nil {
		job.SetInstructions(*patch.Instructions)
		fields = append(fields, "instructions")
	}
	if patch.Notes != nil {
		job.SetNotes(*patch.Notes)
		fields = append(fields, "notes")
	}
	if patch.DueDate != nil {
		job.SetDueDate(*patch.DueDate)
		fields = append(fields, "dueDate")
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: patch has no fields", repositories.ErrInvalidRequest)
	}

	snapshot, err := s.save(job)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("job updated", zap.String("job_id", jobID), zap.Strings("fields", fields))
	s.publish(events.NewJobUpdatedEvent(snapshot, fields))
	return &snapshot, nil
}

// Track runs one shop-floor action through the execution tracker
func (s *LocalJobService) Track(ctx context.Context, jobID string, req repositories.TrackRequest) (*entities.JobSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.tracker == nil {
		return nil, fmt.Errorf("execution tracker is not configured")
	}
	action := strings.ToLower(strings.TrimSpace(req.Action))

	s.mu.Lock()
	defer s.mu.Unlock()

	job, err := s.load(jobID)
	if err != nil {
		return nil, err
	}
	from := job.Status()

	var field string
	switch action {
	case repositories.ActionStart:
		err = s.tracker.Start(job)
	case repositories.ActionPause:
		err = s.tracker.Pause(job)
	case repositories.ActionComplete:
		err = s.tracker.Complete(job)
	case repositories.ActionHold:
		err = s.tracker.Hold(job)
	case repositories.ActionCancel:
		err = s.tracker.Cancel(job)
	case repositories.ActionResume:
		to, perr := entities.ParseStatus(string(req.ResumeTo))
		if perr != nil || !s.registry.Has(to) {
			return nil, fmt.Errorf("%w: resume needs a known status, got %q", repositories.ErrInvalidRequest, req.ResumeTo)
		}
		err = s.tracker.Resume(job, to)
	case repositories.ActionOutput:
		field = "progress"
		err = s.tracker.RecordOutput(job, req.Good, req.Scrap)
		if errors.Is(err, entities.ErrNegativeDelta) {
			err = fmt.Errorf("%w: %w", repositories.ErrInvalidRequest, err)
		}
	case repositories.ActionAdvance:
		field = "currentSequence"
		err = s.tracker.AdvanceOperation(job)
	case repositories.ActionIssue:
		if strings.TrimSpace(req.Message) == "" {
			return nil, fmt.Errorf("%w: issue message cannot be empty", repositories.ErrInvalidRequest)
		}
		field = "issues"
		err = s.tracker.ReportIssue(job, services.IssueInput{
			Category:   req.Category,
			Message:    req.Message,
			ReportedBy: req.ReportedBy,
		})
	default:
		return nil, fmt.Errorf("%w: unknown action %q", repositories.ErrInvalidRequest, req.Action)
	}
	if err != nil {
		s.logger.Debug("shop-floor action refused",
			zap.String("job_id", jobID), zap.String("action", action), zap.Error(err))
		return nil, err
	}

	snapshot, err := s.save(job)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("shop-floor action applied", zap.String("job_id", jobID), zap.String("action", action))
	if snapshot.Status != from {
		s.publish(events.NewJobStatusChangedEvent(snapshot, from, action))
	} else {
		s.publish(events.NewJobUpdatedEvent(snapshot, []string{field}))
	}
	return &snapshot, nil
}

func (s *LocalJobService) load(jobID string) (*entities.Job, error) {
	stored, err := s.repo.Get(jobID)
	if err != nil {
		return nil, err
	}
	job, err := entities.RestoreJob(s.registry, *stored)
	if err != nil {
		return nil, fmt.Errorf("stored job %s is invalid: %w", jobID, err)
	}
	return job, nil
}

func (s *LocalJobService) save(job *entities.Job) (entities.JobSnapshot, error) {
	snapshot := job.Snapshot()
	if err := s.repo.Save(snapshot); err != nil {
		s.logger.Error("failed to save job", zap.String("job_id", job.ID()), zap.Error(err))
		return entities.JobSnapshot{}, fmt.Errorf("failed to save job %s: %w", job.JobNumber(), err)
	}
	return snapshot, nil
}

func (s *LocalJobService) publish(event events.Event) {
	if s.eventStore == nil {
		return
	}
	if err := s.eventStore.AppendEvent(event.StreamID(), event); err != nil {
		s.logger.Warn("failed to append event", zap.String("event_type", event.Type()), zap.Error(err))
	}
}
