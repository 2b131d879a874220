package planning

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/vsinha/shopfloor/pkg/domain/entities"
	"github.com/vsinha/shopfloor/pkg/domain/repositories"
	"github.com/vsinha/shopfloor/pkg/domain/services"
	"github.com/vsinha/shopfloor/pkg/infrastructure/logging"
)

// PlanningService builds routing plans against the work center catalog and
// attaches them through the job service
type PlanningService struct {
	jobs     repositories.JobUpdateService
	catalog  repositories.WorkCenterCatalog
	registry *entities.Registry
	logger   *zap.Logger
	now      func() time.Time
}

// NewPlanningService creates a new planning service
func NewPlanningService(
	jobs repositories.JobUpdateService,
	catalog repositories.WorkCenterCatalog,
	registry *entities.Registry,
	logger *zap.Logger,
) *PlanningService {
	logger = logging.OrNop(logger)
	return &PlanningService{
		jobs:     jobs,
		catalog:  catalog,
		registry: registry,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Session is one planning session for a job. The builder edits a draft; nothing
// reaches the job until Attach.
type Session struct {
	Job     entities.JobSnapshot
	Builder *services.RoutingPlanBuilder
}

// NewSession opens a planning session. A SCHEDULED job starts from its current
// plan (replan); an ORDERED job starts from an empty draft seeded with its location.
func (ps *PlanningService) NewSession(job entities.JobSnapshot) (*Session, error) {
	switch job.Status {
	case entities.StatusOrdered:
		builder := services.NewRoutingPlanBuilder(ps.catalog)
		meta := entities.PlanMetadata{LocationID: job.LocationID}
		if job.DueDate != nil {
			meta.DueDate = *job.DueDate
		}
		meta.Division = ps.divisionOf(job.LocationID)
		builder.SetMetadata(meta)
		return &Session{Job: job, Builder: builder}, nil
	case entities.StatusScheduled:
		if job.RoutingPlan == nil {
			return &Session{Job: job, Builder: services.NewRoutingPlanBuilder(ps.catalog)}, nil
		}
		return &Session{Job: job, Builder: services.NewRoutingPlanBuilderFrom(ps.catalog, *job.RoutingPlan)}, nil
	default:
		return nil, &entities.TransitionError{
			JobNumber: job.JobNumber,
			From:      job.Status,
			To:        entities.StatusScheduled,
			Reason:    "only ORDERED or SCHEDULED jobs can be planned",
		}
	}
}

// Attach validates plan locally, checks that the job can take it and then asks
// the job service to attach it. Nothing is sent when the local checks fail.
func (ps *PlanningService) Attach(ctx context.Context, job entities.JobSnapshot, plan entities.RoutingPlan) (*repositories.PlanAttachment, error) {
	if err := plan.Validate().Err(); err != nil {
		return nil, fmt.Errorf("job %s: %w", job.JobNumber, err)
	}

	trial, err := entities.RestoreJob(ps.registry, job)
	if err != nil {
		return nil, fmt.Errorf("job %s: %w", job.JobNumber, err)
	}
	if err := trial.Plan(ps.registry, plan, ps.now()); err != nil {
		return nil, err
	}

	attachment, err := ps.jobs.AttachPlan(ctx, job.ID, plan)
	if err != nil {
		ps.logger.Warn("plan attach failed", zap.String("job_id", job.ID), zap.Error(err))
		return nil, fmt.Errorf("failed to attach plan to job %s: %w", job.JobNumber, err)
	}
	ps.logger.Info("plan attached",
		zap.String("job_id", job.ID),
		zap.String("job_number", job.JobNumber),
		zap.Int("operations", len(attachment.Operations)),
		zap.String("dispatch_id", attachment.DispatchJob.ID))
	return attachment, nil
}

// Commit builds the session's draft and attaches it
func (ps *PlanningService) Commit(ctx context.Context, session *Session) (*repositories.PlanAttachment, error) {
	plan, err := session.Builder.Build()
	if err != nil {
		return nil, fmt.Errorf("job %s: %w", session.Job.JobNumber, err)
	}
	return ps.Attach(ctx, session.Job, plan)
}

// PlanFromTemplate plans a job from a named catalog template in one step
func (ps *PlanningService) PlanFromTemplate(ctx context.Context, job entities.JobSnapshot, template string) (*repositories.PlanAttachment, error) {
	session, err := ps.NewSession(job)
	if err != nil {
		return nil, err
	}
	if err := session.Builder.FromTemplate(template); err != nil {
		return nil, err
	}
	return ps.Commit(ctx, session)
}

func (ps *PlanningService) divisionOf(locationID string) string {
	if locationID == "" {
		return ""
	}
	locations, err := ps.catalog.GetLocations()
	if err != nil {
		return ""
	}
	for _, loc := range locations {
		if loc.ID == locationID {
			return loc.Division
		}
	}
	return ""
}
