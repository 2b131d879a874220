package board

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/vsinha/shopfloor/pkg/application/dto"
	"github.com/vsinha/shopfloor/pkg/domain/entities"
	"github.com/vsinha/shopfloor/pkg/domain/repositories"
	"github.com/vsinha/shopfloor/pkg/infrastructure/events"
	"github.com/vsinha/shopfloor/pkg/infrastructure/logging"
)

const (
	FieldStatus   = "status"
	FieldPriority = "priority"
)

// Engine keeps a local view of jobs for a kanban board, applies moves
// optimistically and reconciles them against the job service.
// Columns are derived from status on every read.
type Engine struct {
	mu       sync.Mutex
	service  repositories.JobUpdateService
	registry *entities.Registry
	ladder   *entities.PriorityLadder
	jobs     map[string]*entities.Job
	pending  map[string]*Ticket

	// generation counts local changes per job so a refresh never overwrites a newer one
	generation map[string]uint64

	observers  []Observer
	eventStore events.EventStore
	logger     *zap.Logger
	now        func() time.Time
	inflight   sync.WaitGroup
}

// Option configures an Engine
type Option func(*Engine)

// WithObserver registers an observer for resolved changes
func WithObserver(observer Observer) Option {
	return func(e *Engine) { e.observers = append(e.observers, observer) }
}

// WithEventStore publishes board.move.* events to store
func WithEventStore(store events.EventStore) Option {
	return func(e *Engine) { e.eventStore = store }
}

// WithLogger sets the engine logger
func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) { e.logger = logging.OrNop(logger) }
}

// WithClock replaces the time source used for optimistic timeline entries
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// NewEngine creates a board engine over service
func NewEngine(
	service repositories.JobUpdateService,
	registry *entities.Registry,
	ladder *entities.PriorityLadder,
	opts ...Option,
) (*Engine, error) {
	if service == nil {
		return nil, fmt.Errorf("job update service cannot be nil")
	}
	if registry == nil {
		return nil, fmt.Errorf("status registry cannot be nil")
	}
	if ladder == nil {
		return nil, fmt.Errorf("priority ladder cannot be nil")
	}
	e := &Engine{
		service:    service,
		registry:   registry,
		ladder:     ladder,
		jobs:       make(map[string]*entities.Job),
		pending:    make(map[string]*Ticket),
		generation: make(map[string]uint64),
		logger:     zap.NewNop(),
		now:        func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Load fills the board from the job service
func (e *Engine) Load(ctx context.Context, filter repositories.JobFilter) error {
	return e.Refresh(ctx, filter)
}

// Refresh replaces the local view with the service's jobs. Jobs with a
// pending change keep their optimistic state until it resolves, and jobs
// changed locally while the listing was in flight keep their newer state.
func (e *Engine) Refresh(ctx context.Context, filter repositories.JobFilter) error {
	e.mu.Lock()
	seen := make(map[string]uint64, len(e.generation))
	for id, gen := range e.generation {
		seen[id] = gen
	}
	e.mu.Unlock()

	snapshots, err := e.service.ListJobs(ctx, filter)
	if err != nil {
		return fmt.Errorf("failed to load board: %w", err)
	}

	jobs := make(map[string]*entities.Job, len(snapshots))
	for _, s := range snapshots {
		job, err := entities.RestoreJob(e.registry, s)
		if err != nil {
			return fmt.Errorf("failed to load board: %w", err)
		}
		jobs[job.ID()] = job
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	for id := range e.pending {
		if current, ok := e.jobs[id]; ok {
			jobs[id] = current
		}
	}
	for id, gen := range e.generation {
		if seen[id] == gen {
			continue
		}
		if current, ok := e.jobs[id]; ok {
			jobs[id] = current
		}
	}
	e.jobs = jobs
	e.logger.Debug("board refreshed", zap.Int("jobs", len(jobs)))
	return nil
}

// Columns groups the current jobs into the registry's columns
func (e *Engine) Columns() dto.BoardView {
	e.mu.Lock()
	defer e.mu.Unlock()

	byColumn := make(map[entities.ColumnID][]cardSource)
	for id, job := range e.jobs {
		col := e.registry.ColumnOf(job.Status())
		_, pending := e.pending[id]
		byColumn[col] = append(byColumn[col], cardSource{job: job, pending: pending})
	}

	columns := e.registry.Columns()
	view := dto.BoardView{Columns: make([]dto.ColumnView, 0, len(columns))}
	for _, col := range columns {
		sources := byColumn[col.ID]
		e.sortCards(sources)
		cards := make([]dto.JobCard, 0, len(sources))
		for _, src := range sources {
			cards = append(cards, e.card(src))
		}
		view.Columns = append(view.Columns, dto.ColumnView{ID: col.ID, Title: col.Title, Cards: cards})
	}
	return view
}

// cardSource pairs a cached job with its pending flag while cards are built
type cardSource struct {
	job     *entities.Job
	pending bool
}

func (e *Engine) card(src cardSource) dto.JobCard {
	job := src.job
	card := dto.JobCard{
		ID:              job.ID(),
		JobNumber:       job.JobNumber(),
		Status:          job.Status(),
		Column:          e.registry.ColumnOf(job.Status()),
		Priority:        job.Priority(),
		ProgressPercent: job.ProgressPercent(),
		WorkCenterID:    job.WorkCenterID(),
		Pending:         src.pending,
	}
	if due := job.DueDate(); !due.IsZero() {
		card.DueDate = &due
	}
	return card
}

// sortCards orders by priority (highest first), then due date (undated last), then job number
func (e *Engine) sortCards(sources []cardSource) {
	sort.SliceStable(sources, func(i, j int) bool {
		a, b := sources[i].job, sources[j].job
		if ra, rb := e.ladder.Rank(a.Priority()), e.ladder.Rank(b.Priority()); ra != rb {
			return ra > rb
		}
		da, db := a.DueDate(), b.DueDate()
		switch {
		case da.IsZero() && !db.IsZero():
			return false
		case !da.IsZero() && db.IsZero():
			return true
		case !da.Equal(db):
			return da.Before(db)
		}
		return a.JobNumber() < b.JobNumber()
	})
}

// Job returns the board's current view of one job
func (e *Engine) Job(jobID string) (entities.JobSnapshot, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	job, ok := e.jobs[jobID]
	if !ok {
		return entities.JobSnapshot{}, false
	}
	return job.Snapshot(), true
}

// Pending reports whether jobID has an unresolved change
func (e *Engine) Pending(jobID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.pending[jobID]
	return ok
}

// Move drops a job onto a column. The status implied by the column is applied
// locally at once and confirmed or rolled back when the service answers.
func (e *Engine) Move(ctx context.Context, jobID string, column entities.ColumnID) (*Ticket, error) {
	target, ok := e.registry.DropStatus(column)
	if !ok {
		return nil, fmt.Errorf("%w: %q", entities.ErrUnknownColumn, column)
	}
	return e.moveStatus(ctx, jobID, target, column)
}

// MoveToStatus moves a job to target with the same optimistic rules as Move
func (e *Engine) MoveToStatus(ctx context.Context, jobID string, target entities.Status) (*Ticket, error) {
	if !e.registry.Has(target) {
		return nil, fmt.Errorf("%w: %q", entities.ErrUnknownStatus, target)
	}
	return e.moveStatus(ctx, jobID, target, "")
}

// moveStatus treats a drop onto the job's own column as a no-op
func (e *Engine) moveStatus(ctx context.Context, jobID string, target entities.Status, column entities.ColumnID) (*Ticket, error) {
	e.mu.Lock()
	job, err := e.lockedJob(jobID)
	if err != nil {
		e.mu.Unlock()
		return nil, err
	}
	from := job.Status()
	if from == target || (column != "" && e.registry.ColumnOf(from) == column) {
		result := MoveResult{
			JobID: jobID, JobNumber: job.JobNumber(), Field: FieldStatus,
			From: from.String(), To: target.String(), State: MoveNoop, Job: job.Snapshot(),
		}
		e.mu.Unlock()
		return resolvedTicket(result), nil
	}

	before := job.Clone()
	if err := job.Transition(e.registry, target, e.now()); err != nil {
		result := MoveResult{
			JobID: jobID, JobNumber: job.JobNumber(), Field: FieldStatus,
			From: from.String(), To: target.String(), State: MoveRejected, Job: job.Snapshot(), Err: err,
		}
		e.mu.Unlock()
		e.logger.Debug("board move rejected",
			zap.String("job_id", jobID), zap.String("from", from.String()), zap.String("to", target.String()))
		e.notify(result)
		return nil, err
	}

	c := change{
		jobID:     jobID,
		jobNumber: job.JobNumber(),
		field:     FieldStatus,
		from:      from.String(),
		to:        target.String(),
		before:    before,
		call: func(ctx context.Context) (*entities.JobSnapshot, error) {
			return e.service.UpdateStatus(ctx, jobID, repositories.StatusUpdate{Status: target})
		},
		applied: func(s *entities.JobSnapshot) (string, bool) {
			return s.Status.String(), s.Status == target
		},
	}
	ticket := e.lockedStart(ctx, c)
	e.mu.Unlock()
	return ticket, nil
}

// UpdatePriority changes a job's priority optimistically, reconciling like a move
func (e *Engine) UpdatePriority(ctx context.Context, jobID string, priority entities.Priority) (*Ticket, error) {
	p, err := e.ladder.Parse(string(priority))
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	job, err := e.lockedJob(jobID)
	if err != nil {
		e.mu.Unlock()
		return nil, err
	}
	from := job.Priority()
	if from == p {
		result := MoveResult{
			JobID: jobID, JobNumber: job.JobNumber(), Field: FieldPriority,
			From: from.String(), To: p.String(), State: MoveNoop, Job: job.Snapshot(),
		}
		e.mu.Unlock()
		return resolvedTicket(result), nil
	}

	before := job.Clone()
	if err := job.SetPriority(e.ladder, p); err != nil {
		e.mu.Unlock()
		return nil, err
	}

	c := change{
		jobID:     jobID,
		jobNumber: job.JobNumber(),
		field:     FieldPriority,
		from:      from.String(),
		to:        p.String(),
		before:    before,
		call: func(ctx context.Context) (*entities.JobSnapshot, error) {
			return e.service.UpdateJob(ctx, jobID, repositories.JobPatch{Priority: &p})
		},
		applied: func(s *entities.JobSnapshot) (string, bool) {
			return s.Priority.String(), s.Priority == p
		},
	}
	ticket := e.lockedStart(ctx, c)
	e.mu.Unlock()
	return ticket, nil
}

// Wait blocks until every in-flight change has resolved
func (e *Engine) Wait() {
	e.inflight.Wait()
}

// change is one optimistic mutation awaiting the service
type change struct {
	jobID     string
	jobNumber string
	field     string
	from      string
	to        string
	before    *entities.Job
	call      func(ctx context.Context) (*entities.JobSnapshot, error)
	applied   func(s *entities.JobSnapshot) (got string, ok bool)
}

// lockedJob must be called with e.mu held
func (e *Engine) lockedJob(jobID string) (*entities.Job, error) {
	job, ok := e.jobs[jobID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", entities.ErrJobNotFound, jobID)
	}
	if _, busy := e.pending[jobID]; busy {
		return nil, fmt.Errorf("job %s: %w", job.JobNumber(), entities.ErrMovePending)
	}
	return job, nil
}

// lockedStart must be called with e.mu held
func (e *Engine) lockedStart(ctx context.Context, c change) *Ticket {
	ticket := newTicket()
	e.pending[c.jobID] = ticket
	e.generation[c.jobID]++
	e.inflight.Add(1)
	go e.reconcile(context.WithoutCancel(ctx), ticket, c)
	return ticket
}

func (e *Engine) reconcile(ctx context.Context, ticket *Ticket, c change) {
	defer e.inflight.Done()

	snapshot, err := e.callService(ctx, c)
	result := e.settle(c, snapshot, err)
	e.notify(result)
	ticket.resolve(result)
}

func (e *Engine) callService(ctx context.Context, c change) (snapshot *entities.JobSnapshot, err error) {
	defer func() {
		if r := recover(); r != nil {
			snapshot = nil
			err = fmt.Errorf("job service panicked: %v", r)
		}
	}()
	return c.call(ctx)
}

// settle applies the service's answer to the cache and clears the pending change
func (e *Engine) settle(c change, snapshot *entities.JobSnapshot, callErr error) MoveResult {
	result := MoveResult{JobID: c.jobID, JobNumber: c.jobNumber, Field: c.field, From: c.from, To: c.to}

	switch {
	case callErr != nil:
		if !errors.Is(callErr, entities.ErrRemoteFailure) {
			callErr = fmt.Errorf("%w: %w", entities.ErrRemoteFailure, callErr)
		}
		result.Err = fmt.Errorf("job %s: %s %s -> %s: %w", c.jobNumber, c.field, c.from, c.to, callErr)
	case snapshot == nil:
		result.Err = fmt.Errorf("job %s: %s %s -> %s: %w: empty response", c.jobNumber, c.field, c.from, c.to, entities.ErrRemoteFailure)
	default:
		if got, ok := c.applied(snapshot); !ok {
			result.Err = fmt.Errorf("job %s: %s %s -> %s: %w: %w: got %s",
				c.jobNumber, c.field, c.from, c.to, entities.ErrRemoteFailure, ErrRejectedByBackend, got)
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.pending, c.jobID)
	e.generation[c.jobID]++

	if result.Err != nil {
		e.jobs[c.jobID] = c.before
		result.State = MoveRolledBack
		result.Job = c.before.Snapshot()
		e.logger.Warn("board change rolled back",
			zap.String("job_id", c.jobID),
			zap.String("field", c.field),
			zap.String("from", c.from),
			zap.String("to", c.to),
			zap.Error(result.Err))
		return result
	}

	result.State = MoveConfirmed
	if confirmed, err := entities.RestoreJob(e.registry, *snapshot); err == nil {
		e.jobs[c.jobID] = confirmed
	} else {
		e.logger.Warn("keeping optimistic job, service snapshot is invalid",
			zap.String("job_id", c.jobID), zap.Error(err))
	}
	result.Job = e.jobs[c.jobID].Snapshot()
	e.logger.Debug("board change confirmed",
		zap.String("job_id", c.jobID), zap.String("field", c.field), zap.String("to", c.to))
	return result
}

func (e *Engine) notify(result MoveResult) {
	for _, observer := range e.observers {
		observer.MoveResolved(result)
	}
	if e.eventStore == nil {
		return
	}

	eventType := events.BoardMoveConfirmedEvent
	switch result.State {
	case MoveRolledBack:
		eventType = events.BoardMoveRolledBackEvent
	case MoveRejected:
		eventType = events.BoardMoveRejectedEvent
	}
	move := events.BoardMove{
		JobID:     result.JobID,
		JobNumber: result.JobNumber,
		Field:     result.Field,
		From:      result.From,
		To:        result.To,
		Status:    result.Job.Status,
	}
	if result.Err != nil {
		move.Reason = result.Err.Error()
	}
	if err := e.eventStore.AppendEvent(result.JobID, events.NewBoardMoveEvent(eventType, move)); err != nil {
		e.logger.Warn("failed to append board event", zap.String("event_type", eventType), zap.Error(err))
	}
}
