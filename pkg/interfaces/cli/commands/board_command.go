package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/vsinha/shopfloor/pkg/application/dto"
	"github.com/vsinha/shopfloor/pkg/application/services/board"
	"github.com/vsinha/shopfloor/pkg/domain/entities"
	"github.com/vsinha/shopfloor/pkg/domain/repositories"
	"github.com/vsinha/shopfloor/pkg/interfaces/cli/output"
)

// ErrChangesRolledBack is returned when the backend refused at least one board change
var ErrChangesRolledBack = errors.New("board changes rolled back")

// BoardConfig holds configuration for the board command
type BoardConfig struct {
	Global       GlobalConfig
	Remote       string
	Status       string
	WorkCenterID string
	LocationID   string
	// Moves are JOB=column pairs, Priorities are JOB=priority pairs. JOB is an id or a job number.
	Moves      []string
	Priorities []string
}

// BoardCommand loads the board from a job service, applies changes and prints the result
type BoardCommand struct {
	config BoardConfig
}

// NewBoardCommand creates a new board command with the given configuration
func NewBoardCommand(config BoardConfig) *BoardCommand {
	return &BoardCommand{config: config}
}

// Execute runs the board command
func (c *BoardCommand) Execute(ctx context.Context) error {
	env, err := NewEnv(c.config.Global)
	if err != nil {
		return err
	}
	defer env.Close()

	client, err := env.Client(c.config.Remote)
	if err != nil {
		return err
	}
	engine, err := board.NewEngine(client, env.Registry, env.Ladder, board.WithLogger(env.Logger))
	if err != nil {
		return err
	}

	filter, err := c.filter(env.Registry)
	if err != nil {
		return err
	}
	if err := engine.Load(ctx, filter); err != nil {
		return fmt.Errorf("failed to load board: %w", err)
	}

	// Changes already in flight still settle and are reported when a later one is refused.
	tickets, issueErr := c.issue(ctx, engine)

	results := make([]board.MoveResult, 0, len(tickets))
	rolledBack := 0
	for _, ticket := range tickets {
		result, err := ticket.Wait(ctx)
		if err != nil {
			return err
		}
		if result.State == board.MoveRolledBack {
			rolledBack++
		}
		results = append(results, result)
	}
	engine.Wait()

	if len(results) > 0 {
		if err := output.Moves(results, env.Output); err != nil {
			return err
		}
	}
	if issueErr != nil {
		return issueErr
	}
	if err := output.Board(engine.Columns(), env.Output); err != nil {
		return err
	}
	if rolledBack > 0 {
		return fmt.Errorf("%w: %d of %d", ErrChangesRolledBack, rolledBack, len(results))
	}
	return nil
}

// issue starts every requested change in order and stops at the first one the engine refuses.
// The tickets issued before the refusal are returned alongside the error.
func (c *BoardCommand) issue(ctx context.Context, engine *board.Engine) ([]*board.Ticket, error) {
	var tickets []*board.Ticket
	for _, raw := range c.config.Moves {
		ref, column, err := splitPair(raw, "move")
		if err != nil {
			return tickets, err
		}
		jobID, err := resolveCard(engine.Columns(), ref)
		if err != nil {
			return tickets, err
		}
		ticket, err := engine.Move(ctx, jobID, entities.ColumnID(strings.ToLower(column)))
		if err != nil {
			return tickets, fmt.Errorf("move %s: %w", ref, err)
		}
		tickets = append(tickets, ticket)
	}
	for _, raw := range c.config.Priorities {
		ref, level, err := splitPair(raw, "priority")
		if err != nil {
			return tickets, err
		}
		jobID, err := resolveCard(engine.Columns(), ref)
		if err != nil {
			return tickets, err
		}
		ticket, err := engine.UpdatePriority(ctx, jobID, entities.Priority(level))
		if err != nil {
			return tickets, fmt.Errorf("priority %s: %w", ref, err)
		}
		tickets = append(tickets, ticket)
	}
	return tickets, nil
}

func (c *BoardCommand) filter(registry *entities.Registry) (repositories.JobFilter, error) {
	filter := repositories.JobFilter{
		WorkCenterID: c.config.WorkCenterID,
		LocationID:   c.config.LocationID,
	}
	if c.config.Status != "" {
		status, err := entities.ParseStatus(c.config.Status)
		if err != nil || !registry.Has(status) {
			return filter, fmt.Errorf("%w: %q", entities.ErrUnknownStatus, c.config.Status)
		}
		filter.Status = status
	}
	return filter, nil
}

func splitPair(raw, kind string) (string, string, error) {
	ref, value, ok := strings.Cut(raw, "=")
	ref, value = strings.TrimSpace(ref), strings.TrimSpace(value)
	if !ok || ref == "" || value == "" {
		return "", "", fmt.Errorf("invalid %s %q, expected JOB=VALUE", kind, raw)
	}
	return ref, value, nil
}

// resolveCard finds a card by id or job number
func resolveCard(view dto.BoardView, ref string) (string, error) {
	for _, col := range view.Columns {
		for _, card := range col.Cards {
			if card.ID == ref || strings.EqualFold(card.JobNumber, ref) {
				return card.ID, nil
			}
		}
	}
	return "", fmt.Errorf("%w: %s is not on the board", entities.ErrJobNotFound, ref)
}

// findJob looks a job up by id or job number
func findJob(ctx context.Context, jobs repositories.ShopFloorService, ref string) (entities.JobSnapshot, error) {
	job, err := jobs.GetJob(ctx, strings.TrimSpace(ref))
	if err != nil {
		return entities.JobSnapshot{}, fmt.Errorf("job %s: %w", ref, err)
	}
	return *job, nil
}
