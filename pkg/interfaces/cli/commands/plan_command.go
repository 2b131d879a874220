package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/vsinha/shopfloor/pkg/application/services/planning"
	"github.com/vsinha/shopfloor/pkg/domain/services"
	"github.com/vsinha/shopfloor/pkg/infrastructure/repositories/csv"
	"github.com/vsinha/shopfloor/pkg/interfaces/cli/output"
)

// PlanConfig holds configuration for the plan command
type PlanConfig struct {
	Global   GlobalConfig
	Remote   string
	Scenario string
	Job      string
	Template string
	// Operations are appended after the template, each TYPE or TYPE@WORKCENTER
	Operations []string
}

// PlanCommand builds a routing plan against the scenario catalog and attaches it
type PlanCommand struct {
	config PlanConfig
}

// NewPlanCommand creates a new plan command with the given configuration
func NewPlanCommand(config PlanConfig) *PlanCommand {
	return &PlanCommand{config: config}
}

// Execute runs the plan command
func (c *PlanCommand) Execute(ctx context.Context) error {
	if err := c.validateInputs(); err != nil {
		return fmt.Errorf("validation error: %w", err)
	}

	env, err := NewEnv(c.config.Global)
	if err != nil {
		return err
	}
	defer env.Close()

	dir := c.config.Scenario
	if dir == "" {
		dir = env.Config.Scenario
	}
	if dir == "" {
		return fmt.Errorf("a scenario directory is required for the work center catalog")
	}
	scenario, err := csv.NewLoader().LoadScenario(dir)
	if err != nil {
		return fmt.Errorf("failed to load scenario %s: %w", dir, err)
	}
	catalog, err := scenario.Catalog()
	if err != nil {
		return err
	}

	client, err := env.Client(c.config.Remote)
	if err != nil {
		return err
	}
	job, err := findJob(ctx, client, c.config.Job)
	if err != nil {
		return err
	}

	ps := planning.NewPlanningService(client, catalog, env.Registry, env.Logger)
	session, err := ps.NewSession(job)
	if err != nil {
		return err
	}
	if c.config.Template != "" {
		if err := session.Builder.FromTemplate(c.config.Template); err != nil {
			return err
		}
	}
	for _, raw := range c.config.Operations {
		session.Builder.AddOperation(parseOperation(raw))
	}

	attachment, err := ps.Commit(ctx, session)
	if err != nil {
		return err
	}
	return output.Attachment(*attachment, env.Output)
}

func (c *PlanCommand) validateInputs() error {
	if strings.TrimSpace(c.config.Job) == "" {
		return fmt.Errorf("a job id or number is required")
	}
	if c.config.Template == "" && len(c.config.Operations) == 0 {
		return fmt.Errorf("either a template or at least one operation is required")
	}
	return nil
}

func parseOperation(raw string) services.OperationInput {
	typeCode, center, _ := strings.Cut(strings.TrimSpace(raw), "@")
	return services.OperationInput{
		RequiredWorkCenterType: strings.ToUpper(strings.TrimSpace(typeCode)),
		AssignedWorkCenterID:   strings.TrimSpace(center),
	}
}
