package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/vsinha/shopfloor/pkg/domain/entities"
	"github.com/vsinha/shopfloor/pkg/domain/repositories"
	"github.com/vsinha/shopfloor/pkg/interfaces/cli/output"
)

// TrackConfig holds configuration for the track command
type TrackConfig struct {
	Global     GlobalConfig
	Remote     string
	Job        string
	Action     string
	Good       int64
	Scrap      int64
	ResumeTo   string
	Category   string
	Message    string
	ReportedBy string
}

// TrackCommand sends one shop-floor action to the job service
type TrackCommand struct {
	config TrackConfig
}

// NewTrackCommand creates a new track command with the given configuration
func NewTrackCommand(config TrackConfig) *TrackCommand {
	return &TrackCommand{config: config}
}

// Execute runs the track command
func (c *TrackCommand) Execute(ctx context.Context) error {
	if strings.TrimSpace(c.config.Job) == "" {
		return fmt.Errorf("validation error: a job id or number is required")
	}

	env, err := NewEnv(c.config.Global)
	if err != nil {
		return err
	}
	defer env.Close()

	client, err := env.Client(c.config.Remote)
	if err != nil {
		return err
	}
	job, err := findJob(ctx, client, c.config.Job)
	if err != nil {
		return err
	}

	updated, err := client.Track(ctx, job.ID, repositories.TrackRequest{
		Action:     strings.ToLower(strings.TrimSpace(c.config.Action)),
		Good:       c.config.Good,
		Scrap:      c.config.Scrap,
		ResumeTo:   entities.Status(c.config.ResumeTo),
		Category:   c.config.Category,
		Message:    c.config.Message,
		ReportedBy: c.config.ReportedBy,
	})
	if err != nil {
		return fmt.Errorf("%s %s: %w", c.config.Action, job.JobNumber, err)
	}
	return output.Job(*updated, env.Output)
}
