package commands

import (
	"context"

	"github.com/vsinha/shopfloor/pkg/application/dto"
	"github.com/vsinha/shopfloor/pkg/interfaces/cli/output"
)

// RegistryConfig holds configuration for the registry command
type RegistryConfig struct {
	Global GlobalConfig
}

// RegistryCommand prints the configured status table and priority ladder
type RegistryCommand struct {
	config RegistryConfig
}

// NewRegistryCommand creates a new registry command with the given configuration
func NewRegistryCommand(config RegistryConfig) *RegistryCommand {
	return &RegistryCommand{config: config}
}

// Execute runs the registry command
func (c *RegistryCommand) Execute(ctx context.Context) error {
	env, err := NewEnv(c.config.Global)
	if err != nil {
		return err
	}
	defer env.Close()
	return output.Registry(dto.NewRegistryView(env.Registry, env.Ladder), env.Output)
}
