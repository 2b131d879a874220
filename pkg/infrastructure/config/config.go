package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vsinha/shopfloor/pkg/domain/entities"
	"github.com/vsinha/shopfloor/pkg/domain/services"
	"github.com/vsinha/shopfloor/pkg/infrastructure/logging"
)

const (
	StorageMemory = "memory"
	StorageSQLite = "sqlite"
)

// Config is the top-level shopfloor configuration file
type Config struct {
	Registry   RegistryConfig `yaml:"registry"`
	Priorities []string       `yaml:"priorities"`
	Tracker    TrackerConfig  `yaml:"tracker"`
	Storage    StorageConfig  `yaml:"storage"`
	Server     ServerConfig   `yaml:"server"`
	Remote     RemoteConfig   `yaml:"remote"`
	Log        logging.Config `yaml:"log"`
	Scenario   string         `yaml:"scenario"`
}

// RegistryConfig is the status table. Omitted halves fall back to the built-in defaults.
type RegistryConfig struct {
	Columns  []entities.Column           `yaml:"columns"`
	Statuses []entities.StatusDefinition `yaml:"statuses"`
}

type TrackerConfig struct {
	CompleteTarget string `yaml:"completeTarget"`
}

type StorageConfig struct {
	Driver string `yaml:"driver"`
	Path   string `yaml:"path"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// RemoteConfig points board clients at a running job service
type RemoteConfig struct {
	BaseURL string        `yaml:"baseURL"`
	Timeout time.Duration `yaml:"timeout"`
}

// Default returns the configuration used when no file is given
func Default() Config {
	return Config{
		Tracker: TrackerConfig{CompleteTarget: entities.StatusWaitingQC.String()},
		Storage: StorageConfig{Driver: StorageMemory},
		Server:  ServerConfig{Addr: ":8080"},
		Remote:  RemoteConfig{BaseURL: "http://localhost:8080", Timeout: 10 * time.Second},
		Log:     logging.Config{Level: "info"},
	}
}

// Load reads a YAML file over the defaults and validates the result
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config file %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks every section, including the registry and tracker wiring
func (c Config) Validate() error {
	switch c.Storage.Driver {
	case StorageMemory:
	case StorageSQLite:
		if strings.TrimSpace(c.Storage.Path) == "" {
			return fmt.Errorf("storage path is required for the %s driver", StorageSQLite)
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	if strings.TrimSpace(c.Server.Addr) == "" {
		return fmt.Errorf("server address cannot be empty")
	}
	if c.Remote.Timeout < 0 {
		return fmt.Errorf("remote timeout cannot be negative, got %s", c.Remote.Timeout)
	}

	registry, err := c.BuildRegistry()
	if err != nil {
		return err
	}
	if _, err := c.PriorityLadder(); err != nil {
		return err
	}
	if _, err := services.NewExecutionTracker(registry, c.TrackerSettings()); err != nil {
		return err
	}
	return nil
}

// BuildRegistry constructs the status registry from the configured table
func (c Config) BuildRegistry() (*entities.Registry, error) {
	columns := c.Registry.Columns
	if len(columns) == 0 {
		columns = entities.DefaultColumns()
	}
	statuses := c.Registry.Statuses
	if len(statuses) == 0 {
		statuses = entities.DefaultStatusDefinitions()
	}
	return entities.NewRegistry(columns, statuses)
}

// PriorityLadder constructs the priority ordering, lowest first
func (c Config) PriorityLadder() (*entities.PriorityLadder, error) {
	if len(c.Priorities) == 0 {
		return entities.DefaultPriorityLadder(), nil
	}
	levels := make([]entities.Priority, len(c.Priorities))
	for i, p := range c.Priorities {
		levels[i] = entities.Priority(p)
	}
	return entities.NewPriorityLadder(levels)
}

// TrackerSettings returns the execution tracker configuration
func (c Config) TrackerSettings() services.TrackerConfig {
	target, err := entities.ParseStatus(c.Tracker.CompleteTarget)
	if err != nil {
		return services.DefaultTrackerConfig()
	}
	return services.TrackerConfig{CompleteTarget: target}
}
