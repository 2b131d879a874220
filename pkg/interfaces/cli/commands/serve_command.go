package commands

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/vsinha/shopfloor/pkg/domain/repositories"
	"github.com/vsinha/shopfloor/pkg/domain/services"
	"github.com/vsinha/shopfloor/pkg/infrastructure/config"
	"github.com/vsinha/shopfloor/pkg/infrastructure/events"
	"github.com/vsinha/shopfloor/pkg/infrastructure/notify"
	"github.com/vsinha/shopfloor/pkg/infrastructure/remote"
	"github.com/vsinha/shopfloor/pkg/infrastructure/repositories/csv"
	"github.com/vsinha/shopfloor/pkg/infrastructure/repositories/memory"
	"github.com/vsinha/shopfloor/pkg/infrastructure/repositories/sqlite"
	"github.com/vsinha/shopfloor/pkg/interfaces/api"
)

// ServeConfig holds configuration for the serve command. Empty fields fall back to the config file.
type ServeConfig struct {
	Global   GlobalConfig
	Addr     string
	Scenario string
	Storage  string
	DBPath   string
}

// ServeCommand runs the authoritative job service over HTTP
type ServeCommand struct {
	config ServeConfig
}

// NewServeCommand creates a new serve command with the given configuration
func NewServeCommand(config ServeConfig) *ServeCommand {
	return &ServeCommand{config: config}
}

// Execute serves until ctx is cancelled
func (c *ServeCommand) Execute(ctx context.Context) error {
	env, err := NewEnv(c.config.Global)
	if err != nil {
		return err
	}
	defer env.Close()

	server, closeRepo, err := c.Build(env)
	if err != nil {
		return err
	}
	defer closeRepo()

	addr := c.config.Addr
	if addr == "" {
		addr = env.Config.Server.Addr
	}
	return server.ListenAndServe(ctx, addr)
}

// Build opens storage, seeds it from the scenario when empty and assembles the API server.
// The returned func closes storage.
func (c *ServeCommand) Build(env *Env) (*api.Server, func(), error) {
	repo, closeRepo, err := c.openRepository(env)
	if err != nil {
		return nil, nil, err
	}

	if err := c.seed(env, repo); err != nil {
		closeRepo()
		return nil, nil, err
	}

	tracker, err := services.NewExecutionTracker(env.Registry, env.Config.TrackerSettings())
	if err != nil {
		closeRepo()
		return nil, nil, fmt.Errorf("failed to configure execution tracker: %w", err)
	}

	store := events.NewInMemoryEventStore(env.Logger)
	hub := notify.NewHub(env.Logger)
	if err := store.Subscribe([]string{events.AllEvents}, hub); err != nil {
		closeRepo()
		return nil, nil, fmt.Errorf("failed to subscribe event hub: %w", err)
	}

	service := remote.NewLocalJobService(repo, env.Registry, env.Ladder,
		remote.WithEventStore(store),
		remote.WithLogger(env.Logger),
		remote.WithTracker(tracker),
	)
	server := api.NewServer(service, env.Registry, env.Ladder,
		api.WithHub(hub),
		api.WithLogger(env.Logger),
	)
	return server, closeRepo, nil
}

func (c *ServeCommand) openRepository(env *Env) (repositories.JobRepository, func(), error) {
	driver := c.config.Storage
	if driver == "" {
		driver = env.Config.Storage.Driver
	}
	path := c.config.DBPath
	if path == "" {
		path = env.Config.Storage.Path
	}

	switch driver {
	case config.StorageMemory:
		return memory.NewJobRepository(64), func() {}, nil
	case config.StorageSQLite:
		if path == "" {
			return nil, nil, fmt.Errorf("a database path is required for the %s driver", config.StorageSQLite)
		}
		repo, err := sqlite.Open(path)
		if err != nil {
			return nil, nil, err
		}
		env.Logger.Info("opened job database", zap.String("path", path))
		return repo, func() {
			if err := repo.Close(); err != nil {
				env.Logger.Warn("failed to close job database", zap.Error(err))
			}
		}, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage driver %q", driver)
	}
}

// seed loads the scenario's jobs into an empty repository. A repository that already has jobs is left alone.
func (c *ServeCommand) seed(env *Env, repo repositories.JobRepository) error {
	dir := c.config.Scenario
	if dir == "" {
		dir = env.Config.Scenario
	}
	if dir == "" {
		return nil
	}

	existing, err := repo.List(repositories.JobFilter{})
	if err != nil {
		return fmt.Errorf("failed to inspect job storage: %w", err)
	}
	if len(existing) > 0 {
		env.Logger.Info("job storage already populated, skipping scenario seed", zap.Int("jobs", len(existing)))
		return nil
	}

	scenario, err := csv.NewLoader().LoadScenario(dir)
	if err != nil {
		return fmt.Errorf("failed to load scenario %s: %w", dir, err)
	}
	catalog, err := scenario.Catalog()
	if err != nil {
		return err
	}
	snapshots, err := scenario.Snapshots(env.Registry, env.Ladder, catalog, time.Now().UTC())
	if err != nil {
		return err
	}
	for _, snapshot := range snapshots {
		if err := repo.Save(snapshot); err != nil {
			return fmt.Errorf("failed to seed job %s: %w", snapshot.JobNumber, err)
		}
	}
	env.Logger.Info("seeded jobs from scenario", zap.String("scenario", dir), zap.Int("jobs", len(snapshots)))
	return nil
}
