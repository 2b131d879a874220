package commands

import (
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/vsinha/shopfloor/pkg/domain/entities"
	"github.com/vsinha/shopfloor/pkg/infrastructure/config"
	"github.com/vsinha/shopfloor/pkg/infrastructure/logging"
	"github.com/vsinha/shopfloor/pkg/infrastructure/remote"
	"github.com/vsinha/shopfloor/pkg/interfaces/cli/output"
)

// GlobalConfig holds the flags shared by every command
type GlobalConfig struct {
	ConfigPath string
	LogLevel   string
	Format     string
	Stdout     io.Writer
	// Logger replaces the logger built from the config file
	Logger *zap.Logger
}

// Env is everything a command needs once flags and the config file are resolved
type Env struct {
	Config   config.Config
	Logger   *zap.Logger
	Registry *entities.Registry
	Ladder   *entities.PriorityLadder
	Output   output.Config
}

// NewEnv loads the config file (or the defaults), builds the logger and the status tables
func NewEnv(global GlobalConfig) (*Env, error) {
	format := global.Format
	if format == "" {
		format = output.FormatText
	}
	if err := output.ValidateFormat(format); err != nil {
		return nil, err
	}

	cfg := config.Default()
	if global.ConfigPath != "" {
		loaded, err := config.Load(global.ConfigPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	} else if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid default config: %w", err)
	}
	if level := strings.TrimSpace(global.LogLevel); level != "" {
		cfg.Log.Level = level
	}

	logger := global.Logger
	if logger == nil {
		built, err := logging.New(cfg.Log)
		if err != nil {
			return nil, err
		}
		logger = built
	}

	registry, err := cfg.BuildRegistry()
	if err != nil {
		return nil, err
	}
	ladder, err := cfg.PriorityLadder()
	if err != nil {
		return nil, err
	}

	stdout := global.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}
	return &Env{
		Config:   cfg,
		Logger:   logger,
		Registry: registry,
		Ladder:   ladder,
		Output:   output.Config{Format: format, Writer: stdout},
	}, nil
}

// Client connects to the job service at baseURL, or the configured one when empty
func (e *Env) Client(baseURL string) (*remote.HTTPClient, error) {
	if baseURL == "" {
		baseURL = e.Config.Remote.BaseURL
	}
	return remote.NewHTTPClient(baseURL, e.Config.Remote.Timeout, remote.WithClientLogger(e.Logger))
}

// Close flushes the logger
func (e *Env) Close() {
	_ = e.Logger.Sync()
}
