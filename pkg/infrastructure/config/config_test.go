package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/vsinha/shopfloor/pkg/domain/entities"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "shopfloor.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Expected default config to be valid, got %v", err)
	}

	registry, err := cfg.BuildRegistry()
	if err != nil {
		t.Fatalf("Failed to build registry: %v", err)
	}
	if registry.ColumnOf(entities.StatusWaitingQC) != "processing" {
		t.Errorf("Expected WAITING_QC in processing, got %s", registry.ColumnOf(entities.StatusWaitingQC))
	}
	if cfg.TrackerSettings().CompleteTarget != entities.StatusWaitingQC {
		t.Errorf("Expected WAITING_QC complete target, got %s", cfg.TrackerSettings().CompleteTarget)
	}
}

func TestLoad_Overrides(t *testing.T) {
	path := writeConfig(t, `
priorities: [low, normal, rush]
tracker:
  completeTarget: packaging
storage:
  driver: sqlite
  path: /tmp/shopfloor.db
server:
  addr: ":9090"
remote:
  timeout: 3s
log:
  level: debug
  development: true
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Storage.Driver != StorageSQLite || cfg.Storage.Path != "/tmp/shopfloor.db" {
		t.Errorf("Expected sqlite storage, got %+v", cfg.Storage)
	}
	if cfg.Server.Addr != ":9090" {
		t.Errorf("Expected addr :9090, got %s", cfg.Server.Addr)
	}
	if cfg.Remote.Timeout != 3*time.Second {
		t.Errorf("Expected 3s timeout, got %s", cfg.Remote.Timeout)
	}
	if cfg.Remote.BaseURL != "http://localhost:8080" {
		t.Errorf("Expected default base URL to survive, got %s", cfg.Remote.BaseURL)
	}
	if cfg.TrackerSettings().CompleteTarget != entities.StatusPackaging {
		t.Errorf("Expected PACKAGING complete target, got %s", cfg.TrackerSettings().CompleteTarget)
	}

	ladder, err := cfg.PriorityLadder()
	if err != nil {
		t.Fatalf("Failed to build ladder: %v", err)
	}
	if ladder.Rank("RUSH") != 2 {
		t.Errorf("Expected RUSH at rank 2, got %d", ladder.Rank("RUSH"))
	}
}

func TestLoad_CustomRegistry(t *testing.T) {
	path := writeConfig(t, `
registry:
  columns:
    - {id: todo, title: To Do, dropStatus: ORDERED}
    - {id: doing, title: Doing, dropStatus: IN_PROCESS}
    - {id: done, title: Done, dropStatus: COMPLETED}
    - {id: parked, title: Parked, dropStatus: ON_HOLD}
  statuses:
    - {status: ORDERED, column: todo, next: [SCHEDULED, CANCELLED, ON_HOLD]}
    - {status: SCHEDULED, column: todo, next: [IN_PROCESS, ON_HOLD]}
    - {status: IN_PROCESS, column: doing, next: [PACKAGING, ON_HOLD]}
    - {status: PACKAGING, column: doing, next: [COMPLETED]}
    - {status: ON_HOLD, column: parked, next: [ORDERED, IN_PROCESS]}
    - {status: COMPLETED, column: done}
    - {status: CANCELLED, column: done}
tracker:
  completeTarget: PACKAGING
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	registry, err := cfg.BuildRegistry()
	if err != nil {
		t.Fatalf("Failed to build registry: %v", err)
	}
	if registry.ColumnOf(entities.StatusScheduled) != "todo" {
		t.Errorf("Expected SCHEDULED in todo, got %s", registry.ColumnOf(entities.StatusScheduled))
	}
	if registry.Has(entities.StatusWaitingQC) {
		t.Error("Expected WAITING_QC to be absent from the custom registry")
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"unknown driver", "storage: {driver: postgres}"},
		{"sqlite without path", "storage: {driver: sqlite}"},
		{"empty addr", "server: {addr: \"\"}"},
		{"bad target", "tracker: {completeTarget: SHIPPED}"},
		{"duplicate priority", "priorities: [HIGH, high]"},
		{"bad registry", "registry: {columns: [{id: only, dropStatus: ORDERED}]}"},
		{"malformed yaml", "storage: [driver"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tt.content)); err == nil {
				t.Errorf("Expected error for %s", tt.name)
			}
		})
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Expected error for missing file")
	}
}
