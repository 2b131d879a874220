package sqlite

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vsinha/shopfloor/pkg/domain/entities"
	"github.com/vsinha/shopfloor/pkg/domain/repositories"
)

var created = time.Date(2025, 3, 3, 7, 0, 0, 0, time.UTC)

func newTestRepo(t *testing.T) *JobRepository {
	t.Helper()
	repo, err := Open(MemoryPath)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func scheduledJob() entities.JobSnapshot {
	start := created.Add(time.Hour)
	due := created.Add(72 * time.Hour)
	return entities.JobSnapshot{
		ID:        "job-1",
		JobNumber: "JOB-000001",
		Status:    entities.StatusScheduled,
		Priority:  entities.PriorityHigh,
		RoutingPlan: &entities.RoutingPlan{
			Operations: []entities.Operation{
				{Sequence: 1, RequiredWorkCenterType: "SAW", AssignedWorkCenterID: "SAW-01", Name: "Band Saw"},
				{Sequence: 2, RequiredWorkCenterType: "PACK", Name: "Pack", SkillLevel: entities.SkillExpert},
			},
			PlanMetadata: entities.PlanMetadata{
				MaterialCode: "AL6061-T6",
				Thickness:    decimal.RequireFromString("0.250"),
				LocationID:   "PLANT-1",
			},
		},
		Progress:        entities.Progress{TargetPieces: 100},
		CurrentSequence: 1,
		WorkCenterID:    "SAW-01",
		OperationType:   "CUT",
		LocationID:      "PLANT-1",
		CreatedAt:       created,
		ScheduledStart:  &start,
		DueDate:         &due,
		Timeline: []entities.TimelineEntry{
			{At: start, From: entities.StatusOrdered, To: entities.StatusScheduled},
		},
		Issues: []entities.IssueReport{
			{At: start, Category: "MATERIAL", Message: "short stock", ReportedBy: "op-3"},
		},
	}
}

func TestJobRepository_RoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	job := scheduledJob()

	if err := repo.Save(job); err != nil {
		t.Fatalf("Failed to save job: %v", err)
	}

	loaded, err := repo.Get("job-1")
	if err != nil {
		t.Fatalf("Failed to get job: %v", err)
	}
	if loaded.Status != entities.StatusScheduled || loaded.Priority != entities.PriorityHigh {
		t.Errorf("Expected SCHEDULED/HIGH, got %s/%s", loaded.Status, loaded.Priority)
	}
	if loaded.RoutingPlan == nil || len(loaded.RoutingPlan.Operations) != 2 {
		t.Fatalf("Expected 2-operation plan, got %+v", loaded.RoutingPlan)
	}
	if loaded.RoutingPlan.Operations[1].SkillLevel != entities.SkillExpert {
		t.Errorf("Expected EXPERT skill, got %v", loaded.RoutingPlan.Operations[1].SkillLevel)
	}
	if !loaded.RoutingPlan.Thickness.Equal(decimal.RequireFromString("0.25")) {
		t.Errorf("Expected thickness 0.25, got %s", loaded.RoutingPlan.Thickness)
	}
	if !loaded.CreatedAt.Equal(created) {
		t.Errorf("Expected created %v, got %v", created, loaded.CreatedAt)
	}
	if loaded.ScheduledStart == nil || !loaded.ScheduledStart.Equal(*job.ScheduledStart) {
		t.Errorf("Expected scheduled start %v, got %v", job.ScheduledStart, loaded.ScheduledStart)
	}
	if loaded.ActualStart != nil {
		t.Errorf("Expected no actual start, got %v", loaded.ActualStart)
	}
	if len(loaded.Timeline) != 1 || loaded.Timeline[0].To != entities.StatusScheduled {
		t.Errorf("Expected one timeline entry to SCHEDULED, got %+v", loaded.Timeline)
	}
	if len(loaded.Issues) != 1 || loaded.Issues[0].Message != "short stock" {
		t.Errorf("Expected one issue, got %+v", loaded.Issues)
	}

	if _, err := entities.RestoreJob(entities.DefaultRegistry(), *loaded); err != nil {
		t.Errorf("Expected loaded snapshot to restore, got %v", err)
	}
}

func TestJobRepository_Upsert(t *testing.T) {
	repo := newTestRepo(t)
	job := scheduledJob()
	if err := repo.Save(job); err != nil {
		t.Fatalf("Failed to save job: %v", err)
	}

	job.Status = entities.StatusOrdered
	job.RoutingPlan = nil
	job.CurrentSequence = 0
	job.WorkCenterID = ""
	job.Timeline = append(job.Timeline, entities.TimelineEntry{At: created.Add(2 * time.Hour), From: entities.StatusScheduled, To: entities.StatusOrdered})
	job.Issues = nil
	if err := repo.Save(job); err != nil {
		t.Fatalf("Failed to update job: %v", err)
	}

	jobs, err := repo.List(repositories.JobFilter{})
	if err != nil {
		t.Fatalf("Failed to list jobs: %v", err)
	}
	if len(jobs) != 1 {
		t.Fatalf("Expected 1 job after upsert, got %d", len(jobs))
	}
	if jobs[0].RoutingPlan != nil {
		t.Error("Expected routing plan to be cleared")
	}
	if len(jobs[0].Timeline) != 2 {
		t.Errorf("Expected 2 timeline entries, got %d", len(jobs[0].Timeline))
	}
	if len(jobs[0].Issues) != 0 {
		t.Errorf("Expected issues to be cleared, got %d", len(jobs[0].Issues))
	}
}

func TestJobRepository_DuplicateNumber(t *testing.T) {
	repo := newTestRepo(t)
	if err := repo.Save(scheduledJob()); err != nil {
		t.Fatalf("Failed to save job: %v", err)
	}

	other := scheduledJob()
	other.ID = "job-2"
	if err := repo.Save(other); err == nil {
		t.Error("Expected error for duplicate job number")
	}
}

func TestJobRepository_NotFound(t *testing.T) {
	repo := newTestRepo(t)

	if _, err := repo.Get("missing"); !errors.Is(err, entities.ErrJobNotFound) {
		t.Errorf("Expected ErrJobNotFound, got %v", err)
	}
	if _, err := repo.GetByNumber("JOB-000404"); !errors.Is(err, entities.ErrJobNotFound) {
		t.Errorf("Expected ErrJobNotFound, got %v", err)
	}
}

func TestJobRepository_ListFilter(t *testing.T) {
	repo := newTestRepo(t)

	scheduled := scheduledJob()
	ordered := entities.JobSnapshot{ID: "job-2", JobNumber: "JOB-000002", Status: entities.StatusOrdered,
		Priority: entities.PriorityNormal, LocationID: "PLANT-2", CreatedAt: created}
	for _, job := range []entities.JobSnapshot{scheduled, ordered} {
		if err := repo.Save(job); err != nil {
			t.Fatalf("Failed to save job: %v", err)
		}
	}

	tests := []struct {
		name     string
		filter   repositories.JobFilter
		expected []string
	}{
		{"all", repositories.JobFilter{}, []string{"job-1", "job-2"}},
		{"status", repositories.JobFilter{Status: entities.StatusOrdered}, []string{"job-2"}},
		{"work center", repositories.JobFilter{WorkCenterID: "SAW-01"}, []string{"job-1"}},
		{"location", repositories.JobFilter{LocationID: "PLANT-1"}, []string{"job-1"}},
		{"none", repositories.JobFilter{Status: entities.StatusShipped}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			jobs, err := repo.List(tt.filter)
			if err != nil {
				t.Fatalf("Failed to list jobs: %v", err)
			}
			if len(jobs) != len(tt.expected) {
				t.Fatalf("Expected %d jobs, got %d", len(tt.expected), len(jobs))
			}
			for i, id := range tt.expected {
				if jobs[i].ID != id {
					t.Errorf("Expected job %d to be %s, got %s", i, id, jobs[i].ID)
				}
			}
		})
	}
}

func TestJobRepository_NextJobNumber(t *testing.T) {
	repo := newTestRepo(t)

	first, err := repo.NextJobNumber()
	if err != nil {
		t.Fatalf("Failed to get next job number: %v", err)
	}
	if first != "JOB-000001" {
		t.Errorf("Expected JOB-000001, got %s", first)
	}

	if err := repo.Save(scheduledJob()); err != nil {
		t.Fatalf("Failed to save job: %v", err)
	}
	next, _ := repo.NextJobNumber()
	if next != "JOB-000002" {
		t.Errorf("Expected JOB-000002, got %s", next)
	}
}

func TestOpen_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shopfloor.db")

	repo, err := Open(path)
	if err != nil {
		t.Fatalf("Failed to open file database: %v", err)
	}
	if err := repo.Save(scheduledJob()); err != nil {
		t.Fatalf("Failed to save job: %v", err)
	}
	repo.Close()

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("Failed to reopen database: %v", err)
	}
	defer reopened.Close()
	if _, err := reopened.GetByNumber("JOB-000001"); err != nil {
		t.Errorf("Expected job to persist across reopen, got %v", err)
	}
}
