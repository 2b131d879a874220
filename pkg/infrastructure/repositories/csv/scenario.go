package csv

import (
	"fmt"
	"time"

	"github.com/vsinha/shopfloor/pkg/domain/entities"
	"github.com/vsinha/shopfloor/pkg/domain/repositories"
	"github.com/vsinha/shopfloor/pkg/domain/services"
	"github.com/vsinha/shopfloor/pkg/infrastructure/repositories/memory"
)

// Catalog loads the scenario's reference data into an in-memory catalog
func (s *Scenario) Catalog() (*memory.WorkCenterCatalog, error) {
	catalog := memory.NewWorkCenterCatalog()
	if err := catalog.LoadWorkCenterTypes(s.WorkCenterTypes); err != nil {
		return nil, fmt.Errorf("failed to load work center types: %w", err)
	}
	if err := catalog.LoadWorkCenters(s.WorkCenters); err != nil {
		return nil, fmt.Errorf("failed to load work centers: %w", err)
	}
	if err := catalog.LoadLocations(s.Locations); err != nil {
		return nil, fmt.Errorf("failed to load locations: %w", err)
	}
	if err := catalog.LoadTemplates(s.Templates); err != nil {
		return nil, fmt.Errorf("failed to load templates: %w", err)
	}
	return catalog, nil
}

// Snapshots turns seed rows into validated job snapshots.
// Jobs past ORDERED are planned from their template before being placed in their seed status.
func (s *Scenario) Snapshots(
	registry *entities.Registry,
	ladder *entities.PriorityLadder,
	catalog repositories.WorkCenterCatalog,
	now time.Time,
) ([]entities.JobSnapshot, error) {
	snapshots := make([]entities.JobSnapshot, 0, len(s.Jobs))
	for _, seed := range s.Jobs {
		snapshot, err := seedSnapshot(registry, ladder, catalog, seed, now)
		if err != nil {
			return nil, fmt.Errorf("seed job %s: %w", seed.JobNumber, err)
		}
		snapshots = append(snapshots, snapshot)
	}
	return snapshots, nil
}

func seedSnapshot(
	registry *entities.Registry,
	ladder *entities.PriorityLadder,
	catalog repositories.WorkCenterCatalog,
	seed JobSeed,
	now time.Time,
) (entities.JobSnapshot, error) {
	priority, err := ladder.Parse(seed.Priority)
	if err != nil {
		return entities.JobSnapshot{}, err
	}
	job, err := entities.NewJob(entities.NewJobParams{
		JobNumber:     seed.JobNumber,
		Priority:      priority,
		OperationType: seed.OperationType,
		Instructions:  seed.Instructions,
		LocationID:    seed.LocationID,
		TargetPieces:  seed.TargetPieces,
		DueDate:       seed.DueDate,
		CreatedAt:     now,
	})
	if err != nil {
		return entities.JobSnapshot{}, err
	}

	if seed.Status != entities.StatusOrdered {
		if seed.Template == "" {
			return entities.JobSnapshot{}, fmt.Errorf("a %s job needs a routing template", seed.Status)
		}
		builder := services.NewRoutingPlanBuilder(catalog)
		builder.SetMetadata(entities.PlanMetadata{
			DueDate:      seed.DueDate,
			MaterialCode: seed.MaterialCode,
			Thickness:    seed.Thickness,
			LocationID:   seed.LocationID,
			Division:     divisionOf(catalog, seed.LocationID),
		})
		if err := builder.FromTemplate(seed.Template); err != nil {
			return entities.JobSnapshot{}, err
		}
		plan, err := builder.Build()
		if err != nil {
			return entities.JobSnapshot{}, err
		}
		if err := job.Plan(registry, plan, now); err != nil {
			return entities.JobSnapshot{}, err
		}
	}

	snapshot := job.Snapshot()
	snapshot.Status = seed.Status
	snapshot.Progress.CompletedPieces = seed.CompletedPieces
	snapshot.Progress.ScrapPieces = seed.ScrapPieces
	if seed.Status == entities.StatusInProcess || seed.Status == entities.StatusWaitingQC {
		start := now
		snapshot.ActualStart = &start
	}

	restored, err := entities.RestoreJob(registry, snapshot)
	if err != nil {
		return entities.JobSnapshot{}, err
	}
	return restored.Snapshot(), nil
}

func divisionOf(catalog repositories.WorkCenterCatalog, locationID string) string {
	if locationID == "" {
		return ""
	}
	locations, err := catalog.GetLocations()
	if err != nil {
		return ""
	}
	for _, loc := range locations {
		if loc.ID == locationID {
			return loc.Division
		}
	}
	return ""
}
