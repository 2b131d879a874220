package testing

import (
	"time"

	"github.com/vsinha/shopfloor/pkg/domain/entities"
	"github.com/vsinha/shopfloor/pkg/infrastructure/repositories/memory"
)

// FixtureTime is the creation time of every fixture job
var FixtureTime = time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

// BuildPlantCatalog builds a one-location plant: one online saw and one offline, two packing
// stations, a deburr type with no stations and the Saw-Deburr-Pack template
func BuildPlantCatalog() (*memory.WorkCenterCatalog, error) {
	catalog := memory.NewWorkCenterCatalog()
	if err := catalog.LoadWorkCenterTypes([]*entities.WorkCenterType{
		{Code: "SAW", Name: "Band Saw"},
		{Code: "DEBURR", Name: "Deburr"},
		{Code: "PACK", Name: "Packaging"},
	}); err != nil {
		return nil, err
	}
	if err := catalog.LoadWorkCenters([]*entities.WorkCenter{
		{ID: "SAW-01", TypeCode: "SAW", LocationID: "PLANT-1", Online: true},
		{ID: "SAW-02", TypeCode: "SAW", LocationID: "PLANT-1", Online: false},
		{ID: "PACK-01", TypeCode: "PACK", LocationID: "PLANT-1", Online: true},
		{ID: "PACK-02", TypeCode: "PACK", LocationID: "PLANT-1", Online: true},
	}); err != nil {
		return nil, err
	}
	if err := catalog.LoadLocations([]*entities.Location{
		{ID: "PLANT-1", Name: "North", Division: "FLAT"},
	}); err != nil {
		return nil, err
	}
	if err := catalog.LoadTemplates([]*entities.RoutingTemplate{
		{Name: "Saw-Deburr-Pack", Steps: []entities.TemplateStep{
			{WorkCenterType: "SAW"}, {WorkCenterType: "DEBURR"}, {WorkCenterType: "PACK"},
		}},
	}); err != nil {
		return nil, err
	}
	return catalog, nil
}

// BuildSnapshot builds an unplanned job snapshot targeting 100 pieces
func BuildSnapshot(id, jobNumber string, status entities.Status, priority entities.Priority) entities.JobSnapshot {
	return entities.JobSnapshot{
		ID:        id,
		JobNumber: jobNumber,
		Status:    status,
		Priority:  priority,
		Progress:  entities.Progress{TargetPieces: 100},
		CreatedAt: FixtureTime,
	}
}
