package memory

import (
	"testing"

	"github.com/vsinha/shopfloor/pkg/domain/entities"
)

func newTestCatalog(t *testing.T) *WorkCenterCatalog {
	t.Helper()
	catalog := NewWorkCenterCatalog()
	err := catalog.LoadWorkCenterTypes([]*entities.WorkCenterType{
		{Code: "SAW", Name: "Band Saw"},
		{Code: "PACK", Name: "Packaging"},
	})
	if err != nil {
		t.Fatalf("Failed to load work center types: %v", err)
	}
	err = catalog.LoadWorkCenters([]*entities.WorkCenter{
		{ID: "SAW-01", TypeCode: "SAW", LocationID: "PLANT-1", Online: true},
		{ID: "SAW-02", TypeCode: "SAW", LocationID: "PLANT-1", Online: false},
		{ID: "SAW-03", TypeCode: "SAW", LocationID: "PLANT-2", Online: true},
		{ID: "PACK-01", TypeCode: "PACK", Online: true},
	})
	if err != nil {
		t.Fatalf("Failed to load work centers: %v", err)
	}
	err = catalog.LoadLocations([]*entities.Location{
		{ID: "PLANT-1", Name: "North", Division: "FLAT"},
		{ID: "PLANT-2", Name: "South", Division: "BAR"},
		{ID: "PLANT-3", Name: "Yard", Division: "FLAT"},
	})
	if err != nil {
		t.Fatalf("Failed to load locations: %v", err)
	}
	return catalog
}

func TestWorkCenterCatalog_GetOnlineWorkCenters(t *testing.T) {
	catalog := newTestCatalog(t)

	tests := []struct {
		name     string
		typeCode string
		location string
		expected []string
	}{
		{"any location", "SAW", "", []string{"SAW-01", "SAW-03"}},
		{"single location", "SAW", "PLANT-1", []string{"SAW-01"}},
		{"unlocated center matches every location", "PACK", "PLANT-2", []string{"PACK-01"}},
		{"unknown type", "LASER", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			centers, err := catalog.GetOnlineWorkCenters(tt.typeCode, tt.location)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if len(centers) != len(tt.expected) {
				t.Fatalf("Expected %d centers, got %d", len(tt.expected), len(centers))
			}
			for i, id := range tt.expected {
				if centers[i].ID != id {
					t.Errorf("Expected center %d to be %s, got %s", i, id, centers[i].ID)
				}
			}
		})
	}
}

func TestWorkCenterCatalog_UnknownType(t *testing.T) {
	catalog := newTestCatalog(t)

	err := catalog.LoadWorkCenters([]*entities.WorkCenter{{ID: "LZR-01", TypeCode: "LASER"}})
	if err == nil {
		t.Error("Expected error for work center with unknown type")
	}

	if _, err := catalog.GetWorkCenterType("LASER"); err == nil {
		t.Error("Expected error for unknown work center type")
	}
}

func TestWorkCenterCatalog_Divisions(t *testing.T) {
	catalog := newTestCatalog(t)

	divisions, err := catalog.GetDivisions()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(divisions) != 2 || divisions[0] != "BAR" || divisions[1] != "FLAT" {
		t.Errorf("Expected [BAR FLAT], got %v", divisions)
	}
}

func TestWorkCenterCatalog_Templates(t *testing.T) {
	catalog := newTestCatalog(t)

	err := catalog.LoadTemplates([]*entities.RoutingTemplate{
		{Name: "Saw-Pack", Steps: []entities.TemplateStep{{WorkCenterType: "SAW"}, {WorkCenterType: "PACK"}}},
		{Name: "Pack-Only", Steps: []entities.TemplateStep{{WorkCenterType: "PACK"}}},
	})
	if err != nil {
		t.Fatalf("Failed to load templates: %v", err)
	}

	template, err := catalog.GetTemplate("Saw-Pack")
	if err != nil {
		t.Fatalf("Failed to get template: %v", err)
	}
	if len(template.Steps) != 2 {
		t.Errorf("Expected 2 steps, got %d", len(template.Steps))
	}

	template.Steps[0].WorkCenterType = "CHANGED"
	again, _ := catalog.GetTemplate("Saw-Pack")
	if again.Steps[0].WorkCenterType != "SAW" {
		t.Error("Expected GetTemplate to return a copy of the steps")
	}

	all, _ := catalog.GetTemplates()
	if len(all) != 2 || all[0].Name != "Pack-Only" {
		t.Errorf("Expected templates sorted by name, got %v", all)
	}

	if _, err := catalog.GetTemplate("missing"); err == nil {
		t.Error("Expected error for unknown template")
	}
}
