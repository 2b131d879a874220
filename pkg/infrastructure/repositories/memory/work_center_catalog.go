package memory

import (
	"fmt"
	"sort"

	"github.com/vsinha/shopfloor/pkg/domain/entities"
	"github.com/vsinha/shopfloor/pkg/domain/repositories"
)

// WorkCenterCatalog provides in-memory reference data for planning sessions
type WorkCenterCatalog struct {
	types       []entities.WorkCenterType
	typesMap    map[string]int
	workCenters []entities.WorkCenter
	locations   []entities.Location
	templates   map[string]entities.RoutingTemplate
}

// NewWorkCenterCatalog creates an empty catalog
func NewWorkCenterCatalog() *WorkCenterCatalog {
	return &WorkCenterCatalog{
		typesMap:  make(map[string]int),
		templates: make(map[string]entities.RoutingTemplate),
	}
}

// Verify interface compliance
var _ repositories.WorkCenterCatalog = (*WorkCenterCatalog)(nil)

// LoadWorkCenterTypes loads work center types, rejecting duplicate codes
func (c *WorkCenterCatalog) LoadWorkCenterTypes(types []*entities.WorkCenterType) error {
	for _, t := range types {
		if t.Code == "" {
			return fmt.Errorf("work center type code cannot be empty")
		}
		if _, exists := c.typesMap[t.Code]; exists {
			return fmt.Errorf("duplicate work center type %s", t.Code)
		}
		c.typesMap[t.Code] = len(c.types)
		c.types = append(c.types, *t)
	}
	return nil
}

// LoadWorkCenters loads work centers. Their type must already be known.
func (c *WorkCenterCatalog) LoadWorkCenters(workCenters []*entities.WorkCenter) error {
	seen := make(map[string]bool, len(c.workCenters))
	for _, wc := range c.workCenters {
		seen[wc.ID] = true
	}
	for _, wc := range workCenters {
		if seen[wc.ID] {
			return fmt.Errorf("duplicate work center %s", wc.ID)
		}
		if _, exists := c.typesMap[wc.TypeCode]; !exists {
			return fmt.Errorf("work center %s references unknown type %s", wc.ID, wc.TypeCode)
		}
		seen[wc.ID] = true
		c.workCenters = append(c.workCenters, *wc)
	}
	return nil
}

// LoadLocations loads plant locations
func (c *WorkCenterCatalog) LoadLocations(locations []*entities.Location) error {
	for _, loc := range locations {
		c.locations = append(c.locations, *loc)
	}
	return nil
}

// LoadTemplates loads routing templates keyed by name
func (c *WorkCenterCatalog) LoadTemplates(templates []*entities.RoutingTemplate) error {
	for _, t := range templates {
		if t.Name == "" {
			return fmt.Errorf("routing template name cannot be empty")
		}
		if _, exists := c.templates[t.Name]; exists {
			return fmt.Errorf("duplicate routing template %s", t.Name)
		}
		c.templates[t.Name] = *t
	}
	return nil
}

// GetWorkCenterType returns a work center type by code
func (c *WorkCenterCatalog) GetWorkCenterType(code string) (*entities.WorkCenterType, error) {
	index, exists := c.typesMap[code]
	if !exists {
		return nil, fmt.Errorf("work center type not found: %s", code)
	}
	t := c.types[index]
	return &t, nil
}

// GetWorkCenterTypes returns all work center types
func (c *WorkCenterCatalog) GetWorkCenterTypes() ([]entities.WorkCenterType, error) {
	return append([]entities.WorkCenterType(nil), c.types...), nil
}

// GetWorkCenters returns all work centers
func (c *WorkCenterCatalog) GetWorkCenters() ([]entities.WorkCenter, error) {
	return append([]entities.WorkCenter(nil), c.workCenters...), nil
}

// GetOnlineWorkCenters returns the online work centers of a type at a location
func (c *WorkCenterCatalog) GetOnlineWorkCenters(typeCode, locationID string) ([]entities.WorkCenter, error) {
	var online []entities.WorkCenter
	for _, wc := range c.workCenters {
		if wc.TypeCode != typeCode || !wc.Online {
			continue
		}
		if locationID != "" && wc.LocationID != "" && wc.LocationID != locationID {
			continue
		}
		online = append(online, wc)
	}
	return online, nil
}

// GetLocations returns all locations
func (c *WorkCenterCatalog) GetLocations() ([]entities.Location, error) {
	return append([]entities.Location(nil), c.locations...), nil
}

// GetDivisions returns the distinct divisions of all locations, sorted
func (c *WorkCenterCatalog) GetDivisions() ([]string, error) {
	seen := make(map[string]bool)
	var divisions []string
	for _, loc := range c.locations {
		if loc.Division == "" || seen[loc.Division] {
			continue
		}
		seen[loc.Division] = true
		divisions = append(divisions, loc.Division)
	}
	sort.Strings(divisions)
	return divisions, nil
}

// GetTemplate returns a routing template by name
func (c *WorkCenterCatalog) GetTemplate(name string) (*entities.RoutingTemplate, error) {
	t, exists := c.templates[name]
	if !exists {
		return nil, fmt.Errorf("routing template not found: %s", name)
	}
	t.Steps = append([]entities.TemplateStep(nil), t.Steps...)
	return &t, nil
}

// GetTemplates returns all routing templates sorted by name
func (c *WorkCenterCatalog) GetTemplates() ([]entities.RoutingTemplate, error) {
	templates := make([]entities.RoutingTemplate, 0, len(c.templates))
	for _, t := range c.templates {
		templates = append(templates, t)
	}
	sort.Slice(templates, func(i, j int) bool {
		return templates[i].Name < templates[j].Name
	})
	return templates, nil
}
