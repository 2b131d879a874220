package entities

import "fmt"

// WorkCenterType is a class of processing station, e.g. SAW or SHEAR
type WorkCenterType struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// WorkCenter is one physical or logical processing station
type WorkCenter struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	TypeCode   string `json:"typeCode"`
	LocationID string `json:"locationId"`
	Online     bool   `json:"online"`
}

// NewWorkCenter creates a validated WorkCenter
func NewWorkCenter(id, name, typeCode, locationID string, online bool) (*WorkCenter, error) {
	if id == "" {
		return nil, fmt.Errorf("work center id cannot be empty")
	}
	if typeCode == "" {
		return nil, fmt.Errorf("work center %s: type cannot be empty", id)
	}
	if name == "" {
		name = id
	}
	return &WorkCenter{
		ID:         id,
		Name:       name,
		TypeCode:   typeCode,
		LocationID: locationID,
		Online:     online,
	}, nil
}

// Location is a plant or yard jobs are processed at
type Location struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Division string `json:"division"`
}

// TemplateStep is one canned step of a routing template
type TemplateStep struct {
	WorkCenterType string     `json:"workCenterType"`
	Name           string     `json:"name,omitempty"`
	SkillLevel     SkillLevel `json:"skillLevel"`
}

// RoutingTemplate is a named canned sequence of operations, e.g. "Saw-Deburr-Pack"
type RoutingTemplate struct {
	Name  string         `json:"name"`
	Steps []TemplateStep `json:"steps"`
}
