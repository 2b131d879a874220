package repositories

import "github.com/vsinha/shopfloor/pkg/domain/entities"

// WorkCenterCatalog provides read-only reference data for routing plans.
// It is treated as immutable for the duration of a planning session.
type WorkCenterCatalog interface {
	GetWorkCenterType(code string) (*entities.WorkCenterType, error)
	GetWorkCenterTypes() ([]entities.WorkCenterType, error)
	GetWorkCenters() ([]entities.WorkCenter, error)

	// GetOnlineWorkCenters returns the online work centers of a type.
	// An empty locationID matches every location.
	GetOnlineWorkCenters(typeCode, locationID string) ([]entities.WorkCenter, error)

	GetLocations() ([]entities.Location, error)
	GetDivisions() ([]string, error)
	GetTemplate(name string) (*entities.RoutingTemplate, error)
	GetTemplates() ([]entities.RoutingTemplate, error)
}
