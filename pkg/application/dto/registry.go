package dto

import "github.com/vsinha/shopfloor/pkg/domain/entities"

// RegistryView is the status table and priority ladder as served to clients
type RegistryView struct {
	Columns    []entities.Column           `json:"columns"`
	Statuses   []entities.StatusDefinition `json:"statuses"`
	Priorities []entities.Priority         `json:"priorities"`
}

// NewRegistryView flattens a registry and ladder for transport
func NewRegistryView(registry *entities.Registry, ladder *entities.PriorityLadder) RegistryView {
	view := RegistryView{Columns: registry.Columns(), Priorities: ladder.Levels()}
	for _, status := range registry.Statuses() {
		view.Statuses = append(view.Statuses, entities.StatusDefinition{
			Status: status,
			Column: registry.ColumnOf(status),
			Next:   registry.AllowedNext(status),
		})
	}
	return view
}
