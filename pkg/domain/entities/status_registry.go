package entities

import (
	"fmt"
	"strings"
)

// Column is one kanban column. DropStatus is the status a card takes when it is
// dropped onto the column; an empty DropStatus means the column is not a drop target.
type Column struct {
	ID         ColumnID `json:"id" yaml:"id"`
	Title      string   `json:"title" yaml:"title"`
	DropStatus Status   `json:"dropStatus,omitempty" yaml:"dropStatus"`
}

// StatusDefinition is one row of the status table
type StatusDefinition struct {
	Status Status   `json:"status" yaml:"status"`
	Column ColumnID `json:"column" yaml:"column"`
	Next   []Status `json:"next" yaml:"next"`
}

type registryEntry struct {
	column  ColumnID
	next    []Status
	nextSet map[Status]struct{}
}

// Registry holds the allowed status transitions and the column each status renders in.
// It is immutable after construction.
type Registry struct {
	columns     []Column
	columnIndex map[ColumnID]int
	entries     map[Status]registryEntry
	order       []Status
}

var terminalStatuses = []Status{StatusCompleted, StatusCancelled}

var requiredStatuses = []Status{
	StatusOrdered,
	StatusScheduled,
	StatusInProcess,
	StatusOnHold,
	StatusCompleted,
	StatusCancelled,
}

// NewRegistry creates a validated Registry
func NewRegistry(columns []Column, definitions []StatusDefinition) (*Registry, error) {
	r := &Registry{
		columns:     make([]Column, 0, len(columns)),
		columnIndex: make(map[ColumnID]int, len(columns)),
		entries:     make(map[Status]registryEntry, len(definitions)),
		order:       make([]Status, 0, len(definitions)),
	}
	var problems []string

	if len(columns) == 0 {
		problems = append(problems, "at least one column is required")
	}
	for _, col := range columns {
		if col.ID == "" {
			problems = append(problems, "column id cannot be empty")
			continue
		}
		if _, dup := r.columnIndex[col.ID]; dup {
			problems = append(problems, fmt.Sprintf("duplicate column %s", col.ID))
			continue
		}
		r.columnIndex[col.ID] = len(r.columns)
		r.columns = append(r.columns, col)
	}

	for _, def := range definitions {
		if def.Status == "" {
			problems = append(problems, "status cannot be empty")
			continue
		}
		if _, dup := r.entries[def.Status]; dup {
			problems = append(problems, fmt.Sprintf("duplicate status %s", def.Status))
			continue
		}
		if _, ok := r.columnIndex[def.Column]; !ok {
			problems = append(problems, fmt.Sprintf("status %s references unknown column %q", def.Status, def.Column))
		}
		entry := registryEntry{
			column:  def.Column,
			next:    append([]Status(nil), def.Next...),
			nextSet: make(map[Status]struct{}, len(def.Next)),
		}
		for _, next := range def.Next {
			if next == def.Status {
				problems = append(problems, fmt.Sprintf("status %s lists itself as a successor", def.Status))
			}
			entry.nextSet[next] = struct{}{}
		}
		r.entries[def.Status] = entry
		r.order = append(r.order, def.Status)
	}

	for _, s := range r.order {
		for _, next := range r.entries[s].next {
			if _, ok := r.entries[next]; !ok {
				problems = append(problems, fmt.Sprintf("status %s has unknown successor %s", s, next))
			}
		}
	}

	for _, s := range requiredStatuses {
		if _, ok := r.entries[s]; !ok {
			problems = append(problems, fmt.Sprintf("status %s must be defined", s))
		}
	}

	for _, s := range terminalStatuses {
		if entry, ok := r.entries[s]; ok && len(entry.next) > 0 {
			problems = append(problems, fmt.Sprintf("terminal status %s cannot have successors, got %v", s, entry.next))
		}
	}

	if hold, ok := r.entries[StatusOnHold]; ok {
		reentry := false
		for _, next := range hold.next {
			if !isTerminal(next) {
				reentry = true
				break
			}
		}
		if !reentry {
			problems = append(problems, fmt.Sprintf("status %s must re-enter at least one active status", StatusOnHold))
		}
	}

	for _, col := range r.columns {
		if col.DropStatus == "" {
			continue
		}
		entry, ok := r.entries[col.DropStatus]
		if !ok {
			problems = append(problems, fmt.Sprintf("column %s drops into unknown status %s", col.ID, col.DropStatus))
			continue
		}
		if entry.column != col.ID {
			problems = append(problems, fmt.Sprintf("column %s drops into %s which renders in column %s", col.ID, col.DropStatus, entry.column))
		}
	}

	if len(problems) > 0 {
		return nil, fmt.Errorf("invalid status registry: %s", strings.Join(problems, "; "))
	}
	return r, nil
}

// DefaultColumns returns the plant's standard board layout
func DefaultColumns() []Column {
	return []Column{
		{ID: "ordered", Title: "Ordered", DropStatus: StatusOrdered},
		{ID: "scheduled", Title: "Scheduled", DropStatus: StatusScheduled},
		{ID: "processing", Title: "Processing", DropStatus: StatusInProcess},
		{ID: "packaging", Title: "Packaging", DropStatus: StatusPackaging},
		{ID: "shipping", Title: "Shipping", DropStatus: StatusReadyToShip},
		{ID: "on_hold", Title: "On Hold", DropStatus: StatusOnHold},
		{ID: "closed", Title: "Closed", DropStatus: StatusCompleted},
	}
}

// DefaultStatusDefinitions returns the plant's standard status table
func DefaultStatusDefinitions() []StatusDefinition {
	return []StatusDefinition{
		{Status: StatusOrdered, Column: "ordered", Next: []Status{StatusScheduled, StatusOnHold, StatusCancelled}},
		{Status: StatusScheduled, Column: "scheduled", Next: []Status{StatusInProcess, StatusOnHold, StatusCancelled}},
		{Status: StatusInProcess, Column: "processing", Next: []Status{StatusScheduled, StatusWaitingQC, StatusPackaging, StatusOnHold, StatusCancelled}},
		{Status: StatusWaitingQC, Column: "processing", Next: []Status{StatusInProcess, StatusPackaging, StatusOnHold, StatusCancelled}},
		{Status: StatusPackaging, Column: "packaging", Next: []Status{StatusReadyToShip, StatusOnHold}},
		{Status: StatusReadyToShip, Column: "shipping", Next: []Status{StatusShipped, StatusOnHold}},
		{Status: StatusShipped, Column: "shipping", Next: []Status{StatusCompleted}},
		{Status: StatusCompleted, Column: "closed"},
		{Status: StatusCancelled, Column: "closed"},
		{Status: StatusOnHold, Column: "on_hold", Next: []Status{StatusOrdered, StatusScheduled, StatusInProcess, StatusCancelled}},
	}
}

// DefaultRegistry builds the standard registry
func DefaultRegistry() *Registry {
	r, err := NewRegistry(DefaultColumns(), DefaultStatusDefinitions())
	if err != nil {
		panic(err)
	}
	return r
}

func (r *Registry) entry(s Status) registryEntry {
	e, ok := r.entries[s]
	if !ok {
		panic(fmt.Sprintf("status registry: unknown status %q", s))
	}
	return e
}

// AllowedNext returns the successor statuses of s. Panics if s is unknown.
func (r *Registry) AllowedNext(s Status) []Status {
	return append([]Status(nil), r.entry(s).next...)
}

// CanTransition reports whether to is a direct successor of from. Panics if from is unknown.
func (r *Registry) CanTransition(from, to Status) bool {
	_, ok := r.entry(from).nextSet[to]
	return ok
}

// ColumnOf returns the column a status renders in. Panics if s is unknown.
func (r *Registry) ColumnOf(s Status) ColumnID {
	return r.entry(s).column
}

// Has reports whether s is defined
func (r *Registry) Has(s Status) bool {
	_, ok := r.entries[s]
	return ok
}

// IsTerminal reports whether s has no successors
func (r *Registry) IsTerminal(s Status) bool {
	return len(r.entry(s).next) == 0
}

// Statuses returns all statuses in definition order
func (r *Registry) Statuses() []Status {
	return append([]Status(nil), r.order...)
}

// Columns returns the board columns in display order
func (r *Registry) Columns() []Column {
	return append([]Column(nil), r.columns...)
}

// Column returns the column definition for id
func (r *Registry) Column(id ColumnID) (Column, bool) {
	i, ok := r.columnIndex[id]
	if !ok {
		return Column{}, false
	}
	return r.columns[i], true
}

// DropStatus resolves the status implied by dropping a card onto a column
func (r *Registry) DropStatus(id ColumnID) (Status, bool) {
	col, ok := r.Column(id)
	if !ok || col.DropStatus == "" {
		return "", false
	}
	return col.DropStatus, true
}

func isTerminal(s Status) bool {
	for _, t := range terminalStatuses {
		if s == t {
			return true
		}
	}
	return false
}
