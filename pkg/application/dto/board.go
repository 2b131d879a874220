package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/vsinha/shopfloor/pkg/domain/entities"
)

// JobCard is one job as rendered on the board
type JobCard struct {
	ID              string            `json:"id"`
	JobNumber       string            `json:"jobNumber"`
	Status          entities.Status   `json:"status"`
	Column          entities.ColumnID `json:"column"`
	Priority        entities.Priority `json:"priority"`
	DueDate         *time.Time        `json:"dueDate,omitempty"`
	ProgressPercent decimal.Decimal   `json:"progressPercent"`
	WorkCenterID    string            `json:"workCenterId,omitempty"`
	Pending         bool              `json:"pending,omitempty"`
}

// ColumnView is one kanban column and its cards
type ColumnView struct {
	ID    entities.ColumnID `json:"id"`
	Title string            `json:"title"`
	Cards []JobCard         `json:"cards"`
}

// BoardView is the whole board, columns in display order
type BoardView struct {
	Columns []ColumnView `json:"columns"`
}

// TotalCards returns the number of cards across all columns
func (b BoardView) TotalCards() int {
	total := 0
	for _, col := range b.Columns {
		total += len(col.Cards)
	}
	return total
}

// Column returns the column with id
func (b BoardView) Column(id entities.ColumnID) (ColumnView, bool) {
	for _, col := range b.Columns {
		if col.ID == id {
			return col, true
		}
	}
	return ColumnView{}, false
}
