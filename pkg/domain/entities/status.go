package entities

import (
	"fmt"
	"strings"
)

// Status represents the lifecycle status of a manufacturing job
type Status string

const (
	StatusOrdered     Status = "ORDERED"
	StatusScheduled   Status = "SCHEDULED"
	StatusInProcess   Status = "IN_PROCESS"
	StatusWaitingQC   Status = "WAITING_QC"
	StatusPackaging   Status = "PACKAGING"
	StatusReadyToShip Status = "READY_TO_SHIP"
	StatusShipped     Status = "SHIPPED"
	StatusCompleted   Status = "COMPLETED"
	StatusCancelled   Status = "CANCELLED"
	StatusOnHold      Status = "ON_HOLD"
)

// String method for Status
func (s Status) String() string {
	return string(s)
}

// ParseStatus normalizes a raw status value. Membership is checked by the Registry.
func ParseStatus(raw string) (Status, error) {
	s := strings.ToUpper(strings.TrimSpace(raw))
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, " ", "_")
	if s == "" {
		return "", fmt.Errorf("status cannot be empty")
	}
	return Status(s), nil
}

// ColumnID identifies a kanban column
type ColumnID string

// String method for ColumnID
func (c ColumnID) String() string {
	return string(c)
}
