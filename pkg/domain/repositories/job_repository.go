package repositories

import "github.com/vsinha/shopfloor/pkg/domain/entities"

// JobFilter narrows a job listing. Empty fields match everything.
type JobFilter struct {
	WorkCenterID string          `json:"workCenterId,omitempty"`
	Status       entities.Status `json:"status,omitempty"`
	LocationID   string          `json:"locationId,omitempty"`
}

// Matches reports whether a snapshot passes the filter
func (f JobFilter) Matches(s entities.JobSnapshot) bool {
	if f.WorkCenterID != "" && s.WorkCenterID != f.WorkCenterID {
		return false
	}
	if f.Status != "" && s.Status != f.Status {
		return false
	}
	if f.LocationID != "" && s.LocationID != f.LocationID {
		return false
	}
	return true
}

// JobRepository persists job snapshots
type JobRepository interface {
	Get(id string) (*entities.JobSnapshot, error)
	GetByNumber(jobNumber string) (*entities.JobSnapshot, error)
	List(filter JobFilter) ([]entities.JobSnapshot, error)
	Save(job entities.JobSnapshot) error
	NextJobNumber() (string, error)
}
