package memory

import (
	"fmt"
	"sync"

	"github.com/vsinha/shopfloor/pkg/domain/entities"
	"github.com/vsinha/shopfloor/pkg/domain/repositories"
)

// JobRepository provides in-memory job storage
type JobRepository struct {
	mu        sync.RWMutex
	jobs      []entities.JobSnapshot
	jobsMap   map[string]int
	numberMap map[string]int
}

// NewJobRepository creates a new in-memory job repository
func NewJobRepository(expectedJobs int) *JobRepository {
	return &JobRepository{
		jobs:      make([]entities.JobSnapshot, 0, expectedJobs),
		jobsMap:   make(map[string]int, expectedJobs),
		numberMap: make(map[string]int, expectedJobs),
	}
}

// Verify interface compliance
var _ repositories.JobRepository = (*JobRepository)(nil)

// LoadJobs loads job snapshots into the repository
func (r *JobRepository) LoadJobs(jobs []entities.JobSnapshot) error {
	for _, job := range jobs {
		if err := r.Save(job); err != nil {
			return err
		}
	}
	return nil
}

// Save inserts or replaces a job
func (r *JobRepository) Save(job entities.JobSnapshot) error {
	if job.ID == "" {
		return fmt.Errorf("job id cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if index, exists := r.numberMap[job.JobNumber]; exists && r.jobs[index].ID != job.ID {
		return fmt.Errorf("duplicate job number %s", job.JobNumber)
	}

	if index, exists := r.jobsMap[job.ID]; exists {
		delete(r.numberMap, r.jobs[index].JobNumber)
		r.jobs[index] = job.Clone()
		r.numberMap[job.JobNumber] = index
		return nil
	}

	r.jobsMap[job.ID] = len(r.jobs)
	r.numberMap[job.JobNumber] = len(r.jobs)
	r.jobs = append(r.jobs, job.Clone())
	return nil
}

// Get returns a job by id
func (r *JobRepository) Get(id string) (*entities.JobSnapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	index, exists := r.jobsMap[id]
	if !exists {
		return nil, fmt.Errorf("%w: %s", entities.ErrJobNotFound, id)
	}
	job := r.jobs[index].Clone()
	return &job, nil
}

// GetByNumber returns a job by its display number
func (r *JobRepository) GetByNumber(jobNumber string) (*entities.JobSnapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	index, exists := r.numberMap[jobNumber]
	if !exists {
		return nil, fmt.Errorf("%w: %s", entities.ErrJobNotFound, jobNumber)
	}
	job := r.jobs[index].Clone()
	return &job, nil
}

// List returns the jobs matching filter in insertion order
func (r *JobRepository) List(filter repositories.JobFilter) ([]entities.JobSnapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	jobs := make([]entities.JobSnapshot, 0, len(r.jobs))
	for i := range r.jobs {
		if filter.Matches(r.jobs[i]) {
			jobs = append(jobs, r.jobs[i].Clone())
		}
	}
	return jobs, nil
}

// NextJobNumber returns the next unused display number
func (r *JobRepository) NextJobNumber() (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for n := len(r.jobs) + 1; ; n++ {
		candidate := fmt.Sprintf("JOB-%06d", n)
		if _, taken := r.numberMap[candidate]; !taken {
			return candidate, nil
		}
	}
}
