package sqlite

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/vsinha/shopfloor/pkg/domain/entities"
	"github.com/vsinha/shopfloor/pkg/domain/repositories"
)

// MemoryPath opens a private in-memory database
const MemoryPath = ":memory:"

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS jobs (
		id TEXT PRIMARY KEY,
		job_number TEXT NOT NULL UNIQUE,
		status TEXT NOT NULL,
		priority TEXT NOT NULL,
		routing_plan TEXT,
		target_pieces INTEGER NOT NULL DEFAULT 0 CHECK(target_pieces >= 0),
		completed_pieces INTEGER NOT NULL DEFAULT 0 CHECK(completed_pieces >= 0),
		scrap_pieces INTEGER NOT NULL DEFAULT 0 CHECK(scrap_pieces >= 0),
		current_sequence INTEGER NOT NULL DEFAULT 0,
		work_center_id TEXT NOT NULL DEFAULT '',
		operation_type TEXT NOT NULL DEFAULT '',
		instructions TEXT NOT NULL DEFAULT '',
		notes TEXT NOT NULL DEFAULT '',
		location_id TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		scheduled_start TEXT,
		actual_start TEXT,
		due_date TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_jobs_status ON jobs(status)`,
	`CREATE INDEX IF NOT EXISTS idx_jobs_work_center ON jobs(work_center_id)`,
	`CREATE TABLE IF NOT EXISTS job_timeline (
		job_id TEXT NOT NULL REFERENCES jobs(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		at TEXT NOT NULL,
		from_status TEXT NOT NULL,
		to_status TEXT NOT NULL,
		PRIMARY KEY (job_id, position)
	)`,
	`CREATE TABLE IF NOT EXISTS job_issues (
		job_id TEXT NOT NULL REFERENCES jobs(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		at TEXT NOT NULL,
		category TEXT NOT NULL DEFAULT '',
		message TEXT NOT NULL,
		reported_by TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (job_id, position)
	)`,
}

const jobColumns = `id, job_number, status, priority, routing_plan,
	target_pieces, completed_pieces, scrap_pieces, current_sequence, work_center_id,
	operation_type, instructions, notes, location_id,
	created_at, scheduled_start, actual_start, due_date`

// JobRepository persists job snapshots in SQLite
type JobRepository struct {
	db *sql.DB
}

// Verify interface compliance
var _ repositories.JobRepository = (*JobRepository)(nil)

// Open opens (or creates) the database at path and runs migrations
func Open(path string) (*JobRepository, error) {
	memory := path == MemoryPath
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	dsn := path + sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(10000)"
	if !memory {
		dsn += "&_pragma=journal_mode(WAL)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", path, err)
	}
	if memory {
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
	}

	repo, err := NewJobRepository(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return repo, nil
}

// NewJobRepository wraps an open database and runs migrations
func NewJobRepository(db *sql.DB) (*JobRepository, error) {
	for _, stmt := range migrations {
		if _, err := db.Exec(stmt); err != nil {
			return nil, fmt.Errorf("failed to migrate job tables: %w", err)
		}
	}
	return &JobRepository{db: db}, nil
}

// Close closes the underlying database
func (r *JobRepository) Close() error {
	return r.db.Close()
}

// Save upserts a job with its timeline and issues in one transaction
func (r *JobRepository) Save(job entities.JobSnapshot) (err error) {
	if job.ID == "" {
		return fmt.Errorf("job id cannot be empty")
	}

	var plan sql.NullString
	if job.RoutingPlan != nil {
		raw, err := json.Marshal(job.RoutingPlan)
		if err != nil {
			return fmt.Errorf("failed to encode routing plan of job %s: %w", job.JobNumber, err)
		}
		plan = sql.NullString{String: string(raw), Valid: true}
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	var owner string
	err = tx.QueryRow(`SELECT id FROM jobs WHERE job_number = ?`, job.JobNumber).Scan(&owner)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		err = nil
	case err != nil:
		return fmt.Errorf("failed to check job number %s: %w", job.JobNumber, err)
	case owner != job.ID:
		return fmt.Errorf("duplicate job number %s", job.JobNumber)
	}

	_, err = tx.Exec(`INSERT INTO jobs (`+jobColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			job_number = excluded.job_number,
			status = excluded.status,
			priority = excluded.priority,
			routing_plan = excluded.routing_plan,
			target_pieces = excluded.target_pieces,
			completed_pieces = excluded.completed_pieces,
			scrap_pieces = excluded.scrap_pieces,
			current_sequence = excluded.current_sequence,
			work_center_id = excluded.work_center_id,
			operation_type = excluded.operation_type,
			instructions = excluded.instructions,
			notes = excluded.notes,
			location_id = excluded.location_id,
			created_at = excluded.created_at,
			scheduled_start = excluded.scheduled_start,
			actual_start = excluded.actual_start,
			due_date = excluded.due_date`,
		job.ID, job.JobNumber, string(job.Status), string(job.Priority), plan,
		job.Progress.TargetPieces, job.Progress.CompletedPieces, job.Progress.ScrapPieces,
		job.CurrentSequence, job.WorkCenterID,
		job.OperationType, job.Instructions, job.Notes, job.LocationID,
		formatTime(job.CreatedAt), nullTime(job.ScheduledStart), nullTime(job.ActualStart), nullTime(job.DueDate),
	)
	if err != nil {
		return fmt.Errorf("failed to save job %s: %w", job.JobNumber, err)
	}

	if _, err = tx.Exec(`DELETE FROM job_timeline WHERE job_id = ?`, job.ID); err != nil {
		return fmt.Errorf("failed to clear timeline of job %s: %w", job.JobNumber, err)
	}
	for i, entry := range job.Timeline {
		_, err = tx.Exec(`INSERT INTO job_timeline (job_id, position, at, from_status, to_status) VALUES (?, ?, ?, ?, ?)`,
			job.ID, i, formatTime(entry.At), string(entry.From), string(entry.To))
		if err != nil {
			return fmt.Errorf("failed to save timeline of job %s: %w", job.JobNumber, err)
		}
	}

	if _, err = tx.Exec(`DELETE FROM job_issues WHERE job_id = ?`, job.ID); err != nil {
		return fmt.Errorf("failed to clear issues of job %s: %w", job.JobNumber, err)
	}
	for i, issue := range job.Issues {
		_, err = tx.Exec(`INSERT INTO job_issues (job_id, position, at, category, message, reported_by) VALUES (?, ?, ?, ?, ?, ?)`,
			job.ID, i, formatTime(issue.At), issue.Category, issue.Message, issue.ReportedBy)
		if err != nil {
			return fmt.Errorf("failed to save issues of job %s: %w", job.JobNumber, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit job %s: %w", job.JobNumber, err)
	}
	return nil
}

// Get returns a job by id
func (r *JobRepository) Get(id string) (*entities.JobSnapshot, error) {
	return r.getOne(`SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
}

// GetByNumber returns a job by its display number
func (r *JobRepository) GetByNumber(jobNumber string) (*entities.JobSnapshot, error) {
	return r.getOne(`SELECT `+jobColumns+` FROM jobs WHERE job_number = ?`, jobNumber)
}

func (r *JobRepository) getOne(query, key string) (*entities.JobSnapshot, error) {
	job, err := scanJob(r.db.QueryRow(query, key))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", entities.ErrJobNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load job %s: %w", key, err)
	}
	if err := r.loadChildren(&job); err != nil {
		return nil, err
	}
	return &job, nil
}

// List returns the jobs matching filter in insertion order
func (r *JobRepository) List(filter repositories.JobFilter) ([]entities.JobSnapshot, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs`
	var where []string
	var args []any
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(filter.Status))
	}
	if filter.WorkCenterID != "" {
		where = append(where, "work_center_id = ?")
		args = append(args, filter.WorkCenterID)
	}
	if filter.LocationID != "" {
		where = append(where, "location_id = ?")
		args = append(args, filter.LocationID)
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY rowid"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	jobs := []entities.JobSnapshot{}
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to read job: %w", err)
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	rows.Close()

	for i := range jobs {
		if err := r.loadChildren(&jobs[i]); err != nil {
			return nil, err
		}
	}
	return jobs, nil
}

// NextJobNumber returns the next unused display number
func (r *JobRepository) NextJobNumber() (string, error) {
	var count int
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM jobs`).Scan(&count); err != nil {
		return "", fmt.Errorf("failed to count jobs: %w", err)
	}
	for n := count + 1; ; n++ {
		candidate := fmt.Sprintf("JOB-%06d", n)
		var exists int
		err := r.db.QueryRow(`SELECT 1 FROM jobs WHERE job_number = ?`, candidate).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return candidate, nil
		}
		if err != nil {
			return "", fmt.Errorf("failed to check job number %s: %w", candidate, err)
		}
	}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanJob(s scanner) (entities.JobSnapshot, error) {
	var (
		job                              entities.JobSnapshot
		status, priority, createdAt      string
		plan                             sql.NullString
		scheduledStart, actualStart, due sql.NullString
	)
	err := s.Scan(&job.ID, &job.JobNumber, &status, &priority, &plan,
		&job.Progress.TargetPieces, &job.Progress.CompletedPieces, &job.Progress.ScrapPieces,
		&job.CurrentSequence, &job.WorkCenterID,
		&job.OperationType, &job.Instructions, &job.Notes, &job.LocationID,
		&createdAt, &scheduledStart, &actualStart, &due)
	if err != nil {
		return job, err
	}

	job.Status = entities.Status(status)
	job.Priority = entities.Priority(priority)
	if plan.Valid {
		var rp entities.RoutingPlan
		if err := json.Unmarshal([]byte(plan.String), &rp); err != nil {
			return job, fmt.Errorf("failed to decode routing plan of job %s: %w", job.JobNumber, err)
		}
		job.RoutingPlan = &rp
	}
	if job.CreatedAt, err = parseTime(createdAt); err != nil {
		return job, err
	}
	if job.ScheduledStart, err = parseNullTime(scheduledStart); err != nil {
		return job, err
	}
	if job.ActualStart, err = parseNullTime(actualStart); err != nil {
		return job, err
	}
	if job.DueDate, err = parseNullTime(due); err != nil {
		return job, err
	}
	return job, nil
}

func (r *JobRepository) loadChildren(job *entities.JobSnapshot) error {
	rows, err := r.db.Query(`SELECT at, from_status, to_status FROM job_timeline WHERE job_id = ? ORDER BY position`, job.ID)
	if err != nil {
		return fmt.Errorf("failed to load timeline of job %s: %w", job.JobNumber, err)
	}
	for rows.Next() {
		var at, from, to string
		if err := rows.Scan(&at, &from, &to); err != nil {
			rows.Close()
			return fmt.Errorf("failed to read timeline of job %s: %w", job.JobNumber, err)
		}
		t, err := parseTime(at)
		if err != nil {
			rows.Close()
			return err
		}
		job.Timeline = append(job.Timeline, entities.TimelineEntry{At: t, From: entities.Status(from), To: entities.Status(to)})
	}
	rows.Close()

	rows, err = r.db.Query(`SELECT at, category, message, reported_by FROM job_issues WHERE job_id = ? ORDER BY position`, job.ID)
	if err != nil {
		return fmt.Errorf("failed to load issues of job %s: %w", job.JobNumber, err)
	}
	defer rows.Close()
	for rows.Next() {
		var at string
		var issue entities.IssueReport
		if err := rows.Scan(&at, &issue.Category, &issue.Message, &issue.ReportedBy); err != nil {
			return fmt.Errorf("failed to read issues of job %s: %w", job.JobNumber, err)
		}
		if issue.At, err = parseTime(at); err != nil {
			return err
		}
		job.Issues = append(job.Issues, issue)
	}
	return rows.Err()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil || t.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func parseTime(raw string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid stored time %q: %w", raw, err)
	}
	return t, nil
}

func parseNullTime(raw sql.NullString) (*time.Time, error) {
	if !raw.Valid {
		return nil, nil
	}
	t, err := parseTime(raw.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
