package csv

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vsinha/shopfloor/pkg/domain/entities"
)

const (
	WorkCenterTypesFile = "work_center_types.csv"
	WorkCentersFile     = "work_centers.csv"
	LocationsFile       = "locations.csv"
	TemplatesFile       = "templates.csv"
	JobsFile            = "jobs.csv"
)

// JobSeed is one row of jobs.csv
type JobSeed struct {
	JobNumber       string
	Status          entities.Status
	Priority        string
	OperationType   string
	TargetPieces    int64
	CompletedPieces int64
	ScrapPieces     int64
	LocationID      string
	DueDate         time.Time
	Template        string
	MaterialCode    string
	Thickness       decimal.Decimal
	Instructions    string
}

// Scenario is the reference data and seed jobs of one plant directory
type Scenario struct {
	WorkCenterTypes []*entities.WorkCenterType
	WorkCenters     []*entities.WorkCenter
	Locations       []*entities.Location
	Templates       []*entities.RoutingTemplate
	Jobs            []JobSeed
}

// Loader handles loading plant data from CSV files
type Loader struct{}

// NewLoader creates a new CSV loader
func NewLoader() *Loader {
	return &Loader{}
}

// LoadScenario loads every known file from dir. Work center files are required, the rest are optional.
func (l *Loader) LoadScenario(dir string) (*Scenario, error) {
	var (
		s   Scenario
		err error
	)

	if s.WorkCenterTypes, err = l.LoadWorkCenterTypes(filepath.Join(dir, WorkCenterTypesFile)); err != nil {
		return nil, err
	}
	if s.WorkCenters, err = l.LoadWorkCenters(filepath.Join(dir, WorkCentersFile)); err != nil {
		return nil, err
	}
	if path, ok := optional(dir, LocationsFile); ok {
		if s.Locations, err = l.LoadLocations(path); err != nil {
			return nil, err
		}
	}
	if path, ok := optional(dir, TemplatesFile); ok {
		if s.Templates, err = l.LoadTemplates(path); err != nil {
			return nil, err
		}
	}
	if path, ok := optional(dir, JobsFile); ok {
		if s.Jobs, err = l.LoadJobs(path); err != nil {
			return nil, err
		}
	}
	return &s, nil
}

// LoadWorkCenterTypes loads work center types from a CSV file
func (l *Loader) LoadWorkCenterTypes(filename string) ([]*entities.WorkCenterType, error) {
	records, err := readRecords(filename, "work center types", []string{"code", "name"})
	if err != nil {
		return nil, err
	}

	var types []*entities.WorkCenterType
	for i, record := range records {
		code := strings.ToUpper(strings.TrimSpace(record[0]))
		if code == "" {
			return nil, fmt.Errorf("work center types CSV row %d: code cannot be empty", i+2)
		}
		types = append(types, &entities.WorkCenterType{Code: code, Name: strings.TrimSpace(record[1])})
	}
	return types, nil
}

// LoadWorkCenters loads work centers from a CSV file
func (l *Loader) LoadWorkCenters(filename string) ([]*entities.WorkCenter, error) {
	records, err := readRecords(filename, "work centers", []string{"id", "name", "type_code", "location_id", "online"})
	if err != nil {
		return nil, err
	}

	var workCenters []*entities.WorkCenter
	for i, record := range records {
		online, err := parseBool(record[4])
		if err != nil {
			return nil, fmt.Errorf("work centers CSV row %d: %w", i+2, err)
		}
		wc, err := entities.NewWorkCenter(
			strings.TrimSpace(record[0]),
			strings.TrimSpace(record[1]),
			strings.ToUpper(strings.TrimSpace(record[2])),
			strings.TrimSpace(record[3]),
			online,
		)
		if err != nil {
			return nil, fmt.Errorf("work centers CSV row %d: %w", i+2, err)
		}
		workCenters = append(workCenters, wc)
	}
	return workCenters, nil
}

// LoadLocations loads plant locations from a CSV file
func (l *Loader) LoadLocations(filename string) ([]*entities.Location, error) {
	records, err := readRecords(filename, "locations", []string{"id", "name", "division"})
	if err != nil {
		return nil, err
	}

	var locations []*entities.Location
	for i, record := range records {
		id := strings.TrimSpace(record[0])
		if id == "" {
			return nil, fmt.Errorf("locations CSV row %d: id cannot be empty", i+2)
		}
		locations = append(locations, &entities.Location{
			ID:       id,
			Name:     strings.TrimSpace(record[1]),
			Division: strings.ToUpper(strings.TrimSpace(record[2])),
		})
	}
	return locations, nil
}

// LoadTemplates loads routing templates. Rows of one template are ordered by their step column.
func (l *Loader) LoadTemplates(filename string) ([]*entities.RoutingTemplate, error) {
	records, err := readRecords(filename, "templates", []string{"template", "step", "work_center_type", "name", "skill_level"})
	if err != nil {
		return nil, err
	}

	type numberedStep struct {
		number int
		step   entities.TemplateStep
	}
	var order []string
	steps := make(map[string][]numberedStep)

	for i, record := range records {
		name := strings.TrimSpace(record[0])
		if name == "" {
			return nil, fmt.Errorf("templates CSV row %d: template cannot be empty", i+2)
		}
		number, err := strconv.Atoi(strings.TrimSpace(record[1]))
		if err != nil {
			return nil, fmt.Errorf("templates CSV row %d: invalid step: %s", i+2, record[1])
		}
		skill, err := entities.ParseSkillLevel(record[4])
		if err != nil {
			return nil, fmt.Errorf("templates CSV row %d: %w", i+2, err)
		}
		if _, seen := steps[name]; !seen {
			order = append(order, name)
		}
		steps[name] = append(steps[name], numberedStep{
			number: number,
			step: entities.TemplateStep{
				WorkCenterType: strings.ToUpper(strings.TrimSpace(record[2])),
				Name:           strings.TrimSpace(record[3]),
				SkillLevel:     skill,
			},
		})
	}

	templates := make([]*entities.RoutingTemplate, 0, len(order))
	for _, name := range order {
		numbered := steps[name]
		sort.SliceStable(numbered, func(i, j int) bool { return numbered[i].number < numbered[j].number })
		template := &entities.RoutingTemplate{Name: name}
		for _, ns := range numbered {
			template.Steps = append(template.Steps, ns.step)
		}
		templates = append(templates, template)
	}
	return templates, nil
}

// LoadJobs loads seed jobs from a CSV file
func (l *Loader) LoadJobs(filename string) ([]JobSeed, error) {
	expectedHeader := []string{
		"job_number", "status", "priority", "operation_type",
		"target_pieces", "completed_pieces", "scrap_pieces",
		"location_id", "due_date", "template", "material_code", "thickness", "instructions",
	}
	records, err := readRecords(filename, "jobs", expectedHeader)
	if err != nil {
		return nil, err
	}

	var seeds []JobSeed
	for i, record := range records {
		seed, err := parseJobSeed(record)
		if err != nil {
			return nil, fmt.Errorf("jobs CSV row %d: %w", i+2, err)
		}
		seeds = append(seeds, seed)
	}
	return seeds, nil
}

func parseJobSeed(record []string) (JobSeed, error) {
	seed := JobSeed{
		JobNumber:     strings.TrimSpace(record[0]),
		Priority:      strings.TrimSpace(record[2]),
		OperationType: strings.TrimSpace(record[3]),
		LocationID:    strings.TrimSpace(record[7]),
		Template:      strings.TrimSpace(record[9]),
		MaterialCode:  strings.TrimSpace(record[10]),
		Instructions:  strings.TrimSpace(record[12]),
	}
	if seed.JobNumber == "" {
		return seed, fmt.Errorf("job_number cannot be empty")
	}

	status, err := entities.ParseStatus(record[1])
	if err != nil {
		return seed, err
	}
	seed.Status = status

	counts := []*int64{&seed.TargetPieces, &seed.CompletedPieces, &seed.ScrapPieces}
	for i, target := range counts {
		raw := strings.TrimSpace(record[4+i])
		if raw == "" {
			continue
		}
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n < 0 {
			return seed, fmt.Errorf("invalid %s: %s", expectedCountColumns[i], raw)
		}
		*target = n
	}

	if raw := strings.TrimSpace(record[8]); raw != "" {
		due, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return seed, fmt.Errorf("invalid due_date format: %s (expected YYYY-MM-DD)", raw)
		}
		seed.DueDate = due
	}

	if raw := strings.TrimSpace(record[11]); raw != "" {
		thickness, err := decimal.NewFromString(raw)
		if err != nil {
			return seed, fmt.Errorf("invalid thickness: %s", raw)
		}
		if thickness.IsNegative() {
			return seed, fmt.Errorf("thickness cannot be negative: %s", raw)
		}
		seed.Thickness = thickness
	}

	return seed, nil
}

var expectedCountColumns = []string{"target_pieces", "completed_pieces", "scrap_pieces"}

func readRecords(filename, kind string, expectedHeader []string) ([][]string, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s file %s: %w", kind, filename, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s CSV: %w", kind, err)
	}

	if len(records) < 1 {
		return nil, fmt.Errorf("%s CSV must have a header row", kind)
	}

	header := records[0]
	if !validateHeader(header, expectedHeader) {
		return nil, fmt.Errorf("%s CSV header mismatch. Expected: %v, Got: %v", kind, expectedHeader, header)
	}

	for i, record := range records[1:] {
		if len(record) != len(expectedHeader) {
			return nil, fmt.Errorf("%s CSV row %d: expected %d columns, got %d", kind, i+2, len(expectedHeader), len(record))
		}
	}
	return records[1:], nil
}

func optional(dir, name string) (string, bool) {
	path := filepath.Join(dir, name)
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return path, false
	}
	return path, true
}

func validateHeader(actual, expected []string) bool {
	if len(actual) != len(expected) {
		return false
	}

	for i, col := range expected {
		if strings.ToLower(strings.TrimSpace(actual[i])) != col {
			return false
		}
	}

	return true
}

func parseBool(raw string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true", "yes", "y", "1":
		return true, nil
	case "false", "no", "n", "0", "":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean: %s", raw)
	}
}
