package entities

import (
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func TestRestoreJob_RoundTripPreservesState(t *testing.T) {
	registry := DefaultRegistry()
	job := newOrderedJob(t)
	plan := twoOperationPlan()
	plan.Thickness = decimal.RequireFromString("0.250")
	if err := job.Plan(registry, plan, testTime); err != nil {
		t.Fatal(err)
	}
	if err := job.Transition(registry, StatusInProcess, testTime); err != nil {
		t.Fatal(err)
	}
	job.SetActualStart(testTime)
	if err := job.RecordOutput(12, 3); err != nil {
		t.Fatal(err)
	}
	job.AddIssue(IssueReport{At: testTime, Category: "QUALITY", Message: "edge burr"})

	restored, err := RestoreJob(registry, job.Snapshot())
	if err != nil {
		t.Fatalf("Expected restore to succeed: %v", err)
	}
	if restored.Status() != StatusInProcess {
		t.Errorf("Expected IN_PROCESS, got %s", restored.Status())
	}
	if restored.Progress() != job.Progress() {
		t.Errorf("Expected progress %+v, got %+v", job.Progress(), restored.Progress())
	}
	if !restored.ActualStart().Equal(testTime) {
		t.Errorf("Expected actual start %v, got %v", testTime, restored.ActualStart())
	}
	if !restored.RoutingPlan().Thickness.Equal(plan.Thickness) {
		t.Errorf("Expected thickness %s, got %s", plan.Thickness, restored.RoutingPlan().Thickness)
	}
	if len(restored.Timeline()) != 2 || len(restored.Issues()) != 1 {
		t.Errorf("Expected 2 timeline entries and 1 issue, got %d and %d", len(restored.Timeline()), len(restored.Issues()))
	}
}

func TestRestoreJob_Rejections(t *testing.T) {
	registry := DefaultRegistry()
	plan := twoOperationPlan()

	testCases := []struct {
		name        string
		snapshot    JobSnapshot
		expectError string
	}{
		{"missing id", JobSnapshot{JobNumber: "JOB-1", Status: StatusOrdered}, "job id cannot be empty"},
		{"missing number", JobSnapshot{ID: "1", Status: StatusOrdered}, "job number cannot be empty"},
		{"unknown status", JobSnapshot{ID: "1", JobNumber: "JOB-1", Status: "MELTED"}, "unknown status"},
		{"negative scrap", JobSnapshot{ID: "1", JobNumber: "JOB-1", Status: StatusInProcess, Progress: Progress{ScrapPieces: -1}}, "piece counts cannot be negative"},
		{"plan while ordered", JobSnapshot{ID: "1", JobNumber: "JOB-1", Status: StatusOrdered, RoutingPlan: &plan}, "cannot hold a routing plan"},
		{"invalid plan", JobSnapshot{ID: "1", JobNumber: "JOB-1", Status: StatusScheduled, RoutingPlan: &RoutingPlan{}}, "routing plan has no operations"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := RestoreJob(registry, tc.snapshot)
			if err == nil {
				t.Fatalf("Expected error for %s, but got none", tc.name)
			}
			if !strings.Contains(err.Error(), tc.expectError) {
				t.Errorf("Expected error to contain '%s', got '%s'", tc.expectError, err.Error())
			}
		})
	}

	_, err := RestoreJob(registry, JobSnapshot{ID: "1", JobNumber: "JOB-1", Status: "MELTED"})
	if !errors.Is(err, ErrUnknownStatus) {
		t.Errorf("Expected ErrUnknownStatus, got %v", err)
	}
}
