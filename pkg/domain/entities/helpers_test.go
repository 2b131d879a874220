package entities

import (
	"errors"
	"testing"
	"time"
)

var testTime = time.Date(2025, 3, 3, 7, 0, 0, 0, time.UTC)

func jobInStatus(t *testing.T, registry *Registry, status Status) *Job {
	t.Helper()
	job, err := RestoreJob(registry, JobSnapshot{
		ID:        "job-" + string(status),
		JobNumber: "JOB-000001",
		Status:    status,
		Priority:  PriorityNormal,
		Progress:  Progress{TargetPieces: 100},
		CreatedAt: testTime,
	})
	if err != nil {
		t.Fatalf("Failed to restore job in %s: %v", status, err)
	}
	return job
}

func isIllegalTransition(err error) bool {
	var te *TransitionError
	return errors.Is(err, ErrIllegalTransition) && errors.As(err, &te)
}

func twoOperationPlan() RoutingPlan {
	return RoutingPlan{
		Operations: []Operation{
			{Sequence: 1, RequiredWorkCenterType: "SAW", Name: "Saw", AssignedWorkCenterID: "SAW-01"},
			{Sequence: 2, RequiredWorkCenterType: "PACK", Name: "Pack"},
		},
		PlanMetadata: PlanMetadata{
			Division:     "FLAT",
			MaterialCode: "AL6061-T6",
			Commodity:    "ALUMINUM",
			Form:         "PLATE",
			Grade:        "6061",
			LocationID:   "PLANT-1",
		},
	}
}
