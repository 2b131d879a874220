package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	ws "github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/vsinha/shopfloor/pkg/application/dto"
	"github.com/vsinha/shopfloor/pkg/application/services/board"
	"github.com/vsinha/shopfloor/pkg/domain/entities"
	"github.com/vsinha/shopfloor/pkg/domain/repositories"
	"github.com/vsinha/shopfloor/pkg/infrastructure/events"
	"github.com/vsinha/shopfloor/pkg/infrastructure/notify"
	"github.com/vsinha/shopfloor/pkg/infrastructure/remote"
	"github.com/vsinha/shopfloor/pkg/infrastructure/repositories/memory"
)

type testEnv struct {
	server  *httptest.Server
	service *remote.LocalJobService
	store   *events.InMemoryEventStore
	hub     *notify.Hub
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	registry := entities.DefaultRegistry()
	ladder := entities.DefaultPriorityLadder()
	store := events.NewInMemoryEventStore(nil)
	hub := notify.NewHub(nil)
	if err := store.Subscribe([]string{events.AllEvents}, hub); err != nil {
		t.Fatalf("Failed to subscribe hub: %v", err)
	}
	service := remote.NewLocalJobService(memory.NewJobRepository(8), registry, ladder, remote.WithEventStore(store))
	api := NewServer(service, registry, ladder, WithHub(hub))
	server := httptest.NewServer(api.Handler())
	t.Cleanup(server.Close)
	return &testEnv{server: server, service: service, store: store, hub: hub}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) (int, map[string]json.RawMessage) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("Failed to encode body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, e.server.URL+path, reader)
	if err != nil {
		t.Fatalf("Failed to build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()
	var env map[string]json.RawMessage
	json.NewDecoder(resp.Body).Decode(&env)
	return resp.StatusCode, env
}

func (e *testEnv) createJob(t *testing.T) entities.JobSnapshot {
	t.Helper()
	code, env := e.do(t, http.MethodPost, "/api/v1/jobs", repositories.CreateJobRequest{OperationType: "CUT", TargetPieces: 20})
	if code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", code, env["error"])
	}
	var job entities.JobSnapshot
	if err := json.Unmarshal(env["data"], &job); err != nil {
		t.Fatalf("Failed to decode job: %v", err)
	}
	return job
}

func TestServer_HealthAndRegistry(t *testing.T) {
	env := newTestEnv(t)

	if code, _ := env.do(t, http.MethodGet, "/api/v1/health", nil); code != http.StatusOK {
		t.Errorf("Expected 200 from health, got %d", code)
	}

	code, body := env.do(t, http.MethodGet, "/api/v1/registry", nil)
	if code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", code)
	}
	var view dto.RegistryView
	if err := json.Unmarshal(body["data"], &view); err != nil {
		t.Fatalf("Failed to decode registry: %v", err)
	}
	if len(view.Statuses) != 10 {
		t.Errorf("Expected 10 statuses, got %d", len(view.Statuses))
	}
	if len(view.Priorities) != 5 || view.Priorities[4] != entities.PriorityHot {
		t.Errorf("Expected the default ladder, got %v", view.Priorities)
	}
	for _, def := range view.Statuses {
		if def.Column == "" {
			t.Errorf("Expected %s to have a column", def.Status)
		}
	}
}

func TestServer_JobLifecycle(t *testing.T) {
	env := newTestEnv(t)
	job := env.createJob(t)

	plan := entities.RoutingPlan{Operations: []entities.Operation{
		{RequiredWorkCenterType: "SAW", AssignedWorkCenterID: "SAW-01"},
		{RequiredWorkCenterType: "PACK", SkillLevel: entities.SkillExpert},
	}}
	code, body := env.do(t, http.MethodPut, "/api/v1/jobs/"+job.ID+"/plan", plan)
	if code != http.StatusOK {
		t.Fatalf("Expected 200 attaching plan, got %d: %s", code, body["error"])
	}
	var attachment repositories.PlanAttachment
	if err := json.Unmarshal(body["data"], &attachment); err != nil {
		t.Fatalf("Failed to decode attachment: %v", err)
	}
	if attachment.Job.Status != entities.StatusScheduled || len(attachment.Operations) != 2 {
		t.Errorf("Expected SCHEDULED with 2 operations, got %s with %d", attachment.Job.Status, len(attachment.Operations))
	}
	if attachment.Operations[1].SkillLevel != entities.SkillExpert {
		t.Errorf("Expected EXPERT skill to round trip, got %s", attachment.Operations[1].SkillLevel)
	}

	code, body = env.do(t, http.MethodPut, "/api/v1/jobs/"+job.ID+"/status", repositories.StatusUpdate{Status: entities.StatusInProcess})
	if code != http.StatusOK {
		t.Fatalf("Expected 200 starting job, got %d: %s", code, body["error"])
	}

	code, body = env.do(t, http.MethodGet, "/api/v1/jobs?status=in-process", nil)
	if code != http.StatusOK {
		t.Fatalf("Expected 200 listing jobs, got %d", code)
	}
	var jobs []entities.JobSnapshot
	json.Unmarshal(body["data"], &jobs)
	if len(jobs) != 1 || jobs[0].WorkCenterID != "SAW-01" {
		t.Errorf("Expected one IN_PROCESS job on SAW-01, got %+v", jobs)
	}

	code, body = env.do(t, http.MethodPatch, "/api/v1/jobs/"+job.ID, map[string]any{"priority": "urgent"})
	if code != http.StatusOK {
		t.Fatalf("Expected 200 patching job, got %d: %s", code, body["error"])
	}
	code, body = env.do(t, http.MethodGet, "/api/v1/jobs/"+job.ID, nil)
	var stored entities.JobSnapshot
	json.Unmarshal(body["data"], &stored)
	if code != http.StatusOK || stored.Priority != entities.PriorityUrgent {
		t.Errorf("Expected URGENT job, got %d %s", code, stored.Priority)
	}
}

func TestServer_ShopFloorActions(t *testing.T) {
	env := newTestEnv(t)
	job := env.createJob(t)
	actions := "/api/v1/jobs/" + job.ID + "/actions"

	if code, body := env.do(t, http.MethodPost, actions, repositories.TrackRequest{Action: repositories.ActionOutput, Good: 5}); code != http.StatusConflict || string(body["code"]) != `"not_in_progress"` {
		t.Errorf("Expected 409 not_in_progress recording output on an ORDERED job, got %d %s", code, body["code"])
	}
	plan := entities.RoutingPlan{Operations: []entities.Operation{{RequiredWorkCenterType: "SAW"}}}
	if code, body := env.do(t, http.MethodPut, "/api/v1/jobs/"+job.ID+"/plan", plan); code != http.StatusOK {
		t.Fatalf("Expected 200 attaching plan, got %d: %s", code, body["error"])
	}

	steps := []struct {
		req       repositories.TrackRequest
		code      int
		status    entities.Status
		errorCode string
	}{
		{repositories.TrackRequest{Action: repositories.ActionStart}, http.StatusOK, entities.StatusInProcess, ""},
		{repositories.TrackRequest{Action: repositories.ActionOutput, Good: 20}, http.StatusOK, entities.StatusInProcess, ""},
		{repositories.TrackRequest{Action: repositories.ActionOutput, Good: -1}, http.StatusBadRequest, "", "negative_delta"},
		{repositories.TrackRequest{Action: repositories.ActionAdvance}, http.StatusConflict, "", "no_remaining_operations"},
		{repositories.TrackRequest{Action: repositories.ActionComplete}, http.StatusOK, entities.StatusWaitingQC, ""},
		{repositories.TrackRequest{Action: repositories.ActionComplete}, http.StatusOK, entities.StatusPackaging, ""},
		{repositories.TrackRequest{Action: "polish"}, http.StatusBadRequest, "", "invalid_request"},
	}
	for _, step := range steps {
		code, body := env.do(t, http.MethodPost, actions, step.req)
		if code != step.code {
			t.Fatalf("Expected %d for %+v, got %d: %s", step.code, step.req, code, body["error"])
		}
		if step.errorCode != "" && string(body["code"]) != `"`+step.errorCode+`"` {
			t.Errorf("Expected error code %s for %+v, got %s", step.errorCode, step.req, body["code"])
		}
		if step.status == "" {
			continue
		}
		var got entities.JobSnapshot
		json.Unmarshal(body["data"], &got)
		if got.Status != step.status {
			t.Errorf("Expected %s after %s, got %s", step.status, step.req.Action, got.Status)
		}
	}

	code, body := env.do(t, http.MethodGet, "/api/v1/jobs/"+job.ID, nil)
	var stored entities.JobSnapshot
	json.Unmarshal(body["data"], &stored)
	if code != http.StatusOK || stored.Progress.CompletedPieces != 20 {
		t.Errorf("Expected 20 completed pieces stored, got %d %+v", code, stored.Progress)
	}
}

func TestServer_PlanNamesUnsequencedPosition(t *testing.T) {
	env := newTestEnv(t)
	job := env.createJob(t)

	plan := map[string]any{"operations": []map[string]any{
		{"requiredWorkCenterType": "SAW"},
		{"requiredWorkCenterType": ""},
		{"requiredWorkCenterType": "PACK"},
	}}
	code, body := env.do(t, http.MethodPut, "/api/v1/jobs/"+job.ID+"/plan", plan)
	if code != http.StatusUnprocessableEntity {
		t.Fatalf("Expected 422, got %d: %s", code, body["error"])
	}
	var msg string
	json.Unmarshal(body["error"], &msg)
	if !strings.Contains(msg, "sequences [2]") {
		t.Errorf("Expected the error to name sequence 2, got %q", msg)
	}
	if string(body["code"]) != `"missing_work_center_type"` {
		t.Errorf("Expected code missing_work_center_type, got %s", body["code"])
	}
}

func TestHTTPClient_ExactSentinelsFromServer(t *testing.T) {
	env := newTestEnv(t)
	job := env.createJob(t)
	client, err := remote.NewHTTPClient(env.server.URL, 5*time.Second)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	ctx := context.Background()

	_, err = client.Track(ctx, job.ID, repositories.TrackRequest{Action: repositories.ActionOutput, Good: 1})
	if !errors.Is(err, entities.ErrNotInProgress) || errors.Is(err, entities.ErrIllegalTransition) {
		t.Errorf("Expected ErrNotInProgress only, got %v", err)
	}
	_, err = client.AttachPlan(ctx, job.ID, entities.RoutingPlan{})
	if !errors.Is(err, entities.ErrEmptyPlan) || !errors.Is(err, entities.ErrInvalidPlan) {
		t.Errorf("Expected ErrEmptyPlan and ErrInvalidPlan, got %v", err)
	}
	_, err = client.GetJob(ctx, "JOB-999999")
	if !errors.Is(err, entities.ErrJobNotFound) {
		t.Errorf("Expected ErrJobNotFound, got %v", err)
	}
	found, err := client.GetJob(ctx, job.JobNumber)
	if err != nil || found.ID != job.ID {
		t.Errorf("Expected to resolve %s by number, got %v %v", job.JobNumber, found, err)
	}
}

func TestServer_ErrorMapping(t *testing.T) {
	env := newTestEnv(t)
	job := env.createJob(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		code   int
	}{
		{"missing job", http.MethodGet, "/api/v1/jobs/nope", nil, http.StatusNotFound},
		{"illegal transition", http.MethodPut, "/api/v1/jobs/" + job.ID + "/status", repositories.StatusUpdate{Status: entities.StatusShipped}, http.StatusConflict},
		{"empty plan", http.MethodPut, "/api/v1/jobs/" + job.ID + "/plan", entities.RoutingPlan{}, http.StatusUnprocessableEntity},
		{"unknown status", http.MethodPut, "/api/v1/jobs/" + job.ID + "/status", repositories.StatusUpdate{Status: "LOST"}, http.StatusBadRequest},
		{"unknown priority", http.MethodPatch, "/api/v1/jobs/" + job.ID, map[string]any{"priority": "eventually"}, http.StatusBadRequest},
		{"unknown field", http.MethodPost, "/api/v1/jobs", map[string]any{"colour": "red"}, http.StatusBadRequest},
		{"bad status filter", http.MethodGet, "/api/v1/jobs?status=LOST", nil, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := env.do(t, tt.method, tt.path, tt.body)
			if code != tt.code {
				t.Errorf("Expected %d, got %d", tt.code, code)
			}
			if len(body["error"]) == 0 {
				t.Error("Expected an error message")
			}
		})
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		code int
	}{
		{fmt.Errorf("wrapped: %w", entities.ErrJobNotFound), http.StatusNotFound},
		{&entities.TransitionError{From: entities.StatusOrdered, To: entities.StatusShipped}, http.StatusConflict},
		{&entities.PlanValidationError{Failure: entities.EmptyPlan}, http.StatusUnprocessableEntity},
		{repositories.ErrInvalidRequest, http.StatusBadRequest},
		{fmt.Errorf("good -1: %w", entities.ErrNegativeDelta), http.StatusBadRequest},
		{fmt.Errorf("job JOB-000001 is ORDERED: %w", entities.ErrNotInProgress), http.StatusConflict},
		{entities.ErrNoRemainingOperations, http.StatusConflict},
		{errors.New("disk full"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := StatusFor(tt.err); got != tt.code {
			t.Errorf("Expected %d for %v, got %d", tt.code, tt.err, got)
		}
	}
}

func TestServer_PanicRecovered(t *testing.T) {
	handler := RecoverMiddleware(zap.NewNop(), http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("Expected 500, got %d", rec.Code)
	}
}

func TestServer_WebsocketReceivesJobEvents(t *testing.T) {
	env := newTestEnv(t)

	url := "ws" + strings.TrimPrefix(env.server.URL, "http") + "/ws"
	conn, _, err := ws.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Failed to dial websocket: %v", err)
	}
	defer conn.Close()
	deadline := time.Now().Add(2 * time.Second)
	for env.hub.Clients() != 1 {
		if time.Now().After(deadline) {
			t.Fatal("Expected the websocket client to register")
		}
		time.Sleep(5 * time.Millisecond)
	}

	env.createJob(t)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("Failed to read event: %v", err)
	}
	var msg struct {
		Type string `json:"type"`
	}
	json.Unmarshal(raw, &msg)
	if msg.Type != events.JobCreatedEvent {
		t.Errorf("Expected %s, got %s", events.JobCreatedEvent, msg.Type)
	}
}

// The board engine talking to the API through the HTTP client
func TestEndToEnd_BoardOverHTTP(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	client, err := remote.NewHTTPClient(env.server.URL, 2*time.Second)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	first, err := client.CreateJob(ctx, repositories.CreateJobRequest{OperationType: "CUT", Priority: "hot", TargetPieces: 10})
	if err != nil {
		t.Fatalf("Failed to create job: %v", err)
	}
	second, err := client.CreateJob(ctx, repositories.CreateJobRequest{OperationType: "SLIT"})
	if err != nil {
		t.Fatalf("Failed to create job: %v", err)
	}
	plan := entities.RoutingPlan{Operations: []entities.Operation{{RequiredWorkCenterType: "SAW"}}}
	for _, id := range []string{first.ID, second.ID} {
		if _, err := client.AttachPlan(ctx, id, plan); err != nil {
			t.Fatalf("Failed to attach plan: %v", err)
		}
	}

	engine, err := board.NewEngine(client, entities.DefaultRegistry(), entities.DefaultPriorityLadder())
	if err != nil {
		t.Fatalf("Failed to create engine: %v", err)
	}
	if err := engine.Load(ctx, repositories.JobFilter{}); err != nil {
		t.Fatalf("Failed to load board: %v", err)
	}
	scheduled, _ := engine.Columns().Column("scheduled")
	if len(scheduled.Cards) != 2 || scheduled.Cards[0].ID != first.ID {
		t.Fatalf("Expected both jobs scheduled with the HOT job first, got %+v", scheduled.Cards)
	}

	ticket, err := engine.Move(ctx, first.ID, "processing")
	if err != nil {
		t.Fatalf("Failed to move job: %v", err)
	}
	result, err := ticket.Wait(ctx)
	if err != nil || result.State != board.MoveConfirmed {
		t.Fatalf("Expected Confirmed, got %s %v %v", result.State, result.Err, err)
	}
	if result.Job.ActualStart == nil {
		t.Error("Expected the server to stamp actual start")
	}

	// The server cancels the second job behind the board's back.
	if _, err := env.service.UpdateStatus(ctx, second.ID, repositories.StatusUpdate{Status: entities.StatusCancelled}); err != nil {
		t.Fatalf("Failed to cancel job: %v", err)
	}
	ticket, err = engine.Move(ctx, second.ID, "processing")
	if err != nil {
		t.Fatalf("Expected the stale board to accept the move locally, got %v", err)
	}
	result, _ = ticket.Wait(ctx)
	if result.State != board.MoveRolledBack {
		t.Fatalf("Expected RolledBack, got %s", result.State)
	}
	if !errors.Is(result.Err, entities.ErrRemoteFailure) || !errors.Is(result.Err, entities.ErrIllegalTransition) {
		t.Errorf("Expected remote illegal transition, got %v", result.Err)
	}
	var remoteErr *repositories.RemoteError
	if !errors.As(result.Err, &remoteErr) || remoteErr.StatusCode != http.StatusConflict {
		t.Errorf("Expected a 409 RemoteError, got %v", result.Err)
	}
	if job, _ := engine.Job(second.ID); job.Status != entities.StatusScheduled {
		t.Errorf("Expected the board to roll back to SCHEDULED, got %s", job.Status)
	}
}
