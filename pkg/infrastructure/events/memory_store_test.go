package events

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/vsinha/shopfloor/pkg/domain/entities"
)

type recordingHandler struct {
	mu     sync.Mutex
	types  map[string]bool
	events []Event
	err    error
}

func (h *recordingHandler) Handle(event Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, event)
	return h.err
}

func (h *recordingHandler) CanHandle(eventType string) bool {
	return h.types == nil || h.types[eventType]
}

func (h *recordingHandler) received() []Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Event(nil), h.events...)
}

func TestInMemoryEventStore_Versions(t *testing.T) {
	store := NewInMemoryEventStore(nil)
	job := entities.JobSnapshot{ID: "j1", JobNumber: "JOB-000001", Status: entities.StatusOrdered}

	if err := store.AppendEvent("j1", NewJobCreatedEvent(job)); err != nil {
		t.Fatalf("Failed to append event: %v", err)
	}
	job.Status = entities.StatusOnHold
	if err := store.AppendEvent("j1", NewJobStatusChangedEvent(job, entities.StatusOrdered, "")); err != nil {
		t.Fatalf("Failed to append event: %v", err)
	}
	if err := store.AppendEvent("j2", NewJobCreatedEvent(entities.JobSnapshot{ID: "j2"})); err != nil {
		t.Fatalf("Failed to append event: %v", err)
	}

	stream, _ := store.ReadEvents("j1", 0)
	if len(stream) != 2 {
		t.Fatalf("Expected 2 events in stream, got %d", len(stream))
	}
	if stream[1].Version() != 2 {
		t.Errorf("Expected version 2, got %d", stream[1].Version())
	}
	changed, ok := stream[1].Data().(JobStatusChanged)
	if !ok {
		t.Fatalf("Expected JobStatusChanged payload, got %T", stream[1].Data())
	}
	if changed.From != entities.StatusOrdered || changed.To != entities.StatusOnHold {
		t.Errorf("Expected ORDERED -> ON_HOLD, got %s -> %s", changed.From, changed.To)
	}

	tail, _ := store.ReadEvents("j1", 2)
	if len(tail) != 1 {
		t.Errorf("Expected 1 event from version 2, got %d", len(tail))
	}

	all, _ := store.ReadAllEvents(1)
	if len(all) != 2 {
		t.Errorf("Expected 2 events from position 1, got %d", len(all))
	}
}

func TestInMemoryEventStore_Subscribers(t *testing.T) {
	store := NewInMemoryEventStore(nil)
	created := &recordingHandler{types: map[string]bool{JobCreatedEvent: true}}
	everything := &recordingHandler{err: errors.New("ignored")}

	if err := store.Subscribe([]string{JobCreatedEvent}, created); err != nil {
		t.Fatalf("Failed to subscribe: %v", err)
	}
	if err := store.Subscribe([]string{AllEvents, JobCreatedEvent}, everything); err != nil {
		t.Fatalf("Failed to subscribe: %v", err)
	}

	_ = store.AppendEvent("j1", NewJobCreatedEvent(entities.JobSnapshot{ID: "j1"}))
	_ = store.AppendEvent("j1", NewBoardMoveEvent(BoardMoveRejectedEvent, BoardMove{JobID: "j1"}))
	store.Wait()

	if got := len(created.received()); got != 1 {
		t.Errorf("Expected 1 event for the typed subscriber, got %d", got)
	}
	if got := len(everything.received()); got != 2 {
		t.Errorf("Expected each event once for the wildcard subscriber, got %d", got)
	}

	_ = store.Unsubscribe(everything)
	_ = store.AppendEvent("j1", NewJobCreatedEvent(entities.JobSnapshot{ID: "j1"}))
	store.Wait()
	if got := len(everything.received()); got != 2 {
		t.Errorf("Expected no events after unsubscribe, got %d", got)
	}
}

func TestMarshal(t *testing.T) {
	event := NewBoardMoveEvent(BoardMoveRolledBackEvent, BoardMove{
		JobID:  "j1",
		Field:  "status",
		From:   "ORDERED",
		To:     "SCHEDULED",
		Status: entities.StatusOrdered,
		Reason: "remote mutation failed",
	})

	raw, err := Marshal(event)
	if err != nil {
		t.Fatalf("Failed to marshal event: %v", err)
	}

	var decoded struct {
		Type   string    `json:"type"`
		Stream string    `json:"stream"`
		Data   BoardMove `json:"data"`
	}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("Failed to unmarshal event: %v", err)
	}
	if decoded.Type != BoardMoveRolledBackEvent || decoded.Stream != "j1" {
		t.Errorf("Expected %s on stream j1, got %s on %s", BoardMoveRolledBackEvent, decoded.Type, decoded.Stream)
	}
	if decoded.Data.Status != entities.StatusOrdered {
		t.Errorf("Expected restored status ORDERED, got %s", decoded.Data.Status)
	}
}
