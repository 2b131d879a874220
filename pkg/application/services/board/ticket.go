package board

import (
	"context"
	"errors"

	"github.com/vsinha/shopfloor/pkg/domain/entities"
)

// ErrRejectedByBackend means the backend accepted the call but answered with a different value than requested
var ErrRejectedByBackend = errors.New("backend did not apply the requested value")

// MoveState is how an optimistic change was resolved
type MoveState int

const (
	MoveConfirmed MoveState = iota + 1
	MoveRolledBack
	MoveRejected
	MoveNoop
)

// String method for MoveState
func (s MoveState) String() string {
	switch s {
	case MoveConfirmed:
		return "Confirmed"
	case MoveRolledBack:
		return "RolledBack"
	case MoveRejected:
		return "Rejected"
	case MoveNoop:
		return "Noop"
	default:
		return "Unknown"
	}
}

// MoveResult describes one resolved change
type MoveResult struct {
	JobID     string
	JobNumber string
	Field     string
	From      string
	To        string
	State     MoveState
	Job       entities.JobSnapshot
	Err       error
}

// Observer is told about every resolved or rejected change
type Observer interface {
	MoveResolved(result MoveResult)
}

// ObserverFunc adapts a function to Observer
type ObserverFunc func(result MoveResult)

// MoveResolved calls f(result)
func (f ObserverFunc) MoveResolved(result MoveResult) { f(result) }

// Ticket tracks one in-flight change until it is confirmed or rolled back
type Ticket struct {
	done   chan struct{}
	result MoveResult
}

func newTicket() *Ticket {
	return &Ticket{done: make(chan struct{})}
}

func resolvedTicket(result MoveResult) *Ticket {
	t := newTicket()
	t.resolve(result)
	return t
}

func (t *Ticket) resolve(result MoveResult) {
	t.result = result
	close(t.done)
}

// Done is closed once the change is resolved
func (t *Ticket) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the change is resolved or ctx ends. Abandoning the wait
// does not abandon the change: it still resolves against the board.
func (t *Ticket) Wait(ctx context.Context) (MoveResult, error) {
	select {
	case <-t.done:
		return t.result, nil
	case <-ctx.Done():
		return MoveResult{}, ctx.Err()
	}
}

// Result returns the outcome if the change has resolved
func (t *Ticket) Result() (MoveResult, bool) {
	select {
	case <-t.done:
		return t.result, true
	default:
		return MoveResult{}, false
	}
}
