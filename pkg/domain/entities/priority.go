package entities

import (
	"fmt"
	"strings"
)

// Priority orders jobs for display. It carries no transition semantics.
type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityNormal Priority = "NORMAL"
	PriorityHigh   Priority = "HIGH"
	PriorityUrgent Priority = "URGENT"
	PriorityHot    Priority = "HOT"
)

// String method for Priority
func (p Priority) String() string {
	return string(p)
}

// PriorityLadder is the configured ordering of priorities, lowest first
type PriorityLadder struct {
	levels []Priority
	rank   map[Priority]int
}

// NewPriorityLadder creates a validated PriorityLadder
func NewPriorityLadder(levels []Priority) (*PriorityLadder, error) {
	if len(levels) == 0 {
		return nil, fmt.Errorf("priority ladder cannot be empty")
	}
	l := &PriorityLadder{
		levels: make([]Priority, 0, len(levels)),
		rank:   make(map[Priority]int, len(levels)),
	}
	for _, p := range levels {
		p = Priority(strings.ToUpper(strings.TrimSpace(string(p))))
		if p == "" {
			return nil, fmt.Errorf("priority cannot be empty")
		}
		if _, dup := l.rank[p]; dup {
			return nil, fmt.Errorf("duplicate priority %s", p)
		}
		l.rank[p] = len(l.levels)
		l.levels = append(l.levels, p)
	}
	return l, nil
}

// DefaultPriorityLadder returns LOW < NORMAL < HIGH < URGENT < HOT
func DefaultPriorityLadder() *PriorityLadder {
	l, _ := NewPriorityLadder([]Priority{PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent, PriorityHot})
	return l
}

// Rank returns the position of p in the ladder, -1 if unknown
func (l *PriorityLadder) Rank(p Priority) int {
	r, ok := l.rank[p]
	if !ok {
		return -1
	}
	return r
}

// Contains reports whether p is on the ladder
func (l *PriorityLadder) Contains(p Priority) bool {
	_, ok := l.rank[p]
	return ok
}

// Levels returns the ladder lowest first
func (l *PriorityLadder) Levels() []Priority {
	return append([]Priority(nil), l.levels...)
}

// Default returns NORMAL when configured, otherwise the lowest level
func (l *PriorityLadder) Default() Priority {
	if l.Contains(PriorityNormal) {
		return PriorityNormal
	}
	return l.levels[0]
}

// Parse normalizes raw and checks it against the ladder. Empty input yields the default.
func (l *PriorityLadder) Parse(raw string) (Priority, error) {
	p := Priority(strings.ToUpper(strings.TrimSpace(raw)))
	if p == "" {
		return l.Default(), nil
	}
	if !l.Contains(p) {
		return "", fmt.Errorf("%w: %s", ErrUnknownPriority, raw)
	}
	return p, nil
}
