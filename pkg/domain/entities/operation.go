package entities

import (
	"fmt"
	"strings"
)

// SkillLevel represents the operator skill an operation requires
type SkillLevel int

const (
	SkillStandard SkillLevel = iota
	SkillNovice
	SkillExpert
)

// String method for SkillLevel enum
func (s SkillLevel) String() string {
	switch s {
	case SkillStandard:
		return "STANDARD"
	case SkillNovice:
		return "NOVICE"
	case SkillExpert:
		return "EXPERT"
	default:
		return "Unknown"
	}
}

// ParseSkillLevel parses a skill level, empty input yields STANDARD
func ParseSkillLevel(raw string) (SkillLevel, error) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "", "STANDARD":
		return SkillStandard, nil
	case "NOVICE":
		return SkillNovice, nil
	case "EXPERT":
		return SkillExpert, nil
	default:
		return SkillStandard, fmt.Errorf("invalid skill level: %s", raw)
	}
}

// MarshalText implements encoding.TextMarshaler
func (s SkillLevel) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (s *SkillLevel) UnmarshalText(text []byte) error {
	level, err := ParseSkillLevel(string(text))
	if err != nil {
		return err
	}
	*s = level
	return nil
}

// Operation is one step of a routing plan
type Operation struct {
	Sequence               int        `json:"sequence"`
	RequiredWorkCenterType string     `json:"requiredWorkCenterType"`
	AssignedWorkCenterID   string     `json:"assignedWorkCenterId,omitempty"`
	Name                   string     `json:"name"`
	SkillLevel             SkillLevel `json:"skillLevel"`
}

// IsAssigned reports whether a specific work center is bound
func (o Operation) IsAssigned() bool {
	return o.AssignedWorkCenterID != ""
}
