package goal

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// ErrMalformed indicates a structurally invalid goal coming from the intent
// layer. It is the only condition the planning pipeline fails hard on.
var ErrMalformed = errors.New("malformed goal input")

// Direction describes how a metric value constrains a meal.
type Direction string

const (
	AtLeast Direction = "at_least"
	AtMost  Direction = "at_most"
	Target  Direction = "target"
)

// Kind is a predefined goal type, or KindCustom for free-text objectives.
type Kind string

const (
	KindBudget      Kind = "budget"
	KindHighProtein Kind = "high_protein"
	KindLowSodium   Kind = "low_sodium"
	KindHeartHealth Kind = "heart_health"
	KindWeightLoss  Kind = "weight_loss"
	KindMuscleGain  Kind = "muscle_gain"
	KindFiberFocus  Kind = "fiber_focus"
	KindCustom      Kind = "custom"
)

// MetricTarget is a single (direction, value) constraint on a nutrient or
// cost metric.
type MetricTarget struct {
	Direction Direction `json:"direction"`
	Value     float64   `json:"value"`
}

// ConstraintSpec is the constraint payload of a goal: metric targets plus the
// soft emphasized list and the hard restricted list.
type ConstraintSpec struct {
	Metrics         map[string]MetricTarget `json:"metrics,omitempty"`
	EmphasizedFoods []string                `json:"emphasized_foods,omitempty"`
	RestrictedFoods []string                `json:"restricted_foods,omitempty"`
}

// EmptyConstraintSpec is what unknown custom labels resolve to. It carries no
// targets and no food lists; the scorer treats such goals as neutral.
func EmptyConstraintSpec() ConstraintSpec {
	return ConstraintSpec{}
}

// IsEmpty reports whether the spec constrains nothing.
func (s ConstraintSpec) IsEmpty() bool {
	return len(s.Metrics) == 0 && len(s.EmphasizedFoods) == 0 && len(s.RestrictedFoods) == 0
}

// MetricNames returns the constrained metric names in sorted order.
func (s ConstraintSpec) MetricNames() []string {
	names := make([]string, 0, len(s.Metrics))
	for m := range s.Metrics {
		names = append(names, m)
	}
	sort.Strings(names)
	return names
}

// Goal is a single user objective. Goals are immutable snapshots within a
// planning run; priority changes produce a new snapshot via the repository.
type Goal struct {
	ID          string         `json:"id"`
	Kind        Kind           `json:"kind"`
	Priority    int            `json:"priority"`
	Label       string         `json:"label,omitempty"`
	Constraints ConstraintSpec `json:"constraints"`
}

// NewGoal builds a validated goal with a fresh ID.
func NewGoal(kind Kind, label string, priority int, spec ConstraintSpec) (Goal, error) {
	g := Goal{
		ID:          uuid.NewString(),
		Kind:        kind,
		Priority:    priority,
		Label:       strings.TrimSpace(label),
		Constraints: spec,
	}
	if err := g.Validate(); err != nil {
		return Goal{}, err
	}
	return g, nil
}

var knownKinds = map[Kind]struct{}{
	KindBudget:      {},
	KindHighProtein: {},
	KindLowSodium:   {},
	KindHeartHealth: {},
	KindWeightLoss:  {},
	KindMuscleGain:  {},
	KindFiberFocus:  {},
	KindCustom:      {},
}

// Validate checks the structural invariants the upstream intent layer must
// guarantee. Violations wrap ErrMalformed.
func (g Goal) Validate() error {
	if g.ID == "" {
		return fmt.Errorf("%w: missing goal id", ErrMalformed)
	}
	if _, ok := knownKinds[g.Kind]; !ok {
		return fmt.Errorf("%w: unknown kind %q", ErrMalformed, g.Kind)
	}
	if err := ValidatePriority(g.Priority); err != nil {
		return err
	}
	if g.Kind == KindCustom && g.Label == "" {
		return fmt.Errorf("%w: custom goal requires a label", ErrMalformed)
	}
	for name, t := range g.Constraints.Metrics {
		if name == "" {
			return fmt.Errorf("%w: empty metric name", ErrMalformed)
		}
		switch t.Direction {
		case AtLeast, AtMost, Target:
		default:
			return fmt.Errorf("%w: metric %s has unknown direction %q", ErrMalformed, name, t.Direction)
		}
		if t.Value <= 0 {
			return fmt.Errorf("%w: metric %s has non-positive value %v", ErrMalformed, name, t.Value)
		}
	}
	return nil
}

// ValidatePriority enforces the 1..4 priority scale (4 = highest).
func ValidatePriority(p int) error {
	if p < 1 || p > 4 {
		return fmt.Errorf("%w: priority %d outside 1..4", ErrMalformed, p)
	}
	return nil
}

// ValidateAll validates a goal list at the pipeline boundary.
func ValidateAll(goals []Goal) error {
	for _, g := range goals {
		if err := g.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// NormalizeFood canonicalizes a food identifier for set and map membership.
func NormalizeFood(food string) string {
	return strings.Join(strings.Fields(strings.ToLower(strings.TrimSpace(food))), " ")
}
