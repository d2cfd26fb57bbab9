// Package plan implements the multi-goal meal-plan optimizer: merging
// prioritized goals into one constraint set, scoring candidates against it,
// and greedily assembling a multi-slot plan with explicit trade-offs.
package plan

import (
	"fmt"
	"time"

	"nutri-coach/internal/candidate"
	"nutri-coach/internal/goal"
)

// TradeOff records a conflict between two goals' constraints on one metric
// and which side prevailed. Legitimate multi-goal tension is always data,
// never an error.
type TradeOff struct {
	Metric        string `json:"metric"`
	WinnerGoalID  string `json:"winner_goal_id"`
	DemotedGoalID string `json:"demoted_goal_id"`
	Detail        string `json:"detail"`
	TieBreak      bool   `json:"tie_break,omitempty"`
}

// MergedConstraintSet is the priority-weighted combination of all active
// goals for one planning run. It is created fresh by Merge and never
// mutated; the next merge supersedes it.
type MergedConstraintSet struct {
	MetricTargets   map[string]goal.MetricTarget `json:"metric_targets"`
	EmphasizedFoods map[string]int               `json:"emphasized_foods"`
	RestrictedFoods map[string]struct{}          `json:"-"`
	TradeOffs       []TradeOff                   `json:"trade_offs"`
}

// Restricted reports whether a (raw) food identifier is hard-excluded.
func (m MergedConstraintSet) Restricted(food string) bool {
	_, ok := m.RestrictedFoods[goal.NormalizeFood(food)]
	return ok
}

// ScoredCandidate is a candidate evaluated against one merged constraint
// set. Scores live in [0,1] and are recomputed on every run.
type ScoredCandidate struct {
	Candidate candidate.Candidate `json:"candidate"`
	PerGoal   map[string]float64  `json:"per_goal"`
	Aggregate float64             `json:"aggregate"`

	// EmphasisOverlap is the normalized emphasized-food overlap, kept for
	// the selector's first tie-break.
	EmphasisOverlap float64 `json:"emphasis_overlap"`
}

// SlotAssignment is one horizon slot of a plan. A nil Scored marks the slot
// unresolved: no eligible candidate survived the filters.
type SlotAssignment struct {
	SlotID string           `json:"slot_id"`
	Scored *ScoredCandidate `json:"scored,omitempty"`
	Locked bool             `json:"locked,omitempty"`
}

// Unresolved reports whether the slot could not be filled.
func (s SlotAssignment) Unresolved() bool {
	return s.Scored == nil
}

// MealPlan is the output of one planning run: ordered slot assignments plus
// the per-goal satisfaction report and the merge's trade-offs.
type MealPlan struct {
	PlanVersion      int64              `json:"plan_version"`
	Slots            []SlotAssignment   `json:"slots"`
	GoalSatisfaction map[string]float64 `json:"goal_satisfaction"`
	TradeOffs        []TradeOff         `json:"trade_offs"`
	CreatedAt        time.Time          `json:"created_at,omitempty"`
}

// FilledSlots counts slots that received a candidate.
func (p MealPlan) FilledSlots() int {
	n := 0
	for _, s := range p.Slots {
		if !s.Unresolved() {
			n++
		}
	}
	return n
}

// Horizon builds the default slot IDs for a plan of `days` days with
// `mealsPerDay` meals, e.g. "day1-meal2". Slot order is plan order.
func Horizon(days, mealsPerDay int) []string {
	var slots []string
	for d := 1; d <= days; d++ {
		for m := 1; m <= mealsPerDay; m++ {
			slots = append(slots, fmt.Sprintf("day%d-meal%d", d, m))
		}
	}
	return slots
}
