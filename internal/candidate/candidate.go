// Package candidate models the externally supplied meal options the planner
// chooses from. Candidates are read-only to the planning core.
package candidate

import "context"

// Candidate is one meal/recipe option with its nutrient profile, cost and
// food tags, as supplied by the nutrient data service.
type Candidate struct {
	ID        string             `json:"id"`
	Title     string             `json:"title,omitempty"`
	Nutrients map[string]float64 `json:"nutrients"`
	Cost      float64            `json:"cost"`
	FoodTags  []string           `json:"food_tags"`
}

// MetricCost is the metric name budget constraints use. Cost lives in its
// own field rather than the nutrient profile, so Nutrient answers for it
// from there.
const MetricCost = "cost_per_meal"

// Nutrient returns the candidate's value for a metric, 0 when the profile
// does not track it. An explicit profile entry wins over the Cost field.
func (c Candidate) Nutrient(metric string) float64 {
	if v, ok := c.Nutrients[metric]; ok {
		return v
	}
	if metric == MetricCost {
		return c.Cost
	}
	return 0
}

// Source supplies the candidate pool for a planning run.
type Source interface {
	Candidates(ctx context.Context) ([]Candidate, error)
}
