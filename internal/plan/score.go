package plan

import (
	"nutri-coach/internal/candidate"
	"nutri-coach/internal/goal"
)

// emphasisBonusCap limits how much soft food preference can add on top of a
// metric-driven score.
const emphasisBonusCap = 0.1

// neutralScore is what a goal with no metric constraints contributes: the
// candidate is neither rewarded nor penalized for it.
const neutralScore = 0.5

// Eligible applies the hard filter: any candidate tag in the merged
// restricted set disqualifies the candidate outright. This is the only hard
// rejection in the core.
func Eligible(c candidate.Candidate, merged MergedConstraintSet) bool {
	for _, tag := range c.FoodTags {
		if merged.Restricted(tag) {
			return false
		}
	}
	return true
}

// Score evaluates an eligible candidate against the merged constraint set
// and the individual goals. Pure: no side effects, no randomness.
func Score(c candidate.Candidate, merged MergedConstraintSet, goals []goal.Goal) ScoredCandidate {
	per := make(map[string]float64, len(goals))
	var weighted, weight float64
	for _, g := range goals {
		s := goalScore(c, g)
		per[g.ID] = s
		weighted += float64(g.Priority) * s
		weight += float64(g.Priority)
	}

	aggregate := 0.0
	if weight > 0 {
		aggregate = weighted / weight
	}
	overlap := emphasisOverlap(c, merged.EmphasizedFoods)
	aggregate = clamp(aggregate+emphasisBonusCap*overlap, 0, 1)

	return ScoredCandidate{
		Candidate:       c,
		PerGoal:         per,
		Aggregate:       aggregate,
		EmphasisOverlap: overlap,
	}
}

// goalScore scores one goal: the unweighted mean over that goal's own metric
// constraints, or the neutral score plus a small preference bonus when the
// goal constrains no metrics (custom goals resolved to an empty or
// food-only spec).
func goalScore(c candidate.Candidate, g goal.Goal) float64 {
	metrics := g.Constraints.MetricNames()
	if len(metrics) == 0 {
		bonus := emphasisBonusCap * listOverlap(c, g.Constraints.EmphasizedFoods)
		return clamp(neutralScore+bonus, 0, 1)
	}

	var sum float64
	for _, m := range metrics {
		sum += metricScore(c.Nutrient(m), g.Constraints.Metrics[m])
	}
	return sum / float64(len(metrics))
}

// metricScore scores a single (direction, value) constraint against the
// candidate's actual value. Floors score proportionally to shortfall, caps
// decay linearly to zero at twice the cap, targets decay linearly with
// relative distance.
func metricScore(actual float64, t goal.MetricTarget) float64 {
	v := t.Value
	switch t.Direction {
	case goal.AtLeast:
		return clamp(actual/v, 0, 1)
	case goal.AtMost:
		if actual <= v {
			return 1
		}
		return clamp(1-(actual-v)/v, 0, 1)
	default: // target
		return clamp(1-abs(actual-v)/v, 0, 1)
	}
}

// tagSet returns the candidate's food tags as a normalized set.
func tagSet(c candidate.Candidate) map[string]struct{} {
	set := make(map[string]struct{}, len(c.FoodTags))
	for _, tag := range c.FoodTags {
		set[goal.NormalizeFood(tag)] = struct{}{}
	}
	return set
}

// emphasisOverlap is the weight share of the merged emphasized foods the
// candidate's tags cover, in [0,1].
func emphasisOverlap(c candidate.Candidate, emphasized map[string]int) float64 {
	if len(emphasized) == 0 {
		return 0
	}
	tags := tagSet(c)
	var total, hit int
	for food, w := range emphasized {
		total += w
		if _, ok := tags[food]; ok {
			hit += w
		}
	}
	if total == 0 {
		return 0
	}
	return float64(hit) / float64(total)
}

// listOverlap is the fraction of a goal's own emphasized foods present in
// the candidate's tags.
func listOverlap(c candidate.Candidate, emphasized []string) float64 {
	if len(emphasized) == 0 {
		return 0
	}
	tags := tagSet(c)
	hit := 0
	for _, food := range emphasized {
		if _, ok := tags[goal.NormalizeFood(food)]; ok {
			hit++
		}
	}
	return float64(hit) / float64(len(emphasized))
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
