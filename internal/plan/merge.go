package plan

import (
	"fmt"
	"math"
	"sort"

	"nutri-coach/internal/goal"
)

// roundingEps guards unit rounding against float drift in the weighted
// averages.
const roundingEps = 1e-9

// metricEntry pairs one goal with its constraint on a single metric.
type metricEntry struct {
	g goal.Goal
	t goal.MetricTarget
}

// Merge combines the active goals into one MergedConstraintSet. It is a pure
// function of its input: same goals and priorities in, same result out.
// Merging never fails; infeasible combinations become trade-off records.
//
// Per metric: any cap (at_most) wins as the minimum cap; otherwise floors
// (at_least) merge to a priority-weighted average rounded up; otherwise
// targets merge to a priority-weighted average rounded to the nearest unit.
// A cap below a floor is resolved in favor of the higher-priority goal, the
// other side demoted to best-effort. Restricted foods are a plain union,
// never relaxed by priority.
func Merge(goals []goal.Goal) MergedConstraintSet {
	merged := MergedConstraintSet{
		MetricTargets:   make(map[string]goal.MetricTarget),
		EmphasizedFoods: make(map[string]int),
		RestrictedFoods: make(map[string]struct{}),
	}

	byMetric := make(map[string][]metricEntry)
	for _, g := range goals {
		for _, m := range g.Constraints.MetricNames() {
			byMetric[m] = append(byMetric[m], metricEntry{g: g, t: g.Constraints.Metrics[m]})
		}
		for _, f := range g.Constraints.RestrictedFoods {
			merged.RestrictedFoods[goal.NormalizeFood(f)] = struct{}{}
		}
		for _, f := range g.Constraints.EmphasizedFoods {
			merged.EmphasizedFoods[goal.NormalizeFood(f)] += g.Priority
		}
	}

	// Iterate metrics in sorted order so the trade-off list is ordered
	// deterministically.
	metrics := make([]string, 0, len(byMetric))
	for m := range byMetric {
		metrics = append(metrics, m)
	}
	sort.Strings(metrics)

	for _, m := range metrics {
		var caps, floors, targets []metricEntry
		for _, e := range byMetric[m] {
			switch e.t.Direction {
			case goal.AtMost:
				caps = append(caps, e)
			case goal.AtLeast:
				floors = append(floors, e)
			default:
				targets = append(targets, e)
			}
		}

		switch {
		case len(caps) > 0:
			capVal, capGoal := strictestCap(caps)
			if len(floors) > 0 {
				floorVal, floorGoal := weightedFloor(floors)
				if capVal < floorVal {
					merged.resolveInfeasible(m, capVal, capGoal, floorVal, floorGoal)
					continue
				}
			}
			merged.MetricTargets[m] = goal.MetricTarget{Direction: goal.AtMost, Value: capVal}
		case len(floors) > 0:
			floorVal, _ := weightedFloor(floors)
			merged.MetricTargets[m] = goal.MetricTarget{Direction: goal.AtLeast, Value: floorVal}
		default:
			merged.MetricTargets[m] = goal.MetricTarget{Direction: goal.Target, Value: weightedTarget(targets)}
		}
	}
	return merged
}

// resolveInfeasible settles a cap-below-floor conflict: the higher-priority
// goal's constraint stays binding, the other is demoted to best-effort and
// the demotion recorded. Priority ties fall to the cap side, the
// safety-leaning default.
func (m *MergedConstraintSet) resolveInfeasible(metric string, capVal float64, capGoal goal.Goal, floorVal float64, floorGoal goal.Goal) {
	if floorGoal.Priority > capGoal.Priority {
		m.MetricTargets[metric] = goal.MetricTarget{Direction: goal.AtLeast, Value: floorVal}
		m.TradeOffs = append(m.TradeOffs, TradeOff{
			Metric:        metric,
			WinnerGoalID:  floorGoal.ID,
			DemotedGoalID: capGoal.ID,
			Detail: fmt.Sprintf("floor %v (priority %d) overrides cap %v (priority %d); cap demoted to best-effort",
				floorVal, floorGoal.Priority, capVal, capGoal.Priority),
		})
		return
	}

	tie := floorGoal.Priority == capGoal.Priority
	detail := fmt.Sprintf("cap %v (priority %d) overrides floor %v (priority %d); floor demoted to best-effort",
		capVal, capGoal.Priority, floorVal, floorGoal.Priority)
	if tie {
		detail += " (priority tie, cap wins by convention)"
	}
	m.MetricTargets[metric] = goal.MetricTarget{Direction: goal.AtMost, Value: capVal}
	m.TradeOffs = append(m.TradeOffs, TradeOff{
		Metric:        metric,
		WinnerGoalID:  capGoal.ID,
		DemotedGoalID: floorGoal.ID,
		Detail:        detail,
		TieBreak:      tie,
	})
}

// strictestCap returns the minimum cap and the goal that supplied it. When
// two goals state the identical minimum, the first in input order represents
// the cap and no trade-off is recorded.
func strictestCap(caps []metricEntry) (float64, goal.Goal) {
	best := caps[0]
	for _, e := range caps[1:] {
		if e.t.Value < best.t.Value {
			best = e
		}
	}
	return best.t.Value, best.g
}

// weightedFloor merges floors to a priority-weighted average rounded up to
// the unit; ties round up so a nutritional floor is never undershot. The
// representative goal for conflict resolution is the highest-priority floor
// goal, first in input order on ties.
func weightedFloor(floors []metricEntry) (float64, goal.Goal) {
	var sum, weight float64
	rep := floors[0]
	for _, e := range floors {
		sum += float64(e.g.Priority) * e.t.Value
		weight += float64(e.g.Priority)
		if e.g.Priority > rep.g.Priority {
			rep = e
		}
	}
	return math.Ceil(sum/weight - roundingEps), rep.g
}

// weightedTarget merges targets to a priority-weighted average rounded to
// the nearest unit; an exact .5 tie rounds toward the highest-priority
// goal's stated value.
func weightedTarget(targets []metricEntry) float64 {
	var sum, weight float64
	rep := targets[0]
	for _, e := range targets {
		sum += float64(e.g.Priority) * e.t.Value
		weight += float64(e.g.Priority)
		if e.g.Priority > rep.g.Priority {
			rep = e
		}
	}
	avg := sum / weight
	lower := math.Floor(avg)
	frac := avg - lower
	if math.Abs(frac-0.5) < roundingEps {
		if rep.t.Value >= avg {
			return lower + 1
		}
		return lower
	}
	return math.Round(avg)
}
