package plan

import (
	"sort"

	"nutri-coach/internal/candidate"
	"nutri-coach/internal/goal"
)

// costEps absorbs float noise when comparing costs against the per-slot
// budget allowance.
const costEps = 1e-9

// Request carries everything one planning run needs. All fields are
// read-only to Select.
type Request struct {
	Merged   MergedConstraintSet
	Goals    []goal.Goal
	Pool     []candidate.Candidate
	Horizon  []string
	Locked   map[string]ScoredCandidate
	Cooldown int

	// WeeklyBudgetCap, when set, bounds the total cost across the horizon.
	WeeklyBudgetCap *float64
}

// Select walks the horizon in slot order and greedily assigns the
// best-scoring eligible candidate per slot. Deterministic: ties break on
// emphasized-food overlap, then cost, then candidate ID. Slots with no
// eligible candidate are marked unresolved rather than failing the run.
// Locked slots are copied verbatim, participate in cooldown and budget
// tracking, and are never rescored.
func Select(req Request) MealPlan {
	ranked := rankPool(req)

	plan := MealPlan{
		Slots:     make([]SlotAssignment, 0, len(req.Horizon)),
		TradeOffs: req.Merged.TradeOffs,
	}

	// assigned mirrors the horizon with the candidate ID placed in each
	// slot ("" when unresolved); the cooldown window slides over it.
	assigned := make([]string, len(req.Horizon))
	var spent float64

	for i, slotID := range req.Horizon {
		if locked, ok := req.Locked[slotID]; ok {
			sc := locked
			plan.Slots = append(plan.Slots, SlotAssignment{SlotID: slotID, Scored: &sc, Locked: true})
			assigned[i] = sc.Candidate.ID
			spent += sc.Candidate.Cost
			continue
		}

		banned := cooldownSet(assigned, i, req.Cooldown)
		allowance, capped := slotAllowance(req, i, spent)

		pick := pickCandidate(ranked, banned, capped, allowance)
		if pick == nil {
			plan.Slots = append(plan.Slots, SlotAssignment{SlotID: slotID})
			continue
		}
		plan.Slots = append(plan.Slots, SlotAssignment{SlotID: slotID, Scored: pick})
		assigned[i] = pick.Candidate.ID
		spent += pick.Candidate.Cost
	}

	plan.GoalSatisfaction = satisfactionReport(plan.Slots, req.Goals)
	return plan
}

// rankPool hard-filters the pool, scores every survivor once (scores do not
// depend on the slot) and sorts by the full tie-break chain.
func rankPool(req Request) []ScoredCandidate {
	ranked := make([]ScoredCandidate, 0, len(req.Pool))
	for _, c := range req.Pool {
		if !Eligible(c, req.Merged) {
			continue
		}
		ranked = append(ranked, Score(c, req.Merged, req.Goals))
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.Aggregate != b.Aggregate {
			return a.Aggregate > b.Aggregate
		}
		if a.EmphasisOverlap != b.EmphasisOverlap {
			return a.EmphasisOverlap > b.EmphasisOverlap
		}
		if a.Candidate.Cost != b.Candidate.Cost {
			return a.Candidate.Cost < b.Candidate.Cost
		}
		return a.Candidate.ID < b.Candidate.ID
	})
	return ranked
}

// cooldownSet collects the candidate IDs used in the previous `cooldown`
// slots before index i, locked slots included.
func cooldownSet(assigned []string, i, cooldown int) map[string]struct{} {
	banned := make(map[string]struct{})
	for j := i - cooldown; j < i; j++ {
		if j >= 0 && assigned[j] != "" {
			banned[assigned[j]] = struct{}{}
		}
	}
	return banned
}

// slotAllowance derives the per-slot cost ceiling under a weekly budget cap:
// the budget remaining after spend so far and after the fixed cost of locked
// slots still ahead, split evenly over the open slots left. Without a cap
// the slot is unconstrained.
func slotAllowance(req Request, i int, spent float64) (float64, bool) {
	if req.WeeklyBudgetCap == nil {
		return 0, false
	}
	var futureLocked float64
	openLeft := 0
	for j := i; j < len(req.Horizon); j++ {
		if locked, ok := req.Locked[req.Horizon[j]]; ok {
			if j > i {
				futureLocked += locked.Candidate.Cost
			}
			continue
		}
		openLeft++
	}
	if openLeft == 0 {
		return 0, false
	}
	return (*req.WeeklyBudgetCap - spent - futureLocked) / float64(openLeft), true
}

// pickCandidate returns the highest-ranked candidate passing the cooldown
// and budget filters, or nil when the slot cannot be filled.
func pickCandidate(ranked []ScoredCandidate, banned map[string]struct{}, capped bool, allowance float64) *ScoredCandidate {
	for idx := range ranked {
		sc := ranked[idx]
		if _, onCooldown := banned[sc.Candidate.ID]; onCooldown {
			continue
		}
		if capped && sc.Candidate.Cost > allowance+costEps {
			continue
		}
		pick := sc
		return &pick
	}
	return nil
}

// satisfactionReport averages each goal's per-goal score across the filled
// slots. Locked slots contribute the scores they were locked with; slots
// whose stored scores predate a goal are skipped for that goal.
func satisfactionReport(slots []SlotAssignment, goals []goal.Goal) map[string]float64 {
	report := make(map[string]float64, len(goals))
	for _, g := range goals {
		var sum float64
		n := 0
		for _, s := range slots {
			if s.Unresolved() {
				continue
			}
			if score, ok := s.Scored.PerGoal[g.ID]; ok {
				sum += score
				n++
			}
		}
		if n > 0 {
			report[g.ID] = sum / float64(n)
		} else {
			report[g.ID] = 0
		}
	}
	return report
}
