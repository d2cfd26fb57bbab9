package plan

import (
	"reflect"
	"testing"

	"nutri-coach/internal/goal"
)

func mkGoal(id string, priority int, metrics map[string]goal.MetricTarget) goal.Goal {
	return goal.Goal{
		ID:          id,
		Kind:        goal.KindCustom,
		Label:       id,
		Priority:    priority,
		Constraints: goal.ConstraintSpec{Metrics: metrics},
	}
}

func TestMergeCaps(t *testing.T) {
	budget := mkGoal("budget", 4, map[string]goal.MetricTarget{
		"cost_per_meal": {Direction: goal.AtMost, Value: 4.00},
	})
	looser := mkGoal("looser", 2, map[string]goal.MetricTarget{
		"cost_per_meal": {Direction: goal.AtMost, Value: 6.00},
	})

	merged := Merge([]goal.Goal{budget, looser})

	got := merged.MetricTargets["cost_per_meal"]
	if got.Direction != goal.AtMost || got.Value != 4.00 {
		t.Errorf("expected cap at_most 4.00, got %s %v", got.Direction, got.Value)
	}
	if len(merged.TradeOffs) != 0 {
		t.Errorf("a stricter cap is not a trade-off, got %v", merged.TradeOffs)
	}

	// The lower cap wins regardless of priority order.
	merged = Merge([]goal.Goal{looser, budget})
	if got := merged.MetricTargets["cost_per_meal"]; got.Value != 4.00 {
		t.Errorf("cap must be the minimum regardless of order, got %v", got.Value)
	}
}

func TestMergeFloorsWeightedAverage(t *testing.T) {
	muscle := mkGoal("muscle", 4, map[string]goal.MetricTarget{
		"protein_g": {Direction: goal.AtLeast, Value: 140},
	})
	general := mkGoal("general", 2, map[string]goal.MetricTarget{
		"protein_g": {Direction: goal.AtLeast, Value: 100},
	})

	merged := Merge([]goal.Goal{muscle, general})

	// (4*140 + 2*100) / 6 = 126.67, rounded up to 127.
	got := merged.MetricTargets["protein_g"]
	if got.Direction != goal.AtLeast || got.Value != 127 {
		t.Errorf("expected floor at_least 127, got %s %v", got.Direction, got.Value)
	}
}

func TestMergeTargets(t *testing.T) {
	a := mkGoal("a", 3, map[string]goal.MetricTarget{
		"calories": {Direction: goal.Target, Value: 2000},
	})
	b := mkGoal("b", 1, map[string]goal.MetricTarget{
		"calories": {Direction: goal.Target, Value: 1800},
	})

	merged := Merge([]goal.Goal{a, b})

	// (3*2000 + 1*1800) / 4 = 1950.
	if got := merged.MetricTargets["calories"]; got.Direction != goal.Target || got.Value != 1950 {
		t.Errorf("expected target 1950, got %s %v", got.Direction, got.Value)
	}
}

func TestMergeTargetHalfTieRoundsTowardPriority(t *testing.T) {
	// (3*2 + 1*1) / 4 = 1.75 -> no tie. Construct an exact .5:
	// (1*2 + 1*3) / 2 = 2.5; the higher-priority goal among equals is the
	// first one, whose stated value 2 pulls the tie downward.
	low := mkGoal("low", 1, map[string]goal.MetricTarget{
		"servings": {Direction: goal.Target, Value: 2},
	})
	high := mkGoal("high", 1, map[string]goal.MetricTarget{
		"servings": {Direction: goal.Target, Value: 3},
	})

	merged := Merge([]goal.Goal{low, high})
	if got := merged.MetricTargets["servings"]; got.Value != 2 {
		t.Errorf("exact .5 tie should round toward first highest-priority goal's value 2, got %v", got.Value)
	}

	// With the 3-valued goal stated first the tie goes up instead.
	low2 := mkGoal("low2", 4, map[string]goal.MetricTarget{
		"servings": {Direction: goal.Target, Value: 2},
	})
	high2 := mkGoal("high2", 4, map[string]goal.MetricTarget{
		"servings": {Direction: goal.Target, Value: 3},
	})
	merged = Merge([]goal.Goal{high2, low2})
	if got := merged.MetricTargets["servings"]; got.Value != 3 {
		t.Errorf("tie should round toward value 3, got %v", got.Value)
	}
}

func TestMergeInfeasibleFloorWins(t *testing.T) {
	sodiumCap := mkGoal("low-sodium", 2, map[string]goal.MetricTarget{
		"sodium_mg": {Direction: goal.AtMost, Value: 1500},
	})
	sodiumFloor := mkGoal("electrolytes", 4, map[string]goal.MetricTarget{
		"sodium_mg": {Direction: goal.AtLeast, Value: 2000},
	})

	merged := Merge([]goal.Goal{sodiumCap, sodiumFloor})

	got := merged.MetricTargets["sodium_mg"]
	if got.Direction != goal.AtLeast || got.Value != 2000 {
		t.Errorf("higher-priority floor should bind, got %s %v", got.Direction, got.Value)
	}
	if len(merged.TradeOffs) != 1 {
		t.Fatalf("expected one trade-off, got %d", len(merged.TradeOffs))
	}
	to := merged.TradeOffs[0]
	if to.Metric != "sodium_mg" || to.WinnerGoalID != "electrolytes" || to.DemotedGoalID != "low-sodium" {
		t.Errorf("unexpected trade-off record: %+v", to)
	}
	if to.TieBreak {
		t.Error("priority 4 vs 2 is not a tie")
	}
}

func TestMergeInfeasibleCapWinsOnTie(t *testing.T) {
	capGoal := mkGoal("cap", 3, map[string]goal.MetricTarget{
		"sugar_g": {Direction: goal.AtMost, Value: 20},
	})
	floorGoal := mkGoal("floor", 3, map[string]goal.MetricTarget{
		"sugar_g": {Direction: goal.AtLeast, Value: 30},
	})

	merged := Merge([]goal.Goal{floorGoal, capGoal})

	got := merged.MetricTargets["sugar_g"]
	if got.Direction != goal.AtMost || got.Value != 20 {
		t.Errorf("cap should win the priority tie, got %s %v", got.Direction, got.Value)
	}
	if len(merged.TradeOffs) != 1 || !merged.TradeOffs[0].TieBreak {
		t.Errorf("tie-break must be recorded, got %+v", merged.TradeOffs)
	}
}

func TestMergeRestrictedUnion(t *testing.T) {
	vegan := goal.Goal{
		ID: "vegan", Kind: goal.KindCustom, Label: "vegan", Priority: 1,
		Constraints: goal.ConstraintSpec{RestrictedFoods: []string{"Meat", "dairy"}},
	}
	lowPriAllergy := goal.Goal{
		ID: "allergy", Kind: goal.KindCustom, Label: "allergy", Priority: 1,
		Constraints: goal.ConstraintSpec{RestrictedFoods: []string{"peanuts"}},
	}

	merged := Merge([]goal.Goal{vegan, lowPriAllergy})

	for _, f := range []string{"meat", "dairy", "peanuts"} {
		if !merged.Restricted(f) {
			t.Errorf("restricted union missing %q", f)
		}
	}
	if merged.Restricted("tofu") {
		t.Error("tofu must not be restricted")
	}
}

func TestMergeEmphasizedWeights(t *testing.T) {
	a := goal.Goal{
		ID: "a", Kind: goal.KindCustom, Label: "a", Priority: 3,
		Constraints: goal.ConstraintSpec{EmphasizedFoods: []string{"salmon", "spinach"}},
	}
	b := goal.Goal{
		ID: "b", Kind: goal.KindCustom, Label: "b", Priority: 2,
		Constraints: goal.ConstraintSpec{EmphasizedFoods: []string{"salmon"}},
	}

	merged := Merge([]goal.Goal{a, b})

	if merged.EmphasizedFoods["salmon"] != 5 {
		t.Errorf("salmon weight should be 3+2=5, got %d", merged.EmphasizedFoods["salmon"])
	}
	if merged.EmphasizedFoods["spinach"] != 3 {
		t.Errorf("spinach weight should be 3, got %d", merged.EmphasizedFoods["spinach"])
	}
}

func TestMergeDeterministic(t *testing.T) {
	goals := []goal.Goal{
		mkGoal("g1", 4, map[string]goal.MetricTarget{
			"protein_g": {Direction: goal.AtLeast, Value: 120},
			"sodium_mg": {Direction: goal.AtMost, Value: 1500},
		}),
		mkGoal("g2", 2, map[string]goal.MetricTarget{
			"protein_g":     {Direction: goal.AtLeast, Value: 90},
			"cost_per_meal": {Direction: goal.AtMost, Value: 5},
		}),
	}

	first := Merge(goals)
	for i := 0; i < 10; i++ {
		if got := Merge(goals); !reflect.DeepEqual(first, got) {
			t.Fatalf("merge is not deterministic: run %d differs", i)
		}
	}
}
