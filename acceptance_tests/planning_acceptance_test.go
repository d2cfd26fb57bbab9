package acceptance_tests

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"nutri-coach/internal/app"
	"nutri-coach/internal/candidate"
	"nutri-coach/internal/config"
	"nutri-coach/internal/database"
	"nutri-coach/internal/goal"
	"nutri-coach/internal/intent"
	"nutri-coach/internal/plan"
)

// --- Acceptance Test ---
func TestFullPlanningWorkflow(t *testing.T) {
	ctx := context.Background()
	const userID = "42"

	// 1. Set up a temporary directory for the database
	tempDir, err := os.MkdirTemp("", "acceptance_test")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tempDir)

	db, err := database.NewDB(filepath.Join(tempDir, "nutri-coach.db"))
	if err != nil {
		t.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	// 2. Seed the candidate pool through the real repository
	candidateRepo := candidate.NewRepository(db.SQL)
	pool := []candidate.Candidate{
		{ID: "grilled-chicken", Title: "Grilled Chicken", Nutrients: map[string]float64{"protein_g": 42, "sodium_mg": 520}, Cost: 5.00, FoodTags: []string{"poultry", "chicken"}},
		{ID: "lentil-bowl", Title: "Lentil Bowl", Nutrients: map[string]float64{"protein_g": 24, "sodium_mg": 310}, Cost: 2.80, FoodTags: []string{"legume", "lentils"}},
		{ID: "cheese-omelette", Title: "Cheese Omelette", Nutrients: map[string]float64{"protein_g": 30, "sodium_mg": 700}, Cost: 3.20, FoodTags: []string{"dairy", "eggs"}},
		{ID: "tofu-stirfry", Title: "Tofu Stir-Fry", Nutrients: map[string]float64{"protein_g": 28, "sodium_mg": 480}, Cost: 3.10, FoodTags: []string{"soy", "tofu"}},
	}
	for _, c := range pool {
		if err := candidateRepo.Save(ctx, c); err != nil {
			t.Fatalf("Failed to seed candidate %s: %v", c.ID, err)
		}
	}

	// 3. Create the application instance over the real stores
	cfg := &config.Config{
		PlanHorizonDays: 2,
		MealsPerDay:     2,
		CooldownWindow:  1,
	}
	registry := goal.NewRegistry(goal.NewTrendingStore(db.SQL))
	application := app.NewApp(cfg, registry, goal.NewRepository(db.SQL), plan.NewRepository(db.SQL), candidateRepo)

	// --- 4. Step 1: Goal intake ---
	t.Log("--- Step 1: Adding Goals ---")
	if _, err := application.AddGoal(ctx, userID, goal.KindHighProtein, "", 3, goal.ConstraintSpec{}); err != nil {
		t.Fatalf("Failed to add high-protein goal: %v", err)
	}
	noDairy, err := application.AddGoal(ctx, userID, goal.KindCustom, "no dairy", 4, goal.ConstraintSpec{
		RestrictedFoods: []string{"dairy"},
	})
	if err != nil {
		t.Fatalf("Failed to add custom goal: %v", err)
	}

	merged, err := application.MergedConstraints(ctx, userID)
	if err != nil {
		t.Fatalf("Failed to read merged constraints: %v", err)
	}
	if target, ok := merged.MetricTargets["protein_g"]; !ok || target.Direction != goal.AtLeast {
		t.Errorf("Expected a protein_g floor in merged constraints, got %+v", merged.MetricTargets)
	}
	if !merged.Restricted("dairy") {
		t.Errorf("Expected dairy to be hard-restricted")
	}

	// --- 5. Step 2: First planning run ---
	t.Log("--- Step 2: Generating Meal Plan ---")
	first, err := application.RegeneratePlan(ctx, userID, nil)
	if err != nil {
		t.Fatalf("Planning failed: %v", err)
	}
	if first.PlanVersion != 1 {
		t.Errorf("Expected plan version 1, got %d", first.PlanVersion)
	}
	if len(first.Slots) != 4 {
		t.Fatalf("Expected 4 slots, got %d", len(first.Slots))
	}
	for _, slot := range first.Slots {
		if slot.Unresolved() {
			t.Fatalf("Expected slot %s to be filled", slot.SlotID)
		}
		if slot.Scored.Candidate.ID == "cheese-omelette" {
			t.Errorf("Restricted candidate assigned to slot %s", slot.SlotID)
		}
	}
	if sat := first.GoalSatisfaction[noDairy.ID]; sat <= 0 {
		t.Errorf("Expected positive satisfaction for the custom goal, got %f", sat)
	}

	// --- 6. Step 3: Lock a slot and replan ---
	t.Log("--- Step 3: Locking a Slot and Replanning ---")
	if err := application.LockSlot(ctx, userID, "day1-meal1"); err != nil {
		t.Fatalf("Failed to lock slot: %v", err)
	}
	lockedID := first.Slots[0].Scored.Candidate.ID

	second, err := application.ApplyUpdate(ctx, userID, intent.Update{
		Type:     intent.UpdateNewGoal,
		Kind:     goal.KindLowSodium,
		Priority: 2,
	})
	if err != nil {
		t.Fatalf("Failed to apply goal update: %v", err)
	}
	if second.PlanVersion != 2 {
		t.Errorf("Expected plan version 2 after update, got %d", second.PlanVersion)
	}
	if !second.Slots[0].Locked {
		t.Errorf("Expected day1-meal1 to stay locked")
	}
	if got := second.Slots[0].Scored.Candidate.ID; got != lockedID {
		t.Errorf("Expected locked slot to keep %s, got %s", lockedID, got)
	}

	// --- 7. Step 4: Persistence round-trip ---
	t.Log("--- Step 4: Reloading the Latest Plan ---")
	latest, err := application.LatestPlan(ctx, userID)
	if err != nil {
		t.Fatalf("Failed to load latest plan: %v", err)
	}
	if latest == nil || latest.PlanVersion != second.PlanVersion {
		t.Fatalf("Expected latest plan v%d to round-trip, got %+v", second.PlanVersion, latest)
	}
}
