// Package app wires the planning core together: goal storage, candidate
// supply, merge/score/select runs and per-user plan versioning.
package app

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"nutri-coach/internal/candidate"
	"nutri-coach/internal/config"
	"nutri-coach/internal/goal"
	"nutri-coach/internal/intent"
	"nutri-coach/internal/plan"
)

// GoalStore is the goal persistence surface the app needs.
type GoalStore interface {
	ListActive(ctx context.Context, userID string) ([]goal.Goal, error)
	Get(ctx context.Context, userID, goalID string) (*goal.Goal, error)
	Save(ctx context.Context, userID string, g goal.Goal) error
	UpdatePriority(ctx context.Context, userID, goalID string, priority int) (*goal.Goal, error)
	Delete(ctx context.Context, userID, goalID string) error
}

// PlanStore is the plan persistence surface the app needs.
type PlanStore interface {
	Save(ctx context.Context, userID string, p plan.MealPlan) error
	Latest(ctx context.Context, userID string) (*plan.MealPlan, error)
	LatestVersion(ctx context.Context, userID string) (int64, error)
}

// App holds the application's planning dependencies.
type App struct {
	cfg      *config.Config
	registry *goal.Registry
	goals    GoalStore
	plans    PlanStore
	source   candidate.Source

	mu    sync.Mutex
	users map[string]*userState
}

// userState tracks the latest started plan version per user. A run commits
// only while its version is still the latest; later triggers silently
// invalidate in-flight results.
type userState struct {
	version int64
	seeded  bool
}

// NewApp creates and initializes a new App instance.
func NewApp(cfg *config.Config, registry *goal.Registry, goals GoalStore, plans PlanStore, source candidate.Source) *App {
	return &App{
		cfg:      cfg,
		registry: registry,
		goals:    goals,
		plans:    plans,
		source:   source,
		users:    make(map[string]*userState),
	}
}

// beginRun bumps the user's plan version and returns the version this run
// owns. The counter is seeded from storage on first touch so versions stay
// monotonic across restarts.
func (a *App) beginRun(ctx context.Context, userID string) (int64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	state, ok := a.users[userID]
	if !ok {
		state = &userState{}
		a.users[userID] = state
	}
	if !state.seeded {
		stored, err := a.plans.LatestVersion(ctx, userID)
		if err != nil {
			return 0, fmt.Errorf("failed to seed plan version for user %s: %w", userID, err)
		}
		state.version = stored
		state.seeded = true
	}
	state.version++
	return state.version, nil
}

// stillCurrent reports whether a run's version is the latest started for the
// user.
func (a *App) stillCurrent(userID string, version int64) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	state, ok := a.users[userID]
	return ok && state.version == version
}

// RegeneratePlan runs one merge → score → select cycle for a user. The
// locked map carries slots the user already accepted; they are preserved
// verbatim. A stale run (superseded by a later trigger before commit)
// returns (nil, nil): the result is discarded, never written.
func (a *App) RegeneratePlan(ctx context.Context, userID string, locked map[string]plan.ScoredCandidate) (*plan.MealPlan, error) {
	version, err := a.beginRun(ctx, userID)
	if err != nil {
		return nil, err
	}

	goals, err := a.goals.ListActive(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load goals for user %s: %w", userID, err)
	}
	if err := goal.ValidateAll(goals); err != nil {
		return nil, err
	}

	pool, err := a.source.Candidates(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load candidate pool: %w", err)
	}

	merged := plan.Merge(goals)
	mealPlan := plan.Select(plan.Request{
		Merged:          merged,
		Goals:           goals,
		Pool:            pool,
		Horizon:         plan.Horizon(a.cfg.PlanHorizonDays, a.cfg.MealsPerDay),
		Locked:          locked,
		Cooldown:        a.cfg.CooldownWindow,
		WeeklyBudgetCap: a.cfg.WeeklyBudgetCap,
	})
	mealPlan.PlanVersion = version
	mealPlan.CreatedAt = time.Now().UTC()

	if !a.stillCurrent(userID, version) {
		log.Printf("Discarding stale plan v%d for user %s", version, userID)
		return nil, nil
	}
	if err := a.plans.Save(ctx, userID, mealPlan); err != nil {
		return nil, fmt.Errorf("failed to save plan for user %s: %w", userID, err)
	}
	return &mealPlan, nil
}

// MergedConstraints exposes what the next plan would optimize for, for
// display and debugging.
func (a *App) MergedConstraints(ctx context.Context, userID string) (plan.MergedConstraintSet, error) {
	goals, err := a.goals.ListActive(ctx, userID)
	if err != nil {
		return plan.MergedConstraintSet{}, fmt.Errorf("failed to load goals for user %s: %w", userID, err)
	}
	if err := goal.ValidateAll(goals); err != nil {
		return plan.MergedConstraintSet{}, err
	}
	return plan.Merge(goals), nil
}

// UpdateGoalPriority re-weights one goal and regenerates the plan, carrying
// the user's locked slots forward.
func (a *App) UpdateGoalPriority(ctx context.Context, userID, goalID string, priority int) (*plan.MealPlan, error) {
	if err := goal.ValidatePriority(priority); err != nil {
		return nil, err
	}
	g, err := a.goals.UpdatePriority(ctx, userID, goalID, priority)
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, fmt.Errorf("goal %s not found for user %s", goalID, userID)
	}

	locked, err := a.lockedFromLatest(ctx, userID)
	if err != nil {
		return nil, err
	}
	return a.RegeneratePlan(ctx, userID, locked)
}

// AddGoal registers a new goal. Constraints stated by the user win;
// otherwise predefined kinds fall back to their canonical schema and custom
// labels go through the proxy resolver (which never fails).
func (a *App) AddGoal(ctx context.Context, userID string, kind goal.Kind, label string, priority int, constraints goal.ConstraintSpec) (goal.Goal, error) {
	if constraints.IsEmpty() {
		if kind == goal.KindCustom {
			constraints = a.registry.Resolve(ctx, label)
		} else if spec, ok := a.registry.KindSpec(kind); ok {
			constraints = spec
		}
	}
	g, err := goal.NewGoal(kind, label, priority, constraints)
	if err != nil {
		return goal.Goal{}, err
	}
	if err := a.goals.Save(ctx, userID, g); err != nil {
		return goal.Goal{}, err
	}
	return g, nil
}

// RetractGoal removes a goal from the user's set.
func (a *App) RetractGoal(ctx context.Context, userID, goalID string) error {
	return a.goals.Delete(ctx, userID, goalID)
}

// ApplyUpdate routes a parsed intent update to the right operation and
// regenerates the plan when the goal set changed.
func (a *App) ApplyUpdate(ctx context.Context, userID string, upd intent.Update) (*plan.MealPlan, error) {
	switch upd.Type {
	case intent.UpdateNewGoal:
		if _, err := a.AddGoal(ctx, userID, upd.Kind, upd.Label, upd.Priority, goal.ConstraintSpec{}); err != nil {
			return nil, err
		}
		locked, err := a.lockedFromLatest(ctx, userID)
		if err != nil {
			return nil, err
		}
		return a.RegeneratePlan(ctx, userID, locked)
	case intent.UpdatePriorityChange:
		return a.UpdateGoalPriority(ctx, userID, upd.GoalID, upd.Priority)
	case intent.UpdateRetractGoal:
		if err := a.RetractGoal(ctx, userID, upd.GoalID); err != nil {
			return nil, err
		}
		locked, err := a.lockedFromLatest(ctx, userID)
		if err != nil {
			return nil, err
		}
		return a.RegeneratePlan(ctx, userID, locked)
	default:
		return nil, nil
	}
}

// ListGoals returns the user's active goals.
func (a *App) ListGoals(ctx context.Context, userID string) ([]goal.Goal, error) {
	return a.goals.ListActive(ctx, userID)
}

// LatestPlan returns the user's newest committed plan.
func (a *App) LatestPlan(ctx context.Context, userID string) (*plan.MealPlan, error) {
	return a.plans.Latest(ctx, userID)
}

// lockedFromLatest rebuilds the locked-slot map from the newest stored
// plan's locked markers. Locked slots are the only state carried across
// runs, and always explicitly.
func (a *App) lockedFromLatest(ctx context.Context, userID string) (map[string]plan.ScoredCandidate, error) {
	latest, err := a.plans.Latest(ctx, userID)
	if err != nil {
		return nil, err
	}
	if latest == nil {
		return nil, nil
	}
	locked := make(map[string]plan.ScoredCandidate)
	for _, slot := range latest.Slots {
		if slot.Locked && slot.Scored != nil {
			locked[slot.SlotID] = *slot.Scored
		}
	}
	return locked, nil
}

// LockSlot marks a slot of the latest plan as consumed/accepted so future
// regenerations preserve it verbatim.
func (a *App) LockSlot(ctx context.Context, userID, slotID string) error {
	latest, err := a.plans.Latest(ctx, userID)
	if err != nil {
		return err
	}
	if latest == nil {
		return fmt.Errorf("no plan to lock a slot on for user %s", userID)
	}
	found := false
	for i := range latest.Slots {
		if latest.Slots[i].SlotID == slotID {
			if latest.Slots[i].Unresolved() {
				return fmt.Errorf("slot %s is unresolved and cannot be locked", slotID)
			}
			latest.Slots[i].Locked = true
			found = true
		}
	}
	if !found {
		return fmt.Errorf("slot %s not in latest plan for user %s", slotID, userID)
	}
	return a.plans.Save(ctx, userID, *latest)
}
