package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"nutri-coach/internal/app"
	"nutri-coach/internal/candidate"
	"nutri-coach/internal/config"
	"nutri-coach/internal/database"
	"nutri-coach/internal/goal"
	"nutri-coach/internal/metrics"
	"nutri-coach/internal/nutridata"
	"nutri-coach/internal/plan"
)

func main() {
	ctx := context.Background()

	cfg, err := config.NewFromEnv()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.NewDB(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	trendingStore := goal.NewTrendingStore(db.SQL)
	registry := goal.NewRegistry(trendingStore)
	goalRepo := goal.NewRepository(db.SQL)
	planRepo := plan.NewRepository(db.SQL)
	candidateRepo := candidate.NewRepository(db.SQL)

	application := app.NewApp(cfg, registry, goalRepo, planRepo, candidateRepo)

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "plan":
		planCmd := flag.NewFlagSet("plan", flag.ExitOnError)
		userID := planCmd.String("user", "", "User ID to regenerate the plan for")
		planCmd.Parse(os.Args[2:])
		if *userID == "" {
			log.Fatal("plan requires -user")
		}

		mealPlan, err := application.RegeneratePlan(ctx, *userID, nil)
		if err != nil {
			log.Fatalf("Plan generation failed: %v", err)
		}
		if mealPlan == nil {
			log.Fatal("Plan run was superseded by a newer update")
		}
		goals, err := application.ListGoals(ctx, *userID)
		if err != nil {
			log.Fatalf("Failed to load goals: %v", err)
		}
		printPlan(*mealPlan, goals)
	case "sync-candidates":
		client := nutridata.NewClient(cfg)
		candidates, err := client.FetchCandidates()
		if err != nil {
			log.Fatalf("Failed to fetch candidates: %v", err)
		}
		for _, c := range candidates {
			if err := candidateRepo.Save(ctx, c); err != nil {
				log.Fatalf("Failed to save candidate %s: %v", c.ID, err)
			}
		}
		fmt.Printf("Synced %d candidate meals.\n", len(candidates))
	case "seed-candidates":
		seedCmd := flag.NewFlagSet("seed-candidates", flag.ExitOnError)
		dir := seedCmd.String("dir", cfg.CandidatePoolPath, "Directory of candidate JSON files")
		seedCmd.Parse(os.Args[2:])

		pool, err := candidate.NewFileStore(*dir)
		if err != nil {
			log.Fatalf("Failed to open candidate pool %s: %v", *dir, err)
		}
		candidates, err := pool.Candidates(ctx)
		if err != nil {
			log.Fatalf("Failed to load candidate files: %v", err)
		}
		for _, c := range candidates {
			if err := candidateRepo.Save(ctx, c); err != nil {
				log.Fatalf("Failed to save candidate %s: %v", c.ID, err)
			}
		}
		fmt.Printf("Seeded %d candidate meals from %s.\n", len(candidates), *dir)
	case "export-trending":
		exportCmd := flag.NewFlagSet("export-trending", flag.ExitOnError)
		limit := exportCmd.Int("limit", 20, "Number of top labels to export")
		exportCmd.Parse(os.Args[2:])

		labels, err := trendingStore.Top(ctx, *limit)
		if err != nil {
			log.Fatalf("Failed to load trending labels: %v", err)
		}
		if len(labels) == 0 {
			fmt.Println("No trending labels recorded yet.")
			return
		}
		client := nutridata.NewClient(cfg)
		if err := client.PublishTrending(labels); err != nil {
			log.Fatalf("Failed to publish trending labels: %v", err)
		}
		fmt.Printf("Published %d trending labels.\n", len(labels))
	case "plans-cleanup":
		cleanupCmd := flag.NewFlagSet("plans-cleanup", flag.ExitOnError)
		days := cleanupCmd.Int("days", 90, "Keep plan history for the last N days")
		cleanupCmd.Parse(os.Args[2:])

		affected, err := planRepo.Cleanup(ctx, *days)
		if err != nil {
			log.Fatalf("Cleanup failed: %v", err)
		}
		fmt.Printf("Successfully removed %d old plan rows.\n", affected)
	case "metrics-cleanup":
		cleanupCmd := flag.NewFlagSet("metrics-cleanup", flag.ExitOnError)
		days := cleanupCmd.Int("days", 30, "Keep records for the last N days")
		cleanupCmd.Parse(os.Args[2:])

		metricsStore := metrics.NewStore(db.SQL)
		affected, err := metricsStore.Cleanup(*days)
		if err != nil {
			log.Fatalf("Cleanup failed: %v", err)
		}
		fmt.Printf("Successfully removed %d old metric records.\n", affected)
	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printPlan(p plan.MealPlan, goals []goal.Goal) {
	fmt.Printf("=== MEAL PLAN (v%d) ===\n", p.PlanVersion)
	for _, slot := range p.Slots {
		switch {
		case slot.Unresolved():
			fmt.Printf("%-12s (unresolved)\n", slot.SlotID)
		case slot.Locked:
			fmt.Printf("%-12s [locked] %s\n", slot.SlotID, slot.Scored.Candidate.Title)
		default:
			fmt.Printf("%-12s %s (score %.2f, cost %.2f)\n",
				slot.SlotID, slot.Scored.Candidate.Title, slot.Scored.Aggregate, slot.Scored.Candidate.Cost)
		}
	}
	fmt.Printf("Filled %d/%d slots.\n", p.FilledSlots(), len(p.Slots))
	for _, g := range goals {
		name := string(g.Kind)
		if g.Kind == goal.KindCustom {
			name = g.Label
		}
		fmt.Printf("  %s: %.0f%% satisfied\n", name, p.GoalSatisfaction[g.ID]*100)
	}
	for _, t := range p.TradeOffs {
		fmt.Printf("  trade-off on %s: %s\n", t.Metric, t.Detail)
	}
}

func printUsage() {
	fmt.Println("Usage: nutri-coach <command> [arguments]")
	fmt.Println("\nCommands:")
	fmt.Println("  plan -user <id>      Regenerate the meal plan for a user")
	fmt.Println("  sync-candidates      Fetch the candidate meal pool from NutriData")
	fmt.Println("  seed-candidates      Import candidate JSON files from a local pool directory")
	fmt.Println("  export-trending      Publish top trending goal labels to NutriData")
	fmt.Println("  plans-cleanup        Remove old plan history rows")
	fmt.Println("  metrics-cleanup      Remove old metric records")
}
