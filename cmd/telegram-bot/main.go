package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"nutri-coach/internal/app"
	"nutri-coach/internal/candidate"
	"nutri-coach/internal/clipper"
	"nutri-coach/internal/config"
	"nutri-coach/internal/database"
	"nutri-coach/internal/goal"
	"nutri-coach/internal/intent"
	"nutri-coach/internal/llm"
	"nutri-coach/internal/metrics"
	"nutri-coach/internal/plan"
	"nutri-coach/internal/telegram"
)

func main() {
	cfg, err := config.NewFromEnv()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx := context.Background()

	intentModel := llm.NewGroqClient(cfg, llm.ModelIntent, 0.1)

	geminiClient, err := llm.NewGeminiClient(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to create Gemini client: %v", err)
	}
	defer geminiClient.Close()

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
	metricsStore := metrics.NewStore(db.SQL)

	application := app.NewApp(cfg, registry, goalRepo, planRepo, candidateRepo)
	mealClipper := clipper.NewClipper(geminiClient)
	intentParser := intent.NewParser(intentModel)

	bot, err := telegram.NewBot(cfg, application, mealClipper, candidateRepo, intentParser, metricsStore)
	if err != nil {
		log.Fatalf("Failed to initialize Telegram Bot: %v", err)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	bot.RegisterHandlers()

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: nil,
	}

	go func() {
		log.Printf("Telegram Bot Server listening on port %s", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctxShutdown); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exiting")
}
