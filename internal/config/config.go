package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds the configuration for the application.
type Config struct {
	// Nutrient data service
	NutriDataURL        string
	NutriDataContentKey string
	NutriDataAdminKey   string

	// LLM providers (intent parsing and meal clipping only; the planning
	// core never calls a model)
	GeminiAPIKey string
	GroqAPIKey   string

	// Telegram
	TelegramBotToken       string
	TelegramWebhookURL     string
	TelegramAllowedUserIDs []int64

	// Storage
	DatabasePath      string
	CandidatePoolPath string

	// Planning defaults
	PlanHorizonDays int
	MealsPerDay     int
	CooldownWindow  int
	WeeklyBudgetCap *float64
}

// NewFromEnv creates a new Config object from environment variables.
func NewFromEnv() (*Config, error) {
	nutriURL := os.Getenv("NUTRIDATA_API_URL")
	if nutriURL == "" {
		return nil, fmt.Errorf("NUTRIDATA_API_URL environment variable not set")
	}

	contentKey := os.Getenv("NUTRIDATA_CONTENT_KEY")
	if contentKey == "" {
		return nil, fmt.Errorf("NUTRIDATA_CONTENT_KEY environment variable not set")
	}

	adminKey := os.Getenv("NUTRIDATA_ADMIN_KEY")
	if adminKey == "" {
		// Fallback to content key if only one is provided
		adminKey = contentKey
	}

	geminiAPIKey := os.Getenv("GEMINI_API_KEY")
	if geminiAPIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY environment variable not set")
	}

	groqAPIKey := os.Getenv("GROQ_API_KEY")
	if groqAPIKey == "" {
		return nil, fmt.Errorf("GROQ_API_KEY environment variable not set")
	}

	dbPath := os.Getenv("DATABASE_PATH")
	if dbPath == "" {
		dbPath = "data/nutri-coach.db"
	}

	poolPath := os.Getenv("CANDIDATE_POOL_PATH")
	if poolPath == "" {
		poolPath = "data/candidates"
	}

	cfg := &Config{
		NutriDataURL:        nutriURL,
		NutriDataContentKey: contentKey,
		NutriDataAdminKey:   adminKey,
		GeminiAPIKey:        geminiAPIKey,
		GroqAPIKey:          groqAPIKey,
		TelegramBotToken:    os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramWebhookURL:  os.Getenv("TELEGRAM_WEBHOOK_URL"),
		DatabasePath:        dbPath,
		CandidatePoolPath:   poolPath,
		PlanHorizonDays:     intFromEnv("PLAN_HORIZON_DAYS", 7),
		MealsPerDay:         intFromEnv("MEALS_PER_DAY", 3),
		CooldownWindow:      intFromEnv("COOLDOWN_WINDOW", 2),
	}

	// Telegram allow list (optional for CLI, required for Bot)
	if raw := os.Getenv("TELEGRAM_ALLOW_USER_IDS"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid TELEGRAM_ALLOW_USER_IDS entry %q: %w", part, err)
			}
			cfg.TelegramAllowedUserIDs = append(cfg.TelegramAllowedUserIDs, id)
		}
	}

	if raw := os.Getenv("WEEKLY_BUDGET_CAP"); raw != "" {
		budgetCap, err := strconv.ParseFloat(raw, 64)
		if err != nil || budgetCap <= 0 {
			return nil, fmt.Errorf("invalid WEEKLY_BUDGET_CAP %q", raw)
		}
		cfg.WeeklyBudgetCap = &budgetCap
	}

	if cfg.CooldownWindow < 0 {
		return nil, fmt.Errorf("COOLDOWN_WINDOW must not be negative")
	}

	return cfg, nil
}

func intFromEnv(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}
