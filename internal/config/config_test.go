package config

import (
	"os"
	"testing"
)

func TestNewFromEnv(t *testing.T) {
	// Helper function to set environment variables for a test
	setEnv := func(t *testing.T, key, value string) {
		t.Helper()
		t.Setenv(key, value)
	}

	setRequired := func(t *testing.T) {
		setEnv(t, "NUTRIDATA_API_URL", "http://nutridata.test")
		setEnv(t, "NUTRIDATA_CONTENT_KEY", "content_key")
		setEnv(t, "GEMINI_API_KEY", "gemini_key")
		setEnv(t, "GROQ_API_KEY", "groq_key")
	}

	t.Run("Success", func(t *testing.T) {
		setRequired(t)

		cfg, err := NewFromEnv()
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if cfg.NutriDataURL != "http://nutridata.test" {
			t.Errorf("Expected NutriDataURL to be 'http://nutridata.test', got '%s'", cfg.NutriDataURL)
		}
		if cfg.NutriDataContentKey != "content_key" {
			t.Errorf("Expected NutriDataContentKey to be 'content_key', got '%s'", cfg.NutriDataContentKey)
		}
		if cfg.NutriDataAdminKey != "content_key" {
			t.Errorf("Admin key should fall back to the content key, got '%s'", cfg.NutriDataAdminKey)
		}
		if cfg.GroqAPIKey != "groq_key" {
			t.Errorf("Expected GroqAPIKey to be 'groq_key', got '%s'", cfg.GroqAPIKey)
		}
	})

	t.Run("Defaults", func(t *testing.T) {
		setRequired(t)

		cfg, err := NewFromEnv()
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if cfg.PlanHorizonDays != 7 {
			t.Errorf("Expected default horizon of 7 days, got %d", cfg.PlanHorizonDays)
		}
		if cfg.MealsPerDay != 3 {
			t.Errorf("Expected default 3 meals per day, got %d", cfg.MealsPerDay)
		}
		if cfg.CooldownWindow != 2 {
			t.Errorf("Expected default cooldown of 2, got %d", cfg.CooldownWindow)
		}
		if cfg.DatabasePath != "data/nutri-coach.db" {
			t.Errorf("Unexpected default database path '%s'", cfg.DatabasePath)
		}
		if cfg.WeeklyBudgetCap != nil {
			t.Errorf("Budget cap should be unset by default, got %v", *cfg.WeeklyBudgetCap)
		}
	})

	t.Run("MissingNutriDataURL", func(t *testing.T) {
		setEnv(t, "NUTRIDATA_CONTENT_KEY", "content_key")
		setEnv(t, "GEMINI_API_KEY", "gemini_key")
		setEnv(t, "GROQ_API_KEY", "groq_key")

		// Unset NUTRIDATA_API_URL specifically for this test
		os.Unsetenv("NUTRIDATA_API_URL")

		_, err := NewFromEnv()
		if err == nil {
			t.Fatal("Expected an error for missing NUTRIDATA_API_URL, got nil")
		}
	})

	t.Run("AllowList", func(t *testing.T) {
		setRequired(t)
		setEnv(t, "TELEGRAM_ALLOW_USER_IDS", "123, 456,789")

		cfg, err := NewFromEnv()
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if len(cfg.TelegramAllowedUserIDs) != 3 || cfg.TelegramAllowedUserIDs[1] != 456 {
			t.Errorf("Allow list parsed wrong: %v", cfg.TelegramAllowedUserIDs)
		}
	})

	t.Run("InvalidAllowList", func(t *testing.T) {
		setRequired(t)
		setEnv(t, "TELEGRAM_ALLOW_USER_IDS", "123,abc")

		if _, err := NewFromEnv(); err == nil {
			t.Fatal("Expected an error for a non-numeric allow list entry")
		}
	})

	t.Run("BudgetCap", func(t *testing.T) {
		setRequired(t)
		setEnv(t, "WEEKLY_BUDGET_CAP", "85.50")

		cfg, err := NewFromEnv()
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if cfg.WeeklyBudgetCap == nil || *cfg.WeeklyBudgetCap != 85.50 {
			t.Errorf("Budget cap parsed wrong: %v", cfg.WeeklyBudgetCap)
		}
	})

	t.Run("InvalidBudgetCap", func(t *testing.T) {
		setRequired(t)
		setEnv(t, "WEEKLY_BUDGET_CAP", "-10")

		if _, err := NewFromEnv(); err == nil {
			t.Fatal("Expected an error for a non-positive budget cap")
		}
	})
}
