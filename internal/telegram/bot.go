package telegram

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"sort"
	"strings"

	"nutri-coach/internal/app"
	"nutri-coach/internal/candidate"
	"nutri-coach/internal/clipper"
	"nutri-coach/internal/config"
	"nutri-coach/internal/goal"
	"nutri-coach/internal/intent"
	"nutri-coach/internal/metrics"
	"nutri-coach/internal/plan"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Bot wraps the Telegram API around the coaching app: structured commands
// plus free-text goal updates routed through the intent parser.
type Bot struct {
	api          *tgbotapi.BotAPI
	app          *app.App
	clipper      *clipper.Clipper
	candidates   *candidate.Repository
	intentParser *intent.Parser
	metricsStore *metrics.Store
	cfg          *config.Config
}

// NewBot initializes the Telegram Bot and sets the Webhook.
func NewBot(
	cfg *config.Config,
	application *app.App,
	mealClipper *clipper.Clipper,
	candidates *candidate.Repository,
	intentParser *intent.Parser,
	metricsStore *metrics.Store,
) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to init telegram api: %w", err)
	}

	log.Printf("Authorized on account %s", api.Self.UserName)

	wh, _ := tgbotapi.NewWebhook(cfg.TelegramWebhookURL)
	resp, err := api.Request(wh)
	if err != nil {
		return nil, fmt.Errorf("failed to set webhook to %s: %w", cfg.TelegramWebhookURL, err)
	}
	log.Printf("Webhook set response: %s", resp.Description)

	return &Bot{
		api:          api,
		app:          application,
		clipper:      mealClipper,
		candidates:   candidates,
		intentParser: intentParser,
		metricsStore: metricsStore,
		cfg:          cfg,
	}, nil
}

// RegisterHandlers registers the webhook handler with the default HTTP mux.
func (b *Bot) RegisterHandlers() {
	http.HandleFunc("/webhook", b.handleWebhook)
	http.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
}

func (b *Bot) handleWebhook(w http.ResponseWriter, r *http.Request) {
	update, err := b.api.HandleUpdate(r)
	if err != nil {
		log.Printf("Error parsing update: %v", err)
		return
	}

	if update.Message == nil {
		return
	}

	isAllowed := false
	for _, id := range b.cfg.TelegramAllowedUserIDs {
		if update.Message.From.ID == id {
			isAllowed = true
			break
		}
	}
	if !isAllowed {
		log.Printf("⚠️ Unauthorized access attempt from UserID: %d (@%s)", update.Message.From.ID, update.Message.From.UserName)
		return
	}

	go b.processMessage(update.Message)
}

func (b *Bot) processMessage(msg *tgbotapi.Message) {
	ctx := context.Background()
	userID := fmt.Sprintf("%d", msg.From.ID)
	text := strings.TrimSpace(msg.Text)

	switch {
	case text == "/start" || text == "/help":
		b.reply(msg.Chat.ID, helpText)
	case text == "/goals":
		b.handleGoals(ctx, msg.Chat.ID, userID)
	case text == "/plan":
		b.handlePlan(ctx, msg.Chat.ID, userID)
	case text == "/show":
		b.handleShow(ctx, msg.Chat.ID, userID)
	case text == "/constraints":
		b.handleConstraints(ctx, msg.Chat.ID, userID)
	case strings.HasPrefix(text, "/lock "):
		b.handleLock(ctx, msg.Chat.ID, userID, strings.TrimSpace(strings.TrimPrefix(text, "/lock")))
	case text == "/health":
		b.handleHealth(msg.Chat.ID)
	case text == "/metrics":
		b.handleMetrics(msg.Chat.ID)
	case strings.HasPrefix(text, "http://") || strings.HasPrefix(text, "https://"):
		b.handleClip(ctx, msg.Chat.ID, text)
	default:
		b.handleFreeText(ctx, msg.Chat.ID, userID, text)
	}
}

const helpText = `I keep your meal plan aligned with your goals.

/goals - list your goals and priorities
/plan - regenerate the plan
/show - show the current plan
/constraints - what the plan optimizes for
/lock day2-meal1 - keep a meal across regenerations
/health - service health
/metrics - LLM token usage

Or just tell me things like "I want more protein, it's important" or
paste a recipe URL to add it to the pool.`

func (b *Bot) handleGoals(ctx context.Context, chatID int64, userID string) {
	goals, err := b.app.ListGoals(ctx, userID)
	if err != nil {
		b.replyError(chatID, "loading goals", err)
		return
	}
	b.reply(chatID, FormatGoals(goals))
}

func (b *Bot) handlePlan(ctx context.Context, chatID int64, userID string) {
	b.reply(chatID, "🧑‍🍳 Rebalancing your plan...")
	mealPlan, err := b.app.RegeneratePlan(ctx, userID, nil)
	if err != nil {
		b.replyError(chatID, "generating plan", err)
		return
	}
	if mealPlan == nil {
		// A newer update superseded this run; its plan follows separately.
		return
	}
	goals, _ := b.app.ListGoals(ctx, userID)
	b.reply(chatID, FormatPlan(*mealPlan, goals))
}

func (b *Bot) handleShow(ctx context.Context, chatID int64, userID string) {
	mealPlan, err := b.app.LatestPlan(ctx, userID)
	if err != nil {
		b.replyError(chatID, "loading plan", err)
		return
	}
	if mealPlan == nil {
		b.reply(chatID, "No plan yet. Add a goal or send /plan.")
		return
	}
	goals, _ := b.app.ListGoals(ctx, userID)
	b.reply(chatID, FormatPlan(*mealPlan, goals))
}

func (b *Bot) handleConstraints(ctx context.Context, chatID int64, userID string) {
	merged, err := b.app.MergedConstraints(ctx, userID)
	if err != nil {
		b.replyError(chatID, "merging constraints", err)
		return
	}
	b.reply(chatID, FormatConstraints(merged))
}

func (b *Bot) handleLock(ctx context.Context, chatID int64, userID, slotID string) {
	if err := b.app.LockSlot(ctx, userID, slotID); err != nil {
		b.replyError(chatID, "locking slot", err)
		return
	}
	b.reply(chatID, fmt.Sprintf("🔒 %s locked. It will survive regenerations.", slotID))
}

func (b *Bot) handleHealth(chatID int64) {
	h := metrics.GetSysHealth(b.cfg.CandidatePoolPath)
	b.reply(chatID, fmt.Sprintf("Alloc: %d MB | Sys: %d MB | GC: %d | Goroutines: %d | Data: %s",
		h.AllocMB, h.SysMB, h.NumGC, h.Goroutines, h.DataSize))
}

func (b *Bot) handleMetrics(chatID int64) {
	usage, err := b.metricsStore.GetDailyUsage(7)
	if err != nil {
		b.replyError(chatID, "loading metrics", err)
		return
	}
	if len(usage) == 0 {
		b.reply(chatID, "No LLM usage recorded in the last 7 days.")
		return
	}
	var sb strings.Builder
	sb.WriteString("LLM usage, last 7 days:\n")
	for _, u := range usage {
		fmt.Fprintf(&sb, "%s - %d calls, %d prompt / %d completion tokens\n",
			u.Date, u.TotalExecution, u.TotalPrompt, u.TotalCompletion)
	}
	b.reply(chatID, sb.String())
}

func (b *Bot) handleClip(ctx context.Context, chatID int64, url string) {
	b.reply(chatID, "✂️ Clipping meal...")
	cand, meta, err := b.clipper.ClipURL(ctx, url)
	if recErr := b.metricsStore.RecordMeta(meta); recErr != nil {
		log.Printf("Warning: failed to record clipper metrics: %v", recErr)
	}
	if err != nil {
		b.replyError(chatID, "clipping meal", err)
		return
	}
	existing, err := b.candidates.Get(ctx, cand.ID)
	if err != nil {
		b.replyError(chatID, "checking the pool", err)
		return
	}
	if err := b.candidates.Save(ctx, *cand); err != nil {
		b.replyError(chatID, "saving meal", err)
		return
	}
	verb := "Added"
	if existing != nil {
		verb = "Updated"
	}
	b.reply(chatID, fmt.Sprintf("✅ %s %q in the candidate pool (cost ≈ %.2f).", verb, cand.Title, cand.Cost))
}

func (b *Bot) handleFreeText(ctx context.Context, chatID int64, userID, text string) {
	goals, err := b.app.ListGoals(ctx, userID)
	if err != nil {
		b.replyError(chatID, "loading goals", err)
		return
	}

	upd, meta, err := b.intentParser.Parse(ctx, text, goals)
	if recErr := b.metricsStore.RecordMeta(meta); recErr != nil {
		log.Printf("Warning: failed to record intent metrics: %v", recErr)
	}
	if err != nil {
		b.replyError(chatID, "understanding that", err)
		return
	}
	if upd.Type == intent.UpdateUnknown {
		b.reply(chatID, "I handle meal-plan goals. Tell me what to optimize for, or send /help.")
		return
	}

	mealPlan, err := b.app.ApplyUpdate(ctx, userID, upd)
	if err != nil {
		b.replyError(chatID, "applying that update", err)
		return
	}
	if mealPlan == nil {
		return
	}
	updatedGoals, _ := b.app.ListGoals(ctx, userID)
	b.reply(chatID, FormatPlan(*mealPlan, updatedGoals))
}

func (b *Bot) reply(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		log.Printf("Failed to send reply: %v", err)
	}
}

func (b *Bot) replyError(chatID int64, action string, err error) {
	log.Printf("Error %s: %v", action, err)
	b.reply(chatID, fmt.Sprintf("❌ Problem %s: %v", action, err))
}

// FormatGoals renders the goal list for chat.
func FormatGoals(goals []goal.Goal) string {
	if len(goals) == 0 {
		return "No goals yet. Tell me what you're after, e.g. \"high protein on a budget\"."
	}
	var sb strings.Builder
	sb.WriteString("Your goals:\n")
	for _, g := range goals {
		name := string(g.Kind)
		if g.Kind == goal.KindCustom {
			name = g.Label
		}
		fmt.Fprintf(&sb, "• %s - priority %d (id %s)\n", name, g.Priority, shortID(g.ID))
	}
	return sb.String()
}

// FormatPlan renders a meal plan, its satisfaction report and trade-offs.
func FormatPlan(p plan.MealPlan, goals []goal.Goal) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "=== MEAL PLAN (v%d) ===\n", p.PlanVersion)
	for _, slot := range p.Slots {
		switch {
		case slot.Unresolved():
			fmt.Fprintf(&sb, "%-12s (unresolved)\n", slot.SlotID)
		case slot.Locked:
			fmt.Fprintf(&sb, "%-12s 🔒 %s\n", slot.SlotID, candidateName(slot))
		default:
			fmt.Fprintf(&sb, "%-12s %s (%.2f)\n", slot.SlotID, candidateName(slot), slot.Scored.Aggregate)
		}
	}

	if len(goals) > 0 {
		sb.WriteString("\nGoal satisfaction:\n")
		for _, g := range goals {
			name := string(g.Kind)
			if g.Kind == goal.KindCustom {
				name = g.Label
			}
			fmt.Fprintf(&sb, "• %s: %.0f%%\n", name, p.GoalSatisfaction[g.ID]*100)
		}
	}

	if len(p.TradeOffs) > 0 {
		sb.WriteString("\nTrade-offs made:\n")
		for _, t := range p.TradeOffs {
			fmt.Fprintf(&sb, "• %s: %s\n", t.Metric, t.Detail)
		}
	}
	return sb.String()
}

// FormatConstraints renders the merged constraint set.
func FormatConstraints(m plan.MergedConstraintSet) string {
	var sb strings.Builder
	sb.WriteString("The plan optimizes for:\n")

	names := make([]string, 0, len(m.MetricTargets))
	for name := range m.MetricTargets {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		t := m.MetricTargets[name]
		fmt.Fprintf(&sb, "• %s %s %v\n", name, directionGlyph(t.Direction), t.Value)
	}

	if len(m.RestrictedFoods) > 0 {
		foods := make([]string, 0, len(m.RestrictedFoods))
		for f := range m.RestrictedFoods {
			foods = append(foods, f)
		}
		sort.Strings(foods)
		fmt.Fprintf(&sb, "Never: %s\n", strings.Join(foods, ", "))
	}
	if len(m.TradeOffs) > 0 {
		fmt.Fprintf(&sb, "(%d trade-off(s) recorded - see /show)\n", len(m.TradeOffs))
	}
	return sb.String()
}

func directionGlyph(d goal.Direction) string {
	switch d {
	case goal.AtLeast:
		return "≥"
	case goal.AtMost:
		return "≤"
	default:
		return "≈"
	}
}

func candidateName(slot plan.SlotAssignment) string {
	if slot.Scored.Candidate.Title != "" {
		return slot.Scored.Candidate.Title
	}
	return slot.Scored.Candidate.ID
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
