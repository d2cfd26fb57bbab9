package intent

import (
	"context"
	"strings"
	"testing"

	"nutri-coach/internal/goal"
	"nutri-coach/internal/llm"
)

type MockTextGenerator struct {
	response string
	err      error
	prompt   string
}

func (m *MockTextGenerator) GenerateContent(_ context.Context, prompt string) (llm.ContentResponse, error) {
	m.prompt = prompt
	if m.err != nil {
		return llm.ContentResponse{}, m.err
	}
	return llm.ContentResponse{
		Content: m.response,
		Usage:   llm.TokenUsage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
	}, nil
}

func TestParseNewGoal(t *testing.T) {
	mock := &MockTextGenerator{
		response: `{"type": "new_goal", "kind": "custom", "label": "skin health", "priority": 3}`,
	}
	parser := NewParser(mock)

	upd, meta, err := parser.Parse(context.Background(), "I want better skin, it's pretty important", nil)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if upd.Type != UpdateNewGoal || upd.Kind != goal.KindCustom || upd.Label != "skin health" {
		t.Errorf("unexpected update: %+v", upd)
	}
	if upd.Priority != 3 {
		t.Errorf("priority not extracted, got %d", upd.Priority)
	}
	if meta.AgentName != "Intent" || meta.Usage.TotalTokens != 15 {
		t.Errorf("meta not populated: %+v", meta)
	}
}

func TestParsePromptCarriesActiveGoals(t *testing.T) {
	mock := &MockTextGenerator{
		response: `{"type": "priority_change", "goal_id": "g1", "priority": 4}`,
	}
	parser := NewParser(mock)

	active := []goal.Goal{{ID: "g1", Kind: goal.KindHighProtein, Priority: 2}}
	upd, _, err := parser.Parse(context.Background(), "protein matters most now", active)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if upd.Type != UpdatePriorityChange || upd.GoalID != "g1" || upd.Priority != 4 {
		t.Errorf("unexpected update: %+v", upd)
	}
	if !strings.Contains(mock.prompt, "g1") {
		t.Error("active goals must be rendered into the prompt")
	}
	if !strings.Contains(mock.prompt, "protein matters most now") {
		t.Error("the user message must be rendered into the prompt")
	}
}

func TestParseUnknownTypeFallsBack(t *testing.T) {
	mock := &MockTextGenerator{
		response: `{"type": "order_pizza"}`,
	}
	parser := NewParser(mock)

	upd, _, err := parser.Parse(context.Background(), "order me a pizza", nil)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if upd.Type != UpdateUnknown {
		t.Errorf("unlisted types must fall back to unknown, got %q", upd.Type)
	}
}

func TestParseBadJSON(t *testing.T) {
	mock := &MockTextGenerator{
		response: "sure, I'll add that goal!",
	}
	parser := NewParser(mock)

	if _, _, err := parser.Parse(context.Background(), "add a goal", nil); err == nil {
		t.Fatal("non-JSON model output must surface an error")
	}
}
