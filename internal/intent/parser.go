// Package intent turns free-text chat messages into structured goal updates
// for the planning core. It is the only place user language is interpreted;
// the optimizer itself consumes structured input exclusively.
package intent

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"text/template"
	"time"

	"nutri-coach/internal/goal"
	"nutri-coach/internal/llm"
)

//go:embed intent_prompt.md
var intentPrompt string

// UpdateType classifies what a message asks for.
type UpdateType string

const (
	UpdateNewGoal        UpdateType = "new_goal"
	UpdatePriorityChange UpdateType = "priority_change"
	UpdateRetractGoal    UpdateType = "retract_goal"
	UpdateUnknown        UpdateType = "unknown"
)

// Update is the structured form of one goal/priority change. Structural
// validation happens downstream at the goal boundary; the parser only
// guarantees shape.
type Update struct {
	Type     UpdateType `json:"type"`
	GoalID   string     `json:"goal_id,omitempty"`
	Kind     goal.Kind  `json:"kind,omitempty"`
	Label    string     `json:"label,omitempty"`
	Priority int        `json:"priority,omitempty"`
}

type promptData struct {
	Goals   []goal.Goal
	Message string
}

// Parser extracts updates from chat messages via an LLM.
type Parser struct {
	textGen llm.TextGenerator
}

// NewParser creates a Parser on top of a text generator.
func NewParser(textGen llm.TextGenerator) *Parser {
	return &Parser{textGen: textGen}
}

// Parse interprets one message against the user's active goals.
func (p *Parser) Parse(ctx context.Context, message string, active []goal.Goal) (Update, llm.AgentMeta, error) {
	start := time.Now()
	meta := llm.AgentMeta{AgentName: "Intent"}

	prompt, err := buildPrompt(promptData{Goals: active, Message: message})
	if err != nil {
		return Update{}, meta, err
	}

	resp, err := p.textGen.GenerateContent(ctx, prompt)
	meta.Usage = resp.Usage
	meta.Latency = time.Since(start)
	if err != nil {
		return Update{}, meta, fmt.Errorf("intent generation failed: %w", err)
	}

	var update Update
	if err := json.Unmarshal([]byte(resp.Content), &update); err != nil {
		return Update{}, meta, fmt.Errorf(
			"failed to parse intent response %w. Response: %s", err, resp.Content)
	}

	switch update.Type {
	case UpdateNewGoal, UpdatePriorityChange, UpdateRetractGoal, UpdateUnknown:
	default:
		update.Type = UpdateUnknown
	}
	return update, meta, nil
}

func buildPrompt(data promptData) (string, error) {
	tmpl, err := template.New("intent").Parse(intentPrompt)
	if err != nil {
		return "", fmt.Errorf("failed to parse intent prompt template: %w", err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to build intent prompt: %w", err)
	}
	return buf.String(), nil
}
