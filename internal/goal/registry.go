package goal

import (
	"context"
	"log"
	"strings"
)

// TrendingRecorder counts resolved labels so popular custom goals can later be
// promoted to predefined kinds by the analytics side.
type TrendingRecorder interface {
	RecordLabel(ctx context.Context, label string) error
}

// Registry holds the canonical constraint schemas for predefined goal kinds
// and the proxy knowledge base for custom labels.
type Registry struct {
	kinds    map[Kind]ConstraintSpec
	proxies  []ProxyMapping
	trending TrendingRecorder
}

// NewRegistry builds a registry with the built-in kind schemas and proxy
// knowledge base. The recorder must not be nil; use NewMemoryTrending in
// tests.
func NewRegistry(trending TrendingRecorder) *Registry {
	return &Registry{
		kinds:    predefinedSpecs(),
		proxies:  defaultProxyMappings(),
		trending: trending,
	}
}

// KindSpec returns the canonical constraint schema for a predefined kind.
func (r *Registry) KindSpec(k Kind) (ConstraintSpec, bool) {
	spec, ok := r.kinds[k]
	return spec, ok
}

// Resolve maps a free-text label to a constraint spec. Resolution never
// fails: unmatched labels return the empty spec. Every call, matched or not,
// bumps the trending counter for the normalized label.
func (r *Registry) Resolve(ctx context.Context, label string) ConstraintSpec {
	norm := NormalizeLabel(label)
	if err := r.trending.RecordLabel(ctx, norm); err != nil {
		log.Printf("Warning: failed to record trending label %q: %v", norm, err)
	}

	if kind, ok := kindForLabel(norm); ok {
		return r.kinds[kind]
	}
	if spec, ok := matchProxy(r.proxies, norm); ok {
		return spec
	}
	return EmptyConstraintSpec()
}

// NormalizeLabel lowercases, trims and collapses whitespace in a label.
func NormalizeLabel(label string) string {
	return strings.Join(strings.Fields(strings.ToLower(strings.TrimSpace(label))), " ")
}

// kindForLabel matches a normalized label against the predefined kinds,
// accepting both the enum form ("high_protein") and the spoken form
// ("high protein").
func kindForLabel(norm string) (Kind, bool) {
	flat := strings.ReplaceAll(norm, " ", "_")
	if _, ok := knownKinds[Kind(flat)]; ok && Kind(flat) != KindCustom {
		return Kind(flat), true
	}
	return "", false
}

// predefinedSpecs is the canonical per-meal constraint schema for each
// predefined kind. Values are per meal slot.
func predefinedSpecs() map[Kind]ConstraintSpec {
	return map[Kind]ConstraintSpec{
		KindBudget: {
			Metrics: map[string]MetricTarget{
				"cost_per_meal": {Direction: AtMost, Value: 5.00},
			},
		},
		KindHighProtein: {
			Metrics: map[string]MetricTarget{
				"protein_g": {Direction: AtLeast, Value: 35},
			},
			EmphasizedFoods: []string{"chicken", "eggs", "greek yogurt", "lentils"},
		},
		KindLowSodium: {
			Metrics: map[string]MetricTarget{
				"sodium_mg": {Direction: AtMost, Value: 700},
			},
			RestrictedFoods: []string{"cured meat"},
		},
		KindHeartHealth: {
			Metrics: map[string]MetricTarget{
				"sodium_mg":       {Direction: AtMost, Value: 600},
				"fiber_g":         {Direction: AtLeast, Value: 8},
				"saturated_fat_g": {Direction: AtMost, Value: 6},
			},
			EmphasizedFoods: []string{"salmon", "oats", "olive oil", "walnuts"},
		},
		KindWeightLoss: {
			Metrics: map[string]MetricTarget{
				"calories": {Direction: AtMost, Value: 650},
				"fiber_g":  {Direction: AtLeast, Value: 6},
			},
		},
		KindMuscleGain: {
			Metrics: map[string]MetricTarget{
				"protein_g": {Direction: AtLeast, Value: 40},
				"calories":  {Direction: AtLeast, Value: 600},
			},
			EmphasizedFoods: []string{"chicken", "rice", "eggs"},
		},
		KindFiberFocus: {
			Metrics: map[string]MetricTarget{
				"fiber_g": {Direction: AtLeast, Value: 10},
			},
			EmphasizedFoods: []string{"beans", "whole grains", "broccoli"},
		},
	}
}
