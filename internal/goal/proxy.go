package goal

import "strings"

// ProxyMapping maps a custom goal label pattern to a nutrient/food proxy
// spec. The knowledge base is read-only reference data; entries are curated
// out of band from trending-label analytics.
type ProxyMapping struct {
	Pattern  string
	Synonyms []string
	Spec     ConstraintSpec
}

// matchProxy looks a normalized label up in the knowledge base. Matching is
// tolerant of simple pluralization and listed synonyms; beyond that it falls
// back to token-subset comparison so "better skin health" still hits the
// "skin health" proxy.
func matchProxy(proxies []ProxyMapping, norm string) (ConstraintSpec, bool) {
	for _, p := range proxies {
		if labelsEqual(p.Pattern, norm) {
			return p.Spec, true
		}
		for _, syn := range p.Synonyms {
			if labelsEqual(syn, norm) {
				return p.Spec, true
			}
		}
	}
	labelTokens := tokenSet(norm)
	for _, p := range proxies {
		if tokensContained(tokenSet(p.Pattern), labelTokens) {
			return p.Spec, true
		}
	}
	return ConstraintSpec{}, false
}

func labelsEqual(a, b string) bool {
	if a == b {
		return true
	}
	return singularize(a) == singularize(b)
}

// singularize strips a trailing plural "s" from every token. Good enough for
// labels like "strong bones" vs "strong bone".
func singularize(label string) string {
	tokens := strings.Fields(label)
	for i, tok := range tokens {
		if len(tok) > 3 && strings.HasSuffix(tok, "s") && !strings.HasSuffix(tok, "ss") {
			tokens[i] = strings.TrimSuffix(tok, "s")
		}
	}
	return strings.Join(tokens, " ")
}

func tokenSet(label string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, tok := range strings.Fields(singularize(label)) {
		set[tok] = struct{}{}
	}
	return set
}

// tokensContained reports whether every pattern token appears in the label.
func tokensContained(pattern, label map[string]struct{}) bool {
	if len(pattern) == 0 {
		return false
	}
	for tok := range pattern {
		if _, ok := label[tok]; !ok {
			return false
		}
	}
	return true
}

// defaultProxyMappings is the built-in knowledge base for common wellness
// objectives users name that are not first-class kinds yet.
func defaultProxyMappings() []ProxyMapping {
	return []ProxyMapping{
		{
			Pattern:  "skin health",
			Synonyms: []string{"glowing skin", "clear skin", "healthy skin"},
			Spec: ConstraintSpec{
				Metrics: map[string]MetricTarget{
					"vitamin_c_mg": {Direction: AtLeast, Value: 30},
					"omega3_g":     {Direction: AtLeast, Value: 0.5},
				},
				EmphasizedFoods: []string{"salmon", "avocado", "berries", "almonds"},
			},
		},
		{
			Pattern:  "gut health",
			Synonyms: []string{"digestion", "digestive health", "healthy gut"},
			Spec: ConstraintSpec{
				Metrics: map[string]MetricTarget{
					"fiber_g": {Direction: AtLeast, Value: 9},
				},
				EmphasizedFoods: []string{"yogurt", "kimchi", "sauerkraut", "oats"},
			},
		},
		{
			Pattern:  "more energy",
			Synonyms: []string{"energy", "less tired", "fight fatigue"},
			Spec: ConstraintSpec{
				Metrics: map[string]MetricTarget{
					"iron_mg":         {Direction: AtLeast, Value: 4},
					"complex_carbs_g": {Direction: AtLeast, Value: 40},
				},
				EmphasizedFoods: []string{"spinach", "whole grains", "bananas"},
			},
		},
		{
			Pattern:  "better sleep",
			Synonyms: []string{"sleep", "sleep quality"},
			Spec: ConstraintSpec{
				Metrics: map[string]MetricTarget{
					"magnesium_mg": {Direction: AtLeast, Value: 80},
					"caffeine_mg":  {Direction: AtMost, Value: 50},
				},
				EmphasizedFoods: []string{"turkey", "kiwi", "chamomile"},
			},
		},
		{
			Pattern:  "immune support",
			Synonyms: []string{"immunity", "immune system", "fewer colds"},
			Spec: ConstraintSpec{
				Metrics: map[string]MetricTarget{
					"vitamin_c_mg": {Direction: AtLeast, Value: 40},
					"zinc_mg":      {Direction: AtLeast, Value: 3},
				},
				EmphasizedFoods: []string{"citrus", "garlic", "ginger", "spinach"},
			},
		},
		{
			Pattern:  "strong bones",
			Synonyms: []string{"bone health", "bone density"},
			Spec: ConstraintSpec{
				Metrics: map[string]MetricTarget{
					"calcium_mg":   {Direction: AtLeast, Value: 300},
					"vitamin_d_iu": {Direction: AtLeast, Value: 150},
				},
				EmphasizedFoods: []string{"dairy", "tofu", "kale", "sardines"},
			},
		},
	}
}
