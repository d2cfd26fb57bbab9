// Package clipper turns a recipe web page into a Candidate for the pool:
// fetch, strip the page down to text, extract nutrients/cost/tags via LLM.
package clipper

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"nutri-coach/internal/candidate"
	"nutri-coach/internal/llm"

	"github.com/PuerkitoBio/goquery"
)

// Clipper handles fetching and extracting meal candidates from URLs.
type Clipper struct {
	textGen    llm.TextGenerator
	httpClient *http.Client
}

// extractedMeal is the data structured by the AI.
type extractedMeal struct {
	Title     string             `json:"title"`
	Nutrients map[string]float64 `json:"nutrients"`
	Cost      float64            `json:"cost_estimate"`
	FoodTags  []string           `json:"food_tags"`
}

// NewClipper creates a new Clipper instance.
func NewClipper(textGen llm.TextGenerator) *Clipper {
	return &Clipper{
		textGen:    textGen,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// ClipURL fetches the URL and extracts a candidate meal using AI. The caller
// decides whether to add it to the pool.
func (c *Clipper) ClipURL(ctx context.Context, url string) (*candidate.Candidate, llm.AgentMeta, error) {
	start := time.Now()
	meta := llm.AgentMeta{AgentName: "Clipper"}

	content, err := c.fetchAndCleanHTML(url)
	if err != nil {
		return nil, meta, fmt.Errorf("failed to fetch content: %w", err)
	}

	prompt := fmt.Sprintf(`
You are a nutrition data extraction expert. Extract the meal details from the following page text.
Estimate per-serving nutrient values and a per-serving cost in local currency.
Return the result strictly as a JSON object with this structure:
{
  "title": "Meal Title",
  "nutrients": {"calories": 0, "protein_g": 0, "fiber_g": 0, "sodium_mg": 0},
  "cost_estimate": 0.0,
  "food_tags": ["main ingredients and cuisine, lowercase"]
}

Page Content:
%s
`, content)

	resp, err := c.textGen.GenerateContent(ctx, prompt)
	meta.Usage = resp.Usage
	meta.Latency = time.Since(start)
	if err != nil {
		return nil, meta, fmt.Errorf("ai extraction failed: %w", err)
	}

	var extracted extractedMeal
	if err := json.Unmarshal([]byte(resp.Content), &extracted); err != nil {
		return nil, meta, fmt.Errorf("failed to parse AI response: %w. Response: %s", err, resp.Content)
	}
	if extracted.Title == "" {
		return nil, meta, fmt.Errorf("no meal found on page")
	}

	return &candidate.Candidate{
		ID:        slugify(extracted.Title),
		Title:     extracted.Title,
		Nutrients: extracted.Nutrients,
		Cost:      extracted.Cost,
		FoodTags:  extracted.FoodTags,
	}, meta, nil
}

func (c *Clipper) fetchAndCleanHTML(url string) (string, error) {
	resp, err := c.httpClient.Get(url)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to fetch URL: status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", err
	}

	// Remove noise to save LLM tokens
	doc.Find("script, style, nav, footer, iframe, ads, .ads, #ads").Each(func(i int, s *goquery.Selection) {
		s.Remove()
	})

	return doc.Find("body").Text(), nil
}

var slugPattern = regexp.MustCompile(`[^a-z0-9]+`)

// slugify derives a stable candidate ID from a meal title.
func slugify(title string) string {
	slug := slugPattern.ReplaceAllString(strings.ToLower(title), "-")
	return strings.Trim(slug, "-")
}
