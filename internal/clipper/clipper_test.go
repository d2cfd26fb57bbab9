package clipper

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"nutri-coach/internal/llm"
)

type MockTextGenerator struct {
	response string
	prompt   string
}

func (m *MockTextGenerator) GenerateContent(_ context.Context, prompt string) (llm.ContentResponse, error) {
	m.prompt = prompt
	return llm.ContentResponse{
		Content: m.response,
		Usage:   llm.TokenUsage{TotalTokens: 42},
	}, nil
}

const recipePage = `<html><head><script>var tracking = 1;</script></head>
<body>
<nav>Home | Recipes</nav>
<h1>Lentil Power Curry</h1>
<p>A hearty curry with 24g protein per serving.</p>
<footer>Newsletter signup</footer>
</body></html>`

func TestClipURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(recipePage))
	}))
	defer server.Close()

	mock := &MockTextGenerator{
		response: `{"title": "Lentil Power Curry", "nutrients": {"calories": 520, "protein_g": 24, "fiber_g": 12}, "cost_estimate": 2.80, "food_tags": ["lentils", "curry"]}`,
	}
	clipper := NewClipper(mock)

	cand, meta, err := clipper.ClipURL(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("ClipURL failed: %v", err)
	}

	if cand.ID != "lentil-power-curry" {
		t.Errorf("expected slug ID 'lentil-power-curry', got %q", cand.ID)
	}
	if cand.Nutrients["protein_g"] != 24 {
		t.Errorf("nutrients not carried over: %v", cand.Nutrients)
	}
	if cand.Cost != 2.80 {
		t.Errorf("cost not carried over: %v", cand.Cost)
	}
	if meta.AgentName != "Clipper" || meta.Usage.TotalTokens != 42 {
		t.Errorf("meta not populated: %+v", meta)
	}

	// The prompt should carry page text but not scripts or chrome.
	if !strings.Contains(mock.prompt, "Lentil Power Curry") {
		t.Error("page content missing from the extraction prompt")
	}
	if strings.Contains(mock.prompt, "var tracking") {
		t.Error("script content should be stripped before prompting")
	}
}

func TestClipURLNoMeal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("<html><body>About us</body></html>"))
	}))
	defer server.Close()

	mock := &MockTextGenerator{response: `{"title": ""}`}
	clipper := NewClipper(mock)

	if _, _, err := clipper.ClipURL(context.Background(), server.URL); err == nil {
		t.Fatal("expected an error when no meal is found")
	}
}

func TestClipURLServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	clipper := NewClipper(&MockTextGenerator{})
	if _, _, err := clipper.ClipURL(context.Background(), server.URL); err == nil {
		t.Fatal("expected an error on a non-200 response")
	}
}

func TestSlugify(t *testing.T) {
	tests := []struct{ in, want string }{
		{"Lentil Power Curry", "lentil-power-curry"},
		{"Mac & Cheese!", "mac-cheese"},
		{"  Spaced  Out  ", "spaced-out"},
	}
	for _, tt := range tests {
		if got := slugify(tt.in); got != tt.want {
			t.Errorf("slugify(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
