// Package nutridata talks to the external nutrient/cost data service. The
// service owns the meal database; this core only reads candidates from it
// and pushes trending-label counters back for the analytics side.
package nutridata

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"nutri-coach/internal/candidate"
	"nutri-coach/internal/config"
	"nutri-coach/internal/goal"

	"github.com/golang-jwt/jwt/v5"
)

// mealsResponse is the top-level structure of the content API response.
type mealsResponse struct {
	Meals []candidate.Candidate `json:"meals"`
}

// Client is an interface for the nutrient data service (Content & Admin).
type Client interface {
	FetchCandidates() ([]candidate.Candidate, error)
	PublishTrending(labels []goal.TrendingLabel) error
}

// dataClient is the concrete implementation of the service client.
type dataClient struct {
	httpClient *http.Client
	config     *config.Config
}

// NewClient creates a new nutrient data service client.
func NewClient(cfg *config.Config) Client {
	return &dataClient{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		config:     cfg,
	}
}

// FetchCandidates fetches the candidate meal pool from the Content API.
func (c *dataClient) FetchCandidates() ([]candidate.Candidate, error) {
	url := fmt.Sprintf("%s/api/v1/content/meals/?key=%s", c.config.NutriDataURL, c.config.NutriDataContentKey)

	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("content api error: status %d", resp.StatusCode)
	}

	var response mealsResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return response.Meals, nil
}

// PublishTrending pushes trending custom-goal labels to the Admin API so the
// analytics side can decide on promoting popular labels to first-class
// kinds.
func (c *dataClient) PublishTrending(labels []goal.TrendingLabel) error {
	token, err := c.createAdminToken()
	if err != nil {
		return fmt.Errorf("failed to create admin token: %w", err)
	}

	body, err := json.Marshal(map[string]interface{}{"labels": labels})
	if err != nil {
		return fmt.Errorf("failed to marshal labels: %w", err)
	}

	url := fmt.Sprintf("%s/api/v1/admin/trending-labels/", c.config.NutriDataURL)
	req, err := http.NewRequest("POST", url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		var errResp interface{}
		json.NewDecoder(resp.Body).Decode(&errResp)
		return fmt.Errorf("admin api error: status %d, body: %v", resp.StatusCode, errResp)
	}
	return nil
}

// createAdminToken generates a short-lived JWT for the Admin API.
func (c *dataClient) createAdminToken() (string, error) {
	keyParts := strings.Split(c.config.NutriDataAdminKey, ":")
	if len(keyParts) != 2 {
		return "", fmt.Errorf("invalid admin key format: expected id:secret")
	}

	id := keyParts[0]
	secret, err := hex.DecodeString(keyParts[1])
	if err != nil {
		return "", fmt.Errorf("failed to decode secret hex: %w", err)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(5 * time.Minute).Unix(),
		"aud": "/v1/admin/",
	})
	token.Header["kid"] = id

	return token.SignedString(secret)
}
