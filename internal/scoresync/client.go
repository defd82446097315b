// internal/scoresync/client.go
// Package scoresync reconciles async sessions at the external scoring
// service with the local score_sessions table. The service runs its own
// session-based scoring independent of the in-house evidence engine.
package scoresync

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"talent-platform/internal/models"
)

// SessionState is the provider's view of one scoring session.
type SessionState struct {
	SessionID    string          `json:"session_id"`
	Status       string          `json:"status"`
	Report       json.RawMessage `json:"report,omitempty"`
	SummaryScore *int            `json:"summary_score,omitempty"`
}

type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

func NewClient(apiKey, baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		apiKey:  apiKey,
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// CreateSession starts a scoring run for a candidate and returns the
// provider session id.
func (c *Client) CreateSession(ctx context.Context, talentCode string) (string, error) {
	payload, err := json.Marshal(map[string]string{"candidate_ref": talentCode})
	if err != nil {
		return "", fmt.Errorf("failed to marshal session request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/sessions", bytes.NewBuffer(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to create scoring session (status %d): %s", resp.StatusCode, string(body))
	}

	var state SessionState
	if err := json.Unmarshal(body, &state); err != nil {
		return "", fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if state.SessionID == "" {
		return "", fmt.Errorf("no session id in response")
	}
	return state.SessionID, nil
}

// GetSession polls the provider for a session's current state.
func (c *Client) GetSession(ctx context.Context, sessionID string) (*SessionState, error) {
	url := fmt.Sprintf("%s/v1/sessions/%s", c.baseURL, sessionID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("failed to get scoring session (status %d): %s", resp.StatusCode, string(body))
	}

	var state SessionState
	if err := json.NewDecoder(resp.Body).Decode(&state); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &state, nil
}

// mapProviderStatus normalizes the provider's status vocabulary onto the
// local session lifecycle. Unknown statuses map to processing so the next
// reconciliation run retries them.
func mapProviderStatus(provider string) models.SessionStatus {
	switch provider {
	case "queued":
		return models.SessionQueued
	case "processing", "running":
		return models.SessionProcessing
	case "completed", "done":
		return models.SessionCompleted
	case "failed", "error":
		return models.SessionFailed
	default:
		return models.SessionProcessing
	}
}
