// internal/signature/client.go
// Package signature integrates the hosted e-signature provider: creating
// signing documents for interest letters and verifying the webhook events
// the provider posts back.
package signature

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

type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

type createDocumentRequest struct {
	TemplateKey string            `json:"template_key"`
	Reference   string            `json:"reference"`
	Fields      map[string]string `json:"fields"`
	Signer      signerBlock       `json:"signer"`
}

type signerBlock struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

type createDocumentResponse struct {
	DocumentID string `json:"document_id"`
	Status     string `json:"status"`
	Message    string `json:"message,omitempty"`
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

// CreateSigningDocument registers a letter with the provider and returns the
// provider's document id. The letter id travels as the provider-side
// reference so webhook events can be correlated back.
func (c *Client) CreateSigningDocument(ctx context.Context, letter *models.InterestLetter, signerEmail, signerName string) (string, error) {
	url := fmt.Sprintf("%s/v1/documents", c.baseURL)

	payload := createDocumentRequest{
		TemplateKey: "interest_letter",
		Reference:   letter.ID,
		Fields: map[string]string{
			"job_title":        letter.JobTitle,
			"duties":           letter.Duties,
			"commitment_level": string(letter.CommitmentLevel),
		},
		Signer: signerBlock{Email: signerEmail, Name: signerName},
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal document request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
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
		return "", fmt.Errorf("failed to create signing document (status %d): %s", resp.StatusCode, string(body))
	}

	var createResp createDocumentResponse
	if err := json.Unmarshal(body, &createResp); err != nil {
		return "", fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if createResp.DocumentID == "" {
		return "", fmt.Errorf("document creation failed: %s", createResp.Message)
	}

	return createResp.DocumentID, nil
}

// CancelDocument withdraws a pending signing document at the provider.
func (c *Client) CancelDocument(ctx context.Context, documentID string) error {
	url := fmt.Sprintf("%s/v1/documents/%s", c.baseURL, documentID)

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("failed to cancel document (status %d): %s", resp.StatusCode, string(body))
	}

	return nil
}
