// Package tasks creates follow-up tasks through the surrounding
// application's task API.
package tasks

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/fixlify/automation-engine/pkg/delivery"
)

type Creator struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
}

func NewCreator(endpoint, apiKey string) *Creator {
	return &Creator{
		endpoint:   endpoint,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func NewCreatorWithClient(endpoint, apiKey string, httpClient *http.Client) *Creator {
	return &Creator{endpoint: endpoint, apiKey: apiKey, httpClient: httpClient}
}

type createResponse struct {
	ID string `json:"id"`
}

func (c *Creator) CreateTask(ctx context.Context, task delivery.Task) (string, error) {
	body, err := json.Marshal(task)
	if err != nil {
		return "", fmt.Errorf("failed to encode task: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create task request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("task request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

		return "", fmt.Errorf("task API returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var created createResponse
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return "", fmt.Errorf("failed to decode task response: %w", err)
	}

	return created.ID, nil
}
