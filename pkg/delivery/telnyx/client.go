// Package telnyx implements SMS delivery through the Telnyx messages API.
package telnyx

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultBaseURL = "https://api.telnyx.com/v2"

type Client struct {
	apiKey     string
	fromNumber string
	baseURL    string
	httpClient *http.Client
}

type Option func(*Client)

func WithBaseURL(url string) Option {
	return func(c *Client) {
		c.baseURL = url
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

func NewClient(apiKey, fromNumber string, opts ...Option) *Client {
	client := &Client{
		apiKey:     apiKey,
		fromNumber: fromNumber,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

type messageRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
	Text string `json:"text"`
}

// SendSMS posts a message to the Telnyx messages endpoint.
func (c *Client) SendSMS(ctx context.Context, to, body string) error {
	payload, err := json.Marshal(messageRequest{
		From: c.fromNumber,
		To:   to,
		Text: body,
	})
	if err != nil {
		return fmt.Errorf("failed to encode telnyx message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/messages", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create telnyx request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("telnyx request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

		return fmt.Errorf("telnyx returned status %d: %s", resp.StatusCode, string(respBody))
	}

	return nil
}
