// Package mailgun implements email delivery through the Mailgun messages API.
package mailgun

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultBaseURL = "https://api.mailgun.net/v3"

type Client struct {
	apiKey     string
	domain     string
	fromAddr   string
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

func NewClient(apiKey, domain, fromAddr string, opts ...Option) *Client {
	client := &Client{
		apiKey:     apiKey,
		domain:     domain,
		fromAddr:   fromAddr,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

// SendEmail posts a form-encoded message to the Mailgun messages endpoint.
func (c *Client) SendEmail(ctx context.Context, to, subject, body string) error {
	form := url.Values{}
	form.Set("from", c.fromAddr)
	form.Set("to", to)
	form.Set("subject", subject)
	form.Set("html", body)

	endpoint := fmt.Sprintf("%s/%s/messages", c.baseURL, c.domain)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create mailgun request: %w", err)
	}

	req.SetBasicAuth("api", c.apiKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("mailgun request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

		return fmt.Errorf("mailgun returned status %d: %s", resp.StatusCode, string(respBody))
	}

	return nil
}
