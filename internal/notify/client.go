package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"
)

// Client invokes the dispatcher from the portal process.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// Dispatch posts one status-email request using the caller's token.
func (c *Client) Dispatch(ctx context.Context, token string, payload StatusEmail) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode dispatch payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/dispatch/status-email", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build dispatch request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("invoke dispatcher: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("dispatcher returned %d", resp.StatusCode)
	}
	return nil
}

// DispatchAsync fires the dispatch in the background. Email delivery is
// best effort: a failure is logged and never surfaces to the citizen
// updating the issue.
func (c *Client) DispatchAsync(token string, payload StatusEmail) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := c.Dispatch(ctx, token, payload); err != nil {
			log.Printf(`{"event":"status_email_dispatch_failed","issue_id":"%s","error":"%s"}`, payload.IssueID, err)
		}
	}()
}
