// Package reviews is a thin client for the external review service.
// Storage of ratings is that service's problem; this just forwards the
// trigger.
package reviews

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

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

type submission struct {
	OrderID string `json:"order_id"`
	Score   int    `json:"score"`
	Comment string `json:"comment,omitempty"`
}

func (c *Client) Submit(ctx context.Context, orderID string, score int, comment string) error {
	body, err := json.Marshal(submission{OrderID: orderID, Score: score, Comment: comment})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/reviews", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("review service unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("review service returned %d", resp.StatusCode)
	}
	return nil
}
