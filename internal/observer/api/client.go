// Package api is the observer-side HTTP client for the order service:
// snapshots, pull-mode status, transition commands and ratings.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"mon-resto/internal/order/domain/dto"
	"mon-resto/internal/order/domain/models"
)

var ErrOrderNotFound = errors.New("order not found")

type Client struct {
	baseURL string
	http    *http.Client
	actor   string
}

func NewClient(baseURL, actor string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
		actor:   actor,
	}
}

// ActiveOrders fetches the subscribe-time snapshot of non-terminal orders.
func (c *Client) ActiveOrders(ctx context.Context) ([]models.Order, error) {
	var orders []models.Order
	if err := c.get(ctx, "/orders", &orders); err != nil {
		return nil, fmt.Errorf("fetching active orders: %w", err)
	}
	return orders, nil
}

func (c *Client) Order(ctx context.Context, orderID string) (models.Order, error) {
	var order models.Order
	if err := c.get(ctx, "/orders/"+orderID, &order); err != nil {
		return models.Order{}, fmt.Errorf("fetching order %s: %w", orderID, err)
	}
	return order, nil
}

// Status fetches the current status in pull mode. The response is shaped
// as a StatusEvent so polled state runs through the same staleness gate
// as pushed events.
func (c *Client) Status(ctx context.Context, orderID string) (models.StatusEvent, error) {
	var resp dto.StatusResponse
	if err := c.get(ctx, "/orders/"+orderID+"/status", &resp); err != nil {
		return models.StatusEvent{}, fmt.Errorf("fetching status of %s: %w", orderID, err)
	}

	status, err := models.ParseStatus(resp.Status)
	if err != nil {
		return models.StatusEvent{}, err
	}
	return models.StatusEvent{
		OrderID:             resp.OrderID,
		NewStatus:           status,
		ServerTimestamp:     resp.UpdatedAt,
		Sequence:            resp.Sequence,
		EstimatedCompletion: resp.EstimatedCompletion,
		Priority:            resp.Priority,
	}, nil
}

// Transition sends one lifecycle command (confirm, start, done, serve,
// cancel) on behalf of the configured actor.
func (c *Client) Transition(ctx context.Context, orderID, command string) (dto.TransitionResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/orders/"+orderID+"/"+command, nil)
	if err != nil {
		return dto.TransitionResponse{}, err
	}
	req.Header.Set("X-Actor", c.actor)

	var resp dto.TransitionResponse
	if err := c.do(req, &resp); err != nil {
		return dto.TransitionResponse{}, fmt.Errorf("applying %s to %s: %w", command, orderID, err)
	}
	return resp, nil
}

func (c *Client) SubmitRating(ctx context.Context, orderID string, score int, comment string) error {
	body, err := json.Marshal(dto.RatingRequest{Score: score, Comment: comment})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/orders/"+orderID+"/rating", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	if err := c.do(req, nil); err != nil {
		return fmt.Errorf("submitting rating for %s: %w", orderID, err)
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrOrderNotFound
	}
	if resp.StatusCode >= 400 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("order service returned %d: %s", resp.StatusCode, string(raw))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
