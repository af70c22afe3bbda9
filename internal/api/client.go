// Package api is the HTTP client for the kanban server's CRUD surface.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dyluth/kanban/pkg/board"
)

// StatusError is a non-2xx response from the server.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d %s", e.Code, http.StatusText(e.Code))
	}
	return fmt.Sprintf("server returned %d: %s", e.Code, e.Message)
}

// Is makes a 404 match board.ErrNotFound.
func (e *StatusError) Is(target error) bool {
	return target == board.ErrNotFound && e.Code == http.StatusNotFound
}

// IsNotFound reports whether err is a 404 from the server.
func IsNotFound(err error) bool {
	return errors.Is(err, board.ErrNotFound)
}

// Client wraps http.Client with the kanban endpoints.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

// New creates a client for the server at baseURL, e.g. http://localhost:3000.
func New(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: 10 * time.Second},
	}
}

// GetBoard fetches board metadata and every card.
func (c *Client) GetBoard(ctx context.Context, boardID string) (*board.BoardView, error) {
	var view board.BoardView
	if err := c.do(ctx, http.MethodGet, "/api/boards/"+url.PathEscape(boardID), nil, &view); err != nil {
		return nil, err
	}
	return &view, nil
}

// CreateCard creates a card and returns the server's copy.
func (c *Client) CreateCard(ctx context.Context, input board.CardInput) (*board.Card, error) {
	var card board.Card
	if err := c.do(ctx, http.MethodPost, "/api/cards", input, &card); err != nil {
		return nil, err
	}
	return &card, nil
}

// UpdateCard applies a partial update and returns the server's copy.
func (c *Client) UpdateCard(ctx context.Context, id string, patch board.CardPatch) (*board.Card, error) {
	var card board.Card
	if err := c.do(ctx, http.MethodPatch, "/api/cards/"+url.PathEscape(id), patch, &card); err != nil {
		return nil, err
	}
	return &card, nil
}

// DeleteCard deletes a card.
func (c *Client) DeleteCard(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/cards/"+url.PathEscape(id), nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		buf := new(bytes.Buffer)
		if err := json.NewEncoder(buf).Encode(body); err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = buf
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var payload struct {
			Error string `json:"error"`
		}
		// A body that is not JSON still yields the status code.
		_ = json.NewDecoder(resp.Body).Decode(&payload)
		return &StatusError{Code: resp.StatusCode, Message: payload.Error}
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
