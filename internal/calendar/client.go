// Package calendar implements the HTTP client for the calendar backend,
// which owns event storage and the sync bridge to external providers.
package calendar

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sweetpotatoswee/aical/internal/assistant"
	"github.com/sweetpotatoswee/aical/internal/logging"
)

var (
	// ErrRequestFailed reports a non-2xx response from the backend.
	ErrRequestFailed = errors.New("calendar request failed")
	// ErrInvalidResponse reports a response body that could not be decoded.
	ErrInvalidResponse = errors.New("invalid calendar response")
)

const defaultRequestTimeout = 15 * time.Second

// Client talks to the calendar backend. It implements
// assistant.CalendarService.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

// Options configures a Client.
type Options struct {
	BaseURL string
	// APIKey is sent as a bearer token. Empty disables auth.
	APIKey string
	// Timeout bounds each call. Zero uses the default.
	Timeout time.Duration
	Logger  *slog.Logger
}

// NewClient creates a calendar backend client.
func NewClient(opts Options) *Client {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Calendar()
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	return &Client{
		baseURL:    strings.TrimSuffix(opts.BaseURL, "/"),
		apiKey:     opts.APIKey,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

type createEventsRequest struct {
	Items []assistant.AddPreviewItem `json:"items"`
}

type createEventsResponse struct {
	Created []assistant.CreatedEvent `json:"created"`
}

// CreateEvents creates all items in one batch call and returns the
// stored events with their assigned ids.
func (c *Client) CreateEvents(ctx context.Context, items []assistant.AddPreviewItem) ([]assistant.CreatedEvent, error) {
	var resp createEventsResponse
	if err := c.do(ctx, http.MethodPost, "/events", createEventsRequest{Items: items}, &resp); err != nil {
		return nil, err
	}
	if len(resp.Created) != len(items) {
		return nil, fmt.Errorf("%w: created %d of %d events", ErrInvalidResponse, len(resp.Created), len(items))
	}
	c.logger.Info("events created", "count", len(resp.Created))
	return resp.Created, nil
}

type deleteEventsRequest struct {
	IDs []int64 `json:"ids"`
}

// DeleteEvents deletes locally-stored events by id in one batch call.
func (c *Client) DeleteEvents(ctx context.Context, ids []int64) error {
	if err := c.do(ctx, http.MethodPost, "/events/delete", deleteEventsRequest{IDs: ids}, nil); err != nil {
		return err
	}
	c.logger.Info("events deleted", "count", len(ids))
	return nil
}

// DeleteExternalEvent deletes one externally-synced event. External
// providers have no batch endpoint, so the controller calls this once
// per id.
func (c *Client) DeleteExternalEvent(ctx context.Context, id string) error {
	if err := c.do(ctx, http.MethodDelete, "/events/external/"+url.PathEscape(id), nil, nil); err != nil {
		return err
	}
	c.logger.Info("external event deleted", "id", id)
	return nil
}

// do runs one JSON request. in is marshaled as the body when non-nil;
// the response is decoded into out when out is non-nil.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		bodyBytes, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	c.logger.Debug(method+" "+path, "base_url", c.baseURL)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%w: %d - %s", ErrRequestFailed, resp.StatusCode, strings.TrimSpace(string(respBody)))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return nil
}
