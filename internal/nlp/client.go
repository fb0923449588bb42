// Package nlp implements the HTTP client for the natural-language backend.
// The backend classifies user text, drafts event previews (streamed over
// SSE for add, a single call for delete), and holds per-conversation model
// context that can be interrupted and reset.
package nlp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/sweetpotatoswee/aical/internal/assistant"
	"github.com/sweetpotatoswee/aical/internal/config"
	"github.com/sweetpotatoswee/aical/internal/logging"
)

var (
	// ErrRequestFailed reports a non-2xx response from the backend.
	ErrRequestFailed = errors.New("nlp request failed")
	// ErrInvalidResponse reports a response body that could not be decoded.
	ErrInvalidResponse = errors.New("invalid nlp response")
)

const defaultRequestTimeout = 30 * time.Second

// Client talks to the NLP backend. It implements assistant.NLPService.
type Client struct {
	baseURL    string
	apiKey     string
	timeout    time.Duration
	httpClient *http.Client
	logger     *slog.Logger

	promptsMu sync.RWMutex
	prompts   *config.Prompts
}

// Options configures a Client.
type Options struct {
	// BaseURL is the backend root, e.g. "https://nlp.example.com/v1".
	BaseURL string
	// APIKey is sent as a bearer token. Empty disables auth.
	APIKey string
	// Timeout bounds non-streaming calls. Zero uses the default.
	Timeout time.Duration
	// Prompts are the instruction templates sent with each request.
	// Nil uses the built-in defaults.
	Prompts *config.Prompts
	Logger  *slog.Logger
}

// NewClient creates an NLP backend client.
func NewClient(opts Options) *Client {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NLP()
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	prompts := opts.Prompts
	if prompts == nil {
		prompts = config.DefaultPrompts()
	}
	return &Client{
		baseURL: strings.TrimSuffix(opts.BaseURL, "/"),
		apiKey:  opts.APIKey,
		timeout: timeout,
		prompts: prompts,
		// No client-level timeout: the SSE stream stays open for the
		// whole preview call. Non-streaming calls bound themselves with
		// a per-request context.
		httpClient: &http.Client{},
		logger:     logger,
	}
}

// SetPrompts swaps the instruction templates. Safe to call while
// requests are in flight; the prompts watcher calls it on file changes.
func (c *Client) SetPrompts(p *config.Prompts) {
	if p == nil {
		p = config.DefaultPrompts()
	}
	c.promptsMu.Lock()
	c.prompts = p
	c.promptsMu.Unlock()
}

func (c *Client) currentPrompts() *config.Prompts {
	c.promptsMu.RLock()
	defer c.promptsMu.RUnlock()
	return c.prompts
}

type classifyRequest struct {
	Text           string `json:"text"`
	HasAttachments bool   `json:"has_attachments"`
	RequestID      string `json:"request_id"`
	Instructions   string `json:"instructions,omitempty"`
}

type classifyResponse struct {
	Result assistant.ClassifyResult `json:"result"`
}

// Classify asks the backend which editing track the text belongs to.
func (c *Client) Classify(ctx context.Context, text string, hasAttachments bool, requestID string) (assistant.ClassifyResult, error) {
	var resp classifyResponse
	err := c.postJSON(ctx, "/classify", classifyRequest{
		Text:           text,
		HasAttachments: hasAttachments,
		RequestID:      requestID,
		Instructions:   c.currentPrompts().Classify,
	}, &resp)
	if err != nil {
		return "", err
	}
	switch resp.Result {
	case assistant.ClassifyAdd, assistant.ClassifyDelete,
		assistant.ClassifyComplex, assistant.ClassifyGarbage:
		return resp.Result, nil
	}
	return "", fmt.Errorf("%w: unknown classification %q", ErrInvalidResponse, resp.Result)
}

// PreviewAdd streams an add-preview call. Events arrive in order on
// onEvent; the call returns once the stream closes or the context is
// cancelled. Transport-level failures are returned, backend-reported
// failures arrive as error events.
func (c *Client) PreviewAdd(ctx context.Context, req assistant.PreviewAddRequest, onEvent assistant.StreamHandler) error {
	body := struct {
		assistant.PreviewAddRequest
		Instructions string `json:"instructions,omitempty"`
	}{req, c.currentPrompts().Add}
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/preview/add", bytes.NewReader(bodyBytes))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	c.setAuth(httpReq)

	c.logger.Debug("POST /preview/add",
		"request_id", req.RequestID, "model", req.Model,
		"attachments", len(req.AttachmentDataURLs), "confirmed", req.ContextConfirmed)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%w: %d - %s", ErrRequestFailed, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	return c.processStream(ctx, resp.Body, req.RequestID, onEvent)
}

// processStream reads SSE lines and forwards each decoded event.
func (c *Client) processStream(ctx context.Context, reader io.Reader, requestID string, onEvent assistant.StreamHandler) error {
	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	events := 0
	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line := scanner.Text()

		// SSE format: "data: {json}"
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		data := strings.TrimPrefix(line, "data: ")

		if data == "[DONE]" {
			c.logger.Debug("stream complete", "request_id", requestID, "events", events)
			return nil
		}

		var ev assistant.StreamEvent
		if err := json.Unmarshal([]byte(data), &ev); err != nil {
			// Skip malformed frames; the assembler tolerates gaps in
			// narration and the final payload is re-sent whole.
			continue
		}
		events++
		onEvent(ev)
	}

	if err := scanner.Err(); err != nil {
		// Cancellation closes the HTTP body and the scanner reports an
		// IO error; return the context error so callers see the abort.
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.logger.Error("stream read failed", "request_id", requestID, "error", err)
		return err
	}
	c.logger.Debug("stream ended without terminator", "request_id", requestID, "events", events)
	return nil
}

// PreviewDelete runs a delete-preview call. Unlike add, the backend
// answers with one JSON document.
func (c *Client) PreviewDelete(ctx context.Context, req assistant.PreviewDeleteRequest) (*assistant.DeletePreview, error) {
	body := struct {
		assistant.PreviewDeleteRequest
		Instructions string `json:"instructions,omitempty"`
	}{req, c.currentPrompts().Delete}
	var resp assistant.DeletePreview
	if err := c.postJSON(ctx, "/preview/delete", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

type interruptRequest struct {
	RequestID string `json:"request_id"`
}

// Interrupt asks the backend to abort the named request's generation.
func (c *Client) Interrupt(ctx context.Context, requestID string) error {
	return c.postJSON(ctx, "/interrupt", interruptRequest{RequestID: requestID}, nil)
}

// ResetContext clears the backend's conversation memory.
func (c *Client) ResetContext(ctx context.Context) error {
	return c.postJSON(ctx, "/context/reset", struct{}{}, nil)
}

// postJSON runs one JSON POST with the client's configured timeout and
// decodes the response into out when out is non-nil.
func (c *Client) postJSON(ctx context.Context, path string, in, out any) error {
	bodyBytes, err := json.Marshal(in)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(bodyBytes))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	c.setAuth(req)

	c.logger.Debug("POST "+path, "bytes", len(bodyBytes))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%w: %d - %s", ErrRequestFailed, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return nil
}

func (c *Client) setAuth(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}
