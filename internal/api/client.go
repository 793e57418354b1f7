package api

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dusk-indust/bizdoc/internal/api/handler"
	"github.com/dusk-indust/bizdoc/internal/runstore"
	"github.com/dusk-indust/bizdoc/pkg/apierr"
)

// Client talks to a running bizdoc server.
type Client struct {
	baseURL string
	http    *http.Client
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying *http.Client entirely.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.http = hc
	}
}

// NewClient creates a client for the server at baseURL. The default HTTP
// client has no timeout because event streams stay open for a whole run.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetRun fetches a run by id.
func (c *Client) GetRun(ctx context.Context, id uuid.UUID) (*runstore.Run, error) {
	resp, err := c.get(ctx, "/api/v1/runs/"+id.String(), "application/json")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var run runstore.Run
	if err := json.NewDecoder(resp.Body).Decode(&run); err != nil {
		return nil, fmt.Errorf("decode run: %w", err)
	}
	return &run, nil
}

// Subscribe opens the run's event stream. The channel is closed when the
// stream ends or ctx is cancelled.
func (c *Client) Subscribe(ctx context.Context, id uuid.UUID) (<-chan handler.StreamEvent, error) {
	resp, err := c.get(ctx, "/api/v1/runs/"+id.String()+"/events", "text/event-stream")
	if err != nil {
		return nil, err
	}
	return ReadEvents(ctx, resp.Body), nil
}

func (c *Client) get(ctx context.Context, path, accept string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", accept)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", path, err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		var apiResp apierr.ErrorResponse
		if err := json.NewDecoder(io.LimitReader(resp.Body, 64*1024)).Decode(&apiResp); err == nil && apiResp.Error.Code != "" {
			return nil, apierr.New(apiResp.Error.Code, resp.StatusCode, apiResp.Error.Message)
		}
		return nil, fmt.Errorf("GET %s: HTTP %d", path, resp.StatusCode)
	}
	return resp, nil
}

// ReadEvents reads SSE frames from body and delivers them on the returned
// channel. The channel is closed when the body is exhausted, a read error
// occurs, or ctx is cancelled; body is closed when reading finishes.
//
// Lines starting with ":" are comments. Consecutive "data:" lines are
// joined with newlines and an empty line ends the frame. A frame that is not
// valid JSON is delivered with Err set and reading continues.
func ReadEvents(ctx context.Context, body io.ReadCloser) <-chan handler.StreamEvent {
	ch := make(chan handler.StreamEvent)
	go func() {
		defer close(ch)
		defer body.Close()

		// Unblock the scanner when ctx ends.
		stop := context.AfterFunc(ctx, func() { body.Close() })
		defer stop()

		scanner := bufio.NewScanner(body)
		scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
		var dataBuf strings.Builder

		for scanner.Scan() {
			line := scanner.Text()

			switch {
			case line == "":
				if dataBuf.Len() > 0 {
					emit(ctx, ch, dataBuf.String())
					dataBuf.Reset()
				}
			case strings.HasPrefix(line, ":"):
			case strings.HasPrefix(line, "data:"):
				if dataBuf.Len() > 0 {
					dataBuf.WriteByte('\n')
				}
				dataBuf.WriteString(strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
			}
		}
		if dataBuf.Len() > 0 && ctx.Err() == nil {
			emit(ctx, ch, dataBuf.String())
		}
	}()
	return ch
}

func emit(ctx context.Context, ch chan<- handler.StreamEvent, raw string) {
	var ev handler.StreamEvent
	if err := json.Unmarshal([]byte(raw), &ev); err != nil {
		ev = handler.StreamEvent{Err: fmt.Errorf("sse: unmarshal event: %w", err)}
	}
	select {
	case ch <- ev:
	case <-ctx.Done():
	}
}

// WaitForRun polls GetRun until the run is terminal or ctx is done.
func (c *Client) WaitForRun(ctx context.Context, id uuid.UUID, interval time.Duration) (*runstore.Run, error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		run, err := c.GetRun(ctx, id)
		if err != nil {
			return nil, err
		}
		if run.Status.Terminal() {
			return run, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
