// Package transport wraps a single HTTP POST in the retry orchestrator and
// classifies every response into a typed outcome.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/inkwell-ai/inkwell/observability"
	"github.com/inkwell-ai/inkwell/retry"
)

// Client issues JSON POST requests guarded by a retry.Orchestrator.
type Client struct {
	httpClient   *http.Client
	orchestrator *retry.Orchestrator
	hooks        *observability.Hooks
}

// Config holds transport configuration.
type Config struct {
	// HTTPClient defaults to a client with Timeout applied.
	HTTPClient *http.Client
	// Orchestrator is required; it supplies retry policy and cancellation.
	Orchestrator *retry.Orchestrator
	// Timeout is the per-attempt HTTP timeout when HTTPClient is nil.
	Timeout time.Duration
	Hooks   *observability.Hooks
}

// New creates a transport client.
func New(cfg Config) (*Client, error) {
	if cfg.Orchestrator == nil {
		return nil, fmt.Errorf("orchestrator is required")
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{
		httpClient:   cfg.HTTPClient,
		orchestrator: cfg.Orchestrator,
		hooks:        cfg.Hooks,
	}, nil
}

// Post serializes body as JSON and POSTs it to url with the given headers,
// retrying 5xx and transport failures per the orchestrator's policy. The
// request is registered under a fresh request ID and, when ownerID is
// non-empty, under that owner for bulk cancellation.
//
// On success the raw response body is returned as-is, including a literal
// JSON null. Non-2xx terminal responses yield *HTTPError; unreachable-server
// failures after retry exhaustion yield *NetworkError; cancellation yields an
// error matching retry.ErrCanceled.
func (c *Client) Post(ctx context.Context, url string, headers map[string]string, body any, ownerID string) (json.RawMessage, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request body: %w", err)
	}

	requestID := uuid.NewString()
	c.hooks.SafeLog(ctx, "debug", "issuing POST", map[string]any{
		"request_id": requestID,
		"url":        url,
		"owner_id":   ownerID,
	})

	out, err := c.orchestrator.Execute(ctx, requestID, ownerID, func(attemptCtx context.Context) retry.Outcome {
		return c.attempt(attemptCtx, url, headers, payload)
	})

	switch {
	case err == nil && out.Kind == retry.KindSuccess:
		return out.Payload, nil
	case err == nil && out.Kind == retry.KindNonRetryable:
		return nil, &HTTPError{Status: out.Status, StatusText: out.StatusText, Body: out.Body}
	case errors.Is(err, retry.ErrCanceled):
		return nil, err
	}

	var exhausted *retry.ExhaustedError
	if errors.As(err, &exhausted) {
		switch exhausted.Last.Kind {
		case retry.KindRetryable:
			return nil, &HTTPError{
				Status:     exhausted.Last.Status,
				StatusText: exhausted.Last.StatusText,
				Body:       exhausted.Last.Body,
				Err:        exhausted,
			}
		case retry.KindTransport:
			return nil, &NetworkError{
				Message: exhausted.Last.Cause.Error(),
				Err:     exhausted,
			}
		}
	}
	return nil, err
}

// attempt performs one POST and classifies the result. Retry decisions are
// made from the HTTP status alone; the error body is parsed only so terminal
// errors can carry it.
func (c *Client) attempt(ctx context.Context, url string, headers map[string]string, payload []byte) retry.Outcome {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return retry.TransportFailure(err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return retry.Canceled()
		}
		return retry.TransportFailure(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		if ctx.Err() != nil {
			return retry.Canceled()
		}
		return retry.TransportFailure(err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return retry.Success(raw)
	}

	errBody := make(map[string]any)
	if jsonErr := json.Unmarshal(raw, &errBody); jsonErr != nil {
		errBody = map[string]any{}
	}
	statusText := http.StatusText(resp.StatusCode)

	if resp.StatusCode >= 500 && resp.StatusCode <= 599 {
		return retry.RetryableFailure(resp.StatusCode, statusText, errBody)
	}
	return retry.NonRetryableFailure(resp.StatusCode, statusText, errBody)
}
