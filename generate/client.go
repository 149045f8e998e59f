// Package generate ties a provider adapter to the resilient transport,
// producing calls the session manager can run.
package generate

import (
	"context"
	"fmt"

	"github.com/inkwell-ai/inkwell/provider"
	"github.com/inkwell-ai/inkwell/session"
	"github.com/inkwell-ai/inkwell/transport"
)

// Client performs complete generations: build request, POST with retries,
// parse the response.
type Client struct {
	adapter   provider.Adapter
	transport *transport.Client
}

// New creates a generation client.
func New(adapter provider.Adapter, tc *transport.Client) (*Client, error) {
	if adapter == nil {
		return nil, fmt.Errorf("adapter is required")
	}
	if tc == nil {
		return nil, fmt.Errorf("transport is required")
	}
	return &Client{adapter: adapter, transport: tc}, nil
}

// Generate runs one generation synchronously. Parse errors from the adapter
// are propagated unchanged.
func (c *Client) Generate(ctx context.Context, req *provider.Request, ownerID string) (*provider.Generation, error) {
	body, err := c.adapter.RequestBody(req)
	if err != nil {
		return nil, err
	}
	raw, err := c.transport.Post(ctx, c.adapter.RequestURL(), c.adapter.Headers(), body, ownerID)
	if err != nil {
		return nil, err
	}
	return c.adapter.ParseResponse(raw)
}

// Call packages a request as a session.Call for Manager.Submit.
func (c *Client) Call(req *provider.Request, ownerID string) session.Call {
	return func(ctx context.Context) (*provider.Generation, error) {
		return c.Generate(ctx, req, ownerID)
	}
}
