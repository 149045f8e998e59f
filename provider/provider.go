// Package provider defines the adapter contract between the resilient
// transport and a concrete text-generation API.
package provider

import (
	"encoding/json"
	"fmt"
)

// Request is the normalized generation request handed to an adapter.
type Request struct {
	Prompt       string  `json:"prompt"`
	SystemPrompt string  `json:"system_prompt,omitempty"`
	Model        string  `json:"model,omitempty"`
	MaxTokens    int     `json:"max_tokens,omitempty"`
	Temperature  float64 `json:"temperature,omitempty"`
}

// Generation is the normalized result parsed from a provider response.
type Generation struct {
	Chapters     string `json:"chapters"`
	FinishReason string `json:"finish_reason,omitempty"`
	Model        string `json:"model,omitempty"`
}

// Adapter builds provider-specific wire requests and parses responses. It
// never performs I/O; the transport layer owns the HTTP call and its retries.
type Adapter interface {
	// Name identifies the provider, e.g. "openai" or "anthropic".
	Name() string
	// RequestURL returns the endpoint to POST to.
	RequestURL() string
	// Headers returns the HTTP headers to attach verbatim.
	Headers() map[string]string
	// RequestBody builds the JSON-serializable request payload.
	RequestBody(req *Request) (any, error)
	// ParseResponse extracts a Generation from a raw success payload.
	// A malformed or unexpected shape yields a *ParseError.
	ParseResponse(raw json.RawMessage) (*Generation, error)
}

// ParseError indicates a malformed or unexpected provider response shape. It
// is propagated unchanged by the orchestration layers.
type ParseError struct {
	Provider string
	Reason   string
	Err      error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s response invalid: %s: %v", e.Provider, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s response invalid: %s", e.Provider, e.Reason)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
