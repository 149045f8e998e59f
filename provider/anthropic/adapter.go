// Package anthropic adapts the Anthropic Messages API to the provider
// contract. It uses the official SDK's wire types for request and response
// payloads; the HTTP call itself goes through the resilient transport.
package anthropic

import (
	"encoding/json"
	"fmt"
	"strings"

	anth "github.com/anthropics/anthropic-sdk-go"
	"github.com/inkwell-ai/inkwell/provider"
)

const defaultBaseURL = "https://api.anthropic.com"

// Adapter implements provider.Adapter for Anthropic Claude.
type Adapter struct {
	cfg Config
}

// Config configures the Anthropic adapter.
type Config struct {
	APIKey      string
	Model       string
	BaseURL     string
	MaxTokens   int
	Temperature float64
	// APIVersion is sent in the anthropic-version header.
	APIVersion string
}

// New creates an Anthropic adapter.
func New(cfg Config) (*Adapter, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = "claude-3-5-haiku-latest"
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 1024
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = "2023-06-01"
	}
	return &Adapter{cfg: cfg}, nil
}

func (a *Adapter) Name() string { return "anthropic" }

func (a *Adapter) RequestURL() string {
	return strings.TrimSuffix(a.cfg.BaseURL, "/") + "/v1/messages"
}

func (a *Adapter) Headers() map[string]string {
	return map[string]string{
		"x-api-key":         a.cfg.APIKey,
		"anthropic-version": a.cfg.APIVersion,
	}
}

func (a *Adapter) RequestBody(req *provider.Request) (any, error) {
	if req == nil || req.Prompt == "" {
		return nil, fmt.Errorf("prompt is required")
	}
	model := a.cfg.Model
	if req.Model != "" {
		model = req.Model
	}
	maxTokens := a.cfg.MaxTokens
	if req.MaxTokens > 0 {
		maxTokens = req.MaxTokens
	}
	params := anth.MessageNewParams{
		Model:     anth.Model(model),
		MaxTokens: int64(maxTokens),
		Messages: []anth.MessageParam{{
			Role: anth.MessageParamRoleUser,
			Content: []anth.ContentBlockParamUnion{{
				OfText: &anth.TextBlockParam{Text: req.Prompt},
			}},
		}},
	}
	if req.SystemPrompt != "" {
		params.System = []anth.TextBlockParam{{Text: req.SystemPrompt}}
	}
	if t := pickTemperature(req.Temperature, a.cfg.Temperature); t > 0 {
		params.Temperature = anth.Float(t)
	}
	return params, nil
}

func (a *Adapter) ParseResponse(raw json.RawMessage) (*provider.Generation, error) {
	var msg anth.Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, &provider.ParseError{Provider: a.Name(), Reason: "malformed JSON", Err: err}
	}
	var content strings.Builder
	for _, block := range msg.Content {
		if block.Text != "" {
			content.WriteString(block.Text)
		}
	}
	if content.Len() == 0 {
		return nil, &provider.ParseError{Provider: a.Name(), Reason: "no text content in message"}
	}
	return &provider.Generation{
		Chapters:     content.String(),
		FinishReason: string(msg.StopReason),
		Model:        string(msg.Model),
	}, nil
}

func pickTemperature(reqTemp, cfgTemp float64) float64 {
	if reqTemp > 0 {
		return reqTemp
	}
	return cfgTemp
}
