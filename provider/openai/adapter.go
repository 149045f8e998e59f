// Package openai adapts the OpenAI Chat Completions API (and compatible
// servers) to the provider contract, using the official SDK's wire types.
package openai

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/inkwell-ai/inkwell/provider"
	oa "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/shared"
)

const defaultBaseURL = "https://api.openai.com/v1"

// Adapter implements provider.Adapter for OpenAI-compatible chat endpoints.
type Adapter struct {
	cfg Config
}

// Config configures the OpenAI adapter.
type Config struct {
	APIKey       string
	Model        string
	BaseURL      string
	MaxTokens    int
	Temperature  float64
	Organization string
}

// New creates an OpenAI adapter.
func New(cfg Config) (*Adapter, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o"
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	return &Adapter{cfg: cfg}, nil
}

func (a *Adapter) Name() string { return "openai" }

func (a *Adapter) RequestURL() string {
	return strings.TrimSuffix(a.cfg.BaseURL, "/") + "/chat/completions"
}

func (a *Adapter) Headers() map[string]string {
	headers := map[string]string{
		"Authorization": "Bearer " + a.cfg.APIKey,
	}
	if a.cfg.Organization != "" {
		headers["OpenAI-Organization"] = a.cfg.Organization
	}
	return headers
}

func (a *Adapter) RequestBody(req *provider.Request) (any, error) {
	if req == nil || req.Prompt == "" {
		return nil, fmt.Errorf("prompt is required")
	}
	model := a.cfg.Model
	if req.Model != "" {
		model = req.Model
	}
	messages := make([]oa.ChatCompletionMessageParamUnion, 0, 2)
	if req.SystemPrompt != "" {
		messages = append(messages, oa.SystemMessage(req.SystemPrompt))
	}
	messages = append(messages, oa.UserMessage(req.Prompt))

	params := oa.ChatCompletionNewParams{
		Messages: messages,
		Model:    shared.ChatModel(model),
	}
	if maxTokens := pickInt(req.MaxTokens, a.cfg.MaxTokens); maxTokens > 0 {
		params.MaxTokens = oa.Int(int64(maxTokens))
	}
	if temp := pickFloat(req.Temperature, a.cfg.Temperature); temp > 0 {
		params.Temperature = oa.Float(temp)
	}
	return params, nil
}

func (a *Adapter) ParseResponse(raw json.RawMessage) (*provider.Generation, error) {
	var completion oa.ChatCompletion
	if err := json.Unmarshal(raw, &completion); err != nil {
		return nil, &provider.ParseError{Provider: a.Name(), Reason: "malformed JSON", Err: err}
	}
	if len(completion.Choices) == 0 {
		return nil, &provider.ParseError{Provider: a.Name(), Reason: "no choices in completion"}
	}
	choice := completion.Choices[0]
	if choice.Message.Content == "" {
		return nil, &provider.ParseError{Provider: a.Name(), Reason: "empty message content"}
	}
	return &provider.Generation{
		Chapters:     choice.Message.Content,
		FinishReason: string(choice.FinishReason),
		Model:        completion.Model,
	}, nil
}

func pickInt(reqVal, cfgVal int) int {
	if reqVal > 0 {
		return reqVal
	}
	return cfgVal
}

func pickFloat(reqVal, cfgVal float64) float64 {
	if reqVal > 0 {
		return reqVal
	}
	return cfgVal
}
