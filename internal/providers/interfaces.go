package providers

import "context"

type ProviderInfo struct {
	Name  string `json:"name"`
	Model string `json:"model"`
	Key   string `json:"key"`
}

// ModelConfig selects a chat model and its sampling knobs. A nil Temperature
// leaves the provider default in place.
type ModelConfig struct {
	Name            string   `json:"name"`
	ReasoningEffort string   `json:"reasoning_effort,omitempty"`
	Temperature     *float64 `json:"temperature,omitempty"`
	MaxTokens       int      `json:"max_tokens,omitempty"`
	JSON            bool     `json:"json,omitempty"`
}

type GenerateRequest struct {
	Operation string      `json:"operation"`
	Stage     string      `json:"stage,omitempty"`
	System    string      `json:"system,omitempty"`
	Prompt    string      `json:"prompt"`
	Context   []string    `json:"context"`
	Model     ModelConfig `json:"model"`
}

type GenerateResponse struct {
	Text string `json:"text"`
}

type EmbedRequest struct {
	Operation string   `json:"operation"`
	Inputs    []string `json:"inputs"`
	Dimension int      `json:"dimension"`
}

type LLMProvider interface {
	Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, ProviderInfo, error)
}

type EmbeddingProvider interface {
	Embed(ctx context.Context, req EmbedRequest) ([][]float32, ProviderInfo, error)
}

// Temperature is a convenience for building a ModelConfig literal.
func Temperature(t float64) *float64 {
	return &t
}
