package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
)

const defaultOpenAIChatModel = "gpt-4o-mini"

// OpenAIProvider uses standard OpenAI REST APIs when keys are configured.
type OpenAIProvider struct {
	chat       *chatEndpoint
	embedModel string
}

func NewOpenAIProvider(keyName string, opts Options) *OpenAIProvider {
	opts = opts.withDefaults()
	return &OpenAIProvider{
		chat: &chatEndpoint{
			name:    "openai",
			baseURL: strings.TrimRight(opts.OpenAIBaseURL, "/"),
			apiKey:  resolveOpenAIKey(keyName),
			keyName: keyName,
			client:  &http.Client{Timeout: opts.Timeout},
			limiter: opts.limiter(),
		},
		embedModel: opts.EmbedModel,
	}
}

func (o *OpenAIProvider) Embed(ctx context.Context, req EmbedRequest) ([][]float32, ProviderInfo, error) {
	info := ProviderInfo{Name: "openai", Model: o.embedModel, Key: o.chat.keyName}
	c := o.chat
	if c.apiKey == "" {
		return nil, info, fmt.Errorf("openai key missing for alias %q", c.keyName)
	}
	if len(req.Inputs) == 0 {
		return nil, info, fmt.Errorf("no embedding inputs")
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, info, fmt.Errorf("openai rate limiter: %w", err)
	}
	payload, _ := json.Marshal(map[string]any{"model": o.embedModel, "input": req.Inputs})
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/embeddings", bytes.NewReader(payload))
	if err != nil {
		return nil, info, fmt.Errorf("build embedding request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")
	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, info, fmt.Errorf("openai embedding request failed: %w", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 400 {
		return nil, info, fmt.Errorf("openai embedding error %d: %s", resp.StatusCode, string(body))
	}
	var parsed struct {
		Data []struct {
			Index     int       `json:"index"`
			Embedding []float32 `json:"embedding"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, info, fmt.Errorf("decode embedding response: %w", err)
	}
	out := make([][]float32, len(parsed.Data))
	for i, d := range parsed.Data {
		idx := d.Index
		if idx < 0 || idx >= len(out) || out[idx] != nil {
			idx = i
		}
		out[idx] = matchDimension(d.Embedding, req.Dimension)
	}
	return out, info, nil
}

func (o *OpenAIProvider) Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, ProviderInfo, error) {
	model := req.Model.Name
	if strings.TrimSpace(model) == "" {
		model = defaultOpenAIChatModel
	}
	info := ProviderInfo{Name: "openai", Model: model, Key: o.chat.keyName}
	text, err := o.chat.complete(ctx, buildChatBody(model, req, true))
	if err != nil {
		return GenerateResponse{}, info, err
	}
	return GenerateResponse{Text: text}, info, nil
}

func resolveOpenAIKey(alias string) string {
	if alias != "" {
		k := os.Getenv("DOCREADER_OPENAI_KEY_" + envToken(alias))
		if k != "" {
			return k
		}
	}
	return os.Getenv("OPENAI_API_KEY")
}
