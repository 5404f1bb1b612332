package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"golang.org/x/time/rate"
)

const defaultSystemPrompt = "You are a careful reading assistant. Answer only from the provided document text."

// chatEndpoint speaks the OpenAI chat completions protocol. Groq exposes the
// same surface under a different base URL.
type chatEndpoint struct {
	name    string
	baseURL string
	apiKey  string
	keyName string
	client  *http.Client
	limiter *rate.Limiter
}

func buildChatBody(model string, req GenerateRequest, reasoning bool) map[string]any {
	system := req.System
	if strings.TrimSpace(system) == "" {
		system = defaultSystemPrompt
	}
	prompt := req.Prompt
	if len(req.Context) > 0 {
		prompt += "\n\nContext:\n" + strings.Join(req.Context, "\n\n")
	}
	body := map[string]any{
		"model": model,
		"messages": []map[string]string{
			{"role": "system", "content": system},
			{"role": "user", "content": prompt},
		},
	}
	mc := req.Model
	if reasoning && mc.ReasoningEffort != "" {
		body["reasoning_effort"] = mc.ReasoningEffort
		if mc.MaxTokens > 0 {
			body["max_completion_tokens"] = mc.MaxTokens
		}
	} else if mc.MaxTokens > 0 {
		body["max_tokens"] = mc.MaxTokens
	}
	if mc.Temperature != nil {
		body["temperature"] = *mc.Temperature
	}
	if mc.JSON {
		body["response_format"] = map[string]string{"type": "json_object"}
	}
	return body
}

func (c *chatEndpoint) complete(ctx context.Context, body map[string]any) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("%s key missing for alias %q", c.name, c.keyName)
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("%s rate limiter: %w", c.name, err)
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("encode %s request: %w", c.name, err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build %s request: %w", c.name, err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")
	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("%s generate request failed: %w", c.name, err)
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("%s generate error %d: %s", c.name, resp.StatusCode, string(respBody))
	}
	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("decode %s response: %w", c.name, err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("%s returned empty choices", c.name)
	}
	return parsed.Choices[0].Message.Content, nil
}
