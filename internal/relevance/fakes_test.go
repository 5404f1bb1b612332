package relevance

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"

	"docreader/internal/providers"
)

// fakeLLM answers with reply and records every request it sees.
type fakeLLM struct {
	name  string
	reply func(ctx context.Context, req providers.GenerateRequest) (string, error)

	mu    sync.Mutex
	calls []providers.GenerateRequest
}

func (f *fakeLLM) Generate(ctx context.Context, req providers.GenerateRequest) (providers.GenerateResponse, providers.ProviderInfo, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	f.mu.Unlock()
	text, err := f.reply(ctx, req)
	info := providers.ProviderInfo{Name: f.name, Model: req.Model.Name}
	if err != nil {
		return providers.GenerateResponse{}, info, err
	}
	return providers.GenerateResponse{Text: text}, info, nil
}

func (f *fakeLLM) Calls() []providers.GenerateRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]providers.GenerateRequest(nil), f.calls...)
}

type promptPayload struct {
	Topic    string        `json:"topic"`
	Question string        `json:"question"`
	Pages    []indexedPage `json:"pages"`
}

func decodePrompt(t testing.TB, prompt string) promptPayload {
	t.Helper()
	i := strings.Index(prompt, "\n\n{")
	if i < 0 {
		t.Fatalf("prompt has no json payload: %q", prompt)
	}
	var p promptPayload
	if err := json.Unmarshal([]byte(prompt[i+2:]), &p); err != nil {
		t.Fatalf("decode prompt payload: %v", err)
	}
	return p
}

// scoreByText builds a reply that scores each page of the batch with fn.
func scoreByText(t testing.TB, fn func(page int, text string) float64) func(context.Context, providers.GenerateRequest) (string, error) {
	return func(_ context.Context, req providers.GenerateRequest) (string, error) {
		p := decodePrompt(t, req.Prompt)
		type ranking struct {
			Page   int     `json:"page"`
			Score  float64 `json:"score"`
			Reason string  `json:"reason"`
		}
		out := struct {
			Rankings []ranking `json:"rankings"`
		}{}
		for _, pg := range p.Pages {
			out.Rankings = append(out.Rankings, ranking{Page: pg.Page, Score: fn(pg.Page, pg.Text), Reason: "about " + pg.Text})
		}
		b, _ := json.Marshal(out)
		return string(b), nil
	}
}

func replyWith(text string, err error) func(context.Context, providers.GenerateRequest) (string, error) {
	return func(context.Context, providers.GenerateRequest) (string, error) {
		return text, err
	}
}
