package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestGroqUsesConfiguredModel(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"hi"}}]}`))
	}))
	defer srv.Close()
	t.Setenv("DOCREADER_GROQ_BASE_URL", srv.URL)
	t.Setenv("DOCREADER_GROQ_MODEL", "")
	t.Setenv("GROQ_API_KEY", "test-key")

	p := NewGroqProvider("", Options{})
	resp, info, err := p.Generate(context.Background(), GenerateRequest{
		Prompt: "hello",
		Model:  ModelConfig{Name: "gpt-5.1", ReasoningEffort: "none", MaxTokens: 100},
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if resp.Text != "hi" || info.Model != "llama-3.1-8b-instant" {
		t.Fatalf("unexpected response %+v %+v", resp, info)
	}
	if got["model"] != "llama-3.1-8b-instant" {
		t.Fatalf("request used model %v", got["model"])
	}
	if _, ok := got["reasoning_effort"]; ok {
		t.Fatalf("groq request must not carry reasoning_effort")
	}
	if got["max_tokens"] != float64(100) {
		t.Fatalf("expected max_tokens 100, got %v", got["max_tokens"])
	}
}

func TestGroqMissingKey(t *testing.T) {
	t.Setenv("GROQ_API_KEY", "")
	t.Setenv("DOCREADER_GROQ_KEY_ALIAS1", "")
	p := NewGroqProvider("alias1", Options{})
	if _, _, err := p.Generate(context.Background(), GenerateRequest{Prompt: "x"}); err == nil {
		t.Fatalf("expected missing key error")
	}
}
