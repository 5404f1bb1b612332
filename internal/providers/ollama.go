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
	"time"

	"golang.org/x/time/rate"
)

const ollamaDefaultBaseURL = "http://localhost:11434"

// OllamaEmbeddingProvider embeds page text with a local Ollama server using
// the batch /api/embed endpoint, one HTTP request per Embed call.
type OllamaEmbeddingProvider struct {
	alias   string
	baseURL string
	model   string
	client  *http.Client
	limiter *rate.Limiter
}

type ollamaEmbedRequest struct {
	Model    string   `json:"model"`
	Input    []string `json:"input"`
	Truncate bool     `json:"truncate"`
}

type ollamaEmbedResponse struct {
	Model      string      `json:"model"`
	Embeddings [][]float32 `json:"embeddings"`
	Error      string      `json:"error"`
}

func NewOllamaEmbeddingProvider(alias string, opts Options) *OllamaEmbeddingProvider {
	baseURL := strings.TrimSpace(os.Getenv("DOCREADER_OLLAMA_BASE_URL"))
	if baseURL == "" {
		baseURL = ollamaDefaultBaseURL
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	return &OllamaEmbeddingProvider{
		alias:   alias,
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   resolveOllamaEmbedModel(alias),
		client:  &http.Client{Timeout: timeout},
		limiter: opts.limiter(),
	}
}

func (o *OllamaEmbeddingProvider) Embed(ctx context.Context, req EmbedRequest) ([][]float32, ProviderInfo, error) {
	info := ProviderInfo{Name: "ollama", Model: o.model, Key: o.alias}
	if len(req.Inputs) == 0 {
		return nil, info, fmt.Errorf("no embedding inputs")
	}
	if err := o.limiter.Wait(ctx); err != nil {
		return nil, info, fmt.Errorf("ollama rate limiter: %w", err)
	}
	payload, err := json.Marshal(ollamaEmbedRequest{Model: o.model, Input: req.Inputs, Truncate: true})
	if err != nil {
		return nil, info, fmt.Errorf("encode ollama request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/api/embed", bytes.NewReader(payload))
	if err != nil {
		return nil, info, fmt.Errorf("build ollama request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(httpReq)
	if err != nil {
		return nil, info, fmt.Errorf("ollama embed request failed: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, info, fmt.Errorf("read ollama response: %w", err)
	}

	var parsed ollamaEmbedResponse
	decodeErr := json.Unmarshal(body, &parsed)
	if resp.StatusCode >= 400 {
		msg := strings.TrimSpace(parsed.Error)
		if decodeErr != nil || msg == "" {
			msg = strings.TrimSpace(string(body))
		}
		return nil, info, fmt.Errorf("ollama embed error %d: %s", resp.StatusCode, msg)
	}
	if decodeErr != nil {
		return nil, info, fmt.Errorf("decode ollama response: %w", decodeErr)
	}
	if parsed.Model != "" {
		info.Model = parsed.Model
	}
	if len(parsed.Embeddings) != len(req.Inputs) {
		return nil, info, fmt.Errorf("ollama returned %d embeddings for %d inputs", len(parsed.Embeddings), len(req.Inputs))
	}
	out := make([][]float32, len(parsed.Embeddings))
	for i, v := range parsed.Embeddings {
		if len(v) == 0 {
			return nil, info, fmt.Errorf("ollama returned an empty embedding for input %d", i)
		}
		out[i] = matchDimension(v, req.Dimension)
	}
	return out, info, nil
}

// resolveOllamaEmbedModel maps a provider alias to a model name. A per-alias
// env override wins, then the short names below, then an alias that already
// looks like a model tag.
func resolveOllamaEmbedModel(alias string) string {
	alias = strings.TrimSpace(alias)
	if alias != "" {
		if v := strings.TrimSpace(os.Getenv("DOCREADER_OLLAMA_EMBED_MODEL_" + envToken(alias))); v != "" {
			return v
		}
		if m, ok := ollamaShortNames[strings.ToLower(alias)]; ok {
			return m
		}
		if strings.ContainsAny(alias, "-/.:") {
			return alias
		}
	}
	if v := strings.TrimSpace(os.Getenv("DOCREADER_OLLAMA_EMBED_MODEL")); v != "" {
		return v
	}
	return "nomic-embed-text"
}

var ollamaShortNames = map[string]string{
	"nomic":  "nomic-embed-text",
	"bge":    "bge-small-en-v1.5",
	"minilm": "all-minilm",
	"mxbai":  "mxbai-embed-large",
}

var envTokenReplacer = strings.NewReplacer("-", "_", ".", "_", "/", "_", ":", "_")

func envToken(s string) string {
	return envTokenReplacer.Replace(strings.ToUpper(s))
}

// matchDimension truncates or zero-pads v to target. target <= 0 keeps v.
func matchDimension(v []float32, target int) []float32 {
	if target <= 0 || len(v) == target {
		return v
	}
	if len(v) > target {
		return v[:target]
	}
	out := make([]float32, target)
	copy(out, v)
	return out
}
