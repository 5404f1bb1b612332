package providers

import (
	"context"
	"net/http"
	"os"
	"strings"
)

// GroqProvider supports LLM generation via Groq's OpenAI-compatible API.
// Model names in requests are OpenAI names, so Groq always uses its own
// configured model.
type GroqProvider struct {
	chat  *chatEndpoint
	model string
}

func NewGroqProvider(keyName string, opts Options) *GroqProvider {
	opts = opts.withDefaults()
	model := os.Getenv("DOCREADER_GROQ_MODEL")
	if strings.TrimSpace(model) == "" {
		model = "llama-3.1-8b-instant"
	}
	baseURL := strings.TrimSpace(os.Getenv("DOCREADER_GROQ_BASE_URL"))
	if baseURL == "" {
		baseURL = "https://api.groq.com/openai/v1"
	}
	return &GroqProvider{
		chat: &chatEndpoint{
			name:    "groq",
			baseURL: strings.TrimRight(baseURL, "/"),
			apiKey:  resolveGroqKey(keyName),
			keyName: keyName,
			client:  &http.Client{Timeout: opts.Timeout},
			limiter: opts.limiter(),
		},
		model: model,
	}
}

func (g *GroqProvider) Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, ProviderInfo, error) {
	info := ProviderInfo{Name: "groq", Key: g.chat.keyName, Model: g.model}
	text, err := g.chat.complete(ctx, buildChatBody(g.model, req, false))
	if err != nil {
		return GenerateResponse{}, info, err
	}
	return GenerateResponse{Text: text}, info, nil
}

func resolveGroqKey(alias string) string {
	if alias != "" {
		if v := os.Getenv("DOCREADER_GROQ_KEY_" + envToken(alias)); v != "" {
			return v
		}
	}
	return os.Getenv("GROQ_API_KEY")
}
