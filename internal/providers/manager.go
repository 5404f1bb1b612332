package providers

import (
	"fmt"
	"strings"
	"time"

	"docreader/internal/config"
)

type NamedLLMProvider struct {
	Ref      ProviderRef
	Provider LLMProvider
}

type NamedEmbedProvider struct {
	Ref      ProviderRef
	Provider EmbeddingProvider
}

// Manager owns the configured backends. It is built once per process and
// handed to the components that need it.
type Manager struct {
	llmProviders   []NamedLLMProvider
	embedProviders []NamedEmbedProvider
}

func OptionsFromConfig(cfg config.Config) Options {
	return Options{
		OpenAIBaseURL: cfg.OpenAIBaseURL,
		EmbedModel:    cfg.EmbedModel,
		EmbedDim:      cfg.EmbedDim,
		RateRPS:       cfg.ProviderRateRPS,
		Timeout:       time.Duration(cfg.ProviderTimeout) * time.Second,
	}
}

func NewManager(cfg config.Config) (*Manager, error) {
	opts := OptionsFromConfig(cfg).withDefaults()
	llmRefs := ParseProviderList(cfg.LLMProviders)
	embedRefs := ParseProviderList(cfg.EmbedProviders)

	m := &Manager{}
	for _, ref := range llmRefs {
		p, err := buildProvider(ref, opts)
		if err != nil {
			return nil, err
		}
		llm, ok := p.(LLMProvider)
		if !ok {
			return nil, fmt.Errorf("provider %s does not support llm", ref.Raw)
		}
		m.llmProviders = append(m.llmProviders, NamedLLMProvider{Ref: ref, Provider: llm})
	}
	for _, ref := range embedRefs {
		p, err := buildProvider(ref, opts)
		if err != nil {
			return nil, err
		}
		embed, ok := p.(EmbeddingProvider)
		if !ok {
			return nil, fmt.Errorf("provider %s does not support embeddings", ref.Raw)
		}
		m.embedProviders = append(m.embedProviders, NamedEmbedProvider{Ref: ref, Provider: embed})
	}
	return m, nil
}

// NewStaticManager builds a manager around already constructed providers.
func NewStaticManager(llms []NamedLLMProvider, embeds []NamedEmbedProvider) *Manager {
	return &Manager{llmProviders: llms, embedProviders: embeds}
}

func (m *Manager) LLMCount() int {
	return len(m.llmProviders)
}

func (m *Manager) EmbedCount() int {
	return len(m.embedProviders)
}

// LLMProviders returns the chat backends, real providers before mock.
func (m *Manager) LLMProviders() []NamedLLMProvider {
	order := m.PreferredLLMOrder()
	out := make([]NamedLLMProvider, 0, len(order))
	for _, i := range order {
		out = append(out, m.llmProviders[i])
	}
	return out
}

// EmbedProviders returns the embedding backends, real providers before mock.
func (m *Manager) EmbedProviders() []NamedEmbedProvider {
	order := m.PreferredEmbedOrder()
	out := make([]NamedEmbedProvider, 0, len(order))
	for _, i := range order {
		out = append(out, m.embedProviders[i])
	}
	return out
}

func (m *Manager) PreferredLLMOrder() []int {
	return preferredOrder(len(m.llmProviders), func(i int) string { return strings.ToLower(m.llmProviders[i].Ref.Name) })
}

func (m *Manager) PreferredEmbedOrder() []int {
	return preferredOrder(len(m.embedProviders), func(i int) string { return strings.ToLower(m.embedProviders[i].Ref.Name) })
}

func preferredOrder(n int, nameAt func(i int) string) []int {
	if n <= 0 {
		return nil
	}
	out := make([]int, 0, n)
	for i := 0; i < n; i++ {
		if nameAt(i) != "mock" {
			out = append(out, i)
		}
	}
	for i := 0; i < n; i++ {
		if nameAt(i) == "mock" {
			out = append(out, i)
		}
	}
	return out
}

// FindLLMProvider matches name against the full "name:alias" reference first
// and then the bare provider name.
func (m *Manager) FindLLMProvider(name string) (NamedLLMProvider, bool) {
	target := strings.ToLower(strings.TrimSpace(name))
	if target == "" {
		return NamedLLMProvider{}, false
	}
	for i := range m.llmProviders {
		if strings.ToLower(m.llmProviders[i].Ref.Raw) == target {
			return m.llmProviders[i], true
		}
	}
	for i := range m.llmProviders {
		if strings.ToLower(m.llmProviders[i].Ref.Name) == target {
			return m.llmProviders[i], true
		}
	}
	return NamedLLMProvider{}, false
}

// ResolveLLM returns the named provider, or the preferred one when name is
// empty.
func (m *Manager) ResolveLLM(name string) (NamedLLMProvider, error) {
	if strings.TrimSpace(name) == "" {
		all := m.LLMProviders()
		if len(all) == 0 {
			return NamedLLMProvider{}, fmt.Errorf("no llm providers configured")
		}
		return all[0], nil
	}
	p, ok := m.FindLLMProvider(name)
	if !ok {
		return NamedLLMProvider{}, fmt.Errorf("llm provider %q is not configured", name)
	}
	return p, nil
}

func buildProvider(ref ProviderRef, opts Options) (any, error) {
	switch strings.ToLower(ref.Name) {
	case "mock":
		return NewMockProvider(opts.EmbedDim), nil
	case "openai":
		return NewOpenAIProvider(ref.KeyAlias, opts), nil
	case "ollama":
		return NewOllamaEmbeddingProvider(ref.KeyAlias, opts), nil
	case "groq":
		return NewGroqProvider(ref.KeyAlias, opts), nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", ref.Name)
	}
}
