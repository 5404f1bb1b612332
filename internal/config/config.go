package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	APIAddr         string    `yaml:"api_addr"`
	PostgresURL     string    `yaml:"postgres_url"`
	LLMProviders    string    `yaml:"llm_providers"`
	EmbedProviders  string    `yaml:"embed_providers"`
	OpenAIBaseURL   string    `yaml:"openai_base_url"`
	ProviderRateRPS float64   `yaml:"provider_rate_rps"`
	ProviderTimeout int       `yaml:"provider_timeout_secs"`
	EmbedDim        int       `yaml:"embed_dim"`
	EmbedModel      string    `yaml:"embed_model"`
	MaxUploadMB     int       `yaml:"max_upload_mb"`
	LogLevel        string    `yaml:"log_level"`
	LogFormat       string    `yaml:"log_format"`
	Relevance       Relevance `yaml:"relevance"`
	Summary         Summary   `yaml:"summary"`
}

// Relevance configures the page ranking pipeline.
type Relevance struct {
	Mode             string  `yaml:"mode"`
	BatchSize        int     `yaml:"batch_size"`
	BatchConcurrency int     `yaml:"batch_concurrency"`
	RubricMaxChars   int     `yaml:"rubric_max_chars"`
	EmbedMaxChars    int     `yaml:"embed_max_chars"`
	Threshold        float64 `yaml:"threshold"`
	ReasonLimit      int     `yaml:"reason_limit"`
	CallTimeoutSecs  int     `yaml:"call_timeout_secs"`
	PrimaryProvider  string  `yaml:"primary_provider"`
	FallbackProvider string  `yaml:"fallback_provider"`
	Primary          Model   `yaml:"primary"`
	Fallback         Model   `yaml:"fallback"`
	Reasons          Model   `yaml:"reasons"`
}

type Summary struct {
	Model Model `yaml:"model"`
}

// Model is a named chat model configuration. A negative temperature means
// "let the provider decide".
type Model struct {
	Name            string  `yaml:"name"`
	ReasoningEffort string  `yaml:"reasoning_effort"`
	Temperature     float64 `yaml:"temperature"`
	MaxTokens       int     `yaml:"max_tokens"`
}

func Default() Config {
	return Config{
		APIAddr:         ":8080",
		LLMProviders:    "mock",
		EmbedProviders:  "mock",
		OpenAIBaseURL:   "https://api.openai.com/v1",
		ProviderRateRPS: 5,
		ProviderTimeout: 60,
		EmbedDim:        1536,
		EmbedModel:      "text-embedding-3-small",
		MaxUploadMB:     128,
		LogLevel:        "info",
		LogFormat:       "json",
		Relevance: Relevance{
			Mode:             "rubric",
			BatchSize:        40,
			BatchConcurrency: 1,
			RubricMaxChars:   600,
			EmbedMaxChars:    4000,
			Threshold:        25,
			ReasonLimit:      24,
			CallTimeoutSecs:  60,
			Primary:          Model{Name: "gpt-5.1", ReasoningEffort: "none", Temperature: -1, MaxTokens: 2000},
			Fallback:         Model{Name: "gpt-4o-mini", Temperature: 0, MaxTokens: 1000},
			Reasons:          Model{Name: "gpt-4.1-mini", Temperature: -1},
		},
		Summary: Summary{
			Model: Model{Name: "gpt-4o-mini", Temperature: 0.35},
		},
	}
}

// Load returns defaults, overlaid by the YAML file named in DOCREADER_CONFIG
// (if any), overlaid by DOCREADER_* environment variables.
func Load() (Config, error) {
	cfg := Default()
	if path := strings.TrimSpace(os.Getenv("DOCREADER_CONFIG")); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}
	applyEnv(&cfg)
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.APIAddr = getenv("DOCREADER_API_ADDR", cfg.APIAddr)
	cfg.PostgresURL = getenv("DOCREADER_POSTGRES_URL", cfg.PostgresURL)
	cfg.LLMProviders = getenv("DOCREADER_LLM_PROVIDERS", cfg.LLMProviders)
	cfg.EmbedProviders = getenv("DOCREADER_EMBED_PROVIDERS", cfg.EmbedProviders)
	cfg.OpenAIBaseURL = getenv("DOCREADER_OPENAI_BASE_URL", cfg.OpenAIBaseURL)
	cfg.ProviderRateRPS = getenvFloat("DOCREADER_PROVIDER_RATE_RPS", cfg.ProviderRateRPS)
	cfg.ProviderTimeout = getenvInt("DOCREADER_PROVIDER_TIMEOUT_SECONDS", cfg.ProviderTimeout)
	cfg.EmbedDim = getenvInt("DOCREADER_EMBED_DIM", cfg.EmbedDim)
	cfg.EmbedModel = getenv("DOCREADER_EMBED_MODEL", cfg.EmbedModel)
	cfg.MaxUploadMB = getenvInt("DOCREADER_MAX_UPLOAD_MB", cfg.MaxUploadMB)
	cfg.LogLevel = getenv("DOCREADER_LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = getenv("DOCREADER_LOG_FORMAT", cfg.LogFormat)

	r := &cfg.Relevance
	r.Mode = getenv("DOCREADER_RELEVANCE_MODE", r.Mode)
	r.BatchSize = getenvInt("DOCREADER_RELEVANCE_BATCH_SIZE", r.BatchSize)
	r.BatchConcurrency = getenvInt("DOCREADER_RELEVANCE_BATCH_CONCURRENCY", r.BatchConcurrency)
	r.RubricMaxChars = getenvInt("DOCREADER_RELEVANCE_RUBRIC_MAX_CHARS", r.RubricMaxChars)
	r.EmbedMaxChars = getenvInt("DOCREADER_RELEVANCE_EMBED_MAX_CHARS", r.EmbedMaxChars)
	r.Threshold = getenvFloat("DOCREADER_RELEVANCE_THRESHOLD", r.Threshold)
	r.ReasonLimit = getenvInt("DOCREADER_RELEVANCE_REASON_LIMIT", r.ReasonLimit)
	r.CallTimeoutSecs = getenvInt("DOCREADER_RELEVANCE_CALL_TIMEOUT_SECONDS", r.CallTimeoutSecs)
	r.PrimaryProvider = getenv("DOCREADER_RELEVANCE_PRIMARY_PROVIDER", r.PrimaryProvider)
	r.FallbackProvider = getenv("DOCREADER_RELEVANCE_FALLBACK_PROVIDER", r.FallbackProvider)
	r.Primary.Name = getenv("DOCREADER_RELEVANCE_PRIMARY_MODEL", r.Primary.Name)
	r.Fallback.Name = getenv("DOCREADER_RELEVANCE_FALLBACK_MODEL", r.Fallback.Name)
	r.Reasons.Name = getenv("DOCREADER_RELEVANCE_REASON_MODEL", r.Reasons.Name)

	cfg.Summary.Model.Name = getenv("DOCREADER_SUMMARY_MODEL", cfg.Summary.Model.Name)
	cfg.Summary.Model.Temperature = getenvFloat("DOCREADER_SUMMARY_TEMPERATURE", cfg.Summary.Model.Temperature)
}

func getenv(k, fallback string) string {
	v := os.Getenv(k)
	if v == "" {
		return fallback
	}
	return v
}

func getenvInt(k string, fallback int) int {
	v := os.Getenv(k)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getenvFloat(k string, fallback float64) float64 {
	v := os.Getenv(k)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return fallback
	}
	return f
}
