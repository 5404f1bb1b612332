package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"docreader/internal/config"
	"docreader/internal/logging"
	"docreader/internal/providers"
	"docreader/internal/relevance"
	"docreader/internal/storage"
	"docreader/internal/summary"

	"go.uber.org/zap"
)

const (
	ModeRubric    = "rubric"
	ModeEmbedding = "embedding"
)

// App holds the long-lived components shared by the HTTP server and the CLI.
type App struct {
	Config     config.Config
	Logger     *zap.Logger
	Providers  *providers.Manager
	Relevance  *relevance.Service
	Summarizer *summary.Summarizer
	// Audit is nil unless a Postgres URL is configured.
	Audit *storage.LLMAuditRepo

	db *storage.DB
}

// New builds the provider manager, the relevance service and the summarizer.
// When a Postgres URL is configured every backend call is also written to the
// llm_calls table.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	logger = logging.OrNop(logger)
	pm, err := providers.NewManager(cfg)
	if err != nil {
		return nil, fmt.Errorf("providers: %w", err)
	}

	a := &App{Config: cfg, Logger: logger, Providers: pm}
	if strings.TrimSpace(cfg.PostgresURL) != "" {
		dbCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		db, err := storage.NewDB(dbCtx, cfg.PostgresURL)
		if err != nil {
			return nil, err
		}
		if err := db.Migrate(dbCtx); err != nil {
			db.Close()
			return nil, err
		}
		a.db = db
		a.Audit = storage.NewLLMAuditRepo(db)
		pm.WithAudit(a.Audit, logger)
	}
	logger.Info("providers ready",
		zap.Int("llm", pm.LLMCount()),
		zap.Int("embed", pm.EmbedCount()),
		zap.Bool("audit", a.Audit != nil))

	if err := a.wire(); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// NewWithManager wires an App around an existing provider manager. No audit
// storage is attached.
func NewWithManager(cfg config.Config, pm *providers.Manager, logger *zap.Logger) (*App, error) {
	a := &App{Config: cfg, Logger: logging.OrNop(logger), Providers: pm}
	if err := a.wire(); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *App) wire() error {
	scorer, err := NewScorer(a.Config, a.Providers, a.Logger)
	if err != nil {
		return err
	}
	a.Relevance = relevance.NewService(scorer, a.Config.Relevance.Threshold, a.Logger)
	a.Summarizer = summary.New(a.Providers.LLMProviders(), modelConfig(a.Config.Summary.Model, false), a.Logger)
	return nil
}

// NewScorer picks the scoring variant named by cfg.Relevance.Mode.
func NewScorer(cfg config.Config, pm *providers.Manager, logger *zap.Logger) (relevance.Scorer, error) {
	rc := cfg.Relevance
	timeout := time.Duration(rc.CallTimeoutSecs) * time.Second
	switch strings.ToLower(strings.TrimSpace(rc.Mode)) {
	case "", ModeRubric:
		primary, err := pm.ResolveLLM(rc.PrimaryProvider)
		if err != nil {
			return nil, fmt.Errorf("primary scorer: %w", err)
		}
		fallback, err := pm.ResolveLLM(firstNonEmpty(rc.FallbackProvider, rc.PrimaryProvider))
		if err != nil {
			return nil, fmt.Errorf("fallback scorer: %w", err)
		}
		return relevance.NewRubricScorer(relevance.RubricConfig{
			Primary:     relevance.Backend{Provider: primary.Provider, Model: modelConfig(rc.Primary, true)},
			Fallback:    relevance.Backend{Provider: fallback.Provider, Model: modelConfig(rc.Fallback, true)},
			BatchSize:   rc.BatchSize,
			Concurrency: rc.BatchConcurrency,
			MaxChars:    rc.RubricMaxChars,
			CallTimeout: timeout,
		}, logger), nil
	case ModeEmbedding:
		if pm.EmbedCount() == 0 {
			return nil, fmt.Errorf("embedding scorer: no embedding providers configured")
		}
		reasons, err := pm.ResolveLLM(rc.PrimaryProvider)
		if err != nil {
			return nil, fmt.Errorf("reason backend: %w", err)
		}
		return relevance.NewEmbeddingScorer(relevance.EmbeddingConfig{
			Embedders:   pm.EmbedProviders(),
			Reasons:     relevance.Backend{Provider: reasons.Provider, Model: modelConfig(rc.Reasons, true)},
			MaxChars:    rc.EmbedMaxChars,
			Dimension:   cfg.EmbedDim,
			Threshold:   rc.Threshold,
			ReasonLimit: rc.ReasonLimit,
			CallTimeout: timeout,
		}, logger), nil
	default:
		return nil, fmt.Errorf("unknown relevance mode %q", rc.Mode)
	}
}

func modelConfig(m config.Model, jsonOut bool) providers.ModelConfig {
	mc := providers.ModelConfig{
		Name:            m.Name,
		ReasoningEffort: m.ReasoningEffort,
		MaxTokens:       m.MaxTokens,
		JSON:            jsonOut,
	}
	if m.Temperature >= 0 {
		mc.Temperature = providers.Temperature(m.Temperature)
	}
	return mc
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func (a *App) Close() {
	if a.db != nil {
		a.db.Close()
	}
}
