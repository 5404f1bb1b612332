package relevance

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"docreader/internal/logging"
	"docreader/internal/providers"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const DefaultCallTimeout = 60 * time.Second

const (
	stagePrimary  = "primary"
	stageFallback = "fallback"
)

// Backend is one chat model configuration on one provider.
type Backend struct {
	Provider providers.LLMProvider
	Model    providers.ModelConfig
}

type RubricConfig struct {
	Primary     Backend
	Fallback    Backend
	BatchSize   int
	Concurrency int
	MaxChars    int
	CallTimeout time.Duration
}

// RubricScorer asks a chat model to grade pages against a fixed rubric, one
// batch of pages per call.
type RubricScorer struct {
	cfg    RubricConfig
	logger *zap.Logger
}

func NewRubricScorer(cfg RubricConfig, logger *zap.Logger) *RubricScorer {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.MaxChars == 0 {
		cfg.MaxChars = RubricMaxChars
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = DefaultCallTimeout
	}
	return &RubricScorer{cfg: cfg, logger: logging.OrNop(logger)}
}

func (s *RubricScorer) Score(ctx context.Context, query string, pages []string) ([]PageScore, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, invalidInput("query is empty")
	}
	if len(pages) == 0 {
		return nil, invalidInput("no pages to score")
	}

	batches := Partition(indexPages(pages, s.cfg.MaxChars), s.cfg.BatchSize)
	results := make([][]PageScore, len(batches))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)
	for i, batch := range batches {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			scores, err := s.scoreBatch(gctx, query, i+1, batch)
			if err != nil {
				return err
			}
			results[i] = scores
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		scoringFailures.WithLabelValues(kindLabel(err)).Inc()
		return nil, err
	}

	out := make([]PageScore, 0, len(pages))
	for _, r := range results {
		out = append(out, r...)
	}
	return out, nil
}

// attemptState tracks the primary/fallback escalation of one batch.
type attemptState int

const (
	stateNotStarted attemptState = iota
	statePrimaryAttempted
	stateFallbackAttempted
	stateSucceeded
	stateFailed
)

func (s attemptState) String() string {
	switch s {
	case stateNotStarted:
		return "not_started"
	case statePrimaryAttempted:
		return "primary_attempted"
	case stateFallbackAttempted:
		return "fallback_attempted"
	case stateSucceeded:
		return "succeeded"
	case stateFailed:
		return "failed"
	}
	return fmt.Sprintf("attemptState(%d)", int(s))
}

// next returns the state after the call issued in s finished with ok.
func (s attemptState) next(ok bool) attemptState {
	switch s {
	case stateNotStarted:
		return statePrimaryAttempted
	case statePrimaryAttempted:
		if ok {
			return stateSucceeded
		}
		return stateFallbackAttempted
	case stateFallbackAttempted:
		if ok {
			return stateSucceeded
		}
		return stateFailed
	}
	return s
}

func (s *RubricScorer) scoreBatch(ctx context.Context, query string, batchNo int, batch []indexedPage) ([]PageScore, error) {
	start := time.Now()
	defer func() { batchDuration.Observe(time.Since(start).Seconds()) }()

	prompt, err := BuildRankingPrompt(query, batch)
	if err != nil {
		return nil, fmt.Errorf("build ranking prompt: %w", err)
	}
	first, last := batch[0].Page, batch[len(batch)-1].Page
	log := s.logger.With(append(logging.ContextFields(ctx),
		zap.Int("batch", batchNo), zap.Int("first_page", first), zap.Int("last_page", last))...)

	var (
		scores   []PageScore
		attempts []Attempt
		ok       bool
		state    = stateNotStarted
	)
	for {
		state = state.next(ok)
		switch state {
		case stateSucceeded:
			return scores, nil
		case stateFailed:
			kind := attempts[len(attempts)-1].Kind
			log.Error("batch scoring failed", zap.Error(kind), zap.Int("attempts", len(attempts)))
			return nil, &ScoringError{Batch: batchNo, FirstPage: first, LastPage: last, Kind: kind, Attempts: attempts}
		}

		backend, stage := s.cfg.Primary, stagePrimary
		if state == stateFallbackAttempted {
			backend, stage = s.cfg.Fallback, stageFallback
		}
		var failed *Attempt
		scores, failed = s.attempt(ctx, backend, stage, prompt, batch)
		ok = failed == nil
		if ok {
			backendCalls.WithLabelValues(stage, "ok").Inc()
			continue
		}
		backendCalls.WithLabelValues(stage, kindLabel(failed.Kind)).Inc()
		attempts = append(attempts, *failed)
		if stage == stagePrimary {
			log.Warn("primary scoring failed, escalating to fallback", zap.String("attempt", failed.String()))
		}
	}
}

func (s *RubricScorer) attempt(ctx context.Context, b Backend, stage, prompt string, batch []indexedPage) ([]PageScore, *Attempt) {
	failed := &Attempt{Stage: stage, Model: b.Model.Name, Kind: ErrBackendUnavailable}
	if b.Provider == nil {
		failed.Err = errors.New("no backend configured")
		return nil, failed
	}
	callCtx, cancel := context.WithTimeout(ctx, s.cfg.CallTimeout)
	defer cancel()

	resp, info, err := b.Provider.Generate(callCtx, providers.GenerateRequest{
		Operation: opRankBatch,
		Stage:     stage,
		System:    rankingSystemPrompt,
		Prompt:    prompt,
		Model:     b.Model,
	})
	failed.Provider = info.Name
	if info.Model != "" {
		failed.Model = info.Model
	}
	if err != nil {
		failed.Err = err
		return nil, failed
	}
	if strings.TrimSpace(resp.Text) == "" {
		failed.Err = errors.New("empty content")
		return nil, failed
	}
	scores, err := ParseRankings(resp.Text, batch)
	if err != nil {
		failed.Kind = ErrMalformedResponse
		failed.Err = err
		return nil, failed
	}
	return scores, nil
}
