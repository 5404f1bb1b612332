package relevance

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"docreader/internal/logging"
	"docreader/internal/providers"
	"docreader/internal/util"
	"docreader/internal/vector"

	"go.uber.org/zap"
)

const (
	DefaultReasonLimit    = 24
	DefaultEmbedBatchSize = 64
	emptyPagePlaceholder  = "(empty page)"
)

type EmbeddingConfig struct {
	Embedders   []providers.NamedEmbedProvider
	Reasons     Backend
	BatchSize   int
	MaxChars    int
	Dimension   int
	Threshold   float64
	ReasonLimit int
	CallTimeout time.Duration
}

// EmbeddingScorer ranks pages by cosine similarity between the query and
// page embeddings, then asks a chat model to explain the best pages.
type EmbeddingScorer struct {
	cfg    EmbeddingConfig
	logger *zap.Logger
}

func NewEmbeddingScorer(cfg EmbeddingConfig, logger *zap.Logger) *EmbeddingScorer {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultEmbedBatchSize
	}
	if cfg.MaxChars == 0 {
		cfg.MaxChars = EmbeddingMaxChars
	}
	if cfg.ReasonLimit <= 0 {
		cfg.ReasonLimit = DefaultReasonLimit
	}
	if cfg.Threshold <= 0 {
		cfg.Threshold = DefaultThreshold
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = DefaultCallTimeout
	}
	return &EmbeddingScorer{cfg: cfg, logger: logging.OrNop(logger)}
}

func (s *EmbeddingScorer) Score(ctx context.Context, query string, pages []string) ([]PageScore, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, invalidInput("query is empty")
	}
	if len(pages) == 0 {
		return nil, invalidInput("no pages to score")
	}
	start := time.Now()
	defer func() { batchDuration.Observe(time.Since(start).Seconds()) }()

	indexed := indexPages(pages, s.cfg.MaxChars)
	inputs := make([]string, 0, len(indexed)+1)
	inputs = append(inputs, Compress(query, s.cfg.MaxChars))
	for _, p := range indexed {
		text := p.Text
		if text == "" {
			text = emptyPagePlaceholder
		}
		inputs = append(inputs, text)
	}

	vecs, err := s.embed(ctx, inputs, len(pages))
	if err != nil {
		scoringFailures.WithLabelValues(kindLabel(err)).Inc()
		return nil, err
	}

	out := make([]PageScore, len(indexed))
	for i, p := range indexed {
		out[i] = PageScore{Page: p.Page, Score: vector.SimilarityScore(vector.Cosine(vecs[0], vecs[i+1]))}
	}
	s.explain(ctx, query, pages, indexed, out)
	return out, nil
}

// embed tries each embedding provider in order until one returns a vector per
// input.
func (s *EmbeddingScorer) embed(ctx context.Context, inputs []string, pageCount int) ([][]float32, error) {
	var attempts []Attempt
	for _, p := range s.cfg.Embedders {
		vecs, failed := s.embedWith(ctx, p, inputs)
		if failed == nil {
			backendCalls.WithLabelValues("embed", "ok").Inc()
			return vecs, nil
		}
		backendCalls.WithLabelValues("embed", kindLabel(failed.Kind)).Inc()
		attempts = append(attempts, *failed)
		s.logger.Warn("embedding provider failed", append(logging.ContextFields(ctx),
			zap.String("provider", p.Ref.Raw), zap.String("attempt", failed.String()))...)
	}
	kind := ErrBackendUnavailable
	if n := len(attempts); n > 0 {
		kind = attempts[n-1].Kind
	} else {
		attempts = append(attempts, Attempt{Stage: "embed", Kind: kind, Err: errors.New("no embedding provider configured")})
	}
	return nil, &ScoringError{Batch: 1, FirstPage: 1, LastPage: pageCount, Kind: kind, Attempts: attempts}
}

func (s *EmbeddingScorer) embedWith(ctx context.Context, p providers.NamedEmbedProvider, inputs []string) ([][]float32, *Attempt) {
	out := make([][]float32, 0, len(inputs))
	for _, batch := range Partition(inputs, s.cfg.BatchSize) {
		callCtx, cancel := context.WithTimeout(ctx, s.cfg.CallTimeout)
		vecs, info, err := p.Provider.Embed(callCtx, providers.EmbedRequest{
			Operation: opEmbed,
			Inputs:    batch,
			Dimension: s.cfg.Dimension,
		})
		cancel()
		failed := &Attempt{Stage: "embed", Provider: p.Ref.Raw, Model: info.Model}
		switch {
		case err != nil:
			failed.Kind, failed.Err = ErrBackendUnavailable, err
			return nil, failed
		case len(vecs) != len(batch):
			failed.Kind = ErrMalformedResponse
			failed.Err = fmt.Errorf("got %d embeddings for %d inputs", len(vecs), len(batch))
			return nil, failed
		}
		out = append(out, vecs...)
	}
	return out, nil
}

// explain fills Reason for the best pages at or above the threshold. A reason
// call failure only degrades the reasons to extractive snippets.
func (s *EmbeddingScorer) explain(ctx context.Context, query string, pages []string, indexed []indexedPage, scores []PageScore) {
	eligible := make([]int, 0, len(scores))
	for i, sc := range scores {
		if sc.Score >= s.cfg.Threshold {
			eligible = append(eligible, i)
		}
	}
	if len(eligible) == 0 {
		return
	}
	sort.SliceStable(eligible, func(a, b int) bool { return scores[eligible[a]].Score > scores[eligible[b]].Score })
	if len(eligible) > s.cfg.ReasonLimit {
		eligible = eligible[:s.cfg.ReasonLimit]
	}

	reasons, err := s.requestReasons(ctx, query, indexed, scores, eligible)
	if err != nil {
		s.logger.Warn("reason request failed, using snippets", append(logging.ContextFields(ctx), zap.Error(err))...)
	}
	for _, i := range eligible {
		if r := reasons[scores[i].Page]; r != "" {
			scores[i].Reason = r
			continue
		}
		scores[i].Reason = util.EvidenceSnippet(pages[i], query, 200)
	}
}

func (s *EmbeddingScorer) requestReasons(ctx context.Context, query string, indexed []indexedPage, scores []PageScore, eligible []int) (map[int]string, error) {
	if s.cfg.Reasons.Provider == nil {
		return nil, errors.New("no reason backend configured")
	}
	candidates := make([]reasonCandidate, 0, len(eligible))
	for _, i := range eligible {
		candidates = append(candidates, reasonCandidate{
			Page:  indexed[i].Page,
			Score: int(math.Round(scores[i].Score)),
			Text:  indexed[i].Text,
		})
	}
	prompt, err := BuildReasonPrompt(query, candidates)
	if err != nil {
		return nil, fmt.Errorf("build reason prompt: %w", err)
	}
	callCtx, cancel := context.WithTimeout(ctx, s.cfg.CallTimeout)
	defer cancel()
	resp, _, err := s.cfg.Reasons.Provider.Generate(callCtx, providers.GenerateRequest{
		Operation: opReasons,
		Stage:     "reasons",
		System:    reasonSystemPrompt,
		Prompt:    "User question:\n" + query + "\n\n" + prompt,
		Model:     s.cfg.Reasons.Model,
	})
	if err != nil {
		backendCalls.WithLabelValues("reasons", kindLabel(ErrBackendUnavailable)).Inc()
		return nil, err
	}
	out, err := parseReasons(resp.Text)
	if err != nil {
		backendCalls.WithLabelValues("reasons", kindLabel(ErrMalformedResponse)).Inc()
		return nil, err
	}
	backendCalls.WithLabelValues("reasons", "ok").Inc()
	return out, nil
}
