package summary

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"docreader/internal/logging"
	"docreader/internal/providers"

	"go.uber.org/zap"
)

const (
	opSummary = "summary"

	DefaultModel       = "gpt-4o-mini"
	DefaultTemperature = 0.35

	// RelevantMinScore and RelevantMaxPages pick the pages summarised from a
	// ranking.
	RelevantMinScore = 50.0
	RelevantMaxPages = 8
)

var ErrNoPages = errors.New("no pages to summarise")

const instructions = `You will summarise book / document content.

RULES:
- At the top, output a section titled "TL;DR" with 3–8 short bullet points.
- After that, output a section titled "Summary".
- The full summary must be equivalent to **no more than ~20 pages** of text.
- Focus on the core ideas, main arguments, key events, and important insights.
- Write in clear, modern, easy-to-understand English.
- Avoid flowery language or filler.
- Do NOT just give a plot synopsis; capture the *meaning* and *concepts*.

The text to summarise follows.`

type Summarizer struct {
	backends   []providers.NamedLLMProvider
	model      providers.ModelConfig
	retryDelay time.Duration
	logger     *zap.Logger
}

// New builds a summarizer that tries backends in order until one answers.
func New(backends []providers.NamedLLMProvider, model providers.ModelConfig, logger *zap.Logger) *Summarizer {
	if strings.TrimSpace(model.Name) == "" {
		model.Name = DefaultModel
	}
	return &Summarizer{
		backends:   backends,
		model:      model,
		retryDelay: time.Second,
		logger:     logging.OrNop(logger),
	}
}

// BuildRequest returns the chat request for pages. Pages are joined with a
// blank line between them.
func BuildRequest(pages []string, model providers.ModelConfig) providers.GenerateRequest {
	return providers.GenerateRequest{
		Operation: opSummary,
		Prompt:    instructions,
		Context:   []string{strings.Join(pages, "\n\n")},
		Model:     model,
	}
}

// Summarize returns a TL;DR plus summary of pages. Rate limited and transient
// failures are retried once on the same backend before moving on to the next.
func (s *Summarizer) Summarize(ctx context.Context, pages []string) (string, error) {
	if !hasText(pages) {
		return "", ErrNoPages
	}
	if len(s.backends) == 0 {
		return "", fmt.Errorf("summarise: no llm providers configured")
	}
	req := BuildRequest(pages, s.model)
	var lastErr error
	for _, b := range s.backends {
		for attempt := 1; attempt <= 2; attempt++ {
			start := time.Now()
			resp, info, err := b.Provider.Generate(ctx, req)
			if err == nil && strings.TrimSpace(resp.Text) != "" {
				s.logger.Info("summary generated", append(logging.ContextFields(ctx),
					zap.String("provider", info.Name),
					zap.String("model", info.Model),
					zap.Int("pages", len(pages)),
					zap.Duration("elapsed", time.Since(start)))...)
				return strings.TrimSpace(resp.Text), nil
			}
			if err == nil {
				err = fmt.Errorf("%s returned an empty summary", b.Ref.Raw)
			}
			lastErr = fmt.Errorf("summarise via %s: %w", b.Ref.Raw, err)
			errType := providers.ClassifyError(err)
			s.logger.Warn("summary attempt failed", append(logging.ContextFields(ctx),
				zap.String("provider", b.Ref.Raw),
				zap.Int("attempt", attempt),
				zap.String("error_type", string(errType)),
				zap.Error(err))...)
			if ctx.Err() != nil {
				return "", lastErr
			}
			if errType != providers.ErrorRate && errType != providers.ErrorTransient {
				break
			}
			if attempt < 2 && !sleep(ctx, s.retryDelay*time.Duration(attempt)) {
				return "", lastErr
			}
		}
	}
	return "", lastErr
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func hasText(pages []string) bool {
	for _, p := range pages {
		if strings.TrimSpace(p) != "" {
			return true
		}
	}
	return false
}

// SelectRange returns pages start..end (1-based, inclusive). Both bounds are
// clamped to the document.
func SelectRange(pages []string, start, end int) []string {
	total := len(pages)
	if total == 0 {
		return nil
	}
	start = max(1, min(start, total))
	end = max(start, min(end, total))
	return pages[start-1 : end]
}

// Ranked is a page number (1-based) with its relevance score.
type Ranked struct {
	Page  int
	Score float64
}

// SelectRelevant returns the text of up to limit pages scoring at least
// minScore, best first. Ranks pointing outside the document are ignored.
func SelectRelevant(pages []string, ranked []Ranked, minScore float64, limit int) []string {
	keep := make([]Ranked, 0, len(ranked))
	for _, r := range ranked {
		if r.Score >= minScore {
			keep = append(keep, r)
		}
	}
	sort.SliceStable(keep, func(i, j int) bool { return keep[i].Score > keep[j].Score })
	if limit > 0 && len(keep) > limit {
		keep = keep[:limit]
	}
	out := make([]string, 0, len(keep))
	for _, r := range keep {
		if r.Page < 1 || r.Page > len(pages) || pages[r.Page-1] == "" {
			continue
		}
		out = append(out, pages[r.Page-1])
	}
	return out
}
