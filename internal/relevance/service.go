package relevance

import (
	"context"
	"strings"
	"time"

	"docreader/internal/logging"

	"go.uber.org/zap"
)

// Service runs Compressor, Scorer and Aggregator for one request. The same
// threshold filters ranges here and selects pages for reasons in the
// embedding variant.
type Service struct {
	scorer    Scorer
	threshold float64
	logger    *zap.Logger
}

func NewService(scorer Scorer, threshold float64, logger *zap.Logger) *Service {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Service{scorer: scorer, threshold: threshold, logger: logging.OrNop(logger)}
}

func (s *Service) Threshold() float64 {
	return s.threshold
}

func (s *Service) Rank(ctx context.Context, query string, pages []string) (Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return Result{}, invalidInput("query is empty")
	}
	if len(pages) == 0 {
		return Result{}, invalidInput("no pages to score")
	}
	start := time.Now()
	scores, err := s.scorer.Score(ctx, query, pages)
	if err != nil {
		return Result{}, err
	}
	ranges := Aggregate(scores, s.threshold)
	s.logger.Info("pages ranked", append(logging.ContextFields(ctx),
		zap.Int("pages", len(pages)),
		zap.Int("ranges", len(ranges)),
		zap.Duration("elapsed", time.Since(start)))...)
	return Result{Scores: scores, Ranges: ranges}, nil
}

// Relevant returns the scores at or above the threshold, best first. Ties
// keep page order.
func (s *Service) Relevant(scores []PageScore) []PageScore {
	out := make([]PageScore, 0, len(scores))
	for _, sc := range scores {
		if sc.Score >= s.threshold {
			out = append(out, sc)
		}
	}
	sortByScore(out)
	return out
}
