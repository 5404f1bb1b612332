package relevance

import "context"

// PageScore is the relevance of one 1-based page. Score is in [0, 100].
type PageScore struct {
	Page   int     `json:"page"`
	Score  float64 `json:"score"`
	Reason string  `json:"reason"`
}

// RelevantRange is a maximal run of consecutive pages that passed the
// threshold, represented by its best-scoring page.
type RelevantRange struct {
	StartPage int     `json:"start_page"`
	EndPage   int     `json:"end_page"`
	TopScore  float64 `json:"top_score"`
	TopReason string  `json:"top_reason"`
}

type Result struct {
	Scores []PageScore     `json:"scores"`
	Ranges []RelevantRange `json:"ranges"`
}

// Scorer assigns one PageScore to every page, in page order. Either the
// whole document is scored or an error is returned.
type Scorer interface {
	Score(ctx context.Context, query string, pages []string) ([]PageScore, error)
}
