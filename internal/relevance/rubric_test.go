package relevance

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"docreader/internal/providers"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	primaryModel  = providers.ModelConfig{Name: "gpt-5.1", ReasoningEffort: "none", MaxTokens: 2000, JSON: true}
	fallbackModel = providers.ModelConfig{Name: "gpt-4o-mini", Temperature: providers.Temperature(0), MaxTokens: 1000, JSON: true}
)

func newTestRubric(primary, fallback *fakeLLM, batchSize int) *RubricScorer {
	return NewRubricScorer(RubricConfig{
		Primary:     Backend{Provider: primary, Model: primaryModel},
		Fallback:    Backend{Provider: fallback, Model: fallbackModel},
		BatchSize:   batchSize,
		CallTimeout: time.Second,
	}, nil)
}

func numberedPages(n int) []string {
	pages := make([]string, n)
	for i := range pages {
		pages[i] = fmt.Sprintf("page %d text", i+1)
	}
	return pages
}

func TestRubricOneScorePerPageAcrossBatches(t *testing.T) {
	pages := numberedPages(85)
	for _, size := range []int{40, 85} {
		primary := &fakeLLM{name: "primary", reply: scoreByText(t, func(page int, _ string) float64 { return float64(page % 100) })}
		fallback := &fakeLLM{name: "fallback", reply: replyWith("", errors.New("unused"))}

		got, err := newTestRubric(primary, fallback, size).Score(context.Background(), "anything", pages)
		require.NoError(t, err)
		require.Len(t, got, 85, "batch size %d", size)
		for i, s := range got {
			assert.Equal(t, i+1, s.Page)
		}
		wantCalls := (85 + size - 1) / size
		assert.Len(t, primary.Calls(), wantCalls)
		assert.Empty(t, fallback.Calls())
	}
}

func TestRubricScoresStayInRange(t *testing.T) {
	primary := &fakeLLM{name: "primary", reply: replyWith(
		`{"rankings":[{"page":1,"score":150},{"page":2,"score":-3},{"page":3,"score":"n/a"},{"page":4,"score":"42"}]}`, nil)}
	got, err := newTestRubric(primary, &fakeLLM{reply: replyWith("", errors.New("unused"))}, 40).
		Score(context.Background(), "q", numberedPages(4))
	require.NoError(t, err)
	want := []float64{100, 0, 0, 42}
	for i, s := range got {
		assert.GreaterOrEqual(t, s.Score, 0.0)
		assert.LessOrEqual(t, s.Score, 100.0)
		assert.Equal(t, want[i], s.Score)
	}
}

func TestRubricRequestShape(t *testing.T) {
	primary := &fakeLLM{name: "primary", reply: scoreByText(t, func(int, string) float64 { return 50 })}
	pages := []string{"  loan\n\nbasics  ", strings.Repeat("x", 900)}
	_, err := newTestRubric(primary, &fakeLLM{}, 40).Score(context.Background(), "  home loans ", pages)
	require.NoError(t, err)

	calls := primary.Calls()
	require.Len(t, calls, 1)
	req := calls[0]
	assert.Equal(t, opRankBatch, req.Operation)
	assert.Equal(t, stagePrimary, req.Stage)
	assert.Equal(t, rankingSystemPrompt, req.System)
	assert.Equal(t, primaryModel, req.Model)
	assert.True(t, strings.HasPrefix(req.Prompt, "Score each page using the rubric. Return ONLY the JSON."))
	assert.Contains(t, req.Prompt, "90–100 = strong direct match")

	payload := decodePrompt(t, req.Prompt)
	assert.Equal(t, "home loans", payload.Topic)
	require.Len(t, payload.Pages, 2)
	assert.Equal(t, indexedPage{Page: 1, Text: "loan basics"}, payload.Pages[0])
	assert.Len(t, []rune(payload.Pages[1].Text), RubricMaxChars)
}

func TestRubricFallbackOnPrimaryError(t *testing.T) {
	primary := &fakeLLM{name: "primary", reply: replyWith("", errors.New("connection reset"))}
	fallback := &fakeLLM{name: "fallback", reply: scoreByText(t, func(int, string) float64 { return 77 })}

	got, err := newTestRubric(primary, fallback, 40).Score(context.Background(), "q", numberedPages(3))
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, 77.0, got[2].Score)

	p, f := primary.Calls(), fallback.Calls()
	require.Len(t, p, 1)
	require.Len(t, f, 1)
	assert.Equal(t, p[0].Prompt, f[0].Prompt, "fallback gets the identical payload")
	assert.Equal(t, p[0].System, f[0].System)
	assert.Equal(t, stageFallback, f[0].Stage)
	assert.Equal(t, fallbackModel, f[0].Model)
}

func TestRubricFallbackOnEmptyOrMalformedContent(t *testing.T) {
	for name, reply := range map[string]string{
		"empty":     "   ",
		"malformed": "sorry, I cannot help with that",
		"no array":  `{"rankings":"none"}`,
	} {
		t.Run(name, func(t *testing.T) {
			primary := &fakeLLM{name: "primary", reply: replyWith(reply, nil)}
			fallback := &fakeLLM{name: "fallback", reply: scoreByText(t, func(int, string) float64 { return 30 })}
			got, err := newTestRubric(primary, fallback, 40).Score(context.Background(), "q", numberedPages(2))
			require.NoError(t, err)
			assert.Len(t, got, 2)
			assert.Len(t, fallback.Calls(), 1)
		})
	}
}

func TestRubricBothBackendsFail(t *testing.T) {
	primary := &fakeLLM{name: "primary", reply: replyWith("", errors.New("primary down"))}
	fallback := &fakeLLM{name: "fallback", reply: replyWith("", errors.New("fallback down"))}

	got, err := newTestRubric(primary, fallback, 40).Score(context.Background(), "q", numberedPages(5))
	require.Error(t, err)
	assert.Empty(t, got)
	assert.ErrorIs(t, err, ErrBackendUnavailable)
	assert.NotErrorIs(t, err, ErrMalformedResponse)

	var serr *ScoringError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, 1, serr.Batch)
	assert.Equal(t, 1, serr.FirstPage)
	assert.Equal(t, 5, serr.LastPage)
	require.Len(t, serr.Attempts, 2)
	assert.Equal(t, stagePrimary, serr.Attempts[0].Stage)
	assert.Equal(t, stageFallback, serr.Attempts[1].Stage)
	assert.Contains(t, err.Error(), "primary down")
	assert.Contains(t, err.Error(), "fallback down")
	assert.Equal(t, primary.Calls()[0].Prompt, fallback.Calls()[0].Prompt)
}

func TestRubricBothMalformed(t *testing.T) {
	primary := &fakeLLM{name: "primary", reply: replyWith("not json", nil)}
	fallback := &fakeLLM{name: "fallback", reply: replyWith(`{"rankings":[]}`, nil)}
	_, err := newTestRubric(primary, fallback, 40).Score(context.Background(), "q", numberedPages(2))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedResponse)
	assert.NotErrorIs(t, err, ErrBackendUnavailable)
}

func TestRubricKindComesFromLastAttempt(t *testing.T) {
	primary := &fakeLLM{name: "primary", reply: replyWith("not json", nil)}
	fallback := &fakeLLM{name: "fallback", reply: replyWith("", errors.New("down"))}
	_, err := newTestRubric(primary, fallback, 40).Score(context.Background(), "q", numberedPages(2))
	assert.ErrorIs(t, err, ErrBackendUnavailable)
	assert.NotErrorIs(t, err, ErrMalformedResponse)
}

func TestRubricTimeoutTriggersFallback(t *testing.T) {
	primary := &fakeLLM{name: "primary", reply: func(ctx context.Context, _ providers.GenerateRequest) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}}
	fallback := &fakeLLM{name: "fallback", reply: scoreByText(t, func(int, string) float64 { return 90 })}
	s := NewRubricScorer(RubricConfig{
		Primary:     Backend{Provider: primary, Model: primaryModel},
		Fallback:    Backend{Provider: fallback, Model: fallbackModel},
		CallTimeout: 20 * time.Millisecond,
	}, nil)

	got, err := s.Score(context.Background(), "q", numberedPages(1))
	require.NoError(t, err)
	assert.Equal(t, 90.0, got[0].Score)
}

func TestRubricTimeoutOnBothSurfacesDeadline(t *testing.T) {
	block := func(ctx context.Context, _ providers.GenerateRequest) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}
	s := NewRubricScorer(RubricConfig{
		Primary:     Backend{Provider: &fakeLLM{reply: block}},
		Fallback:    Backend{Provider: &fakeLLM{reply: block}},
		CallTimeout: 10 * time.Millisecond,
	}, nil)
	_, err := s.Score(context.Background(), "q", numberedPages(1))
	assert.ErrorIs(t, err, ErrBackendUnavailable)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRubricFailingBatchAbortsRequest(t *testing.T) {
	failBatch := func(t *testing.T) func(context.Context, providers.GenerateRequest) (string, error) {
		ok := scoreByText(t, func(int, string) float64 { return 50 })
		return func(ctx context.Context, req providers.GenerateRequest) (string, error) {
			if decodePrompt(t, req.Prompt).Pages[0].Page == 3 {
				return "", errors.New("batch two is cursed")
			}
			return ok(ctx, req)
		}
	}
	primary := &fakeLLM{name: "primary", reply: failBatch(t)}
	fallback := &fakeLLM{name: "fallback", reply: failBatch(t)}

	got, err := newTestRubric(primary, fallback, 2).Score(context.Background(), "q", numberedPages(6))
	require.Error(t, err)
	assert.Nil(t, got)
	var serr *ScoringError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, 2, serr.Batch)
	assert.Equal(t, 3, serr.FirstPage)
	assert.Equal(t, 4, serr.LastPage)
	assert.Len(t, primary.Calls(), 2, "sequential scoring stops after the failing batch")
}

func TestRubricConcurrentBatchesKeepOrder(t *testing.T) {
	primary := &fakeLLM{name: "primary", reply: func(ctx context.Context, req providers.GenerateRequest) (string, error) {
		p := decodePrompt(t, req.Prompt)
		// Later batches answer first.
		time.Sleep(time.Duration(50-p.Pages[0].Page) * time.Millisecond / 10)
		return scoreByText(t, func(page int, _ string) float64 { return float64(page) })(ctx, req)
	}}
	s := NewRubricScorer(RubricConfig{
		Primary:     Backend{Provider: primary},
		Fallback:    Backend{Provider: &fakeLLM{}},
		BatchSize:   3,
		Concurrency: 4,
	}, nil)
	got, err := s.Score(context.Background(), "q", numberedPages(30))
	require.NoError(t, err)
	require.Len(t, got, 30)
	for i, sc := range got {
		assert.Equal(t, i+1, sc.Page)
		assert.Equal(t, float64(i+1), sc.Score)
	}
	assert.Len(t, primary.Calls(), 10)
}

func TestRubricRejectsInvalidInputWithoutCalls(t *testing.T) {
	primary := &fakeLLM{reply: replyWith("", errors.New("unused"))}
	s := newTestRubric(primary, primary, 40)

	_, err := s.Score(context.Background(), "   ", numberedPages(2))
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = s.Score(context.Background(), "q", nil)
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Empty(t, primary.Calls())
}

func TestRubricMissingFallbackBackend(t *testing.T) {
	primary := &fakeLLM{reply: replyWith("", errors.New("down"))}
	s := NewRubricScorer(RubricConfig{Primary: Backend{Provider: primary}}, nil)
	_, err := s.Score(context.Background(), "q", numberedPages(1))
	assert.ErrorIs(t, err, ErrBackendUnavailable)
}

func TestAttemptStateTransitions(t *testing.T) {
	assert.Equal(t, statePrimaryAttempted, stateNotStarted.next(false))
	assert.Equal(t, stateSucceeded, statePrimaryAttempted.next(true))
	assert.Equal(t, stateFallbackAttempted, statePrimaryAttempted.next(false))
	assert.Equal(t, stateSucceeded, stateFallbackAttempted.next(true))
	assert.Equal(t, stateFailed, stateFallbackAttempted.next(false))
	assert.Equal(t, stateFailed, stateFailed.next(true))
	assert.Equal(t, "fallback_attempted", stateFallbackAttempted.String())
}
