package relevance

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestServiceHomeLoansScenario(t *testing.T) {
	scores := map[string]float64{
		"loan basics":    82,
		"unrelated poem": 4,
		"mortgage rates": 71,
		"mortgage fees":  88,
	}
	primary := &fakeLLM{name: "primary", reply: scoreByText(t, func(_ int, text string) float64 { return scores[text] })}
	core, logs := observer.New(zap.InfoLevel)
	svc := NewService(newTestRubric(primary, &fakeLLM{}, 40), DefaultThreshold, zap.New(core))

	res, err := svc.Rank(context.Background(), "home loans", []string{"loan basics", "unrelated poem", "mortgage rates", "mortgage fees"})
	require.NoError(t, err)
	require.Len(t, res.Scores, 4)
	assert.GreaterOrEqual(t, res.Scores[0].Score, 25.0)
	assert.Less(t, res.Scores[1].Score, 25.0)
	assert.GreaterOrEqual(t, res.Scores[2].Score, 25.0)
	assert.GreaterOrEqual(t, res.Scores[3].Score, 25.0)

	require.Len(t, res.Ranges, 2)
	assert.Equal(t, 3, res.Ranges[0].StartPage)
	assert.Equal(t, 4, res.Ranges[0].EndPage)
	assert.Equal(t, 1, res.Ranges[1].StartPage)
	assert.Equal(t, 1, res.Ranges[1].EndPage)
	assert.Greater(t, res.Ranges[0].TopScore, res.Ranges[1].TopScore)

	assert.Equal(t, 1, logs.FilterMessage("pages ranked").Len())

	relevant := svc.Relevant(res.Scores)
	require.Len(t, relevant, 3)
	assert.Equal(t, 4, relevant[0].Page)
	assert.Equal(t, 1, relevant[1].Page)
	assert.Equal(t, 3, relevant[2].Page)
}

func TestServiceValidatesBeforeScoring(t *testing.T) {
	primary := &fakeLLM{reply: replyWith("", errors.New("unused"))}
	svc := NewService(newTestRubric(primary, primary, 40), 0, nil)
	assert.Equal(t, DefaultThreshold, svc.Threshold())

	_, err := svc.Rank(context.Background(), "", []string{"a"})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = svc.Rank(context.Background(), "q", []string{})
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Empty(t, primary.Calls())
}

func TestServiceBackendUnavailableReturnsNothing(t *testing.T) {
	primary := &fakeLLM{name: "primary", reply: replyWith("", errors.New("boom"))}
	fallback := &fakeLLM{name: "fallback", reply: replyWith("", errors.New("boom again"))}
	svc := NewService(newTestRubric(primary, fallback, 40), DefaultThreshold, nil)

	res, err := svc.Rank(context.Background(), "home loans", []string{"loan basics", "mortgage fees"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBackendUnavailable)
	assert.Empty(t, res.Scores)
	assert.Empty(t, res.Ranges)
	require.Len(t, fallback.Calls(), 1)
	assert.Equal(t, primary.Calls()[0].Prompt, fallback.Calls()[0].Prompt)
}
