package providers

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"docreader/internal/util"
)

// MockProvider is an offline stand-in for both backends. Scores and
// embeddings are lexical, so results are deterministic and loosely sensible.
type MockProvider struct {
	dim int
}

func NewMockProvider(dim int) *MockProvider {
	if dim <= 0 {
		dim = 1536
	}
	return &MockProvider{dim: dim}
}

func (m *MockProvider) Embed(ctx context.Context, req EmbedRequest) ([][]float32, ProviderInfo, error) {
	_ = ctx
	dim := req.Dimension
	if dim <= 0 {
		dim = m.dim
	}
	vectors := make([][]float32, 0, len(req.Inputs))
	for _, input := range req.Inputs {
		vectors = append(vectors, lexicalVector(input, dim))
	}
	return vectors, ProviderInfo{Name: "mock", Model: fmt.Sprintf("mock-embed-%d", dim), Key: "mock"}, nil
}

func (m *MockProvider) Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, ProviderInfo, error) {
	_ = ctx
	info := ProviderInfo{Name: "mock", Model: "mock-llm-v1", Key: "mock"}
	op := strings.ToLower(req.Operation)
	var text string
	switch {
	case strings.Contains(op, "relevance_batch"):
		text = mockRankings(req.Prompt)
	case strings.Contains(op, "relevance_reasons"):
		text = mockReasons(req.Prompt)
	case strings.Contains(op, "summary"):
		text = mockSummary(req.Context)
	default:
		text = "Mock response."
	}
	return GenerateResponse{Text: text}, info, nil
}

type mockPayload struct {
	Topic    string `json:"topic"`
	Question string `json:"question"`
	Pages    []struct {
		Page int    `json:"page"`
		Text string `json:"text"`
	} `json:"pages"`
}

func decodeMockPayload(prompt string) mockPayload {
	var p mockPayload
	i := strings.Index(prompt, "\n\n{")
	if i >= 0 {
		i += 2
	} else {
		i = strings.Index(prompt, "{")
	}
	if i >= 0 {
		_ = json.Unmarshal([]byte(prompt[i:]), &p)
	}
	if p.Topic == "" {
		p.Topic = p.Question
	}
	return p
}

func mockRankings(prompt string) string {
	p := decodeMockPayload(prompt)
	type ranking struct {
		Page   int     `json:"page"`
		Score  float64 `json:"score"`
		Reason string  `json:"reason"`
	}
	out := struct {
		Rankings []ranking `json:"rankings"`
	}{Rankings: make([]ranking, 0, len(p.Pages))}
	for _, pg := range p.Pages {
		score, hits := lexicalScore(p.Topic, pg.Text)
		reason := "No overlap with the question."
		if len(hits) > 0 {
			reason = "Mentions " + strings.Join(hits, ", ") + "."
		}
		out.Rankings = append(out.Rankings, ranking{Page: pg.Page, Score: score, Reason: reason})
	}
	b, _ := json.Marshal(out)
	return string(b)
}

func mockReasons(prompt string) string {
	p := decodeMockPayload(prompt)
	type reason struct {
		Page   int    `json:"page"`
		Reason string `json:"reason"`
	}
	out := struct {
		Reasons []reason `json:"reasons"`
	}{Reasons: make([]reason, 0, len(p.Pages))}
	for _, pg := range p.Pages {
		_, hits := lexicalScore(p.Topic, pg.Text)
		r := "Related to the question."
		if len(hits) > 0 {
			r = "Discusses " + strings.Join(hits, ", ") + "."
		}
		out.Reasons = append(out.Reasons, reason{Page: pg.Page, Reason: r})
	}
	b, _ := json.Marshal(out)
	return string(b)
}

func mockSummary(parts []string) string {
	text := strings.Join(parts, "\n\n")
	b := strings.Builder{}
	b.WriteString("TL;DR\n")
	lead := util.DisplaySnippet(text, 160)
	if lead == "" {
		lead = "The document is empty."
	}
	b.WriteString("- " + lead + "\n")
	b.WriteString("- Deterministic mock summary; configure a real provider for semantic quality.\n")
	b.WriteString("- Source length: " + fmt.Sprintf("%d", len([]rune(text))) + " characters.\n\n")
	b.WriteString("Summary\n")
	b.WriteString(util.DisplaySnippet(text, 1200))
	return b.String()
}

// lexicalScore returns a 0..100 score from the share of query terms found in
// text, plus the terms that matched.
func lexicalScore(query, text string) (float64, []string) {
	terms := util.QueryTerms(query)
	if len(terms) == 0 {
		return 0, nil
	}
	low := strings.ToLower(text)
	hits := make([]string, 0, len(terms))
	for _, t := range terms {
		if strings.Contains(low, stem(t)) {
			hits = append(hits, t)
		}
	}
	if len(hits) == 0 {
		return 5, nil
	}
	frac := float64(len(hits)) / float64(len(terms))
	return math.Round(40 + 55*frac), hits
}

func stem(term string) string {
	if len(term) > 4 && strings.HasSuffix(term, "s") {
		return strings.TrimSuffix(term, "s")
	}
	return term
}

func lexicalVector(input string, dim int) []float32 {
	vec := make([]float32, dim)
	for _, term := range util.QueryTerms(input) {
		h := sha256.Sum256([]byte(stem(term)))
		idx := binary.BigEndian.Uint32(h[:4]) % uint32(dim)
		vec[idx]++
	}
	return normalize(vec)
}

func normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	inv := float32(1 / math.Sqrt(sum))
	for i := range v {
		v[i] *= inv
	}
	return v
}
