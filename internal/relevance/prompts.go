package relevance

import (
	"bytes"
	"encoding/json"
)

const rubricText = `Use this relevance scoring system:

90–100 = strong direct match
70–89 = indirect meaningful match
40–69 = weak / tangential match
0–39  = not relevant

Base everything strictly on the provided text.`

const rankingSystemPrompt = `You return ONLY valid JSON: {"rankings":[{"page": number,"score": number,"reason":"short reason"}]}`

const reasonSystemPrompt = `You write very short, clear reasons why a given page from a document is relevant to a user's question.
One sentence per page. No fluff.
Return JSON like: { "reasons": [ { "page": number, "reason": string }, ... ] }.`

const (
	opRankBatch = "relevance_batch"
	opReasons   = "relevance_reasons"
	opEmbed     = "relevance_embed"
)

// BuildRankingPrompt renders the user message for one batch. The rubric is
// embedded so every batch is scored on the same scale.
func BuildRankingPrompt(query string, batch []indexedPage) (string, error) {
	payload := struct {
		Topic  string        `json:"topic"`
		Rubric string        `json:"rubric"`
		Pages  []indexedPage `json:"pages"`
	}{Topic: query, Rubric: rubricText, Pages: batch}
	body, err := marshalPayload(payload)
	if err != nil {
		return "", err
	}
	return "Score each page using the rubric. Return ONLY the JSON.\n\n" + body, nil
}

type reasonCandidate struct {
	Page  int    `json:"page"`
	Score int    `json:"score"`
	Text  string `json:"text"`
}

func BuildReasonPrompt(query string, pages []reasonCandidate) (string, error) {
	payload := struct {
		Question string            `json:"question"`
		Pages    []reasonCandidate `json:"pages"`
	}{Question: query, Pages: pages}
	body, err := marshalPayload(payload)
	if err != nil {
		return "", err
	}
	return "Here are some candidate pages with their scores and text.\n" +
		"For each, write ONE short sentence explaining why this page would help answer the user's question.\n\n" + body, nil
}

func marshalPayload(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return string(bytes.TrimSpace(buf.Bytes())), nil
}
