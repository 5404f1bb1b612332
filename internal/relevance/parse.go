package relevance

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

type rawRanking struct {
	Page   json.RawMessage `json:"page"`
	Score  json.RawMessage `json:"score"`
	Reason json.RawMessage `json:"reason"`
}

// ParseRankings decodes a {"rankings":[...]} reply for batch and reconciles
// it so the result holds exactly one PageScore per batch page, in batch order.
func ParseRankings(content string, batch []indexedPage) ([]PageScore, error) {
	obj, err := decodeObject(content, "rankings")
	if err != nil {
		return nil, err
	}
	rankings, ok := obj["rankings"]
	if !ok {
		return nil, errors.New(`missing "rankings"`)
	}
	var entries []json.RawMessage
	if err := json.Unmarshal(rankings, &entries); err != nil || entries == nil {
		return nil, errors.New(`"rankings" is not an array`)
	}
	if len(entries) == 0 && len(batch) > 0 {
		return nil, errors.New(`"rankings" is empty`)
	}

	slot := make(map[int]int, len(batch))
	for i, p := range batch {
		slot[p.Page] = i
	}
	filled := make([]bool, len(batch))
	out := make([]PageScore, len(batch))
	place := func(i int, r rawRanking) {
		score, _ := coerceFloat(r.Score)
		out[i] = PageScore{Page: batch[i].Page, Score: clampScore(score), Reason: coerceReason(r.Reason)}
		filled[i] = true
	}

	// Entries naming a batch page are placed first so an unlabelled entry
	// never takes a page that a later entry names.
	type unlabelled struct {
		pos int
		r   rawRanking
	}
	var rest []unlabelled
	for pos, raw := range entries {
		if t := bytes.TrimSpace(raw); len(t) == 0 || t[0] != '{' {
			continue
		}
		var r rawRanking
		_ = json.Unmarshal(raw, &r)
		page, ok := coerceInt(r.Page)
		i, known := slot[page]
		if !ok || !known {
			rest = append(rest, unlabelled{pos: pos, r: r})
			continue
		}
		if !filled[i] {
			place(i, r)
		}
	}
	for _, u := range rest {
		i := u.pos
		if i >= len(batch) || filled[i] {
			i = firstFree(filled)
		}
		if i < 0 {
			break
		}
		place(i, u.r)
	}

	for i, p := range batch {
		if !filled[i] {
			out[i] = PageScore{Page: p.Page}
		}
	}
	return out, nil
}

func firstFree(filled []bool) int {
	for i, f := range filled {
		if !f {
			return i
		}
	}
	return -1
}

// parseReasons decodes a {"reasons":[{page,reason}]} reply into a page map.
// Entries with an unusable page or an empty reason are dropped.
func parseReasons(content string) (map[int]string, error) {
	obj, err := decodeObject(content, "reasons")
	if err != nil {
		return nil, err
	}
	var entries []struct {
		Page   json.RawMessage `json:"page"`
		Reason json.RawMessage `json:"reason"`
	}
	if err := json.Unmarshal(obj["reasons"], &entries); err != nil {
		return nil, fmt.Errorf(`"reasons" is not an array: %w`, err)
	}
	out := make(map[int]string, len(entries))
	for _, e := range entries {
		page, ok := coerceInt(e.Page)
		reason := coerceReason(e.Reason)
		if !ok || reason == "" {
			continue
		}
		if _, dup := out[page]; !dup {
			out[page] = reason
		}
	}
	return out, nil
}

// decodeObject parses content as a JSON object. Replies wrapped in prose are
// scanned from each '{' and the first object holding key wins; failing that,
// the first object found is returned.
func decodeObject(content, key string) (map[string]json.RawMessage, error) {
	raw := stripCodeFence(strings.TrimSpace(content))
	if raw == "" {
		return nil, errors.New("empty content")
	}
	var obj map[string]json.RawMessage
	err := json.Unmarshal([]byte(raw), &obj)
	if err == nil {
		if obj == nil {
			return nil, errors.New("content is not a json object")
		}
		return obj, nil
	}

	var first map[string]json.RawMessage
	for start := 0; ; start++ {
		next := strings.IndexByte(raw[start:], '{')
		if next < 0 {
			break
		}
		start += next
		var cand map[string]json.RawMessage
		if json.NewDecoder(strings.NewReader(raw[start:])).Decode(&cand) != nil || cand == nil {
			continue
		}
		if _, ok := cand[key]; ok {
			return cand, nil
		}
		if first == nil {
			first = cand
		}
	}
	if first != nil {
		return first, nil
	}
	return nil, fmt.Errorf("decode json: %w", err)
}

func stripCodeFence(s string) string {
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}

// coerceFloat accepts a JSON number or a string holding one.
func coerceFloat(raw json.RawMessage) (float64, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return 0, false
	}
	text := string(raw)
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &text); err != nil {
			return 0, false
		}
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func coerceInt(raw json.RawMessage) (int, bool) {
	f, ok := coerceFloat(raw)
	if !ok || f != math.Trunc(f) || f < 1 || f > math.MaxInt32 {
		return 0, false
	}
	return int(f), true
}

func coerceReason(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return strings.TrimSpace(s)
}

func clampScore(s float64) float64 {
	switch {
	case math.IsNaN(s), s < 0:
		return 0
	case s > 100:
		return 100
	}
	return s
}
