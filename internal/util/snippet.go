package util

import (
	"sort"
	"strings"
	"unicode"
)

const defaultSnippetRunes = 420

var stopWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "to": {}, "of": {}, "in": {}, "on": {},
	"for": {}, "is": {}, "are": {}, "was": {}, "were": {}, "what": {}, "how": {}, "why": {},
	"which": {}, "that": {}, "this": {}, "these": {}, "those": {}, "with": {}, "from": {}, "about": {},
	"into": {}, "does": {}, "can": {}, "any": {}, "all": {}, "you": {}, "your": {}, "want": {},
}

// QueryTerms returns the distinct lower-cased content words of s, in order
// of first appearance. Words shorter than three letters and stop words are
// skipped.
func QueryTerms(s string) []string {
	fields := strings.Fields(strings.ToLower(cleanForDisplay(s, 2000)))
	seen := make(map[string]struct{}, len(fields))
	terms := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, ",.;:!?()[]{}\"'`")
		if len([]rune(f)) < 3 {
			continue
		}
		if _, ok := stopWords[f]; ok {
			continue
		}
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		terms = append(terms, f)
	}
	return terms
}

// DisplaySnippet cleans s for display and cuts it to maxRunes, adding "..."
// when text was dropped.
func DisplaySnippet(s string, maxRunes int) string {
	return cleanForDisplay(s, maxRunes)
}

// EvidenceSnippet picks the sentences of page that mention the most query
// terms. The best two are returned in page order when the runner-up also
// matches.
func EvidenceSnippet(page, query string, maxRunes int) string {
	page = cleanForDisplay(page, 4000)
	if page == "" {
		return ""
	}
	terms := QueryTerms(query)
	sentences := splitSentences(page)
	if len(terms) == 0 || len(sentences) == 0 {
		return cleanForDisplay(page, maxRunes)
	}

	type scored struct {
		idx  int
		text string
		hits int
	}
	ranked := make([]scored, 0, len(sentences))
	for i, s := range sentences {
		low := strings.ToLower(s)
		hits := 0
		for _, t := range terms {
			if strings.Contains(low, t) {
				hits++
			}
		}
		ranked = append(ranked, scored{idx: i, text: s, hits: hits})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].hits == ranked[j].hits {
			return len(ranked[i].text) < len(ranked[j].text)
		}
		return ranked[i].hits > ranked[j].hits
	})

	best := ranked[:1]
	if len(ranked) > 1 && ranked[1].hits > 0 {
		best = ranked[:2]
		if best[1].idx < best[0].idx {
			best = []scored{best[1], best[0]}
		}
	}
	parts := make([]string, 0, len(best))
	for _, b := range best {
		parts = append(parts, b.text)
	}
	return cleanForDisplay(strings.Join(parts, " "), maxRunes)
}

func splitSentences(s string) []string {
	out := make([]string, 0, 8)
	start := 0
	runes := []rune(s)
	for i, r := range runes {
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		if x := strings.TrimSpace(string(runes[start : i+1])); x != "" {
			out = append(out, x)
		}
		start = i + 1
	}
	if rest := strings.TrimSpace(string(runes[start:])); rest != "" {
		out = append(out, rest)
	}
	return out
}

func cleanForDisplay(s string, maxRunes int) string {
	if maxRunes <= 0 {
		maxRunes = defaultSnippetRunes
	}
	s = restoreWordBoundaries(SanitizeText(s))
	out := make([]rune, 0, len(s))
	for _, r := range strings.Join(strings.Fields(s), " ") {
		if unicode.IsLetter(r) || unicode.IsNumber(r) || unicode.IsPunct(r) || r == ' ' {
			out = append(out, r)
		}
	}
	trimmed := strings.TrimSpace(string(out))
	if runes := []rune(trimmed); len(runes) > maxRunes {
		return strings.TrimSpace(string(runes[:maxRunes])) + "..."
	}
	return trimmed
}

// restoreWordBoundaries inserts the spaces PDF text extraction tends to lose
// between a lower-case letter and a capital, and between letters and digits.
func restoreWordBoundaries(s string) string {
	in := []rune(s)
	if len(in) == 0 {
		return s
	}
	out := make([]rune, 0, len(in)+len(in)/8)
	out = append(out, in[0])
	for i := 1; i < len(in); i++ {
		a, b := in[i-1], in[i]
		glued := (unicode.IsLower(a) && unicode.IsUpper(b)) ||
			(unicode.IsLetter(a) && unicode.IsDigit(b)) ||
			(unicode.IsDigit(a) && unicode.IsLetter(b))
		if glued && !unicode.IsSpace(out[len(out)-1]) {
			out = append(out, ' ')
		}
		out = append(out, b)
	}
	return string(out)
}
