package relevance

import "strings"

// Per-caller text bounds. Rubric batches pack many pages into one prompt, so
// each page gets far less room than a single embedding input.
const (
	RubricMaxChars    = 600
	EmbeddingMaxChars = 4000
)

// Compress collapses every whitespace run to a single space, trims the ends
// and keeps at most maxChars characters. maxChars <= 0 disables truncation.
func Compress(text string, maxChars int) string {
	s := strings.Join(strings.Fields(text), " ")
	if maxChars <= 0 || len(s) <= maxChars {
		return s
	}
	r := []rune(s)
	if len(r) <= maxChars {
		return s
	}
	return string(r[:maxChars])
}
