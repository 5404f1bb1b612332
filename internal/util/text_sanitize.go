package util

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// SanitizeText removes bytes and control characters that Postgres text columns reject
// (especially NUL / 0x00 from some PDF extractors).
func SanitizeText(s string) string {
	if s == "" {
		return s
	}
	s = strings.ReplaceAll(s, "\x00", "")

	r := make([]rune, 0, len(s))
	for _, ch := range s {
		if ch == '\n' || ch == '\r' || ch == '\t' {
			r = append(r, ch)
			continue
		}
		if ch < 0x20 || ch == 0x7f {
			continue
		}
		r = append(r, ch)
	}
	return strings.TrimSpace(string(r))
}

// NormalizeText folds compatibility forms (ligatures, full-width digits,
// non-breaking spaces) with NFKC and then sanitizes the result.
func NormalizeText(s string) string {
	if s == "" {
		return s
	}
	return SanitizeText(norm.NFKC.String(s))
}
