package util

import (
	"strings"
	"unicode"
)

// PaginateText splits flowing text into pseudo-pages of at most pageSize runes.
// A page break is moved back to the last whitespace in the final tenth of the
// window when one exists, so words are not cut in half.
func PaginateText(text string, pageSize int) []string {
	if pageSize <= 0 {
		pageSize = 2000
	}
	runes := []rune(text)
	out := make([]string, 0, len(runes)/pageSize+1)
	for i := 0; i < len(runes); {
		end := i + pageSize
		if end >= len(runes) {
			end = len(runes)
		} else {
			floor := end - pageSize/10
			for j := end; j > floor && j > i; j-- {
				if unicode.IsSpace(runes[j-1]) {
					end = j
					break
				}
			}
		}
		part := strings.TrimSpace(string(runes[i:end]))
		if part != "" {
			out = append(out, part)
		}
		i = end
	}
	return out
}
