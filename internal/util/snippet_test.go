package util

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestQueryTerms(t *testing.T) {
	require.Equal(t, []string{"home", "loans", "rates"}, QueryTerms("What about home loans, and LOANS rates?"))
	require.Empty(t, QueryTerms("is it of to"))
}

func TestDisplaySnippet(t *testing.T) {
	out := DisplaySnippet("Hello\x00   world \n\t again", 100)
	require.Equal(t, "Hello world again", out)

	out = DisplaySnippet(strings.Repeat("word ", 50), 12)
	require.Equal(t, "word word wo...", out)
}

func TestDisplaySnippetRestoresGluedWords(t *testing.T) {
	require.Equal(t, "chapter 3 Mortgage basics", DisplaySnippet("chapter3Mortgage basics", 100))
}

func TestEvidenceSnippetKeepsPageOrder(t *testing.T) {
	page := "Interest rates rose last year. The printing press changed Europe. Home loans track interest rates closely."
	out := EvidenceSnippet(page, "home loans interest rates", 200)
	require.Equal(t, "Interest rates rose last year. Home loans track interest rates closely.", out)
}

func TestEvidenceSnippetWithoutMatches(t *testing.T) {
	page := "Completely unrelated text. Nothing here."
	require.Equal(t, "Nothing here.", EvidenceSnippet(page, "mortgage", 200))
	require.Equal(t, "Completely unrelated text. Nothing here.", EvidenceSnippet(page, "of the", 200))
	require.Empty(t, EvidenceSnippet("  ", "mortgage", 200))
}
