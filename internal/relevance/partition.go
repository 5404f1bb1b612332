package relevance

const DefaultBatchSize = 40

// indexedPage is a page tagged with its 1-based position in the document.
// The number is assigned before compression and never recomputed.
type indexedPage struct {
	Page int    `json:"page"`
	Text string `json:"text"`
}

func indexPages(pages []string, maxChars int) []indexedPage {
	out := make([]indexedPage, len(pages))
	for i, p := range pages {
		out[i] = indexedPage{Page: i + 1, Text: Compress(p, maxChars)}
	}
	return out
}

// Partition splits items into consecutive groups of at most size elements.
// size <= 0 selects DefaultBatchSize.
func Partition[T any](items []T, size int) [][]T {
	if size <= 0 {
		size = DefaultBatchSize
	}
	out := make([][]T, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		out = append(out, items[start:end:end])
	}
	return out
}
