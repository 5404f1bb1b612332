package relevance

import (
	"fmt"
	"sort"
	"strings"
)

const DefaultThreshold = 25.0

// Aggregate keeps scores >= threshold, merges consecutive pages into ranges
// and orders the ranges by descending TopScore. Within a range the first page
// holding the maximum score supplies TopReason. Ranges with equal TopScore
// stay in document order.
func Aggregate(scores []PageScore, threshold float64) []RelevantRange {
	kept := make([]PageScore, 0, len(scores))
	for _, s := range scores {
		if s.Score >= threshold {
			kept = append(kept, s)
		}
	}
	sort.SliceStable(kept, func(i, j int) bool { return kept[i].Page < kept[j].Page })

	ranges := make([]RelevantRange, 0)
	for _, s := range kept {
		if n := len(ranges); n > 0 {
			cur := &ranges[n-1]
			if s.Page == cur.EndPage || s.Page == cur.EndPage+1 {
				cur.EndPage = s.Page
				if s.Score > cur.TopScore {
					cur.TopScore = s.Score
					cur.TopReason = s.Reason
				}
				continue
			}
		}
		ranges = append(ranges, RelevantRange{
			StartPage: s.Page,
			EndPage:   s.Page,
			TopScore:  s.Score,
			TopReason: s.Reason,
		})
	}
	sort.SliceStable(ranges, func(i, j int) bool { return ranges[i].TopScore > ranges[j].TopScore })
	return ranges
}

// Label renders the range for display. A nil chapters slice means a paged
// document; otherwise page numbers index chapters and titles are used when
// present.
func (r RelevantRange) Label(chapters []string) string {
	if chapters == nil {
		if r.StartPage == r.EndPage {
			return fmt.Sprintf("Page %d", r.StartPage)
		}
		return fmt.Sprintf("Pages %d–%d", r.StartPage, r.EndPage)
	}
	start, end := chapterTitle(chapters, r.StartPage), chapterTitle(chapters, r.EndPage)
	if r.StartPage == r.EndPage {
		if start != "" {
			return start
		}
		return fmt.Sprintf("Chapter %d", r.StartPage)
	}
	switch {
	case start != "" && end != "" && start != end:
		return start + " – " + end
	case start != "":
		return fmt.Sprintf("%s (to chapter %d)", start, r.EndPage)
	}
	return fmt.Sprintf("Chapters %d–%d", r.StartPage, r.EndPage)
}

func chapterTitle(chapters []string, page int) string {
	if page < 1 || page > len(chapters) {
		return ""
	}
	return strings.TrimSpace(chapters[page-1])
}

func sortByScore(scores []PageScore) {
	sort.SliceStable(scores, func(i, j int) bool {
		if scores[i].Score == scores[j].Score {
			return scores[i].Page < scores[j].Page
		}
		return scores[i].Score > scores[j].Score
	})
}
