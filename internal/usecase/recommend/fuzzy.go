package recommend

import (
	"sort"
	"unicode/utf8"

	"github.com/hbollon/go-edlib"

	"github.com/kailas-cloud/shelfrec/internal/domain/catalog"
)

// Fuzzy matching constants.
const (
	// fuzzyThreshold is exclusive: a candidate needs a score strictly above it.
	fuzzyThreshold = 60
	// fuzzyCandidateFactor caps fuzzy candidates at factor × topN.
	fuzzyCandidateFactor = 2
)

// ratio is the normalized Indel similarity of a and b on a 0-100 scale:
// 200·LCS / (len(a)+len(b)), counted in runes. Comparison is case-sensitive.
// ok is false when either side is empty and no score can be given.
func ratio(a, b string) (score float64, ok bool) {
	la, lb := utf8.RuneCountInString(a), utf8.RuneCountInString(b)
	if la == 0 || lb == 0 {
		return 0, false
	}
	lcs := edlib.LCS(a, b)
	return 200 * float64(lcs) / float64(la+lb), true
}

type scoredItem struct {
	item  *catalog.Item
	score float64
}

// fuzzyMatches scores the raw query against every item's raw title, keeps the
// best limit candidates (ties in catalog order) and returns those above the threshold.
func fuzzyMatches(items []*catalog.Item, titleField, raw string, limit int) []*catalog.Item {
	if limit <= 0 || raw == "" {
		return nil
	}

	scored := make([]scoredItem, 0, len(items))
	for _, it := range items {
		s, ok := ratio(raw, it.Text(titleField))
		if !ok {
			continue
		}
		scored = append(scored, scoredItem{item: it, score: s})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].score > scored[j].score
	})
	if len(scored) > limit {
		scored = scored[:limit]
	}

	out := make([]*catalog.Item, 0, len(scored))
	for _, s := range scored {
		if s.score > fuzzyThreshold {
			out = append(out, s.item)
		}
	}
	return out
}
