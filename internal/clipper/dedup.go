package clipper

import (
	"math"

	"clipforge/internal/types"
)

type dedupKey struct {
	start, end int64
}

// Dedupe keeps one suggestion per (rounded start, rounded end). The survivor
// is the most confident; ties go to the earliest. Survivors keep input order.
func Dedupe(suggestions []types.ClipSuggestion) []types.ClipSuggestion {
	best := make(map[dedupKey]int, len(suggestions))
	for i, s := range suggestions {
		k := keyOf(s)
		if j, ok := best[k]; !ok || s.Confidence > suggestions[j].Confidence {
			best[k] = i
		}
	}
	out := make([]types.ClipSuggestion, 0, len(best))
	for i, s := range suggestions {
		if best[keyOf(s)] == i {
			out = append(out, s)
		}
	}
	return out
}

func keyOf(s types.ClipSuggestion) dedupKey {
	return dedupKey{start: int64(math.Round(s.StartTime)), end: int64(math.Round(s.EndTime))}
}
