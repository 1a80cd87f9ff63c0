package clipper

import (
	"strings"

	"github.com/texttheater/golang-levenshtein/levenshtein"
	"go.uber.org/zap"

	"clipforge/internal/types"
	"clipforge/log"
)

var transitionPhrases = []string{
	"so next", "number two", "and then", "second,", "first,", "second tip",
	"next tip", "next,", "second.", "first.", "सुनो", "फिर", "अब",
}

var incompleteEndingPhrases = []string{
	"i'll", "i'm", "we're", "so we", "and we", "but we", "and i", "but i",
}

var weakOpeningPhrases = []string{
	"so,", "anyway,", "as i was saying", "as we were saying", "so anyway",
	"effectively", "basically", "well,", "well.",
}

const (
	minFirstSentenceWords = 4
	minLastSentenceWords  = 3
	matchPrefixRunes      = 50
	fuzzyMinPhraseRunes   = 9
)

// RuleFilter rejects clips that open on filler or close on a fragment or a
// lead-in to the next topic.
type RuleFilter struct{}

// Apply keeps the suggestions whose first and last sentences pass. Clips
// whose sentence range cannot be found are kept, as is everything when the
// transcript has no sentences.
func (RuleFilter) Apply(suggestions []types.ClipSuggestion, sentences []types.Sentence) []types.ClipSuggestion {
	if len(sentences) == 0 {
		return suggestions
	}
	out := make([]types.ClipSuggestion, 0, len(suggestions))
	for _, s := range suggestions {
		first, last, ok := SentenceRange(sentences, s.StartTime, s.EndTime)
		if !ok {
			out = append(out, s)
			continue
		}
		if BadEnding(sentences[last].Text) || WeakOpening(sentences[first].Text) {
			continue
		}
		out = append(out, s)
	}
	if dropped := len(suggestions) - len(out); dropped > 0 {
		log.GetLogger().Info("[Clipper] rule filter dropped clips", zap.Int("dropped", dropped))
	}
	return out
}

// BadEnding reports a closing sentence that is a fragment, unpunctuated,
// unfinished or a transition into the next point.
func BadEnding(text string) bool {
	t := strings.TrimSpace(text)
	if t == "" || wordCount(t) < minLastSentenceWords || !types.EndsSentence(t) {
		return true
	}
	return startsWithAny(t, incompleteEndingPhrases) || startsWithAny(t, transitionPhrases)
}

// WeakOpening reports an opening sentence that is a fragment or filler.
func WeakOpening(text string) bool {
	t := strings.TrimSpace(text)
	if t == "" || wordCount(t) < minFirstSentenceWords {
		return true
	}
	return startsWithAny(t, weakOpeningPhrases)
}

func wordCount(s string) int {
	return len(strings.Fields(s))
}

func normalizeForMatch(s string) []rune {
	r := []rune(strings.ToLower(strings.TrimSpace(s)))
	if len(r) > matchPrefixRunes {
		r = r[:matchPrefixRunes]
	}
	return r
}

// startsWithAny matches phrases against the head of the sentence. Longer
// phrases tolerate one edit so transcription noise ("basicaly") still hits.
func startsWithAny(text string, phrases []string) bool {
	head := normalizeForMatch(text)
	for _, phrase := range phrases {
		p := []rune(phrase)
		if len(head) >= len(p) && string(head[:len(p)]) == phrase {
			return true
		}
		if len(p) < fuzzyMinPhraseRunes || len(head) < len(p)-1 {
			continue
		}
		for _, n := range []int{len(p) - 1, len(p), len(p) + 1} {
			if n > len(head) {
				break
			}
			if levenshtein.DistanceForStrings(head[:n], p, levenshtein.DefaultOptionsWithSub) <= 1 {
				return true
			}
		}
	}
	return false
}
