package clipper

import (
	"math/rand"
	"strings"

	"clipforge/internal/types"
)

// span is one sentence as (start, end, text).
type span struct {
	start, end float64
	text       string
}

func sentencesOf(spans ...span) []types.Sentence {
	out := make([]types.Sentence, len(spans))
	for i, s := range spans {
		out[i] = types.Sentence{Text: s.text, Start: s.start, End: s.end}
	}
	return out
}

// evenSentences lays out n back-to-back sentences of the given length.
func evenSentences(n int, length float64) []types.Sentence {
	out := make([]types.Sentence, n)
	for i := range out {
		out[i] = types.Sentence{
			Text:  "This sentence makes a complete point number " + string(rune('a'+i%26)) + ".",
			Start: float64(i) * length,
			End:   float64(i+1) * length,
		}
	}
	return out
}

// transcriptOf spreads each sentence's words evenly over its span.
func transcriptOf(sentences []types.Sentence) *types.Transcript {
	var words []types.Word
	for _, s := range sentences {
		parts := strings.Fields(s.Text)
		step := s.Duration() / float64(len(parts))
		for i, p := range parts {
			words = append(words, types.Word{
				Text:       p,
				Start:      s.Start + float64(i)*step,
				End:        s.Start + float64(i+1)*step,
				Confidence: 0.9,
			})
		}
	}
	return &types.Transcript{
		Version:      types.TranscriptVersion,
		Words:        words,
		Sentences:    sentences,
		SentenceGaps: types.ComputeGaps(sentences),
	}
}

func randomSentences(r *rand.Rand, n int) []types.Sentence {
	out := make([]types.Sentence, n)
	cursor := 0.0
	for i := range out {
		cursor += r.Float64() * 3.5
		length := 0.5 + r.Float64()*14
		out[i] = types.Sentence{Text: "Words go here.", Start: cursor, End: cursor + length}
		cursor += length
	}
	return out
}
