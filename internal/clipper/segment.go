// Package clipper selects short clip candidates from a timed transcript.
package clipper

import (
	"strings"

	"clipforge/internal/types"
)

// SegmentOptions bound the greedy sentence windows. MaxSentencesPerSegment
// of 0 means no sentence limit.
type SegmentOptions struct {
	MinDurationSec         float64
	MaxDurationSec         float64
	MaxGapSec              float64
	MaxSentencesPerSegment int
}

func DefaultSegmentOptions() SegmentOptions {
	return SegmentOptions{
		MinDurationSec:         15,
		MaxDurationSec:         60,
		MaxGapSec:              2,
		MaxSentencesPerSegment: 4,
	}
}

// SegmentTranscript groups the transcript's sentences into windows that
// start and end on sentence boundaries. Sentences are rebuilt from words
// when the transcript has none.
func SegmentTranscript(t *types.Transcript, opts SegmentOptions) []types.Segment {
	if t == nil {
		return nil
	}
	sentences := t.EnsureSentences()
	return SegmentSentences(sentences, 0, len(sentences)-1, opts)
}

// SegmentSentences runs the greedy windowing over sentences[from..to].
//
// A window closes when the next sentence would push it past the maximum
// duration. It also closes on a long pause or a full sentence count, but only
// once it has reached the minimum duration. Windows shorter than the minimum
// are never emitted, including the trailing one. A single sentence longer
// than the maximum never fits and is skipped.
func SegmentSentences(sentences []types.Sentence, from, to int, opts SegmentOptions) []types.Segment {
	if from < 0 {
		from = 0
	}
	if to >= len(sentences) {
		to = len(sentences) - 1
	}

	var segments []types.Segment
	first := -1
	closeWindow := func(last int) {
		if first >= 0 && last >= first && sentences[last].End-sentences[first].Start >= opts.MinDurationSec {
			segments = append(segments, newSegment(sentences, first, last))
		}
		first = -1
	}

	for i := from; i <= to; i++ {
		s := sentences[i]
		if s.Duration() > opts.MaxDurationSec {
			closeWindow(i - 1)
			continue
		}
		if first < 0 {
			first = i
			continue
		}

		last := i - 1
		window := sentences[last].End - sentences[first].Start
		overMax := s.End-sentences[first].Start > opts.MaxDurationSec
		bigPause := s.Start-sentences[last].End > opts.MaxGapSec
		full := opts.MaxSentencesPerSegment > 0 && i-first >= opts.MaxSentencesPerSegment

		if overMax || ((bigPause || full) && window >= opts.MinDurationSec) {
			closeWindow(last)
			first = i
		}
	}
	closeWindow(to)

	return segments
}

// CandidateOptions bound the sentence runs offered to the scorer.
type CandidateOptions struct {
	MinDurationSec float64
	MaxDurationSec float64
	MaxSentences   int
	MaxCandidates  int
}

func DefaultCandidateOptions() CandidateOptions {
	return CandidateOptions{
		MinDurationSec: 25,
		MaxDurationSec: 70,
		MaxSentences:   6,
		MaxCandidates:  200,
	}
}

// BuildCandidates enumerates, inside each beat, every run of consecutive
// sentences whose duration fits the band and whose last sentence ends with
// terminal punctuation. Runs never cross a beat boundary.
func BuildCandidates(sentences []types.Sentence, beats []types.Beat, opts CandidateOptions) []types.Segment {
	var out []types.Segment
	for _, b := range beats {
		end := min(b.EndSentenceIndex, len(sentences)-1)
		for i := max(b.StartSentenceIndex, 0); i <= end; i++ {
			for j := i; j <= end && (opts.MaxSentences <= 0 || j-i < opts.MaxSentences); j++ {
				duration := sentences[j].End - sentences[i].Start
				if duration >= opts.MinDurationSec && duration <= opts.MaxDurationSec && types.EndsSentence(sentences[j].Text) {
					out = append(out, newSegment(sentences, i, j))
					if opts.MaxCandidates > 0 && len(out) >= opts.MaxCandidates {
						return out
					}
				}
				if duration > opts.MaxDurationSec {
					break
				}
			}
		}
	}
	return out
}

func newSegment(sentences []types.Sentence, first, last int) types.Segment {
	parts := make([]string, 0, last-first+1)
	for _, s := range sentences[first : last+1] {
		parts = append(parts, strings.TrimSpace(s.Text))
	}
	return types.Segment{
		Start:         sentences[first].Start,
		End:           sentences[last].End,
		Text:          strings.Join(parts, " "),
		FirstSentence: first,
		LastSentence:  last,
	}
}
