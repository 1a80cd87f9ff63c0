package clipper

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"clipforge/internal/types"
	"clipforge/log"
	"clipforge/pkg/util"
)

const (
	rangeTolerance   = 0.5
	minRefinedSec    = 15.0
	maxRefinedSec    = 90.0
	minRefineSpanLen = 2
)

// SentenceRange finds the inclusive sentence indices inside [start, end].
// A sentence must reach more than the tolerance into the range to count, so a
// neighbour that merely touches a boundary is left out.
func SentenceRange(sentences []types.Sentence, start, end float64) (int, int, bool) {
	first, last := -1, -1
	for i, s := range sentences {
		if first < 0 && s.End > start+rangeTolerance {
			first = i
		}
		if s.Start < end-rangeTolerance {
			last = i
		}
	}
	if first < 0 || last < 0 || first > last {
		return 0, 0, false
	}
	return first, last, true
}

// Refiner tightens clip boundaries by whole sentences.
type Refiner struct {
	llm types.ChatCompleter
}

func NewRefiner(llm types.ChatCompleter) *Refiner {
	return &Refiner{llm: llm}
}

type refineItem struct {
	StartIdx  int      `json:"startIdx"`
	EndIdx    int      `json:"endIdx"`
	Sentences []string `json:"sentences"`
}

type refineProposal struct {
	StartSentenceIndex *int `json:"startSentenceIndex"`
	EndSentenceIndex   *int `json:"endSentenceIndex"`
}

type refineTarget struct {
	pos        int
	start, end int
}

// Refine returns a slice the same length as suggestions. The boolean is
// false when the model was not usable, in which case suggestions come back
// unchanged.
func (r *Refiner) Refine(ctx context.Context, t *types.Transcript, suggestions []types.ClipSuggestion) ([]types.ClipSuggestion, bool) {
	if t == nil || r.llm == nil || len(suggestions) == 0 {
		return suggestions, false
	}
	sentences := t.EnsureSentences()
	if len(sentences) == 0 {
		return suggestions, false
	}

	var (
		targets []refineTarget
		items   []refineItem
	)
	for i, s := range suggestions {
		first, last, ok := SentenceRange(sentences, s.StartTime, s.EndTime)
		if !ok || last-first+1 < minRefineSpanLen {
			continue
		}
		texts := make([]string, 0, last-first+1)
		for _, sent := range sentences[first : last+1] {
			texts = append(texts, sent.Text)
		}
		targets = append(targets, refineTarget{pos: i, start: first, end: last})
		items = append(items, refineItem{StartIdx: first, EndIdx: last, Sentences: texts})
	}
	if len(targets) == 0 {
		return suggestions, true
	}

	payload, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return suggestions, false
	}
	reply, err := r.llm.ChatCompletion(ctx, refineSystemPrompt, fmt.Sprintf(refinePrompt, payload), 0.2)
	if err != nil {
		log.GetLogger().Warn("[Clipper] refinement failed, keeping boundaries", zap.Error(err))
		return suggestions, false
	}
	proposals, err := util.DecodeJSONArray[refineProposal](reply)
	if err != nil {
		log.GetLogger().Warn("[Clipper] refinement reply unparseable, keeping boundaries", zap.Error(err))
		return suggestions, false
	}

	out := make([]types.ClipSuggestion, len(suggestions))
	copy(out, suggestions)
	changed := 0
	for i, target := range targets {
		if i >= len(proposals) {
			break
		}
		p := proposals[i]
		if p.StartSentenceIndex == nil || p.EndSentenceIndex == nil {
			continue
		}
		start := max(target.start, min(*p.StartSentenceIndex, target.end))
		end := min(target.end, max(*p.EndSentenceIndex, target.start))
		if start > end {
			end = start
		}
		newStart, newEnd := sentences[start].Start, sentences[end].End
		if d := newEnd - newStart; d < minRefinedSec || d > maxRefinedSec {
			continue
		}
		if newStart != out[target.pos].StartTime || newEnd != out[target.pos].EndTime {
			changed++
		}
		out[target.pos].StartTime = newStart
		out[target.pos].EndTime = newEnd
	}
	if changed > 0 {
		log.GetLogger().Info("[Clipper] refined clip boundaries", zap.Int("changed", changed))
	}
	return out, true
}
