package clipper

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"clipforge/internal/types"
	"clipforge/log"
	"clipforge/pkg/util"
)

// BeatDetector asks the reasoning model where the topic changes.
type BeatDetector struct {
	llm types.ChatCompleter
}

func NewBeatDetector(llm types.ChatCompleter) *BeatDetector {
	return &BeatDetector{llm: llm}
}

type beatItem struct {
	Index        int      `json:"index"`
	Text         string   `json:"text"`
	GapBeforeSec *float64 `json:"gapBeforeSec,omitempty"`
}

type beatProposal struct {
	StartSentenceIndex *int `json:"startSentenceIndex"`
	EndSentenceIndex   *int `json:"endSentenceIndex"`
}

// Detect returns a partition of the transcript's sentences into beats. The
// boolean is false when the model call or its reply was unusable; callers
// then treat the whole transcript as one beat.
func (d *BeatDetector) Detect(ctx context.Context, t *types.Transcript) ([]types.Beat, bool) {
	if t == nil || d.llm == nil {
		return nil, false
	}
	sentences := t.EnsureSentences()
	n := len(sentences)
	if n == 0 {
		return nil, false
	}

	items := make([]beatItem, n)
	for i, s := range sentences {
		items[i] = beatItem{Index: i, Text: s.Text}
		if gap, ok := t.Gap(i); ok {
			items[i].GapBeforeSec = &gap
		}
	}
	payload, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return nil, false
	}

	reply, err := d.llm.ChatCompletion(ctx, beatSystemPrompt, fmt.Sprintf(beatPrompt, n-1, payload), 0.2)
	if err != nil {
		log.GetLogger().Warn("[Clipper] beat detection failed", zap.Error(err))
		return nil, false
	}
	proposals, err := util.DecodeJSONArray[beatProposal](reply)
	if err != nil {
		log.GetLogger().Warn("[Clipper] beat reply unparseable", zap.Error(err))
		return nil, false
	}

	var beats []types.Beat
	for _, p := range proposals {
		if p.StartSentenceIndex == nil || p.EndSentenceIndex == nil {
			continue
		}
		start, end := *p.StartSentenceIndex, *p.EndSentenceIndex
		if start >= 0 && end >= start && end < n {
			beats = append(beats, types.Beat{StartSentenceIndex: start, EndSentenceIndex: end})
		}
	}

	normalized := NormalizeBeats(beats, n)
	if len(normalized) == 0 {
		return nil, false
	}
	return normalized, true
}

// NormalizeBeats turns arbitrary beat proposals into an ordered,
// non-overlapping cover of [0, n-1]. Overlaps are trimmed off the later beat.
// Holes between beats are absorbed by the beat that follows them and a short
// tail extends the last beat. No proposals yield one beat over everything.
func NormalizeBeats(beats []types.Beat, n int) []types.Beat {
	if n <= 0 {
		return nil
	}
	if len(beats) == 0 {
		return []types.Beat{{StartSentenceIndex: 0, EndSentenceIndex: n - 1}}
	}

	sorted := make([]types.Beat, len(beats))
	copy(sorted, beats)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].StartSentenceIndex < sorted[j].StartSentenceIndex
	})

	var out []types.Beat
	next := 0
	for _, b := range sorted {
		start := max(b.StartSentenceIndex, next)
		end := min(b.EndSentenceIndex, n-1)
		if start > end {
			continue
		}
		if start > next {
			start = next
		}
		out = append(out, types.Beat{StartSentenceIndex: start, EndSentenceIndex: end})
		next = end + 1
	}

	if next < n {
		if len(out) > 0 {
			out[len(out)-1].EndSentenceIndex = n - 1
		} else {
			out = append(out, types.Beat{StartSentenceIndex: next, EndSentenceIndex: n - 1})
		}
	}
	return out
}
