package clipper

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"clipforge/internal/types"
	"clipforge/log"
	"clipforge/pkg/util"
)

type ScoreOptions struct {
	MaxClips           int
	MinConfidence      float64
	MinDurationSec     float64
	MaxDurationSec     float64
	MinHookPayoffScore float64 // 0 disables the hook/payoff gate
}

func DefaultScoreOptions() ScoreOptions {
	return ScoreOptions{
		MaxClips:           10,
		MinConfidence:      0.6,
		MinDurationSec:     25,
		MaxDurationSec:     90,
		MinHookPayoffScore: 6,
	}
}

const defaultConfidence = 0.5

// Scorer ranks candidate segments with the reasoning model and titles them.
type Scorer struct {
	llm  types.ChatCompleter
	opts ScoreOptions
}

func NewScorer(llm types.ChatCompleter, opts ScoreOptions) *Scorer {
	return &Scorer{llm: llm, opts: opts}
}

type scoreItem struct {
	ID        int     `json:"id"`
	StartTime float64 `json:"startTime"`
	EndTime   float64 `json:"endTime"`
	Text      string  `json:"text"`
}

type scoreProposal struct {
	StartTime  *float64 `json:"startTime"`
	EndTime    *float64 `json:"endTime"`
	Title      string   `json:"title"`
	Keywords   []string `json:"keywords"`
	Confidence *float64 `json:"confidence"`
	Reason     string   `json:"reason"`
}

// Score returns at most MaxClips suggestions snapped to segment boundaries,
// strongest first. The boolean is false when the model could not be asked or
// its reply could not be read.
func (s *Scorer) Score(ctx context.Context, segments []types.Segment) ([]types.ClipSuggestion, bool) {
	if len(segments) == 0 || s.llm == nil {
		return nil, false
	}

	items := lo.Map(segments, func(seg types.Segment, i int) scoreItem {
		return scoreItem{ID: i, StartTime: seg.Start, EndTime: seg.End, Text: seg.Text}
	})
	payload, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return nil, false
	}

	reply, err := s.llm.ChatCompletion(ctx, scoreSystemPrompt, fmt.Sprintf(scorePrompt, s.opts.MaxClips, payload), 0.4)
	if err != nil {
		log.GetLogger().Warn("[Clipper] scoring call failed", zap.Error(err))
		return nil, false
	}
	proposals, err := util.DecodeJSONArray[scoreProposal](reply)
	if err != nil {
		log.GetLogger().Warn("[Clipper] scoring reply unparseable", zap.Error(err), zap.String("reply", truncate(reply, 400)))
		return nil, false
	}

	var shortlist []types.ClipSuggestion
	for _, p := range proposals {
		if p.StartTime == nil || p.EndTime == nil || *p.EndTime <= *p.StartTime {
			continue
		}
		seg, _ := Snap(segments, *p.StartTime, *p.EndTime)
		c := types.ClipSuggestion{
			StartTime:  seg.Start,
			EndTime:    seg.End,
			Title:      p.Title,
			Keywords:   p.Keywords,
			Confidence: defaultConfidence,
			Reason:     p.Reason,
		}
		if p.Confidence != nil {
			c.Confidence = min(max(*p.Confidence, 0), 1)
		}
		d := c.Duration()
		if c.Confidence < s.opts.MinConfidence || d < s.opts.MinDurationSec || d > s.opts.MaxDurationSec {
			continue
		}
		if c.Title == "" {
			c.Title = "Clip"
		}
		if c.Keywords == nil {
			c.Keywords = []string{}
		}
		shortlist = append(shortlist, c)
	}

	sort.SliceStable(shortlist, func(i, j int) bool {
		return shortlist[i].Confidence > shortlist[j].Confidence
	})
	if s.opts.MaxClips > 0 && len(shortlist) > s.opts.MaxClips {
		shortlist = shortlist[:s.opts.MaxClips]
	}

	if s.opts.MinHookPayoffScore > 0 && len(shortlist) > 0 {
		shortlist = s.gate(ctx, shortlist, segments)
	}
	return shortlist, true
}

// Snap returns the segment whose bounds are closest to [start, end] by the
// sum of absolute distances. Ties keep the earlier segment.
func Snap(segments []types.Segment, start, end float64) (types.Segment, bool) {
	if len(segments) == 0 {
		return types.Segment{Start: start, End: end}, false
	}
	best := segments[0]
	bestScore := math.Abs(best.Start-start) + math.Abs(best.End-end)
	for _, seg := range segments[1:] {
		score := math.Abs(seg.Start-start) + math.Abs(seg.End-end)
		if score < bestScore {
			best, bestScore = seg, score
		}
	}
	return best, true
}

type gateItem struct {
	StartTime float64 `json:"startTime"`
	EndTime   float64 `json:"endTime"`
	Text      string  `json:"text"`
}

type gateVerdict struct {
	HookScore    *float64 `json:"hookScore"`
	PayoffScore  *float64 `json:"payoffScore"`
	OneClearIdea *bool    `json:"oneClearIdea"`
}

// gate drops shortlisted clips with a weak hook, a weak payoff or more than
// one idea. Any failure, or a verdict that would drop everything, keeps the
// shortlist as it was.
func (s *Scorer) gate(ctx context.Context, shortlist []types.ClipSuggestion, segments []types.Segment) []types.ClipSuggestion {
	var items []gateItem
	for _, c := range shortlist {
		seg, ok := lo.Find(segments, func(seg types.Segment) bool {
			return math.Abs(seg.Start-c.StartTime) < 0.5 && math.Abs(seg.End-c.EndTime) < 0.5
		})
		if ok && seg.Text != "" {
			items = append(items, gateItem{StartTime: c.StartTime, EndTime: c.EndTime, Text: seg.Text})
		}
	}
	if len(items) == 0 {
		return shortlist
	}

	payload, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return shortlist
	}
	reply, err := s.llm.ChatCompletion(ctx, gateSystemPrompt, fmt.Sprintf(gatePrompt, payload), 0.2)
	if err != nil {
		log.GetLogger().Warn("[Clipper] hook/payoff gate failed, keeping shortlist", zap.Error(err))
		return shortlist
	}
	verdicts, err := util.DecodeJSONArray[gateVerdict](reply)
	if err != nil {
		log.GetLogger().Warn("[Clipper] hook/payoff reply unparseable, keeping shortlist", zap.Error(err))
		return shortlist
	}

	passed := make(map[string]bool)
	for i := 0; i < min(len(verdicts), len(items)); i++ {
		v := verdicts[i]
		hook := lo.FromPtrOr(v.HookScore, 0)
		payoff := lo.FromPtrOr(v.PayoffScore, 0)
		if hook >= s.opts.MinHookPayoffScore && payoff >= s.opts.MinHookPayoffScore && lo.FromPtrOr(v.OneClearIdea, false) {
			passed[rangeKey(items[i].StartTime, items[i].EndTime)] = true
		}
	}

	filtered := lo.Filter(shortlist, func(c types.ClipSuggestion, _ int) bool {
		return passed[rangeKey(c.StartTime, c.EndTime)]
	})
	if len(filtered) == 0 {
		return shortlist
	}
	if len(filtered) < len(shortlist) {
		log.GetLogger().Info("[Clipper] hook/payoff gate applied",
			zap.Int("before", len(shortlist)), zap.Int("after", len(filtered)))
	}
	return filtered
}

func rangeKey(start, end float64) string {
	return fmt.Sprintf("%g-%g", start, end)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
