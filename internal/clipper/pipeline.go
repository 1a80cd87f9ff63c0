package clipper

import (
	"context"
	"strings"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"clipforge/config"
	"clipforge/internal/types"
	"clipforge/log"
	apperrors "clipforge/pkg/errors"
)

const fallbackReason = "Fallback from segment"

type Options struct {
	Segment      SegmentOptions
	Candidates   CandidateOptions
	Score        ScoreOptions
	EnableBeats  bool
	EnableRefine bool
}

func DefaultOptions() Options {
	return Options{
		Segment:      DefaultSegmentOptions(),
		Candidates:   DefaultCandidateOptions(),
		Score:        DefaultScoreOptions(),
		EnableBeats:  true,
		EnableRefine: true,
	}
}

// OptionsFromConfig maps the [clipper] section onto pipeline options.
func OptionsFromConfig(c config.Clipper, maxClips int) Options {
	opts := DefaultOptions()
	opts.Segment = SegmentOptions{
		MinDurationSec:         c.MinSegmentSec,
		MaxDurationSec:         c.MaxSegmentSec,
		MaxGapSec:              c.MaxGapSec,
		MaxSentencesPerSegment: c.MaxSentencesPerSegment,
	}
	opts.Candidates = CandidateOptions{
		MinDurationSec: c.MinCandidateSec,
		MaxDurationSec: c.MaxCandidateSec,
		MaxSentences:   c.MaxSentencesPerRun,
		MaxCandidates:  c.MaxCandidates,
	}
	opts.Score.MinHookPayoffScore = c.MinHookPayoffScore
	if maxClips > 0 {
		opts.Score.MaxClips = maxClips
	}
	opts.EnableBeats = c.EnableBeats
	opts.EnableRefine = c.EnableRefine
	return opts
}

// Pipeline chains beat detection, candidate building, scoring, refinement,
// rule filtering and deduplication. Each model-backed stage degrades to a
// fallback instead of failing the run.
type Pipeline struct {
	beats   *BeatDetector
	scorer  *Scorer
	refiner *Refiner
	rules   RuleFilter
	opts    Options
}

func NewPipeline(llm types.ChatCompleter, opts Options) *Pipeline {
	return &Pipeline{
		beats:   NewBeatDetector(llm),
		scorer:  NewScorer(llm, opts.Score),
		refiner: NewRefiner(llm),
		opts:    opts,
	}
}

// Result records which fallbacks fired alongside the final suggestions.
type Result struct {
	Suggestions    []types.ClipSuggestion
	Beats          []types.Beat
	Candidates     []types.Segment
	BeatsFallback  bool
	ScoreFallback  bool
	RefineFallback bool
	FinalFallback  bool
}

// Generate runs the full selection chain. It fails only when the transcript
// has no words or no candidate segment can be built. The result is empty
// when no candidate, scored or raw, passes the rule filter.
func (p *Pipeline) Generate(ctx context.Context, t *types.Transcript) (Result, error) {
	var res Result
	if t == nil || len(t.Words) == 0 {
		return res, apperrors.ErrNoTranscript
	}
	sentences := t.EnsureSentences()
	if len(sentences) == 0 {
		return res, apperrors.ErrNoTranscript
	}
	whole := []types.Beat{{StartSentenceIndex: 0, EndSentenceIndex: len(sentences) - 1}}

	res.Beats = whole
	if p.opts.EnableBeats {
		if beats, ok := p.beats.Detect(ctx, t); ok {
			res.Beats = beats
		} else {
			res.BeatsFallback = true
		}
	}

	res.Candidates = p.candidates(sentences, res.Beats)
	if len(res.Candidates) == 0 {
		return res, apperrors.ErrNoSegments
	}

	suggestions, _ := p.scorer.Score(ctx, res.Candidates)
	if len(suggestions) == 0 {
		res.ScoreFallback = true
		suggestions = FallbackSuggestions(res.Candidates, p.opts.Score.MaxClips)
	}

	if p.opts.EnableRefine {
		refined, ok := p.refiner.Refine(ctx, t, suggestions)
		res.RefineFallback = !ok
		suggestions = refined
	}

	suggestions = Dedupe(p.rules.Apply(suggestions, sentences))
	if len(suggestions) == 0 {
		// Raw candidates still have to clear the rule filter.
		res.FinalFallback = true
		suggestions = Dedupe(p.rules.Apply(FallbackSuggestions(res.Candidates, 0), sentences))
	}
	if limit := p.opts.Score.MaxClips; limit > 0 && len(suggestions) > limit {
		suggestions = suggestions[:limit]
	}
	res.Suggestions = suggestions

	log.GetLogger().Info("[Clipper] generated suggestions",
		zap.Int("beats", len(res.Beats)),
		zap.Int("candidates", len(res.Candidates)),
		zap.Int("suggestions", len(suggestions)),
		zap.Bool("beatsFallback", res.BeatsFallback),
		zap.Bool("scoreFallback", res.ScoreFallback),
		zap.Bool("finalFallback", res.FinalFallback),
	)
	return res, nil
}

// candidates is the union of greedy windows and sentence runs, each built
// inside a single beat, without duplicate ranges.
func (p *Pipeline) candidates(sentences []types.Sentence, beats []types.Beat) []types.Segment {
	var all []types.Segment
	for _, b := range beats {
		all = append(all, SegmentSentences(sentences, b.StartSentenceIndex, b.EndSentenceIndex, p.opts.Segment)...)
	}
	all = append(all, BuildCandidates(sentences, beats, p.opts.Candidates)...)
	return lo.UniqBy(all, func(s types.Segment) [2]float64 {
		return [2]float64{s.Start, s.End}
	})
}

// FallbackSuggestions turns the first segments into plain suggestions so a
// run with candidates never ends empty.
func FallbackSuggestions(segments []types.Segment, maxClips int) []types.ClipSuggestion {
	if maxClips > 0 && len(segments) > maxClips {
		segments = segments[:maxClips]
	}
	return lo.Map(segments, func(s types.Segment, _ int) types.ClipSuggestion {
		title := strings.TrimSpace(truncate(s.Text, 80))
		if title == "" {
			title = "Clip"
		}
		return types.ClipSuggestion{
			StartTime:  s.Start,
			EndTime:    s.End,
			Title:      title,
			Keywords:   []string{},
			Confidence: defaultConfidence,
			Reason:     fallbackReason,
		}
	})
}
