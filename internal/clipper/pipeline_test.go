package clipper

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"clipforge/internal/mocks"
	"clipforge/internal/types"
	apperrors "clipforge/pkg/errors"
)

func TestPipelineHappyPath(t *testing.T) {
	llm := new(mocks.MockChatCompleter)
	llm.On("ChatCompletion", mock.Anything, beatSystemPrompt, mock.Anything, mock.Anything).
		Return(`[{"startSentenceIndex":0,"endSentenceIndex":5},{"startSentenceIndex":6,"endSentenceIndex":11}]`, nil)
	llm.On("ChatCompletion", mock.Anything, scoreSystemPrompt, mock.Anything, mock.Anything).
		Return(`[{"startTime":0,"endTime":40,"title":"Great","keywords":["k"],"confidence":0.9,"reason":"strong hook"}]`, nil)
	llm.On("ChatCompletion", mock.Anything, gateSystemPrompt, mock.Anything, mock.Anything).
		Return(`[{"hookScore":8,"payoffScore":8,"oneClearIdea":true}]`, nil)
	llm.On("ChatCompletion", mock.Anything, refineSystemPrompt, mock.Anything, mock.Anything).
		Return(`[{"startSentenceIndex":0,"endSentenceIndex":2}]`, nil)

	res, err := NewPipeline(llm, DefaultOptions()).Generate(context.Background(), transcriptOf(evenSentences(12, 10)))

	require.NoError(t, err)
	assert.Len(t, res.Beats, 2)
	assert.False(t, res.BeatsFallback || res.ScoreFallback || res.RefineFallback || res.FinalFallback)
	require.Len(t, res.Suggestions, 1)
	assert.Equal(t, types.ClipSuggestion{
		StartTime: 0, EndTime: 30, Title: "Great", Keywords: []string{"k"}, Confidence: 0.9, Reason: "strong hook",
	}, res.Suggestions[0])
	for _, c := range res.Candidates {
		sameBeat := (c.LastSentence <= 5) || (c.FirstSentence >= 6)
		assert.True(t, sameBeat)
	}
	llm.AssertExpectations(t)
}

func TestPipelineFallsBackWhenModelIsDown(t *testing.T) {
	llm := new(mocks.MockChatCompleter)
	llm.On("ChatCompletion", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("", errors.New("connection reset"))

	opts := DefaultOptions()
	opts.Score.MaxClips = 3
	res, err := NewPipeline(llm, opts).Generate(context.Background(), transcriptOf(evenSentences(12, 10)))

	require.NoError(t, err)
	assert.True(t, res.BeatsFallback)
	assert.True(t, res.ScoreFallback)
	assert.True(t, res.RefineFallback)
	assert.Equal(t, []types.Beat{{StartSentenceIndex: 0, EndSentenceIndex: 11}}, res.Beats)
	require.Len(t, res.Suggestions, 3)
	for _, s := range res.Suggestions {
		assert.Equal(t, fallbackReason, s.Reason)
		assert.Equal(t, 0.5, s.Confidence)
		assert.NotEmpty(t, s.Title)
	}
}

func TestPipelineFinalFallbackKeepsOnlyRulePassingSegments(t *testing.T) {
	sentences := evenSentences(12, 10)
	sentences[0].Text = "Anyway, this is where we start."
	llm := new(mocks.MockChatCompleter)
	llm.On("ChatCompletion", mock.Anything, scoreSystemPrompt, mock.Anything, mock.Anything).
		Return(`[{"startTime":0,"endTime":40,"title":"Opening","confidence":0.9}]`, nil)

	opts := DefaultOptions()
	opts.EnableBeats = false
	opts.EnableRefine = false
	opts.Score.MinHookPayoffScore = 0
	res, err := NewPipeline(llm, opts).Generate(context.Background(), transcriptOf(sentences))

	require.NoError(t, err)
	assert.False(t, res.ScoreFallback)
	assert.True(t, res.FinalFallback)
	require.NotEmpty(t, res.Suggestions)
	assert.LessOrEqual(t, len(res.Suggestions), opts.Score.MaxClips)
	for _, s := range res.Suggestions {
		assert.NotEqual(t, 0.0, s.StartTime)
		assert.Equal(t, fallbackReason, s.Reason)
	}
	assert.Len(t, RuleFilter{}.Apply(res.Suggestions, sentences), len(res.Suggestions))
}

func TestPipelineEmptyWhenRulesRejectEveryCandidate(t *testing.T) {
	sentences := evenSentences(8, 10)
	for i := range sentences {
		sentences[i].Text = "and we kept talking without stopping"
	}
	llm := new(mocks.MockChatCompleter)
	llm.On("ChatCompletion", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("not json", nil)

	opts := DefaultOptions()
	opts.EnableBeats = false
	opts.EnableRefine = false
	res, err := NewPipeline(llm, opts).Generate(context.Background(), transcriptOf(sentences))

	require.NoError(t, err)
	assert.True(t, res.FinalFallback)
	assert.Empty(t, res.Suggestions)
	llm.AssertNotCalled(t, "ChatCompletion", mock.Anything, beatSystemPrompt, mock.Anything, mock.Anything)
}

func TestPipelineErrors(t *testing.T) {
	p := NewPipeline(new(mocks.MockChatCompleter), Options{Score: DefaultScoreOptions()})

	_, err := p.Generate(context.Background(), nil)
	assert.True(t, errors.Is(err, apperrors.ErrNoTranscript))

	_, err = p.Generate(context.Background(), &types.Transcript{})
	assert.True(t, errors.Is(err, apperrors.ErrNoTranscript))

	short := transcriptOf(sentencesOf(span{0, 2, "Hi there."}, span{2, 4, "Bye now."}))
	p = NewPipeline(new(mocks.MockChatCompleter), Options{Segment: DefaultSegmentOptions(), Candidates: DefaultCandidateOptions(), Score: DefaultScoreOptions()})
	_, err = p.Generate(context.Background(), short)
	assert.True(t, errors.Is(err, apperrors.ErrNoSegments))
}

func TestFallbackSuggestionsTitles(t *testing.T) {
	long := ""
	for i := 0; i < 30; i++ {
		long += "word "
	}
	got := FallbackSuggestions([]types.Segment{{Start: 0, End: 30, Text: long}, {Start: 30, End: 60}}, 5)

	require.Len(t, got, 2)
	assert.LessOrEqual(t, len([]rune(got[0].Title)), 80)
	assert.Equal(t, "Clip", got[1].Title)
	assert.Equal(t, []string{}, got[1].Keywords)
}
