package clipper

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"clipforge/internal/mocks"
	"clipforge/internal/types"
)

var scoringSegments = []types.Segment{
	{Start: 0, End: 30, Text: "Segment A."},
	{Start: 30, End: 60, Text: "Segment B."},
	{Start: 60, End: 100, Text: "Segment C."},
	{Start: 100, End: 110, Text: "Segment D."},
}

const scoringReply = `{"clips": [
  {"startTime": 0.4, "endTime": 29.5, "title": "A", "keywords": ["a"], "confidence": 0.8, "reason": "hook"},
  {"startTime": 31, "endTime": 61, "title": "", "confidence": 0.9},
  {"startTime": 100, "endTime": 110, "title": "too short", "confidence": 0.95},
  {"startTime": 60, "endTime": 100, "title": "weak", "confidence": 0.5},
  {"startTime": 50, "endTime": 40, "title": "reversed", "confidence": 0.99},
  {"startTime": 0, "endTime": 30, "title": "no confidence"}
]}`

func scorerWith(llm *mocks.MockChatCompleter, gate float64) *Scorer {
	opts := DefaultScoreOptions()
	opts.MinHookPayoffScore = gate
	return NewScorer(llm, opts)
}

func TestScoreSnapsFiltersAndSorts(t *testing.T) {
	llm := new(mocks.MockChatCompleter)
	llm.On("ChatCompletion", mock.Anything, scoreSystemPrompt, mock.Anything, float32(0.4)).Return(scoringReply, nil)

	got, ok := scorerWith(llm, 0).Score(context.Background(), scoringSegments)

	require.True(t, ok)
	require.Len(t, got, 2)
	assert.Equal(t, types.ClipSuggestion{StartTime: 30, EndTime: 60, Title: "Clip", Keywords: []string{}, Confidence: 0.9}, got[0])
	assert.Equal(t, 0.0, got[1].StartTime)
	assert.Equal(t, 30.0, got[1].EndTime)
	assert.Equal(t, "A", got[1].Title)
	assert.Equal(t, 0.8, got[1].Confidence)
}

func TestScoreClampsConfidence(t *testing.T) {
	llm := new(mocks.MockChatCompleter)
	llm.On("ChatCompletion", mock.Anything, scoreSystemPrompt, mock.Anything, mock.Anything).
		Return(`[{"startTime": 30, "endTime": 60, "title": "B", "confidence": 1.7}]`, nil)

	got, ok := scorerWith(llm, 0).Score(context.Background(), scoringSegments)

	require.True(t, ok)
	require.Len(t, got, 1)
	assert.Equal(t, 1.0, got[0].Confidence)
}

func TestScoreTruncatesToMaxClips(t *testing.T) {
	llm := new(mocks.MockChatCompleter)
	llm.On("ChatCompletion", mock.Anything, scoreSystemPrompt, mock.Anything, mock.Anything).Return(scoringReply, nil)
	s := scorerWith(llm, 0)
	s.opts.MaxClips = 1

	got, _ := s.Score(context.Background(), scoringSegments)

	require.Len(t, got, 1)
	assert.Equal(t, 0.9, got[0].Confidence)
}

func TestScoreFailures(t *testing.T) {
	failing := new(mocks.MockChatCompleter)
	failing.On("ChatCompletion", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("", errors.New("rate limited"))
	got, ok := scorerWith(failing, 0).Score(context.Background(), scoringSegments)
	assert.False(t, ok)
	assert.Empty(t, got)

	prose := new(mocks.MockChatCompleter)
	prose.On("ChatCompletion", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("none of these work", nil)
	_, ok = scorerWith(prose, 0).Score(context.Background(), scoringSegments)
	assert.False(t, ok)

	_, ok = scorerWith(prose, 0).Score(context.Background(), nil)
	assert.False(t, ok)
}

func TestHookPayoffGate(t *testing.T) {
	llm := new(mocks.MockChatCompleter)
	llm.On("ChatCompletion", mock.Anything, scoreSystemPrompt, mock.Anything, mock.Anything).Return(scoringReply, nil)
	llm.On("ChatCompletion", mock.Anything, gateSystemPrompt, mocks.PromptContaining("Segment B."), float32(0.2)).Return(`[
		{"startTime": 30, "endTime": 60, "hookScore": 8, "payoffScore": 7, "oneClearIdea": true},
		{"startTime": 0, "endTime": 30, "hookScore": 3, "payoffScore": 9, "oneClearIdea": true}
	]`, nil)

	got, ok := scorerWith(llm, 6).Score(context.Background(), scoringSegments)

	require.True(t, ok)
	require.Len(t, got, 1)
	assert.Equal(t, 30.0, got[0].StartTime)
	llm.AssertExpectations(t)
}

func TestHookPayoffGateKeepsShortlist(t *testing.T) {
	testCases := []struct {
		name  string
		reply string
		err   error
	}{
		{name: "gate drops everything", reply: `[{"hookScore": 1, "payoffScore": 1, "oneClearIdea": false}, {"hookScore": 9, "payoffScore": 9, "oneClearIdea": false}]`},
		{name: "gate call fails", err: errors.New("timeout")},
		{name: "gate reply unparseable", reply: "no idea"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			llm := new(mocks.MockChatCompleter)
			llm.On("ChatCompletion", mock.Anything, scoreSystemPrompt, mock.Anything, mock.Anything).Return(scoringReply, nil)
			llm.On("ChatCompletion", mock.Anything, gateSystemPrompt, mock.Anything, mock.Anything).Return(tc.reply, tc.err)

			got, ok := scorerWith(llm, 6).Score(context.Background(), scoringSegments)

			require.True(t, ok)
			assert.Len(t, got, 2)
		})
	}
}

func TestSnapIsIdempotent(t *testing.T) {
	r := rand.New(rand.NewSource(3))
	for i := 0; i < 500; i++ {
		start := r.Float64() * 120
		end := start + r.Float64()*60
		once, ok := Snap(scoringSegments, start, end)
		require.True(t, ok)
		twice, _ := Snap(scoringSegments, once.Start, once.End)
		assert.Equal(t, once, twice)
	}

	raw, ok := Snap(nil, 1, 2)
	assert.False(t, ok)
	assert.Equal(t, 1.0, raw.Start)
}
