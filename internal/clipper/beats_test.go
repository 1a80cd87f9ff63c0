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

func TestNormalizeBeats(t *testing.T) {
	testCases := []struct {
		name  string
		beats []types.Beat
		n     int
		want  []types.Beat
	}{
		{
			name: "empty proposal covers everything",
			n:    5,
			want: []types.Beat{{StartSentenceIndex: 0, EndSentenceIndex: 4}},
		},
		{
			name:  "overlap is trimmed from the later beat",
			beats: []types.Beat{{StartSentenceIndex: 3, EndSentenceIndex: 8}, {StartSentenceIndex: 0, EndSentenceIndex: 5}},
			n:     10,
			want:  []types.Beat{{StartSentenceIndex: 0, EndSentenceIndex: 5}, {StartSentenceIndex: 6, EndSentenceIndex: 9}},
		},
		{
			name:  "hole is absorbed by the following beat",
			beats: []types.Beat{{StartSentenceIndex: 0, EndSentenceIndex: 2}, {StartSentenceIndex: 5, EndSentenceIndex: 9}},
			n:     10,
			want:  []types.Beat{{StartSentenceIndex: 0, EndSentenceIndex: 2}, {StartSentenceIndex: 3, EndSentenceIndex: 9}},
		},
		{
			name:  "short tail extends the last beat",
			beats: []types.Beat{{StartSentenceIndex: 0, EndSentenceIndex: 3}, {StartSentenceIndex: 4, EndSentenceIndex: 6}},
			n:     10,
			want:  []types.Beat{{StartSentenceIndex: 0, EndSentenceIndex: 3}, {StartSentenceIndex: 4, EndSentenceIndex: 9}},
		},
		{
			name:  "contained beat is dropped",
			beats: []types.Beat{{StartSentenceIndex: 0, EndSentenceIndex: 6}, {StartSentenceIndex: 2, EndSentenceIndex: 4}, {StartSentenceIndex: 7, EndSentenceIndex: 9}},
			n:     10,
			want:  []types.Beat{{StartSentenceIndex: 0, EndSentenceIndex: 6}, {StartSentenceIndex: 7, EndSentenceIndex: 9}},
		},
		{
			name:  "late first beat starts at zero",
			beats: []types.Beat{{StartSentenceIndex: 2, EndSentenceIndex: 9}},
			n:     10,
			want:  []types.Beat{{StartSentenceIndex: 0, EndSentenceIndex: 9}},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, NormalizeBeats(tc.beats, tc.n))
		})
	}
	assert.Nil(t, NormalizeBeats([]types.Beat{{StartSentenceIndex: 0, EndSentenceIndex: 1}}, 0))
}

func TestNormalizeBeatsIsAPartition(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	for round := 0; round < 200; round++ {
		n := 1 + r.Intn(40)
		var proposals []types.Beat
		for k := r.Intn(8); k > 0; k-- {
			start := r.Intn(n)
			proposals = append(proposals, types.Beat{StartSentenceIndex: start, EndSentenceIndex: start + r.Intn(n-start)})
		}

		beats := NormalizeBeats(proposals, n)

		require.NotEmpty(t, beats)
		next := 0
		for _, b := range beats {
			require.Equal(t, next, b.StartSentenceIndex)
			require.GreaterOrEqual(t, b.EndSentenceIndex, b.StartSentenceIndex)
			next = b.EndSentenceIndex + 1
		}
		require.Equal(t, n, next)
	}
}

func TestBeatDetectorParsesFencedReply(t *testing.T) {
	llm := new(mocks.MockChatCompleter)
	reply := "Here you go:\n```json\n[{\"startSentenceIndex\":0,\"endSentenceIndex\":1},{\"startSentenceIndex\":2,\"endSentenceIndex\":3},{\"startSentenceIndex\":9,\"endSentenceIndex\":12}]\n```"
	llm.On("ChatCompletion", mock.Anything, beatSystemPrompt, mocks.PromptContaining(`"gapBeforeSec": 0`), float32(0.2)).Return(reply, nil)

	beats, ok := NewBeatDetector(llm).Detect(context.Background(), transcriptOf(evenSentences(4, 5)))

	require.True(t, ok)
	assert.Equal(t, []types.Beat{{StartSentenceIndex: 0, EndSentenceIndex: 1}, {StartSentenceIndex: 2, EndSentenceIndex: 3}}, beats)
	llm.AssertExpectations(t)
}

func TestBeatDetectorFailures(t *testing.T) {
	tr := transcriptOf(evenSentences(4, 5))

	failing := new(mocks.MockChatCompleter)
	failing.On("ChatCompletion", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("", errors.New("boom"))
	_, ok := NewBeatDetector(failing).Detect(context.Background(), tr)
	assert.False(t, ok)

	garbage := new(mocks.MockChatCompleter)
	garbage.On("ChatCompletion", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("I cannot help with that", nil)
	_, ok = NewBeatDetector(garbage).Detect(context.Background(), tr)
	assert.False(t, ok)

	_, ok = NewBeatDetector(garbage).Detect(context.Background(), &types.Transcript{})
	assert.False(t, ok)
}

func TestBeatDetectorEmptyArrayCoversEverything(t *testing.T) {
	llm := new(mocks.MockChatCompleter)
	llm.On("ChatCompletion", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("[]", nil)

	beats, ok := NewBeatDetector(llm).Detect(context.Background(), transcriptOf(evenSentences(3, 5)))

	require.True(t, ok)
	assert.Equal(t, []types.Beat{{StartSentenceIndex: 0, EndSentenceIndex: 2}}, beats)
}
