package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func words(triples ...any) []Word {
	var out []Word
	for i := 0; i < len(triples); i += 3 {
		out = append(out, Word{Text: triples[i].(string), Start: triples[i+1].(float64), End: triples[i+2].(float64), Confidence: 0.9})
	}
	return out
}

func TestBuildSentences(t *testing.T) {
	ws := words(
		"Hello", 0.0, 0.4, "there.", 0.5, 0.9,
		"这是", 1.0, 1.4, "测试。", 1.5, 2.0,
		"नमस्ते", 2.5, 3.0, "दुनिया।", 3.1, 3.5,
		"trailing", 4.0, 4.5, "words", 4.6, 5.0,
	)

	got := BuildSentences(ws)

	require.Len(t, got, 4)
	assert.Equal(t, Sentence{Text: "Hello there.", Start: 0, End: 0.9}, got[0])
	assert.Equal(t, Sentence{Text: "这是 测试。", Start: 1.0, End: 2.0}, got[1])
	assert.Equal(t, "नमस्ते दुनिया।", got[2].Text)
	assert.Equal(t, Sentence{Text: "trailing words", Start: 4.0, End: 5.0}, got[3])
}

func TestComputeGaps(t *testing.T) {
	gaps := ComputeGaps([]Sentence{{Start: 0, End: 2}, {Start: 2.5, End: 4}, {Start: 9, End: 10}})
	assert.InDeltaSlice(t, []float64{0, 0.5, 5}, gaps, 1e-9)
	assert.Nil(t, ComputeGaps(nil))
}

func TestSentencesAreOrderedAndNonOverlapping(t *testing.T) {
	tr := NewTranscript(words(
		"One.", 0.0, 1.0, "Two", 1.2, 1.5, "words.", 1.6, 2.0, "Three!", 2.5, 3.0, "Four?", 3.5, 4.0,
	))

	require.Len(t, tr.Sentences, 4)
	for i := 1; i < len(tr.Sentences); i++ {
		assert.GreaterOrEqual(t, tr.Sentences[i].Start, tr.Sentences[i-1].End)
	}
	assert.Equal(t, TranscriptVersion, tr.Version)
	assert.Len(t, tr.SentenceGaps, 4)
}

func TestDecodeTranscriptLegacyRecord(t *testing.T) {
	legacy := []byte(`{"words":[{"text":"Hi.","start":0,"end":0.5,"confidence":0.9},{"text":"Bye.","start":1,"end":1.5,"confidence":0.8}]}`)

	tr, err := DecodeTranscript(legacy)
	require.NoError(t, err)

	assert.Equal(t, TranscriptVersion, tr.Version)
	assert.Len(t, tr.Sentences, 2)
	assert.Nil(t, tr.SentenceGaps)
	_, ok := tr.Gap(1)
	assert.False(t, ok)
}

func TestDecodeTranscriptCurrentRecordKeepsStoredFields(t *testing.T) {
	data := []byte(`{"version":1,"words":[],"sentences":[{"text":"A.","start":0,"end":1}],"sentenceGaps":[0]}`)

	tr, err := DecodeTranscript(data)
	require.NoError(t, err)

	assert.Len(t, tr.Sentences, 1)
	gap, ok := tr.Gap(0)
	assert.True(t, ok)
	assert.Equal(t, 0.0, gap)
}

func TestWordsBetween(t *testing.T) {
	tr := NewTranscript(words("a", 0.0, 1.0, "b", 1.0, 2.0, "c.", 2.0, 3.0))
	got := tr.WordsBetween(0.5, 3.0)
	require.Len(t, got, 2)
	assert.Equal(t, "b", got[0].Text)
	assert.Equal(t, 3.0, tr.Duration())
}

func TestJobStatusTransitions(t *testing.T) {
	testCases := []struct {
		from JobStatus
		to   JobStatus
		want bool
	}{
		{JobStatusQueued, JobStatusRunning, true},
		{JobStatusQueued, JobStatusCompleted, false},
		{JobStatusQueued, JobStatusFailed, false},
		{JobStatusRunning, JobStatusRunning, true},
		{JobStatusRunning, JobStatusCompleted, true},
		{JobStatusRunning, JobStatusFailed, true},
		{JobStatusCompleted, JobStatusRunning, false},
		{JobStatusFailed, JobStatusRunning, false},
		{JobStatusCompleted, JobStatusFailed, false},
	}

	for _, tc := range testCases {
		t.Run(string(tc.from)+"->"+string(tc.to), func(t *testing.T) {
			assert.Equal(t, tc.want, tc.from.CanTransition(tc.to))
		})
	}

	assert.ElementsMatch(t, []JobStatus{JobStatusQueued, JobStatusRunning}, JobSourcesOf(JobStatusRunning))
	assert.ElementsMatch(t, []JobStatus{JobStatusRunning}, JobSourcesOf(JobStatusCompleted))
	assert.True(t, JobStatusFailed.IsTerminal())
	assert.False(t, JobStatusRunning.IsTerminal())
}

func TestVideoAndClipTransitions(t *testing.T) {
	assert.True(t, VideoStatusUploaded.CanTransition(VideoStatusTranscribing))
	assert.False(t, VideoStatusUploaded.CanTransition(VideoStatusReady))
	assert.True(t, VideoStatusError.CanTransition(VideoStatusTranscribing))

	assert.True(t, ClipStatusPending.CanTransition(ClipStatusProcessing))
	assert.True(t, ClipStatusError.CanTransition(ClipStatusProcessing))
	assert.False(t, ClipStatusCompleted.CanTransition(ClipStatusProcessing))
	assert.False(t, ClipStatusPending.CanTransition(ClipStatusCompleted))
}

func TestAspectRatio(t *testing.T) {
	assert.Equal(t, "9:16", AspectRatioVertical.Ratio())
	assert.Equal(t, "1:1", ParseAspectRatio("1:1").Ratio())
	assert.Equal(t, AspectRatioLandscape, ParseAspectRatio("LANDSCAPE"))
	assert.Equal(t, AspectRatioVertical, ParseAspectRatio("bogus"))
}

func TestAttemptFinal(t *testing.T) {
	assert.False(t, Attempt{Retried: 0, MaxRetry: 3}.Final())
	assert.True(t, Attempt{Retried: 3, MaxRetry: 3}.Final())
	assert.True(t, Attempt{}.Final())
}
