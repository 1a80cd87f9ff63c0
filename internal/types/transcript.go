package types

import (
	"encoding/json"
	"strings"
	"unicode/utf8"
)

// TranscriptVersion is the schema tag written with every persisted transcript.
// Version 0 is any record stored before the tag existed.
const TranscriptVersion = 1

type Word struct {
	Text       string  `json:"text"`
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	Confidence float64 `json:"confidence"`
	Speaker    string  `json:"speaker,omitempty"`
}

type Sentence struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

func (s Sentence) Duration() float64 { return s.End - s.Start }

// Transcript is word and sentence level timed text. SentenceGaps is optional:
// nil means unknown, not "no pauses".
type Transcript struct {
	Version      int        `json:"version"`
	Words        []Word     `json:"words"`
	Sentences    []Sentence `json:"sentences,omitempty"`
	SentenceGaps []float64  `json:"sentenceGaps,omitempty"`
}

// sentenceEnders covers Latin, CJK, Devanagari and Arabic/Urdu full stops.
var sentenceEnders = map[rune]bool{
	'.': true, '!': true, '?': true,
	'。': true, '！': true, '？': true,
	'।': true, '॥': true,
	'؟': true, '۔': true,
}

// EndsSentence reports whether text ends with a sentence-terminal mark.
func EndsSentence(text string) bool {
	t := strings.TrimSpace(text)
	if t == "" {
		return false
	}
	r, _ := utf8.DecodeLastRuneInString(t)
	return sentenceEnders[r]
}

// BuildSentences groups words into sentences at terminal punctuation. A
// trailing run of words without punctuation becomes a final sentence.
func BuildSentences(words []Word) []Sentence {
	var (
		sentences []Sentence
		parts     []string
		start     float64
		end       float64
	)
	flush := func() {
		if len(parts) == 0 {
			return
		}
		sentences = append(sentences, Sentence{
			Text:  strings.Join(parts, " "),
			Start: start,
			End:   end,
		})
		parts = parts[:0]
	}

	for _, w := range words {
		text := strings.TrimSpace(w.Text)
		if text == "" {
			continue
		}
		if len(parts) == 0 {
			start = w.Start
		}
		parts = append(parts, text)
		end = w.End
		if EndsSentence(text) {
			flush()
		}
	}
	flush()
	return sentences
}

// ComputeGaps returns the pause before each sentence; gaps[0] is 0.
func ComputeGaps(sentences []Sentence) []float64 {
	if len(sentences) == 0 {
		return nil
	}
	gaps := make([]float64, len(sentences))
	for i := 1; i < len(sentences); i++ {
		gaps[i] = sentences[i].Start - sentences[i-1].End
	}
	return gaps
}

// NewTranscript builds a current-version transcript with sentences and gaps
// derived from words.
func NewTranscript(words []Word) *Transcript {
	sentences := BuildSentences(words)
	return &Transcript{
		Version:      TranscriptVersion,
		Words:        words,
		Sentences:    sentences,
		SentenceGaps: ComputeGaps(sentences),
	}
}

// EnsureSentences fills Sentences from Words when a record predates them.
// Gaps are left as stored.
func (t *Transcript) EnsureSentences() []Sentence {
	if len(t.Sentences) == 0 && len(t.Words) > 0 {
		t.Sentences = BuildSentences(t.Words)
	}
	return t.Sentences
}

// Gap returns the pause before sentence i and whether it is known.
func (t *Transcript) Gap(i int) (float64, bool) {
	if i < 0 || i >= len(t.SentenceGaps) {
		return 0, false
	}
	return t.SentenceGaps[i], true
}

// Duration is the end of the last word.
func (t *Transcript) Duration() float64 {
	if t == nil || len(t.Words) == 0 {
		return 0
	}
	return t.Words[len(t.Words)-1].End
}

// WordsBetween returns the words fully inside [start, end].
func (t *Transcript) WordsBetween(start, end float64) []Word {
	var out []Word
	for _, w := range t.Words {
		if w.Start >= start && w.End <= end {
			out = append(out, w)
		}
	}
	return out
}

// DecodeTranscript parses any stored transcript version. Legacy records are
// upgraded in memory: missing sentences are rebuilt from words and the
// version tag is set; missing gaps stay nil.
func DecodeTranscript(data []byte) (*Transcript, error) {
	var t Transcript
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, err
	}
	t.Upgrade()
	return &t, nil
}

// Upgrade brings a legacy record to the current version in memory.
func (t *Transcript) Upgrade() {
	if t == nil || t.Version != 0 {
		return
	}
	t.EnsureSentences()
	t.Version = TranscriptVersion
}
