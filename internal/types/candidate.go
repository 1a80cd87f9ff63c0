package types

// Segment is a sentence-aligned candidate window. FirstSentence and
// LastSentence are inclusive indices into the transcript's sentences.
type Segment struct {
	Start         float64 `json:"start"`
	End           float64 `json:"end"`
	Text          string  `json:"text"`
	FirstSentence int     `json:"firstSentence"`
	LastSentence  int     `json:"lastSentence"`
}

func (s Segment) Duration() float64 { return s.End - s.Start }

// Beat is an inclusive range of sentence indices holding one idea.
type Beat struct {
	StartSentenceIndex int `json:"startSentenceIndex"`
	EndSentenceIndex   int `json:"endSentenceIndex"`
}

// ClipSuggestion is a scored candidate that has not been persisted yet.
type ClipSuggestion struct {
	StartTime  float64  `json:"startTime"`
	EndTime    float64  `json:"endTime"`
	Title      string   `json:"title"`
	Keywords   []string `json:"keywords"`
	Confidence float64  `json:"confidence"`
	Reason     string   `json:"reason"`
}

func (c ClipSuggestion) Duration() float64 { return c.EndTime - c.StartTime }
