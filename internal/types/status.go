package types

type VideoStatus string

const (
	VideoStatusUploaded     VideoStatus = "UPLOADED"
	VideoStatusTranscribing VideoStatus = "TRANSCRIBING"
	VideoStatusReady        VideoStatus = "READY"
	VideoStatusError        VideoStatus = "ERROR"
)

type ClipStatus string

const (
	ClipStatusPending    ClipStatus = "PENDING"
	ClipStatusProcessing ClipStatus = "PROCESSING"
	ClipStatusCompleted  ClipStatus = "COMPLETED"
	ClipStatusError      ClipStatus = "ERROR"
)

type JobStatus string

const (
	JobStatusQueued    JobStatus = "QUEUED"
	JobStatusRunning   JobStatus = "RUNNING"
	JobStatusCompleted JobStatus = "COMPLETED"
	JobStatusFailed    JobStatus = "FAILED"
)

// Same-state edges on TRANSCRIBING, PROCESSING and RUNNING are queue retries
// of an attempt that did not reach a terminal state.
var videoTransitions = map[VideoStatus][]VideoStatus{
	VideoStatusUploaded:     {VideoStatusTranscribing},
	VideoStatusTranscribing: {VideoStatusTranscribing, VideoStatusReady, VideoStatusError},
	VideoStatusReady:        {VideoStatusTranscribing},
	VideoStatusError:        {VideoStatusTranscribing},
}

var clipTransitions = map[ClipStatus][]ClipStatus{
	ClipStatusPending:    {ClipStatusProcessing},
	ClipStatusProcessing: {ClipStatusProcessing, ClipStatusCompleted, ClipStatusError},
	ClipStatusError:      {ClipStatusProcessing},
}

// Terminal job states have no outgoing edges.
var jobTransitions = map[JobStatus][]JobStatus{
	JobStatusQueued:  {JobStatusRunning},
	JobStatusRunning: {JobStatusRunning, JobStatusCompleted, JobStatusFailed},
}

func canTransition[S comparable](table map[S][]S, from, to S) bool {
	for _, next := range table[from] {
		if next == to {
			return true
		}
	}
	return false
}

func sourcesOf[S comparable](table map[S][]S, to S) []S {
	var out []S
	for from, nexts := range table {
		for _, next := range nexts {
			if next == to {
				out = append(out, from)
				break
			}
		}
	}
	return out
}

func (s VideoStatus) CanTransition(to VideoStatus) bool {
	return canTransition(videoTransitions, s, to)
}

// VideoSourcesOf lists every status that may move to the given one.
func VideoSourcesOf(to VideoStatus) []VideoStatus { return sourcesOf(videoTransitions, to) }

func (s ClipStatus) CanTransition(to ClipStatus) bool {
	return canTransition(clipTransitions, s, to)
}

func ClipSourcesOf(to ClipStatus) []ClipStatus { return sourcesOf(clipTransitions, to) }

func (s JobStatus) CanTransition(to JobStatus) bool {
	return canTransition(jobTransitions, s, to)
}

func JobSourcesOf(to JobStatus) []JobStatus { return sourcesOf(jobTransitions, to) }

func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

func (s ClipStatus) IsTerminal() bool {
	return s == ClipStatusCompleted
}
