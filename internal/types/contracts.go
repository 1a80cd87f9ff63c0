package types

import "context"

// Transcriber turns a local media file into word timings. Implementations
// poll their provider until the transcript is ready and report a missing
// audio track as an errors.CodeNoAudio AppError.
type Transcriber interface {
	Transcribe(ctx context.Context, mediaPath string) ([]Word, error)
}

// ChatCompleter is the reasoning collaborator used by the clip pipeline.
type ChatCompleter interface {
	ChatCompletion(ctx context.Context, systemPrompt, userPrompt string, temperature float32) (string, error)
}

// JobPayload is the wire contract between enqueuer and worker.
type JobPayload struct {
	Type    JobType `json:"type"`
	VideoID string  `json:"videoId,omitempty"`
	ClipID  string  `json:"clipId,omitempty"`
}

type EnqueueOptions struct {
	JobID    string
	Priority int
	MaxRetry int
}

// Enqueuer is the producer side of the work queue.
type Enqueuer interface {
	Enqueue(ctx context.Context, payload JobPayload, opts EnqueueOptions) error
}

// Attempt describes which delivery of a queue entry is being processed.
type Attempt struct {
	Retried  int
	MaxRetry int
}

// Final reports whether no queue retry will follow a failure of this attempt.
func (a Attempt) Final() bool { return a.Retried >= a.MaxRetry }

// JobProcessor is the consumer side: both queue backends hand every
// delivery to it.
type JobProcessor interface {
	Process(ctx context.Context, jobID string, payload JobPayload, attempt Attempt) error
}
