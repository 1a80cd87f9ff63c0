package dto

import (
	"time"

	"clipforge/internal/types"
	apperrors "clipforge/pkg/errors"
)

// TranscribeReq is the optional body of POST /api/videos/:id/transcribe.
type TranscribeReq struct {
	Priority int `json:"priority"`
}

// JobRes is a job as the status API shows it.
type JobRes struct {
	ID          string                  `json:"id"`
	Type        types.JobType           `json:"type"`
	Status      types.JobStatus         `json:"status"`
	VideoID     *string                 `json:"videoId,omitempty"`
	ClipID      *string                 `json:"clipId,omitempty"`
	Progress    int                     `json:"progress"`
	Attempts    int                     `json:"attempts"`
	MaxRetries  int                     `json:"maxRetries"`
	Error       *apperrors.FriendlyError `json:"error,omitempty"`
	RawError    *string                 `json:"rawError,omitempty"`
	StartedAt   *time.Time              `json:"startedAt,omitempty"`
	CompletedAt *time.Time              `json:"completedAt,omitempty"`
	CreatedAt   time.Time               `json:"createdAt"`
}

// ClipRes is a clip without its owning video.
type ClipRes struct {
	ID               string                  `json:"id"`
	Title            string                  `json:"title"`
	StartTime        float64                 `json:"startTime"`
	EndTime          float64                 `json:"endTime"`
	Duration         float64                 `json:"duration"`
	Confidence       float64                 `json:"confidence"`
	Keywords         []string                `json:"keywords"`
	Reason           string                  `json:"reason"`
	AspectRatio      types.AspectRatio       `json:"aspectRatio"`
	Status           types.ClipStatus        `json:"status"`
	OutputStorageKey *string                 `json:"outputStorageKey,omitempty"`
	Error            *apperrors.FriendlyError `json:"error,omitempty"`
}

// VideoRes leaves the transcript out; it can run to megabytes.
type VideoRes struct {
	ID            string                  `json:"id"`
	Title         string                  `json:"title"`
	Status        types.VideoStatus       `json:"status"`
	DurationSec   float64                 `json:"durationSec"`
	Words         int                     `json:"words"`
	Error         *apperrors.FriendlyError `json:"error,omitempty"`
	TranscribedAt *time.Time              `json:"transcribedAt,omitempty"`
	Clips         []ClipRes               `json:"clips"`
}

func friendly(raw *string) *apperrors.FriendlyError {
	if raw == nil {
		return nil
	}
	f := apperrors.Friendly(*raw)
	return &f
}

func NewJobRes(j *types.Job) JobRes {
	return JobRes{
		ID:          j.ID,
		Type:        j.Type,
		Status:      j.Status,
		VideoID:     j.VideoID,
		ClipID:      j.ClipID,
		Progress:    j.Progress,
		Attempts:    j.Attempts,
		MaxRetries:  j.MaxRetries,
		Error:       friendly(j.Error),
		RawError:    j.Error,
		StartedAt:   j.StartedAt,
		CompletedAt: j.CompletedAt,
		CreatedAt:   j.CreatedAt,
	}
}

func NewClipRes(c types.Clip) ClipRes {
	keywords := c.Keywords
	if keywords == nil {
		keywords = []string{}
	}
	return ClipRes{
		ID:               c.ID,
		Title:            c.Title,
		StartTime:        c.StartTime,
		EndTime:          c.EndTime,
		Duration:         c.Duration,
		Confidence:       c.Confidence,
		Keywords:         keywords,
		Reason:           c.Reason,
		AspectRatio:      c.AspectRatio,
		Status:           c.Status,
		OutputStorageKey: c.OutputStorageKey,
		Error:            friendly(c.Error),
	}
}

func NewVideoRes(v *types.Video, clips []types.Clip) VideoRes {
	res := VideoRes{
		ID:            v.ID,
		Title:         v.Title,
		Status:        v.Status,
		DurationSec:   v.DurationSec,
		Error:         friendly(v.Error),
		TranscribedAt: v.TranscribedAt,
		Clips:         make([]ClipRes, 0, len(clips)),
	}
	if v.Transcript != nil {
		res.Words = len(v.Transcript.Words)
	}
	for _, c := range clips {
		res.Clips = append(res.Clips, NewClipRes(c))
	}
	return res
}
