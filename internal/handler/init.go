package handler

import (
	"context"

	"clipforge/internal/types"
)

// Jobs is the part of service.Service the API drives.
type Jobs interface {
	Job(ctx context.Context, jobID string) (*types.Job, error)
	VideoWithClips(ctx context.Context, videoID string) (*types.Video, []types.Clip, error)
	EnqueueTranscription(ctx context.Context, videoID string, priority int) (*types.Job, error)
	RegenerateClips(ctx context.Context, videoID string) ([]types.Clip, error)
	EnqueueRenderAll(ctx context.Context, videoID string) ([]*types.Job, error)
	EnqueueRender(ctx context.Context, clipID string) (*types.Job, error)
	DeleteVideo(ctx context.Context, videoID string) error
}

type Handler struct {
	Service Jobs
}

func NewHandler(svc Jobs) Handler {
	return Handler{Service: svc}
}
