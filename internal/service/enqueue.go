package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"clipforge/internal/types"
	"clipforge/log"
	apperrors "clipforge/pkg/errors"
)

// EnqueueTranscription creates a QUEUED TRANSCRIBE job for the video and
// hands it to the queue.
func (s *Service) EnqueueTranscription(ctx context.Context, videoID string, priority int) (*types.Job, error) {
	if _, err := s.Repo.GetVideo(ctx, videoID); err != nil {
		return nil, err
	}
	job := &types.Job{
		ID:         uuid.NewString(),
		Type:       types.JobTypeTranscribe,
		Status:     types.JobStatusQueued,
		VideoID:    &videoID,
		MaxRetries: s.opts.MaxRetry,
		Priority:   priority,
	}
	return s.submit(ctx, job, types.JobPayload{Type: types.JobTypeTranscribe, VideoID: videoID})
}

// EnqueueRender queues a render for one clip. A clip that is already
// COMPLETED is skipped and nil comes back.
func (s *Service) EnqueueRender(ctx context.Context, clipID string) (*types.Job, error) {
	clip, err := s.Repo.GetClip(ctx, clipID)
	if err != nil {
		return nil, err
	}
	if clip.Status == types.ClipStatusCompleted {
		return nil, nil
	}
	return s.enqueueClipJob(ctx, clip.VideoID, clip.ID, 0)
}

// EnqueueRenderAll queues a render for every PENDING clip of the video.
func (s *Service) EnqueueRenderAll(ctx context.Context, videoID string) ([]*types.Job, error) {
	if _, err := s.Repo.GetVideo(ctx, videoID); err != nil {
		return nil, err
	}
	clips, err := s.Repo.ListClips(ctx, videoID, types.ClipStatusPending)
	if err != nil {
		return nil, err
	}
	jobs := make([]*types.Job, 0, len(clips))
	for _, c := range clips {
		job, err := s.enqueueClipJob(ctx, videoID, c.ID, 0)
		if err != nil {
			return jobs, err
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

// RegenerateClips reruns clip selection on a READY video and replaces its
// clips. Renders are not queued.
func (s *Service) RegenerateClips(ctx context.Context, videoID string) ([]types.Clip, error) {
	video, err := s.Repo.GetVideo(ctx, videoID)
	if err != nil {
		return nil, err
	}
	if video.Status != types.VideoStatusReady || video.Transcript == nil {
		return nil, apperrors.New(apperrors.CodeInvalidState, fmt.Sprintf("video %s is %s, not READY", videoID, video.Status))
	}
	return s.generateClips(ctx, videoID, video.Transcript, false)
}

// DeleteVideo removes the video with its clips and jobs, then its stored
// objects. Object deletion is best-effort.
func (s *Service) DeleteVideo(ctx context.Context, videoID string) error {
	video, clips, err := s.Repo.DeleteVideo(ctx, videoID)
	if err != nil {
		return err
	}
	keys := []string{video.StorageKey}
	for _, c := range clips {
		if c.OutputStorageKey != nil {
			keys = append(keys, *c.OutputStorageKey)
		}
	}
	for _, key := range keys {
		if key == "" {
			continue
		}
		if err := s.Store.Delete(ctx, key); err != nil {
			log.GetLogger().Warn("[Service] failed to delete object", zap.String("key", key), zap.Error(err))
		}
	}
	log.GetLogger().Info("[Service] video deleted", zap.String("video_id", videoID), zap.Int("clips", len(clips)))
	return nil
}

// Job returns the job record for status polling.
func (s *Service) Job(ctx context.Context, jobID string) (*types.Job, error) {
	return s.Repo.GetJob(ctx, jobID)
}

// VideoWithClips returns the video and its clips, best first.
func (s *Service) VideoWithClips(ctx context.Context, videoID string) (*types.Video, []types.Clip, error) {
	video, err := s.Repo.GetVideo(ctx, videoID)
	if err != nil {
		return nil, nil, err
	}
	clips, err := s.Repo.ListClips(ctx, videoID, "")
	if err != nil {
		return nil, nil, err
	}
	return video, clips, nil
}

func (s *Service) enqueueClipJob(ctx context.Context, videoID, clipID string, priority int) (*types.Job, error) {
	job := &types.Job{
		ID:         uuid.NewString(),
		Type:       types.JobTypeGenerateClip,
		Status:     types.JobStatusQueued,
		VideoID:    &videoID,
		ClipID:     &clipID,
		MaxRetries: s.opts.MaxRetry,
		Priority:   priority,
	}
	return s.submit(ctx, job, types.JobPayload{Type: types.JobTypeGenerateClip, VideoID: videoID, ClipID: clipID})
}

// submit persists the job before handing it to the queue so a worker never
// sees an id without a row. A job the queue refused is removed again.
func (s *Service) submit(ctx context.Context, job *types.Job, payload types.JobPayload) (*types.Job, error) {
	if err := s.Repo.CreateJob(ctx, job); err != nil {
		return nil, err
	}
	err := s.Queue.Enqueue(ctx, payload, types.EnqueueOptions{
		JobID:    job.ID,
		Priority: job.Priority,
		MaxRetry: job.MaxRetries,
	})
	if err == nil {
		log.GetLogger().Info("[Service] job enqueued",
			zap.String("job_id", job.ID),
			zap.String("type", string(job.Type)))
		return job, nil
	}

	if delErr := s.Repo.DeleteJob(ctx, job.ID); delErr != nil {
		log.GetLogger().Warn("[Service] failed to remove unqueued job", zap.String("job_id", job.ID), zap.Error(delErr))
	}
	return nil, apperrors.Wrap(apperrors.CodeEnqueueFailed, "enqueue "+string(job.Type), err)
}
