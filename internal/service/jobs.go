package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"clipforge/internal/types"
	"clipforge/log"
	apperrors "clipforge/pkg/errors"
)

// Progress checkpoints reported on the Job record.
const (
	progressStarted     = 10
	progressTranscribed = 30
	progressPersisting  = 80
	progressRendering   = 40
	progressUploading   = 90
)

// settleTimeout bounds the bookkeeping writes made after an attempt failed.
const settleTimeout = 10 * time.Second

// detached keeps ctx's values but drops its deadline, so terminal state still
// lands after a task timeout or a provider deadline cancelled the attempt.
func detached(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), settleTimeout)
}

// Process implements types.JobProcessor for both queue backends.
func (s *Service) Process(ctx context.Context, jobID string, payload types.JobPayload, attempt types.Attempt) error {
	switch payload.Type {
	case types.JobTypeTranscribe:
		return s.HandleTranscribe(ctx, jobID, payload.VideoID, attempt)
	case types.JobTypeGenerateClip:
		return s.HandleGenerateClip(ctx, jobID, payload.ClipID, attempt)
	default:
		return apperrors.Permanent(fmt.Errorf("unknown job type %q", payload.Type))
	}
}

// startJob moves the job to RUNNING. ok is false when the delivery must be
// dropped: the job row is gone (its video was deleted) or it already reached
// a terminal state.
func (s *Service) startJob(ctx context.Context, jobID string) (ok bool, err error) {
	err = s.Repo.StartJob(ctx, jobID)
	switch {
	case err == nil:
		return true, nil
	case apperrors.Is(err, apperrors.CodeJobNotFound):
		log.GetLogger().Info("[Worker] job no longer exists, skipping", zap.String("job_id", jobID))
		return false, nil
	case apperrors.Is(err, apperrors.CodeInvalidTransition):
		log.GetLogger().Info("[Worker] job already finished, skipping", zap.String("job_id", jobID))
		return false, nil
	default:
		return false, err
	}
}

func (s *Service) progress(ctx context.Context, jobID string, p int) {
	if err := s.Repo.SetJobProgress(ctx, jobID, p); err != nil {
		log.GetLogger().Warn("[Worker] failed to record progress", zap.String("job_id", jobID), zap.Error(err))
	}
}

// settleFailure records a failed attempt. The job fails for good when the
// error is permanent or no retry follows; otherwise it stays RUNNING for the
// queue's next delivery.
func (s *Service) settleFailure(ctx context.Context, jobID string, attempt types.Attempt, cause error) {
	ctx, cancel := detached(ctx)
	defer cancel()

	msg := cause.Error()
	final := apperrors.IsPermanent(cause) || attempt.Final()

	var err error
	if final {
		err = s.Repo.FailJob(ctx, jobID, msg)
	} else {
		err = s.Repo.RecordJobError(ctx, jobID, msg)
	}
	switch {
	case apperrors.Is(err, apperrors.CodeJobNotFound):
		log.GetLogger().Info("[Worker] job removed while running", zap.String("job_id", jobID))
	case err != nil:
		log.GetLogger().Error("[Worker] failed to record job failure", zap.String("job_id", jobID), zap.Error(err))
	}
	log.GetLogger().Warn("[Worker] job attempt failed",
		zap.String("job_id", jobID),
		zap.Int("retried", attempt.Retried),
		zap.Bool("final", final),
		zap.Error(cause))
}

func (s *Service) markVideoError(ctx context.Context, videoID string, cause error) {
	ctx, cancel := detached(ctx)
	defer cancel()
	if err := s.Repo.SetVideoStatus(ctx, videoID, types.VideoStatusError, errString(cause)); err != nil {
		log.GetLogger().Warn("[Worker] failed to mark video errored", zap.String("video_id", videoID), zap.Error(err))
	}
}

func (s *Service) markClipError(ctx context.Context, clipID string, cause error) {
	ctx, cancel := detached(ctx)
	defer cancel()
	if err := s.Repo.SetClipStatus(ctx, clipID, types.ClipStatusError, errString(cause)); err != nil {
		log.GetLogger().Warn("[Worker] failed to mark clip errored", zap.String("clip_id", clipID), zap.Error(err))
	}
}

func errString(err error) *string {
	msg := err.Error()
	return &msg
}
