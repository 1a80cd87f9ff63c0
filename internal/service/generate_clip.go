package service

import (
	"context"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"clipforge/internal/blob"
	"clipforge/internal/render"
	"clipforge/internal/types"
	"clipforge/log"
)

// HandleGenerateClip renders one clip and uploads the result. A clip that is
// already COMPLETED only completes the job.
func (s *Service) HandleGenerateClip(ctx context.Context, jobID, clipID string, attempt types.Attempt) error {
	ok, err := s.startJob(ctx, jobID)
	if err != nil || !ok {
		return err
	}

	clip, err := s.Repo.GetClip(ctx, clipID)
	if err != nil {
		s.settleFailure(ctx, jobID, attempt, err)
		return err
	}
	if clip.Status == types.ClipStatusCompleted {
		log.GetLogger().Info("[Worker] clip already rendered", zap.String("clip_id", clipID))
		return s.Repo.CompleteJob(ctx, jobID)
	}

	if err = s.Repo.SetClipStatus(ctx, clipID, types.ClipStatusProcessing, nil); err != nil {
		s.settleFailure(ctx, jobID, attempt, err)
		return err
	}

	key, err := s.renderClip(ctx, jobID, clip)
	if err != nil {
		s.markClipError(ctx, clipID, err)
		s.settleFailure(ctx, jobID, attempt, err)
		return err
	}

	if err = s.Repo.CompleteClip(ctx, clipID, key); err != nil {
		s.settleFailure(ctx, jobID, attempt, err)
		return err
	}
	if err = s.Repo.CompleteJob(ctx, jobID); err != nil {
		return err
	}
	log.GetLogger().Info("[Worker] clip rendered", zap.String("clip_id", clipID), zap.String("key", key))
	return nil
}

func (s *Service) renderClip(ctx context.Context, jobID string, clip *types.Clip) (string, error) {
	video, err := s.Repo.GetVideo(ctx, clip.VideoID)
	if err != nil {
		return "", err
	}

	dir, err := s.workDir(jobID)
	if err != nil {
		return "", err
	}
	defer os.RemoveAll(dir)

	src := filepath.Join(dir, "source"+mediaExt(video.StorageKey))
	if err = blob.DownloadToFile(ctx, s.Store, video.StorageKey, src); err != nil {
		return "", err
	}

	var words []types.Word
	if video.Transcript != nil {
		words = video.Transcript.WordsBetween(clip.StartTime, clip.EndTime)
	}
	s.progress(ctx, jobID, progressRendering)

	out := filepath.Join(dir, "clip.mp4")
	res, err := s.Renderer.Render(ctx, render.Request{
		SourcePath:  src,
		OutputPath:  out,
		Start:       clip.StartTime,
		End:         clip.EndTime,
		AspectRatio: clip.AspectRatio,
		Words:       words,
		Watermark:   s.opts.Watermark,
	})
	if err != nil {
		return "", err
	}
	s.progress(ctx, jobID, progressUploading)

	key := clipOutputKey(clip.ID)
	if err = blob.UploadFile(ctx, s.Store, key, out, "video/mp4"); err != nil {
		return "", err
	}
	log.GetLogger().Debug("[Worker] clip encoded",
		zap.String("clip_id", clip.ID),
		zap.Float64("start", res.Start),
		zap.Float64("end", res.End))
	return key, nil
}
