package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"clipforge/internal/blob"
	"clipforge/internal/types"
	"clipforge/log"
	apperrors "clipforge/pkg/errors"
	"clipforge/pkg/ffmpeg"
)

// HandleTranscribe runs one delivery of a TRANSCRIBE job: finalize a pending
// upload, transcribe with a single audio-extraction fallback, persist the
// transcript, then generate clips and fan out their render jobs.
func (s *Service) HandleTranscribe(ctx context.Context, jobID, videoID string, attempt types.Attempt) error {
	ok, err := s.startJob(ctx, jobID)
	if err != nil || !ok {
		return err
	}

	video, err := s.Repo.GetVideo(ctx, videoID)
	if err != nil {
		s.settleFailure(ctx, jobID, attempt, err)
		return err
	}

	transcript, started, err := s.transcribe(ctx, jobID, video)
	if err != nil {
		if started {
			s.markVideoError(ctx, videoID, err)
		}
		s.settleFailure(ctx, jobID, attempt, err)
		return err
	}

	if err = s.Repo.CompleteJob(ctx, jobID); err != nil {
		return err
	}
	log.GetLogger().Info("[Worker] transcription completed",
		zap.String("job_id", jobID),
		zap.String("video_id", videoID),
		zap.Int("words", len(transcript.Words)),
		zap.Int("sentences", len(transcript.Sentences)))

	if _, err = s.generateClips(ctx, videoID, transcript, true); err != nil {
		log.GetLogger().Warn("[Worker] clip generation failed", zap.String("video_id", videoID), zap.Error(err))
	}
	return nil
}

// transcribe reports started once the video was moved to TRANSCRIBING. A
// pending upload is finalized before that, so a rejected upload leaves the
// video status untouched.
func (s *Service) transcribe(ctx context.Context, jobID string, video *types.Video) (*types.Transcript, bool, error) {
	dir, err := s.workDir(jobID)
	if err != nil {
		return nil, false, err
	}
	defer os.RemoveAll(dir)

	var src string
	if strings.HasPrefix(video.StorageKey, s.opts.PendingPrefix) {
		if src, err = s.finalizeUpload(ctx, video, dir); err != nil {
			return nil, false, err
		}
	} else {
		src = filepath.Join(dir, "source"+mediaExt(video.StorageKey))
		if err = blob.DownloadToFile(ctx, s.Store, video.StorageKey, src); err != nil {
			return nil, false, err
		}
	}

	if err = s.Repo.SetVideoStatus(ctx, video.ID, types.VideoStatusTranscribing, nil); err != nil {
		return nil, false, err
	}
	s.progress(ctx, jobID, progressStarted)

	words, err := s.Transcriber.Transcribe(ctx, src)
	if apperrors.Is(err, apperrors.CodeNoAudio) {
		log.GetLogger().Info("[Worker] provider found no audio, retrying with extracted track", zap.String("video_id", video.ID))
		audio := filepath.Join(dir, "audio.wav")
		if exErr := s.Media.ExtractAudio(ctx, src, audio); exErr != nil {
			return nil, true, exErr
		}
		words, err = s.Transcriber.Transcribe(ctx, audio)
	}
	if err != nil {
		return nil, true, err
	}
	if len(words) == 0 {
		return nil, true, apperrors.ErrNoTranscript
	}
	s.progress(ctx, jobID, progressTranscribed)

	s.progress(ctx, jobID, progressPersisting)
	transcript := types.NewTranscript(words)
	if err = s.Repo.SaveTranscript(ctx, video.ID, transcript); err != nil {
		return nil, true, err
	}
	return transcript, true, nil
}

// finalizeUpload validates a pending upload and moves it to its permanent
// key. It returns the local copy so the caller need not download it again.
func (s *Service) finalizeUpload(ctx context.Context, video *types.Video, dir string) (string, error) {
	pendingKey := video.StorageKey
	ext := mediaExt(pendingKey)
	local := filepath.Join(dir, "upload"+ext)
	if err := blob.DownloadToFile(ctx, s.Store, pendingKey, local); err != nil {
		if errors.Is(err, blob.ErrNotFound) {
			return "", apperrors.Wrap(apperrors.CodeUploadNotFinished, "pending upload missing: "+pendingKey, apperrors.Permanent(err))
		}
		return "", err
	}

	info, err := s.Media.Probe(ctx, local)
	if err != nil {
		return "", err
	}
	if err = ffmpeg.Validate(info, s.opts.Limits); err != nil {
		return "", apperrors.Permanent(err)
	}

	key := sourceKey(video.ID, ext)
	if err = blob.UploadFile(ctx, s.Store, key, local, "video/"+strings.TrimPrefix(ext, ".")); err != nil {
		return "", err
	}
	if err = s.Repo.UpdateVideoSource(ctx, video.ID, key, info.Duration); err != nil {
		return "", err
	}
	if err = s.Store.Delete(ctx, pendingKey); err != nil {
		log.GetLogger().Warn("[Worker] failed to delete pending upload", zap.String("key", pendingKey), zap.Error(err))
	}

	video.StorageKey = key
	video.DurationSec = info.Duration
	log.GetLogger().Info("[Worker] upload finalized",
		zap.String("video_id", video.ID),
		zap.String("key", key),
		zap.Float64("duration", info.Duration))
	return local, nil
}

// generateClips replaces the video's clips with a fresh pipeline run and,
// when enqueue is set, queues a render job per clip.
func (s *Service) generateClips(ctx context.Context, videoID string, transcript *types.Transcript, enqueue bool) ([]types.Clip, error) {
	if exists, err := s.Repo.VideoExists(ctx, videoID); err != nil || !exists {
		return nil, err
	}

	res, err := s.Pipeline.Generate(ctx, transcript)
	if err != nil {
		return nil, err
	}

	clips := lo.Map(res.Suggestions, func(c types.ClipSuggestion, _ int) types.Clip {
		return types.Clip{
			ID:          uuid.NewString(),
			VideoID:     videoID,
			Title:       c.Title,
			StartTime:   c.StartTime,
			EndTime:     c.EndTime,
			Duration:    c.Duration(),
			Confidence:  c.Confidence,
			Keywords:    c.Keywords,
			Reason:      c.Reason,
			AspectRatio: s.opts.AspectRatio,
			Status:      types.ClipStatusPending,
		}
	})
	if err = s.Repo.ReplaceClips(ctx, videoID, clips); err != nil {
		return nil, err
	}
	log.GetLogger().Info("[Worker] clips generated", zap.String("video_id", videoID), zap.Int("clips", len(clips)))

	if !enqueue {
		return clips, nil
	}
	if exists, err := s.Repo.VideoExists(ctx, videoID); err != nil || !exists {
		return clips, err
	}
	for _, c := range clips {
		if _, err := s.enqueueClipJob(ctx, videoID, c.ID, 0); err != nil {
			log.GetLogger().Warn("[Worker] failed to enqueue render", zap.String("clip_id", c.ID), zap.Error(err))
		}
	}
	return clips, nil
}
