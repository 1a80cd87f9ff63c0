package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"clipforge/internal/types"
	apperrors "clipforge/pkg/errors"
)

const clipBatchSize = 100

// StaleJobMessage is recorded on jobs that were RUNNING when a worker died.
const StaleJobMessage = "interrupted by worker restart"

// Repository persists videos, clips and jobs. Status writes are conditional
// on the current status, so a transition the state machine forbids affects no
// row and comes back as ErrInvalidTransition.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func dbError(op string, err error) error {
	return apperrors.Wrap(apperrors.CodeDBError, op, err)
}

func (r *Repository) find(ctx context.Context, dst any, id string, notFound error) error {
	err := r.db.WithContext(ctx).Where("id = ?", id).First(dst).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound
	}
	if err != nil {
		return dbError("find "+id, err)
	}
	return nil
}

// transition applies updates plus the new status to the row with id, if its
// current status is one of from.
func transition[S ~string](ctx context.Context, db *gorm.DB, model any, id string, from []S, to S, updates map[string]any, notFound error) error {
	if updates == nil {
		updates = map[string]any{}
	}
	updates["status"] = to
	res := db.WithContext(ctx).Model(model).Where("id = ? AND status IN ?", id, from).Updates(updates)
	if res.Error != nil {
		return dbError(fmt.Sprintf("set status %s on %s", to, id), res.Error)
	}
	if res.RowsAffected > 0 {
		return nil
	}

	var count int64
	if err := db.WithContext(ctx).Model(model).Where("id = ?", id).Count(&count).Error; err != nil {
		return dbError("count "+id, err)
	}
	if count == 0 {
		return notFound
	}
	return apperrors.Wrap(apperrors.CodeInvalidTransition, fmt.Sprintf("cannot move %s to %s", id, to), apperrors.ErrInvalidTransition)
}

// Videos

func (r *Repository) CreateVideo(ctx context.Context, v *types.Video) error {
	if v.Status == "" {
		v.Status = types.VideoStatusUploaded
	}
	if err := r.db.WithContext(ctx).Create(v).Error; err != nil {
		return dbError("create video", err)
	}
	return nil
}

// GetVideo loads a video, upgrading a legacy transcript in memory.
func (r *Repository) GetVideo(ctx context.Context, id string) (*types.Video, error) {
	var v types.Video
	if err := r.find(ctx, &v, id, apperrors.ErrVideoNotFound); err != nil {
		return nil, err
	}
	v.Transcript.Upgrade()
	return &v, nil
}

func (r *Repository) VideoExists(ctx context.Context, id string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&types.Video{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, dbError("count video", err)
	}
	return count > 0, nil
}

// SetVideoStatus moves a video to status. errMsg is stored for ERROR and
// cleared otherwise.
func (r *Repository) SetVideoStatus(ctx context.Context, id string, to types.VideoStatus, errMsg *string) error {
	return transition(ctx, r.db, &types.Video{}, id, types.VideoSourcesOf(to), to,
		map[string]any{"error": errMsg}, apperrors.ErrVideoNotFound)
}

// SaveTranscript stores the transcript and marks the video READY.
func (r *Repository) SaveTranscript(ctx context.Context, id string, t *types.Transcript) error {
	encoded, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("encode transcript: %w", err)
	}
	return transition(ctx, r.db, &types.Video{}, id, types.VideoSourcesOf(types.VideoStatusReady), types.VideoStatusReady,
		map[string]any{"transcript": string(encoded), "transcribed_at": time.Now(), "error": nil}, apperrors.ErrVideoNotFound)
}

// UpdateVideoSource records where the finalized upload lives.
func (r *Repository) UpdateVideoSource(ctx context.Context, id, storageKey string, durationSec float64) error {
	res := r.db.WithContext(ctx).Model(&types.Video{}).Where("id = ?", id).
		Updates(map[string]any{"storage_key": storageKey, "duration_sec": durationSec})
	if res.Error != nil {
		return dbError("update video source", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrVideoNotFound
	}
	return nil
}

// DeleteVideo removes a video with its clips and jobs and returns what was
// removed so stored objects can be cleaned up.
func (r *Repository) DeleteVideo(ctx context.Context, id string) (*types.Video, []types.Clip, error) {
	var (
		video types.Video
		clips []types.Clip
	)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", id).First(&video).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrVideoNotFound
			}
			return err
		}
		if err := tx.Where("video_id = ?", id).Find(&clips).Error; err != nil {
			return err
		}
		clipIDs := make([]string, len(clips))
		for i, c := range clips {
			clipIDs[i] = c.ID
		}
		jobs := tx.Where("video_id = ?", id)
		if len(clipIDs) > 0 {
			jobs = tx.Where("video_id = ? OR clip_id IN ?", id, clipIDs)
		}
		if err := jobs.Delete(&types.Job{}).Error; err != nil {
			return err
		}
		if err := tx.Where("video_id = ?", id).Delete(&types.Clip{}).Error; err != nil {
			return err
		}
		return tx.Delete(&types.Video{}, "id = ?", id).Error
	})
	if err != nil {
		if apperrors.Is(err, apperrors.CodeVideoNotFound) {
			return nil, nil, err
		}
		return nil, nil, dbError("delete video", err)
	}
	return &video, clips, nil
}

// Clips

// ReplaceClips deletes every clip of the video and inserts clips in one
// transaction.
func (r *Repository) ReplaceClips(ctx context.Context, videoID string, clips []types.Clip) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("video_id = ?", videoID).Delete(&types.Clip{}).Error; err != nil {
			return err
		}
		if len(clips) == 0 {
			return nil
		}
		for i := range clips {
			clips[i].VideoID = videoID
		}
		return tx.CreateInBatches(&clips, clipBatchSize).Error
	})
	if err != nil {
		return apperrors.Wrap(apperrors.CodeClipPersistence, "replace clips", err)
	}
	return nil
}

func (r *Repository) GetClip(ctx context.Context, id string) (*types.Clip, error) {
	var c types.Clip
	if err := r.find(ctx, &c, id, apperrors.ErrClipNotFound); err != nil {
		return nil, err
	}
	return &c, nil
}

// ListClips returns a video's clips, most confident first. An empty status
// lists all of them.
func (r *Repository) ListClips(ctx context.Context, videoID string, status types.ClipStatus) ([]types.Clip, error) {
	q := r.db.WithContext(ctx).Where("video_id = ?", videoID)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var clips []types.Clip
	if err := q.Order("confidence DESC").Order("start_time ASC").Find(&clips).Error; err != nil {
		return nil, dbError("list clips", err)
	}
	return clips, nil
}

func (r *Repository) SetClipStatus(ctx context.Context, id string, to types.ClipStatus, errMsg *string) error {
	return transition(ctx, r.db, &types.Clip{}, id, types.ClipSourcesOf(to), to,
		map[string]any{"error": errMsg}, apperrors.ErrClipNotFound)
}

func (r *Repository) CompleteClip(ctx context.Context, id, outputKey string) error {
	return transition(ctx, r.db, &types.Clip{}, id, types.ClipSourcesOf(types.ClipStatusCompleted), types.ClipStatusCompleted,
		map[string]any{"output_storage_key": outputKey, "error": nil}, apperrors.ErrClipNotFound)
}

// Jobs

func (r *Repository) CreateJob(ctx context.Context, j *types.Job) error {
	if j.Status == "" {
		j.Status = types.JobStatusQueued
	}
	if err := r.db.WithContext(ctx).Create(j).Error; err != nil {
		return dbError("create job", err)
	}
	return nil
}

// DeleteJob removes a job that never reached the queue.
func (r *Repository) DeleteJob(ctx context.Context, id string) error {
	if err := r.db.WithContext(ctx).Where("id = ?", id).Delete(&types.Job{}).Error; err != nil {
		return dbError("delete job", err)
	}
	return nil
}

func (r *Repository) GetJob(ctx context.Context, id string) (*types.Job, error) {
	var j types.Job
	if err := r.find(ctx, &j, id, apperrors.ErrJobNotFound); err != nil {
		return nil, err
	}
	return &j, nil
}

// StartJob moves a job to RUNNING for one more attempt.
func (r *Repository) StartJob(ctx context.Context, id string) error {
	return transition(ctx, r.db, &types.Job{}, id, types.JobSourcesOf(types.JobStatusRunning), types.JobStatusRunning,
		map[string]any{"started_at": time.Now(), "attempts": gorm.Expr("attempts + 1")}, apperrors.ErrJobNotFound)
}

func (r *Repository) SetJobProgress(ctx context.Context, id string, progress int) error {
	progress = min(max(progress, 0), 100)
	err := r.db.WithContext(ctx).Model(&types.Job{}).
		Where("id = ? AND status = ?", id, types.JobStatusRunning).
		Update("progress", progress).Error
	if err != nil {
		return dbError("set job progress", err)
	}
	return nil
}

// RecordJobError keeps the job RUNNING with the error of an attempt that
// the queue will retry.
func (r *Repository) RecordJobError(ctx context.Context, id, msg string) error {
	return transition(ctx, r.db, &types.Job{}, id, []types.JobStatus{types.JobStatusRunning}, types.JobStatusRunning,
		map[string]any{"error": msg}, apperrors.ErrJobNotFound)
}

func (r *Repository) CompleteJob(ctx context.Context, id string) error {
	return transition(ctx, r.db, &types.Job{}, id, types.JobSourcesOf(types.JobStatusCompleted), types.JobStatusCompleted,
		map[string]any{"progress": 100, "completed_at": time.Now(), "error": nil}, apperrors.ErrJobNotFound)
}

func (r *Repository) FailJob(ctx context.Context, id, msg string) error {
	return transition(ctx, r.db, &types.Job{}, id, types.JobSourcesOf(types.JobStatusFailed), types.JobStatusFailed,
		map[string]any{"error": msg, "completed_at": time.Now()}, apperrors.ErrJobNotFound)
}

// MarkStaleJobs fails jobs left RUNNING for longer than olderThan.
func (r *Repository) MarkStaleJobs(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan)
	res := r.db.WithContext(ctx).Model(&types.Job{}).
		Where("status = ? AND started_at < ?", types.JobStatusRunning, cutoff).
		Updates(map[string]any{
			"status":       types.JobStatusFailed,
			"error":        StaleJobMessage,
			"completed_at": time.Now(),
		})
	if res.Error != nil {
		return 0, dbError("mark stale jobs", res.Error)
	}
	return res.RowsAffected, nil
}
