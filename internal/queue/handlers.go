package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"clipforge/internal/types"
	"clipforge/log"
	apperrors "clipforge/pkg/errors"
)

// NewMux routes both task types to p.
func NewMux(p types.JobProcessor) *asynq.ServeMux {
	h := &taskHandler{processor: p}
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeTranscribe, h.handle)
	mux.HandleFunc(TypeGenerateClip, h.handle)
	return mux
}

type taskHandler struct {
	processor types.JobProcessor
}

// handle decodes the payload and reads the job id and attempt from the task
// context. Permanent errors skip the remaining retries.
func (h *taskHandler) handle(ctx context.Context, t *asynq.Task) error {
	var payload types.JobPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %v: %w", err, asynq.SkipRetry)
	}

	jobID, _ := asynq.GetTaskID(ctx)
	retried, _ := asynq.GetRetryCount(ctx)
	maxRetry, _ := asynq.GetMaxRetry(ctx)
	attempt := types.Attempt{Retried: retried, MaxRetry: maxRetry}

	log.GetLogger().Info("[Queue] Processing task",
		zap.String("type", t.Type()),
		zap.String("job_id", jobID),
		zap.Int("retried", retried))

	if err := h.processor.Process(ctx, jobID, payload, attempt); err != nil {
		if apperrors.IsPermanent(err) {
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
		return err
	}

	log.GetLogger().Info("[Queue] Task completed",
		zap.String("type", t.Type()),
		zap.String("job_id", jobID))
	return nil
}
