// Package queue provides background job processing using Asynq.
// It supports reliable job queueing with retry logic and persistence.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"clipforge/config"
	"clipforge/internal/types"
	"clipforge/log"
)

// Task type names
const (
	TypeTranscribe   = "video:transcribe"
	TypeGenerateClip = "clip:generate"
)

// Queue names, highest weight first.
const (
	QueueCritical = "critical"
	QueueDefault  = "default"
	QueueLow      = "low"
)

// Config holds Redis and retry configuration for Asynq
type Config struct {
	RedisAddr           string
	RedisPassword       string
	RedisDB             int
	Concurrency         int
	MaxRetry            int
	RetryBaseDelay      time.Duration
	TranscribeTimeout   time.Duration
	GenerateClipTimeout time.Duration
}

// DefaultConfig returns default queue configuration
func DefaultConfig() Config {
	return Config{
		RedisAddr:           "localhost:6379",
		Concurrency:         3,
		MaxRetry:            3,
		RetryBaseDelay:      10 * time.Second,
		TranscribeTimeout:   30 * time.Minute,
		GenerateClipTimeout: 15 * time.Minute,
	}
}

// ConfigFrom maps the [redis] and [queue] sections.
func ConfigFrom(c config.Config) Config {
	cfg := DefaultConfig()
	cfg.RedisAddr = c.Redis.Addr
	cfg.RedisPassword = c.Redis.Password
	cfg.RedisDB = c.Redis.DB
	if c.Queue.Concurrency > 0 {
		cfg.Concurrency = c.Queue.Concurrency
	}
	if c.Queue.MaxRetry > 0 {
		cfg.MaxRetry = c.Queue.MaxRetry
	}
	if c.Queue.RetryBaseDelaySec > 0 {
		cfg.RetryBaseDelay = time.Duration(c.Queue.RetryBaseDelaySec) * time.Second
	}
	if c.Queue.TranscribeTimeoutMin > 0 {
		cfg.TranscribeTimeout = time.Duration(c.Queue.TranscribeTimeoutMin) * time.Minute
	}
	if c.Queue.GenerateClipTimeoutMin > 0 {
		cfg.GenerateClipTimeout = time.Duration(c.Queue.GenerateClipTimeoutMin) * time.Minute
	}
	return cfg
}

// RetryDelay doubles base on every retry: base, 2*base, 4*base, ...
func RetryDelay(base time.Duration, n int) time.Duration {
	if n < 0 {
		n = 0
	}
	return base << uint(n)
}

// QueueFor maps a job priority onto a queue name.
func QueueFor(priority int) string {
	switch {
	case priority > 0:
		return QueueCritical
	case priority < 0:
		return QueueLow
	default:
		return QueueDefault
	}
}

func TaskTypeFor(t types.JobType) (string, error) {
	switch t {
	case types.JobTypeTranscribe:
		return TypeTranscribe, nil
	case types.JobTypeGenerateClip:
		return TypeGenerateClip, nil
	default:
		return "", fmt.Errorf("unknown job type %q", t)
	}
}

// Queue manages job enqueueing and processing
type Queue struct {
	client *asynq.Client
	server *asynq.Server
	config Config
}

// NewQueue creates a new Queue instance
func NewQueue(cfg Config) *Queue {
	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}

	client := asynq.NewClient(redisOpt)

	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: cfg.Concurrency,
			Queues: map[string]int{
				QueueCritical: 6,
				QueueDefault:  3,
				QueueLow:      1,
			},
			RetryDelayFunc: func(n int, e error, t *asynq.Task) time.Duration {
				return RetryDelay(cfg.RetryBaseDelay, n)
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				id, _ := asynq.GetTaskID(ctx)
				retried, _ := asynq.GetRetryCount(ctx)
				log.GetLogger().Error("[Queue] Task failed",
					zap.String("type", task.Type()),
					zap.String("job_id", id),
					zap.Int("retried", retried),
					zap.Error(err))
			}),
			Logger:   newLogger(),
			LogLevel: asynq.WarnLevel,
		},
	)

	return &Queue{
		client: client,
		server: server,
		config: cfg,
	}
}

func (q *Queue) timeoutFor(t types.JobType) time.Duration {
	if t == types.JobTypeTranscribe {
		return q.config.TranscribeTimeout
	}
	return q.config.GenerateClipTimeout
}

// Enqueue adds a job to the queue under its job id. Re-enqueueing an id that
// is still known to Asynq is a no-op.
func (q *Queue) Enqueue(ctx context.Context, payload types.JobPayload, opts types.EnqueueOptions) error {
	taskType, err := TaskTypeFor(payload.Type)
	if err != nil {
		return err
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	maxRetry := opts.MaxRetry
	if maxRetry <= 0 {
		maxRetry = q.config.MaxRetry
	}
	task := asynq.NewTask(taskType, data,
		asynq.TaskID(opts.JobID),
		asynq.MaxRetry(maxRetry),
		asynq.Timeout(q.timeoutFor(payload.Type)),
		asynq.Queue(QueueFor(opts.Priority)),
	)

	info, err := q.client.EnqueueContext(ctx, task)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		log.GetLogger().Info("[Queue] Task already enqueued", zap.String("job_id", opts.JobID))
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to enqueue task: %w", err)
	}

	log.GetLogger().Info("[Queue] Task enqueued",
		zap.String("job_id", opts.JobID),
		zap.String("type", taskType),
		zap.String("queue", info.Queue))
	return nil
}

// Start begins processing with p in background goroutines.
func (q *Queue) Start(p types.JobProcessor) error {
	return q.server.Start(NewMux(p))
}

// Run processes jobs until ctx is cancelled, then shuts the server down.
func (q *Queue) Run(ctx context.Context, p types.JobProcessor) error {
	if err := q.Start(p); err != nil {
		return err
	}
	log.GetLogger().Info("[Queue] Worker started", zap.Int("concurrency", q.config.Concurrency))
	<-ctx.Done()
	q.server.Shutdown()
	log.GetLogger().Info("[Queue] Worker stopped")
	return nil
}

// Close gracefully shuts down the queue
func (q *Queue) Close() error {
	if err := q.client.Close(); err != nil {
		return err
	}
	q.server.Shutdown()
	return nil
}

// Client returns the underlying Asynq client for advanced usage
func (q *Queue) Client() *asynq.Client {
	return q.client
}
