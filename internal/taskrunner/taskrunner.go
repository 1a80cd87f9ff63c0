// Package taskrunner is the single-process queue backend: an in-memory
// worker pool with the same retry policy as the Asynq backend.
package taskrunner

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"clipforge/internal/queue"
	"clipforge/internal/types"
	"clipforge/log"
	apperrors "clipforge/pkg/errors"
)

const (
	defaultQueueSize      = 128
	defaultConcurrency    = 2
	defaultMaxRetry       = 3
	defaultRetryBaseDelay = 10 * time.Second
)

var (
	ErrRunnerStopped = errors.New("task runner stopped")
	ErrQueueFull     = errors.New("task queue is full")
)

// Config controls in-process task runner behavior.
type Config struct {
	QueueSize      int
	Concurrency    int
	MaxRetry       int
	RetryBaseDelay time.Duration
}

// DefaultConfig returns a single-process default config.
func DefaultConfig() Config {
	return Config{
		QueueSize:      defaultQueueSize,
		Concurrency:    defaultConcurrency,
		MaxRetry:       defaultMaxRetry,
		RetryBaseDelay: defaultRetryBaseDelay,
	}
}

type queuedTask struct {
	jobID    string
	payload  types.JobPayload
	maxRetry int
	retried  int
}

// Runner executes queued jobs with in-memory workers. Jobs are lost when the
// process exits; the stale job sweep fails whatever was RUNNING.
type Runner struct {
	processor types.JobProcessor
	config    Config

	queue  chan queuedTask
	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	pending map[string]struct{}

	workerWg    sync.WaitGroup
	outstanding sync.WaitGroup
	started     atomic.Bool
	closed      atomic.Bool
}

// New creates a runner. Jobs can be enqueued right away; they are processed
// once Start is called.
func New(cfg Config) *Runner {
	cfg = normalizeConfig(cfg)
	ctx, cancel := context.WithCancel(context.Background())

	return &Runner{
		config:  cfg,
		queue:   make(chan queuedTask, cfg.QueueSize),
		ctx:     ctx,
		cancel:  cancel,
		pending: make(map[string]struct{}),
	}
}

func normalizeConfig(cfg Config) Config {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaultQueueSize
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultConcurrency
	}
	if cfg.MaxRetry < 0 {
		cfg.MaxRetry = defaultMaxRetry
	}
	if cfg.RetryBaseDelay <= 0 {
		cfg.RetryBaseDelay = defaultRetryBaseDelay
	}
	return cfg
}

// Start launches the workers. Calling it twice has no effect.
func (r *Runner) Start(p types.JobProcessor) {
	if !r.started.CompareAndSwap(false, true) {
		return
	}
	r.processor = p
	for i := 0; i < r.config.Concurrency; i++ {
		r.workerWg.Add(1)
		go r.worker(i + 1)
	}
}

// Run starts the workers and blocks until ctx is cancelled.
func (r *Runner) Run(ctx context.Context, p types.JobProcessor) error {
	r.Start(p)
	log.GetLogger().Info("[TaskRunner] workers started", zap.Int("concurrency", r.config.Concurrency))
	<-ctx.Done()
	r.Close()
	return nil
}

// Enqueue implements types.Enqueuer. A job id that is already pending is
// not queued twice.
func (r *Runner) Enqueue(_ context.Context, payload types.JobPayload, opts types.EnqueueOptions) error {
	if _, err := queue.TaskTypeFor(payload.Type); err != nil {
		return err
	}

	maxRetry := opts.MaxRetry
	if maxRetry <= 0 {
		maxRetry = r.config.MaxRetry
	}
	task := queuedTask{jobID: opts.JobID, payload: payload, maxRetry: maxRetry}

	// Sends happen under mu so Close can drain everything that got in.
	r.mu.Lock()
	if r.closed.Load() {
		r.mu.Unlock()
		return ErrRunnerStopped
	}
	if _, ok := r.pending[task.jobID]; ok {
		r.mu.Unlock()
		log.GetLogger().Info("[TaskRunner] task already enqueued", zap.String("job_id", task.jobID))
		return nil
	}
	r.pending[task.jobID] = struct{}{}
	r.outstanding.Add(1)
	select {
	case r.queue <- task:
	default:
		delete(r.pending, task.jobID)
		r.outstanding.Done()
		r.mu.Unlock()
		return ErrQueueFull
	}
	r.mu.Unlock()

	log.GetLogger().Info("[TaskRunner] task submitted",
		zap.String("job_id", task.jobID),
		zap.String("task_type", string(payload.Type)))
	return nil
}

func (r *Runner) finish(jobID string) {
	r.mu.Lock()
	delete(r.pending, jobID)
	r.mu.Unlock()
	r.outstanding.Done()
}

func (r *Runner) worker(workerID int) {
	defer r.workerWg.Done()

	for {
		select {
		case <-r.ctx.Done():
			return
		case task := <-r.queue:
			r.processTask(workerID, task)
		}
	}
}

func (r *Runner) processTask(workerID int, task queuedTask) {
	attempt := types.Attempt{Retried: task.retried, MaxRetry: task.maxRetry}
	err := r.processor.Process(r.ctx, task.jobID, task.payload, attempt)
	if err == nil {
		log.GetLogger().Info("[TaskRunner] task completed",
			zap.Int("worker_id", workerID),
			zap.String("job_id", task.jobID))
		r.finish(task.jobID)
		return
	}

	if apperrors.IsPermanent(err) || attempt.Final() {
		log.GetLogger().Error("[TaskRunner] task failed",
			zap.Int("worker_id", workerID),
			zap.String("job_id", task.jobID),
			zap.Int("retried", task.retried),
			zap.Bool("permanent", apperrors.IsPermanent(err)),
			zap.Error(err))
		r.finish(task.jobID)
		return
	}

	delay := queue.RetryDelay(r.config.RetryBaseDelay, task.retried)
	log.GetLogger().Warn("[TaskRunner] task failed, retrying",
		zap.Int("worker_id", workerID),
		zap.String("job_id", task.jobID),
		zap.Int("retried", task.retried),
		zap.Duration("delay", delay),
		zap.Error(err))
	task.retried++
	time.AfterFunc(delay, func() { r.requeue(task) })
}

func (r *Runner) requeue(task queuedTask) {
	r.mu.Lock()
	if r.closed.Load() {
		r.mu.Unlock()
		r.finish(task.jobID)
		return
	}
	select {
	case r.queue <- task:
		r.mu.Unlock()
	default:
		r.mu.Unlock()
		time.AfterFunc(r.config.RetryBaseDelay, func() { r.requeue(task) })
	}
}

// Wait blocks until every enqueued job has completed or given up.
func (r *Runner) Wait() {
	r.outstanding.Wait()
}

// Close stops workers and rejects new tasks. Tasks still queued or waiting
// for a retry are given up, so Wait returns.
func (r *Runner) Close() {
	r.mu.Lock()
	if !r.closed.CompareAndSwap(false, true) {
		r.mu.Unlock()
		return
	}
	r.mu.Unlock()

	r.cancel()
	r.workerWg.Wait()

	for {
		select {
		case task := <-r.queue:
			log.GetLogger().Info("[TaskRunner] dropping queued task on close", zap.String("job_id", task.jobID))
			r.finish(task.jobID)
		default:
			return
		}
	}
}

// Pending returns the number of queued tasks waiting for workers.
func (r *Runner) Pending() int {
	return len(r.queue)
}
