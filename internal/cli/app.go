package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"clipforge/config"
	"clipforge/internal/queue"
	"clipforge/internal/router"
	"clipforge/internal/service"
	"clipforge/internal/storage"
	"clipforge/internal/taskrunner"
	"clipforge/internal/types"
	"clipforge/log"
)

const shutdownTimeout = 10 * time.Second

// backend is a queue both sides of which live behind one value.
type backend interface {
	types.Enqueuer
	Run(ctx context.Context, p types.JobProcessor) error
	Close() error
}

type memoryBackend struct {
	*taskrunner.Runner
}

func (m memoryBackend) Close() error {
	m.Runner.Close()
	return nil
}

func newBackend(c config.Config) (backend, error) {
	qc := queue.ConfigFrom(c)
	switch c.Queue.Backend {
	case "asynq", "":
		return queue.NewQueue(qc), nil
	case "memory":
		return memoryBackend{taskrunner.New(taskrunner.Config{
			Concurrency:    qc.Concurrency,
			MaxRetry:       qc.MaxRetry,
			RetryBaseDelay: qc.RetryBaseDelay,
		})}, nil
	default:
		return nil, fmt.Errorf("unknown queue backend %q", c.Queue.Backend)
	}
}

// staleAfter is the longest a healthy job can stay RUNNING.
func staleAfter(c config.Config) time.Duration {
	qc := queue.ConfigFrom(c)
	return max(qc.TranscribeTimeout, qc.GenerateClipTimeout)
}

type app struct {
	repo    *storage.Repository
	backend backend
	svc     *service.Service
}

func newApp() (*app, error) {
	db, err := storage.Open(config.Conf.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	repo := storage.NewRepository(db)

	b, err := newBackend(config.Conf)
	if err != nil {
		return nil, err
	}
	svc, err := service.NewFromConfig(repo, b)
	if err != nil {
		_ = b.Close()
		return nil, err
	}
	return &app{repo: repo, backend: b, svc: svc}, nil
}

func (a *app) Close() {
	if err := a.backend.Close(); err != nil {
		log.GetLogger().Warn("queue close failed", zap.Error(err))
	}
}

// serveAPI runs the status API until ctx is cancelled.
func serveAPI(ctx context.Context, svc *service.Service, c config.Server) error {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	router.SetupRouter(engine, svc)

	srv := &http.Server{
		Addr:    net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		Handler: engine,
	}
	errCh := make(chan error, 1)
	go func() {
		log.GetLogger().Info("Status API listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
