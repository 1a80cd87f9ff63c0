package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"clipforge/config"
	"clipforge/internal/deps"
	"clipforge/log"
)

func newWorkerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Process transcription and render jobs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			withAPI, _ := cmd.Flags().GetBool("api")
			return runWorker(cmd.Context(), withAPI)
		},
	}
	cmd.Flags().Bool("api", false, "Also serve the status API")
	return cmd
}

func runWorker(ctx context.Context, withAPI bool) error {
	if err := bootstrap(true); err != nil {
		return err
	}
	defer log.GetLogger().Sync()

	report, err := deps.Check(ctx, config.Conf.Render)
	if err != nil {
		log.GetLogger().Error("Dependency check failed", zap.String("report", report.String()))
		return err
	}
	if !report.Drawtext && (config.Conf.Render.EnableCaptions || config.Conf.Render.Watermark) {
		log.GetLogger().Warn("ffmpeg lacks drawtext; captions and watermark will be skipped")
	}
	if config.Conf.Render.FontFile != "" && report.FontFile == "" {
		log.GetLogger().Warn("Caption font not found, using ffmpeg's default font", zap.String("font_file", config.Conf.Render.FontFile))
		config.Conf.Render.FontFile = ""
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if count, err := a.repo.MarkStaleJobs(ctx, staleAfter(config.Conf)); err != nil {
		log.GetLogger().Warn("Failed to mark stale jobs", zap.Error(err))
	} else if count > 0 {
		log.GetLogger().Info("Marked stale jobs as failed", zap.Int64("count", count))
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.backend.Run(gctx, a.svc)
	})
	if withAPI {
		g.Go(func() error {
			return serveAPI(gctx, a.svc, config.Conf.Server)
		})
	}
	return g.Wait()
}
