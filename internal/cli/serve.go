package cli

import (
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"clipforge/config"
	"clipforge/log"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the status API without processing jobs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := bootstrap(true); err != nil {
				return err
			}
			defer log.GetLogger().Sync()
			if config.Conf.Queue.Backend == "memory" {
				return errors.New("the memory queue only runs inside a worker; use `clipforge worker --api`")
			}

			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serveAPI(ctx, a.svc, config.Conf.Server)
		},
	}
}
