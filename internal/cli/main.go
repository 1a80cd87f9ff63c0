// Package cli wires config, storage, queue and the status API into the
// clipforge command.
package cli

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"clipforge/config"
	"clipforge/log"
)

func Main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "clipforge",
		Short:         "Turn long videos into short clips",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(os.Stdout)
	root.SetErr(os.Stderr)

	root.AddCommand(
		newWorkerCmd(),
		newServeCmd(),
		newEnqueueCmd(),
		newMigrateCmd(),
		newVersionCmd(),
		newDiagnoseCmd(),
	)
	return root
}

// bootstrap loads .env, the logger and the config. validate runs
// config.CheckConfig as well.
func bootstrap(validate bool) error {
	_ = godotenv.Load() // best-effort: load .env if present
	log.InitLogger()

	created, err := config.LoadOrCreateConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err = log.SetLevel(config.Conf.App.LogLevel); err != nil {
		return fmt.Errorf("config: app.log_level: %w", err)
	}
	if created {
		path, _ := config.ResolveConfigPath()
		log.GetLogger().Warn("Wrote a default config; fill in provider keys before running jobs", zap.String("path", path))
	}
	if !validate {
		return nil
	}
	if err = config.CheckConfig(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}
