package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"clipforge/config"
	"clipforge/internal/storage"
	"clipforge/log"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := bootstrap(false); err != nil {
				return err
			}
			defer log.GetLogger().Sync()

			db, err := storage.Open(config.Conf.Database.Path)
			if err != nil {
				return err
			}
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			defer sqlDB.Close()
			fmt.Fprintln(cmd.OutOrStdout(), "database schema is up to date")
			return nil
		},
	}
}
