package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/n0madic/stridecoach/internal/store/sqlite"
)

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load(cmd)
			if err != nil {
				return err
			}
			db, err := sqlite.Open(cfg.DatabasePath)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := db.Migrate(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "database ready at %s\n", cfg.DatabasePath)
			return nil
		},
	}
}
