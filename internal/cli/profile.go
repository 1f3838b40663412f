package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/n0madic/stridecoach/internal/store"
	"github.com/n0madic/stridecoach/internal/store/sqlite"
)

func newProfileCmd(opts *rootOptions) *cobra.Command {
	var appendNotes string

	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Print the stored runner profile as JSON",
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

			ctx := cmd.Context()
			var p *store.Profile
			if notes := strings.TrimSpace(appendNotes); notes != "" {
				p, err = db.AppendCoachNotes(ctx, notes)
			} else {
				p, err = db.GetRunnerProfile(ctx)
			}
			if errors.Is(err, store.ErrNotFound) {
				fmt.Fprintln(cmd.ErrOrStderr(), "no runner profile saved yet")
				return nil
			}
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(p)
		},
	}

	cmd.Flags().StringVar(&appendNotes, "append-notes", "", "Append to the coach notes before printing")
	return cmd
}
