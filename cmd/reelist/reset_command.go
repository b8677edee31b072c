package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"reelist/internal/store"
)

func newResetCommand(ctx *commandContext) *cobra.Command {
	var confirmed bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Erase the local database, including queued and failed changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !confirmed {
				return fmt.Errorf("reset discards queued changes that have not reached the server; rerun with --yes to confirm")
			}
			return ctx.withStore(func(runCtx context.Context, st *store.Store) error {
				if err := st.DeleteAll(runCtx); err != nil {
					return fmt.Errorf("reset local store: %w", err)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Cleared %s.\n", st.Path())
				fmt.Fprintln(out, "Run `reelist sync` to pull a fresh snapshot from the server.")
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&confirmed, "yes", false, "Confirm that queued local changes may be discarded")
	return cmd
}
