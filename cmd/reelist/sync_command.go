package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"reelist/internal/engine"
	"reelist/internal/store"
)

func newSyncCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Replay queued changes and pull a fresh snapshot now",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withEngine(func(runCtx context.Context, eng *engine.Engine, _ *store.Store) error {
				result, err := eng.RunCycle(runCtx, true)
				if err != nil {
					return fmt.Errorf("sync: %w", err)
				}
				if result.Skipped {
					fmt.Fprintln(cmd.OutOrStdout(), "A sync cycle is already running.")
					return nil
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Replayed %d queued change(s), %d still queued.\n", result.Replayed, result.Remaining)
				if result.Dropped > 0 {
					fmt.Fprintf(out, "Dropped %d change(s) to the failed list; see `reelist pending failed`.\n", result.Dropped)
				}
				if len(result.Refreshed) > 0 {
					fmt.Fprintf(out, "Refreshed %d collection(s) from the server.\n", len(result.Refreshed))
				}
				return nil
			})
		},
	}
}
