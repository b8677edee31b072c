package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"reelist/internal/engine"
	"reelist/internal/store"
)

func newWatchedCommand(ctx *commandContext) *cobra.Command {
	var rating float64
	var date string

	cmd := &cobra.Command{
		Use:   "watched <imdb-id>",
		Short: "Mark a movie watched with a rating",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var watchedAt time.Time
			if strings.TrimSpace(date) != "" {
				parsed, err := time.Parse("2006-01-02", strings.TrimSpace(date))
				if err != nil {
					return fmt.Errorf("parse --date %q: expected YYYY-MM-DD", date)
				}
				watchedAt = parsed.UTC()
			}

			return ctx.withEngine(func(runCtx context.Context, eng *engine.Engine, _ *store.Store) error {
				outcome, err := eng.MarkWatched(runCtx, args[0], rating, watchedAt)
				if err != nil {
					return err
				}
				reportOutcome(cmd.OutOrStdout(), outcome, fmt.Sprintf("Marked %s watched (rating %.1f).", args[0], rating))
				return nil
			})
		},
	}

	cmd.Flags().Float64Var(&rating, "rating", 0, "Your rating, 1-10")
	cmd.Flags().StringVar(&date, "date", "", "Watch date as YYYY-MM-DD (default today)")

	return cmd
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status <imdb-id> <queued|watched|listed|removed>",
		Short: "Move a movie between watch states",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			status, ok := store.ParseStatus(args[1])
			if !ok {
				return fmt.Errorf("unknown status %q (use queued, watched, listed, or removed)", args[1])
			}
			return ctx.withEngine(func(runCtx context.Context, eng *engine.Engine, _ *store.Store) error {
				outcome, err := eng.SetStatus(runCtx, args[0], status)
				if err != nil {
					return err
				}
				reportOutcome(cmd.OutOrStdout(), outcome, fmt.Sprintf("Set %s to %s.", args[0], status))
				return nil
			})
		},
	}
}

func newTrustCommand(ctx *commandContext) *cobra.Command {
	var revoke bool

	cmd := &cobra.Command{
		Use:   "trust <person>",
		Short: "Mark a recommender as trusted (or revoke with --revoke)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			trusted := !revoke
			return ctx.withEngine(func(runCtx context.Context, eng *engine.Engine, _ *store.Store) error {
				outcome, err := eng.SetTrust(runCtx, args[0], trusted)
				if err != nil {
					return err
				}
				verb := "trusted"
				if !trusted {
					verb = "untrusted"
				}
				reportOutcome(cmd.OutOrStdout(), outcome, fmt.Sprintf("Marked %s as %s.", args[0], verb))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&revoke, "revoke", false, "Revoke trust instead of granting it")

	return cmd
}

func newRefreshCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh <imdb-id>",
		Short: "Rebuild a movie's metadata snapshot from the server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withEngine(func(runCtx context.Context, eng *engine.Engine, _ *store.Store) error {
				record, err := eng.RefreshMetadata(runCtx, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Refreshed metadata for %s (%s).\n", record.Title, record.IMDBID)
				return nil
			})
		},
	}
}
