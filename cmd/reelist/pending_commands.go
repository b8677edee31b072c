package main

import (
	"context"
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"reelist/internal/store"
)

func newPendingCommand(ctx *commandContext) *cobra.Command {
	pendingCmd := &cobra.Command{
		Use:   "pending",
		Short: "Inspect changes waiting for, or dropped by, sync",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(runCtx context.Context, st *store.Store) error {
				ops, err := st.PendingOperations(runCtx)
				if err != nil {
					return err
				}
				if len(ops) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No pending changes; everything is synced.")
					return nil
				}

				rows := make([]table.Row, 0, len(ops))
				for _, op := range ops {
					rows = append(rows, table.Row{
						op.ID,
						string(op.Kind),
						op.RetryCount,
						op.CreatedAt.Local().Format(time.DateTime),
					})
				}
				writeTable(cmd.OutOrStdout(), table.Row{"ID", "Kind", "Retries", "Created"}, rows, 3)
				return nil
			})
		},
	}

	pendingCmd.AddCommand(newPendingFailedCommand(ctx))
	pendingCmd.AddCommand(newPendingClearFailedCommand(ctx))

	return pendingCmd
}

func newPendingFailedCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "failed",
		Short: "List changes the server rejected repeatedly",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(runCtx context.Context, st *store.Store) error {
				ops, err := st.FailedOperations(runCtx)
				if err != nil {
					return err
				}
				if len(ops) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No failed changes.")
					return nil
				}

				rows := make([]table.Row, 0, len(ops))
				for _, op := range ops {
					rows = append(rows, table.Row{
						op.ID,
						string(op.Kind),
						op.Reason,
						op.FailedAt.Local().Format(time.DateTime),
					})
				}
				writeTable(cmd.OutOrStdout(), table.Row{"ID", "Kind", "Reason", "Failed"}, rows)
				return nil
			})
		},
	}
}

func newPendingClearFailedCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear-failed",
		Short: "Discard the failed-changes list",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(runCtx context.Context, st *store.Store) error {
				cleared, err := st.ClearFailedOperations(runCtx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d failed change(s).\n", cleared)
				return nil
			})
		},
	}
}
