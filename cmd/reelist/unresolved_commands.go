package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"reelist/internal/engine"
	"reelist/internal/store"
)

func newUnresolvedCommand(ctx *commandContext) *cobra.Command {
	unresolvedCmd := &cobra.Command{
		Use:   "unresolved",
		Short: "Manage recommendations waiting for a catalog match",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(runCtx context.Context, st *store.Store) error {
				items, err := st.ListUnresolved(runCtx)
				if err != nil {
					return err
				}
				if len(items) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No unresolved recommendations.")
					return nil
				}

				rows := make([]table.Row, 0, len(items))
				for _, item := range items {
					rows = append(rows, table.Row{
						item.ID,
						item.Title,
						item.Recommender,
						item.CreatedAt.Local().Format(time.DateTime),
					})
				}
				writeTable(cmd.OutOrStdout(), table.Row{"ID", "Title", "From", "Created"}, rows)
				return nil
			})
		},
	}

	unresolvedCmd.AddCommand(newUnresolvedResolveCommand(ctx))
	unresolvedCmd.AddCommand(newUnresolvedRemoveCommand(ctx))

	return unresolvedCmd
}

func newUnresolvedResolveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <id> <imdb-id> [title]",
		Short: "Bind an unresolved item to a catalog id",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			title := strings.TrimSpace(strings.Join(args[2:], " "))
			return ctx.withEngine(func(runCtx context.Context, eng *engine.Engine, _ *store.Store) error {
				outcome, err := eng.ResolveUnresolved(runCtx, args[0], args[1], title, nil)
				if err != nil {
					return err
				}
				reportOutcome(cmd.OutOrStdout(), outcome, fmt.Sprintf("Resolved to %s.", args[1]))
				return nil
			})
		},
	}
}

func newUnresolvedRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Discard an unresolved item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withEngine(func(runCtx context.Context, eng *engine.Engine, _ *store.Store) error {
				if err := eng.RemoveUnresolved(runCtx, args[0]); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Removed.")
				return nil
			})
		},
	}
}

func newSearchCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "search <query...>",
		Short: "Search the remote catalog by title",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			return ctx.withEngine(func(runCtx context.Context, eng *engine.Engine, _ *store.Store) error {
				results, err := eng.Search(runCtx, query)
				if err != nil {
					return err
				}
				if len(results) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No matches.")
					return nil
				}

				rows := make([]table.Row, 0, len(results))
				for _, result := range results {
					rows = append(rows, table.Row{result.IMDBID, result.Title, yearColumn(result.Year)})
				}
				writeTable(cmd.OutOrStdout(), table.Row{"ID", "Title", "Year"}, rows, 3)
				return nil
			})
		},
	}
}
