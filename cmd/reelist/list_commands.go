package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"reelist/internal/store"
)

func newMoviesCommand(ctx *commandContext) *cobra.Command {
	var statusFilter string
	var person string

	cmd := &cobra.Command{
		Use:   "movies",
		Short: "List the local movie library",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var filter store.Status
			if strings.TrimSpace(statusFilter) != "" {
				parsed, ok := store.ParseStatus(statusFilter)
				if !ok {
					return fmt.Errorf("unknown status %q", statusFilter)
				}
				filter = parsed
			}

			return ctx.withStore(func(runCtx context.Context, st *store.Store) error {
				records, err := st.ListMovies(runCtx)
				if err != nil {
					return err
				}

				rows := make([]table.Row, 0, len(records))
				for _, record := range records {
					if filter != "" && record.Status != filter {
						continue
					}
					if person != "" {
						if _, ok := record.RecommendationFor(person); !ok {
							continue
						}
					}
					rows = append(rows, table.Row{
						record.IMDBID,
						record.Title,
						yearColumn(record.Metadata.Year),
						string(record.Status),
						ratingColumn(record.MyRating),
						recommendersColumn(record.Recommendations),
					})
				}
				if len(rows) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No movies match.")
					return nil
				}
				writeTable(cmd.OutOrStdout(), table.Row{"ID", "Title", "Year", "Status", "Rating", "Recommended By"}, rows, 3, 5)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&statusFilter, "status", "", "Only show movies in this status")
	cmd.Flags().StringVar(&person, "from", "", "Only show movies recommended by this person")

	return cmd
}

func newPeopleCommand(ctx *commandContext) *cobra.Command {
	var trustedOnly bool

	cmd := &cobra.Command{
		Use:   "people",
		Short: "List recommenders",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(runCtx context.Context, st *store.Store) error {
				records, err := st.ListPeople(runCtx)
				if err != nil {
					return err
				}

				rows := make([]table.Row, 0, len(records))
				for _, record := range records {
					if trustedOnly && !record.Trusted {
						continue
					}
					trusted := ""
					if record.Trusted {
						trusted = "yes"
					}
					rows = append(rows, table.Row{record.Name, trusted, record.RecommendationCount})
				}
				if len(rows) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No people match.")
					return nil
				}
				writeTable(cmd.OutOrStdout(), table.Row{"Name", "Trusted", "Recommendations"}, rows, 3)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&trustedOnly, "trusted", false, "Only show trusted recommenders")

	return cmd
}

func yearColumn(year int) string {
	if year == 0 {
		return ""
	}
	return fmt.Sprintf("%d", year)
}

func ratingColumn(rating *float64) string {
	if rating == nil {
		return ""
	}
	return fmt.Sprintf("%.1f", *rating)
}

func recommendersColumn(recs []store.Recommendation) string {
	names := make([]string, 0, len(recs))
	for _, rec := range recs {
		name := rec.Person
		if rec.Vote == store.VoteDown {
			name += " (down)"
		}
		names = append(names, name)
	}
	return strings.Join(names, ", ")
}
