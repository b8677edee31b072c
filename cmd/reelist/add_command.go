package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"reelist/internal/engine"
	"reelist/internal/store"
)

func newAddCommand(ctx *commandContext) *cobra.Command {
	var from []string
	var vote string
	var titleOnly bool

	cmd := &cobra.Command{
		Use:   "add <imdb-id> [title]",
		Short: "Add a movie with one or more recommendations",
		Long: `Add a movie to the library with recommendations from the people named
by --from. The title is required the first time a movie is added.

With --title-only the arguments are treated as a free-text title that
could not be matched to a catalog id; the recommendation is parked on
the unresolved list until "reelist unresolved resolve" binds it.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(from) == 0 {
				return fmt.Errorf("at least one --from recommender is required")
			}

			if titleOnly {
				title := strings.TrimSpace(strings.Join(args, " "))
				if len(from) != 1 {
					return fmt.Errorf("--title-only accepts a single --from recommender")
				}
				return ctx.withEngine(func(runCtx context.Context, eng *engine.Engine, _ *store.Store) error {
					item, err := eng.QueueUnresolved(runCtx, title, from[0])
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Parked %q from %s on the unresolved list (%s).\n", item.Title, item.Recommender, item.ID)
					return nil
				})
			}

			imdbID := args[0]
			title := strings.TrimSpace(strings.Join(args[1:], " "))

			voteKind := store.VoteUp
			if strings.TrimSpace(vote) != "" {
				parsed, ok := store.ParseVote(vote)
				if !ok {
					return fmt.Errorf("unknown vote %q (use up or down)", vote)
				}
				voteKind = parsed
			}

			recommenders := make([]engine.Recommender, 0, len(from))
			for _, person := range from {
				recommenders = append(recommenders, engine.Recommender{Person: person, Vote: voteKind})
			}

			return ctx.withEngine(func(runCtx context.Context, eng *engine.Engine, _ *store.Store) error {
				outcome, err := eng.AddMovie(runCtx, imdbID, title, nil, recommenders)
				if err != nil {
					return err
				}
				reportOutcome(cmd.OutOrStdout(), outcome, fmt.Sprintf("Added %s with %d recommendation(s).", imdbID, len(recommenders)))
				return nil
			})
		},
	}

	cmd.Flags().StringArrayVar(&from, "from", nil, "Recommender name (repeatable)")
	cmd.Flags().StringVar(&vote, "vote", "up", "Vote applied to every recommender: up or down")
	cmd.Flags().BoolVar(&titleOnly, "title-only", false, "Park a free-text title on the unresolved list instead")

	return cmd
}

func newRecommendCommand(ctx *commandContext) *cobra.Command {
	var vote string

	cmd := &cobra.Command{
		Use:   "recommend <imdb-id> <person>",
		Short: "Attach another person's vote to a movie already in the library",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			voteKind := store.VoteUp
			if strings.TrimSpace(vote) != "" {
				parsed, ok := store.ParseVote(vote)
				if !ok {
					return fmt.Errorf("unknown vote %q (use up or down)", vote)
				}
				voteKind = parsed
			}

			return ctx.withEngine(func(runCtx context.Context, eng *engine.Engine, _ *store.Store) error {
				outcome, err := eng.AddRecommendation(runCtx, args[0], args[1], voteKind)
				if err != nil {
					return err
				}
				reportOutcome(cmd.OutOrStdout(), outcome, fmt.Sprintf("Recorded %s's %s vote on %s.", args[1], voteKind, args[0]))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&vote, "vote", "up", "Vote to record: up or down")

	return cmd
}

func newUnrecommendCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "unrecommend <imdb-id> <person>",
		Short: "Withdraw a person's recommendation from a movie",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withEngine(func(runCtx context.Context, eng *engine.Engine, _ *store.Store) error {
				outcome, err := eng.RemoveRecommendation(runCtx, args[0], args[1])
				if err != nil {
					return err
				}
				reportOutcome(cmd.OutOrStdout(), outcome, fmt.Sprintf("Removed %s's recommendation from %s.", args[1], args[0]))
				return nil
			})
		},
	}
}
