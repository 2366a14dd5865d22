package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/coursehub/course-tracker/internal/app"
	"github.com/coursehub/course-tracker/internal/application/query"
	"github.com/coursehub/course-tracker/internal/application/saga"
	"github.com/coursehub/course-tracker/internal/domain/achievement"
	"github.com/coursehub/course-tracker/pkg/timeutil"
)

// NewProgressCommand creates the progress command.
func NewProgressCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		userID       string
		category     string
		onlyAchieved bool
	)

	cmd := &cobra.Command{
		Use:   "progress",
		Short: "Show achievement progress for a user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withApp(cmd, func(ctx context.Context, a *app.App) error {
				view, err := a.ProgressQuery.Handle(ctx, query.GetAchievementProgressQuery{
					UserID:       userID,
					Category:     achievement.Category(category),
					OnlyAchieved: onlyAchieved,
				})
				if err != nil {
					return err
				}
				return rootOpts.formatter(cmd).Success(view, func(w io.Writer) {
					writeProgress(w, view)
				})
			})
		},
	}

	addUserFlag(cmd, &userID)
	cmd.Flags().StringVar(&category, "category", "", "only show this category")
	cmd.Flags().BoolVar(&onlyAchieved, "achieved", false, "only show achieved or earned achievements")
	return cmd
}

func writeProgress(w io.Writer, view *query.AchievementProgressDTO) {
	fmt.Fprintf(w, "%s: %d pts, %d/%d earned\n\n", view.UserID, view.TotalPoints, view.EarnedCount, view.CatalogSize)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, item := range view.Items {
		status := " "
		if item.Earned {
			status = "*"
		}
		earned := ""
		if item.EarnedAt != nil {
			earned = "earned " + timeutil.FormatRelative(*item.EarnedAt, view.EvaluatedAt)
		}
		fmt.Fprintf(tw, "%s %s\t%s\t%s %d/%d\t%d pts\t%s\n",
			status, item.Icon, item.Name,
			progressBar(item.Progress, item.Required, 10), min(item.Progress, item.Required), item.Required,
			item.Points, earned,
		)
	}
	_ = tw.Flush()
}

// NewGrantCommand creates the grant command.
func NewGrantCommand(rootOpts *RootOptions) *cobra.Command {
	var userID string

	cmd := &cobra.Command{
		Use:   "grant",
		Short: "Evaluate a user and persist newly earned achievements",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withApp(cmd, func(ctx context.Context, a *app.App) error {
				res, err := a.Granter.Execute(ctx, saga.GrantInput{
					UserID:        userID,
					Trigger:       "cli",
					CorrelationID: uuid.NewString(),
				})
				var partial *saga.PartialGrantError
				if err != nil && !errors.As(err, &partial) {
					return err
				}
				if res == nil {
					res = &saga.GrantResult{UserID: userID}
				}
				if outErr := rootOpts.formatter(cmd).Success(res, func(w io.Writer) {
					if len(res.Granted) == 0 && len(res.Failed) == 0 {
						fmt.Fprintln(w, "No new achievements")
					}
					writeGranted(w, res.Granted)
				}); outErr != nil {
					return outErr
				}
				return err
			})
		},
	}

	addUserFlag(cmd, &userID)
	return cmd
}

// NewCatalogCommand creates the catalog command. It needs no storage.
func NewCatalogCommand(rootOpts *RootOptions) *cobra.Command {
	var category string

	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "List every achievement",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if category != "" && !achievement.Category(category).IsValid() {
				return fmt.Errorf("unknown category %q", category)
			}

			defs := make([]achievement.Definition, 0, len(achievement.Catalog()))
			for _, def := range achievement.Catalog() {
				if category != "" && def.Category != achievement.Category(category) {
					continue
				}
				defs = append(defs, def.Masked(false))
			}

			return rootOpts.formatter(cmd).Success(defs, func(w io.Writer) {
				tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
				for _, def := range defs {
					fmt.Fprintf(tw, "%s %s\t%s\t%s\t%d pts\t%s\n", def.Icon, def.ID, def.Name, def.Rarity, def.Points, def.Description)
				}
				_ = tw.Flush()
			})
		},
	}

	cmd.Flags().StringVar(&category, "category", "", "only list this category")
	return cmd
}

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withApp(cmd, func(ctx context.Context, a *app.App) error {
				applied, err := a.Migrate(ctx)
				if err != nil {
					return err
				}
				return rootOpts.formatter(cmd).Success(map[string]int{"applied": applied}, func(w io.Writer) {
					fmt.Fprintf(w, "Applied %d migration(s)\n", applied)
				})
			})
		},
	}
}
