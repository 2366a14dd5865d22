// Package cli implements the tracker command line.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"github.com/coursehub/course-tracker/config"
	"github.com/coursehub/course-tracker/internal/app"
	"github.com/coursehub/course-tracker/pkg/logger"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	EnvFile string
	Format  string // "json" | "text"
	Verbose bool
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command of the tracker CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "tracker",
		Short:         "Course tracker with achievements",
		Long:          "Log courses, actions, labs and profile details, and see which achievements they earn.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.EnvFile, "env-file", "", "load environment variables from this file")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose logging")

	cmd.AddCommand(NewProgressCommand(opts))
	cmd.AddCommand(NewGrantCommand(opts))
	cmd.AddCommand(NewCatalogCommand(opts))
	cmd.AddCommand(NewLogActionCommand(opts))
	cmd.AddCommand(NewAddCourseCommand(opts))
	cmd.AddCommand(NewAddLabCommand(opts))
	cmd.AddCommand(NewSetProfileCommand(opts))
	cmd.AddCommand(NewMigrateCommand(opts))

	return cmd
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{Format: o.Format, Writer: cmd.OutOrStdout()}
}

func (o *RootOptions) loadConfig() (*config.Config, error) {
	if o.EnvFile != "" {
		return config.Load(o.EnvFile)
	}
	return config.Load()
}

// withApp opens the application for the duration of fn. Event handlers
// run synchronously so nothing is lost when the process exits.
func (o *RootOptions) withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	cfg, err := o.loadConfig()
	if err != nil {
		return err
	}

	logOpts := logger.DefaultOptions()
	logOpts.Output = cmd.ErrOrStderr()
	logOpts.Format = logger.FormatConsole
	logOpts.Level = logger.LevelWarn
	slogLevel := slog.LevelWarn
	if o.Verbose {
		logOpts.Level = logger.LevelDebug
		slogLevel = slog.LevelDebug
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := app.New(ctx, cfg, app.Options{
		Log:        logger.New(logOpts),
		Slog:       slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slogLevel})),
		SyncEvents: true,
	})
	if err != nil {
		return err
	}
	defer a.Close()

	return fn(logger.WithContext(ctx, a.Log), a)
}

// parseTime accepts RFC3339 or "2006-01-02 15:04" in loc. Empty means zero.
func parseTime(value string, loc *time.Location) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	for _, layout := range []string{"2006-01-02 15:04", "2006-01-02"} {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid time %q: use RFC3339, \"YYYY-MM-DD HH:MM\" or \"YYYY-MM-DD\"", value)
}
