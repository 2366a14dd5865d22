package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/coursehub/course-tracker/internal/app"
	"github.com/coursehub/course-tracker/internal/application/command"
)

// ══════════════════════════════════════════════════════════════════════════════
// RECORD INTAKE COMMANDS
// Each command stores one record and prints the achievements it unlocked.
// ══════════════════════════════════════════════════════════════════════════════

// NewLogActionCommand creates the log-action command.
func NewLogActionCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		userID, course, at, note string
	)

	cmd := &cobra.Command{
		Use:   "log-action <injection|tablet|other>",
		Short: "Log a medication action",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withApp(cmd, func(ctx context.Context, a *app.App) error {
				ts, err := parseTime(at, a.Config.App.Location)
				if err != nil {
					return err
				}
				res, err := a.RecordAction.Handle(ctx, command.RecordActionCommand{
					UserID:    userID,
					Type:      args[0],
					CourseID:  course,
					Timestamp: ts,
					Note:      note,
				})
				if err != nil {
					return err
				}
				return rootOpts.formatter(cmd).Success(struct {
					Action any `json:"action"`
					grantView
				}{res.Action, newGrantView(res.GrantOutcome)}, func(w io.Writer) {
					fmt.Fprintf(w, "Logged %s at %s\n", res.Action.Type, res.Action.Timestamp.In(a.Config.App.Location).Format("2006-01-02 15:04"))
					writeGrantOutcome(w, res.GrantOutcome)
				})
			})
		},
	}

	addUserFlag(cmd, &userID)
	cmd.Flags().StringVar(&course, "course", "", "course id the action belongs to")
	cmd.Flags().StringVar(&at, "at", "", "when the action happened (default: now)")
	cmd.Flags().StringVar(&note, "note", "", "free-form note")
	return cmd
}

// NewAddCourseCommand creates the add-course command.
func NewAddCourseCommand(rootOpts *RootOptions) *cobra.Command {
	var userID, name, at string

	cmd := &cobra.Command{
		Use:   "add-course <type>",
		Short: "Start a course",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withApp(cmd, func(ctx context.Context, a *app.App) error {
				ts, err := parseTime(at, a.Config.App.Location)
				if err != nil {
					return err
				}
				res, err := a.AddCourse.Handle(ctx, command.AddCourseCommand{
					UserID:    userID,
					Type:      args[0],
					Name:      name,
					CreatedAt: ts,
				})
				if err != nil {
					return err
				}
				return rootOpts.formatter(cmd).Success(struct {
					Course any `json:"course"`
					grantView
				}{res.Course, newGrantView(res.GrantOutcome)}, func(w io.Writer) {
					fmt.Fprintf(w, "Added course %s (%s)\n", res.Course.ID, res.Course.Type)
					writeGrantOutcome(w, res.GrantOutcome)
				})
			})
		},
	}

	addUserFlag(cmd, &userID)
	cmd.Flags().StringVar(&name, "name", "", "display name of the course")
	cmd.Flags().StringVar(&at, "at", "", "when the course started (default: now)")
	return cmd
}

// NewAddLabCommand creates the add-lab command.
func NewAddLabCommand(rootOpts *RootOptions) *cobra.Command {
	var userID, name, at string

	cmd := &cobra.Command{
		Use:   "add-lab",
		Short: "Record a lab result",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withApp(cmd, func(ctx context.Context, a *app.App) error {
				ts, err := parseTime(at, a.Config.App.Location)
				if err != nil {
					return err
				}
				res, err := a.AddLab.Handle(ctx, command.AddLabCommand{UserID: userID, Name: name, TakenAt: ts})
				if err != nil {
					return err
				}
				return rootOpts.formatter(cmd).Success(struct {
					Lab any `json:"lab"`
					grantView
				}{res.Lab, newGrantView(res.GrantOutcome)}, func(w io.Writer) {
					fmt.Fprintf(w, "Added lab %s\n", res.Lab.ID)
					writeGrantOutcome(w, res.GrantOutcome)
				})
			})
		},
	}

	addUserFlag(cmd, &userID)
	cmd.Flags().StringVar(&name, "name", "", "lab name")
	cmd.Flags().StringVar(&at, "at", "", "when the lab was taken (default: now)")
	return cmd
}

// NewSetProfileCommand creates the set-profile command. The profile is
// replaced as a whole; omitted flags clear the field.
func NewSetProfileCommand(rootOpts *RootOptions) *cobra.Command {
	var userID string
	var p command.UpdateProfileCommand

	cmd := &cobra.Command{
		Use:   "set-profile",
		Short: "Replace the user's profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withApp(cmd, func(ctx context.Context, a *app.App) error {
				p.UserID = userID
				res, err := a.UpdateProfile.Handle(ctx, p)
				if err != nil {
					return err
				}
				filled := 0
				for _, f := range res.Profile.Fields() {
					if f.Value != "" {
						filled++
					}
				}
				return rootOpts.formatter(cmd).Success(struct {
					Profile any `json:"profile"`
					grantView
				}{res.Profile, newGrantView(res.GrantOutcome)}, func(w io.Writer) {
					fmt.Fprintf(w, "Profile saved (%d/%d fields filled)\n", filled, len(res.Profile.Fields()))
					writeGrantOutcome(w, res.GrantOutcome)
				})
			})
		},
	}

	addUserFlag(cmd, &userID)
	f := cmd.Flags()
	f.StringVar(&p.FullName, "full-name", "", "full name")
	f.StringVar(&p.Username, "username", "", "username")
	f.StringVar(&p.AvatarURL, "avatar-url", "", "avatar image URL")
	f.StringVar(&p.DateOfBirth, "date-of-birth", "", "date of birth (YYYY-MM-DD)")
	f.StringVar(&p.City, "city", "", "city")
	f.StringVar(&p.Bio, "bio", "", "short biography")
	f.StringVar(&p.Gender, "gender", "", "gender")
	return cmd
}

func addUserFlag(cmd *cobra.Command, userID *string) {
	cmd.Flags().StringVarP(userID, "user", "u", "", "user id (required)")
	_ = cmd.MarkFlagRequired("user")
}
