package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/strapi/strapi-sub004/internal/application/releases"
	"github.com/strapi/strapi-sub004/internal/domain/release"
)

type scheduleFlags struct {
	at       string
	timezone string
}

func (f *scheduleFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.at, "at", "", "Publish instant: RFC 3339, or local time such as 2026-05-01 09:00")
	cmd.Flags().StringVar(&f.timezone, "timezone", "", "IANA zone a local --at is read in (defaults to the settings timezone)")
}

// resolve turns the flags into an absolute instant. Local times are read in
// --timezone, falling back to the settings default.
func (f *scheduleFlags) resolve(ctx context.Context, app *AppContext) (*time.Time, string, error) {
	if f.at == "" {
		return nil, f.timezone, nil
	}
	tz := f.timezone
	if tz == "" {
		settings, err := app.Releases.GetSettings(ctx)
		if err != nil {
			return nil, "", err
		}
		tz = settings.DefaultTimezone
	}
	at, err := release.ResolveInstant(f.at, tz)
	if err != nil {
		return nil, "", err
	}
	return &at, tz, nil
}

func newReleaseCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "release",
		Short: "Create, inspect, schedule and publish releases",
	}

	cmd.AddCommand(newReleaseCreateCmd(flags))
	cmd.AddCommand(newReleaseListCmd(flags))
	cmd.AddCommand(newReleaseShowCmd(flags))
	cmd.AddCommand(newReleaseUpdateCmd(flags))
	cmd.AddCommand(newReleaseDeleteCmd(flags))
	cmd.AddCommand(newReleasePublishCmd(flags))
	cmd.AddCommand(newReleaseScheduleCmd(flags))
	cmd.AddCommand(newReleaseUnscheduleCmd(flags))
	cmd.AddCommand(newReleaseTreeCmd(flags))

	return cmd
}

func newReleaseCreateCmd(flags *rootFlags) *cobra.Command {
	schedule := &scheduleFlags{}

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create an empty release",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(cmd, flags)
			if err != nil {
				return err
			}
			ctx := commandContext(cmd)

			at, tz, err := schedule.resolve(ctx, app)
			if err != nil {
				return err
			}
			r, err := app.Releases.CreateRelease(ctx, releases.CreateReleaseInput{Name: args[0], ScheduledAt: at, Timezone: tz})
			if err != nil {
				return err
			}
			return renderRelease(cmd.OutOrStdout(), flags, releases.ReleaseView{Release: r})
		},
	}
	schedule.register(cmd)

	return cmd
}

func newReleaseListCmd(flags *rootFlags) *cobra.Command {
	var state string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List releases",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := releases.ListFilter{}
			switch state {
			case "", "all":
			case "pending":
				no := false
				filter.Released = &no
			case "released":
				yes := true
				filter.Released = &yes
			default:
				return release.Validation(fmt.Sprintf("unsupported state %q", state), map[string]interface{}{
					"allowed": []string{"all", "pending", "released"},
				})
			}

			app, err := openApp(cmd, flags)
			if err != nil {
				return err
			}
			views, err := app.Releases.ListReleases(commandContext(cmd), filter)
			if err != nil {
				return err
			}
			if flags.jsonOutput {
				return printJSON(cmd.OutOrStdout(), views)
			}
			return renderReleaseTable(cmd.OutOrStdout(), views)
		},
	}
	cmd.Flags().StringVar(&state, "state", "all", "Filter by state: all, pending or released")

	return cmd
}

func newReleaseShowCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "show <release-id>",
		Short: "Show a release and its action counts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(cmd, flags)
			if err != nil {
				return err
			}
			view, err := app.Releases.GetRelease(commandContext(cmd), args[0])
			if err != nil {
				return err
			}
			return renderRelease(cmd.OutOrStdout(), flags, view)
		},
	}
}

func newReleaseUpdateCmd(flags *rootFlags) *cobra.Command {
	schedule := &scheduleFlags{}
	var (
		name          string
		clearSchedule bool
	)

	cmd := &cobra.Command{
		Use:   "update <release-id>",
		Short: "Rename or reschedule a pending release",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(cmd, flags)
			if err != nil {
				return err
			}
			ctx := commandContext(cmd)

			current, err := app.Releases.GetRelease(ctx, args[0])
			if err != nil {
				return err
			}
			in := releases.UpdateReleaseInput{
				Name:        current.Name,
				ScheduledAt: current.ScheduledAt,
				Timezone:    current.Timezone,
			}
			if cmd.Flags().Changed("name") {
				in.Name = name
			}
			if cmd.Flags().Changed("timezone") {
				in.Timezone = schedule.timezone
			}
			switch {
			case clearSchedule:
				in.ScheduledAt = nil
			case schedule.at != "":
				if schedule.timezone == "" {
					schedule.timezone = current.Timezone
				}
				at, tz, err := schedule.resolve(ctx, app)
				if err != nil {
					return err
				}
				in.ScheduledAt, in.Timezone = at, tz
			}

			updated, err := app.Releases.UpdateRelease(ctx, args[0], in)
			if err != nil {
				return err
			}
			return renderRelease(cmd.OutOrStdout(), flags, releases.ReleaseView{Release: updated, Actions: current.Actions, HasEntries: current.HasEntries})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "New release name")
	cmd.Flags().BoolVar(&clearSchedule, "clear-schedule", false, "Remove the publish instant")
	schedule.register(cmd)

	return cmd
}

func newReleaseDeleteCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <release-id>",
		Short: "Delete a pending release and its actions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(cmd, flags)
			if err != nil {
				return err
			}
			deleted, err := app.Releases.DeleteRelease(commandContext(cmd), args[0])
			if err != nil {
				return err
			}
			if flags.jsonOutput {
				return printJSON(cmd.OutOrStdout(), deleted)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted release %s (%s)\n", deleted.ID, deleted.Name)
			return nil
		},
	}
}

func newReleasePublishCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "publish <release-id>",
		Short: "Publish every action of a release in one transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(cmd, flags)
			if err != nil {
				return err
			}
			published, err := app.Releases.PublishRelease(commandContext(cmd), args[0])
			if err != nil {
				return err
			}
			if flags.jsonOutput {
				return printJSON(cmd.OutOrStdout(), published)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Published release %s (%s) at %s\n", published.ID, published.Name, formatInstant(published.ReleasedAt, ""))
			return nil
		},
	}
}

func newReleaseScheduleCmd(flags *rootFlags) *cobra.Command {
	schedule := &scheduleFlags{}

	cmd := &cobra.Command{
		Use:   "schedule <release-id>",
		Short: "Set the instant a release publishes at",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(cmd, flags)
			if err != nil {
				return err
			}
			ctx := commandContext(cmd)

			at, tz, err := schedule.resolve(ctx, app)
			if err != nil {
				return err
			}
			updated, err := app.Releases.SetSchedule(ctx, args[0], *at, tz)
			if err != nil {
				return err
			}
			if flags.jsonOutput {
				return printJSON(cmd.OutOrStdout(), updated)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Release %s scheduled for %s\n", updated.ID, formatInstant(updated.ScheduledAt, updated.Timezone))
			return nil
		},
	}
	schedule.register(cmd)
	cmd.MarkFlagRequired("at") //nolint:errcheck

	return cmd
}

func newReleaseUnscheduleCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "unschedule <release-id>",
		Short: "Clear the publish instant of a release",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(cmd, flags)
			if err != nil {
				return err
			}
			updated, err := app.Releases.CancelSchedule(commandContext(cmd), args[0])
			if err != nil {
				return err
			}
			if flags.jsonOutput {
				return printJSON(cmd.OutOrStdout(), updated)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Release %s is no longer scheduled\n", updated.ID)
			return nil
		},
	}
}

func newReleaseTreeCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "tree <release-id>",
		Short: "Show the entries of a release nested by relation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(cmd, flags)
			if err != nil {
				return err
			}
			nodes, err := app.Releases.ReleaseTree(commandContext(cmd), args[0])
			if err != nil {
				return err
			}
			if flags.jsonOutput {
				return printJSON(cmd.OutOrStdout(), nodes)
			}
			if len(nodes) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Release has no entries.")
				return nil
			}
			release.Walk(nodes, func(n *release.Node) {
				locale := ""
				if n.Locale != "" {
					locale = " [" + n.Locale + "]"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s- %s %s/%s%s\n", strings.Repeat("  ", n.Depth), n.Type, n.ContentType, n.DocumentID, locale)
			})
			return nil
		},
	}
}

func renderRelease(w io.Writer, flags *rootFlags, view releases.ReleaseView) error {
	if flags.jsonOutput {
		return printJSON(w, view)
	}
	r := view.Release
	fmt.Fprintf(w, "Release:   %s\n", r.ID)
	fmt.Fprintf(w, "Name:      %s\n", valueOrFallback(r.Name, "(no name)"))
	fmt.Fprintf(w, "Status:    %s\n", formatStatus(w, r.Status))
	fmt.Fprintf(w, "Scheduled: %s\n", formatInstant(r.ScheduledAt, r.Timezone))
	fmt.Fprintf(w, "Released:  %s\n", formatInstant(r.ReleasedAt, ""))
	fmt.Fprintf(w, "Actions:   %d (%d valid, %d invalid)\n", view.Actions.Total, view.Actions.Valid, view.Actions.Invalid)
	return nil
}

func renderReleaseTable(w io.Writer, views []releases.ReleaseView) error {
	if len(views) == 0 {
		fmt.Fprintln(w, "No releases yet.")
		fmt.Fprintln(w, "\nRun 'releases release create <name>' to start one.")
		return nil
	}

	writer := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "ID\tNAME\tSTATUS\tACTIONS\tSCHEDULED\tRELEASED")
	for _, v := range views {
		fmt.Fprintf(writer, "%s\t%s\t%s\t%d\t%s\t%s\n",
			v.ID,
			valueOrFallback(v.Name, "(no name)"),
			formatStatus(w, v.Status),
			v.Actions.Total,
			formatInstant(v.ScheduledAt, ""),
			formatInstant(v.ReleasedAt, ""),
		)
	}
	return writer.Flush()
}
