package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/strapi/strapi-sub004/internal/application/scheduler"
)

const defaultPollInterval = 15 * time.Second

func newServeCmd(flags *rootFlags) *cobra.Command {
	var poll time.Duration

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the scheduler and publish releases when they are due",
		Long: "Run the scheduler and publish releases when they are due.\n\n" +
			"Schedules changed by other invocations are picked up every --poll interval.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cmd, flags, poll)
		},
	}
	cmd.Flags().DurationVar(&poll, "poll", defaultPollInterval, "How often to reload the storage file")

	return cmd
}

func runServe(ctx context.Context, cmd *cobra.Command, flags *rootFlags, poll time.Duration) error {
	out := cmd.OutOrStdout()
	app, err := newAppContext(ctx, flags, cmd.ErrOrStderr(), appOptions{
		withScheduler: true,
		onOutcome: func(o scheduler.Outcome) {
			if o.Skipped {
				fmt.Fprintf(out, "%s release %s skipped, its schedule changed\n", o.FiredAt.Format(time.RFC3339), o.ReleaseID)
				return
			}
			if o.Err != nil {
				fmt.Fprintf(out, "%s release %s failed to publish\n", o.FiredAt.Format(time.RFC3339), o.ReleaseID)
				renderCause(out, o.Err)
				return
			}
			fmt.Fprintf(out, "%s release %s published\n", o.FiredAt.Format(time.RFC3339), o.ReleaseID)
		},
	})
	if err != nil {
		return err
	}
	if app.Scheduler == nil {
		return newCommandError("serve", "starting the scheduler", fmt.Errorf("scheduler.enabled is false"), "Enable the scheduler in the configuration file.")
	}
	defer app.Scheduler.Shutdown()

	if err := app.Scheduler.SyncFromDatabase(ctx); err != nil {
		app.Logger.Warn(ctx, "some releases could not be scheduled", "error", err)
	}
	fmt.Fprintf(out, "Watching %d scheduled release(s). Press Ctrl+C to stop.\n", len(app.Scheduler.GetAll()))

	if poll <= 0 {
		<-ctx.Done()
		return nil
	}

	ticker := time.NewTicker(poll)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			app.Logger.Info(context.Background(), "scheduler stopping", "pending", len(app.Scheduler.GetAll()))
			return nil
		case <-ticker.C:
			reloaded, err := app.DB.Refresh(ctx)
			if err != nil {
				app.Logger.Warn(ctx, "storage refresh failed", "error", err)
				continue
			}
			if !reloaded {
				continue
			}
			if err := app.Scheduler.SyncFromDatabase(ctx); err != nil {
				app.Logger.Warn(ctx, "some releases could not be scheduled", "error", err)
			}
		}
	}
}
