package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/strapi/strapi-sub004/internal/application/releases"
	"github.com/strapi/strapi-sub004/internal/application/scheduler"
	"github.com/strapi/strapi-sub004/internal/config"
	"github.com/strapi/strapi-sub004/internal/infrastructure/clock"
	contentinfra "github.com/strapi/strapi-sub004/internal/infrastructure/content"
	"github.com/strapi/strapi-sub004/internal/infrastructure/events"
	"github.com/strapi/strapi-sub004/internal/infrastructure/logging"
	"github.com/strapi/strapi-sub004/internal/infrastructure/storage"
	"github.com/strapi/strapi-sub004/internal/ports"
)

// AppContext bundles long-lived services created at startup.
type AppContext struct {
	Config    *config.Config
	Logger    ports.Logger
	DB        *storage.DB
	Schemas   *contentinfra.SchemaRegistry
	Store     *contentinfra.Store
	Events    *events.Bus
	Releases  *releases.Service
	Scheduler *scheduler.Scheduler
}

type appOptions struct {
	// withScheduler attaches timers. One-shot commands leave it off; the
	// schedule is stored and picked up by a running serve process.
	withScheduler bool
	onOutcome     func(scheduler.Outcome)
}

// commandContext tags a command invocation with its own correlation id.
func commandContext(cmd *cobra.Command) context.Context {
	return ports.WithCorrelationID(cmd.Context(), ports.GenerateCorrelationID())
}

func newAppContext(ctx context.Context, flags *rootFlags, stderr io.Writer, opts appOptions) (*AppContext, error) {
	boot := flags.boot.Logger()

	path := flags.configPath
	explicit := path != ""
	if !explicit {
		path = config.DefaultPath
	}
	boot.Debug(ctx, "loading configuration", "path", path, "explicit", explicit)

	cfg, err := config.Load(path, explicit)
	if err != nil {
		return nil, newCommandError("start", "loading configuration", err, "Check the configuration file, or pass --config.")
	}

	level := cfg.Log.Level
	if flags.verbose {
		level = "debug"
	}
	logger, err := logging.New(logging.Options{
		Writer:    stderr,
		Level:     level,
		Format:    cfg.Log.Format,
		Component: "cli",
	})
	if err != nil {
		return nil, newCommandError("start", "creating logger", err, "Use one of the documented log levels and formats.")
	}
	flags.boot.Attach(logger)

	base := filepath.Dir(path)
	storagePath := resolvePath(base, cfg.Storage.Path)
	schemaPath := resolvePath(base, cfg.Schemas.Path)

	db, err := storage.Open(storage.Options{Path: storagePath, Logger: logger})
	if err != nil {
		return nil, newCommandError("start", fmt.Sprintf("opening storage %s", storagePath), err, "Check the storage path and file permissions.")
	}

	types, err := contentinfra.LoadSchemas(schemaPath)
	if err != nil {
		return nil, newCommandError("start", fmt.Sprintf("loading schemas %s", schemaPath), err, "Fix the content-type schema file.")
	}
	registry := contentinfra.NewSchemaRegistry(types)

	wall := clock.New()
	validator := contentinfra.NewEntryValidator()
	store, err := contentinfra.NewStore(contentinfra.StoreOptions{
		Entries:   db,
		Schemas:   registry,
		Validator: validator,
		Clock:     wall,
	})
	if err != nil {
		return nil, err
	}

	bus := events.NewBus(logger)
	svc, err := releases.New(releases.Options{
		Releases:  db,
		Tx:        db,
		Documents: store,
		Schemas:   registry,
		Validator: validator,
		Clock:     wall,
		Events:    bus,
		Logger:    logger,
	})
	if err != nil {
		return nil, err
	}

	app := &AppContext{
		Config:   cfg,
		Logger:   logger,
		DB:       db,
		Schemas:  registry,
		Store:    store,
		Events:   bus,
		Releases: svc,
	}

	if err := app.seedSettings(ctx); err != nil {
		return nil, err
	}

	if opts.withScheduler && cfg.SchedulerEnabled() {
		sched, err := scheduler.New(scheduler.Options{
			Releases: db,
			Clock:    wall,
			Publish: func(ctx context.Context, releaseID string, at time.Time) error {
				_, err := svc.PublishScheduled(ctx, releaseID, at)
				return err
			},
			OnOutcome: opts.onOutcome,
			Logger:    logger,
		})
		if err != nil {
			return nil, err
		}
		svc.AttachScheduler(sched)
		app.Scheduler = sched
	}

	return app, nil
}

// seedSettings copies the configured default timezone into an empty
// settings record.
func (a *AppContext) seedSettings(ctx context.Context) error {
	tz := a.Config.Defaults.Timezone
	if tz == "" {
		return nil
	}
	current, err := a.Releases.GetSettings(ctx)
	if err != nil {
		return err
	}
	if current.DefaultTimezone != "" {
		return nil
	}
	_, err = a.Releases.UpdateSettings(ctx, releases.SettingsInput{DefaultTimezone: tz})
	return err
}

func resolvePath(base, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(base, path)
}

func openApp(cmd *cobra.Command, flags *rootFlags) (*AppContext, error) {
	return newAppContext(cmd.Context(), flags, cmd.ErrOrStderr(), appOptions{})
}
