// Package main is the entry point of the tracker worker.
//
// The worker periodically re-runs the grant engine for every user, announces
// every granted achievement and, when enabled, serves health, metrics and
// progress endpoints.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/coursehub/course-tracker/config"
	"github.com/coursehub/course-tracker/internal/app"
	"github.com/coursehub/course-tracker/internal/application/eventhandler"
	"github.com/coursehub/course-tracker/internal/domain/shared"
	"github.com/coursehub/course-tracker/internal/infrastructure/scheduler"
	"github.com/coursehub/course-tracker/internal/infrastructure/scheduler/jobs"
	opshttp "github.com/coursehub/course-tracker/internal/interface/http"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. CONFIGURATION AND LOGGING
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log := app.NewSlog(cfg)
	slog.SetDefault(log)
	log.Info("starting tracker worker",
		"env", cfg.App.Environment,
		"storage", cfg.Storage.Driver,
		"timezone", cfg.App.Timezone,
		"strict_catalog", cfg.Achievements.StrictCatalog,
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 2. APPLICATION
	// ─────────────────────────────────────────────────────────────────────────
	application, err := app.New(ctx, cfg, app.Options{Slog: log})
	if err != nil {
		return fmt.Errorf("failed to start application: %w", err)
	}
	defer func() {
		log.Info("closing application...")
		application.Close()
	}()

	applied, err := application.Migrate(ctx)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	log.Info("database schema is up to date", "applied", applied)

	announcer := eventhandler.NewOnAchievementGrantedHandler(nil, log, eventhandler.DefaultAchievementGrantedConfig())
	if err := application.Bus.Subscribe(shared.EventAchievementGranted, announcer.Handle); err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 3. OPS HTTP SERVER
	// ─────────────────────────────────────────────────────────────────────────
	var opsServer *opshttp.Server
	if cfg.Observability.MetricsEnabled {
		health := opshttp.NewHealthChecker(cfg.App.Version)
		for name, check := range application.HealthChecks {
			health.AddCheck(name, check)
		}

		serverConfig := opshttp.DefaultConfig()
		serverConfig.Port = cfg.Observability.MetricsPort
		opsServer = opshttp.NewServer(serverConfig, opshttp.Dependencies{
			Health:   health,
			Metrics:  application.Metrics.Handler(),
			Progress: application.ProgressQuery,
			Logger:   application.Log,
		})
		errCh := opsServer.StartAsync()
		go func() {
			if err, ok := <-errCh; ok && err != nil {
				log.Error("ops server failed", "error", err)
			}
		}()
		log.Info("serving ops endpoints", "addr", serverConfig.Address())
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 4. SCHEDULER
	// ─────────────────────────────────────────────────────────────────────────
	sched := scheduler.New(scheduler.Config{
		Logger:     log,
		Timezone:   cfg.App.Location,
		JobTimeout: cfg.Scheduler.JobTimeout,
	})
	if cfg.Scheduler.Enabled {
		job := jobs.NewGrantAchievementsJob(application.Records, application.Granter, log, jobs.DefaultGrantAchievementsConfig())
		if err := sched.Register(job, cfg.Scheduler.GrantInterval, true); err != nil {
			return fmt.Errorf("failed to register job: %w", err)
		}
		sched.Start()
	} else {
		log.Warn("scheduler disabled")
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 5. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("received shutdown signal", "signal", sig.String())
	case <-ctx.Done():
	}

	log.Info("starting graceful shutdown...", "timeout", cfg.App.ShutdownTimeout.String())
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()

	sched.Stop()
	if opsServer != nil {
		if err := opsServer.Shutdown(shutdownCtx); err != nil {
			log.Warn("ops server shutdown", "error", err)
		}
	}

	log.Info("shutdown completed successfully", "announced", announcer.Handled())
	return nil
}
