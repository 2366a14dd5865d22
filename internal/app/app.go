// Package app wires configuration, storage, messaging and the application
// handlers into one container used by both binaries.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	goredis "github.com/redis/go-redis/v9"

	"github.com/coursehub/course-tracker/config"
	"github.com/coursehub/course-tracker/internal/application/command"
	"github.com/coursehub/course-tracker/internal/application/query"
	"github.com/coursehub/course-tracker/internal/application/saga"
	"github.com/coursehub/course-tracker/internal/domain/achievement"
	"github.com/coursehub/course-tracker/internal/domain/tracker"
	"github.com/coursehub/course-tracker/internal/infrastructure/messaging"
	"github.com/coursehub/course-tracker/internal/infrastructure/metrics"
	"github.com/coursehub/course-tracker/internal/infrastructure/persistence/postgres"
	redisstore "github.com/coursehub/course-tracker/internal/infrastructure/persistence/redis"
	"github.com/coursehub/course-tracker/internal/infrastructure/persistence/sqlite"
	"github.com/coursehub/course-tracker/pkg/circuitbreaker"
	"github.com/coursehub/course-tracker/pkg/logger"
)

// Options adjust how New builds the container.
type Options struct {
	// Slog receives event bus diagnostics. Defaults to slog.Default().
	Slog *slog.Logger

	// Log is the structured logger of the application layer. Defaults to
	// one built from the observability config.
	Log *logger.Logger

	// SyncEvents dispatches bus handlers on the publisher's goroutine.
	SyncEvents bool
}

// App holds every long-lived component.
type App struct {
	Config  *config.Config
	Log     *logger.Logger
	Records tracker.Repository
	Earned  achievement.EarnedRepository
	Bus     *messaging.InMemoryEventBus
	Metrics *metrics.Recorder

	Progress      *query.ProgressService
	ProgressQuery *query.GetAchievementProgressHandler
	Granter       *saga.AchievementFlowSaga

	RecordAction  *command.RecordActionHandler
	AddCourse     *command.AddCourseHandler
	AddLab        *command.AddLabHandler
	UpdateProfile *command.UpdateProfileHandler

	// HealthChecks probe the backing stores by name.
	HealthChecks map[string]func(context.Context) error

	migrate func(context.Context) (int, error)
	closers []func()
}

// New opens storage and builds the handlers. The caller must Close the App.
func New(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	if opts.Slog == nil {
		opts.Slog = slog.Default()
	}
	if opts.Log == nil {
		opts.Log = NewLogger(cfg)
	}

	a := &App{
		Config:       cfg,
		Log:          opts.Log,
		Metrics:      metrics.NewRecorder(),
		HealthChecks: make(map[string]func(context.Context) error),
	}

	if err := a.openStorage(ctx); err != nil {
		a.Close()
		return nil, err
	}

	busConfig := messaging.DefaultInMemoryEventBusConfig()
	busConfig.Logger = opts.Slog
	busConfig.AsyncMode = !opts.SyncEvents
	a.Bus = messaging.NewInMemoryEventBus(busConfig)
	a.closers = append(a.closers, func() { _ = a.Bus.Close() })

	publisher := messaging.Fanout{a.Bus}
	var lock saga.GrantLock
	if !cfg.Redis.Disabled {
		client, err := a.openRedis(ctx)
		if err != nil {
			a.Close()
			return nil, err
		}
		lock = redisstore.NewGrantLock(client, cfg.Redis.LockTTL)
		breaker := circuitbreaker.RedisBreaker(func(name string, from, to circuitbreaker.State) {
			a.Log.Warn("circuit breaker state changed",
				logger.String("breaker", name),
				logger.String("from", from.String()),
				logger.String("to", to.String()),
			)
		})
		publisher = append(publisher, messaging.NewRedisPublisher(client, messaging.DefaultChannel).WithBreaker(breaker))
	}

	evaluator := achievement.NewEvaluator(
		achievement.WithLocation(cfg.App.Location),
		achievement.WithStrict(cfg.Achievements.StrictCatalog),
		achievement.WithUnmappedHandler(func(def achievement.Definition) {
			a.Log.Warn("achievement has no progress rule", logger.AchievementID(string(def.ID)))
		}),
	)
	a.Progress = query.NewProgressService(query.NewSnapshotLoader(a.Records), evaluator, a.Metrics, a.Log)
	a.ProgressQuery = query.NewGetAchievementProgressHandler(a.Progress, a.Earned, nil)

	flowConfig := saga.DefaultAchievementFlowConfig()
	flowConfig.WriteAttempts = cfg.Achievements.GrantRetryAttempts

	builder := saga.NewAchievementFlowSagaBuilder().
		WithEvaluator(a.Progress).
		WithEarnedRepo(a.Earned).
		WithEventBus(publisher).
		WithObserver(a.Metrics).
		WithLogger(a.Log).
		WithConfig(flowConfig)
	if lock != nil {
		builder = builder.WithLock(lock)
	}
	granter, err := builder.Build()
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("build grant engine: %w", err)
	}
	a.Granter = granter

	deps := command.Dependencies{
		Records: a.Records,
		Granter: granter,
		Events:  publisher,
		Log:     a.Log,
	}
	a.RecordAction = command.NewRecordActionHandler(deps)
	a.AddCourse = command.NewAddCourseHandler(deps)
	a.AddLab = command.NewAddLabHandler(deps)
	a.UpdateProfile = command.NewUpdateProfileHandler(deps)

	return a, nil
}

func (a *App) openStorage(ctx context.Context) error {
	cfg := a.Config
	switch cfg.Storage.Driver {
	case config.DriverPostgres:
		pgConfig := postgres.DefaultConfig()
		pgConfig.URL = cfg.Database.URL
		pgConfig.MaxConns = cfg.Database.MaxConns
		pgConfig.MinConns = cfg.Database.MinConns
		pgConfig.QueryTimeout = cfg.Database.QueryTimeout

		conn, err := postgres.NewConnection(ctx, pgConfig)
		if err != nil {
			return fmt.Errorf("connect to postgres: %w", err)
		}
		a.closers = append(a.closers, conn.Close)
		a.Records = postgres.NewRecordRepository(conn)
		a.Earned = postgres.NewAchievementRepository(conn)
		a.migrate = postgres.NewMigrator(conn).Migrate
		a.HealthChecks["storage"] = conn.Ping

	case config.DriverSQLite:
		store, err := sqlite.Open(ctx, cfg.Storage.SQLitePath)
		if err != nil {
			return fmt.Errorf("open sqlite: %w", err)
		}
		a.closers = append(a.closers, func() { _ = store.Close() })
		a.Records = sqlite.NewRecordRepository(store)
		a.Earned = sqlite.NewAchievementRepository(store)
		a.HealthChecks["storage"] = store.Ping
		// The schema is applied by Open.
		a.migrate = func(context.Context) (int, error) { return 0, nil }

	default:
		return fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}

	a.Log.Info("storage ready", logger.String("driver", cfg.Storage.Driver))
	return nil
}

func (a *App) openRedis(ctx context.Context) (*goredis.Client, error) {
	redisConfig := redisstore.DefaultConfig()
	redisConfig.Host = a.Config.Redis.Host
	redisConfig.Port = a.Config.Redis.Port
	redisConfig.Password = a.Config.Redis.Password
	redisConfig.DB = a.Config.Redis.DB

	client, err := redisstore.NewClient(ctx, redisConfig)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func() { _ = client.Close() })
	a.HealthChecks["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
	a.Log.Info("redis ready", logger.String("addr", redisConfig.Addr()))
	return client, nil
}

// Migrate brings the schema up to date and returns the number of applied
// migrations.
func (a *App) Migrate(ctx context.Context) (int, error) {
	return a.migrate(ctx)
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// NewLogger builds the application logger from the observability config.
func NewLogger(cfg *config.Config) *logger.Logger {
	opts := logger.DefaultOptions()
	opts.Output = os.Stderr
	opts.Level = logger.ParseLevel(cfg.Observability.LogLevel)
	if cfg.Observability.LogFormat == "text" {
		opts.Format = logger.FormatConsole
	}
	return logger.New(opts)
}

// NewSlog builds the process logger: JSON in production, text otherwise.
func NewSlog(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if cfg.App.Debug {
		opts.Level = slog.LevelDebug
	}

	var handler slog.Handler
	if cfg.IsProduction() || cfg.Observability.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}
