// Package app assembles the storage backend, event bus, services and views
// shared by the HTTP server and the CLI.
package app

import (
	"context"
	"fmt"

	"projtrack/internal/config"
	"projtrack/internal/events"
	"projtrack/internal/notify"
	"projtrack/internal/repository"
	"projtrack/internal/service/orchestrator"
	"projtrack/internal/service/project"
	"projtrack/internal/service/transfer"
	"projtrack/internal/service/weekly"
	"projtrack/internal/spreadsheet"
	"projtrack/internal/views"
	"projtrack/pkg/circuitbreaker"
	"projtrack/pkg/db"
	"projtrack/pkg/kv"
	"projtrack/pkg/mq"
	"projtrack/pkg/redis"
	"projtrack/pkg/util"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type App struct {
	Config *config.Config
	Logger *zap.Logger

	Store        kv.Store
	Bus          *events.Bus
	Projects     *project.Service
	Weekly       *weekly.Service
	Transfer     *transfer.Service
	Views        *views.Registry
	Orchestrator *orchestrator.Orchestrator
	Notifier     *notify.Notifier

	rdb       *goredis.Client
	publisher *mq.Publisher
}

// Options tune New for a particular entry point.
type Options struct {
	// Bridge forwards bus events to RabbitMQ when mq.url is configured.
	Bridge bool
	// Views registers the cached view snapshots.
	Views bool
}

// New opens the configured backend and wires everything on top of it.
func New(ctx context.Context, cfg *config.Config, opts Options, logger *zap.Logger) (*App, error) {
	store, rdb, err := OpenStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	a, err := NewWithStore(ctx, cfg, store, opts, logger)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	a.rdb = rdb

	dedupTTL := cfg.Orchestrator.DedupTTL
	if rdb != nil {
		a.Orchestrator = orchestrator.NewOrchestrator(a.Projects, a.Bus,
			util.NewRedisDeduper(rdb, cfg.Storage.Prefix, dedupTTL, logger), logger)
	}

	if opts.Bridge && cfg.MQ.URL != "" {
		publisher, err := mq.NewPublisher(cfg.MQ.URL, cfg.MQ.Exchange)
		if err != nil {
			// 事件转发是可选的，失败不影响主流程
			logger.Warn("MQ publisher unavailable, events stay in-process", zap.Error(err))
		} else {
			a.publisher = publisher
			events.NewBridge(publisher, circuitbreaker.New(circuitbreaker.DefaultConfig()), logger).Attach(a.Bus)
			logger.Info("Forwarding events to RabbitMQ", zap.String("exchange", cfg.MQ.Exchange))
		}
	}
	return a, nil
}

// NewWithStore wires services over an already open store.
func NewWithStore(ctx context.Context, cfg *config.Config, store kv.Store, opts Options, logger *zap.Logger) (*App, error) {
	a := &App{
		Config:   cfg,
		Logger:   logger,
		Store:    store,
		Bus:      events.NewBus(logger),
		Notifier: notify.NewNotifier(logger),
	}

	prefix := cfg.Storage.Prefix
	a.Projects = project.NewService(repository.NewProjectRepository(store, prefix), a.Bus, logger)
	a.Weekly = weekly.NewService(repository.NewWeeklyRepository(store, prefix), a.Projects, a.Bus, logger)
	a.Transfer = transfer.NewService(a.Projects, a.Weekly,
		spreadsheet.NewImporter(cfg.Import.Columns, logger), logger)

	if err := a.Projects.Load(ctx); err != nil {
		return nil, fmt.Errorf("load projects: %w", err)
	}
	if err := a.Weekly.Load(ctx); err != nil {
		return nil, fmt.Errorf("load weekly plan: %w", err)
	}

	// prune must run before views recompute
	a.Bus.Subscribe(events.TopicProjectsChanged, "weekly-prune", a.Weekly.HandleProjectsChanged)
	if err := a.Weekly.Prune(ctx); err != nil {
		logger.Warn("Initial weekly prune failed", zap.Error(err))
	}

	if opts.Views {
		a.Views = views.NewRegistry(a.Bus, logger)
		if err := views.RegisterDefaults(ctx, a.Views, a.Projects, a.Weekly); err != nil {
			return nil, fmt.Errorf("register views: %w", err)
		}
		a.Transfer.ViewNames = a.Views.Names
	}

	a.Orchestrator = orchestrator.NewOrchestrator(a.Projects, a.Bus,
		util.NewMemoryDeduper(cfg.Orchestrator.DedupTTL), logger)
	return a, nil
}

// OpenStore returns the instrumented backend and, for the redis backend,
// the client so it can be shared with the deduper.
func OpenStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (kv.Store, *goredis.Client, error) {
	backend := cfg.Storage.Backend
	logger.Info("Opening storage backend", zap.String("backend", backend))

	switch backend {
	case "redis":
		rdb, err := redis.NewRedisClient(ctx, cfg.Redis, logger)
		if err != nil {
			return nil, nil, err
		}
		return kv.Instrument(backend, kv.NewRedisStore(rdb)), rdb, nil
	case "postgres":
		pool, err := db.NewConnection(ctx, cfg.DB, logger)
		if err != nil {
			return nil, nil, err
		}
		store, err := kv.NewPostgresStore(ctx, pool)
		if err != nil {
			pool.Close()
			return nil, nil, err
		}
		return kv.Instrument(backend, store), nil, nil
	case "sqlite":
		store, err := kv.NewSQLiteStore(cfg.Storage.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return kv.Instrument(backend, store), nil, nil
	case "memory":
		return kv.Instrument(backend, kv.NewMemoryStore()), nil, nil
	}
	return nil, nil, fmt.Errorf("unknown storage backend %q", backend)
}

// Ready reports whether the storage backend answers.
func (a *App) Ready(ctx context.Context) error {
	return a.Store.Ping(ctx)
}

func (a *App) Close() {
	if a.publisher != nil {
		a.publisher.Close()
	}
	if err := a.Store.Close(); err != nil {
		a.Logger.Warn("Failed to close storage", zap.Error(err))
	}
}
