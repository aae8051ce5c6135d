// Package app assembles the storage backend and the domain services from a
// Config. Both the HTTP server and the command line share it.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"workflow/internal/assistant"
	"workflow/internal/clock"
	"workflow/internal/config"
	"workflow/internal/identity"
	"workflow/internal/notify"
	"workflow/internal/project"
	"workflow/internal/report"
	"workflow/internal/server"
	"workflow/internal/session"
	"workflow/internal/stats"
	"workflow/internal/storage"
	"workflow/internal/storage/mongo"
	"workflow/internal/storage/sqlite"
	"workflow/internal/task"
)

// App owns every long-lived dependency of the service.
type App struct {
	Backend  storage.Backend
	Catalog  *storage.Catalog
	Session  *session.Store
	Services server.Services
	Clock    clock.Clock

	logger *slog.Logger
}

// Option customizes Open.
type Option func(*options)

type options struct {
	clock    clock.Clock
	hashCost int
}

// WithClock replaces the wall clock.
func WithClock(c clock.Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithHashCost overrides the configured bcrypt cost.
func WithHashCost(cost int) Option {
	return func(o *options) { o.hashCost = cost }
}

// Open connects the configured backend and builds the services. The default
// accounts are seeded on first start.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts ...Option) (*App, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	o := options{clock: clock.Real(), hashCost: cfg.Auth.HashCost}
	for _, opt := range opts {
		opt(&o)
	}

	backend, err := openBackend(ctx, cfg.Storage, logger)
	if err != nil {
		return nil, err
	}
	backend = storage.WithRetry(backend, cfg.Storage.Retries, cfg.Storage.Backoff, logger)

	ai, err := assistant.New(ctx, assistant.Config{
		Provider: cfg.Assistant.Provider,
		APIKey:   cfg.Assistant.APIKey,
		Model:    cfg.Assistant.Model,
		BaseURL:  cfg.Assistant.BaseURL,
	}, logger)
	if err != nil {
		_ = backend.Close()
		return nil, err
	}

	catalog := storage.NewCatalog(backend)
	users := identity.New(catalog.Users, logger, identity.WithHashCost(o.hashCost))
	projects := project.New(catalog.Projects, o.clock, logger)
	mailer := notify.New(backend, logger)
	tasks := task.New(catalog.Tasks, users, projects, logger,
		task.WithClock(o.clock), task.WithNotifier(mailer))

	a := &App{
		Backend: backend,
		Catalog: catalog,
		Session: session.NewStore(backend),
		Clock:   o.clock,
		logger:  logger,
		Services: server.Services{
			Identity:  users,
			Tokens:    session.NewTokens(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL),
			Projects:  projects,
			Tasks:     tasks,
			Reports:   report.New(catalog.Reports, tasks, ai, o.clock, logger),
			Stats:     stats.New(tasks, users, o.clock),
			Assistant: ai,
			Mailer:    mailer,
		},
	}

	if _, err := users.Seed(ctx); err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("seed accounts: %w", err)
	}
	if cfg.SeedDemo {
		if err := a.SeedDemo(ctx); err != nil {
			_ = a.Close()
			return nil, fmt.Errorf("seed demo data: %w", err)
		}
	}
	return a, nil
}

// Close waits for pending notifications and releases the backend.
func (a *App) Close() error {
	a.Services.Mailer.Wait()
	var errs []error
	if closer, ok := a.Services.Assistant.(interface{ Close() error }); ok {
		errs = append(errs, closer.Close())
	}
	errs = append(errs, a.Backend.Close())
	return errors.Join(errs...)
}

func openBackend(ctx context.Context, cfg config.StorageConfig, logger *slog.Logger) (storage.Backend, error) {
	switch cfg.Driver {
	case "sqlite":
		store, err := sqlite.Open(cfg.Path, logger)
		if err != nil {
			return nil, err
		}
		return store, nil
	case "mongo":
		store, err := mongo.Open(ctx, cfg.MongoURI, cfg.MongoDatabase, logger)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
