package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/mnperrone/tasks-api/internal/cache"
	"github.com/mnperrone/tasks-api/internal/config"
	"github.com/mnperrone/tasks-api/internal/events"
	"github.com/mnperrone/tasks-api/internal/platform/postgres"
	"github.com/mnperrone/tasks-api/internal/service"
	"github.com/mnperrone/tasks-api/internal/service/auth"
	"github.com/mnperrone/tasks-api/internal/service/taskimport"
	"github.com/mnperrone/tasks-api/internal/store"
)

// application holds all the shared application dependencies to simplify
// management and ensure proper cleanup on shutdown.
type application struct {
	// Configuration
	config *config.Config

	// Core services
	logger *slog.Logger
	db     *sql.DB

	// Stores (using interfaces for proper abstraction)
	userStore store.UserStore
	taskStore store.TaskStore

	// Caching
	taskCache cache.TagCache

	// Service interfaces
	jwtService       auth.JWTService
	passwordHasher   auth.PasswordHasher
	passwordVerifier auth.PasswordVerifier
	taskService      service.TaskService
	reconciler       *taskimport.Reconciler

	// Event system
	eventEmitter events.EventEmitter
}

// newApplication creates a new application instance with all dependencies
// initialized. It accepts core dependencies like configuration, logger, and
// database connection that must be established before application
// initialization.
func newApplication(
	ctx context.Context,
	cfg *config.Config,
	logger *slog.Logger,
	db *sql.DB,
) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
		db:     db,
	}

	var err error
	app.jwtService, err = auth.NewJWTService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize JWT service: %w", err)
	}
	logger.Info("JWT authentication service initialized",
		"token_lifetime_minutes", cfg.Auth.TokenLifetimeMinutes)

	app.passwordHasher = auth.NewBcryptHasher()
	app.passwordVerifier = auth.NewBcryptVerifier()

	app.userStore = postgres.NewPostgresUserStore(db, logger)
	app.taskStore = postgres.NewPostgresTaskStore(db, logger)

	app.taskCache, err = setupTaskCache(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize task cache: %w", err)
	}

	emitter := events.NewInMemoryEventEmitter(logger)
	emitter.RegisterHandler(events.NewLogListener(logger))
	app.eventEmitter = emitter

	app.taskService, err = service.NewTaskService(
		app.taskStore,
		app.taskCache,
		app.eventEmitter,
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create task service: %w", err)
	}

	fetcher, err := taskimport.NewHTTPFetcher(cfg.Sync, nil, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create task fetcher: %w", err)
	}

	app.reconciler, err = taskimport.NewReconciler(fetcher, app.taskStore, app.taskService, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create reconciler: %w", err)
	}

	logger.Info("Application initialized successfully")
	return app, nil
}

// Run starts the application server, handling lifecycle and cleanup.
func (app *application) Run(ctx context.Context) error {
	router := app.setupRouter()

	if err := app.startHTTPServer(ctx, router); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// cleanup handles graceful shutdown of application resources.
func (app *application) cleanup() {
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("Error closing database connection", "error", err)
		}
	}

	app.logger.Info("Application shutdown completed")
}
