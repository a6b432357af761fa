package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/recite-app/recite-api/internal/config"
	"github.com/recite-app/recite-api/internal/domain/srs"
	"github.com/recite-app/recite-api/internal/events"
	"github.com/recite-app/recite-api/internal/platform/postgres"
	"github.com/recite-app/recite-api/internal/service"
	"github.com/recite-app/recite-api/internal/service/auth"
	"github.com/recite-app/recite-api/internal/service/card_review"
	"github.com/recite-app/recite-api/internal/store"
	"github.com/recite-app/recite-api/internal/task"
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
	userStore   store.UserStore
	noteStore   store.NoteStore
	cardStore   store.CardStore
	reviewStore store.ReviewStateStore
	taskStore   task.TaskStore

	// Service interfaces
	jwtService        auth.JWTService
	passwordVerifier  auth.PasswordVerifier
	srsService        srs.Service
	userService       service.UserService
	noteService       service.NoteService
	cardReviewService card_review.CardReviewService

	// Event system
	eventEmitter events.EventEmitter

	// Editing pipeline
	scheduler *service.ReparseScheduler

	// Task handling
	taskRunner *task.TaskRunner
}

// newApplication creates a new application instance with all dependencies
// initialized. It accepts core dependencies like configuration, logger, and
// database connection that must be established before application
// initialization.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger, db *sql.DB) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
		db:     db,
	}

	// Initialize JWT service
	var err error
	app.jwtService, err = auth.NewJWTService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize JWT service: %w", err)
	}
	logger.Info("JWT authentication service initialized",
		"token_lifetime_minutes", cfg.Auth.TokenLifetimeMinutes)

	// Initialize password verifier
	app.passwordVerifier = auth.NewBcryptVerifier()

	// Initialize stores
	app.userStore = postgres.NewPostgresUserStore(db, cfg.Auth.BcryptCost, logger)
	app.noteStore = postgres.NewPostgresNoteStore(db, logger)
	app.cardStore = postgres.NewPostgresCardStore(db, logger)
	app.reviewStore = postgres.NewPostgresReviewStateStore(db, logger)
	app.taskStore = postgres.NewPostgresTaskStore(db, logger)

	// Initialize SRS service
	app.srsService = srs.NewDefaultService()

	// Initialize task runner
	app.taskRunner = task.NewTaskRunner(app.taskStore, task.TaskRunnerConfig{
		QueueSize:    cfg.Task.QueueSize,
		WorkerCount:  cfg.Task.WorkerCount,
		StuckTaskAge: time.Duration(cfg.Task.StuckTaskAgeMinutes) * time.Minute,
	}, logger)

	// Initialize event emitter and the reparse scheduler that feeds it
	emitter := events.NewInMemoryEventEmitter(logger)
	app.eventEmitter = emitter
	app.scheduler = service.NewReparseScheduler(cfg.Parser, app.eventEmitter, logger)

	// Initialize services
	app.userService = service.NewUserService(app.userStore, db, logger)
	app.noteService = service.NewNoteService(
		db,
		app.noteStore,
		app.cardStore,
		app.reviewStore,
		app.scheduler,
		logger,
	)
	app.cardReviewService = card_review.NewCardReviewService(
		db,
		app.cardStore,
		app.reviewStore,
		app.srsService,
		logger,
	)

	// Wire the background reparse pipeline: events from the scheduler become
	// tasks, tasks call back into the note service.
	taskFactory := task.NewNoteReparseTaskFactory(app.noteService, logger)
	app.taskRunner.SetReconstructor(taskFactory.ReconstructTask)
	emitter.RegisterHandler(task.NewTaskFactoryEventHandler(taskFactory, app.taskRunner, logger))

	// Start the task runner, recovering any tasks left over from a previous
	// run now that the reconstructor is in place.
	if err := app.taskRunner.Start(); err != nil {
		return nil, fmt.Errorf("failed to start task runner: %w", err)
	}
	if err := app.taskRunner.Recover(); err != nil {
		logger.Error("failed to recover pending tasks", "error", err)
	}

	logger.Info("Application initialized successfully")
	return app, nil
}

// Run starts the application server, handling lifecycle and cleanup.
// It returns an error if the server fails to start or encounters problems.
func (app *application) Run(ctx context.Context) error {
	// Set up router using the application dependencies
	router := app.setupRouter()

	// Start the HTTP server
	err := app.startHTTPServer(ctx, router)
	if err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// cleanup handles graceful shutdown of application resources.
func (app *application) cleanup() {
	// Stop the scheduler first so no new reparse events are emitted
	if app.scheduler != nil {
		app.scheduler.Stop()
	}

	// Stop task runner
	if app.taskRunner != nil {
		app.taskRunner.Stop()
	}

	// Close database connection
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("Error closing database connection", "error", err)
		}
	}

	app.logger.Info("Application shutdown completed")
}
