package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/recite-app/recite-api/internal/api"
	apiMiddleware "github.com/recite-app/recite-api/internal/api/middleware"
)

// setupRouter creates and configures the application router with all routes
// and middleware. Returns the configured router.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	// Apply standard middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.TraceMiddleware) // trace IDs for error correlation

	// Create API handlers using the application's services
	authHandler := api.NewAuthHandler(
		app.userStore,
		app.jwtService,
		app.passwordVerifier,
		app.config.Auth,
	)
	noteHandler := api.NewNoteHandler(app.noteService, app.logger)
	userHandler := api.NewUserHandler(app.userService, app.logger)
	cardHandler := api.NewCardHandler(app.cardReviewService, app.logger)
	authMiddleware := apiMiddleware.NewAuthMiddleware(app.jwtService)

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Public routes
		r.Post("/auth/register", authHandler.Register)
		r.Post("/auth/login", authHandler.Login)
		r.Post("/auth/refresh", authHandler.RefreshToken)

		// Authenticated routes
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Authenticate)

			// Current user
			r.Get("/users/me", userHandler.GetCurrentUser)
			r.Put("/users/me/password", userHandler.UpdatePassword)

			// Notes: CRUD and the editing pipeline
			r.Post("/notes", noteHandler.CreateNote)
			r.Get("/notes", noteHandler.ListNotes)
			r.Get("/notes/{id}", noteHandler.GetNote)
			r.Put("/notes/{id}", noteHandler.UpdateNoteBody)
			r.Delete("/notes/{id}", noteHandler.DeleteNote)
			r.Post("/notes/{id}/save", noteHandler.SaveNote)
			r.Get("/notes/{id}/parse", noteHandler.ParseNote)
			r.Get("/notes/{id}/cards", noteHandler.ListCards)

			// Cloze mutations
			r.Post("/notes/{id}/clozes", noteHandler.InsertCloze)
			r.Post("/notes/{id}/uncloze", noteHandler.Uncloze)
			r.Delete(
				"/notes/{id}/clozes/{clozeID}/occurrences/{occurrenceIndex}",
				noteHandler.DeleteOccurrence,
			)
			r.Post("/notes/{id}/clean", noteHandler.CleanInvalid)

			// Cloze id normalization: preview, then explicit apply
			r.Get("/notes/{id}/normalize", noteHandler.PreviewNormalize)
			r.Post("/notes/{id}/normalize", noteHandler.ApplyNormalize)

			// Review
			r.Get("/cards/next", cardHandler.GetNextReviewCard)
			r.Post("/cards/answer", cardHandler.SubmitAnswer)
			r.Post("/cards/postpone", cardHandler.PostponeReview)
			r.Get("/cards/due-count", cardHandler.GetDueCount)
		})
	})

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			app.logger.Error("failed to write health check response", "error", err)
		}
	})

	return r
}
