package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/recite-app/recite-api/internal/api/shared"
	"github.com/recite-app/recite-api/internal/platform/logger"
	"github.com/recite-app/recite-api/internal/redact"
	"github.com/recite-app/recite-api/internal/service"
)

// UserResponse defines the payload returned for the current user's profile.
type UserResponse struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// UpdatePasswordRequest defines the payload for changing the current user's
// password. The same length bounds apply as at registration.
type UpdatePasswordRequest struct {
	NewPassword string `json:"new_password" validate:"required,min=12,max=72"`
}

// UserHandler handles HTTP requests for the authenticated user's own account.
type UserHandler struct {
	userService service.UserService
	logger      *slog.Logger
}

// NewUserHandler creates a new UserHandler with the given user service.
func NewUserHandler(userService service.UserService, logger *slog.Logger) *UserHandler {
	if userService == nil {
		panic("userService cannot be nil")
	}
	if logger == nil {
		panic("logger cannot be nil")
	}
	return &UserHandler{
		userService: userService,
		logger:      logger.With("component", "user_handler"),
	}
}

// GetCurrentUser handles GET /users/me requests and returns the
// authenticated user's profile.
func (h *UserHandler) GetCurrentUser(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, ok := getUserIDFromContext(r)
	if !ok {
		log.Warn("user ID not found or invalid in request context")
		shared.RespondWithError(w, r, http.StatusUnauthorized, "User ID not found or invalid")
		return
	}

	user, err := h.userService.GetUser(r.Context(), userID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to retrieve user")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, UserResponse{
		ID:        user.ID,
		Email:     user.Email,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	})
}

// UpdatePassword handles PUT /users/me/password requests and replaces the
// authenticated user's password.
func (h *UserHandler) UpdatePassword(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, ok := getUserIDFromContext(r)
	if !ok {
		log.Warn("user ID not found or invalid in request context")
		shared.RespondWithError(w, r, http.StatusUnauthorized, "User ID not found or invalid")
		return
	}

	var req UpdatePasswordRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		log.Warn("invalid request format",
			slog.String("error", redact.Error(err)),
			slog.String("user_id", userID.String()))
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := shared.ValidateRequest(req); err != nil {
		log.Warn("validation error",
			slog.String("error", redact.Error(err)),
			slog.String("user_id", userID.String()))
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, SanitizeValidationError(err), err)
		return
	}

	if err := h.userService.UpdateUserPassword(r.Context(), userID, req.NewPassword); err != nil {
		HandleAPIError(w, r, err, "Failed to update password")
		return
	}

	log.Info("user password updated", slog.String("user_id", userID.String()))
	w.WriteHeader(http.StatusNoContent)
}
