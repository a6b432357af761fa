package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/recite-app/recite-api/internal/api/shared"
	"github.com/recite-app/recite-api/internal/domain"
	"github.com/recite-app/recite-api/internal/service"
	"github.com/recite-app/recite-api/internal/service/auth"
	"github.com/recite-app/recite-api/internal/service/card_review"
	"github.com/recite-app/recite-api/internal/store"
)

// MapErrorToStatusCode maps internal errors to appropriate HTTP status codes
// based on the error type. This prevents leaking internal error types or
// messages to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	// Authentication errors
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrInvalidRefreshToken),
		errors.Is(err, auth.ErrExpiredRefreshToken),
		errors.Is(err, auth.ErrWrongTokenType),
		errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized

	// Authorization errors
	case errors.Is(err, service.ErrNotOwned):
		return http.StatusForbidden

	// Not found errors
	case errors.Is(err, store.ErrUserNotFound),
		errors.Is(err, store.ErrNoteNotFound),
		errors.Is(err, store.ErrCardNotFound),
		errors.Is(err, store.ErrReviewStateNotFound),
		errors.Is(err, service.ErrNoteNotFound),
		errors.Is(err, card_review.ErrCardNotFound),
		errors.Is(err, card_review.ErrReviewStateNotFound):
		return http.StatusNotFound

	// Conflict errors
	case errors.Is(err, store.ErrEmailExists),
		errors.Is(err, service.ErrOccurrenceNotFound):
		return http.StatusConflict

	// Bad request errors
	case errors.Is(err, store.ErrInvalidEntity),
		errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidID),
		errors.Is(err, card_review.ErrInvalidAnswer),
		errors.Is(err, card_review.ErrInvalidPostpone):
		return http.StatusBadRequest

	// Special cases
	case errors.Is(err, card_review.ErrNoCardsDue):
		return http.StatusNoContent

	case errors.Is(err, service.ErrNothingToNormalize):
		return http.StatusUnprocessableEntity

	// Default: internal server error
	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a sanitized, user-friendly error message
// based on the error type. This prevents leaking sensitive internal details.
func GetSafeErrorMessage(err error) string {
	// Handle nil error
	if err == nil {
		return "An unexpected error occurred"
	}

	// Map specific error types to user-friendly messages
	switch {
	// Authentication errors
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken):
		return "Invalid token"

	case errors.Is(err, auth.ErrInvalidRefreshToken),
		errors.Is(err, auth.ErrExpiredRefreshToken),
		errors.Is(err, auth.ErrWrongTokenType):
		return "Invalid refresh token"

	case errors.Is(err, domain.ErrUnauthorized):
		return "Unauthorized"

	// Authorization errors
	case errors.Is(err, service.ErrNotOwned):
		return "You do not own this note"

	// Not found errors
	case errors.Is(err, store.ErrUserNotFound):
		return "User not found"

	case errors.Is(err, store.ErrNoteNotFound),
		errors.Is(err, service.ErrNoteNotFound):
		return "Note not found"

	case errors.Is(err, store.ErrCardNotFound),
		errors.Is(err, card_review.ErrCardNotFound):
		return "Card not found"

	case errors.Is(err, store.ErrReviewStateNotFound),
		errors.Is(err, card_review.ErrReviewStateNotFound):
		return "Review state not found"

	// Conflict errors
	case errors.Is(err, store.ErrEmailExists):
		return "Email already exists"

	case errors.Is(err, service.ErrOccurrenceNotFound):
		return "Cloze occurrence no longer exists"

	// Bad request errors
	case errors.Is(err, store.ErrInvalidEntity):
		return "Invalid entity data"

	case errors.Is(err, card_review.ErrInvalidAnswer):
		return "Invalid answer"

	case errors.Is(err, card_review.ErrInvalidPostpone):
		return "Invalid postpone duration"

	case errors.Is(err, service.ErrNothingToNormalize):
		return "Cloze IDs are already normalized"

	// Validation errors carry a safe field-level message of their own.
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrInvalidID):
		var validationErr *domain.ValidationError
		if errors.As(err, &validationErr) {
			return validationErr.Error()
		}
		return "Validation error"

	// No cards due is handled separately with StatusNoContent

	// Default case for unknown errors
	default:
		// Check if we're in a card review context by looking at the error string
		if strings.Contains(err.Error(), "submit answer") {
			return "Failed to submit answer"
		} else if strings.Contains(err.Error(), "get next") {
			return "Failed to get next review card"
		}
		return "An unexpected error occurred"
	}
}

// HandleAPIError maps an internal error to an HTTP status and safe message,
// then writes the error response. When fallbackMessage is non-empty it
// replaces the mapped message for errors that resolve to 500, keeping
// handler-specific context without leaking internals.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error, fallbackMessage string) {
	status := MapErrorToStatusCode(err)
	if status == http.StatusNoContent {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	message := GetSafeErrorMessage(err)
	if status == http.StatusInternalServerError && fallbackMessage != "" {
		message = fallbackMessage
	}

	shared.RespondWithErrorAndLog(w, r, status, message, err)
}

// SanitizeValidationError removes sensitive details from validation errors
// and returns a user-friendly message.
func SanitizeValidationError(err error) string {
	errMsg := err.Error()

	// Check if this is likely a validation error message
	if strings.Contains(errMsg, "Field validation") {
		// Extract the field name and validation tag
		// Example format: "Key: 'LoginRequest.Email' Error:Field validation for 'Email' failed on the 'required' tag"
		parts := strings.Split(errMsg, "Error:")
		if len(parts) >= 2 {
			// Further split to get just the field validation part
			fieldParts := strings.Split(parts[1], "'")
			if len(fieldParts) >= 3 {
				field := fieldParts[1]
				var tag string
				if len(fieldParts) >= 5 {
					tag = fieldParts[3]
				}

				// Create a cleaner error message
				if tag != "" {
					return fmt.Sprintf("Invalid %s: %s", field, getValidationTagMessage(tag))
				}
				return fmt.Sprintf("Invalid %s", field)
			}
		}
	}

	// Fall back to a generic validation error message
	return "Validation error"
}

// getValidationTagMessage maps validation tags to user-friendly error messages
func getValidationTagMessage(tag string) string {
	switch tag {
	case "required":
		return "required field"
	case "email":
		return "invalid email format"
	case "min":
		return "too short"
	case "max":
		return "too long"
	case "gte", "gt":
		return "too small"
	case "oneof":
		return "invalid value"
	default:
		return "validation failed"
	}
}
