package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/recite-app/recite-api/internal/api/shared"
	"github.com/recite-app/recite-api/internal/cloze"
	"github.com/recite-app/recite-api/internal/domain"
	"github.com/recite-app/recite-api/internal/platform/logger"
	"github.com/recite-app/recite-api/internal/redact"
	"github.com/recite-app/recite-api/internal/service"
)

// Default pagination bounds for note listings.
const (
	defaultNoteListLimit = 50
	maxNoteListLimit     = 200
)

// NoteResponse represents the response data for a note.
type NoteResponse struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Tags      []string  `json:"tags,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreateNoteRequest defines the payload for creating a note. Title may be
// empty when the body carries a frontmatter title.
type CreateNoteRequest struct {
	Title string `json:"title" validate:"max=500"`
	Body  string `json:"body"`
}

// UpdateNoteBodyRequest defines the payload for body updates and saves.
type UpdateNoteBodyRequest struct {
	Body string `json:"body"`
}

// ParseResponse reports the scan of a note's current body: every valid
// occurrence plus every recovered syntax issue.
type ParseResponse struct {
	Occurrences []cloze.Occurrence `json:"occurrences"`
	Issues      []cloze.Issue      `json:"issues"`
}

// InsertClozeRequest defines the payload for wrapping a selection in a
// cloze annotation.
type InsertClozeRequest struct {
	Start int    `json:"start" validate:"gte=0"`
	End   int    `json:"end"   validate:"gte=0"`
	Mode  string `json:"mode"  validate:"required,oneof=new same"`
}

// InsertClozeResponse returns the updated note and the selection covering
// the inserted answer text, so the editor can restore the user's cursor.
type InsertClozeResponse struct {
	Note            NoteResponse    `json:"note"`
	AnswerSelection cloze.Selection `json:"answer_selection"`
}

// UnclozeRequest defines the payload for removing cloze wrappers under a
// selection.
type UnclozeRequest struct {
	Start int `json:"start" validate:"gte=0"`
	End   int `json:"end"   validate:"gte=0"`
}

// MutationCountResponse returns the updated note and how many wrappers a
// mutation removed.
type MutationCountResponse struct {
	Note    NoteResponse `json:"note"`
	Removed int          `json:"removed"`
}

// NormalizePreviewResponse reports how normalization would renumber ids.
type NormalizePreviewResponse struct {
	Mappings []cloze.IDMapping `json:"mappings"`
}

// NormalizeResponse returns the renumbered note and the applied mappings.
type NormalizeResponse struct {
	Note     NoteResponse      `json:"note"`
	Mappings []cloze.IDMapping `json:"mappings"`
}

// NoteHandler handles note-related HTTP requests: CRUD, parsing, cloze
// mutations and id normalization.
type NoteHandler struct {
	noteService service.NoteService
	logger      *slog.Logger
}

// NewNoteHandler creates a new NoteHandler.
func NewNoteHandler(noteService service.NoteService, logger *slog.Logger) *NoteHandler {
	if noteService == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("noteService cannot be nil for NoteHandler")
	}
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for NoteHandler")
	}

	return &NoteHandler{
		noteService: noteService,
		logger:      logger.With(slog.String("component", "note_handler")),
	}
}

// CreateNote handles POST /notes requests.
func (h *NoteHandler) CreateNote(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, ok := getUserIDFromContext(r)
	if !ok {
		log.Warn("user ID not found or invalid in request context")
		shared.RespondWithError(w, r, http.StatusUnauthorized, "User ID not found or invalid")
		return
	}

	var req CreateNoteRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		log.Warn("invalid request format", slog.String("error", redact.Error(err)))
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, SanitizeValidationError(err), err)
		return
	}

	note, err := h.noteService.CreateNote(r.Context(), userID, req.Title, req.Body)
	if err != nil {
		// A note needs a title from the request or the body's frontmatter.
		if errors.Is(err, domain.ErrEmptyNoteTitle) {
			shared.RespondWithError(w, r, http.StatusBadRequest, "Note title is required")
			return
		}
		HandleAPIError(w, r, err, "Failed to create note")
		return
	}

	log.Debug("note created",
		slog.String("user_id", userID.String()),
		slog.String("note_id", note.ID.String()))
	shared.RespondWithJSON(w, r, http.StatusCreated, noteToResponse(note))
}

// ListNotes handles GET /notes requests with limit/offset pagination.
func (h *NoteHandler) ListNotes(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, ok := getUserIDFromContext(r)
	if !ok {
		log.Warn("user ID not found or invalid in request context")
		shared.RespondWithError(w, r, http.StatusUnauthorized, "User ID not found or invalid")
		return
	}

	limit := queryInt(r, "limit", defaultNoteListLimit)
	if limit < 1 || limit > maxNoteListLimit {
		limit = defaultNoteListLimit
	}
	offset := queryInt(r, "offset", 0)
	if offset < 0 {
		offset = 0
	}

	notes, err := h.noteService.ListNotes(r.Context(), userID, limit, offset)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list notes")
		return
	}

	responses := make([]NoteResponse, 0, len(notes))
	for _, note := range notes {
		responses = append(responses, noteToResponse(note))
	}
	shared.RespondWithJSON(w, r, http.StatusOK, responses)
}

// GetNote handles GET /notes/{id} requests.
func (h *NoteHandler) GetNote(w http.ResponseWriter, r *http.Request) {
	userID, noteID, ok := handleUserIDAndPathUUID(w, r, "id", h.logger)
	if !ok {
		return
	}

	note, err := h.noteService.GetNote(r.Context(), userID, noteID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to get note")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, noteToResponse(note))
}

// UpdateNoteBody handles PUT /notes/{id} requests. The write schedules a
// debounced background reparse rather than reparsing inline.
func (h *NoteHandler) UpdateNoteBody(w http.ResponseWriter, r *http.Request) {
	userID, noteID, ok := handleUserIDAndPathUUID(w, r, "id", h.logger)
	if !ok {
		return
	}

	var req UpdateNoteBodyRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	note, err := h.noteService.UpdateBody(r.Context(), userID, noteID, req.Body)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to update note")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, noteToResponse(note))
}

// SaveNote handles POST /notes/{id}/save requests. Saves reparse
// synchronously and suppress any pending debounced reparse.
func (h *NoteHandler) SaveNote(w http.ResponseWriter, r *http.Request) {
	userID, noteID, ok := handleUserIDAndPathUUID(w, r, "id", h.logger)
	if !ok {
		return
	}

	var req UpdateNoteBodyRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	note, err := h.noteService.SaveNote(r.Context(), userID, noteID, req.Body)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to save note")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, noteToResponse(note))
}

// DeleteNote handles DELETE /notes/{id} requests.
func (h *NoteHandler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	userID, noteID, ok := handleUserIDAndPathUUID(w, r, "id", h.logger)
	if !ok {
		return
	}

	if err := h.noteService.DeleteNote(r.Context(), userID, noteID); err != nil {
		HandleAPIError(w, r, err, "Failed to delete note")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ParseNote handles GET /notes/{id}/parse requests. It returns every valid
// cloze occurrence in the note plus every recovered syntax issue.
func (h *NoteHandler) ParseNote(w http.ResponseWriter, r *http.Request) {
	userID, noteID, ok := handleUserIDAndPathUUID(w, r, "id", h.logger)
	if !ok {
		return
	}

	index, err := h.noteService.ParseNote(r.Context(), userID, noteID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to parse note")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, ParseResponse{
		Occurrences: index.Occurrences,
		Issues:      index.Issues,
	})
}

// ListCards handles GET /notes/{id}/cards requests.
func (h *NoteHandler) ListCards(w http.ResponseWriter, r *http.Request) {
	userID, noteID, ok := handleUserIDAndPathUUID(w, r, "id", h.logger)
	if !ok {
		return
	}

	cards, err := h.noteService.ListCards(r.Context(), userID, noteID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list cards")
		return
	}

	responses := make([]CardResponse, 0, len(cards))
	for _, card := range cards {
		responses = append(responses, cardToResponse(card))
	}
	shared.RespondWithJSON(w, r, http.StatusOK, responses)
}

// InsertCloze handles POST /notes/{id}/clozes requests.
func (h *NoteHandler) InsertCloze(w http.ResponseWriter, r *http.Request) {
	userID, noteID, ok := handleUserIDAndPathUUID(w, r, "id", h.logger)
	if !ok {
		return
	}

	var req InsertClozeRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, SanitizeValidationError(err), err)
		return
	}

	note, answer, err := h.noteService.InsertCloze(
		r.Context(),
		userID, noteID,
		cloze.Selection{Start: req.Start, End: req.End},
		cloze.InsertMode(req.Mode),
	)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to insert cloze")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, InsertClozeResponse{
		Note:            noteToResponse(note),
		AnswerSelection: answer,
	})
}

// Uncloze handles POST /notes/{id}/uncloze requests. Wrappers under the
// selection are removed; their answer text stays.
func (h *NoteHandler) Uncloze(w http.ResponseWriter, r *http.Request) {
	userID, noteID, ok := handleUserIDAndPathUUID(w, r, "id", h.logger)
	if !ok {
		return
	}

	var req UnclozeRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, SanitizeValidationError(err), err)
		return
	}

	note, removed, err := h.noteService.Uncloze(
		r.Context(),
		userID, noteID,
		cloze.Selection{Start: req.Start, End: req.End},
	)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to remove cloze")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, MutationCountResponse{
		Note:    noteToResponse(note),
		Removed: removed,
	})
}

// DeleteOccurrence handles DELETE /notes/{id}/clozes/{clozeID}/occurrences/{occurrenceIndex}
// requests. It removes the occurrence's entire span, answer text included.
func (h *NoteHandler) DeleteOccurrence(w http.ResponseWriter, r *http.Request) {
	userID, noteID, ok := handleUserIDAndPathUUID(w, r, "id", h.logger)
	if !ok {
		return
	}

	clozeID, err := pathUint(r, "clozeID")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	occurrenceIndex, err := pathUint(r, "occurrenceIndex")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	note, err := h.noteService.DeleteOccurrence(r.Context(), userID, noteID, clozeID, occurrenceIndex)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to delete cloze occurrence")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, noteToResponse(note))
}

// CleanInvalid handles POST /notes/{id}/clean requests. Malformed cloze
// wrappers are stripped; their inner text stays.
func (h *NoteHandler) CleanInvalid(w http.ResponseWriter, r *http.Request) {
	userID, noteID, ok := handleUserIDAndPathUUID(w, r, "id", h.logger)
	if !ok {
		return
	}

	note, removed, err := h.noteService.CleanInvalid(r.Context(), userID, noteID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to clean invalid clozes")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, MutationCountResponse{
		Note:    noteToResponse(note),
		Removed: removed,
	})
}

// PreviewNormalize handles GET /notes/{id}/normalize requests. Nothing is
// modified; the response reports the renumbering ApplyNormalize would do.
func (h *NoteHandler) PreviewNormalize(w http.ResponseWriter, r *http.Request) {
	userID, noteID, ok := handleUserIDAndPathUUID(w, r, "id", h.logger)
	if !ok {
		return
	}

	mappings, err := h.noteService.PreviewNormalize(r.Context(), userID, noteID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to preview normalization")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, NormalizePreviewResponse{Mappings: mappings})
}

// ApplyNormalize handles POST /notes/{id}/normalize requests. Renumbering
// discards review history for the renumbered ids, so clients confirm with
// the user before calling this.
func (h *NoteHandler) ApplyNormalize(w http.ResponseWriter, r *http.Request) {
	userID, noteID, ok := handleUserIDAndPathUUID(w, r, "id", h.logger)
	if !ok {
		return
	}

	note, mappings, err := h.noteService.ApplyNormalize(r.Context(), userID, noteID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to normalize note")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, NormalizeResponse{
		Note:     noteToResponse(note),
		Mappings: mappings,
	})
}

// noteToResponse converts a domain.Note to a NoteResponse.
func noteToResponse(note *domain.Note) NoteResponse {
	return NoteResponse{
		ID:        note.ID.String(),
		Title:     note.Title,
		Body:      note.Body,
		Tags:      note.Tags,
		CreatedAt: note.CreatedAt,
		UpdatedAt: note.UpdatedAt,
	}
}

// queryInt reads an integer query parameter, falling back to def when the
// parameter is absent or unparseable.
func queryInt(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

// pathUint parses a non-negative integer path parameter.
func pathUint(r *http.Request, paramName string) (uint, error) {
	raw := chi.URLParam(r, paramName)
	if raw == "" {
		return 0, domain.NewValidationError(paramName, "is required", domain.ErrValidation)
	}
	n, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, domain.NewValidationError(paramName, "has invalid format", domain.ErrValidation)
	}
	return uint(n), nil
}
