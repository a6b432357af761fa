package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recite-app/recite-api/internal/cloze"
	"github.com/recite-app/recite-api/internal/domain"
	"github.com/recite-app/recite-api/internal/service"
)

// mockNoteService implements service.NoteService with function fields.
type mockNoteService struct {
	CreateNoteFunc       func(ctx context.Context, userID uuid.UUID, title, body string) (*domain.Note, error)
	GetNoteFunc          func(ctx context.Context, userID, noteID uuid.UUID) (*domain.Note, error)
	ListNotesFunc        func(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*domain.Note, error)
	ListCardsFunc        func(ctx context.Context, userID, noteID uuid.UUID) ([]*domain.Card, error)
	DeleteNoteFunc       func(ctx context.Context, userID, noteID uuid.UUID) error
	UpdateBodyFunc       func(ctx context.Context, userID, noteID uuid.UUID, body string) (*domain.Note, error)
	SaveNoteFunc         func(ctx context.Context, userID, noteID uuid.UUID, body string) (*domain.Note, error)
	ParseNoteFunc        func(ctx context.Context, userID, noteID uuid.UUID) (*cloze.DocumentIndex, error)
	InsertClozeFunc      func(ctx context.Context, userID, noteID uuid.UUID, sel cloze.Selection, mode cloze.InsertMode) (*domain.Note, cloze.Selection, error)
	UnclozeFunc          func(ctx context.Context, userID, noteID uuid.UUID, sel cloze.Selection) (*domain.Note, int, error)
	DeleteOccurrenceFunc func(ctx context.Context, userID, noteID uuid.UUID, clozeID, occurrenceIndex uint) (*domain.Note, error)
	CleanInvalidFunc     func(ctx context.Context, userID, noteID uuid.UUID) (*domain.Note, int, error)
	PreviewNormalizeFunc func(ctx context.Context, userID, noteID uuid.UUID) ([]cloze.IDMapping, error)
	ApplyNormalizeFunc   func(ctx context.Context, userID, noteID uuid.UUID) (*domain.Note, []cloze.IDMapping, error)
	ReparseNoteFunc      func(ctx context.Context, noteID uuid.UUID) error
}

var _ service.NoteService = (*mockNoteService)(nil)

func (m *mockNoteService) CreateNote(ctx context.Context, userID uuid.UUID, title, body string) (*domain.Note, error) {
	if m.CreateNoteFunc != nil {
		return m.CreateNoteFunc(ctx, userID, title, body)
	}
	return domain.NewNote(userID, title, body)
}

func (m *mockNoteService) GetNote(ctx context.Context, userID, noteID uuid.UUID) (*domain.Note, error) {
	if m.GetNoteFunc != nil {
		return m.GetNoteFunc(ctx, userID, noteID)
	}
	return nil, service.ErrNoteNotFound
}

func (m *mockNoteService) ListNotes(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*domain.Note, error) {
	if m.ListNotesFunc != nil {
		return m.ListNotesFunc(ctx, userID, limit, offset)
	}
	return nil, nil
}

func (m *mockNoteService) ListCards(ctx context.Context, userID, noteID uuid.UUID) ([]*domain.Card, error) {
	if m.ListCardsFunc != nil {
		return m.ListCardsFunc(ctx, userID, noteID)
	}
	return nil, nil
}

func (m *mockNoteService) DeleteNote(ctx context.Context, userID, noteID uuid.UUID) error {
	if m.DeleteNoteFunc != nil {
		return m.DeleteNoteFunc(ctx, userID, noteID)
	}
	return nil
}

func (m *mockNoteService) UpdateBody(ctx context.Context, userID, noteID uuid.UUID, body string) (*domain.Note, error) {
	if m.UpdateBodyFunc != nil {
		return m.UpdateBodyFunc(ctx, userID, noteID, body)
	}
	return nil, service.ErrNoteNotFound
}

func (m *mockNoteService) SaveNote(ctx context.Context, userID, noteID uuid.UUID, body string) (*domain.Note, error) {
	if m.SaveNoteFunc != nil {
		return m.SaveNoteFunc(ctx, userID, noteID, body)
	}
	return nil, service.ErrNoteNotFound
}

func (m *mockNoteService) ParseNote(ctx context.Context, userID, noteID uuid.UUID) (*cloze.DocumentIndex, error) {
	if m.ParseNoteFunc != nil {
		return m.ParseNoteFunc(ctx, userID, noteID)
	}
	return nil, service.ErrNoteNotFound
}

func (m *mockNoteService) InsertCloze(ctx context.Context, userID, noteID uuid.UUID, sel cloze.Selection, mode cloze.InsertMode) (*domain.Note, cloze.Selection, error) {
	if m.InsertClozeFunc != nil {
		return m.InsertClozeFunc(ctx, userID, noteID, sel, mode)
	}
	return nil, cloze.Selection{}, service.ErrNoteNotFound
}

func (m *mockNoteService) Uncloze(ctx context.Context, userID, noteID uuid.UUID, sel cloze.Selection) (*domain.Note, int, error) {
	if m.UnclozeFunc != nil {
		return m.UnclozeFunc(ctx, userID, noteID, sel)
	}
	return nil, 0, service.ErrNoteNotFound
}

func (m *mockNoteService) DeleteOccurrence(ctx context.Context, userID, noteID uuid.UUID, clozeID, occurrenceIndex uint) (*domain.Note, error) {
	if m.DeleteOccurrenceFunc != nil {
		return m.DeleteOccurrenceFunc(ctx, userID, noteID, clozeID, occurrenceIndex)
	}
	return nil, service.ErrNoteNotFound
}

func (m *mockNoteService) CleanInvalid(ctx context.Context, userID, noteID uuid.UUID) (*domain.Note, int, error) {
	if m.CleanInvalidFunc != nil {
		return m.CleanInvalidFunc(ctx, userID, noteID)
	}
	return nil, 0, service.ErrNoteNotFound
}

func (m *mockNoteService) PreviewNormalize(ctx context.Context, userID, noteID uuid.UUID) ([]cloze.IDMapping, error) {
	if m.PreviewNormalizeFunc != nil {
		return m.PreviewNormalizeFunc(ctx, userID, noteID)
	}
	return nil, service.ErrNoteNotFound
}

func (m *mockNoteService) ApplyNormalize(ctx context.Context, userID, noteID uuid.UUID) (*domain.Note, []cloze.IDMapping, error) {
	if m.ApplyNormalizeFunc != nil {
		return m.ApplyNormalizeFunc(ctx, userID, noteID)
	}
	return nil, nil, service.ErrNoteNotFound
}

func (m *mockNoteService) ReparseNote(ctx context.Context, noteID uuid.UUID) error {
	if m.ReparseNoteFunc != nil {
		return m.ReparseNoteFunc(ctx, noteID)
	}
	return nil
}

// noteRouter mounts the handler on a chi router so path parameters resolve.
func noteRouter(handler *NoteHandler) http.Handler {
	r := chi.NewRouter()
	r.Post("/notes", handler.CreateNote)
	r.Get("/notes", handler.ListNotes)
	r.Get("/notes/{id}", handler.GetNote)
	r.Put("/notes/{id}", handler.UpdateNoteBody)
	r.Delete("/notes/{id}", handler.DeleteNote)
	r.Post("/notes/{id}/save", handler.SaveNote)
	r.Get("/notes/{id}/parse", handler.ParseNote)
	r.Get("/notes/{id}/cards", handler.ListCards)
	r.Post("/notes/{id}/clozes", handler.InsertCloze)
	r.Post("/notes/{id}/uncloze", handler.Uncloze)
	r.Delete("/notes/{id}/clozes/{clozeID}/occurrences/{occurrenceIndex}", handler.DeleteOccurrence)
	r.Post("/notes/{id}/clean", handler.CleanInvalid)
	r.Get("/notes/{id}/normalize", handler.PreviewNormalize)
	r.Post("/notes/{id}/normalize", handler.ApplyNormalize)
	return r
}

func serveNote(t *testing.T, svc service.NoteService, method, path string, userID uuid.UUID, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	handler := NewNoteHandler(svc, testLogger())
	recorder := httptest.NewRecorder()
	noteRouter(handler).ServeHTTP(recorder, authedRequest(t, method, path, userID, body))
	return recorder
}

func TestCreateNote(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	svc := &mockNoteService{
		CreateNoteFunc: func(ctx context.Context, uid uuid.UUID, title, body string) (*domain.Note, error) {
			assert.Equal(t, userID, uid)
			assert.Equal(t, "Biology", title)
			return domain.NewNote(uid, title, body)
		},
	}

	recorder := serveNote(t, svc, http.MethodPost, "/notes", userID, CreateNoteRequest{
		Title: "Biology",
		Body:  "The {{c1::mitochondria}}.",
	})

	require.Equal(t, http.StatusCreated, recorder.Code)

	var resp NoteResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &resp))
	assert.Equal(t, "Biology", resp.Title)
	assert.Equal(t, "The {{c1::mitochondria}}.", resp.Body)
}

func TestCreateNoteWithoutTitle(t *testing.T) {
	t.Parallel()

	svc := &mockNoteService{
		CreateNoteFunc: func(ctx context.Context, uid uuid.UUID, title, body string) (*domain.Note, error) {
			_, err := domain.NewNote(uid, title, body)
			return nil, err
		},
	}

	recorder := serveNote(t, svc, http.MethodPost, "/notes", uuid.New(), CreateNoteRequest{
		Body: "no frontmatter, no title",
	})

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestGetNoteNotOwned(t *testing.T) {
	t.Parallel()

	svc := &mockNoteService{
		GetNoteFunc: func(ctx context.Context, userID, noteID uuid.UUID) (*domain.Note, error) {
			return nil, service.ErrNotOwned
		},
	}

	recorder := serveNote(t, svc, http.MethodGet, "/notes/"+uuid.NewString(), uuid.New(), nil)

	assert.Equal(t, http.StatusForbidden, recorder.Code)
}

func TestGetNoteNotFound(t *testing.T) {
	t.Parallel()

	recorder := serveNote(t, &mockNoteService{}, http.MethodGet, "/notes/"+uuid.NewString(), uuid.New(), nil)

	assert.Equal(t, http.StatusNotFound, recorder.Code)
}

func TestGetNoteInvalidID(t *testing.T) {
	t.Parallel()

	recorder := serveNote(t, &mockNoteService{}, http.MethodGet, "/notes/not-a-uuid", uuid.New(), nil)

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestListNotesPagination(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	svc := &mockNoteService{
		ListNotesFunc: func(ctx context.Context, uid uuid.UUID, limit, offset int) ([]*domain.Note, error) {
			assert.Equal(t, 10, limit)
			assert.Equal(t, 20, offset)
			note, err := domain.NewNote(uid, "Note", "body")
			require.NoError(t, err)
			return []*domain.Note{note}, nil
		},
	}

	recorder := serveNote(t, svc, http.MethodGet, "/notes?limit=10&offset=20", userID, nil)

	require.Equal(t, http.StatusOK, recorder.Code)

	var resp []NoteResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &resp))
	assert.Len(t, resp, 1)
}

func TestParseNoteReportsOccurrencesAndIssues(t *testing.T) {
	t.Parallel()

	body := "The {{c1::mitochondria}} and {{c2::unclosed"
	svc := &mockNoteService{
		ParseNoteFunc: func(ctx context.Context, userID, noteID uuid.UUID) (*cloze.DocumentIndex, error) {
			return cloze.NewIndexer().Index(body), nil
		},
	}

	recorder := serveNote(t, svc, http.MethodGet, "/notes/"+uuid.NewString()+"/parse", uuid.New(), nil)

	require.Equal(t, http.StatusOK, recorder.Code)

	var resp ParseResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &resp))
	require.Len(t, resp.Occurrences, 1)
	assert.Equal(t, uint(1), resp.Occurrences[0].ID)
	assert.Equal(t, "mitochondria", resp.Occurrences[0].Answer)
	require.Len(t, resp.Issues, 1)
	assert.Equal(t, cloze.IssueUnclosed, resp.Issues[0].Kind)
}

func TestInsertClozeReturnsAnswerSelection(t *testing.T) {
	t.Parallel()

	svc := &mockNoteService{
		InsertClozeFunc: func(ctx context.Context, userID, noteID uuid.UUID, sel cloze.Selection, mode cloze.InsertMode) (*domain.Note, cloze.Selection, error) {
			assert.Equal(t, cloze.Selection{Start: 4, End: 9}, sel)
			assert.Equal(t, cloze.InsertNewID, mode)

			note, err := domain.NewNote(userID, "Note", "The {{c1::Paris}} capital.")
			require.NoError(t, err)
			return note, cloze.Selection{Start: 10, End: 15}, nil
		},
	}

	recorder := serveNote(t, svc, http.MethodPost, "/notes/"+uuid.NewString()+"/clozes", uuid.New(), InsertClozeRequest{
		Start: 4,
		End:   9,
		Mode:  "new",
	})

	require.Equal(t, http.StatusOK, recorder.Code)

	var resp InsertClozeResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &resp))
	assert.Equal(t, cloze.Selection{Start: 10, End: 15}, resp.AnswerSelection)
	assert.Contains(t, resp.Note.Body, "{{c1::Paris}}")
}

func TestInsertClozeInvalidMode(t *testing.T) {
	t.Parallel()

	recorder := serveNote(t, &mockNoteService{}, http.MethodPost, "/notes/"+uuid.NewString()+"/clozes", uuid.New(), InsertClozeRequest{
		Start: 0,
		End:   5,
		Mode:  "reuse-or-whatever",
	})

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestUnclozeReportsRemovals(t *testing.T) {
	t.Parallel()

	svc := &mockNoteService{
		UnclozeFunc: func(ctx context.Context, userID, noteID uuid.UUID, sel cloze.Selection) (*domain.Note, int, error) {
			note, err := domain.NewNote(userID, "Note", "The mitochondria.")
			require.NoError(t, err)
			return note, 1, nil
		},
	}

	recorder := serveNote(t, svc, http.MethodPost, "/notes/"+uuid.NewString()+"/uncloze", uuid.New(), UnclozeRequest{
		Start: 0,
		End:   20,
	})

	require.Equal(t, http.StatusOK, recorder.Code)

	var resp MutationCountResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Removed)
}

func TestDeleteOccurrenceStaleReference(t *testing.T) {
	t.Parallel()

	svc := &mockNoteService{
		DeleteOccurrenceFunc: func(ctx context.Context, userID, noteID uuid.UUID, clozeID, occurrenceIndex uint) (*domain.Note, error) {
			assert.Equal(t, uint(2), clozeID)
			assert.Equal(t, uint(1), occurrenceIndex)
			return nil, service.ErrOccurrenceNotFound
		},
	}

	path := "/notes/" + uuid.NewString() + "/clozes/2/occurrences/1"
	recorder := serveNote(t, svc, http.MethodDelete, path, uuid.New(), nil)

	// A stale (id, occurrence) reference is a conflict, not a bad request:
	// the client's view of the document is out of date.
	assert.Equal(t, http.StatusConflict, recorder.Code)
}

func TestDeleteOccurrenceBadIndex(t *testing.T) {
	t.Parallel()

	path := "/notes/" + uuid.NewString() + "/clozes/2/occurrences/minus-one"
	recorder := serveNote(t, &mockNoteService{}, http.MethodDelete, path, uuid.New(), nil)

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestApplyNormalize(t *testing.T) {
	t.Parallel()

	svc := &mockNoteService{
		ApplyNormalizeFunc: func(ctx context.Context, userID, noteID uuid.UUID) (*domain.Note, []cloze.IDMapping, error) {
			note, err := domain.NewNote(userID, "Note", "{{c1::a}} {{c2::b}}")
			require.NoError(t, err)
			return note, []cloze.IDMapping{{From: 1, To: 1}, {From: 7, To: 2}}, nil
		},
	}

	recorder := serveNote(t, svc, http.MethodPost, "/notes/"+uuid.NewString()+"/normalize", uuid.New(), nil)

	require.Equal(t, http.StatusOK, recorder.Code)

	var resp NormalizeResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &resp))
	assert.Equal(t, []cloze.IDMapping{{From: 1, To: 1}, {From: 7, To: 2}}, resp.Mappings)
}

func TestApplyNormalizeNothingToDo(t *testing.T) {
	t.Parallel()

	svc := &mockNoteService{
		ApplyNormalizeFunc: func(ctx context.Context, userID, noteID uuid.UUID) (*domain.Note, []cloze.IDMapping, error) {
			return nil, nil, service.ErrNothingToNormalize
		},
	}

	recorder := serveNote(t, svc, http.MethodPost, "/notes/"+uuid.NewString()+"/normalize", uuid.New(), nil)

	assert.Equal(t, http.StatusUnprocessableEntity, recorder.Code)
}

func TestDeleteNote(t *testing.T) {
	t.Parallel()

	called := false
	svc := &mockNoteService{
		DeleteNoteFunc: func(ctx context.Context, userID, noteID uuid.UUID) error {
			called = true
			return nil
		},
	}

	recorder := serveNote(t, svc, http.MethodDelete, "/notes/"+uuid.NewString(), uuid.New(), nil)

	assert.Equal(t, http.StatusNoContent, recorder.Code)
	assert.True(t, called)
}
