package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Common validation errors for Note
var (
	ErrEmptyNoteID     = errors.New("note ID cannot be empty")
	ErrEmptyNoteUserID = errors.New("note user ID cannot be empty")
	ErrEmptyNoteTitle  = errors.New("note title cannot be empty")
)

// Note is one markdown document owned by a user. Body is the raw markdown,
// cloze annotations included; the cloze engine parses it, and cards are
// projected from it on every reparse. Tags come from the note's
// frontmatter and apply to every card the note produces.
type Note struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Tags      []string  `json:"tags,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewNote creates a new Note with the given owner, title and markdown body.
// It generates a new UUID for the note ID and sets the creation/update
// timestamps. Returns an error if validation fails.
func NewNote(userID uuid.UUID, title, body string) (*Note, error) {
	note := &Note{
		ID:        uuid.New(),
		UserID:    userID,
		Title:     title,
		Body:      body,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}

	if err := note.Validate(); err != nil {
		return nil, err
	}

	return note, nil
}

// Validate checks if the Note has valid data.
// An empty body is valid: a freshly created note has no content yet.
func (n *Note) Validate() error {
	if n.ID == uuid.Nil {
		return ErrEmptyNoteID
	}

	if n.UserID == uuid.Nil {
		return ErrEmptyNoteUserID
	}

	if n.Title == "" {
		return ErrEmptyNoteTitle
	}

	return nil
}

// UpdateBody replaces the note's markdown and bumps the UpdatedAt
// timestamp. The caller is responsible for scheduling a reparse.
func (n *Note) UpdateBody(body string) {
	n.Body = body
	n.UpdatedAt = time.Now().UTC()
}
