package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Card-specific validation errors
var (
	ErrCardIDEmpty      = errors.New("card ID cannot be empty")
	ErrCardUserIDEmpty  = errors.New("card user ID cannot be empty")
	ErrCardNoteIDEmpty  = errors.New("card note ID cannot be empty")
	ErrCardBlockIDEmpty = errors.New("card block ID cannot be empty")
	ErrCardContentEmpty = errors.New("card content cannot be empty")
	ErrCardNoClozeIDs   = errors.New("card must reference at least one cloze id")
)

// Card is the persisted projection of one cloze-bearing block of a note:
// the unit the review scheduler hands out. Cards are rebuilt from the block
// splitter on every reparse, so they carry no review state of their own;
// that lives in ReviewState, keyed by cloze id, which survives the block
// identity drift documented on BlockID.
type Card struct {
	ID     uuid.UUID `json:"id"`
	UserID uuid.UUID `json:"user_id"`
	NoteID uuid.UUID `json:"note_id"`

	// BlockID is the engine's salted content hash. Stable across identical
	// parses, but it drifts when blocks are inserted or removed earlier in
	// the note; never key durable state on it.
	BlockID string `json:"block_id"`

	ContentRaw  string   `json:"content_raw"`
	SectionPath []string `json:"section_path"`
	Tags        []string `json:"tags,omitempty"`
	ClozeIDs    []uint   `json:"cloze_ids"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewCard creates a card projection for one parsed block.
// Returns an error if validation fails.
func NewCard(userID, noteID uuid.UUID, blockID, contentRaw string, sectionPath []string, tags []string, clozeIDs []uint) (*Card, error) {
	card := &Card{
		ID:          uuid.New(),
		UserID:      userID,
		NoteID:      noteID,
		BlockID:     blockID,
		ContentRaw:  contentRaw,
		SectionPath: sectionPath,
		Tags:        tags,
		ClozeIDs:    clozeIDs,
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	}

	if err := card.Validate(); err != nil {
		return nil, err
	}

	return card, nil
}

// Validate checks if the Card has valid data.
func (c *Card) Validate() error {
	if c.ID == uuid.Nil {
		return ErrCardIDEmpty
	}

	if c.UserID == uuid.Nil {
		return ErrCardUserIDEmpty
	}

	if c.NoteID == uuid.Nil {
		return ErrCardNoteIDEmpty
	}

	if c.BlockID == "" {
		return ErrCardBlockIDEmpty
	}

	if c.ContentRaw == "" {
		return ErrCardContentEmpty
	}

	if len(c.ClozeIDs) == 0 {
		return ErrCardNoClozeIDs
	}

	return nil
}
