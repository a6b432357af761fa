package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCard(t *testing.T) {
	userID, noteID := uuid.New(), uuid.New()

	card, err := NewCard(userID, noteID, "a1b2c3d4",
		"The {{c1::mitochondria}}.", []string{"Biology", "Cells"},
		[]string{"exam"}, []uint{1})

	require.NoError(t, err)
	assert.Equal(t, noteID, card.NoteID)
	assert.Equal(t, []string{"Biology", "Cells"}, card.SectionPath)
	assert.Equal(t, []uint{1}, card.ClozeIDs)
}

func TestCardValidation(t *testing.T) {
	valid := func() *Card {
		c, err := NewCard(uuid.New(), uuid.New(), "deadbeef", "x {{c1::y}}", nil, nil, []uint{1})
		require.NoError(t, err)
		return c
	}

	testCases := []struct {
		name    string
		mutate  func(*Card)
		wantErr error
	}{
		{"empty block ID", func(c *Card) { c.BlockID = "" }, ErrCardBlockIDEmpty},
		{"empty content", func(c *Card) { c.ContentRaw = "" }, ErrCardContentEmpty},
		{"no cloze ids", func(c *Card) { c.ClozeIDs = nil }, ErrCardNoClozeIDs},
		{"empty note ID", func(c *Card) { c.NoteID = uuid.Nil }, ErrCardNoteIDEmpty},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c := valid()
			tc.mutate(c)
			assert.ErrorIs(t, c.Validate(), tc.wantErr)
		})
	}
}
