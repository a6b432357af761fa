package cloze

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeRemovesGaps(t *testing.T) {
	text := "{{c1::a}} {{c3::b}} {{c4::c}}"

	out, changed := Normalize(text)

	assert.True(t, changed)
	assert.Equal(t, "{{c1::a}} {{c2::b}} {{c3::c}}", out)
}

func TestNormalizeIsIdempotent(t *testing.T) {
	text := "{{c1::a}} {{c3::b}} {{c4::c}}"

	once, changed := Normalize(text)
	require.True(t, changed)

	twice, changed := Normalize(once)
	assert.False(t, changed, "normalizing a contiguous document is a no-op")
	assert.Equal(t, once, twice)
}

func TestNormalizeUsesNumericOrderNotDocumentOrder(t *testing.T) {
	// The 3 appears first in the document but is numerically larger, so it
	// must become 2, not 1.
	out, changed := Normalize("{{c3::first}} {{c2::second}}")

	assert.True(t, changed)
	assert.Equal(t, "{{c2::first}} {{c1::second}}", out)
}

func TestNormalizePreservesEverythingButTheNumeral(t *testing.T) {
	text := "# Title\n\nThe {{c5::answer::a hint}} stays.\n"

	out, changed := Normalize(text)

	require.True(t, changed)
	assert.Equal(t, "# Title\n\nThe {{c1::answer::a hint}} stays.\n", out)

	before := Scan(text)
	after := Scan(out)
	require.Len(t, after.Occurrences, len(before.Occurrences))
	assert.Equal(t, before.Occurrences[0].Answer, after.Occurrences[0].Answer)
	assert.Equal(t, before.Occurrences[0].Hint, after.Occurrences[0].Hint)
}

func TestNormalizeRewritesMathClozeTags(t *testing.T) {
	text := "```math-cloze-5\nx^2\n```\n{{c2::inline}}"

	out, changed := Normalize(text)

	assert.True(t, changed)
	assert.Contains(t, out, "math-cloze-2\n", "math fence id 5 maps to 2")
	assert.Contains(t, out, "{{c1::inline}}", "inline id 2 maps to 1")
}

func TestNormalizeEmptyDocument(t *testing.T) {
	out, changed := Normalize("")

	assert.False(t, changed)
	assert.Equal(t, "", out)
}

func TestNormalizeMapping(t *testing.T) {
	mappings := NormalizeMapping("{{c2::a}} {{c7::b}}")

	require.Len(t, mappings, 2)
	assert.Equal(t, IDMapping{From: 2, To: 1}, mappings[0])
	assert.Equal(t, IDMapping{From: 7, To: 2}, mappings[1])
}
