package cloze

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInsertClozeNewID(t *testing.T) {
	// Document with max id 4: a new cloze gets id 5.
	text := "{{c4::x}} word"

	out, sel := InsertCloze(text, Selection{Start: 10, End: 14}, InsertNewID)

	assert.Equal(t, "{{c4::x}} {{c5::word}}", out)
	assert.Equal(t, "word", out[sel.Start:sel.End], "inner selection covers the answer")
}

func TestInsertClozeNewIDEmptyDocument(t *testing.T) {
	out, sel := InsertCloze("hello", Selection{Start: 0, End: 5}, InsertNewID)

	assert.Equal(t, "{{c1::hello}}", out, "floor for new ids is 1")
	assert.Equal(t, "hello", out[sel.Start:sel.End])
}

func TestInsertClozeSameIDReusesPrecedingCloze(t *testing.T) {
	// Cursor immediately after {{c3::foo}} reuses id 3.
	text := "{{c3::foo}} bar"

	out, _ := InsertCloze(text, Selection{Start: 12, End: 15}, InsertSameID)

	assert.Equal(t, "{{c3::foo}} {{c3::bar}}", out)
}

func TestInsertClozeSameIDFallsBackToMaxID(t *testing.T) {
	// No cloze precedes the cursor, so the max existing id is used.
	text := "bar {{c3::foo}}"

	out, _ := InsertCloze(text, Selection{Start: 0, End: 3}, InsertSameID)

	assert.True(t, strings.HasPrefix(out, "{{c3::bar}}"), "got %q", out)
}

func TestInsertClozeSameIDEmptyDocumentBehavesLikeNewID(t *testing.T) {
	out, _ := InsertCloze("word", Selection{Start: 0, End: 4}, InsertSameID)

	assert.Equal(t, "{{c1::word}}", out)
}

func TestInsertClozeTrimsSelectionWhitespace(t *testing.T) {
	text := "a  word  b"

	out, sel := InsertCloze(text, Selection{Start: 1, End: 9}, InsertNewID)

	assert.Equal(t, "a  {{c1::word}}  b", out,
		"whitespace stays outside the wrapper")
	assert.Equal(t, "word", out[sel.Start:sel.End])
}

func TestInsertClozeCaret(t *testing.T) {
	out, sel := InsertCloze("hello", Selection{Start: 5, End: 5}, InsertNewID)

	assert.Equal(t, "hello{{c1::}}", out)
	assert.Equal(t, sel.Start, sel.End, "caret lands inside the empty answer")
	assert.Equal(t, len("hello{{c1::"), sel.Start)
}

func TestInsertClozeClampsOutOfRangeSelection(t *testing.T) {
	assert.NotPanics(t, func() {
		InsertCloze("ab", Selection{Start: -3, End: 99}, InsertNewID)
	})
}

func TestUnclozeAtCaret(t *testing.T) {
	text := "a {{c1::bc::hint}} d"

	out, n := Uncloze(text, Selection{Start: 5, End: 5})

	assert.Equal(t, 1, n)
	assert.Equal(t, "a bc d", out, "wrapper and hint are gone, answer stays")
}

func TestUnclozeRange(t *testing.T) {
	text := "{{c1::a}} mid {{c2::b}} tail {{c3::c}}"

	out, n := Uncloze(text, Selection{Start: 0, End: 23})

	assert.Equal(t, 2, n, "only spans fully inside the selection unwrap")
	assert.Equal(t, "a mid b tail {{c3::c}}", out)
}

func TestUnclozeNoTargetIsANoOp(t *testing.T) {
	text := "plain text"

	out, n := Uncloze(text, Selection{Start: 3, End: 3})

	assert.Equal(t, 0, n)
	assert.Equal(t, text, out)
}

func TestDeleteClozeAndText(t *testing.T) {
	out, ok := DeleteClozeAndText("a {{c1::b}} c", 1, 0)

	assert.True(t, ok)
	assert.Equal(t, "a  c", out)
}

func TestDeleteClozeAndTextTargetsExactOccurrence(t *testing.T) {
	out, ok := DeleteClozeAndText("{{c1::first}} {{c1::second}}", 1, 1)

	assert.True(t, ok)
	assert.Equal(t, "{{c1::first}} ", out)
}

func TestDeleteClozeAndTextStaleTarget(t *testing.T) {
	text := "{{c1::only}}"

	out, ok := DeleteClozeAndText(text, 1, 5)

	assert.False(t, ok, "stale target degrades to a no-op")
	assert.Equal(t, text, out)
}

func TestFindClozeByIDAndOccurrence(t *testing.T) {
	o, ok := FindClozeByIDAndOccurrence("{{c2::a}} {{c2::b}}", 2, 1)

	require.True(t, ok)
	assert.Equal(t, "b", o.Answer)

	_, ok = FindClozeByIDAndOccurrence("{{c2::a}}", 2, 1)
	assert.False(t, ok, "vanished occurrence returns not-found, never panics")
}

func TestCleanInvalidClozes(t *testing.T) {
	out, n := CleanInvalidClozes("keep {{c1 missing colons}} end")

	assert.Equal(t, 1, n)
	assert.Equal(t, "keep c1 missing colons end", out)
}

func TestCleanInvalidClozesPreservesValidOnes(t *testing.T) {
	out, n := CleanInvalidClozes("{{c1::good}} {{c2 bad}}")

	assert.Equal(t, 1, n)
	assert.Equal(t, "{{c1::good}} c2 bad", out)
}

func TestCleanInvalidClozesLeavesUnclosedAlone(t *testing.T) {
	text := "{{c1::never closed"

	out, n := CleanInvalidClozes(text)

	assert.Equal(t, 0, n, "unclosed openers are for the author to resolve")
	assert.Equal(t, text, out)
}

func TestCleanInvalidClozesNothingToDo(t *testing.T) {
	text := "{{c1::fine}}"

	out, n := CleanInvalidClozes(text)

	assert.Equal(t, 0, n)
	assert.Equal(t, text, out)
}
