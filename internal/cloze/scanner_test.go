package cloze

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScanSingleOccurrence(t *testing.T) {
	text := "Hello {{c1::World}}!"

	result := Scan(text)

	require.Len(t, result.Occurrences, 1, "expected exactly one occurrence")
	assert.Empty(t, result.Issues, "well-formed text should produce no issues")

	o := result.Occurrences[0]
	assert.Equal(t, uint(1), o.ID)
	assert.Equal(t, uint(0), o.OccurrenceIndex)
	assert.Equal(t, 6, o.MatchStart)
	assert.Equal(t, 19, o.MatchEnd)
	assert.Equal(t, "World", o.Answer)
	assert.Equal(t, "World", text[o.AnswerStart:o.AnswerEnd])
	assert.Empty(t, o.Hint)
	assert.Equal(t, "1-0", o.Key())
}

func TestScanHint(t *testing.T) {
	result := Scan("{{c2::mitochondria::organelle}}")

	require.Len(t, result.Occurrences, 1)
	assert.Equal(t, "mitochondria", result.Occurrences[0].Answer)
	assert.Equal(t, "organelle", result.Occurrences[0].Hint)
}

func TestScanOccurrenceOrdering(t *testing.T) {
	// Same id twice: indices must be 0-based, contiguous, in document order.
	result := Scan("Hello {{c1::World}} and {{c1::Friend}}")

	require.Len(t, result.Occurrences, 2)
	assert.Equal(t, uint(0), result.Occurrences[0].OccurrenceIndex)
	assert.Equal(t, uint(1), result.Occurrences[1].OccurrenceIndex)
	assert.Equal(t, "World", result.Occurrences[0].Answer)
	assert.Equal(t, "Friend", result.Occurrences[1].Answer)
}

func TestScanRoundTrip(t *testing.T) {
	// Reassembling scanned spans must reproduce the original bytes.
	text := "A {{c1::one}} b {{c2::two::hint}} c {{c1::three}}"

	result := Scan(text)
	require.Len(t, result.Occurrences, 3)

	rebuilt := ""
	prev := 0
	for _, o := range result.Occurrences {
		rebuilt += text[prev:o.MatchStart] + text[o.MatchStart:o.MatchEnd]
		prev = o.MatchEnd
	}
	rebuilt += text[prev:]
	assert.Equal(t, text, rebuilt, "scanned spans must tile the document exactly")
}

func TestScanUnclosed(t *testing.T) {
	result := Scan("Hello {{c2::oops")

	assert.Empty(t, result.Occurrences, "unclosed opener must not yield an occurrence")
	require.Len(t, result.Issues, 1)
	assert.Equal(t, IssueUnclosed, result.Issues[0].Kind)
	assert.Equal(t, 6, result.Issues[0].Offset, "issue sits at the opener offset")
}

func TestScanUnclosedStopsAtNextOpener(t *testing.T) {
	// A missing closer must not swallow the following cloze.
	result := Scan("{{c1::a {{c2::b}}")

	require.Len(t, result.Occurrences, 1)
	assert.Equal(t, uint(2), result.Occurrences[0].ID)
	assert.Equal(t, "b", result.Occurrences[0].Answer)

	require.Len(t, result.Issues, 1)
	assert.Equal(t, IssueUnclosed, result.Issues[0].Kind)
	assert.Equal(t, 0, result.Issues[0].Offset)
}

func TestScanMalformed(t *testing.T) {
	result := Scan("{{c1 missing colons}}")

	assert.Empty(t, result.Occurrences)
	require.Len(t, result.Issues, 1)
	assert.Equal(t, IssueMalformed, result.Issues[0].Kind)
	assert.Equal(t, 0, result.Issues[0].Offset)
	assert.Equal(t, "{{c1 missing colons}}", result.Issues[0].Raw)
}

func TestScanDangling(t *testing.T) {
	result := Scan("oops }} here")

	assert.Empty(t, result.Occurrences)
	require.Len(t, result.Issues, 1)
	assert.Equal(t, IssueDangling, result.Issues[0].Kind)
	assert.Equal(t, 5, result.Issues[0].Offset)
}

func TestScanPlainBracesIgnored(t *testing.T) {
	// Generic template braces are not cloze syntax and must not be flagged.
	result := Scan("render {{template}} here")

	assert.Empty(t, result.Occurrences)
	assert.Empty(t, result.Issues)
}

func TestScanNeverFailsOnHostileInput(t *testing.T) {
	inputs := []string{
		"",
		"{{",
		"}}",
		"{{c",
		"{{c1",
		"{{c1::",
		"{{c1::}}",
		"{{c0::zero id}}",
		"{{c99999999999999999999::overflow}}",
		"::}}{{c",
		"{{c1::a::b::c}}",
	}
	for _, in := range inputs {
		assert.NotPanics(t, func() { Scan(in) }, "input %q", in)
	}
}

func TestScanEmptyAnswer(t *testing.T) {
	result := Scan("{{c1::}}")

	require.Len(t, result.Occurrences, 1)
	assert.Equal(t, "", result.Occurrences[0].Answer)
}

func TestScanMathCloze(t *testing.T) {
	text := "Intro\n```math-cloze-3\n\\frac{a}{b}\n```\nAfter {{c3::tail}}"

	result := Scan(text)

	require.Len(t, result.Occurrences, 2)

	math := result.Occurrences[0]
	assert.True(t, math.Math)
	assert.Equal(t, uint(3), math.ID)
	assert.Equal(t, uint(0), math.OccurrenceIndex)
	assert.Equal(t, "\\frac{a}{b}", math.Answer)

	// Inline and math occurrences share one numbering space.
	inline := result.Occurrences[1]
	assert.False(t, inline.Math)
	assert.Equal(t, uint(3), inline.ID)
	assert.Equal(t, uint(1), inline.OccurrenceIndex)
}

func TestScanMathClozeWithOccurrenceSuffix(t *testing.T) {
	// The -<occurrence> tag suffix is display metadata only.
	result := Scan("```math-cloze-2-1\nE = mc^2\n```")

	require.Len(t, result.Occurrences, 1)
	assert.Equal(t, uint(2), result.Occurrences[0].ID)
	assert.Equal(t, uint(0), result.Occurrences[0].OccurrenceIndex)
	assert.Equal(t, "E = mc^2", result.Occurrences[0].Answer)
}

func TestScanMathClozeUnclosedFence(t *testing.T) {
	result := Scan("```math-cloze-1\nx^2")

	assert.Empty(t, result.Occurrences)
	require.Len(t, result.Issues, 1)
	assert.Equal(t, IssueUnclosed, result.Issues[0].Kind)
}

func TestScanRegularFenceIsNotAMathCloze(t *testing.T) {
	result := Scan("```go\nfunc main() {}\n```\n{{c1::after}}")

	require.Len(t, result.Occurrences, 1)
	assert.Equal(t, "after", result.Occurrences[0].Answer)
}

func TestScanResultHelpers(t *testing.T) {
	result := Scan("{{c4::a}} {{c1::b}} {{c4::c}}")

	assert.Equal(t, uint(4), result.MaxID())
	assert.Equal(t, []uint{1, 4}, result.IDs(), "IDs are distinct and ascending")
}
