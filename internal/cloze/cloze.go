package cloze

import (
	"fmt"
)

// IssueKind classifies a syntax problem found while scanning.
type IssueKind string

// Possible issue kinds.
const (
	// IssueUnclosed marks an opener {{cN:: with no matching }} before the
	// next opener or the end of the document.
	IssueUnclosed IssueKind = "unclosed"

	// IssueMalformed marks a {{c<digits> token that is not followed by the
	// full ::answer}} grammar (for example, missing separators).
	IssueMalformed IssueKind = "malformed"

	// IssueDangling marks a }} with no corresponding unmatched opener.
	IssueDangling IssueKind = "dangling"
)

// Issue describes one recovered syntax problem. Issues are values returned
// alongside the valid occurrences, never errors: scanning always produces a
// best-effort partial result.
type Issue struct {
	Kind   IssueKind `json:"kind"`
	Offset int       `json:"offset"`
	// Raw is the full source span the issue covers, when one can be
	// delimited (always for malformed spans, the opener token for unclosed
	// ones, the bare closer for dangling ones).
	Raw string `json:"raw,omitempty"`
}

// End returns the byte offset one past the issue's source span.
func (i Issue) End() int {
	return i.Offset + len(i.Raw)
}

// Occurrence is one concrete appearance of a cloze id in a document.
// Multiple occurrences of the same id are distinguished by OccurrenceIndex,
// which is 0-based and assigned strictly in document order.
type Occurrence struct {
	ID              uint   `json:"id"`
	OccurrenceIndex uint   `json:"occurrence_index"`
	MatchStart      int    `json:"match_start"` // start of the whole span, wrapper included
	MatchEnd        int    `json:"match_end"`   // one past the whole span
	AnswerStart     int    `json:"answer_start"`
	AnswerEnd       int    `json:"answer_end"`
	Answer          string `json:"answer"`
	Hint            string `json:"hint,omitempty"`

	// IDStart and IDEnd delimit the numeric id token inside the match, so
	// renumbering can rewrite the numeral without touching anything else.
	IDStart int `json:"-"`
	IDEnd   int `json:"-"`

	// Math reports a block-level math-cloze occurrence, whose answer is the
	// LaTeX payload of the fenced block rather than inline text.
	Math bool `json:"math,omitempty"`
}

// Key returns the occurrence's addressable identity within one document
// snapshot, "{id}-{occurrenceIndex}". Keys are invalidated by any edit that
// changes the occurrence count or order for that id.
func (o Occurrence) Key() string {
	return fmt.Sprintf("%d-%d", o.ID, o.OccurrenceIndex)
}

// ScanResult carries everything a single pass over the document produced.
type ScanResult struct {
	Occurrences []Occurrence `json:"occurrences"`
	Issues      []Issue      `json:"issues"`
}

// MaxID returns the largest cloze id present, or 0 when there are none.
func (r ScanResult) MaxID() uint {
	var max uint
	for _, o := range r.Occurrences {
		if o.ID > max {
			max = o.ID
		}
	}
	return max
}

// IDs returns the distinct cloze ids present, in ascending numeric order.
func (r ScanResult) IDs() []uint {
	seen := make(map[uint]bool, len(r.Occurrences))
	var ids []uint
	for _, o := range r.Occurrences {
		if !seen[o.ID] {
			seen[o.ID] = true
			ids = append(ids, o.ID)
		}
	}
	sortUints(ids)
	return ids
}
