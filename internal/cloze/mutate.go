package cloze

import (
	"fmt"
	"strings"
)

// InsertMode selects how InsertCloze chooses the id for the new cloze.
type InsertMode string

const (
	// InsertNewID wraps the selection with max(existing ids)+1, floor 1.
	InsertNewID InsertMode = "new"

	// InsertSameID reuses the id of the nearest enclosing or preceding
	// cloze; falls back to the max existing id, and to InsertNewID when the
	// document has no clozes at all.
	InsertSameID InsertMode = "same"
)

// Selection is a half-open byte range [Start, End). A caret is a selection
// with Start == End.
type Selection struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// clamp bounds the selection to the text and orders its endpoints.
func (s Selection) clamp(n int) Selection {
	if s.Start < 0 {
		s.Start = 0
	}
	if s.End < s.Start {
		s.End = s.Start
	}
	if s.Start > n {
		s.Start = n
	}
	if s.End > n {
		s.End = n
	}
	return s
}

// InsertCloze wraps the selected text in a cloze annotation and returns the
// new document plus the selection covering the inserted answer text (so the
// editor can keep the caret inside the cloze). Leading and trailing
// whitespace of the selection stays outside the wrapper.
func InsertCloze(text string, sel Selection, mode InsertMode) (string, Selection) {
	sel = sel.clamp(len(text))

	// Trim whitespace out of the wrapped span, preserving it around the
	// wrapper.
	inner := text[sel.Start:sel.End]
	trimmed := strings.TrimSpace(inner)
	start := sel.Start + strings.Index(inner, trimmed)
	if trimmed == "" {
		start = sel.Start
	}
	end := start + len(trimmed)

	id := chooseInsertID(text, start, mode)

	opener := fmt.Sprintf("%s%d%s", openerPrefix, id, separator)
	out := text[:start] + opener + trimmed + braceClose + text[end:]
	answerStart := start + len(opener)
	return out, Selection{Start: answerStart, End: answerStart + len(trimmed)}
}

// chooseInsertID implements the id policy for both insert modes.
func chooseInsertID(text string, cursor int, mode InsertMode) uint {
	result := Scan(text)
	maxID := result.MaxID()

	if mode == InsertSameID && maxID > 0 {
		// Nearest cloze that encloses the cursor or ends before it.
		best := -1
		var bestID uint
		for _, o := range result.Occurrences {
			if o.MatchStart <= cursor && o.MatchStart > best {
				best = o.MatchStart
				bestID = o.ID
			}
		}
		if best >= 0 {
			return bestID
		}
		return maxID
	}

	return maxID + 1
}

// Uncloze removes cloze wrappers, leaving the bare answer text. With a
// caret it unwraps the single enclosing cloze; with a range it unwraps
// every cloze lying fully inside the selection. Hints are discarded, which
// makes the operation irreversible. Returns the new text and the number of
// clozes removed; zero means the target could not be resolved and the text
// is returned unchanged.
func Uncloze(text string, sel Selection) (string, int) {
	sel = sel.clamp(len(text))
	result := Scan(text)

	var targets []Occurrence
	if sel.Start == sel.End {
		for _, o := range result.Occurrences {
			if o.MatchStart <= sel.Start && sel.Start < o.MatchEnd {
				targets = append(targets, o)
				break
			}
		}
	} else {
		for _, o := range result.Occurrences {
			if o.MatchStart >= sel.Start && o.MatchEnd <= sel.End {
				targets = append(targets, o)
			}
		}
	}

	// Right-to-left so earlier spans keep their offsets.
	out := text
	for i := len(targets) - 1; i >= 0; i-- {
		o := targets[i]
		out = out[:o.MatchStart] + o.Answer + out[o.MatchEnd:]
	}
	return out, len(targets)
}

// FindClozeByIDAndOccurrence re-resolves a specific occurrence for targeted
// edits. ok is false when the target no longer exists, for example a stale
// reference after a concurrent edit; it never panics.
func FindClozeByIDAndOccurrence(text string, id, occurrenceIndex uint) (Occurrence, bool) {
	for _, o := range Scan(text).Occurrences {
		if o.ID == id && o.OccurrenceIndex == occurrenceIndex {
			return o, true
		}
	}
	return Occurrence{}, false
}

// DeleteClozeAndText removes the entire matched span of one occurrence,
// answer included. ok is false when the occurrence does not exist, in which
// case the text is returned unchanged.
func DeleteClozeAndText(text string, id, occurrenceIndex uint) (string, bool) {
	o, ok := FindClozeByIDAndOccurrence(text, id, occurrenceIndex)
	if !ok {
		return text, false
	}
	return text[:o.MatchStart] + text[o.MatchEnd:], true
}

// CleanInvalidClozes strips malformed wrapper syntax while preserving the
// inner text, and reports how many wrappers were removed so the caller can
// ask for confirmation before applying the result. Only spans the Scanner
// classified as malformed are touched; unclosed openers and dangling
// closers are left for the author to resolve.
func CleanInvalidClozes(text string) (cleaned string, count int) {
	issues := Scan(text).Issues

	// Right-to-left, same reason as Uncloze.
	out := text
	for i := len(issues) - 1; i >= 0; i-- {
		is := issues[i]
		if is.Kind != IssueMalformed || !strings.HasPrefix(is.Raw, braceOpen) {
			continue
		}
		inner := strings.TrimPrefix(is.Raw, braceOpen)
		inner = strings.TrimSuffix(inner, braceClose)
		out = out[:is.Offset] + inner + out[is.End():]
		count++
	}
	return out, count
}
