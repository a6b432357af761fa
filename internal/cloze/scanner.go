package cloze

import (
	"sort"
	"strconv"
	"strings"
)

// Syntax tokens for the inline cloze grammar {{cN::answer[::hint]}}.
const (
	openerPrefix = "{{c"
	braceOpen    = "{{"
	braceClose   = "}}"
	separator    = "::"

	// mathFencePrefix tags a fenced code block as a block-level math cloze:
	// ```math-cloze-<id>[-<occurrence>]. The optional occurrence suffix is
	// display metadata; authoritative indices are assigned by scan order.
	mathFencePrefix = "math-cloze-"
)

// Scan walks the document once and returns every well-formed cloze
// occurrence together with the classified syntax issues. It never fails:
// malformed input degrades to issues, not errors.
//
// Occurrences are returned in document order with per-id occurrence indices
// already assigned (0-based, contiguous). Issues are returned in document
// order as well, so callers can offer next/previous-issue navigation.
//
// Unclosed policy: the search for }} stops at the next {{c opener or the end
// of the document, whichever comes first. The opener is reported unclosed at
// its own offset and scanning resumes at that boundary, so a single missing
// closer cannot swallow the rest of the document.
func Scan(text string) ScanResult {
	occs, excluded, issues := scanMathFences(text)

	// Inline-scan everything outside math fence payloads.
	pos := 0
	for _, ex := range excluded {
		if pos < ex.start {
			scanInline(text, pos, ex.start, &occs, &issues)
		}
		pos = ex.end
	}
	if pos < len(text) {
		scanInline(text, pos, len(text), &occs, &issues)
	}

	sort.SliceStable(occs, func(i, j int) bool { return occs[i].MatchStart < occs[j].MatchStart })
	sort.SliceStable(issues, func(i, j int) bool { return issues[i].Offset < issues[j].Offset })

	// Inline and math occurrences share one numbering space.
	counters := make(map[uint]uint)
	for i := range occs {
		occs[i].OccurrenceIndex = counters[occs[i].ID]
		counters[occs[i].ID]++
	}

	return ScanResult{Occurrences: occs, Issues: issues}
}

// span is a half-open byte range [start, end).
type span struct {
	start, end int
}

// scanMathFences finds ```math-cloze-N fenced blocks. Each becomes a
// block-level occurrence whose answer is the block payload; the payload
// range is excluded from inline scanning.
func scanMathFences(text string) ([]Occurrence, []span, []Issue) {
	var (
		occs     []Occurrence
		excluded []span
		issues   []Issue
	)

	lineStart := 0
	for lineStart < len(text) {
		lineEnd := strings.IndexByte(text[lineStart:], '\n')
		if lineEnd < 0 {
			lineEnd = len(text)
		} else {
			lineEnd += lineStart
		}
		line := text[lineStart:lineEnd]
		trimmed := strings.TrimSpace(line)

		if !strings.HasPrefix(trimmed, "```") {
			lineStart = lineEnd + 1
			continue
		}

		info := strings.TrimSpace(trimmed[3:])
		if !strings.HasPrefix(info, mathFencePrefix) {
			// A regular fence. Skip to its closing line so an ordinary code
			// block cannot open a math cloze mid-fence.
			lineStart = skipFence(text, lineEnd)
			continue
		}

		occ, ok := parseMathFenceTag(text, lineStart, line, info)
		if !ok {
			issues = append(issues, Issue{Kind: IssueMalformed, Offset: lineStart, Raw: line})
			lineStart = lineEnd + 1
			continue
		}

		payloadStart := lineEnd + 1
		closeStart, closeEnd, found := findClosingFence(text, payloadStart)
		if !found {
			issues = append(issues, Issue{Kind: IssueUnclosed, Offset: lineStart, Raw: line})
			lineStart = lineEnd + 1
			continue
		}

		if payloadStart > closeStart {
			payloadStart = closeStart
		}
		answerEnd := closeStart
		// Drop the newline that terminates the payload's last line.
		if answerEnd > payloadStart && text[answerEnd-1] == '\n' {
			answerEnd--
		}

		occ.MatchStart = lineStart
		occ.MatchEnd = closeEnd
		occ.AnswerStart = payloadStart
		occ.AnswerEnd = answerEnd
		occ.Answer = text[payloadStart:answerEnd]
		occ.Math = true
		occs = append(occs, occ)
		excluded = append(excluded, span{start: lineStart, end: closeEnd})

		lineStart = closeEnd
		if lineStart < len(text) && text[lineStart] == '\n' {
			lineStart++
		}
	}

	return occs, excluded, issues
}

// parseMathFenceTag extracts the numeric id from a math-cloze info string.
// The tag grammar is math-cloze-<id> with an optional -<occurrence> suffix.
func parseMathFenceTag(text string, lineStart int, line, info string) (Occurrence, bool) {
	rest := info[len(mathFencePrefix):]
	idDigits := rest
	if dash := strings.IndexByte(rest, '-'); dash >= 0 {
		idDigits = rest[:dash]
	}
	id, ok := parseID(idDigits)
	if !ok {
		return Occurrence{}, false
	}

	// Locate the numeral inside the source line so renumbering can rewrite
	// it in place.
	tagPos := strings.Index(line, mathFencePrefix)
	idStart := lineStart + tagPos + len(mathFencePrefix)
	return Occurrence{
		ID:      id,
		IDStart: idStart,
		IDEnd:   idStart + len(idDigits),
	}, true
}

// skipFence returns the offset just past the line closing a regular fence
// opened before afterLineEnd, or the end of text if the fence never closes.
func skipFence(text string, afterLineEnd int) int {
	_, closeEnd, found := findClosingFence(text, afterLineEnd+1)
	if !found {
		return len(text)
	}
	if closeEnd < len(text) && text[closeEnd] == '\n' {
		closeEnd++
	}
	return closeEnd
}

// findClosingFence finds the next line that is exactly ``` (modulo
// surrounding whitespace) at or after from. Returns the line's start offset
// and the offset one past its content.
func findClosingFence(text string, from int) (start, end int, found bool) {
	lineStart := from
	for lineStart < len(text) {
		lineEnd := strings.IndexByte(text[lineStart:], '\n')
		if lineEnd < 0 {
			lineEnd = len(text)
		} else {
			lineEnd += lineStart
		}
		if strings.TrimSpace(text[lineStart:lineEnd]) == "```" {
			return lineStart, lineEnd, true
		}
		lineStart = lineEnd + 1
	}
	return 0, 0, false
}

// scanState names the phases of the inline scanner. The transitions are:
//
//	scanning  --"{{c"+digits+"::"-->  inAnswer
//	inAnswer  --"::"-->               inHint
//	inAnswer  --"}}"-->               closed (occurrence emitted)
//	inHint    --"}}"-->               closed (occurrence emitted)
//	inAnswer/inHint --next opener or EOF--> scanning (unclosed issue)
//	scanning  --"{{c"+digits without "::"--> scanning (malformed issue)
//	scanning  --unmatched "}}"-->     scanning (dangling issue)
type scanState int

const (
	stateScanning scanState = iota
	stateInOpener
	stateInAnswer
	stateInHint
)

// scanInline runs the inline state machine over text[lo:hi], appending
// occurrences and issues. Generic {{...}} braces that are not cloze openers
// are tracked with a depth counter so their closers are not misreported as
// dangling.
func scanInline(text string, lo, hi int, occs *[]Occurrence, issues *[]Issue) {
	i := lo
	plainDepth := 0

	for i < hi {
		openIdx := nextBraceOpen(text, i, hi)
		closeIdx := nextIndex(text, i, hi, braceClose)

		// Handle a closer that appears before the next opener.
		if closeIdx >= 0 && (openIdx < 0 || closeIdx < openIdx) {
			if plainDepth > 0 {
				plainDepth--
			} else {
				*issues = append(*issues, Issue{Kind: IssueDangling, Offset: closeIdx, Raw: braceClose})
			}
			i = closeIdx + len(braceClose)
			continue
		}

		if openIdx < 0 {
			return
		}

		if !isClozeOpener(text, openIdx, hi) {
			plainDepth++
			i = openIdx + len(braceOpen)
			continue
		}

		// {{c with at least one digit: we are in an opener.
		digitsStart := openIdx + len(openerPrefix)
		digitsEnd := digitsStart
		for digitsEnd < hi && isDigit(text[digitsEnd]) {
			digitsEnd++
		}

		id, idOK := parseID(text[digitsStart:digitsEnd])
		hasSep := idOK && strings.HasPrefix(text[digitsEnd:hi], separator)
		if !hasSep {
			span, resume := malformedSpan(text, openIdx, digitsEnd, hi)
			*issues = append(*issues, Issue{Kind: IssueMalformed, Offset: openIdx, Raw: span})
			i = resume
			continue
		}

		state := stateInAnswer
		answerStart := digitsEnd + len(separator)
		occ := Occurrence{
			ID:          id,
			MatchStart:  openIdx,
			IDStart:     digitsStart,
			IDEnd:       digitsEnd,
			AnswerStart: answerStart,
		}

		answerEnd, hintStart := -1, -1
		j := answerStart
	body:
		for j < hi {
			switch {
			case strings.HasPrefix(text[j:hi], braceClose):
				if state == stateInAnswer {
					answerEnd = j
				}
				occ.MatchEnd = j + len(braceClose)
				break body
			case state == stateInAnswer && strings.HasPrefix(text[j:hi], separator):
				state = stateInHint
				answerEnd = j
				hintStart = j + len(separator)
				j = hintStart
			case isClozeOpener(text, j, hi):
				// Next opener reached before }}: the current one is unclosed.
				break body
			default:
				j++
			}
		}

		if occ.MatchEnd == 0 {
			*issues = append(*issues, Issue{
				Kind:   IssueUnclosed,
				Offset: openIdx,
				Raw:    text[openIdx:answerStart],
			})
			i = j
			continue
		}

		occ.AnswerEnd = answerEnd
		occ.Answer = text[occ.AnswerStart:answerEnd]
		if hintStart >= 0 {
			occ.Hint = text[hintStart : occ.MatchEnd-len(braceClose)]
		}
		*occs = append(*occs, occ)
		i = occ.MatchEnd
	}
}

// malformedSpan delimits a malformed {{c token. When a }} closes the span
// before another {{ opens, the whole wrapper is the span (so cleanup can
// strip it); otherwise only the opener token itself is reported.
func malformedSpan(text string, start, digitsEnd, hi int) (raw string, resume int) {
	closeIdx := nextIndex(text, digitsEnd, hi, braceClose)
	openIdx := nextIndex(text, digitsEnd, hi, braceOpen)
	if closeIdx >= 0 && (openIdx < 0 || closeIdx < openIdx) {
		end := closeIdx + len(braceClose)
		return text[start:end], end
	}
	return text[start:digitsEnd], digitsEnd
}

// isClozeOpener reports whether text[i:] begins an inline opener: {{c
// immediately followed by a digit.
func isClozeOpener(text string, i, hi int) bool {
	if !strings.HasPrefix(text[i:hi], openerPrefix) {
		return false
	}
	d := i + len(openerPrefix)
	return d < hi && isDigit(text[d])
}

// nextBraceOpen returns the offset of the next {{ in text[i:hi), or -1.
func nextBraceOpen(text string, i, hi int) int {
	return nextIndex(text, i, hi, braceOpen)
}

func nextIndex(text string, i, hi int, needle string) int {
	idx := strings.Index(text[i:hi], needle)
	if idx < 0 {
		return -1
	}
	return i + idx
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

// parseID parses a cloze id numeral. Ids are positive integers; absurdly
// long digit runs are rejected as malformed rather than overflowing.
func parseID(digits string) (uint, bool) {
	if digits == "" || len(digits) > 9 {
		return 0, false
	}
	n, err := strconv.ParseUint(digits, 10, 32)
	if err != nil || n == 0 {
		return 0, false
	}
	return uint(n), true
}

func sortUints(ids []uint) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
}
