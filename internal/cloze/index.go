package cloze

import "sort"

// Position pairs a byte offset with the cloze id that occurs there.
type Position struct {
	Offset int  `json:"offset"`
	ID     uint `json:"id"`
}

// DocumentIndex is the navigational index built from one full scan of a
// document. It is immutable once built and replaced wholesale on the next
// rebuild; mutating it in place is never valid.
type DocumentIndex struct {
	// SourceText is the exact text the index was built from. It doubles as
	// the cache key: the index is valid only while the document equals it.
	SourceText string

	// All lists every occurrence's match offset in document order,
	// irrespective of id. Backs sibling navigation ("next cloze").
	All []Position

	// ByID lists match offsets per id, in appearance order. Backs
	// "jump to next/previous occurrence of id N".
	ByID map[uint][]int

	// Occurrences and Issues are the scan output the index was built from,
	// kept so consumers (renderer, mutation utilities) need not rescan.
	Occurrences []Occurrence
	Issues      []Issue
}

// Indexer builds DocumentIndex values and caches the most recent one, keyed
// by exact text equality: a cache hit is O(1), a miss is a single O(n)
// rebuild. The cache is an explicit object owned by whoever parses the
// document; there is no package-level state.
//
// Indexer is not safe for concurrent use.
type Indexer struct {
	last *DocumentIndex
}

// NewIndexer returns an Indexer with an empty cache.
func NewIndexer() *Indexer {
	return &Indexer{}
}

// Index returns the DocumentIndex for text, rebuilding only when the text
// differs from the previously indexed snapshot.
func (ix *Indexer) Index(text string) *DocumentIndex {
	if ix.last != nil && ix.last.SourceText == text {
		return ix.last
	}
	ix.last = buildIndex(text)
	return ix.last
}

// Invalidate drops the cached index.
func (ix *Indexer) Invalidate() {
	ix.last = nil
}

func buildIndex(text string) *DocumentIndex {
	result := Scan(text)

	idx := &DocumentIndex{
		SourceText:  text,
		All:         make([]Position, 0, len(result.Occurrences)),
		ByID:        make(map[uint][]int),
		Occurrences: result.Occurrences,
		Issues:      result.Issues,
	}
	for _, o := range result.Occurrences {
		idx.All = append(idx.All, Position{Offset: o.MatchStart, ID: o.ID})
		idx.ByID[o.ID] = append(idx.ByID[o.ID], o.MatchStart)
	}
	return idx
}

// NextOffset returns the offset of the next occurrence of id strictly after
// cursor, wrapping to the first occurrence when the cursor is at or past the
// last one. ok is false when the id has no occurrences.
func (d *DocumentIndex) NextOffset(id uint, cursor int) (offset int, ok bool) {
	return nextFrom(d.ByID[id], cursor)
}

// PrevOffset returns the offset of the previous occurrence of id strictly
// before cursor, wrapping to the last occurrence when the cursor is at or
// before the first one. ok is false when the id has no occurrences.
func (d *DocumentIndex) PrevOffset(id uint, cursor int) (offset int, ok bool) {
	return prevFrom(d.ByID[id], cursor)
}

// NextAny returns the offset of the next cloze of any id after cursor, with
// the same wrap rule as NextOffset.
func (d *DocumentIndex) NextAny(cursor int) (offset int, ok bool) {
	return nextFrom(positionOffsets(d.All), cursor)
}

// PrevAny returns the offset of the previous cloze of any id before cursor,
// with the same wrap rule as PrevOffset.
func (d *DocumentIndex) PrevAny(cursor int) (offset int, ok bool) {
	return prevFrom(positionOffsets(d.All), cursor)
}

// NextIssue returns the first issue after cursor, wrapping to the first
// issue in the document. ok is false when the document has no issues.
func (d *DocumentIndex) NextIssue(cursor int) (issue Issue, ok bool) {
	if len(d.Issues) == 0 {
		return Issue{}, false
	}
	for _, is := range d.Issues {
		if is.Offset > cursor {
			return is, true
		}
	}
	return d.Issues[0], true
}

// PrevIssue returns the last issue before cursor, wrapping to the last
// issue in the document. ok is false when the document has no issues.
func (d *DocumentIndex) PrevIssue(cursor int) (issue Issue, ok bool) {
	if len(d.Issues) == 0 {
		return Issue{}, false
	}
	for i := len(d.Issues) - 1; i >= 0; i-- {
		if d.Issues[i].Offset < cursor {
			return d.Issues[i], true
		}
	}
	return d.Issues[len(d.Issues)-1], true
}

// Occurrence resolves an (id, occurrenceIndex) pair against this snapshot.
// ok is false when the pair does not exist, for example after an edit
// removed it; callers treat that as a stale reference, never a panic.
func (d *DocumentIndex) Occurrence(id, occurrenceIndex uint) (Occurrence, bool) {
	for _, o := range d.Occurrences {
		if o.ID == id && o.OccurrenceIndex == occurrenceIndex {
			return o, true
		}
	}
	return Occurrence{}, false
}

func positionOffsets(positions []Position) []int {
	offsets := make([]int, len(positions))
	for i, p := range positions {
		offsets[i] = p.Offset
	}
	return offsets
}

// nextFrom selects the first offset strictly greater than cursor, wrapping
// to the first offset. offsets must be sorted ascending, which scan order
// guarantees.
func nextFrom(offsets []int, cursor int) (int, bool) {
	if len(offsets) == 0 {
		return 0, false
	}
	i := sort.SearchInts(offsets, cursor+1)
	if i == len(offsets) {
		return offsets[0], true
	}
	return offsets[i], true
}

func prevFrom(offsets []int, cursor int) (int, bool) {
	if len(offsets) == 0 {
		return 0, false
	}
	i := sort.SearchInts(offsets, cursor)
	if i == 0 {
		return offsets[len(offsets)-1], true
	}
	return offsets[i-1], true
}
