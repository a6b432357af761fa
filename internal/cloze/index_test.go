package cloze

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndexerCachesByTextIdentity(t *testing.T) {
	ix := NewIndexer()
	text := "Hello {{c1::World}}"

	first := ix.Index(text)
	second := ix.Index(text)
	assert.Same(t, first, second, "identical text must be a cache hit")

	third := ix.Index(text + "!")
	assert.NotSame(t, first, third, "changed text must rebuild the index")

	ix.Invalidate()
	fourth := ix.Index(text + "!")
	assert.NotSame(t, third, fourth, "invalidation drops the cached index")
}

func TestIndexCycling(t *testing.T) {
	ix := NewIndexer()
	idx := ix.Index("Hello {{c1::World}} and {{c1::Friend}}")

	offsets := idx.ByID[1]
	require.Len(t, offsets, 2, "both occurrences of id 1 must be indexed")

	// Next from the first occurrence lands on the second.
	next, ok := idx.NextOffset(1, offsets[0])
	require.True(t, ok)
	assert.Equal(t, offsets[1], next)

	// Next from the second wraps to the first.
	next, ok = idx.NextOffset(1, offsets[1])
	require.True(t, ok)
	assert.Equal(t, offsets[0], next)

	// Previous from the first wraps to the second.
	prev, ok := idx.PrevOffset(1, offsets[0])
	require.True(t, ok)
	assert.Equal(t, offsets[1], prev)
}

func TestIndexNavigationMissingID(t *testing.T) {
	ix := NewIndexer()
	idx := ix.Index("no clozes here")

	_, ok := idx.NextOffset(7, 0)
	assert.False(t, ok)
	_, ok = idx.PrevOffset(7, 0)
	assert.False(t, ok)
	_, ok = idx.NextAny(0)
	assert.False(t, ok)
}

func TestIndexSiblingNavigation(t *testing.T) {
	ix := NewIndexer()
	idx := ix.Index("{{c2::a}} mid {{c1::b}} end {{c2::c}}")

	require.Len(t, idx.All, 3)

	// Sibling navigation ignores ids entirely.
	next, ok := idx.NextAny(idx.All[0].Offset)
	require.True(t, ok)
	assert.Equal(t, idx.All[1].Offset, next)

	next, ok = idx.NextAny(idx.All[2].Offset)
	require.True(t, ok)
	assert.Equal(t, idx.All[0].Offset, next, "sibling navigation wraps")
}

func TestIndexIssueNavigation(t *testing.T) {
	ix := NewIndexer()
	idx := ix.Index("bad }} and {{c1 nope}} tail")

	require.Len(t, idx.Issues, 2)

	issue, ok := idx.NextIssue(-1)
	require.True(t, ok)
	assert.Equal(t, idx.Issues[0].Offset, issue.Offset)

	issue, ok = idx.NextIssue(idx.Issues[1].Offset)
	require.True(t, ok)
	assert.Equal(t, idx.Issues[0].Offset, issue.Offset, "issue navigation wraps")

	issue, ok = idx.PrevIssue(idx.Issues[1].Offset)
	require.True(t, ok)
	assert.Equal(t, idx.Issues[0].Offset, issue.Offset)

	clean := ix.Index("nothing wrong")
	_, ok = clean.NextIssue(0)
	assert.False(t, ok)
}

func TestIndexOccurrenceLookup(t *testing.T) {
	ix := NewIndexer()
	idx := ix.Index("{{c1::a}} {{c1::b}}")

	o, ok := idx.Occurrence(1, 1)
	require.True(t, ok)
	assert.Equal(t, "b", o.Answer)

	_, ok = idx.Occurrence(1, 2)
	assert.False(t, ok, "stale occurrence lookup returns not-found, never panics")
}
