// Package cloze implements the cloze deletion parsing and indexing engine.
//
// It scans raw markdown for {{cN::answer::hint}} annotations and for
// math-cloze fenced blocks, assigns each occurrence a stable addressable
// identity ("id-occurrenceIndex"), classifies malformed syntax instead of
// failing on it, splits documents into header-scoped card blocks, and
// provides cursor-precise mutation operations (insert, uncloze, delete,
// renumber, clean).
//
// Every function in this package is a pure, synchronous transformation over
// an immutable input string. Nothing here touches I/O, rendering, or the
// review scheduler; those are separate layers that consume this package's
// output. All positions are byte offsets into the UTF-8 source text.
//
// The only stateful type is Indexer, which holds a single-entry cache keyed
// by exact document text. It is not safe for concurrent use; callers that
// share one across goroutines must serialize access.
package cloze
