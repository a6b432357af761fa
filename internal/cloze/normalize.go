package cloze

import (
	"sort"
	"strconv"
)

// IDMapping records how Normalize would renumber one id.
type IDMapping struct {
	From uint `json:"from"`
	To   uint `json:"to"`
}

// NormalizeMapping computes the renumbering Normalize would apply, without
// touching the text. The k-th smallest existing id maps to k (1-based):
// numeric ascending order defines the new numbering, not first-appearance
// order. That policy is what makes normalization idempotent.
func NormalizeMapping(text string) []IDMapping {
	ids := Scan(text).IDs()
	mappings := make([]IDMapping, 0, len(ids))
	for i, id := range ids {
		mappings = append(mappings, IDMapping{From: id, To: uint(i + 1)})
	}
	return mappings
}

// Normalize renumbers cloze ids to remove gaps, e.g. {1,3,4} becomes
// {1,2,3}. Only the numeric id tokens are rewritten; occurrence order,
// occurrence count and every other byte of the document are preserved.
// changed is false when the document is already contiguous, in which case
// the input text is returned unchanged.
//
// Callers must treat this as a destructive operation: external review
// history is keyed by id, so normalization is only applied after explicit
// confirmation. Cursor positions are preserved best-effort only (clamp to
// the new text length).
func Normalize(text string) (normalized string, changed bool) {
	result := Scan(text)
	ids := result.IDs()

	remap := make(map[uint]uint, len(ids))
	for i, id := range ids {
		remap[id] = uint(i + 1)
	}

	for from, to := range remap {
		if from != to {
			changed = true
			break
		}
	}
	if !changed {
		return text, false
	}

	// Rewrite every id token right-to-left so earlier offsets stay valid.
	occs := append([]Occurrence(nil), result.Occurrences...)
	sort.Slice(occs, func(i, j int) bool { return occs[i].IDStart > occs[j].IDStart })

	out := text
	for _, o := range occs {
		to := remap[o.ID]
		out = out[:o.IDStart] + strconv.FormatUint(uint64(to), 10) + out[o.IDEnd:]
	}
	return out, true
}
