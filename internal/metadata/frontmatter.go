// Package metadata extracts note metadata from YAML frontmatter.
package metadata

import (
	"fmt"
	"strings"

	"github.com/adrg/frontmatter"
)

// NoteMeta is the metadata a note can declare in its frontmatter block.
// Tags apply to every card the note produces.
type NoteMeta struct {
	Title string   `yaml:"title"`
	Tags  []string `yaml:"tags"`
}

// Parse extracts frontmatter metadata from raw markdown and returns it with
// the remaining body. A document without frontmatter parses to empty metadata
// and the unchanged input; malformed frontmatter is an error.
func Parse(raw string) (NoteMeta, string, error) {
	var meta NoteMeta
	rest, err := frontmatter.Parse(strings.NewReader(raw), &meta)
	if err != nil {
		return NoteMeta{}, raw, fmt.Errorf("failed to parse frontmatter: %w", err)
	}
	return meta, string(rest), nil
}

// Tags returns the frontmatter tags of raw, or nil when the document has no
// frontmatter or the frontmatter cannot be parsed. Tag extraction is
// best-effort: a note with broken frontmatter still parses into cards, just
// untagged.
func Tags(raw string) []string {
	meta, _, err := Parse(raw)
	if err != nil {
		return nil
	}
	return meta.Tags
}
