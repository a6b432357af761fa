package cloze

import (
	"fmt"
	"hash/fnv"
	"strings"
)

// Block is a contiguous span of prose containing at least one cloze id: the
// unit handed to the review scheduler as a card. Blocks are bounded by
// headers, blank lines and horizontal rules; pure prose without clozes is
// not tracked.
type Block struct {
	// ID is a stable hash of the block content plus a positional salt. The
	// salt is the ordinal of this block among all retained blocks in the
	// parse pass, which disambiguates duplicate content but means identity
	// drifts when blocks are inserted or removed earlier in the document.
	// Review state is therefore keyed by cloze id, never by block id.
	ID          string   `json:"id"`
	ContentRaw  string   `json:"content_raw"`
	SectionPath []string `json:"section_path"`
	Tags        []string `json:"tags"`
	ClozeIDs    []uint   `json:"cloze_ids"` // ascending, deduplicated
}

// headerEntry is one level of the section-path stack.
type headerEntry struct {
	level int
	title string
}

// Split partitions a document into cloze-bearing blocks. A header line
// (levels 1-6) pops every stack entry at its level or deeper and pushes
// itself; the stack's titles, outermost first, form the SectionPath of all
// content that follows. A block ends at a blank line, a horizontal rule
// (---) or the next header. globalTags (typically from frontmatter) are
// attached to every block.
//
// Cloze ids are extracted with an opener-only scan; full error
// classification is the Scanner's job, not needed at block granularity.
func Split(text string, globalTags []string) []Block {
	var (
		blocks   []Block
		stack    []headerEntry
		current  []string
		inFence  bool
		retained int
	)

	flush := func() {
		if len(current) == 0 {
			return
		}
		content := strings.Join(current, "\n")
		current = nil

		ids := blockClozeIDs(content)
		if len(ids) == 0 {
			return
		}

		path := make([]string, len(stack))
		for i, h := range stack {
			path[i] = h.title
		}
		blocks = append(blocks, Block{
			ID:          blockID(content, retained),
			ContentRaw:  content,
			SectionPath: path,
			Tags:        append([]string(nil), globalTags...),
			ClozeIDs:    ids,
		})
		retained++
	}

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)

		// Fenced code must not be split by rules or headers inside it, or a
		// math cloze block would be torn apart.
		if strings.HasPrefix(trimmed, "```") {
			inFence = !inFence
			current = append(current, line)
			continue
		}
		if inFence {
			current = append(current, line)
			continue
		}

		if level, title, ok := parseHeader(trimmed); ok {
			flush()
			for len(stack) > 0 && stack[len(stack)-1].level >= level {
				stack = stack[:len(stack)-1]
			}
			stack = append(stack, headerEntry{level: level, title: title})
			continue
		}

		if trimmed == "" || trimmed == "---" {
			flush()
			continue
		}

		current = append(current, line)
	}
	flush()

	return blocks
}

// parseHeader recognizes an ATX header line: 1-6 leading # followed by a
// space and the title.
func parseHeader(line string) (level int, title string, ok bool) {
	if !strings.HasPrefix(line, "#") {
		return 0, "", false
	}
	for level < len(line) && line[level] == '#' {
		level++
	}
	if level > 6 || level == len(line) || line[level] != ' ' {
		return 0, "", false
	}
	return level, strings.TrimSpace(line[level+1:]), true
}

// blockClozeIDs collects the distinct cloze ids opened inside content via a
// lightweight opener-only scan ({{cN:: and math-cloze-N fence tags).
func blockClozeIDs(content string) []uint {
	seen := make(map[uint]bool)
	var ids []uint

	add := func(id uint) {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}

	for i := 0; i+len(openerPrefix) < len(content); {
		idx := strings.Index(content[i:], openerPrefix)
		if idx < 0 {
			break
		}
		i += idx + len(openerPrefix)
		start := i
		for i < len(content) && isDigit(content[i]) {
			i++
		}
		if id, ok := parseID(content[start:i]); ok && strings.HasPrefix(content[i:], separator) {
			add(id)
		}
	}

	for i := 0; ; {
		idx := strings.Index(content[i:], mathFencePrefix)
		if idx < 0 {
			break
		}
		i += idx + len(mathFencePrefix)
		start := i
		for i < len(content) && isDigit(content[i]) {
			i++
		}
		if id, ok := parseID(content[start:i]); ok {
			add(id)
		}
	}

	sortUints(ids)
	return ids
}

// blockID hashes "{content}-{salt}" with 32-bit FNV-1a and renders it as
// fixed-width hex.
func blockID(content string, salt int) string {
	h := fnv.New32a()
	fmt.Fprintf(h, "%s-%d", content, salt)
	return fmt.Sprintf("%08x", h.Sum32())
}
