package cloze

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitSectionPaths(t *testing.T) {
	text := "# Biology\n" +
		"## Cells\n" +
		"The {{c1::mitochondria}} is the powerhouse.\n" +
		"\n" +
		"## Plants\n" +
		"Pure prose, no cloze, not a card.\n" +
		"\n" +
		"{{c2::Chlorophyll}} absorbs light.\n"

	blocks := Split(text, nil)

	require.Len(t, blocks, 2, "prose without clozes is not retained")

	assert.Equal(t, []string{"Biology", "Cells"}, blocks[0].SectionPath)
	assert.Equal(t, []uint{1}, blocks[0].ClozeIDs)
	assert.Equal(t, "The {{c1::mitochondria}} is the powerhouse.", blocks[0].ContentRaw)

	assert.Equal(t, []string{"Biology", "Plants"}, blocks[1].SectionPath)
	assert.Equal(t, []uint{2}, blocks[1].ClozeIDs)
}

func TestSplitHeaderStackPopsSiblingsAndDeeper(t *testing.T) {
	text := "# A\n## B\ntext {{c1::x}}\n# C\nmore {{c2::y}}\n"

	blocks := Split(text, nil)

	require.Len(t, blocks, 2)
	assert.Equal(t, []string{"A", "B"}, blocks[0].SectionPath)
	assert.Equal(t, []string{"C"}, blocks[1].SectionPath, "a new h1 pops the whole stack")
}

func TestSplitBoundaries(t *testing.T) {
	text := "{{c1::a}}\n---\n{{c2::b}}\n\n{{c3::c}}\n## H\n{{c4::d}}\n"

	blocks := Split(text, nil)

	require.Len(t, blocks, 4, "rule, blank line and header all end a block")
	assert.Equal(t, []uint{1}, blocks[0].ClozeIDs)
	assert.Equal(t, []uint{2}, blocks[1].ClozeIDs)
	assert.Equal(t, []uint{3}, blocks[2].ClozeIDs)
	assert.Equal(t, []uint{4}, blocks[3].ClozeIDs)
}

func TestSplitClozeIDsSortedAndDeduplicated(t *testing.T) {
	blocks := Split("{{c3::a}} {{c1::b}} {{c1::c}}", nil)

	require.Len(t, blocks, 1)
	assert.Equal(t, []uint{1, 3}, blocks[0].ClozeIDs)
}

func TestSplitBlockIDsAreDeterministicAndSalted(t *testing.T) {
	text := "{{c1::same}}\n\n{{c1::same}}\n"

	first := Split(text, nil)
	second := Split(text, nil)

	require.Len(t, first, 2)
	assert.Equal(t, first[0].ID, second[0].ID, "identical parse yields identical ids")
	assert.Equal(t, first[1].ID, second[1].ID)
	assert.NotEqual(t, first[0].ID, first[1].ID,
		"positional salt disambiguates duplicate content")
}

func TestSplitGlobalTags(t *testing.T) {
	blocks := Split("{{c1::a}}", []string{"biology", "exam"})

	require.Len(t, blocks, 1)
	assert.Equal(t, []string{"biology", "exam"}, blocks[0].Tags)
}

func TestSplitMathClozeFenceStaysInOneBlock(t *testing.T) {
	// The fence payload may contain lines that would otherwise end a block.
	text := "intro\n```math-cloze-4\nx = 1\n\ny = 2\n```\noutro\n"

	blocks := Split(text, nil)

	require.Len(t, blocks, 1)
	assert.Contains(t, blocks[0].ContentRaw, "y = 2")
	assert.Equal(t, []uint{4}, blocks[0].ClozeIDs)
}

func TestSplitHeaderWithoutSpaceIsContent(t *testing.T) {
	blocks := Split("#nospace {{c1::a}}", nil)

	require.Len(t, blocks, 1)
	assert.Empty(t, blocks[0].SectionPath)
}

func TestSplitEmptyDocument(t *testing.T) {
	assert.Empty(t, Split("", nil))
	assert.Empty(t, Split("\n\n\n", nil))
}
