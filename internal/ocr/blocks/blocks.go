// Package blocks models the recognized visual elements returned by the
// document-analysis provider and reduces them to text and key/value pairs.
//
// Blocks never point at their parent. The graph is rebuilt by identifier
// lookup, so a Graph is only an index over the provider's flat block list.
package blocks

import (
	"slices"
	"strings"
)

// BlockType tags the kind of recognized element.
type BlockType string

const (
	BlockTypeLine             BlockType = "LINE"
	BlockTypeWord             BlockType = "WORD"
	BlockTypeKeyValueSet      BlockType = "KEY_VALUE_SET"
	BlockTypeSelectionElement BlockType = "SELECTION_ELEMENT"
)

// RelationshipType tags an edge from a block to other blocks.
type RelationshipType string

const (
	RelationshipChild RelationshipType = "CHILD"
	RelationshipValue RelationshipType = "VALUE"
)

// EntityType is the role of a KEY_VALUE_SET block.
type EntityType string

const (
	EntityKey   EntityType = "KEY"
	EntityValue EntityType = "VALUE"
)

// SelectionStatus is the state of a checkbox-like element.
type SelectionStatus string

const (
	SelectionSelected    SelectionStatus = "SELECTED"
	SelectionNotSelected SelectionStatus = "NOT_SELECTED"
)

// SelectedGlyph replaces a selected SELECTION_ELEMENT in reconstructed text.
const SelectedGlyph = "☑"

// Relationship links a block to the blocks named by IDs.
type Relationship struct {
	Type RelationshipType
	IDs  []string
}

// Block is a single recognized element.
type Block struct {
	ID              string
	Type            BlockType
	Text            string
	SelectionStatus SelectionStatus
	EntityTypes     []EntityType
	Relationships   []Relationship
}

// IsKey reports whether b is the KEY half of a key/value set.
func (b *Block) IsKey() bool {
	return b.Type == BlockTypeKeyValueSet && slices.Contains(b.EntityTypes, EntityKey)
}

// Relationship returns the first relationship of the given type.
func (b *Block) Relationship(t RelationshipType) (Relationship, bool) {
	for _, rel := range b.Relationships {
		if rel.Type == t {
			return rel, true
		}
	}
	return Relationship{}, false
}

// Graph indexes blocks by identifier. It is built once per analysis and
// read-only afterwards.
type Graph map[string]*Block

// BuildGraph indexes blocks by ID. Blocks without an ID are dropped.
func BuildGraph(blocks []Block) Graph {
	g := make(Graph, len(blocks))
	for i := range blocks {
		if blocks[i].ID == "" {
			continue
		}
		g[blocks[i].ID] = &blocks[i]
	}
	return g
}

// TextOf reconstructs the text of b from its direct CHILD blocks. WORD and
// LINE children contribute their text; a selected SELECTION_ELEMENT child
// contributes SelectedGlyph. A nil block or one without relationships yields "".
func (g Graph) TextOf(b *Block) string {
	if b == nil || len(b.Relationships) == 0 {
		return ""
	}

	var texts []string
	for _, rel := range b.Relationships {
		if rel.Type != RelationshipChild {
			continue
		}
		for _, id := range rel.IDs {
			child, ok := g[id]
			if !ok {
				continue
			}
			switch child.Type {
			case BlockTypeWord, BlockTypeLine:
				if child.Text != "" {
					texts = append(texts, child.Text)
				}
			case BlockTypeSelectionElement:
				if child.SelectionStatus == SelectionSelected {
					texts = append(texts, SelectedGlyph)
				}
			}
		}
	}
	return strings.TrimSpace(strings.Join(texts, " "))
}
