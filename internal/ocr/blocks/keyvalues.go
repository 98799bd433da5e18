package blocks

import (
	"encoding/json"
	"strings"
)

// Pair is one label/value extracted from a key/value set.
type Pair struct {
	Key   string
	Value string
}

// KeyValueMap maps extracted labels to values. Keys are unique; setting an
// existing key overwrites its value in place, so iteration order is the order
// in which each label was first seen.
type KeyValueMap struct {
	pairs []Pair
	index map[string]int
}

// NewKeyValueMap builds a map from label/value pairs, later pairs winning.
func NewKeyValueMap(pairs ...Pair) *KeyValueMap {
	m := &KeyValueMap{index: make(map[string]int, len(pairs))}
	for _, p := range pairs {
		m.Set(p.Key, p.Value)
	}
	return m
}

// Set stores value under key.
func (m *KeyValueMap) Set(key, value string) {
	if m.index == nil {
		m.index = make(map[string]int)
	}
	if i, ok := m.index[key]; ok {
		m.pairs[i].Value = value
		return
	}
	m.index[key] = len(m.pairs)
	m.pairs = append(m.pairs, Pair{Key: key, Value: value})
}

// Get returns the value stored under key.
func (m *KeyValueMap) Get(key string) (string, bool) {
	if m == nil {
		return "", false
	}
	i, ok := m.index[key]
	if !ok {
		return "", false
	}
	return m.pairs[i].Value, true
}

// Len returns the number of labels.
func (m *KeyValueMap) Len() int {
	if m == nil {
		return 0
	}
	return len(m.pairs)
}

// Pairs returns a copy of the pairs in first-seen order.
func (m *KeyValueMap) Pairs() []Pair {
	if m == nil {
		return nil
	}
	out := make([]Pair, len(m.pairs))
	copy(out, m.pairs)
	return out
}

// MarshalJSON renders the map as a JSON object.
func (m *KeyValueMap) MarshalJSON() ([]byte, error) {
	obj := make(map[string]string, m.Len())
	for _, p := range m.Pairs() {
		obj[p.Key] = p.Value
	}
	return json.Marshal(obj)
}

// ExtractPairs scans blocks for KEY blocks of key/value sets and returns the
// label/value text of every pair whose label and value are both non-empty.
func ExtractPairs(blocks []Block) *KeyValueMap {
	g := BuildGraph(blocks)
	kv := NewKeyValueMap()

	for i := range blocks {
		b := &blocks[i]
		if !b.IsKey() {
			continue
		}

		key := g.TextOf(b)
		if key == "" {
			continue
		}

		valueRel, ok := b.Relationship(RelationshipValue)
		if !ok || len(valueRel.IDs) == 0 {
			continue
		}

		var values []string
		for _, id := range valueRel.IDs {
			if text := g.TextOf(g[id]); text != "" {
				values = append(values, text)
			}
		}
		value := strings.TrimSpace(strings.Join(values, " "))
		if value == "" {
			continue
		}
		kv.Set(key, value)
	}
	return kv
}

// CollectText joins the text of every LINE block with newlines, in provider
// order. The result is the document transcript used by fallback parsers.
func CollectText(blocks []Block) string {
	var lines []string
	for i := range blocks {
		if blocks[i].Type == BlockTypeLine && blocks[i].Text != "" {
			lines = append(lines, blocks[i].Text)
		}
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
