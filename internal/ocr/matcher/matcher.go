// Package matcher folds extracted labels and finds values by label substring.
//
// Every domain builder resolves fields through FirstMatch, so label drift
// across document templates (accents, casing, extra words) is absorbed here
// and nowhere else.
package matcher

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"paythru/internal/ocr/blocks"
)

// Fold lower-cases s and strips combining diacritics after NFD decomposition,
// so "Nómbre", "NOMBRE" and "nombre" fold to the same string.
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(folded)
}

// Entry is one extracted pair prepared for matching.
type Entry struct {
	Key    string
	Folded string
	Value  string
}

// Entries keeps the extraction order of the pairs it was built from.
type Entries []Entry

// Normalize converts a key/value map into entries, dropping pairs whose
// trimmed value is empty.
func Normalize(kv *blocks.KeyValueMap) Entries {
	pairs := kv.Pairs()
	entries := make(Entries, 0, len(pairs))
	for _, p := range pairs {
		value := strings.TrimSpace(p.Value)
		if value == "" {
			continue
		}
		entries = append(entries, Entry{
			Key:    p.Key,
			Folded: Fold(p.Key),
			Value:  value,
		})
	}
	return entries
}

// Predicate tests a folded label.
type Predicate func(folded string) bool

// ContainsAny matches labels containing any of the needles. Needles are
// folded, so callers may write them with or without accents.
func ContainsAny(needles ...string) Predicate {
	folded := foldAll(needles)
	return func(key string) bool {
		for _, n := range folded {
			if strings.Contains(key, n) {
				return true
			}
		}
		return false
	}
}

// ContainsAll matches labels containing every needle.
func ContainsAll(needles ...string) Predicate {
	folded := foldAll(needles)
	return func(key string) bool {
		if len(folded) == 0 {
			return false
		}
		for _, n := range folded {
			if !strings.Contains(key, n) {
				return false
			}
		}
		return true
	}
}

// FirstMatch returns the value of the first entry whose folded label
// satisfies any predicate, or "" when none does.
func FirstMatch(entries Entries, preds ...Predicate) string {
	for _, e := range entries {
		for _, p := range preds {
			if p(e.Folded) {
				return e.Value
			}
		}
	}
	return ""
}

// Prefer tries the predicates one at a time, in priority order, and returns
// the first value found. Unlike FirstMatch, an earlier predicate wins over an
// earlier entry.
func Prefer(entries Entries, preds ...Predicate) string {
	for _, p := range preds {
		if v := FirstMatch(entries, p); v != "" {
			return v
		}
	}
	return ""
}

// Find is FirstMatch with a single ContainsAny predicate.
func (es Entries) Find(needles ...string) string {
	return FirstMatch(es, ContainsAny(needles...))
}

// Lookup returns the first entry whose label satisfies pred.
func (es Entries) Lookup(pred Predicate) (Entry, bool) {
	for _, e := range es {
		if pred(e.Folded) {
			return e, true
		}
	}
	return Entry{}, false
}

func foldAll(needles []string) []string {
	out := make([]string, 0, len(needles))
	for _, n := range needles {
		if f := Fold(strings.TrimSpace(n)); f != "" {
			out = append(out, f)
		}
	}
	return out
}
