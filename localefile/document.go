// Package localefile parses and serializes locale definition files through
// pluggable format backends. Every backend produces the same ordered Document
// model, so analysis and optimization never depend on the on-disk format.
package localefile

import (
	"fmt"
	"strings"

	"github.com/MilkWind/i18n-assistant/config"
)

// Entry is one key inside a Document: either a leaf with a Value or a nested
// mapping with a Child. A leaf key may itself contain dots (flat formats such
// as gettext keep their msgids verbatim).
type Entry struct {
	Key   string
	Value any
	Child *Document
}

// Document is an ordered mapping. Entry order is the order the backend
// observed in the source file, so a round trip preserves it where the format
// allows.
type Document struct {
	Entries []*Entry
}

func (d *Document) index(key string) int {
	for i, e := range d.Entries {
		if e.Key == key {
			return i
		}
	}
	return -1
}

func (d *Document) find(key string) *Entry {
	if i := d.index(key); i >= 0 {
		return d.Entries[i]
	}
	return nil
}

// Flatten produces the dot-path key set of the document. Only leaves become
// keys; a nested entry contributes its children under "parent.child". When
// the same flattened key appears more than once the policy decides which
// value survives, and a warning is recorded either way.
func (d *Document) Flatten(policy config.DuplicatePolicy) (map[string]any, []string) {
	keys := make(map[string]any)
	var warnings []string
	d.flattenInto("", policy, keys, &warnings)
	return keys, warnings
}

func (d *Document) flattenInto(prefix string, policy config.DuplicatePolicy, keys map[string]any, warnings *[]string) {
	for _, e := range d.Entries {
		full := e.Key
		if prefix != "" {
			full = prefix + "." + e.Key
		}
		if e.Child != nil {
			e.Child.flattenInto(full, policy, keys, warnings)
			continue
		}
		if _, dup := keys[full]; dup {
			*warnings = append(*warnings, fmt.Sprintf("duplicate key %q", full))
			if policy == config.DuplicateFirstWins {
				continue
			}
		}
		keys[full] = e.Value
	}
}

// Set assigns a value under a dot-path key. An existing literal key — one
// that contains the dots verbatim — is matched before the path is split, so
// flat-format documents keep their shape. Missing intermediate mappings are
// created; a leaf in the way is converted into a mapping.
func (d *Document) Set(key string, value any) {
	if e := d.find(key); e != nil {
		e.Value = value
		e.Child = nil
		return
	}
	head, rest, found := strings.Cut(key, ".")
	if !found {
		d.Entries = append(d.Entries, &Entry{Key: key, Value: value})
		return
	}
	e := d.find(head)
	if e == nil {
		e = &Entry{Key: head, Child: &Document{}}
		d.Entries = append(d.Entries, e)
	}
	if e.Child == nil {
		e.Child = &Document{}
		e.Value = nil
	}
	e.Child.Set(rest, value)
}

// Remove deletes the entry for a dot-path key, trying a literal match first.
// Mappings left empty by the removal are pruned. It reports whether anything
// was removed.
func (d *Document) Remove(key string) bool {
	if i := d.index(key); i >= 0 {
		d.Entries = append(d.Entries[:i], d.Entries[i+1:]...)
		return true
	}
	head, rest, found := strings.Cut(key, ".")
	if !found {
		return false
	}
	i := d.index(head)
	if i < 0 || d.Entries[i].Child == nil {
		return false
	}
	if !d.Entries[i].Child.Remove(rest) {
		return false
	}
	if len(d.Entries[i].Child.Entries) == 0 {
		d.Entries = append(d.Entries[:i], d.Entries[i+1:]...)
	}
	return true
}

// Clone returns a structural deep copy. Leaf values are shared: callers
// mutate document structure, never the values themselves.
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	out := &Document{Entries: make([]*Entry, len(d.Entries))}
	for i, e := range d.Entries {
		out.Entries[i] = &Entry{Key: e.Key, Value: e.Value, Child: e.Child.Clone()}
	}
	return out
}

// Len counts the leaves of the document.
func (d *Document) Len() int {
	n := 0
	for _, e := range d.Entries {
		if e.Child != nil {
			n += e.Child.Len()
		} else {
			n++
		}
	}
	return n
}
