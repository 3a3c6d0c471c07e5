package localefile

import (
	"fmt"
	"sort"

	"github.com/pelletier/go-toml/v2"
)

func init() { Register(tomlBackend{}) }

// tomlBackend reads and writes TOML locale files. The decoder hands back
// plain maps, so source order is not recoverable; entries are sorted by key
// instead, which keeps output deterministic.
type tomlBackend struct{}

func (tomlBackend) Name() string         { return "toml" }
func (tomlBackend) Extensions() []string { return []string{".toml"} }

func (tomlBackend) Parse(data []byte) (*Document, error) {
	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing TOML: %w", err)
	}
	return tomlDocument(raw), nil
}

func tomlDocument(m map[string]any) *Document {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	doc := &Document{}
	for _, k := range keys {
		entry := &Entry{Key: k}
		if child, ok := m[k].(map[string]any); ok {
			entry.Child = tomlDocument(child)
		} else {
			entry.Value = m[k]
		}
		doc.Entries = append(doc.Entries, entry)
	}
	return doc
}

func (tomlBackend) Marshal(doc *Document) ([]byte, error) {
	out, err := toml.Marshal(tomlMap(doc))
	if err != nil {
		return nil, fmt.Errorf("encoding TOML: %w", err)
	}
	return out, nil
}

func tomlMap(doc *Document) map[string]any {
	m := make(map[string]any, len(doc.Entries))
	for _, e := range doc.Entries {
		if e.Child != nil {
			m[e.Key] = tomlMap(e.Child)
		} else {
			m[e.Key] = e.Value
		}
	}
	return m
}
