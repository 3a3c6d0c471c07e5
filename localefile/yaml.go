package localefile

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"
)

func init() { Register(yamlBackend{}) }

// yamlBackend reads and writes YAML locale files, walking yaml.Node trees so
// mapping order survives the round trip.
type yamlBackend struct{}

func (yamlBackend) Name() string         { return "yaml" }
func (yamlBackend) Extensions() []string { return []string{".yml", ".yaml"} }

func (yamlBackend) Parse(data []byte) (*Document, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("parsing YAML: %w", err)
	}
	if len(root.Content) == 0 {
		return &Document{}, nil
	}
	top := resolveAlias(root.Content[0])
	if top.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("top-level YAML value must be a mapping")
	}
	return yamlMapping(top)
}

func resolveAlias(n *yaml.Node) *yaml.Node {
	if n.Kind == yaml.AliasNode && n.Alias != nil {
		return n.Alias
	}
	return n
}

func yamlMapping(n *yaml.Node) (*Document, error) {
	doc := &Document{}
	for i := 0; i+1 < len(n.Content); i += 2 {
		keyNode := n.Content[i]
		valNode := resolveAlias(n.Content[i+1])

		entry := &Entry{Key: keyNode.Value}
		if valNode.Kind == yaml.MappingNode {
			child, err := yamlMapping(valNode)
			if err != nil {
				return nil, err
			}
			entry.Child = child
		} else {
			var v any
			if err := valNode.Decode(&v); err != nil {
				return nil, fmt.Errorf("decoding value for %q: %w", keyNode.Value, err)
			}
			entry.Value = v
		}
		doc.Entries = append(doc.Entries, entry)
	}
	return doc, nil
}

func (yamlBackend) Marshal(doc *Document) ([]byte, error) {
	root, err := yamlNode(doc)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(root); err != nil {
		return nil, fmt.Errorf("encoding YAML: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encoding YAML: %w", err)
	}
	return buf.Bytes(), nil
}

func yamlNode(doc *Document) (*yaml.Node, error) {
	n := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, e := range doc.Entries {
		key := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: e.Key}

		var val *yaml.Node
		if e.Child != nil {
			child, err := yamlNode(e.Child)
			if err != nil {
				return nil, err
			}
			val = child
		} else {
			val = &yaml.Node{}
			if err := val.Encode(e.Value); err != nil {
				return nil, fmt.Errorf("encoding value for %q: %w", e.Key, err)
			}
		}
		n.Content = append(n.Content, key, val)
	}
	return n, nil
}
