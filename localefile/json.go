package localefile

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

func init() { Register(jsonBackend{}) }

// jsonBackend reads and writes JSON locale files. The stock JSON decoder
// loses object member order, so parsing walks the token stream instead and
// records members in the order they appear.
type jsonBackend struct{}

func (jsonBackend) Name() string         { return "json" }
func (jsonBackend) Extensions() []string { return []string{".json"} }

func (jsonBackend) Parse(data []byte) (*Document, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("reading JSON: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("top-level JSON value must be an object")
	}
	doc, err := parseJSONObject(dec)
	if err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("trailing content after top-level object")
	}
	return doc, nil
}

// parseJSONObject consumes members up to and including the closing brace.
func parseJSONObject(dec *json.Decoder) (*Document, error) {
	doc := &Document{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("reading JSON: %w", err)
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected object key token %v", tok)
		}
		value, err := parseJSONValue(dec)
		if err != nil {
			return nil, err
		}
		entry := &Entry{Key: key}
		if child, ok := value.(*Document); ok {
			entry.Child = child
		} else {
			entry.Value = value
		}
		doc.Entries = append(doc.Entries, entry)
	}
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("reading JSON: %w", err)
	}
	return doc, nil
}

// parseJSONValue returns a *Document for objects, a []any for arrays, and
// the decoded scalar otherwise. Numbers stay json.Number so serialization
// does not reformat them.
func parseJSONValue(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("reading JSON: %w", err)
	}
	delim, ok := tok.(json.Delim)
	if !ok {
		return tok, nil
	}
	switch delim {
	case '{':
		return parseJSONObject(dec)
	case '[':
		var arr []any
		for dec.More() {
			elem, err := parseJSONValue(dec)
			if err != nil {
				return nil, err
			}
			arr = append(arr, elem)
		}
		if _, err := dec.Token(); err != nil {
			return nil, fmt.Errorf("reading JSON: %w", err)
		}
		return arr, nil
	default:
		return nil, fmt.Errorf("unexpected delimiter %v", delim)
	}
}

func (jsonBackend) Marshal(doc *Document) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeJSONObject(&buf, doc, 0); err != nil {
		return nil, err
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

func writeJSONObject(buf *bytes.Buffer, doc *Document, depth int) error {
	if len(doc.Entries) == 0 {
		buf.WriteString("{}")
		return nil
	}
	buf.WriteString("{\n")
	for i, e := range doc.Entries {
		writeJSONIndent(buf, depth+1)
		key, err := json.Marshal(e.Key)
		if err != nil {
			return err
		}
		buf.Write(key)
		buf.WriteString(": ")
		if e.Child != nil {
			if err := writeJSONObject(buf, e.Child, depth+1); err != nil {
				return err
			}
		} else if err := writeJSONValue(buf, e.Value, depth+1); err != nil {
			return err
		}
		if i < len(doc.Entries)-1 {
			buf.WriteByte(',')
		}
		buf.WriteByte('\n')
	}
	writeJSONIndent(buf, depth)
	buf.WriteByte('}')
	return nil
}

func writeJSONValue(buf *bytes.Buffer, v any, depth int) error {
	switch t := v.(type) {
	case *Document:
		return writeJSONObject(buf, t, depth)
	case json.Number:
		buf.WriteString(t.String())
		return nil
	case []any:
		if len(t) == 0 {
			buf.WriteString("[]")
			return nil
		}
		buf.WriteString("[\n")
		for i, elem := range t {
			writeJSONIndent(buf, depth+1)
			if err := writeJSONValue(buf, elem, depth+1); err != nil {
				return err
			}
			if i < len(t)-1 {
				buf.WriteByte(',')
			}
			buf.WriteByte('\n')
		}
		writeJSONIndent(buf, depth)
		buf.WriteByte(']')
		return nil
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("marshaling value: %w", err)
		}
		buf.Write(b)
		return nil
	}
}

func writeJSONIndent(buf *bytes.Buffer, depth int) {
	for i := 0; i < depth; i++ {
		buf.WriteString("  ")
	}
}
