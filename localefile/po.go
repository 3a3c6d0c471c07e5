package localefile

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/leonelquinteros/gotext"
)

func init() { Register(poBackend{}) }

// poBackend reads and writes gettext PO catalogs. PO keys are flat: a msgid
// containing dots stays a single literal key and is never split into a
// nested mapping. Parsing goes through gotext; the writer is our own, since
// gotext only reads.
type poBackend struct{}

func (poBackend) Name() string         { return "po" }
func (poBackend) Extensions() []string { return []string{".po", ".pot"} }

func (poBackend) Parse(data []byte) (*Document, error) {
	po := gotext.NewPo()
	po.Parse(data)

	translations := po.GetDomain().GetTranslations()
	msgids := make([]string, 0, len(translations))
	for id := range translations {
		if id == "" {
			// Header entry.
			continue
		}
		msgids = append(msgids, id)
	}
	sort.Strings(msgids)

	doc := &Document{}
	for _, id := range msgids {
		doc.Entries = append(doc.Entries, &Entry{Key: id, Value: translations[id].Get()})
	}
	return doc, nil
}

func (poBackend) Marshal(doc *Document) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("msgid \"\"\n")
	buf.WriteString("msgstr \"\"\n")
	buf.WriteString("\"Content-Type: text/plain; charset=UTF-8\\n\"\n")

	if err := writePOEntries(&buf, doc, ""); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// writePOEntries flattens nested mappings back to dot-joined msgids, so a
// key inserted as a path still serializes as the flat key PO expects.
func writePOEntries(buf *bytes.Buffer, doc *Document, prefix string) error {
	for _, e := range doc.Entries {
		full := e.Key
		if prefix != "" {
			full = prefix + "." + e.Key
		}
		if e.Child != nil {
			if err := writePOEntries(buf, e.Child, full); err != nil {
				return err
			}
			continue
		}
		value, ok := e.Value.(string)
		if !ok && e.Value != nil {
			return fmt.Errorf("msgid %q: PO values must be strings, got %T", full, e.Value)
		}
		buf.WriteByte('\n')
		buf.WriteString("msgid " + poQuote(full) + "\n")
		buf.WriteString("msgstr " + poQuote(value) + "\n")
	}
	return nil
}

// poQuote escapes a string for a PO line.
func poQuote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	s = strings.ReplaceAll(s, "\n", `\n`)
	s = strings.ReplaceAll(s, "\t", `\t`)
	return `"` + s + `"`
}
