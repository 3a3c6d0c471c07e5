package scanner

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// decodeText converts raw file bytes to a UTF-8 string. The hint is an IANA
// charset name (empty means UTF-8); a BOM in the data always overrides it.
// Binary content (NUL bytes without a UTF-16 BOM) and text that does not
// decode cleanly are rejected so the caller can record a file error.
func decodeText(data []byte, hint string) (string, error) {
	if bytes.IndexByte(data, 0) >= 0 && !hasUTF16BOM(data) {
		return "", fmt.Errorf("binary content")
	}

	enc, utf8Hint, err := resolveEncoding(hint)
	if err != nil {
		return "", err
	}

	// The UTF-8 decoder substitutes U+FFFD instead of failing, so validate
	// strictly when no transcoding is requested.
	if utf8Hint && !hasUTF16BOM(data) {
		if !utf8.Valid(data) {
			return "", fmt.Errorf("invalid UTF-8 content")
		}
		return string(trimUTF8BOM(data)), nil
	}

	decoded, _, err := transform.Bytes(unicode.BOMOverride(enc.NewDecoder()), data)
	if err != nil {
		return "", fmt.Errorf("decoding as %s: %w", hint, err)
	}
	if !utf8.Valid(decoded) {
		return "", fmt.Errorf("undecodable content for charset %s", hint)
	}
	return string(decoded), nil
}

// resolveEncoding maps an IANA charset name to a decoder. The second return
// reports whether the hint means plain UTF-8.
func resolveEncoding(hint string) (encoding.Encoding, bool, error) {
	normalized := strings.ToLower(strings.TrimSpace(hint))
	if normalized == "" || normalized == "utf-8" || normalized == "utf8" {
		return unicode.UTF8, true, nil
	}
	enc, err := ianaindex.IANA.Encoding(hint)
	if err != nil || enc == nil {
		return nil, false, fmt.Errorf("unsupported encoding %q", hint)
	}
	return enc, false, nil
}

func hasUTF16BOM(data []byte) bool {
	if len(data) < 2 {
		return false
	}
	return (data[0] == 0xFE && data[1] == 0xFF) || (data[0] == 0xFF && data[1] == 0xFE)
}

func trimUTF8BOM(data []byte) []byte {
	return bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})
}
