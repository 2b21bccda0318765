package ingest

import (
	"bytes"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

// decodeResult carries the decoded text and which step of the fallback
// chain produced it, for the ingestion report's "encoding" field.
type decodeResult struct {
	text   string
	method string
}

var (
	utf8BOM    = []byte{0xEF, 0xBB, 0xBF}
	utf16LEBOM = []byte{0xFF, 0xFE}
	utf16BEBOM = []byte{0xFE, 0xFF}
)

// decodeBytes runs the §4.C fallback chain: BOM sniff, then (if wired) a
// general charset detector, then cp1252, then latin-1. UTF-8 without a BOM
// is accepted directly when it validates, which covers the overwhelming
// majority of corpus files without guessing.
func decodeBytes(content []byte, detector CharsetDetector) (decodeResult, error) {
	if bytes.HasPrefix(content, utf8BOM) {
		return decodeResult{text: string(content[len(utf8BOM):]), method: "bom:utf-8"}, nil
	}
	if bytes.HasPrefix(content, utf16LEBOM) {
		text, err := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder().String(string(content))
		if err != nil {
			return decodeResult{}, err
		}
		return decodeResult{text: text, method: "bom:utf-16le"}, nil
	}
	if bytes.HasPrefix(content, utf16BEBOM) {
		text, err := unicode.UTF16(unicode.BigEndian, unicode.UseBOM).NewDecoder().String(string(content))
		if err != nil {
			return decodeResult{}, err
		}
		return decodeResult{text: text, method: "bom:utf-16be"}, nil
	}

	if utf8.Valid(content) {
		return decodeResult{text: string(content), method: "utf-8"}, nil
	}

	if detector != nil {
		if text, ok := detector.Detect(content); ok {
			return decodeResult{text: text, method: "detector"}, nil
		}
	}

	if text, err := charmap.Windows1252.NewDecoder().String(string(content)); err == nil {
		return decodeResult{text: text, method: "cp1252"}, nil
	}

	text, err := charmap.ISO8859_1.NewDecoder().String(string(content))
	if err != nil {
		return decodeResult{}, err
	}
	return decodeResult{text: text, method: "latin-1"}, nil
}

// CharsetDetector is the optional general charset detector named in §4.C.
// The pipeline remains operational when none is configured; nothing in the
// pack ships a charset-sniffing library, so callers that want one can wire
// their own (e.g. an ICU binding) without internal/ingest depending on it.
type CharsetDetector interface {
	Detect(content []byte) (text string, ok bool)
}
