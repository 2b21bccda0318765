// Package export implements the sidecar's three export formats: a
// structured XML dump of a document's units (§4.K), an alignment-link
// CSV/TSV dump, and a run report in JSONL or HTML.
package export

import (
	"encoding/xml"
	"fmt"
	"io"

	"github.com/hyperjump/agrafes/internal/models"
)

type teiDoc struct {
	XMLName xml.Name  `xml:"document"`
	Header  teiHeader `xml:"header"`
	Units   []teiUnit `xml:"units>unit"`
}

type teiHeader struct {
	ID           string `xml:"id"`
	Title        string `xml:"title"`
	Language     string `xml:"language"`
	Role         string `xml:"role"`
	ResourceType string `xml:"resource_type,omitempty"`
}

type teiUnit struct {
	N          int    `xml:"n,attr"`
	Kind       string `xml:"kind,attr"`
	ExternalID *int64 `xml:"external_id,attr,omitempty"`
	Text       string `xml:",chardata"`
}

// WriteTEI renders doc's units as UTF-8 XML with an XML declaration. Only
// kind=line units are included unless includeStructure is set. Text is run
// through filterXMLText first so codepoints invalid under XML 1.0 (stray
// control characters, unpaired surrogates) never reach the encoder.
func WriteTEI(w io.Writer, doc *models.Document, units []*models.Unit, includeStructure bool) error {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}

	out := teiDoc{
		Header: teiHeader{
			ID:           doc.ID,
			Title:        filterXMLText(doc.Title),
			Language:     doc.Language,
			Role:         string(doc.Role),
			ResourceType: doc.ResourceType,
		},
	}
	for _, u := range units {
		if u.Kind != models.KindLine && !includeStructure {
			continue
		}
		out.Units = append(out.Units, teiUnit{
			N:          u.N,
			Kind:       string(u.Kind),
			ExternalID: u.ExternalID,
			Text:       filterXMLText(u.TextRaw),
		})
	}

	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encode tei export: %w", err)
	}
	return enc.Flush()
}

// filterXMLText drops codepoints outside the XML 1.0 Char production
// (#x9 | #xA | #xD | [#x20-#xD7FF] | [#xE000-#xFFFD] | [#x10000-#x10FFFF]),
// which encoding/xml happily escapes but does not itself reject.
func filterXMLText(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		switch {
		case r == 0x9 || r == 0xA || r == 0xD:
			out = append(out, r)
		case r >= 0x20 && r <= 0xD7FF:
			out = append(out, r)
		case r >= 0xE000 && r <= 0xFFFD:
			out = append(out, r)
		case r >= 0x10000 && r <= 0x10FFFF:
			out = append(out, r)
		}
	}
	return string(out)
}
