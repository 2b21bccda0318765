package ingest

import (
	"archive/zip"
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/hyperjump/agrafes/internal/models"
	"github.com/hyperjump/agrafes/internal/normalize"
)

const docxDocumentXMLPath = "word/document.xml"
const contentTypesPath = "[Content_Types].xml"
const docxMainContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"

// paragraphTag matches one <w:p ...>...</w:p> block, across its (possibly
// many) <w:r>/<w:t> runs.
var paragraphTag = regexp.MustCompile(`(?s)<w:p[ >].*?</w:p>`)

// wtTag matches <w:t>text</w:t> or <w:t xml:space="preserve">text</w:t>.
var wtTag = regexp.MustCompile(`<w:t[^>]*>([^<]*)</w:t>`)

var partNameRe = regexp.MustCompile(`<Override[^>]+PartName="([^"]+)"[^>]+ContentType="` + regexp.QuoteMeta(docxMainContentType) + `"`)
var partNameRe2 = regexp.MustCompile(`<Override[^>]+ContentType="` + regexp.QuoteMeta(docxMainContentType) + `"[^>]+PartName="([^"]+)"`)

// findDocxMainDocumentPath finds the main document path from [Content_Types].xml.
func findDocxMainDocumentPath(zr *zip.Reader) string {
	for _, f := range zr.File {
		if f.Name != contentTypesPath {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return ""
		}
		var buf bytes.Buffer
		if _, err := buf.ReadFrom(rc); err != nil {
			_ = rc.Close()
			return ""
		}
		_ = rc.Close()

		content := buf.String()
		if matches := partNameRe.FindStringSubmatch(content); len(matches) > 1 {
			return strings.TrimPrefix(matches[1], "/")
		}
		if matches := partNameRe2.FindStringSubmatch(content); len(matches) > 1 {
			return strings.TrimPrefix(matches[1], "/")
		}
		return ""
	}
	return ""
}

// extractDocxParagraphs reads a .docx zip and returns the text of each
// <w:p> paragraph in document order. We do not use lu4p/cat: its regex
// matches <w:p>(.*)</w:p> without attributes, so real documents (whose
// paragraphs carry rsid/style attributes) yield empty text.
func extractDocxParagraphs(content []byte) ([]string, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("extract docx: not a zip: %w", err)
	}

	docPath := findDocxMainDocumentPath(zr)
	if docPath == "" {
		docPath = docxDocumentXMLPath
	}

	var docXML []byte
	for _, f := range zr.File {
		if f.Name != docPath {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("extract docx: open %s: %w", f.Name, err)
		}
		var buf bytes.Buffer
		if _, err := buf.ReadFrom(rc); err != nil {
			_ = rc.Close()
			return nil, fmt.Errorf("extract docx: read %s: %w", f.Name, err)
		}
		_ = rc.Close()
		docXML = buf.Bytes()
		break
	}
	if docXML == nil {
		return nil, fmt.Errorf("extract docx: %s not found", docPath)
	}

	paragraphs := paragraphTag.FindAllString(string(docXML), -1)
	out := make([]string, 0, len(paragraphs))
	for _, p := range paragraphs {
		runs := wtTag.FindAllStringSubmatch(p, -1)
		var b strings.Builder
		for i, r := range runs {
			if i > 0 {
				b.WriteByte(' ')
			}
			b.WriteString(r[1])
		}
		out = append(out, strings.TrimSpace(b.String()))
	}
	return out, nil
}

// parseDocxParagraphs turns paragraph text into units: every non-empty
// paragraph becomes kind=line with external_id = n (monotone, gap-free),
// enabling position-based alignment when the source carries no numeric
// anchors.
func parseDocxParagraphs(content []byte, r *Report) ([]*models.Unit, error) {
	paragraphs, err := extractDocxParagraphs(content)
	if err != nil {
		return nil, err
	}
	units := make([]*models.Unit, 0, len(paragraphs))
	n := 0
	for _, p := range paragraphs {
		if strings.TrimSpace(p) == "" {
			continue
		}
		n++
		norm := normalize.Apply(p)
		ext := int64(n)
		units = append(units, &models.Unit{
			Kind:       models.KindLine,
			N:          n,
			ExternalID: &ext,
			TextRaw:    norm.TextRaw,
			TextNorm:   norm.TextNorm,
			Metadata:   metadataForNorm(norm),
		})
	}
	if len(units) == 0 {
		r.warn("no non-empty paragraphs found in docx body")
	}
	return units, nil
}
