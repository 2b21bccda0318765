package ingest

import (
	"encoding/xml"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/hyperjump/agrafes/internal/models"
	"github.com/hyperjump/agrafes/internal/normalize"
)

// xmlIDTrailingDigits extracts trailing decimal digits from an xml:id, e.g.
// "s42" or "p-0042" both yield external_id=42.
var xmlIDTrailingDigits = regexp.MustCompile(`(\d+)$`)

// XMLOptions configures the lightly-structured XML importer.
type XMLOptions struct {
	// UnitElement is the local name of the element that becomes one unit:
	// "p" (default) or "s".
	UnitElement string
}

// teiParseResult carries everything parseTEI extracts besides the unit set.
type teiParseResult struct {
	Language string
	Title    string
}

// localName strips any namespace prefix from an XML name; the parser must
// not require a specific namespace prefix (§4.C).
func localName(name xml.Name) string {
	return name.Local
}

func attr(attrs []xml.Attr, local string) (string, bool) {
	for _, a := range attrs {
		if localName(a.Name) == local {
			return a.Value, true
		}
	}
	return "", false
}

// parseTEI walks a lightly-structured TEI-like document with a
// namespace-agnostic streaming decoder. It resolves language from xml:lang
// on the root or text element, title from teiHeader//title (falling back to
// the caller-supplied default), and builds one unit per UnitElement in
// document order, extracting external_id from a trailing numeric xml:id.
func parseTEI(r io.Reader, opts XMLOptions, defaultTitle string, report *Report) ([]*models.Unit, teiParseResult, error) {
	unitElem := opts.UnitElement
	if unitElem == "" {
		unitElem = "p"
	}

	dec := xml.NewDecoder(r)
	result := teiParseResult{Title: defaultTitle}

	var units []*models.Unit
	n := 0
	inHeaderTitle := false
	var titleBuf strings.Builder

	var curAttrs []xml.Attr
	var curText strings.Builder
	inUnit := false

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, result, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			name := localName(t.Name)
			if result.Language == "" {
				if lang, ok := attr(t.Attr, "lang"); ok {
					result.Language = lang
				}
			}
			if name == "title" && n == 0 {
				inHeaderTitle = true
				titleBuf.Reset()
			}
			if name == unitElem {
				inUnit = true
				curAttrs = t.Attr
				curText.Reset()
			}
		case xml.CharData:
			if inHeaderTitle {
				titleBuf.Write(t)
			}
			if inUnit {
				curText.Write(t)
			}
		case xml.EndElement:
			name := localName(t.Name)
			if name == "title" && inHeaderTitle {
				inHeaderTitle = false
				if result.Title == defaultTitle || result.Title == "" {
					if s := strings.TrimSpace(titleBuf.String()); s != "" {
						result.Title = s
					}
				}
			}
			if name == unitElem && inUnit {
				n++
				text := curText.String()
				norm := normalize.Apply(text)
				u := &models.Unit{
					Kind:     models.KindLine,
					N:        n,
					TextRaw:  norm.TextRaw,
					TextNorm: norm.TextNorm,
					Metadata: metadataForNorm(norm),
				}
				if id, ok := attr(curAttrs, "id"); ok {
					if m := xmlIDTrailingDigits.FindStringSubmatch(id); m != nil {
						if v, err := strconv.ParseInt(m[1], 10, 64); err == nil {
							u.ExternalID = &v
						}
					}
				}
				if strings.TrimSpace(norm.TextNorm) == "" {
					u.Kind = models.KindStructure
					report.warn("empty unit element at position " + strconv.Itoa(n))
				}
				units = append(units, u)
				inUnit = false
			}
		}
	}

	if result.Language == "" {
		report.warn("no xml:lang found on root or text element")
	}
	return units, result, nil
}
