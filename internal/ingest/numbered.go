package ingest

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/hyperjump/agrafes/internal/models"
	"github.com/hyperjump/agrafes/internal/normalize"
)

// numberedLineRe matches "  [42]  content" — leading whitespace, a bracketed
// decimal external id, whitespace, then the rest of the line as content.
var numberedLineRe = regexp.MustCompile(`^\s*\[(\d+)\]\s*(.*)$`)

// parseNumberedLines splits text into paragraphs on newlines and classifies
// each as kind=line (external_id = the parsed bracket number) or
// kind=structure (no external id, not indexed). n is the 1-based paragraph
// index regardless of kind; duplicate external ids keep the first and warn.
func parseNumberedLines(text string, r *Report) []*models.Unit {
	lines := strings.Split(text, "\n")
	units := make([]*models.Unit, 0, len(lines))
	seenExternal := map[int64]bool{}
	var lastExternal int64 = -1
	n := 0

	for _, raw := range lines {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		n++
		m := numberedLineRe.FindStringSubmatch(raw)
		if m == nil {
			units = append(units, structureUnit(n, raw))
			continue
		}
		extVal, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			units = append(units, structureUnit(n, raw))
			continue
		}
		if seenExternal[extVal] {
			r.warn(fmt.Sprintf("duplicate external_id %d at paragraph %d (kept first)", extVal, n))
			units = append(units, structureUnit(n, raw))
			continue
		}
		seenExternal[extVal] = true
		if lastExternal >= 0 {
			if extVal < lastExternal {
				r.warn(fmt.Sprintf("non-monotonic external_id %d after %d at paragraph %d", extVal, lastExternal, n))
			} else if extVal > lastExternal+1 {
				r.warn(fmt.Sprintf("gap in external_id sequence: %d to %d at paragraph %d", lastExternal, extVal, n))
			}
		}
		lastExternal = extVal

		norm := normalize.Apply(m[2])
		ext := extVal
		units = append(units, &models.Unit{
			Kind:       models.KindLine,
			N:          n,
			ExternalID: &ext,
			TextRaw:    norm.TextRaw,
			TextNorm:   norm.TextNorm,
			Metadata:   metadataForNorm(norm),
		})
	}
	return units
}

func structureUnit(n int, raw string) *models.Unit {
	norm := normalize.Apply(raw)
	return &models.Unit{
		Kind:     models.KindStructure,
		N:        n,
		TextRaw:  norm.TextRaw,
		TextNorm: norm.TextNorm,
	}
}

func metadataForNorm(r normalize.Result) map[string]interface{} {
	if r.SeparatorCount == 0 {
		return nil
	}
	return map[string]interface{}{"separator_count": r.SeparatorCount}
}
