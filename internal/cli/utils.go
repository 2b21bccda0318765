// Package cli formats query results for the agrafes command-line client.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/hyperjump/agrafes/internal/models"
)

// OutputFormat selects how WriteHits renders a query response.
type OutputFormat string

const (
	// OutputText is human-readable, one hit per block (default).
	OutputText OutputFormat = "text"
	// OutputCompact is one hit per line.
	OutputCompact OutputFormat = "compact"
	// OutputJSON is the raw response, pretty-printed.
	OutputJSON OutputFormat = "json"
)

// WriteHits writes a query response to w in the given format.
func WriteHits(w io.Writer, resp *models.QueryResponse, format OutputFormat) error {
	switch format {
	case OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	case OutputCompact:
		writeHitsCompact(w, resp)
		return nil
	default:
		writeHitsText(w, resp)
		return nil
	}
}

func writeHitsText(w io.Writer, resp *models.QueryResponse) {
	fmt.Fprintf(w, "\nFound %d hits in %dms", len(resp.Hits), resp.QueryTimeMS)
	if resp.FTSStale {
		fmt.Fprint(w, " (index is stale, rebuild with `agrafes index`)")
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w)
	for _, hit := range resp.Hits {
		writeOneHit(w, hit)
	}
	if resp.HasMore {
		fmt.Fprintf(w, "more results available, next_offset=%d\n", resp.NextOffset)
	}
}

func writeOneHit(w io.Writer, hit models.Hit) {
	fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
	fmt.Fprintf(w, "[%s] unit %d", hit.DocID, hit.UnitID)
	if hit.ExternalID != nil {
		fmt.Fprintf(w, " (#%d)", *hit.ExternalID)
	}
	fmt.Fprintf(w, " — %s", hit.Language)
	if hit.Title != "" {
		fmt.Fprintf(w, " — %s", hit.Title)
	}
	fmt.Fprintln(w)
	if hit.Text != "" {
		fmt.Fprintf(w, "\n%s\n", Truncate(hit.Text, 300))
	} else {
		fmt.Fprintf(w, "\n%s<<%s>>%s\n", hit.Left, hit.Match, hit.Right)
	}
	for _, a := range hit.Aligned {
		fmt.Fprintf(w, "  aligned [%s/%s]: %s\n", a.DocID, a.Language, Truncate(a.Text, 160))
	}
	fmt.Fprintln(w)
}

// writeHitsCompact writes one hit per line (doc id, unit id, snippet).
func writeHitsCompact(w io.Writer, resp *models.QueryResponse) {
	fmt.Fprintf(w, "%d hits in %dms\n", len(resp.Hits), resp.QueryTimeMS)
	for _, hit := range resp.Hits {
		writeOneHitCompact(w, hit)
	}
}

func writeOneHitCompact(w io.Writer, hit models.Hit) {
	snippet := hit.Text
	if snippet == "" {
		snippet = hit.Left + " <<" + hit.Match + ">> " + hit.Right
	}
	fmt.Fprintf(w, "%s#%d | %s\n", hit.DocID, hit.UnitID, Truncate(SanitizeForLine(snippet), 120))
}

// SanitizeForLine replaces newlines and tabs with spaces for single-line output.
func SanitizeForLine(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "\t", " "))
}

// Truncate truncates s to maxLen and appends "..." if truncated.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 || len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
