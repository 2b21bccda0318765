// Package ingest implements the corpus ingestion pipeline: numbered-line
// text, DOCX paragraphs, lightly-structured TEI-like XML, and the
// encoding-detection fallback chain that feeds all three. The numbered-line
// parser reads decoded plain text only; a DOCX file is read by the
// paragraph parser, which does not parse "[n]" prefixes.
package ingest

// Report summarizes one ingestion invocation, returned alongside the
// created document so callers (the job runtime, the CLI) can surface
// diagnostics without re-querying the store.
type Report struct {
	DocID       string   `json:"doc_id"`
	LineUnits   int      `json:"line_units"`
	TotalUnits  int      `json:"total_units"`
	Warnings    []string `json:"warnings,omitempty"`
	Encoding    string   `json:"encoding"`
	Format      string   `json:"format"`
}

func (r *Report) warn(msg string) {
	r.Warnings = append(r.Warnings, msg)
}
