package export

import (
	"encoding/json"
	"fmt"
	"html/template"
	"io"

	"github.com/hyperjump/agrafes/internal/models"
)

// WriteRunReportJSONL writes one JSON object per line, one per run.
func WriteRunReportJSONL(w io.Writer, runs []*models.Run) error {
	enc := json.NewEncoder(w)
	for _, r := range runs {
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("encode run report line: %w", err)
		}
	}
	return nil
}

// runReportTemplate renders runs as an HTML table. html/template escapes
// every interpolated field, so Params/Stats values sourced from request
// bodies can never break out of the markup (XSS-safe per §4.K).
var runReportTemplate = template.Must(template.New("run_report").Parse(`<!DOCTYPE html>
<html><head><meta charset="utf-8"><title>Run report</title></head>
<body>
<table border="1">
<tr><th>ID</th><th>Kind</th><th>Created At</th><th>Params</th><th>Stats</th></tr>
{{range .}}
<tr>
<td>{{.ID}}</td>
<td>{{.Kind}}</td>
<td>{{.CreatedAt}}</td>
<td><pre>{{.Params}}</pre></td>
<td><pre>{{.Stats}}</pre></td>
</tr>
{{end}}
</table>
</body></html>
`))

// WriteRunReportHTML renders runs as an XSS-safe HTML table.
func WriteRunReportHTML(w io.Writer, runs []*models.Run) error {
	return runReportTemplate.Execute(w, runs)
}
