package sidecar

import (
	"github.com/go-chi/chi/v5"
)

// contractRoutes is the frozen external contract (§4.J): the set of
// documented path+method pairs. contract_test.go compares this list
// against a committed snapshot — endpoints may be added, never removed.
var contractRoutes = []string{
	"GET /health",
	"GET /openapi.json",
	"GET /documents",
	"GET /doc_relations",
	"POST /query",
	"POST /import",
	"POST /index",
	"POST /curate",
	"POST /curate/preview",
	"POST /segment",
	"POST /align",
	"POST /align/audit",
	"POST /align/quality",
	"POST /align/link/update_status",
	"POST /align/link/delete",
	"POST /align/link/retarget",
	"POST /documents/update",
	"POST /documents/bulk_update",
	"POST /doc_relations/set",
	"POST /doc_relations/delete",
	"POST /validate-meta",
	"POST /export/tei",
	"POST /export/align_csv",
	"POST /export/run_report",
	"GET /jobs",
	"GET /jobs/{id}",
	"POST /jobs/enqueue",
	"POST /jobs/{id}/cancel",
	"POST /shutdown",
}

func (s *Server) mountRoutes(r chi.Router) {
	r.Get("/health", s.handleHealth)
	r.Get("/openapi.json", s.handleOpenAPI)
	r.Get("/documents", s.handleListDocuments)
	r.Get("/doc_relations", s.handleListDocRelations)

	r.Post("/query", s.handleQuery)

	r.Post("/import", s.requireToken(s.handleImport))
	r.Post("/index", s.requireToken(s.handleRebuildIndex))
	r.Post("/curate", s.requireToken(s.handleCurateApply))
	r.Post("/curate/preview", s.handleCuratePreview)
	r.Post("/segment", s.requireToken(s.handleSegment))

	r.Post("/align", s.requireToken(s.handleAlignRun))
	r.Post("/align/audit", s.handleAlignAudit)
	r.Post("/align/quality", s.handleAlignQuality)
	r.Post("/align/link/update_status", s.requireToken(s.handleAlignLinkUpdateStatus))
	r.Post("/align/link/delete", s.requireToken(s.handleAlignLinkDelete))
	r.Post("/align/link/retarget", s.requireToken(s.handleAlignLinkRetarget))

	r.Post("/documents/update", s.requireToken(s.handleUpdateDocument))
	r.Post("/documents/bulk_update", s.requireToken(s.handleBulkUpdateDocuments))
	r.Post("/doc_relations/set", s.requireToken(s.handleSetDocRelation))
	r.Post("/doc_relations/delete", s.requireToken(s.handleDeleteDocRelation))
	r.Post("/validate-meta", s.requireToken(s.handleValidateMeta))

	r.Post("/export/tei", s.requireToken(s.handleExportTEI))
	r.Post("/export/align_csv", s.requireToken(s.handleExportAlignCSV))
	r.Post("/export/run_report", s.requireToken(s.handleExportRunReport))

	r.Get("/jobs", s.handleListJobs)
	r.Get("/jobs/{id}", s.handleGetJob)
	r.Post("/jobs/enqueue", s.requireToken(s.handleEnqueueJob))
	r.Post("/jobs/{id}/cancel", s.requireToken(s.handleCancelJob))

	r.Post("/shutdown", s.requireToken(s.handleShutdown))
}
