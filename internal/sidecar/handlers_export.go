package sidecar

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/agrafes/internal/align"
	"github.com/hyperjump/agrafes/internal/apierr"
	"github.com/hyperjump/agrafes/internal/export"
	"github.com/hyperjump/agrafes/internal/jobs"
	"github.com/hyperjump/agrafes/internal/models"
)

// recordExportRun persists an export run; failures are logged, not
// propagated, since the export file itself already landed (§4.H).
func (s *Server) recordExportRun(ctx context.Context, params, stats map[string]interface{}) {
	run := &models.Run{
		ID:     uuid.New().String(),
		Kind:   models.RunExport,
		Params: params,
		Stats:  stats,
	}
	if err := s.runs.Record(ctx, run); err != nil {
		s.logger.Warn("failed to record export run", zap.Error(err))
	}
}

// validateLocalPath rejects anything that looks like a URL or network
// share rather than a local filesystem path (§4.K: "the sidecar enforces
// that the path is local").
func validateLocalPath(path string) error {
	if path == "" {
		return apierr.NewValidation("path is required")
	}
	if strings.Contains(path, "://") {
		return apierr.NewValidation("path must be local, not a URL: %q", path)
	}
	if strings.HasPrefix(path, `\\`) {
		return apierr.NewValidation("path must be local, not a network share: %q", path)
	}
	return nil
}

type exportTEIRequest struct {
	DocID            string `json:"doc_id"`
	Path             string `json:"path"`
	IncludeStructure bool   `json:"include_structure,omitempty"`
}

func (s *Server) handleExportTEI(w http.ResponseWriter, r *http.Request) {
	var req exportTEIRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, err)
		return
	}
	if err := validateLocalPath(req.Path); err != nil {
		s.respondError(w, err)
		return
	}
	if err := s.exportTEI(r.Context(), req.DocID, req.Path, req.IncludeStructure); err != nil {
		s.respondError(w, apierr.NewValidation("%v", err))
		return
	}
	s.respondOK(w, map[string]interface{}{"path": req.Path})
}

func (s *Server) exportTEI(ctx context.Context, docID, path string, includeStructure bool) error {
	doc, err := s.store.GetDocument(ctx, docID)
	if err != nil {
		return err
	}
	units, err := s.store.ListUnitsByDoc(ctx, docID)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create export file: %w", err)
	}
	defer f.Close()
	if err := export.WriteTEI(f, doc, units, includeStructure); err != nil {
		return err
	}
	s.recordExportRun(ctx, map[string]interface{}{
		"kind":   "tei",
		"doc_id": docID,
		"path":   path,
	}, map[string]interface{}{
		"units_exported": len(units),
	})
	return nil
}

type exportAlignCSVRequest struct {
	PivotDoc   string `json:"pivot_doc_id,omitempty"`
	TargetDoc  string `json:"target_doc_id,omitempty"`
	ExternalID *int64 `json:"external_id,omitempty"`
	Path       string `json:"path"`
	Delimiter  string `json:"delimiter,omitempty"`
}

func (s *Server) handleExportAlignCSV(w http.ResponseWriter, r *http.Request) {
	var req exportAlignCSVRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, err)
		return
	}
	if err := validateLocalPath(req.Path); err != nil {
		s.respondError(w, err)
		return
	}
	if err := s.exportAlignCSV(r.Context(), req); err != nil {
		s.respondError(w, apierr.NewValidation("%v", err))
		return
	}
	s.respondOK(w, map[string]interface{}{"path": req.Path})
}

func (s *Server) exportAlignCSV(ctx context.Context, req exportAlignCSVRequest) error {
	page, err := s.align.ListLinks(ctx, align.AuditFilter{
		PivotDoc:   req.PivotDoc,
		TargetDoc:  req.TargetDoc,
		ExternalID: req.ExternalID,
		Limit:      1 << 30,
	})
	if err != nil {
		return err
	}
	delim := ','
	if req.Delimiter != "" {
		delim = rune(req.Delimiter[0])
	}
	f, err := os.Create(req.Path)
	if err != nil {
		return fmt.Errorf("create export file: %w", err)
	}
	defer f.Close()
	if err := export.WriteAlignCSV(f, export.RowsFromEntries(page.Entries), delim); err != nil {
		return err
	}
	s.recordExportRun(ctx, map[string]interface{}{
		"kind":          "align_csv",
		"pivot_doc_id":  req.PivotDoc,
		"target_doc_id": req.TargetDoc,
		"path":          req.Path,
	}, map[string]interface{}{
		"rows_exported": len(page.Entries),
	})
	return nil
}

type exportRunReportRequest struct {
	RunID string `json:"run_id,omitempty"`
	Path  string `json:"path"`
	HTML  bool   `json:"html,omitempty"`
}

func (s *Server) handleExportRunReport(w http.ResponseWriter, r *http.Request) {
	var req exportRunReportRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, err)
		return
	}
	if err := validateLocalPath(req.Path); err != nil {
		s.respondError(w, err)
		return
	}
	if err := s.exportRunReport(r.Context(), req); err != nil {
		s.respondError(w, apierr.NewValidation("%v", err))
		return
	}
	s.respondOK(w, map[string]interface{}{"path": req.Path})
}

func (s *Server) exportRunReport(ctx context.Context, req exportRunReportRequest) error {
	runs, err := s.runsForReport(ctx, req.RunID)
	if err != nil {
		return err
	}
	f, err := os.Create(req.Path)
	if err != nil {
		return fmt.Errorf("create export file: %w", err)
	}
	defer f.Close()
	if req.HTML {
		if err := export.WriteRunReportHTML(f, runs); err != nil {
			return err
		}
	} else if err := export.WriteRunReportJSONL(f, runs); err != nil {
		return err
	}

	s.recordExportRun(ctx, map[string]interface{}{
		"kind":   "run_report",
		"run_id": req.RunID,
		"path":   req.Path,
		"html":   req.HTML,
	}, map[string]interface{}{
		"runs_exported": len(runs),
	})
	return nil
}

func (s *Server) runsForReport(ctx context.Context, runID string) ([]*models.Run, error) {
	if runID != "" {
		run, err := s.runs.Get(ctx, runID)
		if err != nil {
			return nil, err
		}
		return []*models.Run{run}, nil
	}
	return s.runs.List(ctx, "", 0, 1<<20)
}

// exportJobFunc builds the JobFunc for the three async export kinds.
func (s *Server) exportJobFunc(kind models.JobKind, params map[string]interface{}) (jobs.JobFunc, error) {
	switch kind {
	case models.JobExportTEI:
		var req exportTEIRequest
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		if err := validateLocalPath(req.Path); err != nil {
			return nil, err
		}
		return func(ctx context.Context, p *jobs.Progress) (map[string]interface{}, error) {
			if err := s.exportTEI(ctx, req.DocID, req.Path, req.IncludeStructure); err != nil {
				return nil, err
			}
			p.Report(100, "done")
			return map[string]interface{}{"path": req.Path}, nil
		}, nil

	case models.JobExportAlignCSV:
		var req exportAlignCSVRequest
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		if err := validateLocalPath(req.Path); err != nil {
			return nil, err
		}
		return func(ctx context.Context, p *jobs.Progress) (map[string]interface{}, error) {
			if err := s.exportAlignCSV(ctx, req); err != nil {
				return nil, err
			}
			p.Report(100, "done")
			return map[string]interface{}{"path": req.Path}, nil
		}, nil

	case models.JobExportRunReport:
		var req exportRunReportRequest
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		if err := validateLocalPath(req.Path); err != nil {
			return nil, err
		}
		return func(ctx context.Context, p *jobs.Progress) (map[string]interface{}, error) {
			if err := s.exportRunReport(ctx, req); err != nil {
				return nil, err
			}
			p.Report(100, "done")
			return map[string]interface{}{"path": req.Path}, nil
		}, nil

	default:
		return nil, fmt.Errorf("unsupported export job kind: %q", kind)
	}
}
