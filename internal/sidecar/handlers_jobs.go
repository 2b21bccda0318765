package sidecar

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hyperjump/agrafes/internal/align"
	"github.com/hyperjump/agrafes/internal/apierr"
	"github.com/hyperjump/agrafes/internal/jobs"
	"github.com/hyperjump/agrafes/internal/models"
)

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	offset, limit := pagingParams(r, 0, 100)
	status := models.JobStatus(r.URL.Query().Get("status"))
	s.respondOK(w, map[string]interface{}{"jobs": s.jobs.List(status, offset, limit)})
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	job, err := s.jobs.Get(id)
	if err != nil {
		s.respondError(w, apierr.NewNotFound("%v", err))
		return
	}
	s.respondOK(w, map[string]interface{}{"job": job})
}

type enqueueJobRequest struct {
	Kind   models.JobKind         `json:"kind"`
	Params map[string]interface{} `json:"params,omitempty"`
}

func (s *Server) handleEnqueueJob(w http.ResponseWriter, r *http.Request) {
	var req enqueueJobRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, err)
		return
	}
	fn, err := s.jobFuncFor(req.Kind, req.Params)
	if err != nil {
		s.respondError(w, apierr.NewValidation("%v", err))
		return
	}
	job := s.jobs.Enqueue(req.Kind, req.Params, fn)
	s.respondOK(w, map[string]interface{}{"status": "accepted", "job": job})
}

func (s *Server) handleCancelJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.jobs.Cancel(id); err != nil {
		s.respondError(w, apierr.NewNotFound("%v", err))
		return
	}
	s.respondOK(w, nil)
}

// decodeParams round-trips params through JSON into dst, the bridge
// between the job runtime's untyped parameter map and each kind's
// strongly-typed request shape.
func decodeParams(params map[string]interface{}, dst interface{}) error {
	data, err := json.Marshal(params)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dst)
}

// jobFuncFor builds the JobFunc for one enqueue request, dispatching to the
// engine that implements kind. Each JobFunc reports progress around its one
// engine call. Only the index job checks progress.Canceled, once, before it
// starts rebuilding; the other kinds run their engine call to completion
// once started, and the writes it makes stay committed. The runtime
// discards the result of a job canceled while running (§4.I, §5).
func (s *Server) jobFuncFor(kind models.JobKind, params map[string]interface{}) (jobs.JobFunc, error) {
	switch kind {
	case models.JobImport:
		var req importRequest
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		return func(ctx context.Context, p *jobs.Progress) (map[string]interface{}, error) {
			content, err := decodeBase64(req.ContentBase64)
			if err != nil {
				return nil, err
			}
			p.Report(10, "decoding")
			doc, report, err := s.importer.Import(ctx, toDocumentInput(req, content))
			if err != nil {
				return nil, err
			}
			p.Report(100, "done")
			return map[string]interface{}{"doc_id": doc.ID, "report": report}, nil
		}, nil

	case models.JobIndex:
		return func(ctx context.Context, p *jobs.Progress) (map[string]interface{}, error) {
			if p.Canceled() {
				return nil, fmt.Errorf("canceled")
			}
			p.Report(50, "rebuilding")
			unitsIndexed, err := s.rebuildIndex(ctx)
			if err != nil {
				return nil, err
			}
			p.Report(100, "done")
			return map[string]interface{}{"units_indexed": unitsIndexed}, nil
		}, nil

	case models.JobCurate:
		var req curateRequest
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		return func(ctx context.Context, p *jobs.Progress) (map[string]interface{}, error) {
			result, err := s.curate.Apply(ctx, req.DocID, req.Rules)
			if err != nil {
				return nil, err
			}
			p.Report(100, "done")
			return map[string]interface{}{
				"units_changed":      result.UnitsChanged,
				"replacements_total": result.ReplacementsTotal,
			}, nil
		}, nil

	case models.JobSegment:
		var req segmentRequest
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		return func(ctx context.Context, p *jobs.Progress) (map[string]interface{}, error) {
			content, err := decodeBase64(req.ContentBase64)
			if err != nil {
				return nil, err
			}
			report, err := s.importer.Resegment(ctx, req.DocID, req.Format, content)
			if err != nil {
				return nil, err
			}
			p.Report(100, "done")
			return map[string]interface{}{"report": report}, nil
		}, nil

	case models.JobAlign:
		var req alignRunRequest
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		return func(ctx context.Context, p *jobs.Progress) (map[string]interface{}, error) {
			report, runID, err := s.align.Run(ctx, &align.Request{
				PivotDoc:     req.PivotDoc,
				TargetDoc:    req.TargetDoc,
				Strategy:     req.Strategy,
				SimThreshold: req.SimThreshold,
				DebugAlign:   req.DebugAlign,
			})
			if err != nil {
				return nil, err
			}
			p.Report(100, "done")
			return map[string]interface{}{"run_id": runID, "report": report}, nil
		}, nil

	case models.JobExportTEI, models.JobExportAlignCSV, models.JobExportRunReport:
		return s.exportJobFunc(kind, params)

	case models.JobValidateMeta:
		var req validateMetaRequest
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		return func(ctx context.Context, p *jobs.Progress) (map[string]interface{}, error) {
			results, err := s.validateMetaResults(ctx, req.DocID)
			if err != nil {
				return nil, err
			}
			p.Report(100, "done")
			return map[string]interface{}{"results": results}, nil
		}, nil

	default:
		return nil, fmt.Errorf("unsupported job kind: %q", kind)
	}
}

// validateMetaResults is shared by the synchronous /validate-meta endpoint
// and the validate-meta job kind.
func (s *Server) validateMetaResults(ctx context.Context, docID string) ([]metaProblem, error) {
	var docs []*models.Document
	if docID != "" {
		doc, err := s.store.GetDocument(ctx, docID)
		if err != nil {
			return nil, err
		}
		docs = []*models.Document{doc}
	} else {
		var err error
		docs, err = s.store.ListDocuments(ctx, 0, 1<<30)
		if err != nil {
			return nil, err
		}
	}
	results := make([]metaProblem, 0, len(docs))
	for _, d := range docs {
		results = append(results, validateDocMeta(d))
	}
	return results, nil
}
