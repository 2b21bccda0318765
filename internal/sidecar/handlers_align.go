package sidecar

import (
	"net/http"

	"github.com/hyperjump/agrafes/internal/align"
	"github.com/hyperjump/agrafes/internal/apierr"
	"github.com/hyperjump/agrafes/internal/models"
)

type alignRunRequest struct {
	PivotDoc     string        `json:"pivot_doc_id"`
	TargetDoc    string        `json:"target_doc_id"`
	Strategy     align.Strategy `json:"strategy,omitempty"`
	SimThreshold float64       `json:"sim_threshold,omitempty"`
	DebugAlign   bool          `json:"debug_align,omitempty"`
}

func (s *Server) handleAlignRun(w http.ResponseWriter, r *http.Request) {
	var req alignRunRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, err)
		return
	}
	areq := &align.Request{
		PivotDoc:     req.PivotDoc,
		TargetDoc:    req.TargetDoc,
		Strategy:     req.Strategy,
		SimThreshold: req.SimThreshold,
		DebugAlign:   req.DebugAlign,
	}
	report, runID, err := s.align.Run(r.Context(), areq)
	if err != nil {
		s.respondError(w, apierr.NewValidation("%v", err))
		return
	}
	s.respondOK(w, map[string]interface{}{"run_id": runID, "report": report})
}

type alignAuditRequest struct {
	PivotDoc   string            `json:"pivot_doc_id"`
	TargetDoc  string            `json:"target_doc_id"`
	ExternalID *int64            `json:"external_id,omitempty"`
	Status     *models.LinkStatus `json:"status,omitempty"`
	Limit      int               `json:"limit,omitempty"`
	Offset     int               `json:"offset,omitempty"`
}

func (s *Server) handleAlignAudit(w http.ResponseWriter, r *http.Request) {
	var req alignAuditRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, err)
		return
	}
	if req.Limit <= 0 {
		req.Limit = 50
	}
	page, err := s.align.ListLinks(r.Context(), align.AuditFilter{
		PivotDoc:   req.PivotDoc,
		TargetDoc:  req.TargetDoc,
		ExternalID: req.ExternalID,
		Status:     req.Status,
		Limit:      req.Limit,
		Offset:     req.Offset,
	})
	if err != nil {
		s.respondError(w, apierr.NewValidation("%v", err))
		return
	}
	s.respondOK(w, map[string]interface{}{
		"entries":     page.Entries,
		"has_more":    page.HasMore,
		"next_offset": page.NextOffset,
	})
}

type alignQualityRequest struct {
	PivotDoc  string `json:"pivot_doc_id"`
	TargetDoc string `json:"target_doc_id"`
	RunID     string `json:"run_id,omitempty"`
}

func (s *Server) handleAlignQuality(w http.ResponseWriter, r *http.Request) {
	var req alignQualityRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, err)
		return
	}
	report, err := s.align.Quality(r.Context(), req.PivotDoc, req.TargetDoc, req.RunID)
	if err != nil {
		s.respondError(w, apierr.NewValidation("%v", err))
		return
	}
	s.respondOK(w, map[string]interface{}{"quality": report})
}

type alignLinkStatusRequest struct {
	LinkID int64             `json:"link_id"`
	Status models.LinkStatus `json:"status"`
}

func (s *Server) handleAlignLinkUpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req alignLinkStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, err)
		return
	}
	switch req.Status {
	case models.StatusUnreviewed, models.StatusAccepted, models.StatusRejected:
	default:
		s.respondError(w, apierr.NewValidation("unknown status: %q", req.Status))
		return
	}
	if err := s.align.SetLinkStatus(r.Context(), req.LinkID, req.Status); err != nil {
		s.respondError(w, apierr.NewNotFound("%v", err))
		return
	}
	s.respondOK(w, nil)
}

type alignLinkIDRequest struct {
	LinkID int64 `json:"link_id"`
}

func (s *Server) handleAlignLinkDelete(w http.ResponseWriter, r *http.Request) {
	var req alignLinkIDRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, err)
		return
	}
	if err := s.align.DeleteLink(r.Context(), req.LinkID); err != nil {
		s.respondError(w, apierr.NewNotFound("%v", err))
		return
	}
	s.respondOK(w, nil)
}

type alignLinkRetargetRequest struct {
	LinkID        int64 `json:"link_id"`
	NewTargetUnit int64 `json:"new_target_unit_id"`
}

func (s *Server) handleAlignLinkRetarget(w http.ResponseWriter, r *http.Request) {
	var req alignLinkRetargetRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, err)
		return
	}
	if err := s.align.RetargetLink(r.Context(), req.LinkID, req.NewTargetUnit); err != nil {
		s.respondError(w, apierr.NewValidation("%v", err))
		return
	}
	s.respondOK(w, nil)
}
