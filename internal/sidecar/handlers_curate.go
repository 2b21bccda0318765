package sidecar

import (
	"net/http"

	"github.com/hyperjump/agrafes/internal/apierr"
	"github.com/hyperjump/agrafes/internal/curate"
)

type curateRequest struct {
	DocID         string        `json:"doc_id,omitempty"`
	Rules         []curate.Rule `json:"rules"`
	LimitExamples int           `json:"limit_examples,omitempty"`
}

func (s *Server) handleCuratePreview(w http.ResponseWriter, r *http.Request) {
	var req curateRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, err)
		return
	}
	limit := req.LimitExamples
	if limit <= 0 {
		limit = 10
	}
	result, err := s.curate.Preview(r.Context(), req.DocID, req.Rules, limit)
	if err != nil {
		s.respondError(w, apierr.NewValidation("%v", err))
		return
	}
	s.respondOK(w, map[string]interface{}{
		"units_total":        result.UnitsTotal,
		"units_changed":      result.UnitsChanged,
		"replacements_total": result.ReplacementsTotal,
		"examples":           result.Examples,
	})
}

func (s *Server) handleCurateApply(w http.ResponseWriter, r *http.Request) {
	var req curateRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, err)
		return
	}
	result, err := s.curate.Apply(r.Context(), req.DocID, req.Rules)
	if err != nil {
		s.respondError(w, apierr.NewValidation("%v", err))
		return
	}
	s.respondOK(w, map[string]interface{}{
		"units_changed":      result.UnitsChanged,
		"replacements_total": result.ReplacementsTotal,
		"index_stale":        result.IndexStale,
	})
}
