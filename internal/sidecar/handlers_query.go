package sidecar

import (
	"errors"
	"net/http"

	"github.com/hyperjump/agrafes/internal/apierr"
	"github.com/hyperjump/agrafes/internal/ftsindex"
	"github.com/hyperjump/agrafes/internal/models"
)

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req models.QueryRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, err)
		return
	}
	if err := req.Validate(); err != nil {
		s.respondError(w, apierr.NewValidation("%v", err))
		return
	}

	resp, err := s.query.Run(r.Context(), &req)
	if err != nil {
		if errors.Is(err, ftsindex.ErrInvalidQuery) {
			s.respondError(w, apierr.NewValidation("%v", err))
			return
		}
		s.respondError(w, apierr.NewInternal("run query", err))
		return
	}
	s.respondOK(w, map[string]interface{}{
		"hits":         resp.Hits,
		"next_offset":  resp.NextOffset,
		"has_more":     resp.HasMore,
		"total":        resp.Total,
		"fts_stale":    resp.FTSStale,
		"query_time_ms": resp.QueryTimeMS,
	})
}
