package sidecar

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/hyperjump/agrafes/internal/apierr"
	"github.com/hyperjump/agrafes/internal/store"
)

// decodeJSON reads and validates the request body as JSON into v. An
// empty body is treated as a validation error for endpoints that require one.
func decodeJSON(r *http.Request, v interface{}) error {
	if r.Body == nil {
		return apierr.NewValidation("request body is required")
	}
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		return apierr.NewValidation("malformed request body: %v", err)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	fields := map[string]interface{}{
		"version":        s.version,
		"api_version":    APIVersion,
		"pid":            os.Getpid(),
		"started_at":     s.startedAt.Format(time.RFC3339),
		"token_required": s.token != "",
	}
	if usage, err := store.ComputeDiskUsage(s.dbPath, s.indexPath, s.runsDir); err == nil {
		fields["disk_usage_bytes"] = usage.TotalBytes
		fields["disk_usage"] = usage
	}
	s.respondOK(w, fields)
}

func (s *Server) handleOpenAPI(w http.ResponseWriter, r *http.Request) {
	s.respondOK(w, map[string]interface{}{
		"routes": contractRoutes,
	})
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	offset, limit := pagingParams(r, 0, 100)
	docs, err := s.store.ListDocuments(ctx, offset, limit)
	if err != nil {
		s.respondError(w, apierr.NewInternal("list documents", err))
		return
	}

	type docOut struct {
		Doc       interface{} `json:"document"`
		UnitCount int         `json:"unit_count"`
	}
	out := make([]docOut, 0, len(docs))
	for _, d := range docs {
		units, err := s.store.ListUnitsByDoc(ctx, d.ID)
		if err != nil {
			s.respondError(w, apierr.NewInternal("count units", err))
			return
		}
		out = append(out, docOut{Doc: d, UnitCount: len(units)})
	}
	s.respondOK(w, map[string]interface{}{"documents": out})
}

func (s *Server) handleListDocRelations(w http.ResponseWriter, r *http.Request) {
	docID := r.URL.Query().Get("doc_id")
	if docID == "" {
		s.respondError(w, apierr.NewValidation("doc_id is required"))
		return
	}
	rels, err := s.store.RelationsForDoc(r.Context(), docID, "")
	if err != nil {
		s.respondError(w, apierr.NewInternal("list doc relations", err))
		return
	}
	s.respondOK(w, map[string]interface{}{"relations": rels})
}

func pagingParams(r *http.Request, defaultOffset, defaultLimit int) (int, int) {
	offset := defaultOffset
	limit := defaultLimit
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			offset = n
		}
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	return offset, limit
}

// handleShutdown acknowledges the request, then shuts the server down
// asynchronously so the response can actually be delivered (§4.J step 5).
func (s *Server) handleShutdown(w http.ResponseWriter, r *http.Request) {
	s.respondOK(w, map[string]interface{}{"status": "accepted"})
	go func() {
		time.Sleep(50 * time.Millisecond)
		_ = s.Shutdown(context.Background())
	}()
}
