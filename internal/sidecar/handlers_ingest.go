package sidecar

import (
	"context"
	"encoding/base64"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/agrafes/internal/apierr"
	"github.com/hyperjump/agrafes/internal/ftsindex"
	"github.com/hyperjump/agrafes/internal/models"
)

type importRequest struct {
	Format        string                 `json:"format"`
	Title         string                 `json:"title,omitempty"`
	Language      string                 `json:"language,omitempty"`
	Role          string                 `json:"role,omitempty"`
	ResourceType  string                 `json:"resource_type,omitempty"`
	Metadata      map[string]interface{} `json:"metadata,omitempty"`
	SourcePath    string                 `json:"source_path,omitempty"`
	ContentBase64 string                 `json:"content_base64"`
}

func decodeBase64(s string) ([]byte, error) {
	content, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, apierr.NewValidation("content_base64 is not valid base64: %v", err)
	}
	return content, nil
}

func toDocumentInput(req importRequest, content []byte) models.DocumentInput {
	return models.DocumentInput{
		Title:        req.Title,
		Language:     req.Language,
		Role:         models.DocumentRole(req.Role),
		ResourceType: req.ResourceType,
		Metadata:     req.Metadata,
		SourcePath:   req.SourcePath,
		Format:       req.Format,
		Content:      content,
	}
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	var req importRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, err)
		return
	}
	content, err := decodeBase64(req.ContentBase64)
	if err != nil {
		s.respondError(w, err)
		return
	}

	doc, report, err := s.importer.Import(r.Context(), toDocumentInput(req, content))
	if err != nil {
		s.respondError(w, apierr.NewValidation("%v", err))
		return
	}
	s.respondOK(w, map[string]interface{}{
		"document": doc,
		"report":   report,
		"warnings": report.Warnings,
	})
}

type segmentRequest struct {
	DocID         string `json:"doc_id"`
	Format        string `json:"format"`
	ContentBase64 string `json:"content_base64"`
}

func (s *Server) handleSegment(w http.ResponseWriter, r *http.Request) {
	var req segmentRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, err)
		return
	}
	if req.DocID == "" {
		s.respondError(w, apierr.NewValidation("doc_id is required"))
		return
	}
	content, err := decodeBase64(req.ContentBase64)
	if err != nil {
		s.respondError(w, err)
		return
	}

	report, err := s.importer.Resegment(r.Context(), req.DocID, req.Format, content)
	if err != nil {
		s.respondError(w, apierr.NewValidation("%v", err))
		return
	}
	s.respondOK(w, map[string]interface{}{"report": report, "warnings": report.Warnings})
}

func (s *Server) handleRebuildIndex(w http.ResponseWriter, r *http.Request) {
	unitsIndexed, err := s.rebuildIndex(r.Context())
	if err != nil {
		s.respondError(w, apierr.NewInternal("rebuild index", err))
		return
	}
	s.respondOK(w, map[string]interface{}{"units_indexed": unitsIndexed})
}

// rebuildIndex recomputes the Bleve index from every line unit in the
// store, clears the stale flag, and records an index run. Shared by the
// synchronous POST /index handler and the async index job (§4.H).
func (s *Server) rebuildIndex(ctx context.Context) (int, error) {
	units, err := s.store.ListLineUnits(ctx)
	if err != nil {
		return 0, err
	}

	docs, err := s.store.ListDocuments(ctx, 0, 1<<30)
	if err != nil {
		return 0, err
	}
	docMeta := make(map[string]ftsindex.DocMeta, len(docs))
	for _, d := range docs {
		docMeta[d.ID] = ftsindex.DocMeta{
			Language:     d.Language,
			Role:         string(d.Role),
			ResourceType: d.ResourceType,
		}
	}

	if err := s.index.Rebuild(ctx, units, docMeta); err != nil {
		return 0, err
	}
	if err := s.store.SetIndexStale(ctx, false); err != nil {
		return 0, err
	}

	run := &models.Run{
		ID:     uuid.New().String(),
		Kind:   models.RunIndex,
		Params: map[string]interface{}{"doc_count": len(docs)},
		Stats:  map[string]interface{}{"units_indexed": len(units)},
	}
	if err := s.runs.Record(ctx, run); err != nil {
		s.logger.Warn("failed to record index run", zap.Error(err))
	}

	return len(units), nil
}
