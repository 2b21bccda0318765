package sidecar

import (
	"net/http"

	"github.com/hyperjump/agrafes/internal/apierr"
	"github.com/hyperjump/agrafes/internal/models"
)

type documentUpdateRequest struct {
	DocID    string                 `json:"doc_id"`
	Metadata map[string]interface{} `json:"metadata"`
}

func (s *Server) handleUpdateDocument(w http.ResponseWriter, r *http.Request) {
	var req documentUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, err)
		return
	}
	if req.DocID == "" {
		s.respondError(w, apierr.NewValidation("doc_id is required"))
		return
	}
	if err := s.store.UpdateDocumentMetadata(r.Context(), req.DocID, req.Metadata); err != nil {
		s.respondError(w, apierr.NewNotFound("%v", err))
		return
	}
	s.respondOK(w, nil)
}

type bulkUpdateRequest struct {
	Updates []models.DocumentUpdate `json:"updates"`
}

func (s *Server) handleBulkUpdateDocuments(w http.ResponseWriter, r *http.Request) {
	var req bulkUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, err)
		return
	}
	var warnings []string
	updated := 0
	for _, u := range req.Updates {
		if err := s.store.UpdateDocumentMetadata(r.Context(), u.DocID, u.Metadata); err != nil {
			warnings = append(warnings, err.Error())
			continue
		}
		updated++
	}
	s.respondOK(w, map[string]interface{}{"updated": updated, "warnings": warnings})
}

type docRelationSetRequest struct {
	DocID        string `json:"doc_id"`
	RelationType string `json:"relation_type"`
	TargetDocID  string `json:"target_doc_id"`
	Note         string `json:"note,omitempty"`
}

func (s *Server) handleSetDocRelation(w http.ResponseWriter, r *http.Request) {
	var req docRelationSetRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, err)
		return
	}
	if req.DocID == "" || req.RelationType == "" || req.TargetDocID == "" {
		s.respondError(w, apierr.NewValidation("doc_id, relation_type, and target_doc_id are required"))
		return
	}
	rel := &models.DocRelation{
		DocID:        req.DocID,
		RelationType: req.RelationType,
		TargetDocID:  req.TargetDocID,
		Note:         req.Note,
	}
	if err := s.store.CreateDocRelation(r.Context(), rel); err != nil {
		s.respondError(w, apierr.NewInternal("create doc relation", err))
		return
	}
	s.respondOK(w, map[string]interface{}{"relation": rel})
}

type docRelationDeleteRequest struct {
	ID int64 `json:"id"`
}

func (s *Server) handleDeleteDocRelation(w http.ResponseWriter, r *http.Request) {
	var req docRelationDeleteRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, err)
		return
	}
	if err := s.store.DeleteDocRelation(r.Context(), req.ID); err != nil {
		s.respondError(w, apierr.NewInternal("delete doc relation", err))
		return
	}
	s.respondOK(w, nil)
}

type validateMetaRequest struct {
	DocID string `json:"doc_id,omitempty"`
}

type metaProblem struct {
	DocID    string   `json:"doc_id"`
	Valid    bool     `json:"valid"`
	Problems []string `json:"problems,omitempty"`
}

// validateDocMeta checks the ambient metadata invariants every document is
// expected to satisfy: a non-empty title and language, and a role drawn
// from the known enumeration.
func validateDocMeta(doc *models.Document) metaProblem {
	p := metaProblem{DocID: doc.ID, Valid: true}
	if doc.Title == "" {
		p.Valid = false
		p.Problems = append(p.Problems, "title is empty")
	}
	if doc.Language == "" {
		p.Valid = false
		p.Problems = append(p.Problems, "language is empty")
	}
	switch doc.Role {
	case models.RoleStandalone, models.RoleOriginal, models.RoleTranslation, models.RoleExcerpt, models.RoleUnknown:
	default:
		p.Valid = false
		p.Problems = append(p.Problems, "role is not a recognized document role")
	}
	return p
}

func (s *Server) handleValidateMeta(w http.ResponseWriter, r *http.Request) {
	var req validateMetaRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, err)
		return
	}

	var docs []*models.Document
	if req.DocID != "" {
		doc, err := s.store.GetDocument(r.Context(), req.DocID)
		if err != nil {
			s.respondError(w, apierr.NewNotFound("%v", err))
			return
		}
		docs = []*models.Document{doc}
	} else {
		var err error
		docs, err = s.store.ListDocuments(r.Context(), 0, 1<<30)
		if err != nil {
			s.respondError(w, apierr.NewInternal("list documents", err))
			return
		}
	}

	results := make([]metaProblem, 0, len(docs))
	for _, d := range docs {
		results = append(results, validateDocMeta(d))
	}
	s.respondOK(w, map[string]interface{}{"results": results})
}
