// Package models defines the core data structures for documents, units,
// alignment links, document relations, runs, and jobs.
package models

import "time"

// DocumentRole describes a document's relationship to its corpus siblings.
type DocumentRole string

const (
	RoleStandalone  DocumentRole = "standalone"
	RoleOriginal    DocumentRole = "original"
	RoleTranslation DocumentRole = "translation"
	RoleExcerpt     DocumentRole = "excerpt"
	RoleUnknown     DocumentRole = "unknown"
)

// Document represents one imported source file.
type Document struct {
	ID           string                 `json:"id" db:"id"`
	Title        string                 `json:"title" db:"title"`
	Language     string                 `json:"language" db:"language"`
	Role         DocumentRole           `json:"role" db:"role"`
	ResourceType string                 `json:"resource_type" db:"resource_type"`
	Metadata     map[string]interface{} `json:"metadata" db:"metadata"`
	SourcePath   string                 `json:"source_path" db:"source_path"`
	ContentHash  string                 `json:"content_hash" db:"content_hash"`
	CreatedAt    time.Time              `json:"created_at" db:"created_at"`
}

// UnitKind distinguishes searchable/alignable line units from scaffolding structure units.
type UnitKind string

const (
	KindLine      UnitKind = "line"
	KindStructure UnitKind = "structure"
)

// Unit is the atomic addressable span of text within a document.
type Unit struct {
	ID         int64                  `json:"id" db:"id"`
	DocID      string                 `json:"doc_id" db:"doc_id"`
	Kind       UnitKind               `json:"kind" db:"kind"`
	N          int                    `json:"n" db:"n"`
	ExternalID *int64                 `json:"external_id,omitempty" db:"external_id"`
	TextRaw    string                 `json:"text_raw" db:"text_raw"`
	TextNorm   string                 `json:"text_norm" db:"text_norm"`
	Metadata   map[string]interface{} `json:"metadata,omitempty" db:"metadata"`
}

// DocumentInput is the input for importing or creating a document.
type DocumentInput struct {
	Title        string                 `json:"title,omitempty"`
	Language     string                 `json:"language,omitempty"`
	Role         DocumentRole           `json:"role,omitempty"`
	ResourceType string                 `json:"resource_type,omitempty"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
	SourcePath   string                 `json:"source_path,omitempty"`
	Format       string                 `json:"format"`
	Content      []byte                 `json:"-"`
}

// DocumentUpdate carries a metadata patch for one document.
type DocumentUpdate struct {
	DocID    string                 `json:"doc_id"`
	Metadata map[string]interface{} `json:"metadata"`
}
