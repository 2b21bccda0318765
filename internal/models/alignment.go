package models

import "time"

// LinkStatus is the review state of an alignment link.
type LinkStatus string

const (
	StatusUnreviewed LinkStatus = ""
	StatusAccepted   LinkStatus = "accepted"
	StatusRejected   LinkStatus = "rejected"
)

// AlignmentLink is a one-to-one correspondence between a pivot unit and a target unit.
type AlignmentLink struct {
	ID         int64      `json:"id" db:"id"`
	RunID      string     `json:"run_id" db:"run_id"`
	PivotUnit  int64      `json:"pivot_unit_id" db:"pivot_unit_id"`
	TargetUnit int64      `json:"target_unit_id" db:"target_unit_id"`
	PivotDoc   string     `json:"pivot_doc_id" db:"pivot_doc_id"`
	TargetDoc  string     `json:"target_doc_id" db:"target_doc_id"`
	ExternalID *int64     `json:"external_id,omitempty" db:"external_id"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
	Status     LinkStatus `json:"status" db:"status"`
}

// DocRelation is a typed document-level edge, e.g. translation_of or excerpt_of.
type DocRelation struct {
	ID           int64  `json:"id" db:"id"`
	DocID        string `json:"doc_id" db:"doc_id"`
	RelationType string `json:"relation_type" db:"relation_type"`
	TargetDocID  string `json:"target_doc_id" db:"target_doc_id"`
	Note         string `json:"note,omitempty" db:"note"`
}

const (
	RelationTranslationOf = "translation_of"
	RelationExcerptOf     = "excerpt_of"
)
