// Package ftsindex implements the full-text inverted index over the
// normalized text of line-units (§4.D): a Bleve index whose document id is
// the decimal string form of the unit's primary key, the join contract
// between search hits and units that the storage layer promises.
package ftsindex

import (
	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
)

// unitDoc is the shape indexed per line-unit. DocID/Language/Role/etc. are
// denormalized onto the index document so filters (§4.E) do not require a
// store round-trip per candidate hit.
type unitDoc struct {
	TextNorm     string `json:"text_norm"`
	DocID        string `json:"doc_id"`
	Language     string `json:"language"`
	DocRole      string `json:"doc_role"`
	ResourceType string `json:"resource_type"`
}

func buildMapping() *bleve.IndexMapping {
	im := bleve.NewIndexMapping()

	textField := bleve.NewTextFieldMapping()
	// Standard analyzer: unicode tokenize + lowercase + English stop-word
	// removal, no stemming, so the index stays diacritic-sensitive and
	// predictable across languages instead of guessing a language-specific
	// stemmer per corpus (§4.D). The stop-word list is English-only, so
	// common English function words are unmatchable regardless of the
	// unit's own language.
	textField.Analyzer = standard.Name

	keywordField := bleve.NewKeywordFieldMapping()

	docMapping := bleve.NewDocumentMapping()
	docMapping.AddFieldMappingsAt("text_norm", textField)
	docMapping.AddFieldMappingsAt("doc_id", keywordField)
	docMapping.AddFieldMappingsAt("language", keywordField)
	docMapping.AddFieldMappingsAt("doc_role", keywordField)
	docMapping.AddFieldMappingsAt("resource_type", keywordField)

	im.AddDocumentMapping("unit", docMapping)
	im.DefaultType = "unit"
	im.DefaultMapping = docMapping

	return im
}
