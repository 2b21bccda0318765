package ingest

import (
	"bytes"
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/agrafes/internal/models"
	"github.com/hyperjump/agrafes/internal/runlog"
	"github.com/hyperjump/agrafes/internal/store"
)

// Format names accepted by Importer.Import.
const (
	FormatNumberedLine = "numbered-line"
	FormatDocxParagraph = "docx-paragraphs"
	FormatTEIXML        = "tei-xml"
)

// Importer runs the ingestion pipeline against a Store: decode, normalize,
// classify into units, and land document + units in one transaction.
type Importer struct {
	store    *store.Store
	logger   *zap.Logger
	detector CharsetDetector
	xmlOpts  XMLOptions
	runs     *runlog.Log
}

// Option configures an Importer.
type Option func(*Importer)

// WithLogger sets a logger for diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(imp *Importer) { imp.logger = l }
}

// WithCharsetDetector wires an optional general charset detector into the
// encoding fallback chain (§4.C allows the pipeline to run without one).
func WithCharsetDetector(d CharsetDetector) Option {
	return func(imp *Importer) { imp.detector = d }
}

// WithXMLUnitElement selects "p" (default) or "s" as the TEI unit element.
func WithXMLUnitElement(elem string) Option {
	return func(imp *Importer) { imp.xmlOpts.UnitElement = elem }
}

// WithRunLog wires the run log so Import and Resegment each record a run
// (§4.H). Without it, the importer still works but no run is recorded.
func WithRunLog(l *runlog.Log) Option {
	return func(imp *Importer) { imp.runs = l }
}

// NewImporter builds an Importer bound to s.
func NewImporter(s *store.Store, opts ...Option) *Importer {
	imp := &Importer{store: s}
	for _, opt := range opts {
		opt(imp)
	}
	if imp.logger == nil {
		imp.logger = zap.NewNop()
	}
	return imp
}

// parseUnits decodes content and parses it per format, returning the unit
// set plus any title/language the format itself carries (TEI headers).
// Shared by Import and Resegment so both land units through the same path.
func (imp *Importer) parseUnits(format string, content []byte, title, language, sourcePath string, report *Report) ([]*models.Unit, string, string, error) {
	decoded, err := decodeBytes(content, imp.detector)
	if err != nil {
		return nil, "", "", fmt.Errorf("decode content: %w", err)
	}
	report.Encoding = decoded.method

	var units []*models.Unit

	switch format {
	case FormatNumberedLine:
		units = parseNumberedLines(decoded.text, report)
	case FormatDocxParagraph:
		units, err = parseDocxParagraphs(content, report)
		if err != nil {
			return nil, "", "", fmt.Errorf("parse docx: %w", err)
		}
	case FormatTEIXML:
		defaultTitle := title
		if defaultTitle == "" {
			defaultTitle = strings.TrimSuffix(filepath.Base(sourcePath), filepath.Ext(sourcePath))
		}
		var tei teiParseResult
		units, tei, err = parseTEI(bytes.NewReader([]byte(decoded.text)), imp.xmlOpts, defaultTitle, report)
		if err != nil {
			return nil, "", "", fmt.Errorf("parse tei xml: %w", err)
		}
		if title == "" {
			title = tei.Title
		}
		if language == "" {
			language = tei.Language
		}
	default:
		return nil, "", "", fmt.Errorf("unsupported ingestion format: %q", format)
	}
	return units, title, language, nil
}

// Import ingests one document: decodes bytes, normalizes, parses per the
// requested format, then lands the document row and its unit set in a
// single transaction so the import is all-or-nothing (§4.B).
func (imp *Importer) Import(ctx context.Context, input models.DocumentInput) (*models.Document, *Report, error) {
	report := &Report{Format: input.Format}

	units, title, language, err := imp.parseUnits(input.Format, input.Content, input.Title, input.Language, input.SourcePath, report)
	if err != nil {
		return nil, nil, err
	}

	if title == "" {
		title = strings.TrimSuffix(filepath.Base(input.SourcePath), filepath.Ext(input.SourcePath))
	}
	role := input.Role
	if role == "" {
		role = models.RoleUnknown
	}

	doc := &models.Document{
		ID:           uuid.New().String(),
		Title:        title,
		Language:     language,
		Role:         role,
		ResourceType: input.ResourceType,
		Metadata:     input.Metadata,
		SourcePath:   input.SourcePath,
		ContentHash:  contentHash(input.Content),
	}

	lineCount := 0
	for _, u := range units {
		u.DocID = doc.ID
		if u.Kind == models.KindLine {
			lineCount++
		}
	}
	report.LineUnits = lineCount
	report.TotalUnits = len(units)

	err = imp.store.WithTx(ctx, func(tx *sql.Tx) error {
		doc.CreatedAt = time.Now().UTC()
		if err := store.CreateDocumentTx(ctx, tx, doc); err != nil {
			return err
		}
		return store.CreateUnitsTx(ctx, tx, units)
	})
	if err != nil {
		return nil, nil, fmt.Errorf("ingest document: %w", err)
	}

	if err := imp.store.SetIndexStale(ctx, true); err != nil {
		imp.logger.Warn("failed to set index stale after import", zap.Error(err))
	}

	imp.recordRun(ctx, models.RunImport, map[string]interface{}{
		"doc_id":      doc.ID,
		"format":      input.Format,
		"source_path": input.SourcePath,
	}, map[string]interface{}{
		"total_units": report.TotalUnits,
		"line_units":  report.LineUnits,
		"encoding":    report.Encoding,
	})

	report.DocID = doc.ID
	return doc, report, nil
}

// recordRun persists a run if a run log is wired; failures are logged, not
// propagated, since the operation itself already committed (§4.H).
func (imp *Importer) recordRun(ctx context.Context, kind models.RunKind, params, stats map[string]interface{}) {
	if imp.runs == nil {
		return
	}
	run := &models.Run{
		ID:     uuid.New().String(),
		Kind:   kind,
		Params: params,
		Stats:  stats,
	}
	if err := imp.runs.Record(ctx, run); err != nil {
		imp.logger.Warn("failed to record run", zap.String("kind", string(kind)), zap.Error(err))
	}
}

// Resegment replaces docID's unit set in place: it reparses content under
// format, deletes the document's existing units and any alignment links
// touching it, and inserts the new unit set, all in one transaction. Used
// by the sidecar's /segment endpoint when a document's source is re-split
// with a different format or unit element.
func (imp *Importer) Resegment(ctx context.Context, docID, format string, content []byte) (*Report, error) {
	doc, err := imp.store.GetDocument(ctx, docID)
	if err != nil {
		return nil, fmt.Errorf("resegment: %w", err)
	}

	before, err := imp.store.ListUnitsByDoc(ctx, docID)
	if err != nil {
		return nil, fmt.Errorf("resegment: %w", err)
	}
	unitsBefore := len(before)

	report := &Report{Format: format, DocID: docID}
	units, _, _, err := imp.parseUnits(format, content, doc.Title, doc.Language, doc.SourcePath, report)
	if err != nil {
		return nil, err
	}
	for _, u := range units {
		u.DocID = docID
	}

	lineCount := 0
	for _, u := range units {
		if u.Kind == models.KindLine {
			lineCount++
		}
	}
	report.LineUnits = lineCount
	report.TotalUnits = len(units)

	var linksDropped int64
	err = imp.store.WithTx(ctx, func(tx *sql.Tx) error {
		if err := store.DeleteUnitsByDocTx(ctx, tx, docID); err != nil {
			return err
		}
		dropped, err := store.DeleteLinksByDocTx(ctx, tx, docID)
		if err != nil {
			return err
		}
		linksDropped = dropped
		return store.CreateUnitsTx(ctx, tx, units)
	})
	if err != nil {
		return nil, fmt.Errorf("resegment document: %w", err)
	}

	if err := imp.store.SetIndexStale(ctx, true); err != nil {
		imp.logger.Warn("failed to set index stale after resegment", zap.Error(err))
	}

	imp.recordRun(ctx, models.RunSegment, map[string]interface{}{
		"doc_id": docID,
		"format": format,
	}, map[string]interface{}{
		"units_before":  unitsBefore,
		"units_after":   report.TotalUnits,
		"links_dropped": linksDropped,
	})

	return report, nil
}

func contentHash(content []byte) string {
	h := sha256.Sum256(content)
	return hex.EncodeToString(h[:])
}
