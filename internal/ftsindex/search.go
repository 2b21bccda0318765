package ftsindex

import (
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search"
)

// ErrInvalidQuery marks a query string that failed bleve's query-string
// syntax validation (unbalanced quotes, malformed boolean clauses, etc.),
// so callers can surface it as a client error rather than an internal one.
var ErrInvalidQuery = errors.New("invalid query syntax")

// MatchSpan is one match occurrence's byte offsets into TextNorm.
type MatchSpan struct {
	Start int
	End   int
}

// Hit is one matched unit.
type Hit struct {
	UnitID  int64
	Score   float64
	Matches []MatchSpan
}

// SearchOptions narrows a query by the denormalized document fields and
// bounds the result window.
type SearchOptions struct {
	Language     string
	DocID        string
	DocRole      string
	ResourceType string
	Limit        int
	Offset       int
}

// SearchResult is the raw index-level response; internal/query projects it
// into the segment/KWIC shapes the API returns.
type SearchResult struct {
	Hits  []Hit
	Total uint64
}

// Search runs q as a query-string query (supporting bleve's phrase and
// boolean syntax — quoted phrases, +must/-must-not) against text_norm,
// narrowed by the optional filters, with IncludeLocations enabled so
// callers get per-match byte offsets for highlighting (§4.E).
func (idx *Index) Search(q string, opts SearchOptions) (*SearchResult, error) {
	textQuery := bleve.NewQueryStringQuery(q)

	query := bleve.Query(textQuery)
	if filter := buildFilter(opts); filter != nil {
		query = bleve.NewConjunctionQuery(textQuery, filter)
	}

	req := bleve.NewSearchRequestOptions(query, opts.Limit, opts.Offset, false)
	req.Fields = []string{"text_norm", "doc_id"}
	req.IncludeLocations = true

	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidQuery, err)
	}

	res, err := idx.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("fts search: %w", err)
	}

	hits := make([]Hit, 0, len(res.Hits))
	for _, h := range res.Hits {
		unitID, err := strconv.ParseInt(h.ID, 10, 64)
		if err != nil {
			continue
		}
		hits = append(hits, Hit{
			UnitID:  unitID,
			Score:   h.Score,
			Matches: extractMatches(h.Locations),
		})
	}
	return &SearchResult{Hits: hits, Total: res.Total}, nil
}

// ProximityQuery builds a query requiring terms within window token
// positions of each other — the index's second required capability
// (§4.D). Bleve expresses this as a match-phrase query with slop, which
// permits terms to appear in order within the given number of intervening
// positions.
func ProximityQuery(terms []string, window int) *bleve.MatchPhraseQuery {
	phrase := ""
	for i, t := range terms {
		if i > 0 {
			phrase += " "
		}
		phrase += t
	}
	q := bleve.NewMatchPhraseQuery(phrase)
	q.Slop = window
	return q
}

func buildFilter(opts SearchOptions) bleve.Query {
	var clauses []bleve.Query
	if opts.DocID != "" {
		clauses = append(clauses, newTermQuery(opts.DocID, "doc_id"))
	}
	if opts.Language != "" {
		clauses = append(clauses, newTermQuery(opts.Language, "language"))
	}
	if opts.DocRole != "" {
		clauses = append(clauses, newTermQuery(opts.DocRole, "doc_role"))
	}
	if opts.ResourceType != "" {
		clauses = append(clauses, newTermQuery(opts.ResourceType, "resource_type"))
	}
	if len(clauses) == 0 {
		return nil
	}
	return bleve.NewConjunctionQuery(clauses...)
}

func newTermQuery(value, field string) *bleve.TermQuery {
	q := bleve.NewTermQuery(value)
	q.SetField(field)
	return q
}

func extractMatches(locations search.FieldTermLocationMap) []MatchSpan {
	termLocs, ok := locations["text_norm"]
	if !ok {
		return nil
	}
	var spans []MatchSpan
	for _, locs := range termLocs {
		for _, l := range locs {
			spans = append(spans, MatchSpan{Start: int(l.Start), End: int(l.End)})
		}
	}
	sort.Slice(spans, func(i, j int) bool { return spans[i].Start < spans[j].Start })
	return spans
}
