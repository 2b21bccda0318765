package query

import (
	"sort"
	"strings"

	"github.com/hyperjump/agrafes/internal/ftsindex"
)

// highlightSegment wraps every match span in text with << >> markers.
// Overlapping spans are merged first so markers never nest.
func highlightSegment(text string, matches []ftsindex.MatchSpan) string {
	spans := mergeSpans(matches)
	if len(spans) == 0 {
		return text
	}

	var b strings.Builder
	prev := 0
	for _, sp := range spans {
		if sp.Start < prev || sp.End > len(text) || sp.Start >= sp.End {
			continue
		}
		b.WriteString(text[prev:sp.Start])
		b.WriteString("<<")
		b.WriteString(text[sp.Start:sp.End])
		b.WriteString(">>")
		prev = sp.End
	}
	b.WriteString(text[prev:])
	return b.String()
}

func mergeSpans(matches []ftsindex.MatchSpan) []ftsindex.MatchSpan {
	if len(matches) == 0 {
		return nil
	}
	sorted := make([]ftsindex.MatchSpan, len(matches))
	copy(sorted, matches)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	merged := []ftsindex.MatchSpan{sorted[0]}
	for _, sp := range sorted[1:] {
		last := &merged[len(merged)-1]
		if sp.Start <= last.End {
			if sp.End > last.End {
				last.End = sp.End
			}
			continue
		}
		merged = append(merged, sp)
	}
	return merged
}

// kwicWindow splits text into left/match/right around sp, widening match to
// token boundaries and taking up to window tokens on each side.
func kwicWindow(text string, tokens []token, sp ftsindex.MatchSpan, window int) (left, match, right string) {
	if len(tokens) == 0 {
		return "", "", text
	}

	startIdx := tokenIndexForByteOffset(tokens, sp.Start)
	endIdx := tokenIndexForByteOffset(tokens, maxInt(sp.End-1, sp.Start))

	matchStart := tokens[startIdx].Start
	matchEnd := tokens[endIdx].End

	leftIdx := startIdx - window
	if leftIdx < 0 {
		leftIdx = 0
	}
	rightIdx := endIdx + window
	if rightIdx > len(tokens)-1 {
		rightIdx = len(tokens) - 1
	}

	left = strings.TrimSpace(text[tokens[leftIdx].Start:matchStart])
	match = text[matchStart:matchEnd]
	right = strings.TrimSpace(text[matchEnd:tokens[rightIdx].End])
	return left, match, right
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
