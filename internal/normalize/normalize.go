// Package normalize implements the deterministic text-normalization policy:
// it maps a decoded source string to a raw form (byte-faithful except for
// line-ending normalization) and a normalized form suitable for indexing
// and alignment.
package normalize

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// SeparatorChar is the domain-specific separator replaced by one ASCII space.
const SeparatorChar = '¤' // ¤

const (
	zeroWidthSpace         = '​'
	zeroWidthJoiner        = '‍'
	zeroWidthNonJoiner     = '‌'
	wordJoiner             = '⁠'
	byteOrderMark          = '﻿'
	softHyphen             = '­'
	nonBreakingSpace       = ' '
	narrowNonBreakingSpace = ' '
)

// Result holds the two outputs of the normalization policy.
type Result struct {
	// TextRaw is decoded, byte-faithful except for line-ending normalization.
	TextRaw string
	// TextNorm is the fully normalized form used for search and alignment.
	TextNorm string
	// SeparatorCount is the number of SeparatorChar occurrences found in TextRaw.
	SeparatorCount int
}

// Apply runs the normalization policy on a decoded input string.
// It is deterministic: identical input always yields byte-identical output.
func Apply(s string) Result {
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "�")
	}
	raw := normalizeLineEndings(s)

	normed := norm.NFC.String(raw)
	normed = removeInvisibles(normed)
	normed = mapNonBreakingSpaces(normed)
	sepCount := strings.Count(raw, string(rune(SeparatorChar)))
	normed = strings.ReplaceAll(normed, string(rune(SeparatorChar)), " ")
	normed = removeControlBytes(normed)

	return Result{
		TextRaw:        raw,
		TextNorm:       normed,
		SeparatorCount: sepCount,
	}
}

// normalizeLineEndings maps CRLF and CR to LF.
func normalizeLineEndings(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	return s
}

// removeInvisibles strips zero-width and format invisible characters.
func removeInvisibles(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch r {
		case zeroWidthSpace, zeroWidthJoiner, zeroWidthNonJoiner, wordJoiner, byteOrderMark, softHyphen:
			continue
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// mapNonBreakingSpaces maps NBSP and narrow NBSP to one ASCII space.
func mapNonBreakingSpaces(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch r {
		case nonBreakingSpace, narrowNonBreakingSpace:
			b.WriteByte(' ')
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// removeControlBytes drops ASCII control bytes 0x00..0x1F except TAB, LF, CR.
func removeControlBytes(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r <= 0x1F && r != '\t' && r != '\n' && r != '\r' {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
