package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApply_Deterministic(t *testing.T) {
	input := "Héllo World​\r\n¤more¤\x07text"
	a := Apply(input)
	b := Apply(input)
	assert.Equal(t, a.TextNorm, b.TextNorm, "normalization must be deterministic")
	assert.Equal(t, a.TextRaw, b.TextRaw)
}

func TestApply_SeparatorPreservation(t *testing.T) {
	input := "a¤b¤c"
	r := Apply(input)
	require.Equal(t, 2, r.SeparatorCount)
	assert.Contains(t, r.TextRaw, "¤")
	assert.NotContains(t, r.TextNorm, "¤")
	assert.Equal(t, "a b c", r.TextNorm)
}

func TestApply_LineEndings(t *testing.T) {
	r := Apply("a\r\nb\rc\nd")
	assert.Equal(t, "a\nb\nc\nd", r.TextRaw)
}

func TestApply_NonBreakingSpace(t *testing.T) {
	r := Apply("a b")
	assert.Equal(t, "a b", r.TextNorm)
	assert.Equal(t, "a b", r.TextRaw)
}

func TestApply_RemovesInvisiblesAndControls(t *testing.T) {
	r := Apply("a​b\x01c\td\ne")
	assert.Equal(t, "abc\td\ne", r.TextNorm)
}

func TestApply_NFCComposition(t *testing.T) {
	// "e" + combining acute accent (U+0065 U+0301) should compose to U+00E9 (é).
	decomposed := "é"
	r := Apply(decomposed)
	assert.Equal(t, "é", r.TextNorm)
}

func TestApply_InvalidUTF8(t *testing.T) {
	r := Apply(string([]byte{0xff, 0xfe, 'a'}))
	assert.Contains(t, r.TextRaw, "a")
}
