package curate

import (
	"fmt"
	"regexp"
)

// knownFlags is the small documented set §4.G allows: case-insensitive,
// multiline anchors, and dot-matches-newline — the inline (?flags) prefixes
// Go's regexp already understands.
var knownFlags = map[string]byte{
	"i": 'i',
	"m": 'm',
	"s": 's',
}

// Rule is one curation rule: a regular expression, its replacement, and an
// optional set of flags from knownFlags.
type Rule struct {
	Pattern     string   `json:"pattern"`
	Replacement string   `json:"replacement"`
	Flags       []string `json:"flags,omitempty"`
	Description string   `json:"description,omitempty"`
}

// compiledRule is a Rule with its regexp already compiled, so a malformed
// pattern fails validation eagerly rather than mid-apply.
type compiledRule struct {
	re          *regexp.Regexp
	replacement string
}

func compileRule(r Rule) (compiledRule, error) {
	var flagChars []byte
	for _, f := range r.Flags {
		c, ok := knownFlags[f]
		if !ok {
			return compiledRule{}, fmt.Errorf("unknown curation flag %q", f)
		}
		flagChars = append(flagChars, c)
	}

	pattern := r.Pattern
	if len(flagChars) > 0 {
		pattern = fmt.Sprintf("(?%s)%s", string(flagChars), r.Pattern)
	}

	re, err := regexp.Compile(pattern)
	if err != nil {
		return compiledRule{}, fmt.Errorf("invalid pattern %q: %w", r.Pattern, err)
	}
	return compiledRule{re: re, replacement: r.Replacement}, nil
}

func compileRules(rules []Rule) ([]compiledRule, error) {
	compiled := make([]compiledRule, len(rules))
	for i, r := range rules {
		c, err := compileRule(r)
		if err != nil {
			return nil, fmt.Errorf("rule %d: %w", i, err)
		}
		compiled[i] = c
	}
	return compiled, nil
}

// applyRules runs every compiled rule over text in order, accumulating the
// total number of individual regex matches replaced across all rules.
func applyRules(compiled []compiledRule, text string) (result string, changed bool, replacements int) {
	result = text
	for _, c := range compiled {
		matches := c.re.FindAllStringIndex(result, -1)
		if len(matches) == 0 {
			continue
		}
		replacements += len(matches)
		result = c.re.ReplaceAllString(result, c.replacement)
	}
	return result, result != text, replacements
}
