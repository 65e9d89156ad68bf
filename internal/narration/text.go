package narration

import (
	"regexp"
	"strings"
)

// Regex patterns for script normalization.
const (
	codeFenceRegexPattern  = "(?s)```.*?```"
	headingRegexPattern    = `(?m)^#{1,6}\s+`
	emphasisRegexPattern   = `[*_]{1,3}([^*_]+)[*_]{1,3}`
	bulletRegexPattern     = `(?m)^\s*[-*+]\s+`
	whitespaceRegexPattern = `\s+`
)

// Normalizer strips the markdown artifacts language models leave in generated
// scripts so the synthesis request carries plain prose.
type Normalizer struct {
	codeFencePattern  *regexp.Regexp
	headingPattern    *regexp.Regexp
	emphasisPattern   *regexp.Regexp
	bulletPattern     *regexp.Regexp
	whitespacePattern *regexp.Regexp
}

// NewNormalizer creates a script normalizer with precompiled patterns.
func NewNormalizer() *Normalizer {
	return &Normalizer{
		codeFencePattern:  regexp.MustCompile(codeFenceRegexPattern),
		headingPattern:    regexp.MustCompile(headingRegexPattern),
		emphasisPattern:   regexp.MustCompile(emphasisRegexPattern),
		bulletPattern:     regexp.MustCompile(bulletRegexPattern),
		whitespacePattern: regexp.MustCompile(whitespaceRegexPattern),
	}
}

// Normalize returns the script with code fences removed, markdown headings,
// bullets, and emphasis markers stripped, and all whitespace runs collapsed
// to single spaces.
func (n *Normalizer) Normalize(script string) string {
	script = n.codeFencePattern.ReplaceAllString(script, " ")
	script = n.headingPattern.ReplaceAllString(script, "")
	script = n.bulletPattern.ReplaceAllString(script, "")
	script = n.emphasisPattern.ReplaceAllString(script, "$1")
	script = n.whitespacePattern.ReplaceAllString(script, " ")

	return strings.TrimSpace(script)
}
