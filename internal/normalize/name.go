// Package normalize provides the text normalizers and string similarity
// primitives used by the entity matchers. All normalizers are pure functions:
// the same input always yields the same output, and NormalizeName is
// idempotent so normalized values can be stored and re-normalized safely.
package normalize

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	// punctuationPattern matches anything that is not a letter, digit,
	// underscore or whitespace, mirroring the `\w` word class.
	punctuationPattern = regexp.MustCompile(`[^\p{L}\p{N}_\s]`)

	whitespacePattern = regexp.MustCompile(`\s+`)

	// aliasPatterns expand common club-name abbreviations so that
	// "Arsenal FC" and "Arsenal Football Club" normalize identically.
	aliasPatterns = []struct {
		pattern     *regexp.Regexp
		replacement string
	}{
		{regexp.MustCompile(`\bfc\b`), "football club"},
	}

	// stripMarks decomposes to NFKD and removes combining marks, so that
	// "Müller" and "Muller" compare equal.
	stripMarks = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)))
)

// NormalizeName canonicalizes a person or team name for fuzzy comparison:
// Unicode NFKD decomposition, combining marks stripped, lowercased,
// punctuation collapsed to spaces, alias expansion, whitespace collapsed.
// Empty input yields the empty string.
func NormalizeName(name string) string {
	if name == "" {
		return ""
	}

	text, _, err := transform.String(stripMarks, name)
	if err != nil {
		// Transform failures only occur on invalid UTF-8; fall back to the
		// raw input rather than dropping the row.
		text = name
	}

	text = strings.ToLower(strings.TrimSpace(text))
	text = punctuationPattern.ReplaceAllString(text, " ")
	text = whitespacePattern.ReplaceAllString(text, " ")

	for _, alias := range aliasPatterns {
		if alias.pattern.MatchString(text) {
			text = alias.pattern.ReplaceAllString(text, alias.replacement)
		}
	}

	text = whitespacePattern.ReplaceAllString(text, " ")

	return strings.TrimSpace(text)
}

// NormalizeCompetition lowercases a competition name, removes every
// configured sponsor phrase and collapses whitespace.
// Sponsor matching is a case-insensitive substring removal.
func NormalizeCompetition(name string, sponsors []string) string {
	if name == "" {
		return ""
	}

	lowered := strings.ToLower(name)
	for _, sponsor := range sponsors {
		lowered = strings.ReplaceAll(lowered, strings.ToLower(sponsor), "")
	}

	return strings.TrimSpace(whitespacePattern.ReplaceAllString(lowered, " "))
}

// CountryTable resolves country spellings to canonical values with
// case-insensitive keys. Unknown values pass through unchanged.
type CountryTable map[string]string

// NewCountryTable builds a CountryTable from a configured spelling map,
// lowercasing the keys once.
func NewCountryTable(countries map[string]string) CountryTable {
	table := make(CountryTable, len(countries))
	for spelling, canonical := range countries {
		table[strings.ToLower(spelling)] = canonical
	}

	return table
}

// Normalize returns the canonical value for a country spelling.
// Unknown spellings pass through unchanged; empty input yields empty output.
func (t CountryTable) Normalize(value string) string {
	if value == "" {
		return ""
	}

	if canonical, ok := t[strings.ToLower(value)]; ok {
		return canonical
	}

	return value
}
