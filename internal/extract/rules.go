package extract

import (
	"macroscrape/internal/record"
	"macroscrape/pkg/textutil"
	"regexp"
	"strconv"
	"strings"
)

// Rule is a named, pure extraction step from text to an optional value.
type Rule struct {
	Name  string
	Apply func(text string) (float64, bool)
}

// RegexRule builds a Rule out of a pattern whose first capture group is the number.
// Patterns are compiled case-insensitively.
func RegexRule(name, pattern string) Rule {
	re := regexp.MustCompile(`(?i)` + pattern)
	return Rule{
		Name: name,
		Apply: func(text string) (float64, bool) {
			groups := re.FindStringSubmatch(text)
			if len(groups) < 2 {
				return 0, false
			}
			return ParseNumber(groups[1])
		},
	}
}

// RuleSet is an ordered list of rules, earlier rules are more specific and win ties.
type RuleSet []Rule

// Match is the outcome of running a RuleSet over a piece of text.
type Match struct {
	Value float64
	// Rule is the name of the rule that produced Value, empty on a miss.
	Rule  string
	Found bool
	// Rejected is set when a rule matched but the value fell outside Bounds,
	// Value still holds the rejected number.
	Rejected bool
	// Snippet is a short excerpt of the text near where a value was expected,
	// only set on a miss or a rejection.
	Snippet string
}

// First applies the rules in order and returns the first success.
func (rs RuleSet) First(text string) Match {
	for _, rule := range rs {
		v, ok := rule.Apply(text)
		if !ok {
			continue
		}
		return Match{Value: v, Rule: rule.Name, Found: true}
	}
	return Match{}
}

// Extractor runs a RuleSet over free text, applies a plausibility bound and
// produces a diagnostic snippet when nothing usable was found.
type Extractor struct {
	Rules  RuleSet
	Bounds *record.Bounds
	// SnippetPattern locates the text to show on a miss, when nil (or when it
	// doesn't match) the start of the text is used.
	SnippetPattern *regexp.Regexp
	// SnippetLength caps the snippet, defaults to 100 runes.
	SnippetLength int
}

func (e Extractor) snippet(text string) string {
	length := e.SnippetLength
	if length <= 0 {
		length = 100
	}
	if e.SnippetPattern != nil {
		groups := e.SnippetPattern.FindStringSubmatch(text)
		if len(groups) > 0 {
			return textutil.Truncate(groups[len(groups)-1], length)
		}
	}
	return textutil.Truncate(strings.TrimSpace(text), length)
}

// Extract never fails, a miss is reported through Match.Found.
func (e Extractor) Extract(text string) Match {
	m := e.Rules.First(text)
	if !m.Found {
		m.Snippet = e.snippet(text)
		return m
	}
	if e.Bounds != nil && !e.Bounds.Contains(m.Value) {
		m.Found = false
		m.Rejected = true
		m.Snippet = e.snippet(text)
	}
	return m
}

// ParseNumber parses a number that may carry thousands separators, a percent
// sign or surrounding whitespace.
func ParseNumber(raw string) (float64, bool) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimSuffix(raw, "%")
	raw = strings.ReplaceAll(raw, ",", "")
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "." || raw == "-" {
		return 0, false
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
