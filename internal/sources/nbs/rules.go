package nbs

import (
	"macroscrape/internal/extract"
	"macroscrape/internal/record"
	"regexp"
	"strings"
	"time"
)

// PMIBounds is the plausible range of a manufacturing PMI reading.
var PMIBounds = record.Bounds{Min: 30, Max: 70}

// PMIRules are ordered from the standard release wording to the loosest match.
// None of them cross a line break, so a number from a later paragraph can't be
// attributed to an earlier mention of "manufacturing".
var PMIRules = extract.RuleSet{
	// "the Purchasing Managers' Index (PMI) for China's manufacturing industry was 50.3 percent"
	extract.RegexRule("industry_was", `manufacturing\s+industry\s+was\s+(\d+\.?\d*)`),
	extract.RegexRule("pmi_was", `manufacturing\s+PMI\s+was\s+(\d+\.?\d*)`),
	extract.RegexRule("pmi_stood_at", `manufacturing\s+PMI\s+stood\s+at\s+(\d+\.?\d*)`),
	extract.RegexRule("industry_came_in_at", `manufacturing\s+industry\s+came\s+in\s+at\s+(\d+\.?\d*)`),
	extract.RegexRule("generic_was", `Manufacturing\s+Purchasing\s+Managers.*?Index.*?was\s+(\d+\.?\d*)`),
}

var snippetPattern = regexp.MustCompile(`(?i)(manufacturing.*?(?:percent|%))`)

// NewPMIExtractor returns the extractor used on release text.
func NewPMIExtractor() extract.Extractor {
	bounds := PMIBounds
	return extract.Extractor{
		Rules:          PMIRules,
		Bounds:         &bounds,
		SnippetPattern: snippetPattern,
		SnippetLength:  100,
	}
}

var titleMonth = regexp.MustCompile(`(January|February|March|April|May|June|July|August|September|October|November|December)\s+(\d{4})`)

// ReleaseMonth reads the reference month out of a release title such as
// "Purchasing Managers' Index for November 2025".
func ReleaseMonth(title string) (int, time.Month, bool) {
	groups := titleMonth.FindStringSubmatch(title)
	if len(groups) < 3 {
		return 0, 0, false
	}
	t, err := time.Parse("January 2006", groups[1]+" "+groups[2])
	if err != nil {
		return 0, 0, false
	}
	return t.Year(), t.Month(), true
}

// IsPMIRelease keeps the monthly PMI releases and drops commentary pieces
// ("China's Manufacturing PMI ...") that mention the index in passing.
func IsPMIRelease(title string) bool {
	return strings.Contains(title, "Purchasing Managers") &&
		strings.Contains(title, "Index") &&
		strings.Contains(title, "Index for") &&
		!strings.Contains(title, "China")
}

// cleanArticle only replaces non-breaking spaces, line breaks are kept for the rules.
func cleanArticle(text string) string {
	return strings.ReplaceAll(text, "\u00a0", " ")
}
