package extract

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// DefaultBoilerplate is the licensing sentence deleted from extracted text.
const DefaultBoilerplate = "Usage of azlyrics.com content by any third-party lyrics provider is prohibited by our licensing agreement. Sorry about that."

// DefaultBoundaries mark where lyric content ends and page furniture begins.
// The earliest occurrence wins. Site-specific policy data.
var DefaultBoundaries = []string{
	"Submit Corrections",
	"Writer(s):",
	"Thanks to",
	"Follow",
	"Copyright:",
}

var (
	featRe     = regexp.MustCompile(`\(feat\..*?\)`)
	newlinesRe = regexp.MustCompile(`\n{3,}`)
)

// Normalizer cleans the raw inner markup of a lyrics container into plain
// text. Normalize is idempotent: running it over its own output is a no-op.
type Normalizer struct {
	Boilerplate  string
	Boundaries   []string
	NoPrintClass string
}

// NewNormalizer builds a Normalizer; zero values select the defaults.
func NewNormalizer(boilerplate string, boundaries []string) *Normalizer {
	if boilerplate == "" {
		boilerplate = DefaultBoilerplate
	}
	if len(boundaries) == 0 {
		boundaries = DefaultBoundaries
	}
	return &Normalizer{
		Boilerplate:  boilerplate,
		Boundaries:   boundaries,
		NoPrintClass: "noprint",
	}
}

// Normalize applies the cleanup steps in order, each narrowing the text
// further. Empty output for non-empty input is the caller's signal that
// extraction failed.
func (n *Normalizer) Normalize(rawHTML string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return "", err
	}
	doc.Find("script, style").Remove()

	text := flatten(docBody(doc))
	text = strings.ReplaceAll(text, n.Boilerplate, "")

	// Drop hidden attribution clutter when its text shows up verbatim.
	doc.Find("." + n.NoPrintClass).Each(func(_ int, sel *goquery.Selection) {
		noprint := flatten(sel.Nodes[0])
		if noprint != "" && strings.Contains(text, noprint) {
			text = strings.Replace(text, noprint, "", 1)
		}
	})

	text = featRe.ReplaceAllString(text, "")
	text = TruncateAtBoundary(text, n.Boundaries)
	return CollapseBlankLines(text), nil
}

// TruncateAtBoundary cuts the text at the earliest boundary occurrence;
// everything from that point on is page furniture.
func TruncateAtBoundary(text string, boundaries []string) string {
	cut := -1
	for _, boundary := range boundaries {
		if idx := strings.Index(text, boundary); idx != -1 && (cut == -1 || idx < cut) {
			cut = idx
		}
	}
	if cut != -1 {
		text = text[:cut]
	}
	return text
}

// CollapseBlankLines trims the text and caps consecutive newlines at two, so
// stanzas stay blank-line delimited and never more.
func CollapseBlankLines(text string) string {
	text = strings.TrimSpace(text)
	text = newlinesRe.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
