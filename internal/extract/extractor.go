package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/lyricscout/lyricscout/internal/scrape"
)

// DefaultMarker is the provenance sentence the source embeds inside the
// lyrics container. Site-specific policy data; override via configuration.
const DefaultMarker = "Usage of azlyrics.com content by any third-party lyrics provider is prohibited by our licensing agreement"

const snippetLimit = 500

// Extractor locates the lyrics container in a rendered page. Two tiers are
// tried in order: a marker-based scan, then a structural walk from the first
// bold element. Further tiers may be appended but the cheap, specific tier
// always runs first.
type Extractor struct {
	Marker string
}

// NewExtractor builds an Extractor; an empty marker selects the default.
func NewExtractor(marker string) *Extractor {
	if marker == "" {
		marker = DefaultMarker
	}
	return &Extractor{Marker: marker}
}

// Extract returns the inner markup of the lyrics container. Both tiers
// missing is an extraction error carrying a snippet of the page text for
// diagnostics.
func (e *Extractor) Extract(pageHTML string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(pageHTML))
	if err != nil {
		return "", scrape.NewError(scrape.CodeExtraction, "parse page markup", nil).WithCause(err)
	}

	if raw := e.byMarker(doc); raw != "" {
		return raw, nil
	}
	if raw := e.byStructure(doc); raw != "" {
		return raw, nil
	}

	snippet := strings.TrimSpace(flatten(docBody(doc)))
	if len(snippet) > snippetLimit {
		snippet = snippet[:snippetLimit]
	}
	return "", scrape.NewError(scrape.CodeExtraction, "lyrics container not found", map[string]any{
		"availableText": snippet,
	})
}

// byMarker scans block containers for the one holding the provenance marker.
func (e *Extractor) byMarker(doc *goquery.Document) string {
	var found string
	doc.Find("div").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		raw, err := sel.Html()
		if err != nil || !strings.Contains(raw, e.Marker) {
			return true
		}
		// Prefer the innermost container holding the marker.
		if inner := sel.Find("div").FilterFunction(func(_ int, s *goquery.Selection) bool {
			h, herr := s.Html()
			return herr == nil && strings.Contains(h, e.Marker)
		}); inner.Length() > 0 {
			return true
		}
		found = raw
		return false
	})
	return found
}

// byStructure walks forward from the first bold element to its first div-like
// sibling, the layout the source uses for the lyrics block.
func (e *Extractor) byStructure(doc *goquery.Document) string {
	bold := doc.Find("b").First()
	if bold.Length() == 0 {
		return ""
	}
	for n := bold.Nodes[0].NextSibling; n != nil; n = n.NextSibling {
		if n.Type == html.ElementNode && n.Data == "div" {
			raw, err := innerHTML(n)
			if err != nil || strings.TrimSpace(flatten(n)) == "" {
				return ""
			}
			return raw
		}
	}
	return ""
}

func docBody(doc *goquery.Document) *html.Node {
	if body := doc.Find("body").First(); body.Length() > 0 {
		return body.Nodes[0]
	}
	return doc.Nodes[0]
}
