package extract

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// Section is one labeled contiguous range of a multi-language lyrics block.
// Label is the bracket tag's text, lowercased.
type Section struct {
	Label string
	Text  string
}

// Tag vocabularies are site-observed policy data, overridable via config.
var (
	DefaultRomanizedTags = []string{"romanized", "romanization", "romaji", "rr"}
	DefaultNativeTags    = []string{"korean", "japanese"}
)

var englishAsideRe = regexp.MustCompile(`\[English translation:\].*?(\n|$)`)

// Splitter partitions bracket-tagged lyrics markup into labeled ranges and
// picks the one to return by priority: a romanized range wins outright, else
// a native-script (korean/japanese) range, else nothing and the caller falls
// back to the whole-text normalization.
type Splitter struct {
	RomanizedTags []string
	NativeTags    []string
	Boundaries    []string
}

// NewSplitter builds a Splitter; empty slices select the defaults.
func NewSplitter(romanized, native, boundaries []string) *Splitter {
	if len(romanized) == 0 {
		romanized = DefaultRomanizedTags
	}
	if len(native) == 0 {
		native = DefaultNativeTags
	}
	if len(boundaries) == 0 {
		boundaries = DefaultBoundaries
	}
	return &Splitter{RomanizedTags: romanized, NativeTags: native, Boundaries: boundaries}
}

// Split collects every bracket-tag marker in document order and partitions
// the sibling stream into ranges, each running from one marker to the next.
func (s *Splitter) Split(rawHTML string) ([]Section, error) {
	root, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return nil, err
	}

	markers := collectMarkers(root)
	if len(markers) == 0 {
		return nil, nil
	}
	markerSet := make(map[*html.Node]bool, len(markers))
	for _, m := range markers {
		markerSet[m] = true
	}

	sections := make([]Section, 0, len(markers))
	for _, m := range markers {
		sections = append(sections, Section{
			Label: strings.ToLower(strings.TrimSpace(flatten(m))),
			Text:  rangeText(m, markerSet),
		})
	}
	return sections, nil
}

// Choose applies the selection priority and cleans the winning range. The
// second return is false when no section is preferred.
func (s *Splitter) Choose(sections []Section) (Section, bool) {
	if idx := s.findTagged(sections, s.RomanizedTags); idx != -1 {
		return s.clean(sections[idx]), true
	}
	if idx := s.findTagged(sections, s.NativeTags); idx != -1 {
		return s.clean(sections[idx]), true
	}
	return Section{}, false
}

// NativeSection returns the korean/japanese range when one exists; the
// classifier prefers it as the language-detection sample.
func (s *Splitter) NativeSection(sections []Section) (Section, bool) {
	if idx := s.findTagged(sections, s.NativeTags); idx != -1 {
		return s.clean(sections[idx]), true
	}
	return Section{}, false
}

func (s *Splitter) findTagged(sections []Section, tags []string) int {
	for i, sec := range sections {
		for _, tag := range tags {
			if labelHasTag(sec.Label, tag) {
				return i
			}
		}
	}
	return -1
}

// labelHasTag matches a vocabulary word inside a tag label. Short tokens
// like "rr" match only as whole words so "corrections" never qualifies.
func labelHasTag(label, tag string) bool {
	if len(tag) > 2 {
		return strings.Contains(label, tag)
	}
	re := regexp.MustCompile(`\b` + regexp.QuoteMeta(tag) + `\b`)
	return re.MatchString(label)
}

func (s *Splitter) clean(sec Section) Section {
	text := englishAsideRe.ReplaceAllString(sec.Text, "")
	text = TruncateAtBoundary(text, s.Boundaries)
	sec.Text = CollapseBlankLines(text)
	return sec
}

// collectMarkers finds the small inline elements whose trimmed text is a
// bracketed language tag, in document order.
func collectMarkers(root *html.Node) []*html.Node {
	var markers []*html.Node
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "i" || n.Data == "em" || n.Data == "small") {
			text := strings.TrimSpace(flatten(n))
			if strings.Contains(text, "[") && strings.Contains(text, "]") {
				markers = append(markers, n)
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return markers
}

// rangeText accumulates the sibling stream after a marker until the next
// marker or the end of the container, translating <br> runs into newlines.
func rangeText(start *html.Node, markers map[*html.Node]bool) string {
	var b strings.Builder
	for n := start.NextSibling; n != nil; n = n.NextSibling {
		if markers[n] {
			break
		}
		switch n.Type {
		case html.TextNode:
			b.WriteString(n.Data)
		case html.ElementNode:
			if n.Data == "br" {
				b.WriteString("\n")
			} else {
				b.WriteString(flatten(n))
			}
		}
	}
	return strings.TrimSpace(b.String())
}
