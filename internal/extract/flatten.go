// Package extract turns a rendered lyrics page into clean plain text. It
// operates on the HTML snapshot returned by the browser, never on a live DOM.
package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// flatten converts a node subtree to text, translating <br> elements into
// newlines so verse structure survives. Script and style subtrees contribute
// nothing.
func flatten(n *html.Node) string {
	var b strings.Builder
	flattenInto(&b, n)
	return b.String()
}

func flattenInto(b *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(n.Data)
		return
	case html.ElementNode:
		switch n.Data {
		case "script", "style":
			return
		case "br":
			b.WriteString("\n")
			return
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		flattenInto(b, c)
	}
}

// FlattenSelection converts a goquery selection to text with <br> elements
// rendered as newlines.
func FlattenSelection(sel *goquery.Selection) string {
	var b strings.Builder
	for _, n := range sel.Nodes {
		flattenInto(&b, n)
	}
	return b.String()
}

// innerHTML renders the children of a node back to markup.
func innerHTML(n *html.Node) (string, error) {
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&b, c); err != nil {
			return "", err
		}
	}
	return b.String(), nil
}
