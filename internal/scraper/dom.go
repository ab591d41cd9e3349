package scraper

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Selectors for the portal's markup
var (
	selCourseLink    = cascadia.MustCompile("a[href]")
	selCourseCard    = cascadia.MustCompile("div.es-course-card")
	selCourseTitle   = cascadia.MustCompile("h4.courseTitle")
	selInstructor    = cascadia.MustCompile("div.courseInstructor")
	selInstitute     = cascadia.MustCompile("div.courseInstitute")
	selNCBadge       = cascadia.MustCompile("strong.text-danger")
	selAnnTitle      = cascadia.MustCompile("span.gcb-announcement-title")
	selParagraph     = cascadia.MustCompile("p")
	selAnnContent    = cascadia.MustCompile("p.gcb-announcement-content")
	selScriptElement = cascadia.MustCompile("script")
)

// findFirst returns the first descendant of sel matching m
func findFirst(sel *goquery.Selection, m goquery.Matcher) (*goquery.Selection, bool) {
	found := sel.FindMatcher(m).First()
	return found, found.Length() > 0
}

// nextSibling returns the first following sibling of sel matching m
func nextSibling(sel *goquery.Selection, m goquery.Matcher) (*goquery.Selection, bool) {
	found := sel.NextAllMatcher(m).First()
	return found, found.Length() > 0
}

// textOr returns the trimmed text of the first descendant matching m, or fallback
// when there is none.
func textOr(sel *goquery.Selection, m goquery.Matcher, fallback string) string {
	found, ok := findFirst(sel, m)
	if !ok {
		return fallback
	}
	return strings.TrimSpace(textContent(found.Get(0)))
}

type nodeKind int

const (
	otherNode nodeKind = iota
	scriptNode
	textNode
	elementNode
)

// childNode is a direct child of an element, tagged by what it holds
type childNode struct {
	kind nodeKind
	node *html.Node
}

func classify(n *html.Node) childNode {
	switch {
	case n.Type == html.ElementNode && n.DataAtom == atom.Script:
		return childNode{kind: scriptNode, node: n}
	case n.Type == html.TextNode:
		return childNode{kind: textNode, node: n}
	case n.Type == html.ElementNode:
		return childNode{kind: elementNode, node: n}
	default:
		return childNode{kind: otherNode, node: n}
	}
}

// children returns the tagged direct children of the first node in sel
func children(sel *goquery.Selection) []childNode {
	if sel.Length() == 0 {
		return nil
	}
	var out []childNode
	for c := sel.Get(0).FirstChild; c != nil; c = c.NextSibling {
		out = append(out, classify(c))
	}
	return out
}

// textContent concatenates the text below n, skipping script and style bodies
func textContent(n *html.Node) string {
	var b strings.Builder
	walkText(n, func(s string) {
		b.WriteString(s)
	})
	return b.String()
}

// textLines returns every non-blank text node below n, trimmed, in document order
func textLines(n *html.Node) []string {
	var lines []string
	walkText(n, func(s string) {
		if s = strings.TrimSpace(s); s != "" {
			lines = append(lines, s)
		}
	})
	return lines
}

func walkText(n *html.Node, fn func(string)) {
	switch n.Type {
	case html.TextNode:
		fn(n.Data)
		return
	case html.ElementNode:
		if n.DataAtom == atom.Script || n.DataAtom == atom.Style {
			return
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walkText(c, fn)
	}
}

// scriptSource returns the raw source of a script element
func scriptSource(n *html.Node) string {
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
	}
	return b.String()
}
