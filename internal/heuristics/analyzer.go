// Package heuristics derives deterministic UX signals from page markup.
//
// Analyze walks the parsed DOM once and never fails: markup the parser cannot
// make sense of degrades to zero counts. Evaluate turns the signals into
// good/bad/improvement findings and the baseline scores used when no AI
// critique is available.
package heuristics

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/tjfontaine/ux-auditor/internal/domain"
)

// Analyze parses markup and counts the static signals.
func Analyze(markup string) domain.StaticSignals {
	var s domain.StaticSignals

	doc, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		return s
	}

	titleSeen := false
	var walk func(n *html.Node, inSVG bool)
	walk = func(n *html.Node, inSVG bool) {
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.Svg:
				inSVG = true
			case atom.Title:
				if !inSVG && !titleSeen {
					s.Title = strings.TrimSpace(textContent(n))
					titleSeen = true
				}
			case atom.Meta:
				if strings.EqualFold(attr(n, "name"), "description") && s.MetaDescription == "" {
					s.MetaDescription = strings.TrimSpace(attr(n, "content"))
				}
			case atom.H1:
				s.H1Count++
			case atom.Img:
				s.TotalImages++
				if !hasAttr(n, "alt") {
					s.MissingAltCount++
				}
			case atom.A:
				s.LinkCount++
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c, inSVG)
		}
	}
	walk(doc, false)

	return s
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.TextNode {
			b.WriteString(node.Data)
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

func attr(n *html.Node, name string) string {
	for _, a := range n.Attr {
		if a.Namespace == "" && strings.EqualFold(a.Key, name) {
			return a.Val
		}
	}
	return ""
}

func hasAttr(n *html.Node, name string) bool {
	for _, a := range n.Attr {
		if a.Namespace == "" && strings.EqualFold(a.Key, name) {
			return true
		}
	}
	return false
}
