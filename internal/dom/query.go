package dom

import (
	"fmt"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"
)

// Select returns the descendants of root matching a CSS selector.
func Select(root *html.Node, selector string) []*html.Node {
	if root == nil || selector == "" {
		return nil
	}
	return goquery.NewDocumentFromNode(root).Find(selector).Nodes
}

// SelectFirst returns the first descendant matching selector, or nil.
func SelectFirst(root *html.Node, selector string) *html.Node {
	nodes := Select(root, selector)
	if len(nodes) == 0 {
		return nil
	}
	return nodes[0]
}

// Matches reports whether n itself matches a CSS selector.
func Matches(n *html.Node, selector string) bool {
	if !IsElement(n) || selector == "" {
		return false
	}
	return goquery.NewDocumentFromNode(n).Is(selector)
}

// XPath evaluates expr relative to root.
func XPath(root *html.Node, expr string) ([]*html.Node, error) {
	nodes, err := htmlquery.QueryAll(root, expr)
	if err != nil {
		return nil, fmt.Errorf("invalid xpath %q: %w", expr, err)
	}
	return nodes, nil
}

// XPathFirst returns the first node matched by expr, or nil.
func XPathFirst(root *html.Node, expr string) (*html.Node, error) {
	n, err := htmlquery.Query(root, expr)
	if err != nil {
		return nil, fmt.Errorf("invalid xpath %q: %w", expr, err)
	}
	return n, nil
}
