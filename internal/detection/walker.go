package detection

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"

	"github.com/GriffinCanCode/zentat/internal/dom"
)

// DefaultMaxTextLength bounds the text of a candidate element, in characters.
const DefaultMaxTextLength = 500

// Elements whose subtrees are never scanned.
var skipTags = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"iframe":   true,
	"object":   true,
	"embed":    true,
	"canvas":   true,
	"svg":      true,
	"math":     true,
	"textarea": true,
	"input":    true,
	"select":   true,
	"code":     true,
	"pre":      true,
	"head":     true,
	"template": true,
}

var offscreenClass = regexp.MustCompile(`(?i)a-offscreen|sr-only|visually-hidden|screen-reader-only`)

// Candidate is an element selected for price matching.
type Candidate struct {
	Node *html.Node
	// Text is the trimmed text the matcher runs on.
	Text string
	// Rule is set when Node is a structured container.
	Rule *ContainerRule
}

// Detection pairs a candidate with the prices found in its text.
type Detection struct {
	Candidate
	Prices []ParsedPrice
}

// WalkOptions configures a tree walk.
type WalkOptions struct {
	Hostname      string
	Registry      *Registry
	MaxTextLength int
	// Exclude prunes an element and its subtree. Elements containing an
	// excluded descendant are not candidates themselves.
	Exclude func(*html.Node) bool
}

type walker struct {
	opts     WalkOptions
	rules    []ContainerRule
	occupied map[*html.Node]bool
	out      []Candidate
}

// Walk visits root and its descendants once and returns the innermost
// elements whose text looks like a price.
func Walk(root *html.Node, opts WalkOptions) []Candidate {
	if root == nil {
		return nil
	}
	if opts.MaxTextLength <= 0 {
		opts.MaxTextLength = DefaultMaxTextLength
	}
	w := &walker{
		opts:     opts,
		rules:    opts.Registry.ForHost(opts.Hostname),
		occupied: make(map[*html.Node]bool),
	}
	if opts.Exclude != nil {
		w.markOccupied(root)
	}
	w.visit(root)
	return w.out
}

// Detect walks root and parses every candidate, keeping those with prices.
func Detect(root *html.Node, p *Parser, enabled []string, opts WalkOptions) []Detection {
	var out []Detection
	for _, c := range Walk(root, opts) {
		if prices := p.Parse(c.Text, enabled, opts.Hostname); len(prices) > 0 {
			out = append(out, Detection{Candidate: c, Prices: prices})
		}
	}
	return out
}

// markOccupied records every node that has an excluded descendant.
func (w *walker) markOccupied(n *html.Node) bool {
	found := false
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if w.markOccupied(c) {
			found = true
		}
	}
	if found {
		w.occupied[n] = true
	}
	return found || (dom.IsElement(n) && w.opts.Exclude(n))
}

func (w *walker) visit(n *html.Node) {
	if dom.IsElement(n) {
		if w.skip(n) {
			return
		}
		if !w.occupied[n] {
			if c, ok := w.candidate(n); ok {
				w.out = append(w.out, c)
				return
			}
		}
	} else if n.Type != html.DocumentNode {
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		w.visit(c)
	}
}

func (w *walker) skip(n *html.Node) bool {
	if skipTags[dom.Tag(n)] || dom.HasAttr(n, "hidden") {
		return true
	}
	if class, ok := dom.Attr(n, "class"); ok && offscreenClass.MatchString(class) {
		return true
	}
	if v, ok := dom.Attr(n, "contenteditable"); ok && !strings.EqualFold(v, "false") {
		return true
	}
	return w.opts.Exclude != nil && w.opts.Exclude(n)
}

func (w *walker) candidate(n *html.Node) (Candidate, bool) {
	for i := range w.rules {
		rule := &w.rules[i]
		if !rule.Matches(n) {
			continue
		}
		if text, ok := rule.Text(n); ok && w.priceShaped(text) {
			return Candidate{Node: n, Text: text, Rule: rule}, true
		}
	}

	text := strings.TrimSpace(dom.Text(n))
	if !w.priceShaped(text) {
		return Candidate{}, false
	}
	for _, child := range dom.Children(n) {
		if w.priceShaped(strings.TrimSpace(dom.Text(child))) {
			return Candidate{}, false
		}
	}
	return Candidate{Node: n, Text: text}, true
}

func (w *walker) priceShaped(text string) bool {
	return text != "" &&
		utf8.RuneCountInString(text) <= w.opts.MaxTextLength &&
		LooksLikePrice(text) &&
		!IsNonPrice(text)
}
