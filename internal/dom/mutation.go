package dom

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ErrObserve is returned when an observer cannot be attached.
var ErrObserve = errors.New("dom: cannot observe node")

// MutationKind classifies a tree change.
type MutationKind int

const (
	// ChildList means nodes were inserted under or removed from Target.
	ChildList MutationKind = iota
	// CharacterData means the text of the Target text node changed.
	CharacterData
	// Attributes means an attribute of the Target element changed.
	Attributes
)

func (k MutationKind) String() string {
	switch k {
	case ChildList:
		return "childList"
	case CharacterData:
		return "characterData"
	case Attributes:
		return "attributes"
	default:
		return "unknown"
	}
}

// Mutation describes one change applied through a Document.
type Mutation struct {
	Kind    MutationKind
	Target  *html.Node
	Added   []*html.Node
	Removed []*html.Node
	Attr    string
	OldData string
}

// Handle identifies an attached observer.
type Handle int

type observer struct {
	root *html.Node
	fn   func([]Mutation)
}

// Document is a parsed tree whose changes are reported to observers.
// It is not safe for concurrent use; callers confine it to one goroutine.
type Document struct {
	root      *html.Node
	observers map[Handle]*observer
	order     []Handle
	next      Handle
}

// NewDocument wraps an already parsed tree.
func NewDocument(root *html.Node) *Document {
	return &Document{
		root:      root,
		observers: make(map[Handle]*observer),
	}
}

// Root returns the document node.
func (d *Document) Root() *html.Node {
	return d.root
}

// Body returns the body element, or the root when the tree has none.
func (d *Document) Body() *html.Node {
	var find func(*html.Node) *html.Node
	find = func(n *html.Node) *html.Node {
		if n.Type == html.ElementNode && n.Data == "body" {
			return n
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if b := find(c); b != nil {
				return b
			}
		}
		return nil
	}
	if b := find(d.root); b != nil {
		return b
	}
	return d.root
}

// Attached reports whether n is still part of the document.
func (d *Document) Attached(n *html.Node) bool {
	return Contains(d.root, n)
}

// Observe registers fn for every mutation whose target lies under root.
func (d *Document) Observe(root *html.Node, fn func([]Mutation)) (Handle, error) {
	if root == nil || fn == nil {
		return 0, fmt.Errorf("%w: nil root or callback", ErrObserve)
	}
	if !d.Attached(root) {
		return 0, fmt.Errorf("%w: root is detached", ErrObserve)
	}
	d.next++
	h := d.next
	d.observers[h] = &observer{root: root, fn: fn}
	d.order = append(d.order, h)
	return h, nil
}

// Disconnect detaches an observer. Unknown handles are ignored.
func (d *Document) Disconnect(h Handle) {
	if _, ok := d.observers[h]; !ok {
		return
	}
	delete(d.observers, h)
	for i, o := range d.order {
		if o == h {
			d.order = append(d.order[:i], d.order[i+1:]...)
			break
		}
	}
}

// SetText replaces all children of n with a single text node.
func (d *Document) SetText(n *html.Node, text string) {
	removed := detachChildren(n)
	var added []*html.Node
	if text != "" {
		t := &html.Node{Type: html.TextNode, Data: text}
		n.AppendChild(t)
		added = append(added, t)
	}
	d.notify(Mutation{Kind: ChildList, Target: n, Added: added, Removed: removed})
}

// SetData changes the content of a text node.
func (d *Document) SetData(n *html.Node, data string) {
	if n.Type != html.TextNode || n.Data == data {
		return
	}
	old := n.Data
	n.Data = data
	d.notify(Mutation{Kind: CharacterData, Target: n, OldData: old})
}

// SetAttr sets an attribute on an element.
func (d *Document) SetAttr(n *html.Node, key, val string) {
	if old, ok := Attr(n, key); ok && old == val {
		return
	}
	setAttr(n, key, val)
	d.notify(Mutation{Kind: Attributes, Target: n, Attr: strings.ToLower(key)})
}

// RemoveAttr deletes an attribute from an element.
func (d *Document) RemoveAttr(n *html.Node, key string) {
	if removeAttr(n, key) {
		d.notify(Mutation{Kind: Attributes, Target: n, Attr: strings.ToLower(key)})
	}
}

// SetInnerHTML replaces the children of n with the parsed fragment.
func (d *Document) SetInnerHTML(n *html.Node, markup string) error {
	nodes, err := html.ParseFragment(strings.NewReader(markup), fragmentContext(n))
	if err != nil {
		return fmt.Errorf("failed to parse fragment: %w", err)
	}
	removed := detachChildren(n)
	for _, c := range nodes {
		n.AppendChild(c)
	}
	d.notify(Mutation{Kind: ChildList, Target: n, Added: nodes, Removed: removed})
	return nil
}

// AppendHTML parses markup and appends the resulting nodes to n.
func (d *Document) AppendHTML(n *html.Node, markup string) error {
	nodes, err := html.ParseFragment(strings.NewReader(markup), fragmentContext(n))
	if err != nil {
		return fmt.Errorf("failed to parse fragment: %w", err)
	}
	for _, c := range nodes {
		n.AppendChild(c)
	}
	d.notify(Mutation{Kind: ChildList, Target: n, Added: nodes})
	return nil
}

// AppendChild attaches a detached node under parent.
func (d *Document) AppendChild(parent, child *html.Node) {
	if child.Parent != nil {
		d.Remove(child)
	}
	parent.AppendChild(child)
	d.notify(Mutation{Kind: ChildList, Target: parent, Added: []*html.Node{child}})
}

// Remove detaches n from its parent.
func (d *Document) Remove(n *html.Node) {
	parent := n.Parent
	if parent == nil {
		return
	}
	parent.RemoveChild(n)
	d.notify(Mutation{Kind: ChildList, Target: parent, Removed: []*html.Node{n}})
}

// Render serializes the whole document.
func (d *Document) Render() (string, error) {
	return Render(d.root)
}

// InnerHTML serializes the children of n.
func (d *Document) InnerHTML(n *html.Node) string {
	return InnerHTML(n)
}

func (d *Document) notify(m Mutation) {
	if len(d.order) == 0 {
		return
	}
	handles := append([]Handle(nil), d.order...)
	for _, h := range handles {
		o, ok := d.observers[h]
		if !ok || !Contains(o.root, m.Target) {
			continue
		}
		o.fn([]Mutation{m})
	}
}

// fragmentContext returns an element usable as the parsing context for n's children.
func fragmentContext(n *html.Node) *html.Node {
	if n.Type == html.ElementNode {
		if a := atom.Lookup([]byte(n.Data)); a != n.DataAtom {
			return &html.Node{Type: html.ElementNode, Data: n.Data, DataAtom: a}
		}
		return n
	}
	return &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
}
