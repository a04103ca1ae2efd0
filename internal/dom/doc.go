// Package dom provides an observable markup tree built on golang.org/x/net/html.
//
// A Document owns a parsed tree and routes every structural, text and
// attribute change through its own methods so that registered observers
// see each change as a Mutation, the way a browser's mutation observer would.
//
// Built on specialized libraries:
//   - x/net/html: parsing, fragments and rendering
//   - goquery: CSS selector queries
//   - htmlquery: XPath queries and inner markup serialization
//   - bluemonday: optional sanitizing on load
//   - chardet, mimetype: charset and content sniffing
//
// Example Usage:
//
//	doc, err := dom.Parse(`<p>Price: $19.99</p>`)
//	h, err := doc.Observe(doc.Body(), func(ms []dom.Mutation) { ... })
//	doc.SetText(node, "0.52 ZEC")
//	doc.Disconnect(h)
package dom
