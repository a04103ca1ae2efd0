package detection

import (
	"fmt"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/net/html"

	"github.com/GriffinCanCode/zentat/internal/dom"
)

// ContainerRule describes a structured price container: an element whose
// visible text is assembled from several children and therefore has to be
// replaced as a whole.
type ContainerRule struct {
	Name string
	// Hosts are glob patterns; an empty list applies everywhere.
	Hosts    []string
	Selector string
	// TextSelector or TextXPath locate the descendant holding the readable
	// price. Without either, the container's own text is used.
	TextSelector string
	TextXPath    string
	// WriteXPath locates the descendant that receives the converted text.
	WriteXPath string
	// HideSelector matches descendants hidden once the container is converted.
	HideSelector string
}

// AppliesTo reports whether the rule is active on hostname.
func (r ContainerRule) AppliesTo(hostname string) bool {
	if len(r.Hosts) == 0 {
		return true
	}
	host := normalizeHost(hostname)
	if host == "" {
		return false
	}
	for _, p := range r.Hosts {
		if ok, err := doublestar.Match(strings.ToLower(p), host); err == nil && ok {
			return true
		}
	}
	return false
}

// Matches reports whether n is a container of this kind.
func (r ContainerRule) Matches(n *html.Node) bool {
	return dom.Matches(n, r.Selector)
}

// Text returns the readable price text of container n.
func (r ContainerRule) Text(n *html.Node) (string, bool) {
	src := n
	switch {
	case r.TextXPath != "":
		found, err := dom.XPathFirst(n, r.TextXPath)
		if err != nil || found == nil {
			return "", false
		}
		src = found
	case r.TextSelector != "":
		if found := dom.SelectFirst(n, r.TextSelector); found != nil {
			src = found
		}
	}
	text := strings.TrimSpace(dom.Text(src))
	return text, text != ""
}

// WriteTarget returns the node whose text receives the converted amount.
func (r ContainerRule) WriteTarget(n *html.Node) *html.Node {
	if r.WriteXPath == "" {
		return n
	}
	found, err := dom.XPathFirst(n, r.WriteXPath)
	if err != nil || found == nil {
		return n
	}
	return found
}

// Hidden returns the descendants to hide after conversion.
func (r ContainerRule) Hidden(n *html.Node) []*html.Node {
	if r.HideSelector == "" {
		return nil
	}
	return dom.Select(n, r.HideSelector)
}

func (r ContainerRule) validate() error {
	if r.Selector == "" {
		return fmt.Errorf("rule %q: selector required", r.Name)
	}
	for _, p := range r.Hosts {
		if !doublestar.ValidatePattern(p) {
			return fmt.Errorf("rule %q: invalid host pattern %q", r.Name, p)
		}
	}
	for _, expr := range []string{r.TextXPath, r.WriteXPath} {
		if expr == "" {
			continue
		}
		if _, err := dom.XPathFirst(&html.Node{Type: html.DocumentNode}, expr); err != nil {
			return fmt.Errorf("rule %q: %w", r.Name, err)
		}
	}
	return nil
}

// Registry holds container rules keyed by hostname patterns.
type Registry struct {
	rules []ContainerRule
}

// NewRegistry creates a registry from rules, rejecting invalid ones.
func NewRegistry(rules ...ContainerRule) (*Registry, error) {
	r := &Registry{}
	for _, rule := range rules {
		if err := r.Register(rule); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds a rule.
func (r *Registry) Register(rule ContainerRule) error {
	if err := rule.validate(); err != nil {
		return err
	}
	r.rules = append(r.rules, rule)
	return nil
}

// ForHost returns the rules active on hostname, in registration order.
func (r *Registry) ForHost(hostname string) []ContainerRule {
	if r == nil {
		return nil
	}
	var out []ContainerRule
	for _, rule := range r.rules {
		if rule.AppliesTo(hostname) {
			out = append(out, rule)
		}
	}
	return out
}

// Len returns the number of rules.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.rules)
}

// DefaultRules returns the built-in structured containers.
func DefaultRules() []ContainerRule {
	return []ContainerRule{
		{
			// Split whole/fraction spans with a screen-reader copy of the full price.
			Name:         "a-price",
			Selector:     ".a-price",
			TextSelector: ".a-offscreen",
		},
		{
			// Visual digits are aria-hidden; the readable price sits in an
			// absolutely positioned accessibility span.
			Name:         "bol-price",
			Hosts:        []string{"bol.com", "*.bol.com"},
			Selector:     ".font-produkt",
			TextXPath:    `.//span[contains(@style, "position: absolute")]`,
			WriteXPath:   `.//span[contains(@style, "position: absolute")]`,
			HideSelector: `[aria-hidden="true"]`,
		},
	}
}

// DefaultRegistry returns a registry holding DefaultRules.
func DefaultRegistry() *Registry {
	r, err := NewRegistry(DefaultRules()...)
	if err != nil {
		panic(err)
	}
	return r
}
