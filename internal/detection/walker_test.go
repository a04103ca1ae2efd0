package detection

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"github.com/GriffinCanCode/zentat/internal/dom"
)

func parseBody(t *testing.T, markup string) *html.Node {
	t.Helper()
	doc, err := dom.Parse(markup)
	require.NoError(t, err)
	return doc.Body()
}

func candidateTexts(cands []Candidate) []string {
	out := make([]string, 0, len(cands))
	for _, c := range cands {
		out = append(out, c.Text)
	}
	return out
}

func TestWalk(t *testing.T) {
	tests := []struct {
		name   string
		markup string
		want   []string
	}{
		{
			name:   "innermost element",
			markup: `<div><p><span>$5.00</span></p></div>`,
			want:   []string{"$5.00"},
		},
		{
			name:   "sibling prices",
			markup: `<ul><li>Was $30</li><li>Now $20</li></ul>`,
			want:   []string{"Was $30", "Now $20"},
		},
		{
			name:   "split text within one element",
			markup: `<p>Only <b>$</b>5 today</p>`,
			want:   []string{"Only $5 today"},
		},
		{
			name:   "ratings are not prices",
			markup: `<div><span>4.5 out of 5 stars</span><span>£12</span></div>`,
			want:   []string{"£12"},
		},
		{
			name: "skipped subtrees",
			markup: `<div>
				<script>var p = "$5";</script>
				<textarea>$6</textarea>
				<code>$7</code>
				<p hidden>$8</p>
				<span class="sr-only">$9</span>
				<div contenteditable="true">$10</div>
				<div contenteditable="false">$11</div>
			</div>`,
			want: []string{"$11"},
		},
		{
			name:   "no prices",
			markup: `<p>Hello world</p>`,
			want:   []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := parseBody(t, tt.markup)
			got := Walk(body, WalkOptions{Registry: DefaultRegistry()})
			assert.Equal(t, tt.want, candidateTexts(got))
		})
	}
}

func TestWalkMaxTextLength(t *testing.T) {
	long := "$5 " + strings.Repeat("x", 600)
	body := parseBody(t, `<p>`+long+`</p><p>$6</p>`)

	got := Walk(body, WalkOptions{})
	assert.Equal(t, []string{"$6"}, candidateTexts(got))

	got = Walk(body, WalkOptions{MaxTextLength: 1000})
	assert.Len(t, got, 2)
}

func TestWalkExclude(t *testing.T) {
	body := parseBody(t, `<div id="outer">Total: <span id="done">0.1 ZEC</span> $5</div><p id="other">$7</p>`)
	done := dom.SelectFirst(body, "#done")

	got := Walk(body, WalkOptions{Exclude: func(n *html.Node) bool { return n == done }})

	// The element holding an excluded descendant is not a candidate
	assert.Equal(t, []string{"$7"}, candidateTexts(got))
}

func TestWalkAmazonContainer(t *testing.T) {
	body := parseBody(t, `<span class="a-price"><span class="a-offscreen">$19.99</span><span aria-hidden="true"><span class="a-price-symbol">$</span><span class="a-price-whole">19<span class="a-price-decimal">.</span></span><span class="a-price-fraction">99</span></span></span>`)

	got := Walk(body, WalkOptions{Registry: DefaultRegistry()})
	require.Len(t, got, 1)
	assert.Equal(t, "$19.99", got[0].Text)
	require.NotNil(t, got[0].Rule)
	assert.Equal(t, "a-price", got[0].Rule.Name)
	assert.True(t, dom.Matches(got[0].Node, ".a-price"))
}

func TestWalkBolContainer(t *testing.T) {
	markup := `<div class="font-produkt"><span aria-hidden="true">149<sup>00</sup></span><span style="position: absolute; left: -9999px">149,00 euro</span></div>`

	t.Run("on bol.com", func(t *testing.T) {
		body := parseBody(t, markup)
		got := Walk(body, WalkOptions{Hostname: "www.bol.com", Registry: DefaultRegistry()})
		require.Len(t, got, 1)
		require.NotNil(t, got[0].Rule)
		assert.Equal(t, "bol-price", got[0].Rule.Name)
		assert.Equal(t, "149,00 euro", got[0].Text)

		hidden := got[0].Rule.Hidden(got[0].Node)
		require.Len(t, hidden, 1)
		assert.Equal(t, "14900", dom.Text(hidden[0]))
		target := got[0].Rule.WriteTarget(got[0].Node)
		assert.Equal(t, "149,00 euro", dom.Text(target))
	})

	t.Run("elsewhere", func(t *testing.T) {
		body := parseBody(t, markup)
		got := Walk(body, WalkOptions{Hostname: "example.com", Registry: DefaultRegistry()})
		for _, c := range got {
			assert.Nil(t, c.Rule)
		}
	})
}

func TestDetect(t *testing.T) {
	body := parseBody(t, `<p>$5</p><p>¥300</p><p>Free shipping</p>`)

	got := Detect(body, NewParser(), []string{"USD"}, WalkOptions{})
	require.Len(t, got, 1)
	assert.Equal(t, "$5", got[0].Text)
	require.Len(t, got[0].Prices, 1)
	assert.Equal(t, "USD", got[0].Prices[0].Currency)
}

func TestRegistry(t *testing.T) {
	reg := DefaultRegistry()
	assert.Equal(t, 2, reg.Len())
	assert.Len(t, reg.ForHost("www.bol.com"), 2)
	assert.Len(t, reg.ForHost("bol.com"), 2)
	assert.Len(t, reg.ForHost("amazon.com"), 1)
	assert.Len(t, reg.ForHost(""), 1)

	var nilReg *Registry
	assert.Nil(t, nilReg.ForHost("bol.com"))
	assert.Equal(t, 0, nilReg.Len())
}

func TestRegistryRejectsInvalidRules(t *testing.T) {
	tests := []struct {
		name string
		rule ContainerRule
	}{
		{"missing selector", ContainerRule{Name: "x"}},
		{"bad host pattern", ContainerRule{Name: "x", Selector: ".p", Hosts: []string{"[shop"}}},
		{"bad xpath", ContainerRule{Name: "x", Selector: ".p", TextXPath: "//span[@"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRegistry(tt.rule)
			assert.Error(t, err)
		})
	}

	reg, err := NewRegistry(ContainerRule{Name: "shop", Hosts: []string{"*.shop.example"}, Selector: ".price"})
	require.NoError(t, err)
	assert.Len(t, reg.ForHost("eu.shop.example"), 1)
	assert.Empty(t, reg.ForHost("shop.example"))
}
