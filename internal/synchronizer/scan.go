package synchronizer

import (
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/GriffinCanCode/zentat/internal/conversion"
	"github.com/GriffinCanCode/zentat/internal/detection"
	"github.com/GriffinCanCode/zentat/internal/dom"
)

// ErrStructuralMismatch means a match could not be spliced into a single
// text node. The element is then rewritten as a whole.
var ErrStructuralMismatch = errors.New("synchronizer: match spans several text nodes")

// TitlePrefix starts the hint left on converted elements.
const TitlePrefix = "Original: "

// ConvertAll scans the whole tree and returns the number of elements converted.
func (s *Synchronizer) ConvertAll() int {
	start := time.Now()
	count := s.scan(s.tree.Body())
	s.metrics.RecordScan("full", time.Since(start))
	return count
}

// ConvertNode scans the subtree rooted at n. Nodes that are detached or
// inside a converted element are left alone.
func (s *Synchronizer) ConvertNode(n *html.Node) int {
	if n == nil || !s.tree.Attached(n) || s.markedOwner(n) != nil {
		return 0
	}
	start := time.Now()
	count := s.scan(n)
	s.metrics.RecordScan("subtree", time.Since(start))
	return count
}

func (s *Synchronizer) scan(root *html.Node) int {
	if root == nil || !s.allowed() || s.table.Empty() {
		return 0
	}
	candidates := detection.Walk(root, detection.WalkOptions{
		Hostname:      s.cfg.Hostname,
		Registry:      s.cfg.Registry,
		MaxTextLength: s.cfg.MaxTextLength,
		Exclude:       s.isMarked,
	})
	count := 0
	for _, c := range candidates {
		if s.markedOwner(c.Node) != nil {
			continue
		}
		if s.convert(c) {
			count++
		}
	}
	s.metrics.SetMarksActive(len(s.marks))
	return count
}

func (s *Synchronizer) convert(c detection.Candidate) bool {
	prices := s.parser.Parse(c.Text, s.current.Currencies, s.cfg.Hostname)
	if len(prices) == 0 {
		s.metrics.RecordSkip("parse")
		return false
	}

	used := make([]detection.ParsedPrice, 0, len(prices))
	results := make([]conversion.Result, 0, len(prices))
	for _, p := range prices {
		r, ok := conversion.Convert(p, s.table, s.current.Precision, s.cfg.Unit)
		if !ok {
			s.metrics.RecordSkip("no_rate")
			s.logger.Debug("No rate for price", zap.String("currency", p.Currency), zap.String("original", p.Original))
			continue
		}
		used = append(used, p)
		results = append(results, r)
	}
	if len(results) == 0 {
		return false
	}

	s.apply(c, used, results)
	for _, r := range results {
		s.metrics.RecordConversion(r.Currency)
	}
	return true
}

func (s *Synchronizer) apply(c detection.Candidate, prices []detection.ParsedPrice, results []conversion.Result) {
	s.applying = true
	defer func() { s.applying = false }()

	n := c.Node
	title, hadTitle := dom.Attr(n, "title")
	snapshot := s.tree.InnerHTML(n)

	full := dom.Text(n)
	if c.Rule != nil || strings.TrimSpace(full) != c.Text {
		s.replaceWhole(c, results)
	} else if err := s.splice(n, full, c.Text, prices, results); err != nil {
		s.logger.Debug("Falling back to whole-element replacement", zap.Error(err))
		s.replaceWhole(c, results)
	}

	s.tree.SetAttr(n, "title", TitlePrefix+c.Text)
	s.marks[n] = &Mark{
		ID:        uuid.NewString(),
		Node:      n,
		Snapshot:  snapshot,
		Title:     title,
		HadTitle:  hadTitle,
		Original:  c.Text,
		Converted: results,
		MarkedAt:  time.Now(),
	}
}

// replaceWhole swaps the element's visible text for the joined results.
func (s *Synchronizer) replaceWhole(c detection.Candidate, results []conversion.Result) {
	parts := make([]string, len(results))
	for i, r := range results {
		parts[i] = r.Formatted
	}
	text := strings.Join(parts, " ")

	if c.Rule == nil || c.Rule.WriteXPath == "" {
		s.tree.SetText(c.Node, text)
		return
	}
	for _, h := range c.Rule.Hidden(c.Node) {
		s.tree.SetAttr(h, "style", "display: none")
	}
	target := c.Rule.WriteTarget(c.Node)
	s.tree.SetText(target, text)
	if target != c.Node {
		s.tree.SetAttr(target, "style", "font-weight: bold")
	}
}

type edit struct {
	start, end int
	text       string
}

// splice rewrites matched substrings inside their owning text nodes,
// preserving the surrounding markup.
func (s *Synchronizer) splice(n *html.Node, full, trimmed string, prices []detection.ParsedPrice, results []conversion.Result) error {
	offset := strings.Index(full, trimmed)
	if offset < 0 {
		offset = 0
	}
	edits, err := planEdits(full, offset, prices, results)
	if err != nil {
		return err
	}

	segs := dom.TextSegments(n)
	data := make(map[*html.Node]string, len(segs))
	var order []*html.Node
	for _, e := range edits {
		seg, ok := owningSegment(segs, e)
		if !ok {
			return ErrStructuralMismatch
		}
		cur, seen := data[seg.Node]
		if !seen {
			cur = seg.Node.Data
			order = append(order, seg.Node)
		}
		lo, hi := e.start-seg.Start, e.end-seg.Start
		data[seg.Node] = cur[:lo] + e.text + cur[hi:]
	}
	for _, node := range order {
		s.tree.SetData(node, data[node])
	}
	return nil
}

// planEdits returns non-overlapping edits sorted back-to-front. Recorded
// offsets are used when they still match the text; otherwise each original
// substring is located again, longest first.
func planEdits(full string, offset int, prices []detection.ParsedPrice, results []conversion.Result) ([]edit, error) {
	edits := make([]edit, 0, len(prices))
	verified := true
	for i, p := range prices {
		start, end := offset+p.Start, offset+p.End
		if start < 0 || end > len(full) || full[start:end] != p.Original {
			verified = false
			break
		}
		edits = append(edits, edit{start: start, end: end, text: results[i].Formatted})
	}

	if !verified {
		edits = edits[:0]
		idx := make([]int, len(prices))
		for i := range idx {
			idx[i] = i
		}
		sort.SliceStable(idx, func(a, b int) bool {
			return len(prices[idx[a]].Original) > len(prices[idx[b]].Original)
		})
		for _, i := range idx {
			e, ok := locate(full, prices[i].Original, edits)
			if !ok {
				return nil, ErrStructuralMismatch
			}
			e.text = results[i].Formatted
			edits = append(edits, e)
		}
	}

	sort.Slice(edits, func(a, b int) bool { return edits[a].start > edits[b].start })
	return edits, nil
}

// locate finds the first occurrence of sub that overlaps no claimed edit.
func locate(full, sub string, claimed []edit) (edit, bool) {
	if sub == "" {
		return edit{}, false
	}
	from := 0
	for from <= len(full)-len(sub) {
		i := strings.Index(full[from:], sub)
		if i < 0 {
			return edit{}, false
		}
		e := edit{start: from + i, end: from + i + len(sub)}
		free := true
		for _, c := range claimed {
			if e.start < c.end && c.start < e.end {
				free = false
				break
			}
		}
		if free {
			return e, true
		}
		from = e.start + 1
	}
	return edit{}, false
}

func owningSegment(segs []dom.Segment, e edit) (dom.Segment, bool) {
	for _, seg := range segs {
		if seg.Start <= e.start && e.end <= seg.End {
			return seg, true
		}
	}
	return dom.Segment{}, false
}
