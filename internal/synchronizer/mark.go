package synchronizer

import (
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/GriffinCanCode/zentat/internal/conversion"
)

// Mark records that an element shows converted prices and how to undo it.
type Mark struct {
	ID   string
	Node *html.Node
	// Snapshot is the element's inner markup before conversion.
	Snapshot string
	Title    string
	HadTitle bool
	// Original is the price text the conversion was computed from.
	Original  string
	Converted []conversion.Result
	MarkedAt  time.Time
}

// Count returns the number of prices converted in the element.
func (m *Mark) Count() int {
	return len(m.Converted)
}

// Marks returns the marks on attached elements in document order. Marks on
// detached elements are forgotten.
func (s *Synchronizer) Marks() []*Mark {
	s.prune()
	out := make([]*Mark, 0, len(s.marks))
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if m, ok := s.marks[n]; ok {
			out = append(out, m)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	if body := s.tree.Body(); body != nil {
		walk(body)
	}
	return out
}

// Revert restores every marked element's original markup and title and
// clears the marks. It returns the number of elements restored.
func (s *Synchronizer) Revert() int {
	marks := s.Marks()
	s.applying = true
	defer func() { s.applying = false }()

	restored := 0
	for i := len(marks) - 1; i >= 0; i-- {
		m := marks[i]
		if err := s.tree.SetInnerHTML(m.Node, m.Snapshot); err != nil {
			s.logger.Warn("Failed to restore element", zap.String("mark", m.ID), zap.Error(err))
			continue
		}
		s.restoreTitle(m)
		delete(s.marks, m.Node)
		restored++
	}
	s.metrics.AddReverts(restored)
	s.metrics.SetMarksActive(len(s.marks))
	if restored > 0 {
		s.logger.Debug("Reverted conversions", zap.Int("restored", restored))
	}
	return restored
}

// clearMark forgets the mark on n without restoring its markup; the
// element's current content is the new baseline.
func (s *Synchronizer) clearMark(n *html.Node) {
	m, ok := s.marks[n]
	if !ok {
		return
	}
	s.applying = true
	s.restoreTitle(m)
	s.applying = false
	delete(s.marks, n)
	s.metrics.SetMarksActive(len(s.marks))
}

func (s *Synchronizer) restoreTitle(m *Mark) {
	if m.HadTitle {
		s.tree.SetAttr(m.Node, "title", m.Title)
	} else {
		s.tree.RemoveAttr(m.Node, "title")
	}
}

func (s *Synchronizer) isMarked(n *html.Node) bool {
	_, ok := s.marks[n]
	return ok
}

// markedOwner returns the marked element that is n or contains n.
func (s *Synchronizer) markedOwner(n *html.Node) *html.Node {
	for p := n; p != nil; p = p.Parent {
		if _, ok := s.marks[p]; ok {
			return p
		}
	}
	return nil
}

func (s *Synchronizer) prune() {
	for n := range s.marks {
		if !s.tree.Attached(n) {
			delete(s.marks, n)
		}
	}
}
