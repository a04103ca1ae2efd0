package synchronizer

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/sync/errgroup"

	"github.com/GriffinCanCode/zentat/internal/conversion"
	"github.com/GriffinCanCode/zentat/internal/detection"
	"github.com/GriffinCanCode/zentat/internal/dom"
	"github.com/GriffinCanCode/zentat/internal/eventloop"
	"github.com/GriffinCanCode/zentat/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/zentat/internal/rates"
	"github.com/GriffinCanCode/zentat/internal/settings"
)

// DefaultPollInterval is the period of the polling fallback.
const DefaultPollInterval = 2 * time.Second

// Tree is the mutable, observable document the synchronizer rewrites.
// *dom.Document implements it.
type Tree interface {
	Body() *html.Node
	Attached(n *html.Node) bool
	Observe(root *html.Node, fn func([]dom.Mutation)) (dom.Handle, error)
	Disconnect(h dom.Handle)
	SetText(n *html.Node, text string)
	SetData(n *html.Node, data string)
	SetAttr(n *html.Node, key, val string)
	RemoveAttr(n *html.Node, key string)
	SetInnerHTML(n *html.Node, markup string) error
	InnerHTML(n *html.Node) string
}

// RateProvider supplies the rate table and its changes.
type RateProvider interface {
	Current(ctx context.Context) (rates.Table, error)
	Subscribe(fn func(rates.Table)) func()
}

// SettingsProvider supplies the user settings and their changes.
type SettingsProvider interface {
	Current(ctx context.Context) (settings.Settings, error)
	Subscribe(fn func(settings.Settings)) func()
}

// Config tunes a synchronizer.
type Config struct {
	// Hostname selects site-specific matchers, containers and the allow check.
	Hostname      string
	Unit          string
	MaxTextLength int
	PollInterval  time.Duration
	Registry      *detection.Registry
	Parser        *detection.Parser
}

// DefaultConfig returns the configuration used for hostname.
func DefaultConfig(hostname string) Config {
	return Config{
		Hostname:      hostname,
		Unit:          conversion.DefaultUnit,
		MaxTextLength: detection.DefaultMaxTextLength,
		PollInterval:  DefaultPollInterval,
		Registry:      detection.DefaultRegistry(),
	}
}

// Synchronizer keeps a tree's prices converted as it changes. All methods
// must be called from the scheduler's execution context.
type Synchronizer struct {
	tree          Tree
	sched         eventloop.Scheduler
	rateSource    RateProvider
	settingSource SettingsProvider
	cfg           Config
	parser        *detection.Parser
	logger        *zap.Logger
	metrics       *monitoring.Metrics

	table   rates.Table
	current settings.Settings

	marks    map[*html.Node]*Mark
	applying bool

	pending     []*html.Node
	pendingSet  map[*html.Node]bool
	frameCancel eventloop.Cancel
	pollCancel  eventloop.Cancel
	handle      dom.Handle
	observing   bool
	active      bool
	unsubscribe []func()
}

// New creates a synchronizer. Nothing happens until Start.
func New(tree Tree, sched eventloop.Scheduler, rp RateProvider, sp SettingsProvider, cfg Config) *Synchronizer {
	if cfg.Unit == "" {
		cfg.Unit = conversion.DefaultUnit
	}
	if cfg.MaxTextLength <= 0 {
		cfg.MaxTextLength = detection.DefaultMaxTextLength
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	parser := cfg.Parser
	if parser == nil {
		parser = detection.NewParser(detection.DefaultMatchers()...)
	}
	return &Synchronizer{
		tree:          tree,
		sched:         sched,
		rateSource:    rp,
		settingSource: sp,
		cfg:           cfg,
		parser:        parser,
		logger:        zap.NewNop(),
		marks:         make(map[*html.Node]*Mark),
		pendingSet:    make(map[*html.Node]bool),
		current:       settings.Defaults(),
	}
}

// WithLogger sets the logger.
func (s *Synchronizer) WithLogger(logger *zap.Logger) *Synchronizer {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// WithMetrics sets the metrics collector.
func (s *Synchronizer) WithMetrics(m *monitoring.Metrics) *Synchronizer {
	s.metrics = m
	return s
}

// Start loads rates and settings, subscribes to their changes and, when the
// site is enabled and allowed, converts the tree and begins tracking it.
// It returns the number of elements converted by the initial scan.
func (s *Synchronizer) Start(ctx context.Context) (int, error) {
	var (
		table   rates.Table
		current settings.Settings
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		t, err := s.rateSource.Current(gctx)
		if err != nil {
			return fmt.Errorf("failed to load rates: %w", err)
		}
		table = t
		return nil
	})
	g.Go(func() error {
		c, err := s.settingSource.Current(gctx)
		if err != nil {
			return fmt.Errorf("failed to load settings: %w", err)
		}
		current = c
		return nil
	})
	if err := g.Wait(); err != nil {
		return 0, err
	}
	s.table = table
	s.current = current.Normalize()

	s.unsubscribe = append(s.unsubscribe,
		s.rateSource.Subscribe(func(t rates.Table) {
			s.sched.Post(func() { s.onRates(t) })
		}),
		s.settingSource.Subscribe(func(c settings.Settings) {
			s.sched.Post(func() { s.onSettings(c) })
		}),
	)

	return s.activate(), nil
}

// Stop cancels the pending batch and the poll timer, forgets pending roots
// and detaches the observer. Existing marks stay in place.
func (s *Synchronizer) Stop() {
	if s.frameCancel != nil {
		s.frameCancel()
		s.frameCancel = nil
	}
	if s.pollCancel != nil {
		s.pollCancel()
		s.pollCancel = nil
	}
	if s.observing {
		s.tree.Disconnect(s.handle)
		s.observing = false
	}
	s.pending = nil
	clear(s.pendingSet)
	s.active = false
}

// Close stops the synchronizer and drops its provider subscriptions.
func (s *Synchronizer) Close() {
	s.Stop()
	for _, unsub := range s.unsubscribe {
		unsub()
	}
	s.unsubscribe = nil
}

// Active reports whether the tree is being tracked.
func (s *Synchronizer) Active() bool {
	return s.active
}

// Observing reports whether mutation notifications are attached. When
// false while active, only polling keeps the tree in sync.
func (s *Synchronizer) Observing() bool {
	return s.observing
}

// Settings returns the settings in effect.
func (s *Synchronizer) Settings() settings.Settings {
	return s.current
}

// Rates returns the rate table in effect.
func (s *Synchronizer) Rates() rates.Table {
	return s.table
}

func (s *Synchronizer) allowed() bool {
	return s.current.Enabled && settings.IsSiteAllowed(s.cfg.Hostname, s.current)
}

func (s *Synchronizer) activate() int {
	if !s.allowed() {
		s.logger.Debug("Conversion disabled for site",
			zap.String("hostname", s.cfg.Hostname),
			zap.Bool("enabled", s.current.Enabled))
		return 0
	}

	count := s.ConvertAll()

	h, err := s.tree.Observe(s.tree.Body(), s.onMutations)
	if err != nil {
		s.logger.Warn("Mutation observer unavailable, polling only", zap.Error(err))
	} else {
		s.handle = h
		s.observing = true
	}
	s.pollCancel = s.sched.Every(s.cfg.PollInterval, s.poll)
	s.active = true

	s.logger.Debug("Synchronizer active",
		zap.String("hostname", s.cfg.Hostname),
		zap.Int("converted", count),
		zap.Bool("observing", s.observing))
	return count
}

// refresh discards every conversion and starts over under the current
// rates and settings.
func (s *Synchronizer) refresh() {
	s.Stop()
	s.Revert()
	s.activate()
}

func (s *Synchronizer) onRates(t rates.Table) {
	s.table = t
	if !s.current.Enabled {
		return
	}
	s.refresh()
}

func (s *Synchronizer) onSettings(c settings.Settings) {
	s.current = c.Normalize()
	s.refresh()
}

func (s *Synchronizer) onMutations(mutations []dom.Mutation) {
	if s.applying {
		return
	}
	for _, m := range mutations {
		switch m.Kind {
		case dom.ChildList:
			s.onChildList(m)
		case dom.CharacterData:
			if owner := s.markedOwner(m.Target); owner != nil {
				s.reconvert(owner)
			} else if parent := dom.ParentElement(m.Target); parent != nil {
				s.schedule(parent)
			}
		case dom.Attributes:
			if s.markedOwner(m.Target) == nil {
				s.schedule(m.Target)
			}
		}
	}
	if len(s.pending) > 0 && s.frameCancel == nil {
		s.frameCancel = s.sched.RequestFrame(func() { s.flush() })
	}
}

func (s *Synchronizer) onChildList(m dom.Mutation) {
	// Any structural change inside a mark invalidates its snapshot.
	if owner := s.markedOwner(m.Target); owner != nil {
		if len(m.Added) > 0 || len(m.Removed) > 0 {
			s.reconvert(owner)
		}
		return
	}

	textAdded := false
	for _, n := range m.Added {
		switch n.Type {
		case html.ElementNode:
			s.schedule(n)
		case html.TextNode:
			textAdded = true
		}
	}
	if textAdded && dom.IsElement(m.Target) {
		s.schedule(m.Target)
	}
}

// reconvert clears the mark on n and converts it again immediately.
func (s *Synchronizer) reconvert(n *html.Node) {
	s.clearMark(n)
	count := s.ConvertNode(n)
	s.logger.Debug("Reconverted changed element", zap.Int("converted", count))
}

func (s *Synchronizer) schedule(n *html.Node) {
	if n == nil || s.pendingSet[n] {
		return
	}
	s.pendingSet[n] = true
	s.pending = append(s.pending, n)
}

// Flush processes pending roots now instead of on the next frame and
// returns the number of elements converted.
func (s *Synchronizer) Flush() int {
	if s.frameCancel != nil {
		s.frameCancel()
	}
	return s.flush()
}

// Pending returns the number of roots waiting for the next batch.
func (s *Synchronizer) Pending() int {
	return len(s.pending)
}

// flush processes one coalesced batch of pending roots in scheduling order.
func (s *Synchronizer) flush() int {
	s.frameCancel = nil
	if len(s.pending) == 0 {
		return 0
	}
	roots := s.pending
	s.pending = nil
	clear(s.pendingSet)

	start := time.Now()
	total := 0
	for _, root := range roots {
		if !s.tree.Attached(root) || s.markedOwner(root) != nil {
			continue
		}
		total += s.scan(root)
	}
	s.metrics.RecordScan("batch", time.Since(start))
	if total > 0 {
		s.logger.Debug("Converted batch", zap.Int("roots", len(roots)), zap.Int("converted", total))
	}
	return total
}

func (s *Synchronizer) poll() {
	start := time.Now()
	count := s.scan(s.tree.Body())
	s.metrics.RecordScan("poll", time.Since(start))
	if count > 0 {
		s.logger.Debug("Poll converted elements", zap.Int("converted", count))
	}
}
