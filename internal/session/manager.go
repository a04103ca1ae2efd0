package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/zentat/internal/conversion"
	"github.com/GriffinCanCode/zentat/internal/detection"
	"github.com/GriffinCanCode/zentat/internal/dom"
	"github.com/GriffinCanCode/zentat/internal/eventloop"
	"github.com/GriffinCanCode/zentat/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/zentat/internal/rates"
	"github.com/GriffinCanCode/zentat/internal/settings"
	"github.com/GriffinCanCode/zentat/internal/synchronizer"
)

var (
	// ErrNotFound is returned for unknown session ids.
	ErrNotFound = errors.New("session not found")
	// ErrLimit is returned when the session limit is reached.
	ErrLimit = errors.New("session limit reached")
)

// Config holds session manager configuration.
type Config struct {
	MaxSessions   int
	FrameDelay    time.Duration
	PollInterval  time.Duration
	MaxTextLength int
	Unit          string
	Load          dom.LoadOptions
	Registry      *detection.Registry
}

// DefaultConfig returns the default manager configuration.
func DefaultConfig() Config {
	return Config{
		MaxSessions:   100,
		FrameDelay:    eventloop.DefaultFrameDelay,
		PollInterval:  synchronizer.DefaultPollInterval,
		MaxTextLength: detection.DefaultMaxTextLength,
		Unit:          conversion.DefaultUnit,
		Load:          dom.DefaultLoadOptions(),
		Registry:      detection.DefaultRegistry(),
	}
}

func (c Config) syncConfig(hostname string) synchronizer.Config {
	return synchronizer.Config{
		Hostname:      hostname,
		Unit:          c.Unit,
		MaxTextLength: c.MaxTextLength,
		PollInterval:  c.PollInterval,
		Registry:      c.Registry,
	}
}

// Session is a live document kept converted by its own event loop.
type Session struct {
	ID        string
	Hostname  string
	CreatedAt time.Time

	doc    *dom.Document
	loop   *eventloop.Loop
	syncer *synchronizer.Synchronizer
	cancel context.CancelFunc
}

// MarkInfo describes one converted element.
type MarkInfo struct {
	ID        string              `json:"id"`
	Original  string              `json:"original"`
	Converted []conversion.Result `json:"converted"`
	MarkedAt  time.Time           `json:"marked_at"`
}

// Snapshot is the rendered state of a session.
type Snapshot struct {
	ID        string     `json:"id"`
	Hostname  string     `json:"hostname"`
	HTML      string     `json:"html"`
	Converted int        `json:"converted"`
	Marks     []MarkInfo `json:"marks"`
	Active    bool       `json:"active"`
	Observing bool       `json:"observing"`
	CreatedAt time.Time  `json:"created_at"`
}

// Manager owns live sessions
type Manager struct {
	rates    *rates.Store
	settings *settings.Store
	cfg      Config
	logger   *zap.Logger
	metrics  *monitoring.Metrics

	mu       sync.RWMutex
	sessions map[string]*Session
	reserved int
	wg       sync.WaitGroup
}

// NewManager creates a new session manager
func NewManager(rs *rates.Store, ss *settings.Store, cfg Config, logger *zap.Logger, metrics *monitoring.Metrics) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxSessions <= 0 {
		cfg.MaxSessions = DefaultConfig().MaxSessions
	}
	return &Manager{
		rates:    rs,
		settings: ss,
		cfg:      cfg,
		logger:   logger,
		metrics:  metrics,
		sessions: make(map[string]*Session),
	}
}

// Create loads markup into a new session and converts it.
func (m *Manager) Create(ctx context.Context, markup, hostname string) (Snapshot, error) {
	if err := m.reserve(); err != nil {
		return Snapshot{}, err
	}
	added := false
	defer func() {
		if !added {
			m.mu.Lock()
			m.reserved--
			m.mu.Unlock()
		}
	}()

	doc, err := dom.Load(strings.NewReader(markup), m.cfg.Load)
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to load document: %w", err)
	}

	id := uuid.NewString()
	logger := m.logger.With(zap.String("session", id), zap.String("hostname", hostname))
	loop := eventloop.New(eventloop.WithFrameDelay(m.cfg.FrameDelay), eventloop.WithLogger(logger))
	loopCtx, cancel := context.WithCancel(context.Background())
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		_ = loop.Run(loopCtx)
	}()

	s := &Session{
		ID:        id,
		Hostname:  hostname,
		CreatedAt: time.Now(),
		doc:       doc,
		loop:      loop,
		cancel:    cancel,
	}
	s.syncer = synchronizer.New(doc, loop, m.rates, m.settings, m.cfg.syncConfig(hostname)).
		WithLogger(logger).
		WithMetrics(m.metrics)

	var (
		converted int
		startErr  error
	)
	if err := loop.Do(ctx, func() { converted, startErr = s.syncer.Start(ctx) }); err != nil {
		cancel()
		return Snapshot{}, err
	}
	if startErr != nil {
		cancel()
		return Snapshot{}, startErr
	}

	m.mu.Lock()
	m.reserved--
	m.sessions[id] = s
	count := len(m.sessions)
	m.mu.Unlock()
	added = true
	m.metrics.IncSessionsTotal()
	m.metrics.SetSessionsActive(count)
	logger.Info("Session created", zap.Int("converted", converted))

	snap, err := m.snapshot(ctx, s)
	snap.Converted = converted
	return snap, err
}

// reserve claims a slot for a session that is still starting.
func (m *Manager) reserve() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sessions)+m.reserved >= m.cfg.MaxSessions {
		return ErrLimit
	}
	m.reserved++
	return nil
}

// Get returns a session by id.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}

// List returns the ids of all live sessions.
func (m *Manager) List() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	return ids
}

// Snapshot renders a session.
func (m *Manager) Snapshot(ctx context.Context, id string) (Snapshot, error) {
	s, err := m.Get(id)
	if err != nil {
		return Snapshot{}, err
	}
	return m.snapshot(ctx, s)
}

// Mutate applies ops to a session document, processes the resulting
// conversions and returns the new state.
func (m *Manager) Mutate(ctx context.Context, id string, ops []Op) (Snapshot, error) {
	s, err := m.Get(id)
	if err != nil {
		return Snapshot{}, err
	}
	for i, op := range ops {
		if err := op.Validate(); err != nil {
			return Snapshot{}, fmt.Errorf("op %d: %w", i, err)
		}
	}

	var (
		opErr     error
		converted int
	)
	err = s.loop.Do(ctx, func() {
		for i, op := range ops {
			if err := op.apply(s.doc); err != nil {
				opErr = fmt.Errorf("op %d: %w", i, err)
				return
			}
		}
		converted = s.syncer.Flush()
	})
	if err != nil {
		return Snapshot{}, err
	}
	if opErr != nil {
		return Snapshot{}, opErr
	}

	snap, err := m.snapshot(ctx, s)
	snap.Converted = converted
	return snap, err
}

// Revert stops tracking a session and restores its original markup. It
// returns how many elements were restored.
func (m *Manager) Revert(ctx context.Context, id string) (int, error) {
	s, err := m.Get(id)
	if err != nil {
		return 0, err
	}
	var restored int
	if err := s.loop.Do(ctx, func() {
		s.syncer.Stop()
		restored = s.syncer.Revert()
	}); err != nil {
		return 0, err
	}
	return restored, nil
}

// Close stops and forgets a session.
func (m *Manager) Close(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	count := len(m.sessions)
	m.mu.Unlock()
	if !ok {
		return ErrNotFound
	}

	m.shutdown(s)
	m.metrics.SetSessionsActive(count)
	m.logger.Info("Session closed", zap.String("session", id))
	return nil
}

// CloseAll stops every session and waits for their loops to exit.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, s := range sessions {
		m.shutdown(s)
	}
	m.wg.Wait()
	m.metrics.SetSessionsActive(0)
}

// ConvertOnce converts markup without keeping a session.
func (m *Manager) ConvertOnce(ctx context.Context, markup, hostname string) (Snapshot, error) {
	doc, err := dom.Load(strings.NewReader(markup), m.cfg.Load)
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to load document: %w", err)
	}
	return Convert(ctx, doc, hostname, m.rates, m.settings, m.cfg, m.logger, m.metrics)
}

// Convert runs a synchronizer over doc once on a manual scheduler and
// renders the result.
func Convert(ctx context.Context, doc *dom.Document, hostname string, rp synchronizer.RateProvider, sp synchronizer.SettingsProvider, cfg Config, logger *zap.Logger, metrics *monitoring.Metrics) (Snapshot, error) {
	syncer := synchronizer.New(doc, eventloop.NewManual(), rp, sp, cfg.syncConfig(hostname)).
		WithLogger(logger).
		WithMetrics(metrics)
	defer syncer.Close()

	converted, err := syncer.Start(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	out, err := doc.Render()
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to render document: %w", err)
	}
	return Snapshot{
		Hostname:  hostname,
		HTML:      out,
		Converted: converted,
		Marks:     markInfos(syncer.Marks()),
		Active:    syncer.Active(),
		Observing: syncer.Observing(),
	}, nil
}

func (m *Manager) shutdown(s *Session) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.loop.Do(ctx, s.syncer.Close); err != nil {
		m.logger.Warn("Session loop did not close cleanly", zap.String("session", s.ID), zap.Error(err))
	}
	s.cancel()
}

func (m *Manager) snapshot(ctx context.Context, s *Session) (Snapshot, error) {
	snap := Snapshot{ID: s.ID, Hostname: s.Hostname, CreatedAt: s.CreatedAt}
	var renderErr error
	err := s.loop.Do(ctx, func() {
		snap.HTML, renderErr = s.doc.Render()
		snap.Marks = markInfos(s.syncer.Marks())
		snap.Active = s.syncer.Active()
		snap.Observing = s.syncer.Observing()
	})
	if err != nil {
		return Snapshot{}, err
	}
	if renderErr != nil {
		return Snapshot{}, fmt.Errorf("failed to render document: %w", renderErr)
	}
	return snap, nil
}

func markInfos(marks []*synchronizer.Mark) []MarkInfo {
	out := make([]MarkInfo, 0, len(marks))
	for _, mk := range marks {
		out = append(out, MarkInfo{
			ID:        mk.ID,
			Original:  mk.Original,
			Converted: mk.Converted,
			MarkedAt:  mk.MarkedAt,
		})
	}
	return out
}
