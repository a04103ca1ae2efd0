package eventloop

import (
	"slices"
	"sync"
	"time"
)

type manualFrame struct {
	fn        func()
	cancelled bool
}

type manualInterval struct {
	period    time.Duration
	next      time.Duration
	fn        func()
	cancelled bool
}

// Manual is a Scheduler driven explicitly by its owner. Nothing runs until
// Drain, RunFrames or Tick is called, which makes ordering deterministic.
// Only Post may be called concurrently with the owner.
type Manual struct {
	mu        sync.Mutex
	now       time.Duration
	posted    []func()
	frames    []*manualFrame
	intervals []*manualInterval
}

// NewManual creates a manual scheduler at time zero.
func NewManual() *Manual {
	return &Manual{}
}

// Post queues fn for the next Drain. It is safe to call from any goroutine.
func (m *Manual) Post(fn func()) {
	m.mu.Lock()
	m.posted = append(m.posted, fn)
	m.mu.Unlock()
}

// RequestFrame queues fn for the next RunFrames.
func (m *Manual) RequestFrame(fn func()) Cancel {
	f := &manualFrame{fn: fn}
	m.frames = slices.DeleteFunc(m.frames, func(old *manualFrame) bool { return old.cancelled })
	m.frames = append(m.frames, f)
	return func() { f.cancelled = true }
}

// Every registers fn to run each time Tick crosses a period boundary.
func (m *Manual) Every(d time.Duration, fn func()) Cancel {
	iv := &manualInterval{period: d, next: m.now + d, fn: fn}
	m.pruneIntervals()
	m.intervals = append(m.intervals, iv)
	return func() { iv.cancelled = true }
}

// Drain runs posted tasks, including ones posted while draining, and
// returns how many ran.
func (m *Manual) Drain() int {
	ran := 0
	for {
		m.mu.Lock()
		if len(m.posted) == 0 {
			m.mu.Unlock()
			return ran
		}
		fn := m.posted[0]
		m.posted = m.posted[1:]
		m.mu.Unlock()
		fn()
		ran++
	}
}

// RunFrames runs the frames requested so far and returns how many ran.
// Frames requested by those callbacks wait for the next call.
func (m *Manual) RunFrames() int {
	frames := m.frames
	m.frames = nil
	ran := 0
	for _, f := range frames {
		if f.cancelled {
			continue
		}
		f.fn()
		ran++
	}
	return ran
}

// PendingFrames returns the number of live frame requests.
func (m *Manual) PendingFrames() int {
	n := 0
	for _, f := range m.frames {
		if !f.cancelled {
			n++
		}
	}
	return n
}

// ActiveIntervals returns the number of live intervals.
func (m *Manual) ActiveIntervals() int {
	n := 0
	for _, iv := range m.intervals {
		if !iv.cancelled {
			n++
		}
	}
	return n
}

// Tick moves the clock forward by d, firing due intervals in time order,
// and returns how many callbacks ran.
func (m *Manual) Tick(d time.Duration) int {
	target := m.now + d
	ran := 0
	m.pruneIntervals()
	for {
		var due *manualInterval
		for _, iv := range m.intervals {
			if iv.cancelled || iv.next > target {
				continue
			}
			if due == nil || iv.next < due.next {
				due = iv
			}
		}
		if due == nil {
			break
		}
		m.now = due.next
		due.next += due.period
		due.fn()
		ran++
	}
	m.now = target
	return ran
}

func (m *Manual) pruneIntervals() {
	m.intervals = slices.DeleteFunc(m.intervals, func(iv *manualInterval) bool { return iv.cancelled })
}
