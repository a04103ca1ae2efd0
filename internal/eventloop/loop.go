package eventloop

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// DefaultFrameDelay approximates one display frame.
const DefaultFrameDelay = 16 * time.Millisecond

// ErrStopped is returned when work is submitted to a loop that has exited.
var ErrStopped = errors.New("eventloop: stopped")

// Cancel stops a pending frame or interval. Calling it twice is harmless.
type Cancel func()

// Scheduler is the cooperative scheduling surface used by the engine. Every
// callback runs on the scheduler's single execution context.
type Scheduler interface {
	Post(fn func())
	RequestFrame(fn func()) Cancel
	Every(d time.Duration, fn func()) Cancel
}

// Loop runs every posted task, frame callback and interval callback on one
// goroutine, so the state those callbacks touch needs no locks.
type Loop struct {
	frameDelay time.Duration
	logger     *zap.Logger

	mu      sync.Mutex
	queue   []func()
	wake    chan struct{}
	done    chan struct{}
	stopped atomic.Bool
	once    sync.Once
}

// Option configures a Loop.
type Option func(*Loop)

// WithFrameDelay sets the delay used by RequestFrame.
func WithFrameDelay(d time.Duration) Option {
	return func(l *Loop) {
		if d > 0 {
			l.frameDelay = d
		}
	}
}

// WithLogger sets the logger used to report recovered panics.
func WithLogger(logger *zap.Logger) Option {
	return func(l *Loop) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// New creates a loop. Call Run to start processing.
func New(opts ...Option) *Loop {
	l := &Loop{
		frameDelay: DefaultFrameDelay,
		logger:     zap.NewNop(),
		wake:       make(chan struct{}, 1),
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Run processes tasks until ctx is cancelled or Stop is called.
func (l *Loop) Run(ctx context.Context) error {
	defer l.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.done:
			return nil
		case <-l.wake:
			l.drain()
		}
	}
}

// Stop ends Run and drops queued tasks.
func (l *Loop) Stop() {
	l.once.Do(func() {
		l.stopped.Store(true)
		close(l.done)
		l.mu.Lock()
		l.queue = nil
		l.mu.Unlock()
	})
}

// Done is closed once the loop stops.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

// Post enqueues fn. It never blocks; tasks posted after Stop are dropped.
func (l *Loop) Post(fn func()) {
	if l.stopped.Load() {
		return
	}
	l.mu.Lock()
	l.queue = append(l.queue, fn)
	l.mu.Unlock()
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Do runs fn on the loop and waits for it to finish.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	if l.stopped.Load() {
		return ErrStopped
	}
	finished := make(chan struct{})
	l.Post(func() {
		defer close(finished)
		fn()
	})
	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		return ErrStopped
	}
}

// RequestFrame runs fn on the loop after one frame delay.
func (l *Loop) RequestFrame(fn func()) Cancel {
	var cancelled atomic.Bool
	t := time.AfterFunc(l.frameDelay, func() {
		l.Post(func() {
			if !cancelled.Load() {
				fn()
			}
		})
	})
	return func() {
		cancelled.Store(true)
		t.Stop()
	}
}

// Every runs fn on the loop at a fixed period until cancelled.
func (l *Loop) Every(d time.Duration, fn func()) Cancel {
	var cancelled atomic.Bool
	stop := make(chan struct{})
	ticker := time.NewTicker(d)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				l.Post(func() {
					if !cancelled.Load() {
						fn()
					}
				})
			case <-stop:
				return
			case <-l.done:
				return
			}
		}
	}()
	var once sync.Once
	return func() {
		once.Do(func() {
			cancelled.Store(true)
			close(stop)
		})
	}
}

func (l *Loop) drain() {
	for {
		l.mu.Lock()
		if len(l.queue) == 0 || l.stopped.Load() {
			l.mu.Unlock()
			return
		}
		fn := l.queue[0]
		l.queue[0] = nil
		l.queue = l.queue[1:]
		l.mu.Unlock()
		l.run(fn)
	}
}

func (l *Loop) run(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("Recovered panic in event loop task", zap.Any("panic", r))
		}
	}()
	fn()
}
