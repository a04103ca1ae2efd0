// Package watch provides a mutex-guarded value with change subscriptions.
package watch

import (
	"context"
	"sync"
)

// Value holds the current T and notifies subscribers when it changes.
type Value[T any] struct {
	mu      sync.RWMutex
	current T
	subs    map[int]func(T)
	next    int
}

// New creates a Value holding initial.
func New[T any](initial T) *Value[T] {
	return &Value[T]{current: initial, subs: make(map[int]func(T))}
}

// Current returns the held value. It never blocks on I/O; ctx is honored so
// that Value satisfies provider interfaces whose implementations may.
func (v *Value[T]) Current(ctx context.Context) (T, error) {
	if err := ctx.Err(); err != nil {
		var zero T
		return zero, err
	}
	return v.Get(), nil
}

// Get returns the held value.
func (v *Value[T]) Get() T {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.current
}

// Set replaces the value and notifies subscribers on the caller's goroutine.
func (v *Value[T]) Set(val T) {
	v.mu.Lock()
	v.current = val
	subs := make([]func(T), 0, len(v.subs))
	for i := 0; i <= v.next; i++ {
		if fn, ok := v.subs[i]; ok {
			subs = append(subs, fn)
		}
	}
	v.mu.Unlock()

	for _, fn := range subs {
		fn(val)
	}
}

// Subscribe registers fn for future changes and returns its cancel func.
func (v *Value[T]) Subscribe(fn func(T)) func() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.next++
	id := v.next
	v.subs[id] = fn
	var once sync.Once
	return func() {
		once.Do(func() {
			v.mu.Lock()
			delete(v.subs, id)
			v.mu.Unlock()
		})
	}
}

// Subscribers returns the number of active subscriptions.
func (v *Value[T]) Subscribers() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.subs)
}
