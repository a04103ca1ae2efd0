package watch

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValue(t *testing.T) {
	v := New(1)
	assert.Equal(t, 1, v.Get())

	var a, b []int
	cancelA := v.Subscribe(func(n int) { a = append(a, n) })
	v.Subscribe(func(n int) { b = append(b, n) })
	assert.Equal(t, 2, v.Subscribers())

	v.Set(2)
	cancelA()
	cancelA()
	v.Set(3)

	assert.Equal(t, []int{2}, a)
	assert.Equal(t, []int{2, 3}, b)
	assert.Equal(t, 1, v.Subscribers())
	assert.Equal(t, 3, v.Get())
}

func TestValueCurrent(t *testing.T) {
	v := New("rates")

	got, err := v.Current(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "rates", got)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = v.Current(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestValueSubscriberMaySet(t *testing.T) {
	v := New(0)
	v.Subscribe(func(n int) {
		if n < 3 {
			v.Set(n + 1)
		}
	})
	v.Set(1)
	assert.Equal(t, 3, v.Get())
}

func TestValueConcurrentAccess(t *testing.T) {
	v := New(0)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cancel := v.Subscribe(func(int) {})
			v.Set(i)
			_ = v.Get()
			cancel()
		}()
	}
	wg.Wait()
	assert.Equal(t, 0, v.Subscribers())
}
