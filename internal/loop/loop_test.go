package loop

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startLoop(t *testing.T) (*Loop, context.CancelFunc) {
	t.Helper()
	l := New(0)
	ctx, cancel := context.WithCancel(context.Background())
	go l.Run(ctx)
	t.Cleanup(cancel)
	return l, cancel
}

func TestDoRunsInOrder(t *testing.T) {
	l, _ := startLoop(t)
	var order []int
	for i := 0; i < 5; i++ {
		i := i
		l.Post(func() { order = append(order, i) })
	}
	require.NoError(t, l.Do(context.Background(), func() { order = append(order, 99) }))
	assert.Equal(t, []int{0, 1, 2, 3, 4, 99}, order)
}

func TestGoPostsContinuation(t *testing.T) {
	l, _ := startLoop(t)
	var got atomic.Value
	l.Go(context.Background(), func(ctx context.Context) func() {
		v := "page-1"
		return func() { got.Store(v) }
	})
	assert.Eventually(t, func() bool { return got.Load() == "page-1" }, time.Second, 5*time.Millisecond)
}

func TestAfterFuncStop(t *testing.T) {
	l, _ := startLoop(t)
	var fired atomic.Bool
	tm := l.AfterFunc(20*time.Millisecond, func() { fired.Store(true) })
	assert.True(t, tm.Stop())
	time.Sleep(50 * time.Millisecond)
	assert.False(t, fired.Load())
}

func TestDoAfterStop(t *testing.T) {
	l, cancel := startLoop(t)
	cancel()
	<-l.Stopped()

	assert.ErrorIs(t, l.Do(context.Background(), func() {}), ErrStopped)
	assert.NotPanics(t, func() { l.Post(func() {}) })
}
