// Package loop runs closures one at a time on a single goroutine.
//
// Everything a room session owns is mutated only from inside the loop, so
// handlers never run concurrently and no state needs its own lock.
package loop

import (
	"context"
	"errors"
	"sync"
	"time"
)

var ErrStopped = errors.New("loop stopped")

// Timer is a pending timer whose fire will be posted to the loop.
type Timer interface {
	Stop() bool
}

// Executor is what the loop offers to the code running on it.
type Executor interface {
	// Post schedules fn to run on the loop.
	Post(fn func())
	// Go runs work off the loop and posts the continuation it returns.
	Go(ctx context.Context, work func(ctx context.Context) func())
	// AfterFunc posts fn to the loop once d has elapsed.
	AfterFunc(d time.Duration, fn func()) Timer
}

type Loop struct {
	queue   chan func()
	stopped chan struct{}
	once    sync.Once
}

var _ Executor = (*Loop)(nil)

func New(buffer int) *Loop {
	if buffer <= 0 {
		buffer = 256
	}
	return &Loop{
		queue:   make(chan func(), buffer),
		stopped: make(chan struct{}),
	}
}

// Run processes posted work until ctx is done.
func (l *Loop) Run(ctx context.Context) error {
	defer l.once.Do(func() { close(l.stopped) })
	for {
		select {
		case fn := <-l.queue:
			fn()
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Stopped is closed when Run has returned.
func (l *Loop) Stopped() <-chan struct{} {
	return l.stopped
}

// Post drops fn if the loop has already stopped. It must not be called from
// the loop goroutine while the queue is full.
func (l *Loop) Post(fn func()) {
	select {
	case l.queue <- fn:
	case <-l.stopped:
	}
}

// Do posts fn and waits for it to finish. Calling Do from the loop deadlocks.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	select {
	case l.queue <- func() { fn(); close(done) }:
	case <-l.stopped:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-l.stopped:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *Loop) Go(ctx context.Context, work func(ctx context.Context) func()) {
	go func() {
		if cont := work(ctx); cont != nil {
			l.Post(cont)
		}
	}()
}

func (l *Loop) AfterFunc(d time.Duration, fn func()) Timer {
	return time.AfterFunc(d, func() { l.Post(fn) })
}
