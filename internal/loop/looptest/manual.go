// Package looptest provides a deterministic loop.Executor for tests: nothing
// runs until the test drains the queue or advances the clock.
package looptest

import (
	"context"
	"sort"
	"time"

	"github.com/ageniuscoder/mmchat/client/internal/loop"
)

type Manual struct {
	now    time.Time
	posted []func()
	works  []*Work
	timers []*timer
	seq    int
}

var _ loop.Executor = (*Manual)(nil)

func New() *Manual {
	return &Manual{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

// Now is the fake clock time.
func (m *Manual) Now() time.Time {
	return m.now
}

func (m *Manual) Post(fn func()) {
	m.posted = append(m.posted, fn)
}

// Work is one pending Go call. Resolve runs it and its continuation.
type Work struct {
	m    *Manual
	ctx  context.Context
	work func(context.Context) func()
	done bool
}

func (w *Work) Resolve() {
	if w.done {
		return
	}
	w.done = true
	if cont := w.work(w.ctx); cont != nil {
		cont()
	}
}

// Canceled reports whether the context the work was started with is done.
func (w *Work) Canceled() bool {
	return w.ctx.Err() != nil
}

func (m *Manual) Go(ctx context.Context, work func(context.Context) func()) {
	m.works = append(m.works, &Work{m: m, ctx: ctx, work: work})
}

// Pending returns unresolved works in submission order.
func (m *Manual) Pending() []*Work {
	var out []*Work
	for _, w := range m.works {
		if !w.done {
			out = append(out, w)
		}
	}
	return out
}

// ResolveAll resolves pending works until none remain.
func (m *Manual) ResolveAll() {
	for {
		p := m.Pending()
		if len(p) == 0 {
			return
		}
		for _, w := range p {
			w.Resolve()
		}
	}
}

// Drain runs posted closures until the queue is empty.
func (m *Manual) Drain() {
	for len(m.posted) > 0 {
		fn := m.posted[0]
		m.posted = m.posted[1:]
		fn()
	}
}

type timer struct {
	at      time.Time
	seq     int
	fn      func()
	stopped bool
	fired   bool
}

func (t *timer) Stop() bool {
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

func (m *Manual) AfterFunc(d time.Duration, fn func()) loop.Timer {
	m.seq++
	t := &timer{at: m.now.Add(d), seq: m.seq, fn: fn}
	m.timers = append(m.timers, t)
	return t
}

// Advance moves the clock forward and runs timers that come due, in order.
func (m *Manual) Advance(d time.Duration) {
	target := m.now.Add(d)
	for {
		var due []*timer
		for _, t := range m.timers {
			if !t.stopped && !t.fired && !t.at.After(target) {
				due = append(due, t)
			}
		}
		if len(due) == 0 {
			break
		}
		sort.Slice(due, func(i, j int) bool {
			if due[i].at.Equal(due[j].at) {
				return due[i].seq < due[j].seq
			}
			return due[i].at.Before(due[j].at)
		})
		t := due[0]
		t.fired = true
		m.now = t.at
		t.fn()
		m.Drain()
	}
	m.now = target
}

// ActiveTimers counts timers that are armed and not yet fired.
func (m *Manual) ActiveTimers() int {
	n := 0
	for _, t := range m.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}
