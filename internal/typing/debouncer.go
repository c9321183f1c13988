// Package typing tracks whether the local user is typing and turns bursts of
// input into exactly one start/stop signal pair.
package typing

import (
	"time"

	"github.com/ageniuscoder/mmchat/client/internal/loop"
)

const DefaultQuietPeriod = 2000 * time.Millisecond

type State int

const (
	Idle State = iota
	Active
)

func (s State) String() string {
	if s == Active {
		return "active"
	}
	return "idle"
}

// Scheduler arms timers. The room loop satisfies it; fires must be delivered
// on the same goroutine that calls the Debouncer.
type Scheduler interface {
	AfterFunc(d time.Duration, fn func()) loop.Timer
}

// Signal is called with true for typing-start and false for typing-stop.
type Signal func(start bool)

// Debouncer is not safe for concurrent use; drive it from one goroutine.
type Debouncer struct {
	quiet  time.Duration
	sched  Scheduler
	signal Signal

	state State
	timer loop.Timer
	gen   uint64
}

func New(quiet time.Duration, sched Scheduler, signal Signal) *Debouncer {
	if quiet <= 0 {
		quiet = DefaultQuietPeriod
	}
	return &Debouncer{quiet: quiet, sched: sched, signal: signal}
}

func (d *Debouncer) State() State {
	return d.state
}

func (d *Debouncer) Typing() bool {
	return d.state == Active
}

// Input records one local input change.
func (d *Debouncer) Input() {
	if d.state == Idle {
		d.state = Active
		d.signal(true)
	}
	d.arm()
}

// Flush ends the current burst now: on submit or when leaving the room.
func (d *Debouncer) Flush() {
	d.disarm()
	if d.state == Active {
		d.state = Idle
		d.signal(false)
	}
}

func (d *Debouncer) arm() {
	d.disarm()
	gen := d.gen
	d.timer = d.sched.AfterFunc(d.quiet, func() { d.fire(gen) })
}

func (d *Debouncer) disarm() {
	d.gen++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

func (d *Debouncer) fire(gen uint64) {
	// A fire from a timer that was reset or stopped after it was posted.
	if gen != d.gen {
		return
	}
	d.timer = nil
	if d.state == Active {
		d.state = Idle
		d.signal(false)
	}
}
