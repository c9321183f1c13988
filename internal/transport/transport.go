// Package transport defines the real-time event transport the room session
// talks to, plus the listener bookkeeping shared by the concrete transports.
package transport

import (
	"context"
	"errors"
	"sync"
)

var ErrClosed = errors.New("transport closed")

// Handler receives the raw data of one inbound event.
type Handler func(data []byte)

// Unsubscribe removes a listener. Calling it more than once is a no-op.
type Unsubscribe func()

type Transport interface {
	Emit(ctx context.Context, kind string, payload any) error
	On(kind string, h Handler) Unsubscribe
}

type listener struct {
	h Handler
}

// Registry maps event kinds to listeners. Safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	listeners map[string]map[*listener]struct{}
}

func NewRegistry() *Registry {
	return &Registry{listeners: make(map[string]map[*listener]struct{})}
}

func (r *Registry) On(kind string, h Handler) Unsubscribe {
	l := &listener{h: h}

	r.mu.Lock()
	if r.listeners[kind] == nil {
		r.listeners[kind] = make(map[*listener]struct{})
	}
	r.listeners[kind][l] = struct{}{}
	r.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			if set, ok := r.listeners[kind]; ok {
				delete(set, l)
				if len(set) == 0 {
					delete(r.listeners, kind)
				}
			}
		})
	}
}

// Dispatch calls every listener of kind and reports how many ran.
func (r *Registry) Dispatch(kind string, data []byte) int {
	r.mu.RLock()
	hs := make([]Handler, 0, len(r.listeners[kind]))
	for l := range r.listeners[kind] {
		hs = append(hs, l.h)
	}
	r.mu.RUnlock()

	for _, h := range hs {
		h(data)
	}
	return len(hs)
}

// Count returns the number of listeners registered for kind.
func (r *Registry) Count(kind string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.listeners[kind])
}

// Group holds the subscriptions of one scope and releases them together.
type Group struct {
	mu    sync.Mutex
	unsub []Unsubscribe
}

func (g *Group) Add(u Unsubscribe) {
	g.mu.Lock()
	g.unsub = append(g.unsub, u)
	g.mu.Unlock()
}

// Subscribe registers h on t and tracks the subscription in the group.
func (g *Group) Subscribe(t Transport, kind string, h Handler) {
	g.Add(t.On(kind, h))
}

// Close releases every subscription. It is safe to call repeatedly.
func (g *Group) Close() {
	g.mu.Lock()
	unsub := g.unsub
	g.unsub = nil
	g.mu.Unlock()

	for _, u := range unsub {
		u()
	}
}

func (g *Group) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.unsub)
}
