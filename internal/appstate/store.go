// Package appstate holds process-wide client state. A Store is created at
// startup and handed to whoever needs it.
package appstate

import (
	"sort"
	"sync"

	"github.com/ageniuscoder/mmchat/client/internal/auth"
)

// Alert is the unread counter of one chat.
type Alert struct {
	ChatID string
	Count  int
}

type Store struct {
	mu     sync.RWMutex
	user   *auth.Claims
	alerts map[string]int
}

func New() *Store {
	return &Store{alerts: make(map[string]int)}
}

func (s *Store) Login(c *auth.Claims) {
	s.mu.Lock()
	s.user = c
	s.mu.Unlock()
}

// Logout clears every slice.
func (s *Store) Logout() {
	s.mu.Lock()
	s.user = nil
	s.alerts = make(map[string]int)
	s.mu.Unlock()
}

// User returns the signed-in user, or nil.
func (s *Store) User() *auth.Claims {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

func (s *Store) IncrementAlert(chatID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alerts[chatID]++
	return s.alerts[chatID]
}

func (s *Store) ClearAlert(chatID string) {
	s.mu.Lock()
	delete(s.alerts, chatID)
	s.mu.Unlock()
}

func (s *Store) AlertCount(chatID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.alerts[chatID]
}

// Alerts lists non-zero counters ordered by chat id.
func (s *Store) Alerts() []Alert {
	s.mu.RLock()
	out := make([]Alert, 0, len(s.alerts))
	for id, n := range s.alerts {
		out = append(out, Alert{ChatID: id, Count: n})
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ChatID < out[j].ChatID })
	return out
}
