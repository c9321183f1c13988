package room

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/ageniuscoder/mmchat/client/internal/chat"
	"github.com/ageniuscoder/mmchat/client/internal/history"
	"github.com/ageniuscoder/mmchat/client/internal/loop/looptest"
	"github.com/ageniuscoder/mmchat/client/internal/transport"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/require"
)

type emitted struct {
	Kind    string
	Payload any
}

type fakeTransport struct {
	*transport.Registry
	mu   sync.Mutex
	sent []emitted
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{Registry: transport.NewRegistry()}
}

func (f *fakeTransport) Emit(_ context.Context, kind string, payload any) error {
	f.mu.Lock()
	f.sent = append(f.sent, emitted{Kind: kind, Payload: payload})
	f.mu.Unlock()
	return nil
}

func (f *fakeTransport) emitted() []emitted {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]emitted(nil), f.sent...)
}

func (f *fakeTransport) kinds() []string {
	var out []string
	for _, e := range f.emitted() {
		out = append(out, e.Kind)
	}
	return out
}

func (f *fakeTransport) count(kind string) int {
	n := 0
	for _, e := range f.emitted() {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

func (f *fakeTransport) push(t *testing.T, kind string, payload any) {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	f.Dispatch(kind, data)
}

type scrollRecorder struct {
	bottoms int
	anchors []string
}

func (s *scrollRecorder) ScrollToBottom()         { s.bottoms++ }
func (s *scrollRecorder) RestoreAnchor(id string) { s.anchors = append(s.anchors, id) }

type errorRecorder struct {
	reports [][]chat.ErrorState
}

func (e *errorRecorder) Report(states []chat.ErrorState) {
	e.reports = append(e.reports, states)
}

func (e *errorRecorder) last() []chat.ErrorState {
	if len(e.reports) == 0 {
		return nil
	}
	return e.reports[len(e.reports)-1]
}

type navRecorder struct {
	paths []string
}

func (n *navRecorder) Navigate(path string) { n.paths = append(n.paths, path) }

type alertRecorder struct {
	cleared []string
}

func (a *alertRecorder) ClearAlert(chatID string) { a.cleared = append(a.cleared, chatID) }

type membersFunc func(ctx context.Context, chatID string) ([]string, error)

func (f membersFunc) Members(ctx context.Context, chatID string) ([]string, error) {
	return f(ctx, chatID)
}

// makePage builds page n of a room. Higher pages are older; ids sort by age.
func makePage(chatID string, page, size, total int) history.Page {
	msgs := make([]chat.Message, size)
	for i := range msgs {
		msgs[i] = chat.Message{
			ID:      fmt.Sprintf("%s-p%d-%02d", chatID, page, i),
			ChatID:  chatID,
			Sender:  chat.Sender{ID: "u2", Name: "Bob"},
			Content: fmt.Sprintf("message %d of page %d", i, page),
		}
	}
	return history.Page{Messages: msgs, TotalPages: total}
}

type fetchCall struct {
	ChatID string
	Page   int
}

type harness struct {
	m      *looptest.Manual
	tr     *fakeTransport
	rec    *Reconciler
	scroll *scrollRecorder
	errs   *errorRecorder
	nav    *navRecorder
	alerts *alertRecorder

	fetches []fetchCall
	pageFn  func(chatID string, page int) (history.Page, error)
	memFn   func(chatID string) ([]string, error)
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		m:      looptest.New(),
		tr:     newFakeTransport(),
		scroll: &scrollRecorder{},
		errs:   &errorRecorder{},
		nav:    &navRecorder{},
		alerts: &alertRecorder{},
	}
	h.pageFn = func(chatID string, page int) (history.Page, error) {
		return makePage(chatID, page, 20, 3), nil
	}
	h.memFn = func(chatID string) ([]string, error) {
		return []string{"u1", "u2"}, nil
	}
	deps := Deps{
		Transport: h.tr,
		History: history.FetcherFunc(func(_ context.Context, chatID string, page int) (history.Page, error) {
			h.fetches = append(h.fetches, fetchCall{ChatID: chatID, Page: page})
			return h.pageFn(chatID, page)
		}),
		Members: membersFunc(func(_ context.Context, chatID string) ([]string, error) {
			return h.memFn(chatID)
		}),
		Errors:    h.errs,
		Scroll:    h.scroll,
		Navigator: h.nav,
		Alerts:    h.alerts,
	}
	h.rec = NewReconciler(h.m, deps, Options{UserID: "u1", Now: h.m.Now})
	return h
}

// enter opens chatID and lets its details and first page land.
func (h *harness) enter(chatID string) {
	h.rec.Enter(chatID)
	h.m.ResolveAll()
	h.m.Drain()
}

func (h *harness) ids() []string {
	var out []string
	for _, m := range h.rec.View().Messages {
		out = append(out, m.ID)
	}
	return out
}
