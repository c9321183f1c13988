// Package console adapts a room session to a line terminal.
package console

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/ageniuscoder/mmchat/client/internal/chat"
	"github.com/ageniuscoder/mmchat/client/internal/room"
)

// Host stands in for the scrollable message pane. Room callbacks only mark
// the pane dirty; the terminal goroutine calls Render when Changed fires.
type Host struct {
	out     io.Writer
	changed chan struct{}

	mu     sync.Mutex
	room   string
	lastID string
	anchor string
}

var _ room.ScrollHost = (*Host)(nil)

func NewHost(out io.Writer) *Host {
	return &Host{out: out, changed: make(chan struct{}, 1)}
}

func (h *Host) ScrollToBottom() {
	h.notify()
}

func (h *Host) RestoreAnchor(messageID string) {
	h.mu.Lock()
	h.anchor = messageID
	h.mu.Unlock()
	h.notify()
}

func (h *Host) Changed() <-chan struct{} {
	return h.changed
}

func (h *Host) notify() {
	select {
	case h.changed <- struct{}{}:
	default:
	}
}

// Render prints what arrived below the last printed message. Older pages
// loaded above it are announced, not printed.
func (h *Host) Render(v room.View) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if v.RoomID != h.room {
		h.room, h.lastID, h.anchor = v.RoomID, "", ""
	}
	if h.anchor != "" {
		if i := indexOf(v.Messages, h.anchor); i > 0 {
			fmt.Fprintf(h.out, "~ %d older messages loaded (page %d/%d)\n", i, v.Page, v.TotalPages)
		}
		h.anchor = ""
	}

	start := 0
	if h.lastID != "" {
		start = indexOf(v.Messages, h.lastID) + 1
	}
	for _, m := range v.Messages[start:] {
		fmt.Fprintln(h.out, Format(m))
	}
	if n := len(v.Messages); n > 0 {
		h.lastID = v.Messages[n-1].ID
	}
}

// Show prints the whole timeline and the room status.
func (h *Host) Show(v room.View) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if v.State == room.Idle {
		fmt.Fprintln(h.out, "(no room open)")
		return
	}
	fmt.Fprintf(h.out, "# %s [%s] page %d/%d, %d members\n", v.RoomID, v.State, v.Page, v.TotalPages, len(v.Members))
	for _, m := range v.Messages {
		fmt.Fprintln(h.out, Format(m))
	}
	if v.RemoteTyping {
		fmt.Fprintln(h.out, "(typing...)")
	}
	if v.Draft != "" {
		fmt.Fprintf(h.out, "> %s\n", v.Draft)
	}
	h.room = v.RoomID
	if n := len(v.Messages); n > 0 {
		h.lastID = v.Messages[n-1].ID
	}
}

func indexOf(msgs []chat.Message, id string) int {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].ID == id {
			return i
		}
	}
	return -1
}

// Format renders one message as a single line.
func Format(m chat.Message) string {
	var b strings.Builder
	if !m.CreatedAt.IsZero() {
		b.WriteString(m.CreatedAt.Local().Format("15:04 "))
	}
	name := m.Sender.Name
	if name == "" {
		name = m.Sender.ID
	}
	b.WriteString(name)
	b.WriteString(": ")
	b.WriteString(m.Content)
	for _, a := range m.Attachments {
		fmt.Fprintf(&b, " [%s %s]", a.Category, a.URL)
	}
	return b.String()
}

var sources = []string{"room details", "history"}

// Surface logs every failed query it is handed.
type Surface struct {
	Log *slog.Logger
}

var _ room.ErrorSurface = (*Surface)(nil)

func (s *Surface) Report(states []chat.ErrorState) {
	log := s.Log
	if log == nil {
		log = slog.Default()
	}
	for i, st := range states {
		if !st.IsError {
			continue
		}
		source := "query"
		if i < len(sources) {
			source = sources[i]
		}
		log.Error("[console] request failed", "source", source, "error", st.Err)
	}
}

// Navigator records redirects and hands them to OnNavigate. OnNavigate runs on
// the room loop and must not call back into the session.
type Navigator struct {
	Log        *slog.Logger
	OnNavigate func(path string)

	mu   sync.Mutex
	last string
}

var _ room.Navigator = (*Navigator)(nil)

func (n *Navigator) Navigate(path string) {
	n.mu.Lock()
	n.last = path
	n.mu.Unlock()

	if n.Log != nil {
		n.Log.Info("[console] navigate", "path", path)
	}
	if n.OnNavigate != nil {
		n.OnNavigate(path)
	}
}

func (n *Navigator) Last() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.last
}
