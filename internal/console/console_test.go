package console

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/ageniuscoder/mmchat/client/internal/chat"
	"github.com/ageniuscoder/mmchat/client/internal/room"
	"github.com/stretchr/testify/assert"
)

func msg(id, content string) chat.Message {
	return chat.Message{ID: id, Content: content, Sender: chat.Sender{ID: "u2", Name: "Bob"}}
}

func TestRenderPrintsOnlyNewTail(t *testing.T) {
	var out bytes.Buffer
	h := NewHost(&out)

	v := room.View{RoomID: "c1", State: room.Active, Messages: []chat.Message{msg("a", "one"), msg("b", "two")}}
	h.Render(v)
	assert.Equal(t, "Bob: one\nBob: two\n", out.String())

	out.Reset()
	v.Messages = append(v.Messages, msg("c", "three"))
	h.ScrollToBottom()
	select {
	case <-h.Changed():
	default:
		t.Fatal("expected a change notification")
	}
	h.Render(v)
	assert.Equal(t, "Bob: three\n", out.String())
}

func TestRenderAnnouncesOlderPage(t *testing.T) {
	var out bytes.Buffer
	h := NewHost(&out)
	h.Render(room.View{RoomID: "c1", Messages: []chat.Message{msg("a", "one")}})
	out.Reset()

	h.RestoreAnchor("a")
	h.Render(room.View{RoomID: "c1", Page: 2, TotalPages: 3, Messages: []chat.Message{
		msg("o1", "old"), msg("o2", "older"), msg("a", "one"),
	}})
	assert.Equal(t, "~ 2 older messages loaded (page 2/3)\n", out.String())
}

func TestRenderResetsOnRoomChange(t *testing.T) {
	var out bytes.Buffer
	h := NewHost(&out)
	h.Render(room.View{RoomID: "c1", Messages: []chat.Message{msg("a", "one")}})
	out.Reset()

	h.Render(room.View{RoomID: "c2", Messages: []chat.Message{msg("x", "hello")}})
	assert.Equal(t, "Bob: hello\n", out.String())
}

func TestShow(t *testing.T) {
	var out bytes.Buffer
	h := NewHost(&out)

	h.Show(room.View{})
	assert.Equal(t, "(no room open)\n", out.String())

	out.Reset()
	h.Show(room.View{
		RoomID: "c1", State: room.Active, Page: 1, TotalPages: 1, Members: []string{"u1", "u2"},
		Messages:     []chat.Message{msg("a", "one")},
		RemoteTyping: true, Draft: "hal",
	})
	assert.Equal(t, "# c1 [active] page 1/1, 2 members\nBob: one\n(typing...)\n> hal\n", out.String())
}

func TestFormatAttachments(t *testing.T) {
	m := chat.Message{
		Sender:      chat.SystemSender,
		Content:     "see",
		Attachments: []chat.Attachment{{URL: "https://cdn/x.png", Category: chat.CategoryImage}},
	}
	assert.Equal(t, "Admin: see [image https://cdn/x.png]", Format(m))
}

func TestSurfaceLogsFailures(t *testing.T) {
	var buf bytes.Buffer
	s := &Surface{Log: slog.New(slog.NewTextHandler(&buf, nil))}

	s.Report([]chat.ErrorState{{}, {IsError: true, Err: errors.New("timeout")}})

	line := buf.String()
	assert.Equal(t, 1, strings.Count(line, "\n"))
	assert.Contains(t, line, `source=history`)
	assert.Contains(t, line, `error=timeout`)
}

func TestNavigator(t *testing.T) {
	var got []string
	n := &Navigator{OnNavigate: func(p string) { got = append(got, p) }}
	n.Navigate("/")
	assert.Equal(t, "/", n.Last())
	assert.Equal(t, []string{"/"}, got)
}
