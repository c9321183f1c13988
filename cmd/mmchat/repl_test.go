package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/ageniuscoder/mmchat/client/internal/appstate"
	"github.com/ageniuscoder/mmchat/client/internal/console"
	"github.com/ageniuscoder/mmchat/client/internal/room"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSession struct {
	calls []string
	view  room.View
}

func (f *fakeSession) Enter(_ context.Context, id string) error {
	f.calls = append(f.calls, "enter "+id)
	return nil
}

func (f *fakeSession) Leave(context.Context) error {
	f.calls = append(f.calls, "leave")
	return nil
}

func (f *fakeSession) Scroll(_ context.Context, offset int) error {
	f.calls = append(f.calls, "scroll")
	return nil
}

func (f *fakeSession) Input(_ context.Context, draft string) error {
	f.calls = append(f.calls, "input "+draft)
	return nil
}

func (f *fakeSession) Submit(context.Context) error {
	f.calls = append(f.calls, "submit")
	return nil
}

func (f *fakeSession) View(context.Context) (room.View, error) {
	return f.view, nil
}

func newREPL() (*repl, *fakeSession, *bytes.Buffer) {
	var out bytes.Buffer
	sess := &fakeSession{}
	return &repl{sess: sess, host: console.NewHost(&out), state: appstate.New(), out: &out}, sess, &out
}

func TestREPLCommands(t *testing.T) {
	r, sess, _ := newREPL()
	ctx := context.Background()

	for _, line := range []string{"/join c1", "/type hel", "/send", "/older", "hello there", "  ", "/leave"} {
		require.NoError(t, r.exec(ctx, line), line)
	}
	assert.Equal(t, []string{
		"enter c1", "input hel", "submit", "scroll", "input hello there", "submit", "leave",
	}, sess.calls)
}

func TestREPLErrors(t *testing.T) {
	r, _, _ := newREPL()
	ctx := context.Background()

	assert.ErrorIs(t, r.exec(ctx, "/quit"), errQuit)
	assert.ErrorContains(t, r.exec(ctx, "/join"), "usage")
	assert.ErrorContains(t, r.exec(ctx, "/dance"), "unknown command")
}

func TestREPLAlertsAndShow(t *testing.T) {
	r, _, out := newREPL()
	ctx := context.Background()

	require.NoError(t, r.exec(ctx, "/alerts"))
	assert.Equal(t, "no unread messages\n", out.String())

	out.Reset()
	r.state.IncrementAlert("c9")
	require.NoError(t, r.exec(ctx, "/alerts"))
	assert.Equal(t, "c9: 1 new\n", out.String())

	out.Reset()
	require.NoError(t, r.exec(ctx, "/show"))
	assert.Equal(t, "(no room open)\n", out.String())
}
