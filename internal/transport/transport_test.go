package transport

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegistryDispatch(t *testing.T) {
	r := NewRegistry()
	var got []string
	r.On("NEW_MESSAGE", func(data []byte) { got = append(got, string(data)) })
	r.On("ALERT", func(data []byte) { got = append(got, "alert:"+string(data)) })

	assert.Equal(t, 1, r.Dispatch("NEW_MESSAGE", []byte("a")))
	assert.Equal(t, 0, r.Dispatch("STOP_TYPING", []byte("b")))
	assert.Equal(t, []string{"a"}, got)
}

func TestUnsubscribeIsIdempotent(t *testing.T) {
	r := NewRegistry()
	calls := 0
	unsub := r.On("ALERT", func([]byte) { calls++ })
	r.On("ALERT", func([]byte) {})

	unsub()
	assert.NotPanics(t, func() { unsub() })
	assert.Equal(t, 1, r.Count("ALERT"))

	r.Dispatch("ALERT", nil)
	assert.Equal(t, 0, calls)
}

type stubTransport struct {
	*Registry
}

func (stubTransport) Emit(context.Context, string, any) error { return nil }

func TestGroupClose(t *testing.T) {
	tr := stubTransport{NewRegistry()}
	var g Group
	g.Subscribe(tr, "NEW_MESSAGE", func([]byte) {})
	g.Subscribe(tr, "ALERT", func([]byte) {})
	assert.Equal(t, 2, g.Len())

	g.Close()
	g.Close()

	assert.Equal(t, 0, g.Len())
	assert.Equal(t, 0, tr.Count("NEW_MESSAGE"))
	assert.Equal(t, 0, tr.Count("ALERT"))
}
