package room

import (
	"context"
	"errors"

	"github.com/ageniuscoder/mmchat/client/internal/loop"
)

// Session runs a Reconciler on its own loop and is safe for concurrent use.
type Session struct {
	loop   *loop.Loop
	rec    *Reconciler
	cancel context.CancelFunc
}

func NewSession(deps Deps, opts Options) *Session {
	l := loop.New(0)
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{loop: l, rec: NewReconciler(l, deps, opts), cancel: cancel}
	go l.Run(ctx)
	return s
}

func (s *Session) Enter(ctx context.Context, roomID string) error {
	return s.loop.Do(ctx, func() { s.rec.Enter(roomID) })
}

func (s *Session) Leave(ctx context.Context) error {
	return s.loop.Do(ctx, s.rec.Leave)
}

func (s *Session) Scroll(ctx context.Context, offsetFromTop int) error {
	return s.loop.Do(ctx, func() { s.rec.Scroll(offsetFromTop) })
}

func (s *Session) Input(ctx context.Context, draft string) error {
	var err error
	if derr := s.loop.Do(ctx, func() { err = s.rec.Input(draft) }); derr != nil {
		return derr
	}
	return err
}

func (s *Session) Submit(ctx context.Context) error {
	var err error
	if derr := s.loop.Do(ctx, func() { err = s.rec.Submit() }); derr != nil {
		return derr
	}
	return err
}

func (s *Session) View(ctx context.Context) (View, error) {
	var v View
	err := s.loop.Do(ctx, func() { v = s.rec.View() })
	return v, err
}

// Close leaves the open room and stops the loop.
func (s *Session) Close(ctx context.Context) error {
	err := s.Leave(ctx)
	s.cancel()
	select {
	case <-s.loop.Stopped():
	case <-ctx.Done():
		if err == nil {
			err = ctx.Err()
		}
	}
	if errors.Is(err, loop.ErrStopped) {
		err = nil
	}
	return err
}
