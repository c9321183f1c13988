package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ageniuscoder/mmchat/client/internal/appstate"
	"github.com/ageniuscoder/mmchat/client/internal/console"
	"github.com/ageniuscoder/mmchat/client/internal/room"
)

type roomSession interface {
	Enter(ctx context.Context, roomID string) error
	Leave(ctx context.Context) error
	Scroll(ctx context.Context, offsetFromTop int) error
	Input(ctx context.Context, draft string) error
	Submit(ctx context.Context) error
	View(ctx context.Context) (room.View, error)
}

var errQuit = errors.New("quit")

const usage = `commands:
  /join <chat id>   open a chat
  /leave            close the open chat
  /older            load the next older page
  /type <text>      update the draft without sending
  /send             send the draft
  /show             print the open chat
  /alerts           list unread counters
  /quit             exit
anything else is sent as a message`

type repl struct {
	sess  roomSession
	host  *console.Host
	state *appstate.Store
	out   io.Writer
}

// exec runs one input line. errQuit ends the loop.
func (r *repl) exec(ctx context.Context, line string) error {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}
	if !strings.HasPrefix(line, "/") {
		if err := r.sess.Input(ctx, line); err != nil {
			return err
		}
		return r.sess.Submit(ctx)
	}

	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)
	switch cmd {
	case "/join":
		if arg == "" {
			return errors.New("usage: /join <chat id>")
		}
		return r.sess.Enter(ctx, arg)
	case "/leave":
		return r.sess.Leave(ctx)
	case "/older":
		return r.sess.Scroll(ctx, 0)
	case "/type":
		return r.sess.Input(ctx, arg)
	case "/send":
		return r.sess.Submit(ctx)
	case "/show":
		v, err := r.sess.View(ctx)
		if err != nil {
			return err
		}
		r.host.Show(v)
	case "/alerts":
		alerts := r.state.Alerts()
		if len(alerts) == 0 {
			fmt.Fprintln(r.out, "no unread messages")
		}
		for _, a := range alerts {
			fmt.Fprintf(r.out, "%s: %d new\n", a.ChatID, a.Count)
		}
	case "/help":
		fmt.Fprintln(r.out, usage)
	case "/quit", "/exit":
		return errQuit
	default:
		return fmt.Errorf("unknown command %s, try /help", cmd)
	}
	return nil
}
