// Package ws is the WebSocket transport of the room client.
package ws

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/ageniuscoder/mmchat/client/internal/chat"
	"github.com/ageniuscoder/mmchat/client/internal/transport"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512 * 1024
	sendBuffer     = 256
)

// Client is a transport.Transport over one WebSocket connection.
type Client struct {
	conn     *websocket.Conn
	send     chan []byte
	registry *transport.Registry
	log      *slog.Logger

	closeOnce sync.Once
	mu        sync.RWMutex
	closed    bool
	quit      chan struct{}
	done      chan struct{}
}

var _ transport.Transport = (*Client)(nil)

// Dial connects to rawURL, passing token as the ?token= query parameter.
func Dial(ctx context.Context, rawURL, token string, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("ws: parse url: %w", err)
	}
	if token != "" {
		q := u.Query()
		q.Set("token", token)
		u.RawQuery = q.Encode()
	}

	dialer := &websocket.Dialer{HandshakeTimeout: writeWait}
	conn, _, err := dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("ws: dial: %w", err)
	}

	c := &Client{
		conn:     conn,
		send:     make(chan []byte, sendBuffer),
		registry: transport.NewRegistry(),
		log:      logger,
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go c.writePump()
	go c.readPump()

	logger.Info("[ws] connected", "host", u.Host)
	return c, nil
}

func (c *Client) On(kind string, h transport.Handler) transport.Unsubscribe {
	return c.registry.On(kind, h)
}

// Emit queues one frame for the write pump. When the queue is full it waits
// until there is room, ctx is done or the client shuts down.
func (c *Client) Emit(ctx context.Context, kind string, payload any) error {
	frame, err := chat.Encode(kind, payload)
	if err != nil {
		return fmt.Errorf("ws: encode %s: %w", kind, err)
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return transport.ErrClosed
	}
	select {
	case c.send <- frame:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-c.quit:
		return transport.ErrClosed
	}
}

// Done is closed once the connection is gone.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

func (c *Client) Close() error {
	c.shutdown()
	return nil
}

func (c *Client) shutdown() {
	c.closeOnce.Do(func() {
		// Wakes blocked emitters so they drop the read lock.
		close(c.quit)
		c.mu.Lock()
		c.closed = true
		close(c.send)
		c.mu.Unlock()
	})
}

func (c *Client) readPump() {
	defer func() {
		c.shutdown()
		c.conn.Close()
		close(c.done)
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		_, frame, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Warn("[ws] unexpected close", "error", err)
			}
			return
		}
		env, err := chat.Decode(frame)
		if err != nil {
			c.log.Error("[ws] failed to decode frame", "error", err)
			continue
		}
		if n := c.registry.Dispatch(env.Event, env.Data); n == 0 {
			c.log.Debug("[ws] no listener for event", "event", env.Event)
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case frame, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				c.log.Error("[ws] failed to get writer", "error", err)
				return
			}
			_, _ = w.Write(frame)
			if err := w.Close(); err != nil {
				c.log.Error("[ws] failed to close writer", "error", err)
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.log.Error("[ws] failed to send ping", "error", err)
				return
			}
		}
	}
}
