// Package redisbus carries room events over Redis pub/sub, for clients that sit
// next to the chat server instead of behind its WebSocket gateway.
package redisbus

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ageniuscoder/mmchat/client/internal/chat"
	"github.com/ageniuscoder/mmchat/client/internal/transport"
	"github.com/go-redis/redis/v8"
	"github.com/goccy/go-json"
)

const ServerChannel = "mmchat:server"

// UserChannel is where the server publishes events addressed to userID.
func UserChannel(userID string) string {
	return "mmchat:user:" + userID
}

// outbound is the envelope published on ServerChannel. The server has no
// connection identity on this channel, so every frame names its sender.
type outbound struct {
	From  string          `json:"from"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type Bus struct {
	userID   string
	rdb      *redis.Client
	pubsub   *redis.PubSub
	registry *transport.Registry
	log      *slog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.RWMutex
	closed bool
}

var _ transport.Transport = (*Bus)(nil)

// Connect parses redisURL, checks the connection and subscribes to the
// user's channel.
func Connect(ctx context.Context, redisURL, userID string, logger *slog.Logger) (*Bus, error) {
	if logger == nil {
		logger = slog.Default()
	}
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redisbus: parse url: %w", err)
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redisbus: ping: %w", err)
	}

	channel := UserChannel(userID)
	pubsub := rdb.Subscribe(ctx, channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		rdb.Close()
		return nil, fmt.Errorf("redisbus: subscribe %s: %w", channel, err)
	}
	logger.Info("[redis] subscribed", "channel", channel)

	runCtx, cancel := context.WithCancel(context.Background())
	b := &Bus{
		userID:   userID,
		rdb:      rdb,
		pubsub:   pubsub,
		registry: transport.NewRegistry(),
		log:      logger,
		cancel:   cancel,
	}
	b.wg.Add(1)
	go b.listen(runCtx)
	return b, nil
}

func (b *Bus) On(kind string, h transport.Handler) transport.Unsubscribe {
	return b.registry.On(kind, h)
}

// Emit publishes one envelope on the server channel.
func (b *Bus) Emit(ctx context.Context, kind string, payload any) error {
	b.mu.RLock()
	closed := b.closed
	b.mu.RUnlock()
	if closed {
		return transport.ErrClosed
	}

	frame, err := b.encode(kind, payload)
	if err != nil {
		return fmt.Errorf("redisbus: encode %s: %w", kind, err)
	}
	if err := b.rdb.Publish(ctx, ServerChannel, frame).Err(); err != nil {
		b.log.Error("[redis] failed to publish event", "type", kind, "channel", ServerChannel, "error", err)
		return err
	}
	return nil
}

func (b *Bus) encode(kind string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(outbound{From: b.userID, Event: kind, Data: data})
}

func (b *Bus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.mu.Unlock()

	b.cancel()
	err := b.pubsub.Close()
	b.wg.Wait()
	if cerr := b.rdb.Close(); err == nil {
		err = cerr
	}
	return err
}

func (b *Bus) listen(ctx context.Context) {
	defer b.wg.Done()
	ch := b.pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				b.log.Info("[redis] pub/sub channel closed")
				return
			}
			b.handle(msg.Payload)
		}
	}
}

func (b *Bus) handle(payload string) {
	env, err := chat.Decode([]byte(payload))
	if err != nil {
		b.log.Error("[redis] error unmarshaling event", "error", err, "payload", payload)
		return
	}
	b.registry.Dispatch(env.Event, env.Data)
}
