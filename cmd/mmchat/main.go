package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ageniuscoder/mmchat/client/internal/api"
	"github.com/ageniuscoder/mmchat/client/internal/appstate"
	"github.com/ageniuscoder/mmchat/client/internal/auth"
	"github.com/ageniuscoder/mmchat/client/internal/chat"
	"github.com/ageniuscoder/mmchat/client/internal/config"
	"github.com/ageniuscoder/mmchat/client/internal/console"
	"github.com/ageniuscoder/mmchat/client/internal/history"
	"github.com/ageniuscoder/mmchat/client/internal/room"
	"github.com/ageniuscoder/mmchat/client/internal/storage/postgres"
	"github.com/ageniuscoder/mmchat/client/internal/storage/sqlite"
	"github.com/ageniuscoder/mmchat/client/internal/transport"
	"github.com/ageniuscoder/mmchat/client/internal/transport/redisbus"
	"github.com/ageniuscoder/mmchat/client/internal/transport/ws"
	"github.com/goccy/go-json"
	"github.com/joho/godotenv"
)

type closingTransport interface {
	transport.Transport
	io.Closer
}

func main() {
	token := flag.String("token", "", "service token, overrides MMCHAT_TOKEN")
	join := flag.String("join", "", "chat to open at startup")
	flag.Parse()

	//config part
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}
	if *token != "" {
		os.Setenv("MMCHAT_TOKEN", *token)
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	claims, err := auth.ParseClaims(cfg.Token)
	if err != nil {
		log.Fatalf("Error reading token: %v", err)
	}
	if claims.Expired(time.Now()) {
		log.Fatalf("Token expired at %s, sign in again", claims.ExpiresAt.Time.Format(time.RFC3339))
	}
	state := appstate.New()
	state.Login(claims)
	defer state.Logout()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	//transport
	tr, err := dialTransport(ctx, cfg, claims.UserID, logger)
	if err != nil {
		log.Fatalf("Error connecting transport: %v", err)
	}
	defer tr.Close()
	if c, ok := tr.(*ws.Client); ok {
		go func() {
			select {
			case <-c.Done():
				slog.Warn("[ws] connection lost, shutting down")
				stop()
			case <-ctx.Done():
			}
		}()
	}

	//history, optionally behind the page cache
	client := api.New(cfg.APIURL, cfg.Token, cfg.HTTPTimeout)
	fetcher, closeCache, err := buildFetcher(ctx, cfg, client, logger)
	if err != nil {
		log.Fatalf("Error opening page cache: %v", err)
	}
	defer closeCache()

	host := console.NewHost(os.Stdout)
	sess := room.NewSession(room.Deps{
		Transport: tr,
		History:   fetcher,
		Members:   client,
		Errors:    &console.Surface{Log: logger},
		Scroll:    host,
		Navigator: &console.Navigator{Log: logger, OnNavigate: func(string) {
			fmt.Fprintln(os.Stdout, "~ back to the chat list, /join another chat")
		}},
		Alerts: state,
	}, room.Options{
		UserID:          claims.UserID,
		QuietPeriod:     cfg.TypingQuiet,
		ScrollThreshold: cfg.ScrollThreshold,
		Logger:          logger,
	})
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := sess.Close(closeCtx); err != nil {
			slog.Warn("closing session", "error", err)
		}
	}()

	unsub := tr.On(chat.EventNewMessageAlert, func(data []byte) {
		var p chat.MessageAlertPayload
		if err := json.Unmarshal(data, &p); err != nil {
			slog.Warn("bad NEW_MESSAGE_ALERT payload", "error", err)
			return
		}
		v, err := sess.View(ctx)
		if err != nil || v.RoomID == p.ChatID {
			return
		}
		n := state.IncrementAlert(p.ChatID)
		fmt.Fprintf(os.Stdout, "* %d new in %s\n", n, p.ChatID)
	})
	defer unsub()

	go func() {
		for {
			select {
			case <-host.Changed():
				if v, err := sess.View(ctx); err == nil {
					host.Render(v)
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	r := &repl{sess: sess, host: host, state: state, out: os.Stdout}
	if *join != "" {
		if err := r.exec(ctx, "/join "+*join); err != nil {
			slog.Error("join", "error", err)
		}
	}

	fmt.Println("Entry point of MmChat, /help for commands")
	lines := make(chan string)
	go func() {
		sc := bufio.NewScanner(os.Stdin)
		for sc.Scan() {
			lines <- sc.Text()
		}
		close(lines)
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			err := r.exec(ctx, line)
			if errors.Is(err, errQuit) {
				return
			}
			if err != nil {
				fmt.Fprintln(os.Stdout, "!", err)
			}
		}
	}
}

func dialTransport(ctx context.Context, cfg config.Config, userID string, logger *slog.Logger) (closingTransport, error) {
	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if cfg.Transport == "redis" {
		bus, err := redisbus.Connect(dialCtx, cfg.RedisURL, userID, logger)
		if err != nil {
			return nil, err
		}
		return bus, nil
	}
	c, err := ws.Dial(dialCtx, cfg.WSURL, cfg.Token, logger)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func buildFetcher(ctx context.Context, cfg config.Config, next history.Fetcher, logger *slog.Logger) (history.Fetcher, func(), error) {
	switch cfg.Cache {
	case "sqlite":
		db, err := sqlite.New(cfg.SQLITEDsn)
		if err != nil {
			return nil, nil, err
		}
		if err := db.Migrate(); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("migrate: %w", err)
		}
		if n, err := db.Purge(ctx, time.Now().Add(-cfg.CacheTTL)); err != nil {
			slog.Warn("[cache] purge failed", "error", err)
		} else if n > 0 {
			slog.Info("[cache] purged stale pages", "count", n)
		}
		return &history.CachedFetcher{Next: next, Store: db, TTL: cfg.CacheTTL, Log: logger}, func() { db.Close() }, nil
	case "postgres":
		db, err := postgres.New(cfg.PostgresDsn)
		if err != nil {
			return nil, nil, err
		}
		if err := db.Migrate(); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("migrate: %w", err)
		}
		return &history.CachedFetcher{Next: next, Store: db, TTL: cfg.CacheTTL, Log: logger}, func() { db.Close() }, nil
	default:
		return next, func() {}, nil
	}
}
