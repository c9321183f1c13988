package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ageniuscoder/mmchat/client/internal/history"
	"github.com/goccy/go-json"
	_ "github.com/lib/pq"
)

type Postgres struct {
	Db *sql.DB
}

var _ history.PageStore = (*Postgres)(nil)

func New(dsn string) (*Postgres, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	// Verify connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}
	return &Postgres{
		Db: db,
	}, nil
}

func (s *Postgres) Ping(ctx context.Context) error {
	return s.Db.PingContext(ctx)
}

func (s *Postgres) Close() error {
	return s.Db.Close()
}

func (s *Postgres) GetPage(ctx context.Context, chatID string, page int) (history.Page, time.Time, bool, error) {
	var (
		payload []byte
		at      int64
	)
	err := s.Db.QueryRowContext(ctx,
		`SELECT payload, fetched_at FROM page_cache WHERE chat_id=$1 AND page=$2`, chatID, page).
		Scan(&payload, &at)
	if errors.Is(err, sql.ErrNoRows) {
		return history.Page{}, time.Time{}, false, nil
	}
	if err != nil {
		return history.Page{}, time.Time{}, false, fmt.Errorf("postgres: read page %s/%d: %w", chatID, page, err)
	}

	var p history.Page
	if err := json.Unmarshal(payload, &p); err != nil {
		return history.Page{}, time.Time{}, false, fmt.Errorf("postgres: decode page %s/%d: %w", chatID, page, err)
	}
	return p, time.UnixMilli(at), true, nil
}

func (s *Postgres) PutPage(ctx context.Context, chatID string, page int, p history.Page, fetchedAt time.Time) error {
	payload, err := json.Marshal(p)
	if err != nil {
		return err
	}
	_, err = s.Db.ExecContext(ctx,
		`INSERT INTO page_cache (chat_id, page, payload, fetched_at) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (chat_id, page) DO UPDATE SET payload=EXCLUDED.payload, fetched_at=EXCLUDED.fetched_at`,
		chatID, page, payload, fetchedAt.UnixMilli())
	return err
}

func (s *Postgres) DropChat(ctx context.Context, chatID string) error {
	_, err := s.Db.ExecContext(ctx, `DELETE FROM page_cache WHERE chat_id=$1`, chatID)
	return err
}
