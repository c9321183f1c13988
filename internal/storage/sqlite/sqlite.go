package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ageniuscoder/mmchat/client/internal/history"
	"github.com/goccy/go-json"
	_ "modernc.org/sqlite"
)

type Sqlite struct {
	Db *sql.DB
}

var _ history.PageStore = (*Sqlite)(nil)

func New(dsn string) (*Sqlite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	// Single connection for SQLite
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	// Enable WAL for better concurrency
	_, _ = db.Exec(`PRAGMA journal_mode=WAL;`)

	// Wait up to 5s if locked
	_, _ = db.Exec(`PRAGMA busy_timeout = 5000;`)

	return &Sqlite{
		Db: db,
	}, nil
}

func (s *Sqlite) Ping(ctx context.Context) error {
	return s.Db.PingContext(ctx)
}

func (s *Sqlite) Close() error {
	return s.Db.Close()
}

func (s *Sqlite) GetPage(ctx context.Context, chatID string, page int) (history.Page, time.Time, bool, error) {
	var (
		payload []byte
		at      int64
	)
	err := s.Db.QueryRowContext(ctx,
		`SELECT payload, fetched_at FROM page_cache WHERE chat_id=? AND page=?`, chatID, page).
		Scan(&payload, &at)
	if errors.Is(err, sql.ErrNoRows) {
		return history.Page{}, time.Time{}, false, nil
	}
	if err != nil {
		return history.Page{}, time.Time{}, false, fmt.Errorf("sqlite: read page %s/%d: %w", chatID, page, err)
	}

	var p history.Page
	if err := json.Unmarshal(payload, &p); err != nil {
		return history.Page{}, time.Time{}, false, fmt.Errorf("sqlite: decode page %s/%d: %w", chatID, page, err)
	}
	return p, time.UnixMilli(at), true, nil
}

func (s *Sqlite) PutPage(ctx context.Context, chatID string, page int, p history.Page, fetchedAt time.Time) error {
	payload, err := json.Marshal(p)
	if err != nil {
		return err
	}
	_, err = s.Db.ExecContext(ctx,
		`INSERT INTO page_cache (chat_id, page, payload, fetched_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(chat_id, page) DO UPDATE SET payload=excluded.payload, fetched_at=excluded.fetched_at`,
		chatID, page, payload, fetchedAt.UnixMilli())
	return err
}

// Purge drops entries fetched before cutoff.
func (s *Sqlite) Purge(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.Db.ExecContext(ctx, `DELETE FROM page_cache WHERE fetched_at < ?`, cutoff.UnixMilli())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *Sqlite) DropChat(ctx context.Context, chatID string) error {
	_, err := s.Db.ExecContext(ctx, `DELETE FROM page_cache WHERE chat_id=?`, chatID)
	return err
}
