package history

import (
	"context"
	"log/slog"
	"time"
)

// PageStore persists fetched pages.
type PageStore interface {
	GetPage(ctx context.Context, chatID string, page int) (p Page, fetchedAt time.Time, ok bool, err error)
	PutPage(ctx context.Context, chatID string, page int, p Page, fetchedAt time.Time) error
	DropChat(ctx context.Context, chatID string) error
}

// CachedFetcher serves fresh older pages from a PageStore and falls through to
// Next for everything else. Page 1 is always fetched from Next because it
// holds the newest messages; when it no longer matches the stored copy the
// chat's page boundaries have shifted and its stored pages are dropped.
type CachedFetcher struct {
	Next  Fetcher
	Store PageStore
	TTL   time.Duration
	Log   *slog.Logger
	Now   func() time.Time
}

var _ Fetcher = (*CachedFetcher)(nil)

func (f *CachedFetcher) FetchPage(ctx context.Context, chatID string, page int) (Page, error) {
	if page == 1 {
		return f.fetchNewest(ctx, chatID)
	}
	now := f.now()
	if p, at, ok, err := f.Store.GetPage(ctx, chatID, page); err != nil {
		f.logger().Warn("[cache] read failed, bypassing", "chat", chatID, "page", page, "error", err)
	} else if ok && now.Sub(at) < f.TTL {
		return p, nil
	}

	p, err := f.Next.FetchPage(ctx, chatID, page)
	if err != nil {
		return Page{}, err
	}
	if err := f.Store.PutPage(ctx, chatID, page, p, now); err != nil {
		f.logger().Warn("[cache] write failed", "chat", chatID, "page", page, "error", err)
	}
	return p, nil
}

func (f *CachedFetcher) fetchNewest(ctx context.Context, chatID string) (Page, error) {
	now := f.now()
	p, err := f.Next.FetchPage(ctx, chatID, 1)
	if err != nil {
		return Page{}, err
	}
	old, _, ok, err := f.Store.GetPage(ctx, chatID, 1)
	if err != nil {
		f.logger().Warn("[cache] read failed", "chat", chatID, "page", 1, "error", err)
	}
	if err != nil || (ok && !samePage(old, p)) {
		if err := f.Store.DropChat(ctx, chatID); err != nil {
			f.logger().Warn("[cache] drop failed", "chat", chatID, "error", err)
		}
	}
	if err := f.Store.PutPage(ctx, chatID, 1, p, now); err != nil {
		f.logger().Warn("[cache] write failed", "chat", chatID, "page", 1, "error", err)
	}
	return p, nil
}

func samePage(a, b Page) bool {
	if a.TotalPages != b.TotalPages || len(a.Messages) != len(b.Messages) {
		return false
	}
	for i := range a.Messages {
		if a.Messages[i].ID != b.Messages[i].ID {
			return false
		}
	}
	return true
}

func (f *CachedFetcher) now() time.Time {
	if f.Now != nil {
		return f.Now()
	}
	return time.Now()
}

func (f *CachedFetcher) logger() *slog.Logger {
	if f.Log != nil {
		return f.Log
	}
	return slog.Default()
}
