// Package history loads past messages of a chat page by page.
package history

import (
	"context"

	"github.com/ageniuscoder/mmchat/client/internal/chat"
)

// Page is one chunk of history, oldest message first.
type Page struct {
	Messages   []chat.Message `json:"messages"`
	TotalPages int            `json:"totalPages"`
}

type Fetcher interface {
	FetchPage(ctx context.Context, chatID string, page int) (Page, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, chatID string, page int) (Page, error)

func (f FetcherFunc) FetchPage(ctx context.Context, chatID string, page int) (Page, error) {
	return f(ctx, chatID, page)
}
