// Package api talks to the chat service's REST endpoints.
package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ageniuscoder/mmchat/client/internal/chat"
	"github.com/ageniuscoder/mmchat/client/internal/history"
	"github.com/ageniuscoder/mmchat/client/internal/httpx"
)

type Client struct {
	BaseURL string
	Token   string
	HTTP    *http.Client
}

var _ history.Fetcher = (*Client)(nil)

func New(baseURL, token string, timeout time.Duration) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		HTTP:    &http.Client{Timeout: timeout},
	}
}

// ChatDetails is the room record returned by GET /chat/:id.
type ChatDetails struct {
	ID        string   `json:"_id"`
	Name      string   `json:"name"`
	GroupChat bool     `json:"groupChat"`
	Creator   string   `json:"creator,omitempty"`
	Members   []string `json:"members"`
}

type pageResp struct {
	Messages   []chat.Message `json:"messages"`
	TotalPages int            `json:"totalPages"`
}

type detailsResp struct {
	Chat ChatDetails `json:"chat"`
}

func (c *Client) FetchPage(ctx context.Context, chatID string, page int) (history.Page, error) {
	u := fmt.Sprintf("%s/api/v1/chat/message/%s?page=%s", c.BaseURL, url.PathEscape(chatID), strconv.Itoa(page))
	var resp pageResp
	if err := httpx.GetJSON(ctx, c.HTTP, u, c.Token, &resp); err != nil {
		return history.Page{}, fmt.Errorf("fetch messages of %s page %d: %w", chatID, page, err)
	}
	msgs := make([]chat.Message, len(resp.Messages))
	for i, m := range resp.Messages {
		msgs[i] = m.Normalize()
	}
	return history.Page{Messages: msgs, TotalPages: resp.TotalPages}, nil
}

func (c *Client) ChatDetails(ctx context.Context, chatID string) (ChatDetails, error) {
	u := fmt.Sprintf("%s/api/v1/chat/%s", c.BaseURL, url.PathEscape(chatID))
	var resp detailsResp
	if err := httpx.GetJSON(ctx, c.HTTP, u, c.Token, &resp); err != nil {
		return ChatDetails{}, fmt.Errorf("fetch chat %s: %w", chatID, err)
	}
	return resp.Chat, nil
}

// Members returns the member ids of chatID.
func (c *Client) Members(ctx context.Context, chatID string) ([]string, error) {
	d, err := c.ChatDetails(ctx, chatID)
	if err != nil {
		return nil, err
	}
	return d.Members, nil
}
