package chattest

import (
	"context"
	"testing"
	"time"

	"github.com/ageniuscoder/mmchat/client/internal/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistoryPagesFromNewest(t *testing.T) {
	s := New()
	s.AddChat("c1", "general", "u1", "u2")
	s.Seed("c1", "u2", 45)
	srv := s.Start(t)

	c := api.New(srv.URL, Token("u1"), 5*time.Second)
	ctx := context.Background()

	p1, err := c.FetchPage(ctx, "c1", 1)
	require.NoError(t, err)
	assert.Equal(t, 3, p1.TotalPages)
	require.Len(t, p1.Messages, 20)
	assert.Equal(t, "m0026", p1.Messages[0].ID)
	assert.Equal(t, "m0045", p1.Messages[19].ID)

	p3, err := c.FetchPage(ctx, "c1", 3)
	require.NoError(t, err)
	require.Len(t, p3.Messages, 5)
	assert.Equal(t, "m0001", p3.Messages[0].ID)

	p4, err := c.FetchPage(ctx, "c1", 4)
	require.NoError(t, err)
	assert.Empty(t, p4.Messages)
}

func TestChatDetailsAccess(t *testing.T) {
	s := New()
	s.AddChat("c1", "general", "u1", "u2", "u3")
	srv := s.Start(t)
	ctx := context.Background()

	d, err := api.New(srv.URL, Token("u1"), 5*time.Second).ChatDetails(ctx, "c1")
	require.NoError(t, err)
	assert.True(t, d.GroupChat)
	assert.Equal(t, []string{"u1", "u2", "u3"}, d.Members)

	_, err = api.New(srv.URL, Token("u9"), 5*time.Second).ChatDetails(ctx, "c1")
	assert.ErrorContains(t, err, "not a participant")

	_, err = api.New(srv.URL, "forged", 5*time.Second).ChatDetails(ctx, "c1")
	assert.ErrorContains(t, err, "Invalid Token")
}
