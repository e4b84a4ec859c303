package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redisv9 "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"secondbrain/internal/model"
)

func newTestCache(t *testing.T) (*HistoryCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redisv9.NewClient(&redisv9.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewHistoryCache(client, time.Minute, 5*time.Second), mr
}

func TestHistoryCache_RoundTrip(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	_, hit, err := c.GetHistory(ctx, "conv-1")
	require.NoError(t, err)
	assert.False(t, hit)

	msgs := []model.Message{
		{ID: 1, ConversationID: "conv-1", Role: model.RoleUser, Content: "what did I read?"},
		{ID: 2, ConversationID: "conv-1", Role: model.RoleAssistant, Content: "a paper",
			Sources: datatypes.JSONSlice[model.MessageSource]{{DocumentID: "d1", Title: "Paper", Relevance: 0.9}}},
	}
	require.NoError(t, c.SetHistory(ctx, "conv-1", msgs))

	got, hit, err := c.GetHistory(ctx, "conv-1")
	require.NoError(t, err)
	require.True(t, hit)
	require.Len(t, got, 2)
	assert.Equal(t, "a paper", got[1].Content)
	assert.Equal(t, "d1", got[1].Sources[0].DocumentID)
}

func TestHistoryCache_TTL(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.SetHistory(ctx, "conv-1", nil))
	mr.FastForward(2 * time.Minute)

	_, hit, err := c.GetHistory(ctx, "conv-1")
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestHistoryCache_InvalidateMarksDirtyAndDrops(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.SetHistory(ctx, "conv-1", []model.Message{{Content: "x"}}))
	require.NoError(t, c.Invalidate(ctx, "conv-1"))

	dirty, err := c.IsDirty(ctx, "conv-1")
	require.NoError(t, err)
	assert.True(t, dirty)

	_, hit, err := c.GetHistory(ctx, "conv-1")
	require.NoError(t, err)
	assert.False(t, hit)

	mr.FastForward(6 * time.Second)
	dirty, err = c.IsDirty(ctx, "conv-1")
	require.NoError(t, err)
	assert.False(t, dirty)
}

func TestHistoryCache_CorruptPayload(t *testing.T) {
	c, mr := newTestCache(t)
	require.NoError(t, mr.Set(historyKey("conv-1"), "{not json"))

	_, _, err := c.GetHistory(context.Background(), "conv-1")
	assert.ErrorContains(t, err, "unmarshal cached history failed")
}
