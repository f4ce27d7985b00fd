package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/seu-repo/handover-engine/internal/ports"
)

func TestRedisCache_GetMissMapsToErrCacheMiss(t *testing.T) {
	db, mock := redismock.NewClientMock()
	c := NewRedisCache(db, zap.NewNop())

	mock.ExpectGet("booking:b-1").RedisNil()

	_, err := c.Get(context.Background(), "booking:b-1")

	assert.ErrorIs(t, err, ports.ErrCacheMiss)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisCache_SetAndGet(t *testing.T) {
	db, mock := redismock.NewClientMock()
	c := NewRedisCache(db, zap.NewNop())
	ctx := context.Background()

	mock.ExpectSet("booking:b-1", `{"id":"b-1"}`, 10*time.Minute).SetVal("OK")
	mock.ExpectGet("booking:b-1").SetVal(`{"id":"b-1"}`)

	require.NoError(t, c.Set(ctx, "booking:b-1", `{"id":"b-1"}`, 10*time.Minute))
	got, err := c.Get(ctx, "booking:b-1")

	require.NoError(t, err)
	assert.Equal(t, `{"id":"b-1"}`, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisCache_GetError(t *testing.T) {
	db, mock := redismock.NewClientMock()
	c := NewRedisCache(db, zap.NewNop())

	mock.ExpectGet("booking:b-1").SetErr(errors.New("i/o timeout"))

	_, err := c.Get(context.Background(), "booking:b-1")

	require.Error(t, err)
	assert.False(t, errors.Is(err, ports.ErrCacheMiss))
}

func TestLocalCache_Expiry(t *testing.T) {
	c := NewLocalCache(time.Hour, zap.NewNop())
	defer c.Close()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", "v", 20*time.Millisecond))
	got, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", got)

	time.Sleep(30 * time.Millisecond)
	_, err = c.Get(ctx, "k")
	assert.ErrorIs(t, err, ports.ErrCacheMiss)

	c.cleanup()
	assert.Empty(t, c.data)
}
