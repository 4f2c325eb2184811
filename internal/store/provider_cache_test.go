package store

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"insurance-notifications/internal/common/logger"
	"insurance-notifications/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type MockProviderSource struct {
	FindProviderFunc func(ctx context.Context, id int64) (*models.Provider, error)
	calls            int
}

func (m *MockProviderSource) FindProvider(ctx context.Context, id int64) (*models.Provider, error) {
	m.calls++
	return m.FindProviderFunc(ctx, id)
}

func TestProviderCache_ReadThrough(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	source := &MockProviderSource{FindProviderFunc: func(ctx context.Context, id int64) (*models.Provider, error) {
		return &models.Provider{ID: id, Name: "Acme Insurance"}, nil
	}}
	cache := NewProviderCache(client, source, 10*time.Minute, logger.NewTestLogger(t))

	ctx := context.Background()
	first, err := cache.FindProvider(ctx, 2)
	require.NoError(t, err)
	second, err := cache.FindProvider(ctx, 2)
	require.NoError(t, err)

	assert.Equal(t, "Acme Insurance", first.Name)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, source.calls)
	assert.True(t, mr.Exists("provider:2"))
	assert.Equal(t, 10*time.Minute, mr.TTL("provider:2"))

	require.NoError(t, cache.Invalidate(ctx, 2))
	assert.False(t, mr.Exists("provider:2"))
}

func TestProviderCache_MissingProviderNotCached(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	source := &MockProviderSource{FindProviderFunc: func(ctx context.Context, id int64) (*models.Provider, error) {
		return nil, nil
	}}
	cache := NewProviderCache(client, source, time.Minute, logger.NewTestLogger(t))

	provider, err := cache.FindProvider(context.Background(), 4)
	require.NoError(t, err)
	assert.Nil(t, provider)
	assert.False(t, mr.Exists("provider:4"))
}

func TestProviderCache_RedisFailureFallsBackToSource(t *testing.T) {
	redisClient, redisMock := redismock.NewClientMock()

	provider := &models.Provider{ID: 2, Name: "Acme Insurance"}
	data, err := json.Marshal(provider)
	require.NoError(t, err)

	redisMock.ExpectGet("provider:2").SetErr(errors.New("i/o timeout"))
	redisMock.ExpectSet("provider:2", data, time.Minute).SetErr(errors.New("i/o timeout"))

	source := &MockProviderSource{FindProviderFunc: func(ctx context.Context, id int64) (*models.Provider, error) {
		return provider, nil
	}}
	cache := NewProviderCache(redisClient, source, time.Minute, logger.NewTestLogger(t))

	got, err := cache.FindProvider(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, provider, got)
	assert.NoError(t, redisMock.ExpectationsWereMet())
}

func TestProviderCache_CacheMissThenStore(t *testing.T) {
	redisClient, redisMock := redismock.NewClientMock()

	provider := &models.Provider{ID: 3, Name: "Shield Mutual"}
	data, err := json.Marshal(provider)
	require.NoError(t, err)

	redisMock.ExpectGet("provider:3").RedisNil()
	redisMock.ExpectSet("provider:3", data, time.Minute).SetVal("OK")

	source := &MockProviderSource{FindProviderFunc: func(ctx context.Context, id int64) (*models.Provider, error) {
		return provider, nil
	}}
	cache := NewProviderCache(redisClient, source, time.Minute, logger.NewTestLogger(t))

	got, err := cache.FindProvider(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, provider, got)
	assert.NoError(t, redisMock.ExpectationsWereMet())
}

func TestProviderCache_SourceErrorPropagates(t *testing.T) {
	redisClient, redisMock := redismock.NewClientMock()
	redisMock.ExpectGet("provider:5").RedisNil()

	source := &MockProviderSource{FindProviderFunc: func(ctx context.Context, id int64) (*models.Provider, error) {
		return nil, errors.New("db down")
	}}
	cache := NewProviderCache(redisClient, source, time.Minute, logger.NewTestLogger(t))

	_, err := cache.FindProvider(context.Background(), 5)
	assert.EqualError(t, err, "db down")
}
