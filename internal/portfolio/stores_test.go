package portfolio

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
)

func TestMongoStoreRetriesAfterFailedConnect(t *testing.T) {
	s := NewMongoStore("mongodb://127.0.0.1:1/?serverSelectionTimeoutMS=200&connectTimeoutMS=200", "")
	require.Equal(t, DefaultDatabase, s.database)

	for attempt := 0; attempt < 2; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		_, err := s.Get(ctx, "ana@example.com")
		cancel()
		require.ErrorContains(t, err, "mongodb")
		require.Nil(t, s.client)
	}
	require.NoError(t, s.Close(context.Background()))
}

func TestMongoStoreRequiresURI(t *testing.T) {
	s := NewMongoStore("", "portfolio")
	_, err := s.Add(context.Background(), "ana@example.com", "TCS.NS")
	require.ErrorContains(t, err, "not configured")

	_, err = s.Add(context.Background(), "ana@example.com", "  ")
	require.ErrorIs(t, err, ErrInvalidSymbol)
}

func newTestRedisStore(t *testing.T) *RedisStore {
	t.Helper()
	mr := miniredis.RunT(t)

	client, err := NewRedisClient(context.Background(), "redis://"+mr.Addr()+"/0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	store := NewRedisStore(client)
	tick := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	store.now = func() time.Time {
		tick = tick.Add(time.Second)
		return tick
	}
	return store
}

func TestRedisStoreKeepsInsertionOrder(t *testing.T) {
	s := newTestRedisStore(t)
	ctx := context.Background()
	const owner = "ana@example.com"

	empty, err := s.Get(ctx, "nobody@example.com")
	require.NoError(t, err)
	require.Empty(t, empty.Symbols())

	_, err = s.Add(ctx, owner, "tcs.ns")
	require.NoError(t, err)
	_, err = s.Add(ctx, owner, "INFY.NS")
	require.NoError(t, err)
	h, err := s.Add(ctx, owner, "HDFCBANK.NS")
	require.NoError(t, err)
	require.Equal(t, []string{"TCS.NS", "INFY.NS", "HDFCBANK.NS"}, h.Symbols())

	// a repeated add keeps the original position
	h, err = s.Add(ctx, owner, "TCS.NS")
	require.NoError(t, err)
	require.Equal(t, []string{"TCS.NS", "INFY.NS", "HDFCBANK.NS"}, h.Symbols())

	h, err = s.Remove(ctx, owner, "infy.ns")
	require.NoError(t, err)
	require.Equal(t, []string{"TCS.NS", "HDFCBANK.NS"}, h.Symbols())

	h, err = s.Remove(ctx, owner, "WIPRO.NS")
	require.NoError(t, err)
	require.Equal(t, []string{"TCS.NS", "HDFCBANK.NS"}, h.Symbols())

	_, err = s.Add(ctx, owner, "")
	require.ErrorIs(t, err, ErrInvalidSymbol)
}

func TestNewRedisClientAcceptsPlainAddress(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := NewRedisClient(context.Background(), mr.Addr())
	require.NoError(t, err)
	require.NoError(t, client.Close())

	mr.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err = NewRedisClient(ctx, mr.Addr())
	require.ErrorContains(t, err, "ping redis")
}
