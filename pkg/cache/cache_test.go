package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type profile struct {
	Name string `json:"name"`
	Age  int    `json:"age"`
}

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return New(rdb, 0), mr
}

func countingProducer(calls *int, v *profile) func(context.Context) (*profile, error) {
	return func(context.Context) (*profile, error) {
		*calls++
		return v, nil
	}
}

func TestGetReadThrough(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()
	calls := 0
	producer := countingProducer(&calls, &profile{Name: "ada", Age: 36})

	v, err := Get(ctx, c, "profile:1", producer)
	require.NoError(t, err)
	assert.Equal(t, "ada", v.Name)

	v, err = Get(ctx, c, "profile:1", producer)
	require.NoError(t, err)
	assert.Equal(t, 36, v.Age)
	assert.Equal(t, 1, calls)

	assert.Equal(t, DefaultTTL, mr.TTL("profile:1"))
}

func TestGetHonoursTTLAndForceFresh(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()
	calls := 0
	producer := countingProducer(&calls, &profile{Name: "bob"})

	_, err := Get(ctx, c, "k", producer, WithTTL(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, time.Minute, mr.TTL("k"))

	_, err = Get(ctx, c, "k", producer, ForceFresh())
	require.NoError(t, err)
	assert.Equal(t, 2, calls)

	mr.FastForward(DefaultTTL + time.Second)
	_, err = Get(ctx, c, "k", producer)
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestGetWrapsProducerFailures(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()
	boom := errors.New("boom")

	_, err := Get(ctx, c, "k", func(context.Context) (*profile, error) { return nil, boom })
	var cerr *Error
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "k", cerr.Key)
	assert.ErrorIs(t, err, boom)

	_, err = Get(ctx, c, "k", func(context.Context) (*profile, error) { return nil, nil })
	require.ErrorAs(t, err, &cerr)
	assert.ErrorIs(t, err, ErrNilValue)
}

func TestGetWrapsBackendFailures(t *testing.T) {
	c, mr := newTestCache(t)
	mr.Close()

	_, err := Get(context.Background(), c, "k", countingProducer(new(int), &profile{}))
	var cerr *Error
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "get", cerr.Op)
}

func TestInvalidateIsIdempotent(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()
	require.NoError(t, mr.Set("k", `{"name":"x"}`))

	require.NoError(t, c.Invalidate(ctx, "k"))
	require.NoError(t, c.Invalidate(ctx, "k"))
	assert.False(t, mr.Exists("k"))
}

func TestInvalidatePattern(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()
	for _, k := range []string{"history:u1:a", "history:u1:b", "history:u2:a"} {
		require.NoError(t, mr.Set(k, "{}"))
	}

	require.NoError(t, c.InvalidatePattern(ctx, "history:u1:*"))
	assert.False(t, mr.Exists("history:u1:a"))
	assert.False(t, mr.Exists("history:u1:b"))
	assert.True(t, mr.Exists("history:u2:a"))

	require.NoError(t, c.InvalidatePattern(ctx, "nothing:*"))
}

func TestDisabledCacheCallsProducer(t *testing.T) {
	c := New(nil, 0)
	calls := 0
	producer := countingProducer(&calls, &profile{Name: "x"})

	for i := 0; i < 2; i++ {
		_, err := Get(context.Background(), c, "k", producer)
		require.NoError(t, err)
	}
	assert.Equal(t, 2, calls)
	assert.NoError(t, c.Invalidate(context.Background(), "k"))
}
