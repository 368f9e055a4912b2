package memo_test

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"poolScope/internal/memo"
	"poolScope/internal/pricing"
)

// fakeRedis serves GET and SET from a map; every other command panics.
type fakeRedis struct {
	redis.Cmdable
	values map[string]string
	ttls   map[string]time.Duration
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{values: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeRedis) Get(_ context.Context, key string) *redis.StringCmd {
	value, ok := f.values[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(value, nil)
}

func (f *fakeRedis) Set(_ context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	switch v := value.(type) {
	case []byte:
		f.values[key] = string(v)
	case string:
		f.values[key] = v
	}
	f.ttls[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

func TestRedisStoreMiss(t *testing.T) {
	store := memo.NewRedisStore[pricing.Quote](newFakeRedis(), "poolscope:ethereum:", time.Hour)

	_, ok, err := store.Get(context.Background(), "TokenPrice:0xabc:1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisStoreQuoteRoundTrip(t *testing.T) {
	ctx := context.Background()
	client := newFakeRedis()
	store := memo.NewRedisStore[pricing.Quote](client, "poolscope:ethereum:", time.Hour)

	want := pricing.Quote{Price: 0.998, Source: "quoter"}
	require.NoError(t, store.Set(ctx, "TokenPrice:0xabc:1", want))
	assert.Contains(t, client.values, "poolscope:ethereum:TokenPrice:0xabc:1")
	assert.Equal(t, time.Hour, client.ttls["poolscope:ethereum:TokenPrice:0xabc:1"])

	got, ok, err := store.Get(ctx, "TokenPrice:0xabc:1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, want, got)
}

func TestRedisStoreDecodeError(t *testing.T) {
	client := newFakeRedis()
	client.values["p:TokenPrice:0xabc:1"] = "not json"
	store := memo.NewRedisStore[pricing.Quote](client, "p:", 0)

	_, ok, err := store.Get(context.Background(), "TokenPrice:0xabc:1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode TokenPrice:0xabc:1")
	assert.False(t, ok)
}
