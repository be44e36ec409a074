package fx

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mehulsingh1010/travelBud-sub000/internal/models"
)

func testSnapshot(base string) *models.RateSnapshot {
	return &models.RateSnapshot{
		ID:        "snap-" + base,
		Provider:  "test",
		Base:      base,
		Rates:     map[string]decimal.Decimal{"USD": decimal.RequireFromString("83.25")},
		FetchedAt: 1700000000,
	}
}

func TestMemoryCache(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryCache()
	now := time.Unix(1700000000, 0)
	cache.now = func() time.Time { return now }

	got, err := cache.Get(ctx, "INR")
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, cache.Set(ctx, testSnapshot("INR"), time.Minute))

	got, err = cache.Get(ctx, "INR")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "snap-INR", got.ID)

	now = now.Add(2 * time.Minute)
	got, err = cache.Get(ctx, "INR")
	require.NoError(t, err)
	assert.Nil(t, got, "expired entry should miss")

	require.NoError(t, cache.Set(ctx, testSnapshot("INR"), time.Minute))
	require.NoError(t, cache.Delete(ctx, "INR"))
	got, err = cache.Get(ctx, "INR")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRedisCache(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	cache := NewRedisCache(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "fx:")
	defer cache.Close()

	got, err := cache.Get(ctx, "INR")
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, cache.Set(ctx, testSnapshot("INR"), time.Minute))
	assert.True(t, mr.Exists("fx:INR"))

	got, err = cache.Get(ctx, "INR")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "INR", got.Base)
	assert.True(t, got.Rates["USD"].Equal(decimal.RequireFromString("83.25")))

	mr.FastForward(2 * time.Minute)
	got, err = cache.Get(ctx, "INR")
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, cache.Set(ctx, testSnapshot("EUR"), time.Minute))
	require.NoError(t, cache.Delete(ctx, "EUR"))
	assert.False(t, mr.Exists("fx:EUR"))
}

func TestNewRedisCacheFromURL(t *testing.T) {
	mr := miniredis.RunT(t)

	cache, err := NewRedisCacheFromURL("redis://"+mr.Addr()+"/0", "fx:")
	require.NoError(t, err)
	defer cache.Close()

	require.NoError(t, cache.Set(context.Background(), testSnapshot("USD"), time.Minute))
	assert.True(t, mr.Exists("fx:USD"))

	_, err = NewRedisCacheFromURL("://bad", "fx:")
	assert.Error(t, err)
}
