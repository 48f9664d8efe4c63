package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type item struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

func setupRedis(t *testing.T) (*Redis, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedis(client), mr
}

func backends(t *testing.T) map[string]Backend {
	r, _ := setupRedis(t)
	return map[string]Backend{
		"memory": NewMemory(16, time.Minute),
		"redis":  r,
	}
}

func TestGetOrLoadCachesLoaderResult(t *testing.T) {
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			calls := 0
			load := func(context.Context) (item, error) {
				calls++
				return item{ID: 7, Name: "Urbano"}, nil
			}

			first, err := GetOrLoad(ctx, b, "lookup:center_type:id:7", time.Minute, load)
			require.NoError(t, err)
			second, err := GetOrLoad(ctx, b, "lookup:center_type:id:7", time.Minute, load)
			require.NoError(t, err)

			assert.Equal(t, first, second)
			assert.Equal(t, 1, calls, "second read must be served from cache")
		})
	}
}

func TestGetOrLoadDoesNotCacheErrors(t *testing.T) {
	b := NewMemory(16, time.Minute)
	ctx := context.Background()
	boom := errors.New("db down")

	_, err := GetOrLoad(ctx, b, "k", time.Minute, func(context.Context) (item, error) {
		return item{}, boom
	})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 0, b.Len())
}

func TestDeletePrefixRemovesOnlyMatchingKeys(t *testing.T) {
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			keys := []string{
				"lookup:meal_type:list:10:0::false",
				"lookup:meal_type:list:10:10:des:false",
				"lookup:meal_type:id:3",
				"lookup:meal_type_extra:list:10:0::false",
			}
			for _, k := range keys {
				require.NoError(t, b.Set(ctx, k, []byte(`{}`), time.Minute))
			}

			require.NoError(t, b.DeletePrefix(ctx, "lookup:meal_type:list:"))

			for _, k := range keys[:2] {
				_, ok, err := b.Get(ctx, k)
				require.NoError(t, err)
				assert.False(t, ok, "expected %s to be invalidated", k)
			}
			for _, k := range keys[2:] {
				_, ok, err := b.Get(ctx, k)
				require.NoError(t, err)
				assert.True(t, ok, "expected %s to survive", k)
			}
		})
	}
}

func TestInvalidateKeysAndPrefixes(t *testing.T) {
	r, mr := setupRedis(t)
	ctx := context.Background()
	require.NoError(t, r.Set(ctx, "lookup:facility:id:1", []byte("1"), time.Minute))
	require.NoError(t, r.Set(ctx, "lookup:facility:list:10:0::false", []byte("[]"), time.Minute))

	Invalidate(ctx, r, []string{"lookup:facility:id:1"}, "lookup:facility:list:")

	assert.False(t, mr.Exists("lookup:facility:id:1"))
	assert.False(t, mr.Exists("lookup:facility:list:10:0::false"))
}

func TestRedisTTLApplied(t *testing.T) {
	r, mr := setupRedis(t)
	ctx := context.Background()
	require.NoError(t, r.Set(ctx, "k", []byte("v"), 30*time.Second))

	mr.FastForward(31 * time.Second)
	_, ok, err := r.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEscapeGlob(t *testing.T) {
	assert.Equal(t, `lookup:x\*:list:`, escapeGlob("lookup:x*:list:"))
	assert.Equal(t, `a\[b\]\?`, escapeGlob("a[b]?"))
}

func TestOpenSelectsBackend(t *testing.T) {
	ctx := context.Background()

	b, err := Open(ctx, Options{Backend: "none"})
	require.NoError(t, err)
	assert.Equal(t, "none", b.Name())

	b, err = Open(ctx, Options{Backend: "memory", Size: 8, TTL: time.Second})
	require.NoError(t, err)
	assert.Equal(t, "memory", b.Name())

	mr := miniredis.RunT(t)
	b, err = Open(ctx, Options{Backend: "redis", RedisAddr: mr.Addr()})
	require.NoError(t, err)
	assert.Equal(t, "redis", b.Name())

	_, err = Open(ctx, Options{Backend: "memcached"})
	require.Error(t, err)
}
