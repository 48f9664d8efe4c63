package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"nutriadmin.org/internal/obs"
)

// Backend stores encoded values under string keys.
type Backend interface {
	Name() string
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	// DeletePrefix removes every key starting with prefix.
	DeletePrefix(ctx context.Context, prefix string) error
}

// Options selects and configures a backend.
type Options struct {
	Backend       string // memory | redis | none
	TTL           time.Duration
	Size          int
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// Open builds the backend named in opts.
func Open(ctx context.Context, opts Options) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(opts.Backend)) {
	case "", "memory":
		return NewMemory(opts.Size, opts.TTL), nil
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     opts.RedisAddr,
			Password: opts.RedisPassword,
			DB:       opts.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("redis ping %s: %w", opts.RedisAddr, err)
		}
		return NewRedis(client), nil
	case "none":
		return Noop{}, nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", opts.Backend)
	}
}

// GetOrLoad returns the cached value for key, or calls load and caches its result.
// Cache failures never fail the call: they are logged and the loader result is returned.
func GetOrLoad[T any](ctx context.Context, b Backend, key string, ttl time.Duration, load func(context.Context) (T, error)) (T, error) {
	if b == nil {
		return load(ctx)
	}
	log := obs.Logger().WithFields(logrus.Fields{"cache_key": key, "backend": b.Name()})

	raw, ok, err := b.Get(ctx, key)
	switch {
	case err != nil:
		obs.ObserveCache(b.Name(), "get", "error")
		log.WithError(err).Warn("cache get failed")
	case ok:
		var v T
		if err := json.Unmarshal(raw, &v); err == nil {
			obs.ObserveCache(b.Name(), "get", "hit")
			return v, nil
		}
		log.Debug("discarding undecodable cache entry")
		obs.ObserveCache(b.Name(), "get", "error")
	default:
		obs.ObserveCache(b.Name(), "get", "miss")
	}

	v, err := load(ctx)
	if err != nil {
		return v, err
	}
	encoded, err := json.Marshal(v)
	if err != nil {
		log.WithError(err).Warn("failed to marshal value for cache")
		return v, nil
	}
	if err := b.Set(ctx, key, encoded, ttl); err != nil {
		obs.ObserveCache(b.Name(), "set", "error")
		log.WithError(err).Warn("cache set failed")
	} else {
		obs.ObserveCache(b.Name(), "set", "ok")
	}
	return v, nil
}

// Invalidate removes the exact keys and every key under the given prefixes.
// Errors are logged; invalidation never fails the caller's write.
func Invalidate(ctx context.Context, b Backend, keys []string, prefixes ...string) {
	if b == nil {
		return
	}
	log := obs.Logger().WithField("backend", b.Name())
	if len(keys) > 0 {
		if err := b.Delete(ctx, keys...); err != nil {
			obs.ObserveCache(b.Name(), "invalidate", "error")
			log.WithError(err).WithField("keys", keys).Warn("cache delete failed")
		} else {
			obs.ObserveCache(b.Name(), "invalidate", "ok")
		}
	}
	for _, p := range prefixes {
		if err := b.DeletePrefix(ctx, p); err != nil {
			obs.ObserveCache(b.Name(), "invalidate", "error")
			log.WithError(err).WithField("prefix", p).Warn("cache prefix delete failed")
		} else {
			obs.ObserveCache(b.Name(), "invalidate", "ok")
		}
	}
}

// Noop never stores anything.
type Noop struct{}

func (Noop) Name() string { return "none" }

func (Noop) Get(context.Context, string) ([]byte, bool, error) { return nil, false, nil }

func (Noop) Set(context.Context, string, []byte, time.Duration) error { return nil }

func (Noop) Delete(context.Context, ...string) error { return nil }

func (Noop) DeletePrefix(context.Context, string) error { return nil }
