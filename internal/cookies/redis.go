package cookies

import (
	"context"
	"log"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"
)

const visitorKeyPrefix = "ttevents:visitor:"

// VisitorStore keeps cookies server-side per visitor id, for hosts that
// cannot round-trip browser cookies.
type VisitorStore struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewVisitorStore returns a store whose entries expire ttl after the last write.
func NewVisitorStore(rdb *redis.Client, ttl time.Duration) *VisitorStore {
	return &VisitorStore{rdb: rdb, ttl: ttl}
}

// NewRedisClient parses a redis:// URL.
func NewRedisClient(url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, errors.Wrap(err, "parse REDIS_URL")
	}
	return redis.NewClient(opts), nil
}

// Ping checks connectivity.
func (s *VisitorStore) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

// For binds the store to one visitor for the lifetime of ctx.
func (s *VisitorStore) For(ctx context.Context, visitorID string) *VisitorCookies {
	return &VisitorCookies{
		ctx:   ctx,
		store: s,
		key:   visitorKeyPrefix + visitorID,
	}
}

// VisitorCookies is the cookie view of a single visitor. Redis failures
// are logged and read as missing values.
type VisitorCookies struct {
	ctx   context.Context
	store *VisitorStore
	key   string
}

var _ Store = (*VisitorCookies)(nil)

func (v *VisitorCookies) Get(key string) string {
	val, err := v.store.rdb.HGet(v.ctx, v.key, key).Result()
	if err != nil {
		if err != redis.Nil {
			log.Printf("visitor cookie get %s/%s: %v", v.key, key, err)
		}
		return ""
	}
	return val
}

func (v *VisitorCookies) Set(key, value string) {
	pipe := v.store.rdb.TxPipeline()
	pipe.HSet(v.ctx, v.key, key, value)
	if v.store.ttl > 0 {
		pipe.Expire(v.ctx, v.key, v.store.ttl)
	}
	if _, err := pipe.Exec(v.ctx); err != nil {
		log.Printf("visitor cookie set %s/%s: %v", v.key, key, err)
	}
}
