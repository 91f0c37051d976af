package token

import (
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
)

const revokedKeyPrefix = "revoked:"

// RedisDenylist keeps one key per revoked jti with a TTL matching the
// token's remaining lifetime, so entries vanish on their own.
type RedisDenylist struct {
	rdb   redis.Cmdable
	clock clockwork.Clock
}

func NewRedisDenylist(rdb redis.Cmdable, clock clockwork.Clock) *RedisDenylist {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &RedisDenylist{rdb: rdb, clock: clock}
}

// NewRedisClient parses a redis:// URL and pings the server.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return rdb, nil
}

func (d *RedisDenylist) Revoke(ctx context.Context, jti, subject string, expiresAt time.Time) error {
	ttl := expiresAt.Sub(d.clock.Now())
	if ttl <= 0 {
		return nil
	}
	if err := d.rdb.Set(ctx, revokedKeyPrefix+jti, subject, ttl).Err(); err != nil {
		return fmt.Errorf("redis revoke: %w", err)
	}
	return nil
}

func (d *RedisDenylist) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := d.rdb.Exists(ctx, revokedKeyPrefix+jti).Result()
	if err != nil {
		return false, fmt.Errorf("redis lookup: %w", err)
	}
	return n > 0, nil
}
