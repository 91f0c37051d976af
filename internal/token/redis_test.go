package token

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisDenylist(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	clock := clockwork.NewFakeClockAt(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	d := NewRedisDenylist(rdb, clock)
	ctx := context.Background()

	ok, err := d.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, d.Revoke(ctx, "jti-1", "42", clock.Now().Add(time.Hour)))
	ok, err = d.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, time.Hour, mr.TTL("revoked:jti-1"))

	mr.FastForward(time.Hour + time.Second)
	ok, err = d.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, ok)

	// already expired tokens are not stored
	require.NoError(t, d.Revoke(ctx, "jti-2", "42", clock.Now().Add(-time.Minute)))
	assert.False(t, mr.Exists("revoked:jti-2"))
}

func TestIssuerWithRedisDenylist(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()
	rdb, err := NewRedisClient(ctx, "redis://"+mr.Addr())
	require.NoError(t, err)
	defer rdb.Close()

	iss := NewIssuer("secret", time.Hour, nil, NewRedisDenylist(rdb, nil))
	raw, claims, err := iss.Issue("42")
	require.NoError(t, err)
	require.NoError(t, iss.Revoke(ctx, claims))

	_, err = iss.Verify(ctx, raw)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestNewRedisClientBadURL(t *testing.T) {
	_, err := NewRedisClient(context.Background(), "::not a url")
	assert.Error(t, err)
}
