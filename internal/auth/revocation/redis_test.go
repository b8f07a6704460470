package revocation

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/dmitrijs2005/gatekeeper/internal/common"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisStore(rdb), mr
}

func TestKey(t *testing.T) {
	assert.Equal(t, "bl_abc.def.ghi", Key("abc.def.ghi"))
}

func TestRedisStore_RevokeWritesRecordWithTokenExpiry(t *testing.T) {
	s, mr := newRedisStore(t)
	ctx := context.Background()

	require.NoError(t, s.Revoke(ctx, "tok", time.Now().Add(time.Hour)))

	got, err := mr.Get("bl_tok")
	require.NoError(t, err)
	assert.Equal(t, "tok", got)

	ttl := mr.TTL("bl_tok")
	assert.Greater(t, ttl, 59*time.Minute)
	assert.LessOrEqual(t, ttl, time.Hour)
}

func TestRedisStore_IsRevoked(t *testing.T) {
	s, mr := newRedisStore(t)
	ctx := context.Background()

	revoked, err := s.IsRevoked(ctx, "tok")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, s.Revoke(ctx, "tok", time.Now().Add(time.Minute)))

	revoked, err = s.IsRevoked(ctx, "tok")
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = s.IsRevoked(ctx, "other")
	require.NoError(t, err)
	assert.False(t, revoked)

	mr.FastForward(2 * time.Minute)

	revoked, err = s.IsRevoked(ctx, "tok")
	require.NoError(t, err)
	assert.False(t, revoked, "record must vanish together with the token")
}

func TestRedisStore_RevokePastExpiryIsNoop(t *testing.T) {
	s, mr := newRedisStore(t)

	require.NoError(t, s.Revoke(context.Background(), "old", time.Now().Add(-time.Second)))

	assert.False(t, mr.Exists("bl_old"))
}

func TestRedisStore_ClaimSingleWinner(t *testing.T) {
	s, mr := newRedisStore(t)
	ctx := context.Background()
	exp := time.Now().Add(time.Hour)

	won, err := s.Claim(ctx, "tok", exp)
	require.NoError(t, err)
	assert.True(t, won)

	won, err = s.Claim(ctx, "tok", exp)
	require.NoError(t, err)
	assert.False(t, won, "second claim on the same token loses")

	assert.Greater(t, mr.TTL("bl_tok"), 59*time.Minute)

	revoked, err := s.IsRevoked(ctx, "tok")
	require.NoError(t, err)
	assert.True(t, revoked, "a claim is a revocation record")
}

func TestRedisStore_ClaimAfterRevokeLoses(t *testing.T) {
	s, _ := newRedisStore(t)
	ctx := context.Background()

	require.NoError(t, s.Revoke(ctx, "tok", time.Now().Add(time.Hour)))

	won, err := s.Claim(ctx, "tok", time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, won)
}

func TestRedisStore_ClaimPastExpiryLoses(t *testing.T) {
	s, mr := newRedisStore(t)

	won, err := s.Claim(context.Background(), "old", time.Now().Add(-time.Second))
	require.NoError(t, err)
	assert.False(t, won)
	assert.False(t, mr.Exists("bl_old"))
}

func TestRedisStore_ConcurrentClaims(t *testing.T) {
	s, _ := newRedisStore(t)
	exp := time.Now().Add(time.Hour)

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			won, err := s.Claim(context.Background(), "tok", exp)
			assert.NoError(t, err)
			if won {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
}

func TestRedisStore_Unreachable(t *testing.T) {
	s, mr := newRedisStore(t)
	mr.Close()
	ctx := context.Background()

	_, err := s.IsRevoked(ctx, "tok")
	assert.ErrorIs(t, err, common.ErrInfrastructure)

	err = s.Revoke(ctx, "tok", time.Now().Add(time.Hour))
	assert.ErrorIs(t, err, common.ErrInfrastructure)

	_, err = s.Claim(ctx, "tok", time.Now().Add(time.Hour))
	assert.ErrorIs(t, err, common.ErrInfrastructure)

	assert.ErrorIs(t, s.Ping(ctx), common.ErrInfrastructure)
}

func TestRedisStore_Ping(t *testing.T) {
	s, _ := newRedisStore(t)
	assert.NoError(t, s.Ping(context.Background()))
}
