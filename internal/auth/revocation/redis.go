package revocation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gatekeeper/internal/common"
	"github.com/redis/go-redis/v9"
)

// RedisStore keeps revocation records as plain keys that expire with the
// token:
//
//	SET bl_<token> <token> EXAT <token exp>       Revoke
//	SET bl_<token> <token> NX EXAT <token exp>    Claim
//	GET bl_<token>                                IsRevoked
type RedisStore struct {
	rdb redis.Cmdable
	now func() time.Time
}

func NewRedisStore(rdb redis.Cmdable) *RedisStore {
	return &RedisStore{rdb: rdb, now: time.Now}
}

func (s *RedisStore) Revoke(ctx context.Context, token string, expiresAt time.Time) error {
	if !expiresAt.After(s.now()) {
		return nil
	}

	err := s.rdb.SetArgs(ctx, Key(token), token, redis.SetArgs{ExpireAt: expiresAt}).Err()
	if err != nil {
		return fmt.Errorf("%w: revoke: %v", common.ErrInfrastructure, err)
	}
	return nil
}

func (s *RedisStore) Claim(ctx context.Context, token string, expiresAt time.Time) (bool, error) {
	if !expiresAt.After(s.now()) {
		return false, nil
	}

	err := s.rdb.SetArgs(ctx, Key(token), token, redis.SetArgs{Mode: "NX", ExpireAt: expiresAt}).Err()
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, redis.Nil):
		return false, nil
	default:
		return false, fmt.Errorf("%w: claim: %v", common.ErrInfrastructure, err)
	}
}

func (s *RedisStore) IsRevoked(ctx context.Context, token string) (bool, error) {
	err := s.rdb.Get(ctx, Key(token)).Err()
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, redis.Nil):
		return false, nil
	default:
		return false, fmt.Errorf("%w: lookup: %v", common.ErrInfrastructure, err)
	}
}

// Ping checks the connection at startup.
func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: ping: %v", common.ErrInfrastructure, err)
	}
	return nil
}
