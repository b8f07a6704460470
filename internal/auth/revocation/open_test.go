package revocation

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/dmitrijs2005/gatekeeper/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_Redis(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	s, closeFn, err := Open(ctx, Options{Backend: BackendRedis, Addr: mr.Addr()})
	require.NoError(t, err)
	defer func() { assert.NoError(t, closeFn()) }()

	assert.IsType(t, &RedisStore{}, s)
	require.NoError(t, s.Revoke(ctx, "t", time.Now().Add(time.Minute)))
	assert.True(t, mr.Exists("bl_t"))
}

func TestOpen_RedisUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, _, err := Open(context.Background(), Options{Backend: BackendRedis, Addr: addr})
	assert.ErrorIs(t, err, common.ErrInfrastructure)
}

func TestOpen_Memory(t *testing.T) {
	s, closeFn, err := Open(context.Background(), Options{Backend: BackendMemory, CleanupInterval: time.Millisecond})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)
	assert.NoError(t, closeFn())
}

func TestOpen_Unknown(t *testing.T) {
	_, _, err := Open(context.Background(), Options{Backend: "etcd"})
	assert.Error(t, err)
}
