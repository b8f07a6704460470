package revocation

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// Options selects and configures a Store backend.
type Options struct {
	Backend  string
	Addr     string
	Password string
	DB       int
	// CleanupInterval applies to the memory backend; zero means one minute.
	CleanupInterval time.Duration
}

// Open builds the configured Store. The returned close function releases
// its resources; a memory store's cleanup loop also ends with ctx.
func Open(ctx context.Context, o Options) (Store, func() error, error) {
	switch o.Backend {
	case BackendMemory:
		m := NewMemoryStore()
		interval := o.CleanupInterval
		if interval <= 0 {
			interval = time.Minute
		}
		cctx, cancel := context.WithCancel(ctx)
		go m.RunCleanup(cctx, interval)
		return m, func() error { cancel(); return nil }, nil

	case BackendRedis, "":
		rdb := redis.NewClient(&redis.Options{
			Addr:     o.Addr,
			Password: o.Password,
			DB:       o.DB,
		})
		s := NewRedisStore(rdb)
		if err := s.Ping(ctx); err != nil {
			_ = rdb.Close()
			return nil, nil, err
		}
		return s, rdb.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown revocation backend %q", o.Backend)
}
