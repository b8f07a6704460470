package revocation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/gatekeeper/internal/common"
)

// MemoryStore is an in-process Store for single-node runs and tests. Expired
// records are ignored on lookup and dropped by Cleanup.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]time.Time
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]time.Time), now: time.Now}
}

func (m *MemoryStore) Revoke(ctx context.Context, token string, expiresAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", common.ErrInfrastructure, err)
	}
	if !expiresAt.After(m.now()) {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[Key(token)] = expiresAt
	return nil
}

func (m *MemoryStore) Claim(ctx context.Context, token string, expiresAt time.Time) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, fmt.Errorf("%w: %v", common.ErrInfrastructure, err)
	}
	now := m.now()
	if !expiresAt.After(now) {
		return false, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	key := Key(token)
	if exp, ok := m.records[key]; ok && exp.After(now) {
		return false, nil
	}
	m.records[key] = expiresAt
	return true, nil
}

func (m *MemoryStore) IsRevoked(ctx context.Context, token string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, fmt.Errorf("%w: %v", common.ErrInfrastructure, err)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	exp, ok := m.records[Key(token)]
	return ok && exp.After(m.now()), nil
}

// Cleanup drops records whose token expired at or before now and returns how
// many were removed.
func (m *MemoryStore) Cleanup(now time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for key, exp := range m.records {
		if !exp.After(now) {
			delete(m.records, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of records currently held, expired or not.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}

// RunCleanup calls Cleanup every interval until ctx is done.
func (m *MemoryStore) RunCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			m.Cleanup(now)
		}
	}
}
