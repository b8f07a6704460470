// Package revocation records tokens that were revoked before their natural
// expiry. A record lives exactly as long as the token it denies, so the store
// only ever holds tokens that are both unexpired and logged out.
package revocation

import (
	"context"
	"time"

	"github.com/dmitrijs2005/gatekeeper/internal/common"
)

// Store is the revocation list consulted on every verification.
type Store interface {
	// Revoke records token as revoked until expiresAt. An expiresAt in the
	// past is a no-op: the token is already unusable.
	Revoke(ctx context.Context, token string, expiresAt time.Time) error

	// IsRevoked reports whether a live record exists for token.
	IsRevoked(ctx context.Context, token string) (bool, error)

	// Claim writes the record only if none exists and reports whether this
	// call wrote it. Of any number of concurrent claims on one token exactly
	// one wins. An expiresAt in the past never wins.
	Claim(ctx context.Context, token string, expiresAt time.Time) (bool, error)
}

// Key is the cache key holding the revocation record for token.
func Key(token string) string {
	return common.RevocationKeyPrefix + token
}
