package token

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gatekeeper/internal/auth/keys"
	"github.com/dmitrijs2005/gatekeeper/internal/auth/revocation"
	"github.com/dmitrijs2005/gatekeeper/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// Verifier checks tokens against the public key and the revocation store.
// It is safe for concurrent use.
type Verifier struct {
	key     *rsa.PublicKey
	store   revocation.Store
	strict  *jwt.Parser
	lenient *jwt.Parser
}

func NewVerifier(kp keys.KeyProvider, store revocation.Store) (*Verifier, error) {
	if err := keys.RequireVerification(kp); err != nil {
		return nil, err
	}
	if store == nil {
		return nil, errors.New("verifier: nil revocation store")
	}

	methods := jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()})
	return &Verifier{
		key:     kp.PublicKey(),
		store:   store,
		strict:  jwt.NewParser(methods, jwt.WithExpirationRequired()),
		lenient: jwt.NewParser(methods, jwt.WithoutClaimsValidation()),
	}, nil
}

// Verify accepts raw iff it has no revocation record, carries a valid
// signature and an unexpired exp, and its claims fit its kind.
func (v *Verifier) Verify(ctx context.Context, raw string) (*Claims, error) {
	if raw == "" {
		return nil, common.ErrNoToken
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInfrastructure, err)
	}

	revoked, err := v.store.IsRevoked(ctx, raw)
	if err != nil {
		if errors.Is(err, common.ErrInfrastructure) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", common.ErrInfrastructure, err)
	}
	if revoked {
		return nil, common.ErrRevokedToken
	}

	return v.parse(v.strict, raw)
}

// VerifyKind is Verify plus a check that raw is of the given kind.
func (v *Verifier) VerifyKind(ctx context.Context, raw string, kind Kind) (*Claims, error) {
	c, err := v.Verify(ctx, raw)
	if err != nil {
		return nil, err
	}
	if c.Kind != kind {
		return nil, fmt.Errorf("%w: want %s token, got %s", common.ErrInvalidToken, kind, c.Kind)
	}
	return c, nil
}

// Decode checks only the signature and claim shape. Expiry is ignored and
// the revocation store is not consulted; refresh uses it to read the
// subject of an access token that has normally already expired.
func (v *Verifier) Decode(raw string, kind Kind) (*Claims, error) {
	if raw == "" {
		return nil, common.ErrNoToken
	}
	c, err := v.parse(v.lenient, raw)
	if err != nil {
		return nil, err
	}
	if c.Kind != kind {
		return nil, fmt.Errorf("%w: want %s token, got %s", common.ErrInvalidToken, kind, c.Kind)
	}
	return c, nil
}

func (v *Verifier) parse(p *jwt.Parser, raw string) (*Claims, error) {
	c := &Claims{}
	_, err := p.ParseWithClaims(raw, c, func(*jwt.Token) (any, error) {
		return v.key, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
	}
	if !c.Kind.valid() || !c.shapeOK() {
		return nil, fmt.Errorf("%w: unexpected claims for kind %q", common.ErrInvalidToken, c.Kind)
	}
	return c, nil
}
