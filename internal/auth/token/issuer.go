package token

import (
	"crypto/rsa"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gatekeeper/internal/auth/keys"
	"github.com/dmitrijs2005/gatekeeper/internal/common"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	DefaultAccessTTL  = time.Hour
	DefaultRefreshTTL = 24 * time.Hour
	DefaultServiceTTL = time.Minute
)

type IssuerConfig struct {
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	ServiceTTL time.Duration
	// Issuer goes into the iss claim when set.
	Issuer string
}

type Option func(*Issuer)

// WithClock replaces time.Now as the source of iat/exp.
func WithClock(now func() time.Time) Option {
	return func(i *Issuer) { i.now = now }
}

// Issuer signs tokens with the gateway's private key.
type Issuer struct {
	key *rsa.PrivateKey
	cfg IssuerConfig
	now func() time.Time
}

// NewIssuer fails when kp has no private key, so a gateway that cannot sign
// never starts.
func NewIssuer(kp keys.KeyProvider, cfg IssuerConfig, opts ...Option) (*Issuer, error) {
	if err := keys.RequireSigning(kp); err != nil {
		return nil, err
	}

	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = DefaultAccessTTL
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = DefaultRefreshTTL
	}
	if cfg.ServiceTTL <= 0 {
		cfg.ServiceTTL = DefaultServiceTTL
	}

	i := &Issuer{key: kp.PrivateKey(), cfg: cfg, now: time.Now}
	for _, o := range opts {
		o(i)
	}
	return i, nil
}

// IssueUserTokens mints an access token carrying the full profile and a
// refresh token carrying only the subject.
func (i *Issuer) IssueUserTokens(p Profile) (TokenPair, error) {
	if p.ID == "" {
		return TokenPair{}, fmt.Errorf("%w: profile without id", common.ErrorValidation)
	}

	now := i.now()

	access := &Claims{
		RegisteredClaims: i.registered(p.ID, now, i.cfg.AccessTTL),
		Kind:             KindAccess,
		Username:         p.Username,
		FirstName:        p.FirstName,
		LastName:         p.LastName,
		Email:            p.Email,
		Gender:           p.Gender,
		Roles:            p.Roles,
	}
	refresh := &Claims{
		RegisteredClaims: i.registered(p.ID, now, i.cfg.RefreshTTL),
		Kind:             KindRefresh,
	}

	at, err := i.sign(access)
	if err != nil {
		return TokenPair{}, err
	}
	rt, err := i.sign(refresh)
	if err != nil {
		return TokenPair{}, err
	}

	return TokenPair{AccessToken: at, RefreshToken: rt}, nil
}

// IssueServiceToken mints the gateway's own credential for calls to internal
// services on behalf of an anonymous client.
func (i *Issuer) IssueServiceToken() (string, error) {
	c := &Claims{
		RegisteredClaims: i.registered("", i.now(), i.cfg.ServiceTTL),
		Kind:             KindService,
	}
	return i.sign(c)
}

func (i *Issuer) registered(subject string, now time.Time, ttl time.Duration) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		Issuer:    i.cfg.Issuer,
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		IssuedAt:  jwt.NewNumericDate(now),
		ID:        uuid.NewString(),
	}
}

func (i *Issuer) sign(c *Claims) (string, error) {
	s, err := jwt.NewWithClaims(jwt.SigningMethodRS256, c).SignedString(i.key)
	if err != nil {
		return "", fmt.Errorf("%w: sign: %v", common.ErrInfrastructure, err)
	}
	return s, nil
}
