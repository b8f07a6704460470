// Package refresh rotates a refresh/access token pair. The old refresh token
// is claimed atomically in the revocation store before the new pair is
// handed out, so every refresh token is usable exactly once even under
// concurrent requests.
package refresh

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gatekeeper/internal/auth/revocation"
	"github.com/dmitrijs2005/gatekeeper/internal/auth/token"
	"github.com/dmitrijs2005/gatekeeper/internal/common"
	"github.com/dmitrijs2005/gatekeeper/internal/logging"
	"golang.org/x/sync/errgroup"
)

type Issuer interface {
	IssueUserTokens(p token.Profile) (token.TokenPair, error)
}

type Verifier interface {
	VerifyKind(ctx context.Context, raw string, kind token.Kind) (*token.Claims, error)
	Decode(raw string, kind token.Kind) (*token.Claims, error)
}

type Coordinator struct {
	issuer   Issuer
	verifier Verifier
	store    revocation.Store
	log      logging.Logger
}

func NewCoordinator(issuer Issuer, verifier Verifier, store revocation.Store, log logging.Logger) *Coordinator {
	if log == nil {
		log = logging.Nop{}
	}
	return &Coordinator{
		issuer:   issuer,
		verifier: verifier,
		store:    store,
		log:      log.With("module", "refresh"),
	}
}

// Rotate exchanges a refresh token and the access token it was issued with
// for a fresh pair. The access token may be expired; it must be genuine, not
// revoked, and belong to the same subject as the refresh token.
func (c *Coordinator) Rotate(ctx context.Context, refreshToken, accessToken string) (token.TokenPair, error) {
	if refreshToken == "" {
		return c.reject(ctx, common.ErrNoRefreshToken, "")
	}
	if accessToken == "" {
		return c.reject(ctx, common.ErrNoToken, "")
	}

	rc, err := c.verifier.VerifyKind(ctx, refreshToken, token.KindRefresh)
	if err != nil {
		if errors.Is(err, common.ErrInfrastructure) {
			return c.reject(ctx, err, "")
		}
		return c.reject(ctx, fmt.Errorf("%w: %v", common.ErrInvalidRefreshToken, err), "")
	}

	ac, err := c.verifier.Decode(accessToken, token.KindAccess)
	if err != nil {
		return c.reject(ctx, err, rc.Subject)
	}
	if ac.Subject != rc.Subject {
		return c.reject(ctx, common.ErrTokenSubjectMismatch, rc.Subject)
	}

	// a logged-out access token ends its pair
	revoked, err := c.store.IsRevoked(ctx, accessToken)
	if err != nil {
		return c.reject(ctx, infrastructure(err), rc.Subject)
	}
	if revoked {
		return c.reject(ctx, common.ErrRevokedToken, rc.Subject)
	}

	pair, err := c.issuer.IssueUserTokens(ac.Profile())
	if err != nil {
		return c.reject(ctx, err, rc.Subject)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		return c.reject(ctx, common.ErrNoToken, rc.Subject)
	}

	won, err := c.retire(ctx, accessToken, expiry(ac), refreshToken, expiry(rc))
	if err != nil {
		c.log.Error(ctx, "rotation aborted: old tokens not revoked", "subject", rc.Subject, "error", err)
		return token.TokenPair{}, err
	}
	if !won {
		return c.reject(ctx, fmt.Errorf("%w: already used", common.ErrInvalidRefreshToken), rc.Subject)
	}

	c.log.Debug(ctx, "tokens rotated", "subject", rc.Subject)
	return pair, nil
}

// retire claims the refresh token and revokes the access token concurrently,
// waiting for both. won is false when another rotation claimed the refresh
// token first; the access token is revoked either way.
func (c *Coordinator) retire(ctx context.Context, access string, accessExp time.Time, refresh string, refreshExp time.Time) (bool, error) {
	var won bool
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return c.store.Revoke(gctx, access, accessExp) })
	g.Go(func() (err error) {
		won, err = c.store.Claim(gctx, refresh, refreshExp)
		return err
	})

	if err := g.Wait(); err != nil {
		return false, infrastructure(err)
	}
	return won, nil
}

func infrastructure(err error) error {
	if errors.Is(err, common.ErrInfrastructure) {
		return err
	}
	return fmt.Errorf("%w: %v", common.ErrInfrastructure, err)
}

func (c *Coordinator) reject(ctx context.Context, err error, subject string) (token.TokenPair, error) {
	if errors.Is(err, common.ErrInfrastructure) {
		c.log.Warn(ctx, "refresh rejected", "subject", subject, "error", err)
	} else {
		c.log.Debug(ctx, "refresh rejected", "subject", subject, "reason", err)
	}
	return token.TokenPair{}, err
}

func expiry(c *token.Claims) time.Time {
	if c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}
