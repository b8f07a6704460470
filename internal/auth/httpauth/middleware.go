// Package httpauth adapts token verification to net/http: bearer extraction,
// authentication and role middleware, and the error to status mapping.
package httpauth

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/gatekeeper/internal/auth/token"
	"github.com/dmitrijs2005/gatekeeper/internal/common"
	"github.com/dmitrijs2005/gatekeeper/internal/logging"
)

type TokenVerifier interface {
	VerifyKind(ctx context.Context, raw string, kind token.Kind) (*token.Claims, error)
}

// Observer receives every verification outcome. metrics.AuthMetrics is one.
type Observer interface {
	ObserveVerification(kind string, err error)
}

type ctxKey int

const (
	claimsKey ctxKey = iota
	rawKey
)

// BearerToken extracts the raw token from the Authorization header.
func BearerToken(r *http.Request) (string, error) {
	h := r.Header.Get(common.AuthorizationHeader)
	if h == "" {
		return "", common.ErrNoToken
	}
	if len(h) < len(common.BearerPrefix) || !strings.EqualFold(h[:len(common.BearerPrefix)], common.BearerPrefix) {
		return "", common.ErrInvalidToken
	}
	raw := strings.TrimSpace(h[len(common.BearerPrefix):])
	if raw == "" {
		return "", common.ErrNoToken
	}
	return raw, nil
}

type Option func(*Middleware)

// WithTimeout bounds each verification, the revocation lookup included.
func WithTimeout(d time.Duration) Option {
	return func(m *Middleware) { m.timeout = d }
}

func WithObserver(o Observer) Option {
	return func(m *Middleware) { m.obs = o }
}

type Middleware struct {
	verifier TokenVerifier
	log      logging.Logger
	obs      Observer
	timeout  time.Duration
}

func New(v TokenVerifier, log logging.Logger, opts ...Option) *Middleware {
	if log == nil {
		log = logging.Nop{}
	}
	m := &Middleware{verifier: v, log: log.With("module", "httpauth")}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Authenticate admits requests bearing a valid token of the given kind and
// stores its claims in the request context.
func (m *Middleware) Authenticate(kind token.Kind) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, err := BearerToken(r)
			if err == nil {
				var claims *token.Claims
				claims, err = m.verify(r.Context(), raw, kind)
				if err == nil {
					next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims, raw)))
					return
				}
			}
			if m.obs != nil {
				m.obs.ObserveVerification(string(kind), err)
			}

			if StatusFor(err) >= http.StatusInternalServerError {
				m.log.Warn(r.Context(), "token verification failed", "kind", kind, "error", err)
			} else {
				m.log.Debug(r.Context(), "token rejected", "kind", kind, "reason", err)
			}
			WriteError(w, err)
		})
	}
}

func (m *Middleware) verify(ctx context.Context, raw string, kind token.Kind) (*token.Claims, error) {
	if m.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}
	c, err := m.verifier.VerifyKind(ctx, raw, kind)
	if err == nil && m.obs != nil {
		m.obs.ObserveVerification(string(kind), nil)
	}
	return c, err
}

// RequireRole must run after Authenticate(token.KindAccess).
func RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c, ok := ClaimsFromContext(r.Context())
			if !ok {
				WriteError(w, common.ErrNoToken)
				return
			}
			if !c.HasRole(role) {
				WriteError(w, common.ErrorForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func WithClaims(ctx context.Context, c *token.Claims, raw string) context.Context {
	ctx = context.WithValue(ctx, claimsKey, c)
	return context.WithValue(ctx, rawKey, raw)
}

func ClaimsFromContext(ctx context.Context) (*token.Claims, bool) {
	c, ok := ctx.Value(claimsKey).(*token.Claims)
	return c, ok && c != nil
}

// RawToken is the bearer token Authenticate accepted.
func RawToken(ctx context.Context) string {
	s, _ := ctx.Value(rawKey).(string)
	return s
}
