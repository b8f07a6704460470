// Package handler wires the gateway's public HTTP surface.
package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/gatekeeper/internal/auth/httpauth"
	"github.com/dmitrijs2005/gatekeeper/internal/auth/revocation"
	"github.com/dmitrijs2005/gatekeeper/internal/auth/token"
	"github.com/dmitrijs2005/gatekeeper/internal/common"
	"github.com/dmitrijs2005/gatekeeper/internal/gateway/proxy"
	"github.com/dmitrijs2005/gatekeeper/internal/httpx"
	"github.com/dmitrijs2005/gatekeeper/internal/logging"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const (
	LoginPath    = "/internal/auth/login"
	RegisterPath = "/internal/users"
)

type Rotator interface {
	Rotate(ctx context.Context, refreshToken, accessToken string) (token.TokenPair, error)
}

type TokenVerifier interface {
	VerifyKind(ctx context.Context, raw string, kind token.Kind) (*token.Claims, error)
}

type Metrics interface {
	ObserveRotation(err error)
	ObserveRevocation(err error)
	Handler() http.Handler
}

// Deps are the collaborators the router needs. Metrics may be nil.
type Deps struct {
	Injector *proxy.Injector
	Auth     *httpauth.Middleware
	Rotator  Rotator
	Verifier TokenVerifier
	Store    revocation.Store
	Metrics  Metrics
	Logger   logging.Logger
	// Timeout bounds each revocation store call made by a handler.
	Timeout time.Duration
}

type Handler struct {
	rotator  Rotator
	verifier TokenVerifier
	store    revocation.Store
	metrics  Metrics
	log      logging.Logger
	timeout  time.Duration
}

func NewRouter(d Deps) http.Handler {
	log := d.Logger
	if log == nil {
		log = logging.Nop{}
	}
	h := &Handler{
		rotator:  d.Rotator,
		verifier: d.Verifier,
		store:    d.Store,
		metrics:  d.Metrics,
		log:      log.With("module", "handler"),
		timeout:  d.Timeout,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(httpx.RequestLogger(log))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", h.health)
	if d.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", d.Metrics.Handler())
	}

	login := d.Injector.Passthrough(proxy.Route{Name: "login", InternalPath: LoginPath, IssueUserTokens: true})
	register := d.Injector.Passthrough(proxy.Route{Name: "register", InternalPath: RegisterPath})
	authenticated := d.Auth.Authenticate(token.KindAccess)

	authRoutes := func(r chi.Router) {
		r.Method(http.MethodPost, "/auth/login", login)
		r.Method(http.MethodPost, "/auth/register", register)
		r.With(authenticated).Get("/auth/logout", h.logout)
		r.Post("/auth/refresh", h.refresh)
	}
	authRoutes(r)
	// localized public paths collapse onto the same handlers
	r.Route("/{locale:[a-z][a-z]}", authRoutes)

	r.With(authenticated).Handle("/api/*", d.Injector.Forward())

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		httpx.Error(w, http.StatusNotFound, common.ErrorNotFound.Error())
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		httpx.Error(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	return r
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	httpx.Success(w, http.StatusOK, "ok", nil)
}

type refreshRequest struct {
	RefreshToken string `json:"refreshtoken"`
}

// logout revokes the presented access token and, when the client names it,
// the refresh token issued alongside.
func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims, ok := httpauth.ClaimsFromContext(ctx)
	if !ok {
		httpauth.WriteError(w, common.ErrNoToken)
		return
	}

	var req refreshRequest
	if err := httpx.DecodeJSON(r.Body, &req); err != nil {
		req.RefreshToken = ""
	}
	if req.RefreshToken == "" {
		req.RefreshToken = r.URL.Query().Get(common.RefreshTokenField)
	}

	err := h.revoke(ctx, httpauth.RawToken(ctx), claims)
	if err == nil && req.RefreshToken != "" {
		err = h.revokeRefresh(ctx, req.RefreshToken, claims.Subject)
	}
	if h.metrics != nil {
		h.metrics.ObserveRevocation(err)
	}
	if err != nil {
		h.log.Warn(ctx, "logout failed", "subject", claims.Subject, "error", err)
		httpauth.WriteError(w, err)
		return
	}

	h.log.Info(ctx, "logged out", "subject", claims.Subject)
	httpx.Success(w, http.StatusOK, "logged out", nil)
}

// revokeRefresh revokes a refresh token belonging to subject. Anything else
// (foreign, expired, already revoked, malformed) is ignored.
func (h *Handler) revokeRefresh(ctx context.Context, raw, subject string) error {
	vctx, cancel := h.withTimeout(ctx)
	defer cancel()

	rc, err := h.verifier.VerifyKind(vctx, raw, token.KindRefresh)
	if err != nil {
		if errors.Is(err, common.ErrInfrastructure) {
			return err
		}
		h.log.Debug(ctx, "refresh token not revoked on logout", "reason", err)
		return nil
	}
	if rc.Subject != subject {
		h.log.Debug(ctx, "refresh token not revoked on logout", "reason", common.ErrTokenSubjectMismatch)
		return nil
	}
	return h.revoke(ctx, raw, rc)
}

func (h *Handler) revoke(ctx context.Context, raw string, c *token.Claims) error {
	if c.ExpiresAt == nil {
		return nil
	}
	ctx, cancel := h.withTimeout(ctx)
	defer cancel()
	return h.store.Revoke(ctx, raw, c.ExpiresAt.Time)
}

func (h *Handler) refresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	access, err := httpauth.BearerToken(r)
	if err != nil {
		h.observeRotation(err)
		httpauth.WriteError(w, err)
		return
	}

	var req refreshRequest
	if err := httpx.DecodeJSON(r.Body, &req); err != nil {
		h.observeRotation(common.ErrorValidation)
		httpx.Error(w, http.StatusBadRequest, common.ErrorValidation.Error())
		return
	}

	rctx, cancel := h.withTimeout(ctx)
	defer cancel()

	pair, err := h.rotator.Rotate(rctx, req.RefreshToken, access)
	h.observeRotation(err)
	if err != nil {
		httpauth.WriteError(w, err)
		return
	}

	httpx.Success(w, http.StatusOK, "tokens refreshed", pair)
}

func (h *Handler) observeRotation(err error) {
	if h.metrics != nil {
		h.metrics.ObserveRotation(err)
	}
}

func (h *Handler) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if h.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, h.timeout)
}
