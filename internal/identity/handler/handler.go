// Package handler exposes the identity service over HTTP. Internal routes are
// reserved for the gateway and demand a service token; /api routes serve end
// users holding an access token.
package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/dmitrijs2005/gatekeeper/internal/auth/httpauth"
	"github.com/dmitrijs2005/gatekeeper/internal/auth/token"
	"github.com/dmitrijs2005/gatekeeper/internal/common"
	"github.com/dmitrijs2005/gatekeeper/internal/httpx"
	"github.com/dmitrijs2005/gatekeeper/internal/identity/models"
	"github.com/dmitrijs2005/gatekeeper/internal/identity/services"
	"github.com/dmitrijs2005/gatekeeper/internal/logging"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type UserService interface {
	Register(ctx context.Context, reg services.Registration) (*models.User, error)
	Authenticate(ctx context.Context, email, password string) (*models.User, error)
	Get(ctx context.Context, id string) (*models.User, error)
	List(ctx context.Context, limit, offset int) ([]*models.User, error)
	Genders(ctx context.Context) ([]models.Gender, error)
}

type Handler struct {
	users UserService
	log   logging.Logger
}

func NewRouter(users UserService, auth *httpauth.Middleware, log logging.Logger) http.Handler {
	if log == nil {
		log = logging.Nop{}
	}
	h := &Handler{users: users, log: log.With("module", "handler")}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(httpx.RequestLogger(log))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", h.health)

	r.Route("/internal", func(r chi.Router) {
		r.Use(auth.Authenticate(token.KindService))
		r.Post("/auth/login", h.login)
		r.Post("/users", h.register)
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(auth.Authenticate(token.KindAccess))
		r.Get("/users/me", h.me)
		r.Get("/genders", h.genders)
		r.With(httpauth.RequireRole(models.RoleAdmin)).Get("/users", h.list)
	})

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

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(r.Body, &req); err != nil {
		httpauth.WriteError(w, common.ErrorValidation)
		return
	}

	u, err := h.users.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		h.fail(w, r, "login rejected", err)
		return
	}

	h.log.Info(r.Context(), "user authenticated", "user_id", u.ID)
	httpx.Success(w, http.StatusOK, "authenticated", u.Profile())
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req services.Registration
	if err := httpx.DecodeJSON(r.Body, &req); err != nil {
		httpauth.WriteError(w, common.ErrorValidation)
		return
	}

	u, err := h.users.Register(r.Context(), req)
	if err != nil {
		h.fail(w, r, "registration rejected", err)
		return
	}

	h.log.Info(r.Context(), "user registered", "user_id", u.ID)
	httpx.Success(w, http.StatusCreated, "registered", u.Profile())
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	claims, ok := httpauth.ClaimsFromContext(r.Context())
	if !ok {
		httpauth.WriteError(w, common.ErrNoToken)
		return
	}

	u, err := h.users.Get(r.Context(), claims.Subject)
	if err != nil {
		h.fail(w, r, "profile lookup failed", err)
		return
	}
	httpx.Success(w, http.StatusOK, "ok", u.Profile())
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	limit, err1 := queryInt(r, "limit")
	offset, err2 := queryInt(r, "offset")
	if err := errors.Join(err1, err2); err != nil {
		httpauth.WriteError(w, common.ErrorValidation)
		return
	}

	list, err := h.users.List(r.Context(), limit, offset)
	if err != nil {
		h.fail(w, r, "user listing failed", err)
		return
	}

	profiles := make([]token.Profile, 0, len(list))
	for _, u := range list {
		profiles = append(profiles, u.Profile())
	}
	httpx.Success(w, http.StatusOK, "ok", profiles)
}

func (h *Handler) genders(w http.ResponseWriter, r *http.Request) {
	list, err := h.users.Genders(r.Context())
	if err != nil {
		h.fail(w, r, "gender listing failed", err)
		return
	}
	httpx.Success(w, http.StatusOK, "ok", list)
}

// fail logs server-side failures loudly and client mistakes quietly.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, msg string, err error) {
	if httpauth.StatusFor(err) >= http.StatusInternalServerError {
		h.log.Error(r.Context(), msg, "error", err)
	} else {
		h.log.Debug(r.Context(), msg, "reason", err)
	}
	httpauth.WriteError(w, err)
}

func queryInt(r *http.Request, key string) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return 0, nil
	}
	return strconv.Atoi(v)
}
