// Package proxy forwards gateway traffic to internal services. Anonymous
// routes travel with a freshly minted service token in place of whatever
// credential the client sent; the login route additionally swaps the
// returned profile for a user token pair.
package proxy

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/gatekeeper/internal/auth/token"
	"github.com/dmitrijs2005/gatekeeper/internal/common"
	"github.com/dmitrijs2005/gatekeeper/internal/httpx"
	"github.com/dmitrijs2005/gatekeeper/internal/logging"
	"github.com/go-chi/chi/v5/middleware"
)

var errBadUpstreamBody = errors.New("bad gateway")

type Issuer interface {
	IssueServiceToken() (string, error)
	IssueUserTokens(p token.Profile) (token.TokenPair, error)
}

type Observer interface {
	ObserveProxy(route string, code int)
}

// Route describes one anonymous passthrough.
type Route struct {
	// Name labels logs and metrics.
	Name string
	// InternalPath replaces the public path on the outbound request.
	InternalPath string
	// IssueUserTokens turns a successful profile response into a token pair.
	IssueUserTokens bool
}

type Option func(*Injector)

func WithTransport(rt http.RoundTripper) Option {
	return func(in *Injector) { in.transport = rt }
}

func WithObserver(o Observer) Option {
	return func(in *Injector) { in.obs = o }
}

type Injector struct {
	upstream  *url.URL
	issuer    Issuer
	log       logging.Logger
	obs       Observer
	transport http.RoundTripper
}

type serviceTokenKey struct{}

func NewInjector(upstream *url.URL, issuer Issuer, log logging.Logger, opts ...Option) *Injector {
	if log == nil {
		log = logging.Nop{}
	}
	in := &Injector{
		upstream: upstream,
		issuer:   issuer,
		log:      log.With("module", "proxy", "upstream", upstream.String()),
	}
	for _, o := range opts {
		o(in)
	}
	return in
}

// Passthrough serves an anonymous route on behalf of the gateway.
func (in *Injector) Passthrough(route Route) http.Handler {
	rp := &httputil.ReverseProxy{
		Transport: in.transport,
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(in.upstream)
			pr.SetXForwarded()
			pr.Out.URL.Path = joinPath(in.upstream.Path, route.InternalPath)
			pr.Out.URL.RawPath = ""

			svc, _ := pr.In.Context().Value(serviceTokenKey{}).(string)
			pr.Out.Header.Set(common.AuthorizationHeader, common.BearerPrefix+svc)
			pr.Out.Header.Del("Cookie")
			if route.IssueUserTokens {
				// the body is rewritten below and must arrive uncompressed
				pr.Out.Header.Del("Accept-Encoding")
			}
			propagateRequestID(pr)
		},
		ModifyResponse: func(resp *http.Response) error {
			resp.Header.Del(common.AuthorizationHeader)
			if route.IssueUserTokens && resp.StatusCode >= 200 && resp.StatusCode <= 299 {
				if err := in.injectTokens(resp); err != nil {
					return err
				}
			}
			in.observe(route.Name, resp.StatusCode)
			return nil
		},
		ErrorHandler: in.errorHandler(route.Name),
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		svc, err := in.issuer.IssueServiceToken()
		if err != nil {
			in.log.Error(r.Context(), "service token not issued", "route", route.Name, "error", err)
			httpx.Error(w, http.StatusInternalServerError, common.ErrorInternal.Error())
			return
		}
		ctx := context.WithValue(r.Context(), serviceTokenKey{}, svc)
		rp.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Forward relays authenticated traffic untouched, the client's own bearer
// token included, so the upstream can verify it independently.
func (in *Injector) Forward() http.Handler {
	return &httputil.ReverseProxy{
		Transport: in.transport,
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(in.upstream)
			pr.SetXForwarded()
			propagateRequestID(pr)
		},
		ModifyResponse: func(resp *http.Response) error {
			in.observe("api", resp.StatusCode)
			return nil
		},
		ErrorHandler: in.errorHandler("api"),
	}
}

// injectTokens replaces the profile in a successful login envelope with a
// freshly issued token pair.
func (in *Injector) injectTokens(resp *http.Response) error {
	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if err != nil {
		return fmt.Errorf("%w: read: %v", errBadUpstreamBody, err)
	}

	var env httpx.RawEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("%w: envelope: %v", errBadUpstreamBody, err)
	}
	var p token.Profile
	if err := json.Unmarshal(env.Data, &p); err != nil || p.ID == "" {
		return fmt.Errorf("%w: profile missing from login response", errBadUpstreamBody)
	}

	pair, err := in.issuer.IssueUserTokens(p)
	if err != nil {
		return err
	}
	if env.Data, err = json.Marshal(pair); err != nil {
		return err
	}
	out, err := json.Marshal(env)
	if err != nil {
		return err
	}

	resp.Body = io.NopCloser(bytes.NewReader(out))
	resp.ContentLength = int64(len(out))
	resp.Header.Set("Content-Length", strconv.Itoa(len(out)))
	resp.Header.Set("Content-Type", "application/json")
	resp.Header.Del("Content-Encoding")
	return nil
}

func (in *Injector) errorHandler(route string) func(http.ResponseWriter, *http.Request, error) {
	return func(w http.ResponseWriter, r *http.Request, err error) {
		status := http.StatusBadGateway
		msg := errBadUpstreamBody.Error()
		if !errors.Is(err, errBadUpstreamBody) && errors.Is(err, common.ErrInfrastructure) {
			status = http.StatusInternalServerError
			msg = common.ErrorInternal.Error()
		}
		in.log.Error(r.Context(), "proxy failed", "route", route, "status", status, "error", err)
		in.observe(route, status)
		httpx.Error(w, status, msg)
	}
}

func (in *Injector) observe(route string, code int) {
	if in.obs != nil {
		in.obs.ObserveProxy(route, code)
	}
}

func propagateRequestID(pr *httputil.ProxyRequest) {
	if id := middleware.GetReqID(pr.In.Context()); id != "" {
		pr.Out.Header.Set(middleware.RequestIDHeader, id)
	}
}

func joinPath(base, p string) string {
	return strings.TrimSuffix(base, "/") + "/" + strings.TrimPrefix(p, "/")
}
