// Package gateway assembles the edge gateway: key material, revocation
// store, token issuer and verifier, refresh coordinator, credential
// injector and the public router.
package gateway

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dmitrijs2005/gatekeeper/internal/auth/httpauth"
	"github.com/dmitrijs2005/gatekeeper/internal/auth/keys"
	"github.com/dmitrijs2005/gatekeeper/internal/auth/refresh"
	"github.com/dmitrijs2005/gatekeeper/internal/auth/revocation"
	"github.com/dmitrijs2005/gatekeeper/internal/auth/token"
	"github.com/dmitrijs2005/gatekeeper/internal/gateway/config"
	"github.com/dmitrijs2005/gatekeeper/internal/gateway/handler"
	"github.com/dmitrijs2005/gatekeeper/internal/gateway/proxy"
	"github.com/dmitrijs2005/gatekeeper/internal/httpx"
	"github.com/dmitrijs2005/gatekeeper/internal/logging"
	"github.com/dmitrijs2005/gatekeeper/internal/metrics"
)

type App struct {
	config     *config.Config
	logger     logging.Logger
	handler    http.Handler
	closeStore func() error
}

// NewApp builds every component once. Missing key material or an
// unreachable revocation store stops the gateway here.
func NewApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {
	if logger == nil {
		logger = logging.NewJSONLogger(os.Stdout, c.LogLevel)
	}

	kp, err := keys.Load(ctx, c.Keys())
	if err != nil {
		return nil, fmt.Errorf("load keys: %w", err)
	}
	issuer, err := token.NewIssuer(kp, token.IssuerConfig{
		AccessTTL:  c.AccessTokenValidityDuration,
		RefreshTTL: c.RefreshTokenValidityDuration,
		ServiceTTL: c.ServiceTokenValidityDuration,
		Issuer:     c.Issuer,
	})
	if err != nil {
		return nil, fmt.Errorf("issuer init error: %w", err)
	}

	identity, err := url.Parse(c.IdentityURL)
	if err != nil {
		return nil, fmt.Errorf("identity url: %w", err)
	}

	store, closeStore, err := revocation.Open(ctx, c.Revocation())
	if err != nil {
		return nil, fmt.Errorf("revocation store init error: %w", err)
	}

	verifier, err := token.NewVerifier(kp, store)
	if err != nil {
		_ = closeStore()
		return nil, fmt.Errorf("verifier init error: %w", err)
	}

	m := metrics.New()
	h := handler.NewRouter(handler.Deps{
		Injector: proxy.NewInjector(identity, issuer, logger, proxy.WithObserver(m)),
		Auth:     httpauth.New(verifier, logger, httpauth.WithObserver(m), httpauth.WithTimeout(c.RevocationTimeout)),
		Rotator:  refresh.NewCoordinator(issuer, verifier, store, logger),
		Verifier: verifier,
		Store:    store,
		Metrics:  m,
		Logger:   logger,
		Timeout:  c.RevocationTimeout,
	})

	return &App{config: c, logger: logger, handler: h, closeStore: closeStore}, nil
}

// Handler exposes the router, mainly for tests.
func (app *App) Handler() http.Handler {
	return app.handler
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run serves until ctx is cancelled or a termination signal arrives.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()
	app.initSignalHandler(cancelFunc)

	defer func() {
		if err := app.closeStore(); err != nil {
			app.logger.Error(ctx, "revocation store close", "error", err)
		}
	}()

	ln, err := net.Listen("tcp", app.config.ListenAddr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	srv := &http.Server{
		Handler:           app.handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	app.logger.Info(ctx, "Starting gateway...", "addr", ln.Addr().String(), "identity", app.config.IdentityURL)
	err = httpx.Serve(ctx, srv, ln, app.config.ShutdownTimeout)
	app.logger.Info(context.Background(), "gateway stopped")
	return err
}
