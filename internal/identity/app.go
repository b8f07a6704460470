// Package identity assembles the identity service: PostgreSQL-backed user
// storage, token verification against the gateway's public key, and the
// HTTP router.
package identity

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dmitrijs2005/gatekeeper/internal/auth/httpauth"
	"github.com/dmitrijs2005/gatekeeper/internal/auth/keys"
	"github.com/dmitrijs2005/gatekeeper/internal/auth/revocation"
	"github.com/dmitrijs2005/gatekeeper/internal/auth/token"
	"github.com/dmitrijs2005/gatekeeper/internal/httpx"
	"github.com/dmitrijs2005/gatekeeper/internal/identity/config"
	"github.com/dmitrijs2005/gatekeeper/internal/identity/handler"
	"github.com/dmitrijs2005/gatekeeper/internal/identity/repositories/repomanager"
	"github.com/dmitrijs2005/gatekeeper/internal/identity/services"
	"github.com/dmitrijs2005/gatekeeper/internal/logging"
)

type App struct {
	config     *config.Config
	logger     logging.Logger
	db         *sql.DB
	handler    http.Handler
	closeStore func() error
}

// NewApp loads the public key, connects to PostgreSQL and builds the
// router. Missing key material stops the service before the database is
// touched.
func NewApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {
	if logger == nil {
		logger = logging.NewJSONLogger(os.Stdout, c.LogLevel)
	}

	kp, err := keys.Load(ctx, c.Keys())
	if err != nil {
		return nil, fmt.Errorf("load keys: %w", err)
	}
	if err := keys.RequireVerification(kp); err != nil {
		return nil, err
	}

	db, err := repomanager.Open(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("database init error: %w", err)
	}

	app, err := newApp(ctx, c, logger, kp, db, repomanager.NewPostgresRepositoryManager())
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return app, nil
}

func newApp(ctx context.Context, c *config.Config, logger logging.Logger, kp keys.KeyProvider, db *sql.DB, rm repomanager.RepositoryManager) (*App, error) {
	if c.RunMigrations {
		if err := rm.RunMigrations(ctx, db); err != nil {
			return nil, fmt.Errorf("migrations: %w", err)
		}
		logger.Info(ctx, "migrations applied")
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

	auth := httpauth.New(verifier, logger, httpauth.WithTimeout(c.RevocationTimeout))
	h := handler.NewRouter(services.NewUserService(db, rm), auth, logger)

	return &App{config: c, logger: logger, db: db, handler: h, closeStore: closeStore}, nil
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

func (app *App) close(ctx context.Context) {
	if err := app.closeStore(); err != nil {
		app.logger.Error(ctx, "revocation store close", "error", err)
	}
	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "database close", "error", err)
	}
}

// Run serves until ctx is cancelled or a termination signal arrives.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()
	app.initSignalHandler(cancelFunc)

	defer app.close(context.Background())

	ln, err := net.Listen("tcp", app.config.ListenAddr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	srv := &http.Server{
		Handler:           app.handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	app.logger.Info(ctx, "Starting identity service...", "addr", ln.Addr().String())
	err = httpx.Serve(ctx, srv, ln, app.config.ShutdownTimeout)
	app.logger.Info(context.Background(), "identity service stopped")
	return err
}
