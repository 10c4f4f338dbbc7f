// Package app wires the dashboard's components together and owns the process
// lifecycle.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/scholarhub/scholarhub/internal/dashboard/api"
	"github.com/scholarhub/scholarhub/internal/dashboard/domain"
	"github.com/scholarhub/scholarhub/internal/dashboard/guard"
	"github.com/scholarhub/scholarhub/internal/dashboard/identity"
	"github.com/scholarhub/scholarhub/internal/dashboard/roles"
	"github.com/scholarhub/scholarhub/internal/dashboard/secure"
	"github.com/scholarhub/scholarhub/internal/dashboard/session"
	"github.com/scholarhub/scholarhub/internal/dashboard/tokenstore"
	"github.com/scholarhub/scholarhub/internal/dashboard/web"
	"github.com/scholarhub/scholarhub/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags.
	BuildVersion = "v0.1.0"
)

// Application encapsulates the dashboard with all its dependencies.
type Application struct {
	cfg    Config
	logger *slog.Logger

	tokens      tokenstore.Store
	redisClient *redis.Client

	provider     *identity.Local
	session      *session.Store
	secureClient *secure.Client
	apiClient    *api.Client
	resolver     *roles.Resolver

	unbind func()

	server *http.Server
	router *web.Router
}

// New creates an Application with all dependencies initialized.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "scholarhub-dashboard",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	if err := app.initTokenStore(); err != nil {
		return nil, err
	}

	app.secureClient = secure.New(cfg.BackendBaseURL, app.tokens, app.logger)
	app.apiClient = api.New(cfg.BackendBaseURL, app.secureClient)

	if err := app.initSession(); err != nil {
		_ = app.tokens.Close()
		return nil, err
	}

	app.initResolver()

	if err := app.initHTTP(); err != nil {
		app.closeSession()
		_ = app.tokens.Close()
		return nil, err
	}

	return app, nil
}

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	app.logger.Info("dashboard starting",
		"port", app.cfg.Port,
		"backend", app.cfg.BackendBaseURL,
		"version", BuildVersion,
	)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully shuts down the application.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down dashboard...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.closeSession()

	if app.redisClient != nil {
		if err := app.redisClient.Close(); err != nil {
			app.logger.Error("error closing redis client", "error", err)
		}
	}

	if err := app.tokens.Close(); err != nil {
		app.logger.Error("error closing token store", "error", err)
		return err
	}

	app.logger.Info("dashboard stopped")
	return nil
}

// initTokenStore selects the persistent SQLite store when a file is
// configured, otherwise tokens live in memory for the process lifetime.
func (app *Application) initTokenStore() error {
	if app.cfg.TokenDBFile == "" {
		app.tokens = tokenstore.NewMemory()
		return nil
	}

	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", app.cfg.TokenDBFile)
	store, err := tokenstore.NewSQLite(dsn, app.cfg.TokenProfile)
	if err != nil {
		return fmt.Errorf("failed to initialize token store: %w", err)
	}
	app.tokens = store
	app.logger.Info("persistent token store ready", "file", app.cfg.TokenDBFile)
	return nil
}

func (app *Application) initSession() error {
	app.provider = identity.NewLocal()

	var federated identity.Federated
	if app.cfg.OIDCIssuerURL != "" {
		oidcProvider, err := identity.NewOIDC(context.Background(), identity.OIDCConfig{
			ProviderName: app.cfg.OIDCProviderName,
			IssuerURL:    app.cfg.OIDCIssuerURL,
			ClientID:     app.cfg.OIDCClientID,
			ClientSecret: app.cfg.OIDCClientSecret,
			RedirectURL:  app.cfg.OIDCRedirectURL,
		}, app.provider)
		if err != nil {
			return fmt.Errorf("failed to initialize federated sign-in: %w", err)
		}
		federated = oidcProvider
		app.logger.Info("federated sign-in enabled", "provider", app.cfg.OIDCProviderName)
	}

	app.session = session.New(app.provider, federated, app.apiClient, app.tokens, app.logger)

	// The invalidation handling is armed only while someone is signed in, so
	// rejections of anonymous calls can never trigger a sign-out loop.
	redirect := func(path string) {
		app.logger.Info("session invalidated, redirecting", "path", path)
	}
	app.unbind = app.provider.Subscribe(func(ctx context.Context, u *identity.User) {
		if u != nil {
			app.secureClient.Bind(app.session, redirect)
		} else {
			app.secureClient.Unbind()
		}
	})

	return nil
}

func (app *Application) closeSession() {
	if app.unbind != nil {
		app.unbind()
		app.unbind = nil
	}
	if app.session != nil {
		app.session.Close()
	}
}

// initResolver selects the Redis-backed role cache when an address is
// configured, otherwise roles cache in process memory.
func (app *Application) initResolver() {
	var cache roles.Cache
	if app.cfg.RedisAddr != "" {
		app.redisClient = redis.NewClient(&redis.Options{
			Addr: app.cfg.RedisAddr,
			DB:   app.cfg.RedisDB,
		})
		cache = roles.NewRedis(app.redisClient, app.cfg.RoleCacheTTL)
		app.logger.Info("redis role cache enabled", "addr", app.cfg.RedisAddr)
	} else {
		cache = roles.NewMemory()
	}

	app.resolver = roles.NewResolver(
		app.session,
		app.apiClient,
		cache,
		app.cfg.RoleCacheTTL,
		domain.Role(app.cfg.DefaultRole),
		app.logger,
	)
}

func (app *Application) initHTTP() error {
	table, err := web.LoadRouteTable(app.cfg.RouteTableFile)
	if err != nil {
		return err
	}

	g := guard.New(app.session, app.resolver, web.JSONViews{})

	router := web.NewRouter(
		app.logger,
		g,
		table,
		&web.AuthHandler{
			Session: app.session,
			Users:   app.apiClient.Users(),
			Logger:  app.logger,
		},
		&web.DashboardHandler{
			Session: app.session,
			API:     app.apiClient,
			Roles:   app.resolver,
			Logger:  app.logger,
		},
	)
	router.ApplyRoutes()

	app.router = router
	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
	return nil
}
