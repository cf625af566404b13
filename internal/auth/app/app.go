package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	httpapi "github.com/aussiebroadwan/rollcall/internal/auth/http"
	"github.com/aussiebroadwan/rollcall/internal/auth/service"
	"github.com/aussiebroadwan/rollcall/internal/auth/store"
	"github.com/aussiebroadwan/rollcall/internal/auth/store/drivers/memory"
	"github.com/aussiebroadwan/rollcall/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/rollcall/pkg/cryptox"
	"github.com/aussiebroadwan/rollcall/pkg/jwtx"
	"github.com/aussiebroadwan/rollcall/pkg/metricx"
	"github.com/aussiebroadwan/rollcall/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags.
	BuildVersion = "v0.1.0"
)

// Application encapsulates the auth service application with all its dependencies
type Application struct {
	cfg    Config
	logger *slog.Logger

	// Core dependencies
	db      store.Store
	codec   *jwtx.Codec
	hasher  *cryptox.Hasher
	metrics *metricx.Provider

	// Services
	sessionService      *service.SessionService
	housekeepingService *service.HousekeepingService

	// HTTP servers
	server      *http.Server
	adminServer *http.Server // nil when ADMIN_PORT is 0
	router      *httpapi.Router
}

// New creates a new Application instance with all dependencies initialized
func New(cfg Config) (*Application, error) {
	return NewWithLogger(cfg, slogx.New(slogx.Config{
		Service: "rollcall-auth",
		Version: BuildVersion,
		Env:     cfg.Env,
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
	}))
}

// NewWithLogger is New with a caller-supplied logger.
func NewWithLogger(cfg Config, logger *slog.Logger) (*Application, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	app := &Application{cfg: cfg, logger: logger}

	key, err := InitSigningKey(cfg)
	if err != nil {
		return nil, err
	}
	app.codec = jwtx.NewCodec(key, cfg.Issuer)

	if app.hasher, err = cryptox.NewHasher(cfg.BcryptCost); err != nil {
		return nil, &ConfigError{Field: "AUTH_BCRYPT_COST", Reason: "out of range", Err: err}
	}

	if app.metrics, err = metricx.New(cfg.MetricsExporter); err != nil {
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	if err := app.initServices(); err != nil {
		_ = app.db.Close()
		return nil, err
	}

	if err := app.seed(context.Background()); err != nil {
		_ = app.db.Close()
		return nil, err
	}

	app.initHTTP()

	return app, nil
}

// Handler returns the public HTTP handler.
func (app *Application) Handler() http.Handler { return app.router }

// Run starts the application and blocks until shutdown is requested
func (app *Application) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return app.RunContext(ctx)
}

// RunContext serves until ctx is cancelled or a server fails, then shuts
// everything down within the configured grace period.
func (app *Application) RunContext(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	app.logger.Info("auth service starting",
		"port", app.cfg.Port,
		"admin_port", app.cfg.AdminPort,
		"storage", app.cfg.Storage,
		"version", BuildVersion,
	)

	g.Go(func() error { return serve(app.server) })
	if app.adminServer != nil {
		g.Go(func() error { return serve(app.adminServer) })
	}
	g.Go(func() error { return app.housekeepingService.Run(gctx) })

	g.Go(func() error {
		<-gctx.Done()
		app.logger.Info("shutting down auth service...")
		return app.shutdownServers()
	})

	err := g.Wait()

	if cerr := app.Close(); cerr != nil && err == nil {
		err = cerr
	}
	app.logger.Info("auth service stopped")
	return err
}

// Close releases the store and flushes metrics.
func (app *Application) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	var errs []error
	if err := app.metrics.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("metrics shutdown: %w", err))
	}
	if err := app.db.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close database: %w", err))
	}
	return errors.Join(errs...)
}

func serve(srv *http.Server) error {
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server %s failed: %w", srv.Addr, err)
	}
	return nil
}

func (app *Application) shutdownServers() error {
	// Give outstanding requests a deadline for completion
	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	servers := []*http.Server{app.server}
	if app.adminServer != nil {
		servers = append(servers, app.adminServer)
	}

	var errs []error
	for _, srv := range servers {
		if err := srv.Shutdown(ctx); err != nil {
			app.logger.Error("graceful server shutdown failed", "addr", srv.Addr, "error", err)
			_ = srv.Close()
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// initDatabase opens the configured store and applies migrations
func (app *Application) initDatabase() error {
	switch app.cfg.Storage {
	case StorageMemory:
		app.db = memory.NewStore()
		app.logger.Warn("using in-memory storage; all accounts and sessions are lost on restart")
		return nil

	default:
		db, err := sqlite.NewStore(sqlite.DSN(app.cfg.DatabaseFile))
		if err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		app.db = db

		if err := db.ApplyMigrations(); err != nil {
			_ = db.Close()
			return fmt.Errorf("failed to apply database migrations: %w", err)
		}

		app.logger.Info("database migrations applied successfully", "file", app.cfg.DatabaseFile)
		return nil
	}
}

// initServices initializes all business logic services
func (app *Application) initServices() error {
	m, err := service.NewMetrics(app.metrics.Meter("github.com/aussiebroadwan/rollcall/internal/auth/service"))
	if err != nil {
		return fmt.Errorf("failed to register metrics: %w", err)
	}

	app.sessionService = &service.SessionService{
		Store:         app.db,
		Codec:         app.codec,
		Authenticator: &service.CredentialAuthenticator{Store: app.db, Hasher: app.hasher},
		RefreshTokens: &service.RefreshTokenStore{Store: app.db, TTL: app.cfg.RefreshTTL},
		Hasher:        app.hasher,
		Metrics:       m,
		AccessTTL:     app.cfg.AccessTTL,
	}

	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.logger,
		app.cfg.HousekeepingInterval,
	)
	app.housekeepingService.Metrics = m

	return nil
}

func (app *Application) seed(ctx context.Context) error {
	if !app.cfg.SeedUsers {
		return nil
	}

	password := app.cfg.SeedPassword
	if password == "" {
		generated, err := cryptox.GeneratePassword()
		if err != nil {
			return fmt.Errorf("failed to generate seed password: %w", err)
		}
		password = generated
		app.logger.Warn("generated password for seeded accounts", "password", password)
	}

	if err := service.SeedUsers(ctx, app.db, app.hasher, password, app.logger); err != nil {
		return fmt.Errorf("failed to seed users: %w", err)
	}
	return nil
}

// initHTTP initializes the HTTP router and servers
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(BuildVersion, app.db, app.logger)
	router.SessionService = app.sessionService
	router.Authenticator = &httpapi.Authenticator{
		Codec:  app.codec,
		Header: app.cfg.AuthHeader,
		Scheme: app.cfg.AuthScheme,
	}
	router.Dev = app.cfg.IsDev()
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}

	if app.cfg.AdminPort > 0 {
		app.adminServer = &http.Server{
			Addr:              fmt.Sprintf(":%d", app.cfg.AdminPort),
			Handler:           httpapi.NewAdminHandler(app.metrics.Handler()),
			ReadHeaderTimeout: 3 * time.Second,
		}
	}
}
