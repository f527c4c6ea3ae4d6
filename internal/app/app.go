// Package app wires the chat core to its transports and storage.
package app

import (
	"context"
	"fmt"
	"io"
	stdhttp "net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/netchat/netchat-server/internal/auth"
	"github.com/netchat/netchat-server/internal/config"
	"github.com/netchat/netchat-server/internal/core"
	"github.com/netchat/netchat-server/internal/log"
	"github.com/netchat/netchat-server/internal/store"
	"github.com/netchat/netchat-server/internal/store/credfile"
	"github.com/netchat/netchat-server/internal/store/sqlite"
	transporthttp "github.com/netchat/netchat-server/internal/transport/http"
	"github.com/netchat/netchat-server/internal/transport/tcp"
)

// App wires together core, storage and transport layers.
type App struct {
	cfg    config.Config
	log    *zerolog.Logger
	reg    *core.Registry
	router *core.Router
	tcp    *tcp.Server
	http   *stdhttp.Server
	store  store.CredentialStore

	activityClose io.Closer
}

// New constructs the application with provided configuration.
func New(cfg config.Config, logger *zerolog.Logger) (*App, error) {
	st, err := openStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}

	activity, activityClose, err := log.NewActivity(cfg.ActivityLogPath)
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("open activity log: %w", err)
	}

	jwtConfig := &auth.JWTConfig{
		Secret:   []byte(cfg.JWTSecret),
		Issuer:   cfg.JWTIssuer,
		Audience: cfg.JWTAudience,
		TTL:      24 * time.Hour,
	}
	gate := auth.NewGate(st, jwtConfig)

	reg := core.NewRegistry(cfg.MaxClients)
	router := core.NewRouter(reg)
	dispatcher := core.NewDispatcher(reg, router, activity)
	worker := core.NewWorker(reg, router, dispatcher, gate, logger)

	return &App{
		cfg:           cfg,
		log:           logger,
		reg:           reg,
		router:        router,
		tcp:           tcp.NewServer(cfg.ListenAddr, reg, worker, logger),
		http:          transporthttp.NewServer(cfg, gate, reg, worker, logger),
		store:         st,
		activityClose: activityClose,
	}, nil
}

// Run starts both transports and blocks until context cancellation or a
// fatal listener error. On cancellation every live session is notified
// and drained before the process exits.
func (a *App) Run(ctx context.Context) error {
	if err := a.tcp.Listen(); err != nil {
		a.cleanup()
		return err
	}

	serverErr := make(chan error, 2)
	go func() {
		serverErr <- a.tcp.Serve(ctx)
	}()
	go func() {
		if err := a.http.ListenAndServe(); err != nil && err != stdhttp.ErrServerClosed {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	a.log.Info().
		Str("listen_addr", a.cfg.ListenAddr).
		Str("http_addr", a.cfg.HTTPAddr).
		Int("max_clients", a.cfg.MaxClients).
		Msg("netchat server started")

	select {
	case err := <-serverErr:
		a.shutdown()
		a.cleanup()
		return err
	case <-ctx.Done():
		a.log.Info().Msg("shutting down")
		a.shutdown()
		a.cleanup()
		return nil
	}
}

// shutdown notifies every live session, closes their channels and stops
// both transports.
func (a *App) shutdown() {
	a.router.BroadcastAll(core.ShutdownNotice)
	for _, v := range a.reg.Snapshot() {
		v.Close()
	}

	a.tcp.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := a.http.Shutdown(shutdownCtx); err != nil {
		a.log.Warn().Err(err).Msg("http shutdown")
	}
}

// cleanup closes storage and the activity log.
func (a *App) cleanup() {
	if err := a.store.Close(); err != nil {
		a.log.Warn().Err(err).Msg("failed to close store")
	}
	if a.activityClose != nil {
		_ = a.activityClose.Close()
	}
}

func openStore(cfg config.Config) (store.CredentialStore, error) {
	switch cfg.Storage {
	case config.StorageSQLite:
		return sqlite.New(cfg.DatabasePath)
	case config.StorageFile, "":
		return credfile.New(cfg.CredentialsPath)
	default:
		return nil, fmt.Errorf("unknown storage backend: %q", cfg.Storage)
	}
}
