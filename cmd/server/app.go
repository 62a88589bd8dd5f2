package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/diewo77/go-fieldops/internal/config"
	"github.com/diewo77/go-fieldops/internal/db"
	"github.com/diewo77/go-fieldops/internal/logging"
	"github.com/diewo77/go-fieldops/internal/policy"
	"github.com/diewo77/go-fieldops/internal/server"
)

const shutdownTimeout = 10 * time.Second

// App is one running service: its config, logger and HTTP handler.
type App struct {
	cfg     *config.Config
	log     *logrus.Entry
	handler http.Handler
}

func setup(service string) (*config.Config, *logrus.Entry, error) {
	cfg, err := config.Load(service)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logging.New(service, cfg.Level, cfg.Format), nil
}

// NewApp connects the database of service, migrates it and builds the router.
func NewApp(service string) (*App, error) {
	cfg, log, err := setup(service)
	if err != nil {
		return nil, err
	}

	gdb, err := db.Open(cfg.DatabaseConfig, log)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(gdb, cfg.DatabaseConfig, service, log); err != nil {
		return nil, errors.Wrap(err, "migrate")
	}

	rc, err := policy.NewRouterConfig(gdb, cfg, log)
	if err != nil {
		return nil, err
	}
	return &App{cfg: cfg, log: log, handler: server.NewRouter(rc)}, nil
}

// Run serves until ctx is cancelled or SIGINT/SIGTERM arrives, then shuts
// down gracefully.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:         a.cfg.Addr(),
		Handler:      a.handler,
		ReadTimeout:  time.Duration(a.cfg.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(a.cfg.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(a.cfg.IdleTimeout) * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.WithFields(logrus.Fields{
			"addr":         srv.Addr,
			"auth_service": a.cfg.ServiceURL,
		}).Info("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return errors.Wrap(err, "listen")
		}
		return nil
	case <-ctx.Done():
	}
	a.log.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "shutdown")
	}
	a.log.Info("server stopped gracefully")
	return nil
}
