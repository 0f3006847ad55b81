package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"github.com/ukydev/campus-rath/internal/auth"
	"github.com/ukydev/campus-rath/internal/broadcast"
	"github.com/ukydev/campus-rath/internal/config"
	"github.com/ukydev/campus-rath/internal/db"
	"github.com/ukydev/campus-rath/internal/handlers"
	"github.com/ukydev/campus-rath/internal/middleware"
	"github.com/ukydev/campus-rath/internal/session"
	"github.com/ukydev/campus-rath/internal/tracker"
)

const shutdownTimeout = 10 * time.Second

// server is the assembled HTTP surface plus the background tracker loop.
type server struct {
	handler http.Handler
	loop    *tracker.Loop
	hub     *tracker.Hub
}

func newServer(cfg *config.Config, backend *db.Backend, publisher broadcast.Publisher) (*server, error) {
	authService, err := auth.NewService(cfg.SessionSecret)
	if err != nil {
		return nil, err
	}
	sessions := middleware.NewSessionMiddleware(authService)

	gate := auth.NewPINGate(cfg.AdminPIN, cfg.AdminPINHash)
	runner := session.NewRunner(session.NewMachine(gate), backend.Store, publisher, cfg.DefaultLocation)

	loop := tracker.NewLoop(backend.Store, cfg.OverlayPath, cfg.PollInterval, cfg.DefaultLocation)
	hub := tracker.NewHub(cfg.DefaultLocation, loop.Poll)

	admin := handlers.NewAdminHandler(runner, sessions).
		LimitPINAttempts(middleware.NewRateLimitMiddleware(), cfg.PINAttemptsPerMinute)
	routes := handlers.Routes{
		Admin:    admin,
		Tracker:  handlers.NewTrackerHandler(loop, hub),
		Sessions: sessions,
	}
	if backend.Collection != nil {
		routes.Store = handlers.NewStoreHandler(backend.Collection)
	}

	return &server{
		handler: handlers.NewRouter(routes),
		loop:    loop,
		hub:     hub,
	}, nil
}

func main() {
	if err := run(); err != nil {
		log.WithError(err).Fatal("rath-server failed")
	}
}

func run() error {
	var envFile string
	flagSet := pflag.NewFlagSet("rath-server", pflag.ContinueOnError)
	flagSet.StringVar(&envFile, "env-file", "", "load configuration from this .env file")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	var cfg *config.Config
	if envFile != "" {
		cfg = config.Load(envFile)
	} else {
		cfg = config.Load()
	}
	cfg.ConfigureLogging()

	backend, err := db.Open(cfg)
	if err != nil {
		return err
	}
	defer backend.Close()

	publisher, closePublisher, err := broadcast.Open(cfg)
	if err != nil {
		log.WithError(err).Warn("MQTT unavailable, continuing without broadcast")
		publisher = nil
	}
	defer closePublisher()

	srv, err := newServer(cfg, backend, publisher)
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           srv.handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go srv.loop.Run(ctx, srv.hub)

	errs := make(chan error, 1)
	go func() {
		log.WithField("port", cfg.HTTPPort).Info("HTTP server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- err
		}
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigs:
		log.WithField("signal", sig.String()).Info("Shutdown initiated")
	case err := <-errs:
		return err
	}

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return err
	}
	log.Info("HTTP server shut down successfully")
	return nil
}
