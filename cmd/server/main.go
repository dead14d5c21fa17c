package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/DoyleJ11/simon-backend/internal/config"
	"github.com/DoyleJ11/simon-backend/internal/events"
	"github.com/DoyleJ11/simon-backend/internal/httpapi"
	"github.com/DoyleJ11/simon-backend/internal/hub"
	"github.com/DoyleJ11/simon-backend/internal/logging"
	"github.com/DoyleJ11/simon-backend/internal/session"
	"github.com/DoyleJ11/simon-backend/internal/store"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.LoadServer()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	log, err := logging.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Error("server exited", zap.Error(err))
		_ = log.Sync()
		os.Exit(1)
	}
}

func run(cfg config.Server, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var st store.Store = store.NewMemory()
	if cfg.DatabaseURL != "" {
		pg, err := store.OpenPostgres(cfg.DatabaseURL, log.Named("store"))
		if err != nil {
			return err
		}
		st = pg
	}
	defer st.Close()

	var pub events.Publisher = events.Nop{}
	if cfg.NATSURL != "" {
		natsCfg := events.DefaultNATSConfig()
		natsCfg.URL = cfg.NATSURL
		natsCfg.SubjectPrefix = cfg.NATSSubjectPrefix
		np, err := events.NewNATSPublisher(natsCfg, log.Named("events"))
		if err != nil {
			return err
		}
		pub = np
	}
	defer pub.Close()

	// Stopped by ShutdownHub once the server has drained, not by the signal.
	h := hub.NewHub(context.Background(), session.Deps{
		Store:       st,
		Publisher:   pub,
		IdleTimeout: cfg.SessionIdleTimeout,
		Log:         log.Named("session"),
	})
	api := httpapi.NewAPI(h, st, log)
	handler := httpapi.SetupRoutes(api, httpapi.RouteOptions{AllowedOrigins: cfg.CORSOrigins})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("listening", zap.String("addr", srv.Addr),
			zap.Bool("postgres", cfg.DatabaseURL != ""),
			zap.Bool("nats", cfg.NATSURL != ""))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		h.Inbox() <- hub.ShutdownHub{}
		<-h.Done()
		return err
	})
	return g.Wait()
}
