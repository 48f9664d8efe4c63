package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"nutriadmin.org/internal/app"
	"nutriadmin.org/internal/cache"
	"nutriadmin.org/internal/config"
	"nutriadmin.org/internal/httpapi"
	"nutriadmin.org/internal/obs"
	"nutriadmin.org/internal/store/pg"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

func main() {
	// .env is optional; real environment variables win
	_ = godotenv.Load()

	log := obs.Logger()
	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("load config")
	}
	if err := obs.SetLevel(cfg.LogLevel); err != nil {
		log.WithError(err).Fatal("log level")
	}
	obs.Init()
	build := obs.InitBuildInfo(version, commit)

	startCtx, cancelStart := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelStart()

	backend, err := cache.Open(startCtx, cache.Options{
		Backend:       cfg.CacheBackend,
		TTL:           cfg.CacheTTL,
		Size:          cfg.CacheSize,
		RedisAddr:     cfg.RedisAddr,
		RedisPassword: cfg.RedisPassword,
		RedisDB:       cfg.RedisDB,
	})
	if err != nil {
		log.WithError(err).Fatal("open cache")
	}

	// Without a DSN the service runs on in-process stores.
	var store *pg.Store
	if cfg.PGDSN != "" {
		store, err = pg.Open(startCtx, cfg.PGDSN, pg.Pool{
			MaxConns:        cfg.PGMaxConns,
			MaxIdleConns:    cfg.PGMaxIdleConns,
			ConnMaxLifetime: cfg.PGConnMaxLifetime,
		})
		if err != nil {
			log.WithError(err).Fatal("open db")
		}
	}

	svc, err := app.New(*cfg, store, backend)
	if err != nil {
		log.WithError(err).Fatal("wire services")
	}
	if err := svc.BootstrapAdmin(startCtx, cfg.AdminEmail, cfg.AdminPassword); err != nil {
		log.WithError(err).Fatal("bootstrap administrator")
	}

	probe := httpapi.ReadyProbe{}
	if store != nil {
		probe.DB = store.DB()
	}
	api := httpapi.New(probe, version, svc,
		httpapi.WithRateLimit(cfg.RateBurst, cfg.RatePerSec),
		httpapi.WithMaxBodyBytes(cfg.MaxBodyBytes),
	)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.WithFields(logrus.Fields{
		"version":     version,
		"commit":      build,
		"addr":        srv.Addr,
		"environment": cfg.Environment,
		"cache":       backend.Name(),
		"postgres":    store != nil,
	}).Info("starting nutriadmin-api")

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("listen")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.WithError(err).Warn("shutdown")
	}
	if err := svc.Close(); err != nil {
		log.WithError(err).Warn("close services")
	}
	log.Info("stopped")
}
