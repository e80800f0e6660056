package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/placehub/placehub/internal/config"
	"github.com/placehub/placehub/internal/db"
	httpx "github.com/placehub/placehub/internal/http"
	"github.com/placehub/placehub/internal/http/handlers"
	"github.com/placehub/placehub/internal/observability"
	"github.com/placehub/placehub/internal/queue/redisclient"
	"github.com/placehub/placehub/internal/storage"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	// Load the config set up
	cfg := config.Load()

	// start up the observability logger
	log := observability.NewLogger(cfg.Env)

	// tracing (optional; shutdown flushes pending spans)
	shutdownTracer, err := observability.InitTracer(context.Background(), "placehub-api", cfg.OTLPEndpoint)

	if err != nil {
		log.Warn("tracer init failed, continuing without traces", "err", err)
		shutdownTracer = func(context.Context) error { return nil }
	}

	pool, err := db.NewPool(cfg.DBURL)

	if err != nil {
		log.Error("db connect failed", "err", err)
		os.Exit(1)
	}

	defer pool.Close()

	ctx, cancel := config.WithTimeout(10 * time.Second)

	err = db.EnsureSchema(ctx, pool)
	cancel()

	if err != nil {
		log.Error("schema setup failed", "err", err)
		os.Exit(1)
	}

	images, err := storage.NewFileStore(cfg.UploadDir)

	if err != nil {
		log.Error("upload dir setup failed", "err", err)
		os.Exit(1)
	}

	// queue for async image cleanup; the API still works without it, the
	// handlers fall back to inline deletes
	queueClient := redisclient.New(redisclient.Config{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	defer queueClient.Close()

	pctx, pcancel := config.WithTimeout(2 * time.Second)
	qerr := queueClient.Ping(pctx)
	pcancel()

	var queue handlers.CleanupEnqueuer

	if qerr != nil {
		log.Warn("redis unavailable, image cleanup will run inline", "err", qerr)
	} else {
		queue = queueClient
	}

	promReg := prometheus.NewRegistry()

	router := httpx.NewRouter(httpx.RouterDeps{
		Cfg:     cfg,
		Log:     log,
		Pool:    pool,
		Images:  images,
		Queue:   queue,
		PromReg: promReg,
	})

	// server set up
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// start server using a concurrent go-routine driven anonymous function.

	go func() {
		log.Info("Server starting", "port", cfg.Port, "env", cfg.Env)
		err := srv.ListenAndServe()

		if err != nil && err != http.ErrServerClosed {
			log.Error("server failed", "err", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Info("server shutting down")

	shutdownCh := make(chan struct{})

	go func() {
		defer close(shutdownCh)

		ctx, cancel := config.WithTimeout(10 * time.Second)

		defer cancel()

		err := srv.Shutdown(ctx)

		if err != nil {
			log.Error("graceful shutdown failed", "err", err)
		}

		_ = shutdownTracer(ctx)
	}()

	select {
	case <-shutdownCh:
		log.Info("shutdown complete")

	case <-time.After(12 * time.Second):
		log.Error("shutdown timed out")
	}
}
