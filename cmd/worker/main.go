package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/placehub/placehub/internal/config"
	"github.com/placehub/placehub/internal/observability"
	"github.com/placehub/placehub/internal/queue/redisclient"
	"github.com/placehub/placehub/internal/queue/worker"
	"github.com/placehub/placehub/internal/storage"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	cfg := config.Load()

	log := observability.NewLogger(cfg.Env)

	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)

	defer stop()

	queueClient := redisclient.New(redisclient.Config{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	defer queueClient.Close()

	pctx, pcancel := config.WithTimeout(2 * time.Second)
	err := queueClient.Ping(pctx)
	pcancel()

	if err != nil {
		log.Error("redis connect failed", "err", err)
		os.Exit(1)
	}

	images, err := storage.NewFileStore(cfg.UploadDir)

	if err != nil {
		log.Error("upload dir setup failed", "err", err)
		os.Exit(1)
	}

	prom := observability.NewProm(prometheus.NewRegistry())

	w := worker.New(worker.Config{
		QueueName:   redisclient.CleanupQueue,
		PollTimeout: 2 * time.Second,
	}, queueClient, images, log, prom)

	log.Info("cleanup worker has started")

	if err := w.Run(ctx); err != nil {
		log.Error("worker stopped with error", "err", err)
	}

	log.Info("worker shutdown complete")
}
