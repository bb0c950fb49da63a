// Command worker consumes queued listing copy tasks.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/Networkcaretaker/real-estate-backend/internal/app"
	"github.com/Networkcaretaker/real-estate-backend/internal/config"
	"github.com/Networkcaretaker/real-estate-backend/internal/logging"
	"github.com/Networkcaretaker/real-estate-backend/internal/worker"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logging.New("info", "").WithError(err).Fatal("load config")
	}
	log := logging.New(cfg.LogLevel, cfg.Environment)

	if cfg.DatabaseURL == "" {
		log.Fatal("worker requires DATABASE_URL")
	}
	a, err := app.Open(ctx, cfg, log)
	if err != nil {
		log.WithError(err).Fatal("init backends")
	}
	defer a.Close()

	writer, err := a.Writer(ctx)
	if err != nil {
		log.WithError(err).Fatal("init copywriter")
	}
	if writer == nil {
		log.Fatal("worker requires GOOGLE_AI_API_KEY")
	}

	server := asynq.NewServer(asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}, asynq.Config{
		Concurrency: cfg.QueueWorkers,
	})
	processor := worker.NewProcessor(writer, log)
	mux := processor.Handler()

	go func() {
		<-ctx.Done()
		server.Shutdown()
	}()

	log.WithField("concurrency", cfg.QueueWorkers).Info("worker_started")
	if err := server.Run(mux); err != nil {
		log.WithError(err).Error("worker stopped")
		os.Exit(1)
	}
}
