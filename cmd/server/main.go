// Command server runs the HTTP API: the CRM webhook, image management, copy
// generation, signed media and the live event stream. An optional cron job
// re-imports a CSV export.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/Networkcaretaker/real-estate-backend/internal/api"
	"github.com/Networkcaretaker/real-estate-backend/internal/app"
	"github.com/Networkcaretaker/real-estate-backend/internal/batch"
	"github.com/Networkcaretaker/real-estate-backend/internal/config"
	"github.com/Networkcaretaker/real-estate-backend/internal/derive"
	"github.com/Networkcaretaker/real-estate-backend/internal/events"
	"github.com/Networkcaretaker/real-estate-backend/internal/images"
	"github.com/Networkcaretaker/real-estate-backend/internal/logging"
	"github.com/Networkcaretaker/real-estate-backend/internal/pipeline"
	"github.com/Networkcaretaker/real-estate-backend/internal/processing"
	"github.com/Networkcaretaker/real-estate-backend/internal/queue"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.New("info", "").WithError(err).Fatal("load config")
	}
	log := logging.New(cfg.LogLevel, cfg.Environment)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.Open(ctx, cfg, log)
	if err != nil {
		log.WithError(err).Fatal("init backends")
	}
	defer a.Close()

	hub := events.NewHub(log)
	go hub.Run()
	defer hub.Shutdown()

	asynqClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer asynqClient.Close()
	jobs := queue.NewClient(asynqClient)

	opts := append(a.PipelineOptions(), pipeline.WithPublisher(hub))
	if cfg.GeminiAPIKey != "" {
		opts = append(opts, pipeline.WithCopyQueue(jobs, cfg.CopyVersions))
	}
	pipe := pipeline.New(a.Properties, log, opts...)

	svc := images.NewService(a.Properties, a.Images, a.Blobs, derive.New(), processing.New(cfg.UploadWorkers), hub, log)

	apiOpts := api.Options{
		Config:     cfg,
		Pipeline:   pipe,
		Properties: a.Properties,
		Images:     svc,
		Events:     hub,
		Publisher:  hub,
		Log:        log,
	}
	if a.Media != nil {
		apiOpts.Media = a.Media
	}
	writer, err := a.Writer(ctx)
	if err != nil {
		log.WithError(err).Fatal("init copywriter")
	}
	if writer != nil {
		apiOpts.Copywriter = writer
		apiOpts.Queue = jobs
	} else {
		log.Warn("no generative API key configured, copy generation disabled")
	}

	if cfg.ImportCSVPath != "" {
		sched := batch.NewScheduler(batch.NewImporter(pipe, cfg.ImportWorkers, log), cfg.ImportCSVPath, log)
		if err := sched.Start(cfg.ImportSchedule); err != nil {
			log.WithError(err).Fatal("start import scheduler")
		}
		defer sched.Stop()
	}

	if err := api.New(apiOpts).Run(ctx); err != nil {
		log.WithError(err).Error("server stopped")
		os.Exit(1)
	}
}
