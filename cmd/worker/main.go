package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mutaplan/mutaplan/internal/config"
	"github.com/mutaplan/mutaplan/internal/db"
	"github.com/mutaplan/mutaplan/internal/jobs"
	mutaplannats "github.com/mutaplan/mutaplan/internal/nats"
	"github.com/mutaplan/mutaplan/internal/reporter"
	"github.com/mutaplan/mutaplan/internal/worker"
	"github.com/mutaplan/mutaplan/pkg/plan"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if os.Getenv("ENV") != "production" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	ctx := context.Background()

	database, err := db.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer database.Close()

	repo := jobs.NewRepository(database.Pool())

	var natsClient *mutaplannats.Client
	var planReporter plan.Reporter = reporter.NoopReporter{}

	if cfg.NATSURL != "" {
		natsClient, err = mutaplannats.NewClient(cfg.NATSURL)
		if err != nil {
			log.Warn().Err(err).Msg("failed to connect to NATS, worker will poll database")
		} else {
			defer natsClient.Close()
			if err := natsClient.SetupStreams(ctx); err != nil {
				log.Warn().Err(err).Msg("failed to set up NATS streams")
			}
			planReporter = reporter.NewNATSReporter(natsClient)
		}
	}

	pipeline := jobs.NewPipeline(repo, natsClient)

	base := worker.NewBaseWorker(worker.BaseWorkerConfig{
		Repository: repo,
		NATS:       natsClient,
		Pipeline:   pipeline,
	})

	planningWorker := worker.NewPlanningWorker(base, planReporter)

	runCtx, cancel := context.WithCancel(context.Background())
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Info().Msg("worker is shutting down...")
		cancel()
	}()

	log.Info().Str("worker_id", planningWorker.WorkerID()).Msg("starting planning worker")
	if err := planningWorker.Run(runCtx); err != nil {
		log.Fatal().Err(err).Msg("worker error")
	}

	log.Info().Msg("worker stopped")
}
