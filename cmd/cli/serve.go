package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/mutaplan/mutaplan/internal/api"
	"github.com/mutaplan/mutaplan/internal/config"
	"github.com/mutaplan/mutaplan/internal/db"
	"github.com/mutaplan/mutaplan/internal/jobs"
	mutaplannats "github.com/mutaplan/mutaplan/internal/nats"
	"github.com/mutaplan/mutaplan/internal/reporter"
	"github.com/mutaplan/mutaplan/internal/worker"
	"github.com/mutaplan/mutaplan/pkg/plan"
)

func serveCmd() *cobra.Command {
	var withWorker bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the planning API, optionally with an embedded worker",
		Long: `Starts the HTTP API that accepts planning jobs and reports their status.
With --with-worker it also runs a planning worker in-process, which is
convenient for local development; production deployments should run
the standalone worker binary (cmd/worker) as its own process instead.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(withWorker)
		},
	}

	cmd.Flags().BoolVar(&withWorker, "with-worker", false, "Also run a planning worker in this process")

	return cmd
}

func runServe(withWorker bool) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	ctx := context.Background()

	database, err := db.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close()

	repo := jobs.NewRepository(database.Pool())

	var natsClient *mutaplannats.Client
	if cfg.NATSURL != "" {
		natsClient, err = mutaplannats.NewClient(cfg.NATSURL)
		if err != nil {
			log.Warn().Err(err).Msg("failed to connect to NATS, falling back to DB polling")
		} else {
			defer natsClient.Close()
			if err := natsClient.SetupStreams(ctx); err != nil {
				log.Warn().Err(err).Msg("failed to set up NATS streams")
			}
		}
	}

	pipeline := jobs.NewPipeline(repo, natsClient)
	srv := api.NewServer(pipeline, repo, database)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      srv.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	runCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if withWorker {
		var planReporter plan.Reporter = reporter.NoopReporter{}
		if natsClient != nil {
			planReporter = reporter.NewNATSReporter(natsClient)
		}

		base := worker.NewBaseWorker(worker.BaseWorkerConfig{
			Repository: repo,
			NATS:       natsClient,
			Pipeline:   pipeline,
		})
		planningWorker := worker.NewPlanningWorker(base, planReporter)

		go func() {
			if err := planningWorker.Run(runCtx); err != nil {
				log.Error().Err(err).Msg("embedded worker stopped")
			}
		}()
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan struct{})
	go func() {
		<-quit
		log.Info().Msg("server is shutting down...")
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("could not gracefully shutdown the server")
		}
		close(done)
	}()

	log.Info().Int("port", cfg.Port).Bool("with_worker", withWorker).Msg("starting mutaplan server")
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("could not listen on port: %w", err)
	}

	<-done
	log.Info().Msg("server stopped")
	return nil
}
