package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/router-ingest/internal/async"
	"github.com/joseph-ayodele/router-ingest/internal/entity"
	"github.com/joseph-ayodele/router-ingest/internal/ingest"
	"github.com/joseph-ayodele/router-ingest/internal/llm/provider"
	"github.com/joseph-ayodele/router-ingest/internal/queue"
	repo "github.com/joseph-ayodele/router-ingest/internal/repository"
	"github.com/joseph-ayodele/router-ingest/internal/server"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var (
		watchDir    string
		persist     bool
		autoAnalyze bool
		debounce    time.Duration
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the queue HTTP API and gRPC health server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger := ctx.ensureConfig()
			if err := cfg.Validate(); err != nil {
				return err
			}

			lock, err := acquireSessionLock(cfg.Server.LockFile)
			if err != nil {
				return err
			}
			defer releaseSessionLock(lock, logger)

			sigCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			extractor, err := provider.NewRetrying(cfg, logger)
			if err != nil {
				return err
			}
			q := queue.NewOrchestrator(extractor, logger, queue.WithDefaultTargetSSID(cfg.Queue.DefaultTargetSSID))

			var db *repo.DB
			var apiOpts []server.APIOption
			if persist {
				if err := cfg.ValidateDatabase(); err != nil {
					return err
				}
				db, err = server.ConnectDB(sigCtx, cfg.Database, logger, 5*time.Second)
				if err != nil {
					return err
				}
				defer db.Close()
				apiOpts = append(apiOpts, server.WithStore(db, repo.NewRouterQueueRepository(db, logger)))
			}

			runner := async.NewBatchRunner(q, logger)
			defer runner.Shutdown(context.Background())
			apiOpts = append(apiOpts, server.WithBatchRunner(runner))

			e := server.NewAPI(q, logger, apiOpts...).NewEcho()
			grpcServer := server.NewGRPCServer(logger)
			lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
			if err != nil {
				logger.Error("failed to listen on address", "addr", cfg.Server.GRPCAddr, "error", err)
				return err
			}

			g, gctx := errgroup.WithContext(sigCtx)
			g.Go(func() error {
				logger.Info("http listening", "addr", cfg.Server.HTTPAddr)
				if err := e.Start(cfg.Server.HTTPAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
			g.Go(func() error {
				return grpcServer.Serve(lis)
			})
			if db != nil {
				g.Go(func() error {
					grpcServer.TrackDatabase(gctx, db, 15*time.Second)
					return nil
				})
			}
			if watchDir != "" {
				var target ingest.Enqueuer = q
				if autoAnalyze {
					target = analyzeOnEnqueue{Orchestrator: q, runner: runner}
				}
				g.Go(func() error {
					return ingest.WatchAndEnqueue(gctx, target, ingest.WatchConfig{
						Roots:       []string{watchDir},
						InitialScan: true,
						Debounce:    debounce,
						SkipHidden:  true,
					}, logger)
				})
			}
			g.Go(func() error {
				<-gctx.Done()
				logger.Info("shutting down")
				if err := server.Shutdown(e, 10*time.Second); err != nil {
					logger.Warn("http shutdown failed", "error", err)
				}
				grpcServer.Stop()
				return nil
			})

			if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&watchDir, "watch", "", "Drop folder whose new label photos are enqueued automatically")
	cmd.Flags().BoolVar(&persist, "persist", false, "Open the durable store so DONE items can be saved")
	cmd.Flags().BoolVar(&autoAnalyze, "auto-analyze", false, "Start a background batch run whenever the drop folder enqueues a photo")
	cmd.Flags().DurationVar(&debounce, "debounce", 500*time.Millisecond, "Quiet period before a dropped photo is enqueued")
	return cmd
}

// analyzeOnEnqueue triggers a background run after every drop-folder enqueue.
type analyzeOnEnqueue struct {
	*queue.Orchestrator
	runner *async.BatchRunner
}

func (a analyzeOnEnqueue) Enqueue(img entity.Image) uuid.UUID {
	id := a.Orchestrator.Enqueue(img)
	a.runner.Trigger(async.Job{Reason: "watcher", TraceID: id.String()})
	return id
}
