package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/router-ingest/constants"
	"github.com/joseph-ayodele/router-ingest/internal/export"
	"github.com/joseph-ayodele/router-ingest/internal/ingest"
	"github.com/joseph-ayodele/router-ingest/internal/llm/provider"
	"github.com/joseph-ayodele/router-ingest/internal/queue"
	repo "github.com/joseph-ayodele/router-ingest/internal/repository"
	"github.com/joseph-ayodele/router-ingest/internal/server"
)

func newBatchCommand(ctx *commandContext) *cobra.Command {
	var (
		dir     string
		out     string
		xlsxOut string
		persist bool
		inmem   bool
	)
	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Analyze every label photo in a directory and write router_queue.csv",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if dir == "" {
				return errors.New("--dir is required")
			}
			if out == "" {
				out = filepath.Join(dir, constants.CSVFilename)
			}

			cfg, logger := ctx.ensureConfig()
			if err := cfg.Validate(); err != nil {
				return err
			}
			lock, err := acquireSessionLock(cfg.Server.LockFile)
			if err != nil {
				return err
			}
			defer releaseSessionLock(lock, logger)

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			extractor, err := provider.NewRetrying(cfg, logger)
			if err != nil {
				return err
			}
			q := queue.NewOrchestrator(extractor, logger, queue.WithDefaultTargetSSID(cfg.Queue.DefaultTargetSSID))

			logger.Info("starting ingestion", "dir", dir)
			_, stats, err := ingest.EnqueueDirectory(runCtx, q, dir, true, logger)
			if err != nil {
				return err
			}
			if stats.Succeeded == 0 {
				logger.Warn("no label photos found", "dir", dir)
				return nil
			}

			start := time.Now()
			sum := q.AnalyzeAll(runCtx)
			fmt.Fprintln(cmd.OutOrStdout(), renderQueueTable(q.Items()))

			exports := export.NewService(q, logger)
			doc, err := exports.ExportCSV()
			switch {
			case errors.Is(err, export.ErrNoDocument):
				logger.Warn("no DONE items, no csv written")
			case err != nil:
				return err
			default:
				if err := os.WriteFile(out, []byte(doc), 0o644); err != nil {
					return fmt.Errorf("write csv: %w", err)
				}
				logger.Info("csv written", "output", out)
			}
			if xlsxOut != "" && sum.Done > 0 {
				buf, err := exports.ExportXLSX()
				if err != nil {
					return err
				}
				if err := os.WriteFile(xlsxOut, buf, 0o644); err != nil {
					return fmt.Errorf("write xlsx: %w", err)
				}
				logger.Info("xlsx written", "output", xlsxOut)
			}

			saved := 0
			if persist {
				dbCfg := cfg.Database
				if inmem {
					dbCfg.Driver = "sqlite"
					dbCfg.DSN = repo.InMemoryDSN
				} else if err := cfg.ValidateDatabase(); err != nil {
					return err
				}
				db, err := server.ConnectDB(runCtx, dbCfg, logger, 5*time.Second)
				if err != nil {
					return err
				}
				defer db.Close()
				recs, err := q.SaveAllDone(runCtx, repo.NewRouterQueueRepository(db, logger))
				saved = len(recs)
				if err != nil {
					return err
				}
			}

			logger.Info("batch processing complete",
				"files_ingested", stats.Succeeded,
				"deduplicated", stats.Deduplicated,
				"done", sum.Done,
				"failed", sum.Failed,
				"abandoned", sum.Abandoned,
				"saved", saved,
				"elapsed_ms", time.Since(start).Milliseconds(),
			)
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "Directory of label photos (required)")
	cmd.Flags().StringVar(&out, "out", "", "CSV output path (defaults to <dir>/router_queue.csv)")
	cmd.Flags().StringVar(&xlsxOut, "xlsx", "", "Optional XLSX output path")
	cmd.Flags().BoolVar(&persist, "persist", false, "Save DONE items to the durable store")
	cmd.Flags().BoolVar(&inmem, "inmem", false, "Use an in-memory SQLite store with --persist")
	return cmd
}
