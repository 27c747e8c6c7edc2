package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/router-ingest/constants"
	repo "github.com/joseph-ayodele/router-ingest/internal/repository"
	"github.com/joseph-ayodele/router-ingest/internal/server"
)

func newDBHealthCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "dbhealth",
		Short: "Check the durable store and count pending records",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger := ctx.ensureConfig()
			if err := cfg.ValidateDatabase(); err != nil {
				return err
			}
			db, err := server.ConnectDB(cmd.Context(), cfg.Database, logger, time.Second)
			if err != nil {
				return fmt.Errorf("DB health: FAIL (%w)", err)
			}
			defer db.Close()
			fmt.Fprintln(cmd.OutOrStdout(), "DB health: OK")

			recs, err := repo.NewRouterQueueRepository(db, logger).
				ListByStatus(cmd.Context(), string(constants.RecordStatusPending), 0)
			if err != nil {
				return fmt.Errorf("listing pending records: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "pending records: %d\n", len(recs))
			return nil
		},
	}
}
