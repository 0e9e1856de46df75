package app

import (
	"context"

	"sheets_join/internal/notifications"
	"sheets_join/internal/processing"
	"sheets_join/internal/publish"
	"sheets_join/internal/table"

	"github.com/rs/zerolog/log"
)

// Notifier receives the outcome of a run.
type Notifier interface {
	NotifyRun(ctx context.Context, report notifications.RunReport) error
}

// RunSync performs one join against store and reports the outcome to n,
// which may be nil. The run error is returned for the caller to log; a
// notification failure is logged, never returned.
func RunSync(ctx context.Context, cfg *Config, store table.Store, n Notifier, dryRun bool) (processing.Summary, error) {
	writer := publish.NewWriter(store, cfg.PublishOptions())
	orch := processing.NewOrchestrator(cfg.Processing(dryRun), store, writer)

	sum, err := orch.Run(ctx)

	if n != nil {
		report := notifications.RunReport{
			RunID:    sum.RunID,
			Target:   cfg.TargetSheetName,
			Rows:     sum.Published.RowsWritten,
			Duration: sum.Duration(),
			DryRun:   sum.DryRun,
			Skipped:  sum.Published.Skipped,
			Err:      err,
		}
		if dryRun {
			report.Rows = sum.Rows(processing.StageJoin)
		}
		if nerr := n.NotifyRun(ctx, report); nerr != nil {
			log.Warn().Err(nerr).Msg("Run notification failed")
		}
	}
	return sum, err
}
