// Package processing runs one sync: read both tables, join them and publish
// the result.
package processing

import (
	"context"
	"time"

	"sheets_join/internal/config"
	"sheets_join/internal/join"
	"sheets_join/internal/publish"
	"sheets_join/internal/retry"
	"sheets_join/internal/table"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Source names a sheet to read and the columns used from it.
type Source struct {
	TableID     string
	SubTable    string
	KeyColumn   string
	ValueColumn string
}

// Target names the sheet the result is published to.
type Target struct {
	TableID  string
	SubTable string
}

// Config is everything a run needs. It is built by the caller; nothing in
// this package reads the environment.
type Config struct {
	Primary    Source
	Secondary  Source
	Target     Target
	Resilience config.ResilienceConfig
	// DryRun reads and joins but does not publish.
	DryRun bool
}

// Reader reads a sheet as records.
type Reader interface {
	Records(ctx context.Context, tableID, subTable string) ([]table.Record, error)
}

// Publisher writes joined rows to a target sheet.
type Publisher interface {
	Publish(ctx context.Context, tableID, subTable string, rows []join.JoinedRow) (publish.Result, error)
}

// Stage records timing and row count for one step of a run.
type Stage struct {
	Name     string
	Rows     int
	Started  time.Time
	Finished time.Time
}

// Duration returns how long the stage took.
func (s Stage) Duration() time.Duration {
	return s.Finished.Sub(s.Started)
}

// Summary describes a completed or aborted run.
type Summary struct {
	RunID     string
	Started   time.Time
	Finished  time.Time
	Stages    []Stage
	Published publish.Result
	DryRun    bool
}

// Duration returns the wall time of the whole run.
func (s Summary) Duration() time.Duration {
	return s.Finished.Sub(s.Started)
}

// Rows returns the row count recorded for the named stage.
func (s Summary) Rows(stage string) int {
	for _, st := range s.Stages {
		if st.Name == stage {
			return st.Rows
		}
	}
	return 0
}

// Stage names.
const (
	StageReadPrimary   = "read_primary"
	StageReadSecondary = "read_secondary"
	StageIndex         = "index"
	StageJoin          = "join"
	StagePublish       = "publish"
)

// Orchestrator sequences reader, index, join and writer.
type Orchestrator struct {
	cfg       Config
	reader    Reader
	publisher Publisher
	now       func() time.Time
}

// NewOrchestrator wires a run.
func NewOrchestrator(cfg Config, reader Reader, publisher Publisher) *Orchestrator {
	return &Orchestrator{cfg: cfg, reader: reader, publisher: publisher, now: time.Now}
}

// Run executes one full sync. The first error aborts the run; the returned
// Summary covers the stages that finished before it.
func (o *Orchestrator) Run(ctx context.Context) (Summary, error) {
	sum := Summary{RunID: uuid.NewString(), Started: o.now(), DryRun: o.cfg.DryRun}
	logger := log.With().Str("run_id", sum.RunID).Logger()
	ctx = logger.WithContext(ctx)

	logger.Info().
		Time("start", sum.Started).
		Bool("dry_run", o.cfg.DryRun).
		Msg("Sheets left join started")

	primary, err := o.read(ctx, &sum, StageReadPrimary, o.cfg.Primary)
	if err != nil {
		return o.finish(sum), err
	}
	secondary, err := o.read(ctx, &sum, StageReadSecondary, o.cfg.Secondary)
	if err != nil {
		return o.finish(sum), err
	}

	st := o.begin(StageIndex)
	idx := join.BuildIndex(primary, o.cfg.Primary.KeyColumn, o.cfg.Primary.ValueColumn)
	o.end(&sum, st, idx.Len(), logger)

	logger.Info().
		Str("secondary_key", o.cfg.Secondary.KeyColumn).
		Str("primary_key", o.cfg.Primary.KeyColumn).
		Msg("Performing left join")
	st = o.begin(StageJoin)
	rows := join.LeftJoin(secondary, idx, o.cfg.Secondary.KeyColumn)
	o.end(&sum, st, len(rows), logger)

	if o.cfg.DryRun {
		logger.Info().Int("rows", len(rows)).Msg("Dry run; skipping publish")
		return o.finish(sum), nil
	}

	st = o.begin(StagePublish)
	res, err := o.publisher.Publish(ctx, o.cfg.Target.TableID, o.cfg.Target.SubTable, rows)
	sum.Published = res
	if err != nil {
		return o.finish(sum), err
	}
	o.end(&sum, st, res.RowsWritten, logger)

	sum = o.finish(sum)
	logger.Info().
		Time("end", sum.Finished).
		Dur("duration", sum.Duration()).
		Int("rows", res.RowsWritten).
		Msg("Run completed successfully")
	return sum, nil
}

func (o *Orchestrator) read(ctx context.Context, sum *Summary, name string, src Source) ([]table.Record, error) {
	logger := zerolog.Ctx(ctx)
	logger.Info().
		Str("table_id", src.TableID).
		Str("sub_table", src.SubTable).
		Msgf("Reading %s", name)

	st := o.begin(name)
	records, err := retry.WithRetry(ctx, o.cfg.Resilience.TableRead, func(ctx context.Context) ([]table.Record, error) {
		return o.reader.Records(ctx, src.TableID, src.SubTable)
	})
	if err != nil {
		return nil, err
	}
	o.end(sum, st, len(records), *logger)
	return records, nil
}

func (o *Orchestrator) begin(name string) Stage {
	return Stage{Name: name, Started: o.now()}
}

func (o *Orchestrator) end(sum *Summary, st Stage, rows int, logger zerolog.Logger) {
	st.Finished = o.now()
	st.Rows = rows
	sum.Stages = append(sum.Stages, st)
	logger.Info().
		Str("stage", st.Name).
		Int("rows", rows).
		Dur("duration", st.Duration()).
		Msg("Stage complete")
}

func (o *Orchestrator) finish(sum Summary) Summary {
	sum.Finished = o.now()
	return sum
}
