package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/nao1215/fipecrawler/internal/checkpoint"
	"github.com/nao1215/fipecrawler/internal/config"
	"github.com/nao1215/fipecrawler/internal/crawler"
	"github.com/nao1215/fipecrawler/internal/database"
	"github.com/nao1215/fipecrawler/internal/fipe"
	"github.com/nao1215/fipecrawler/internal/log"
	"github.com/nao1215/fipecrawler/internal/model"
	"github.com/nao1215/fipecrawler/internal/normalize"
	"github.com/nao1215/fipecrawler/internal/report"
	"github.com/nao1215/fipecrawler/internal/sink"
)

// postgresDSNEnv is read when --postgres-dsn is not given.
const postgresDSNEnv = "FIPECRAWLER_POSTGRES_DSN"

// NewCrawlCmd creates the crawl command.
func NewCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Collect vehicle prices from the FIPE reference tables",
		Long: `Crawl walks every reference table up to max_year and fetches the price of
each vehicle matching the fuel filter.

Progress is saved to a checkpoint, so running crawl again after an
interruption skips every vehicle already collected. Use --fresh to ignore
the checkpoint.

Press Ctrl+C once to stop after the current table, twice to exit at once.

Examples:
  # Crawl with the default outputs (console and SQLite)
  fipecrawler crawl

  # Also append to a CSV file and write a spreadsheet
  fipecrawler crawl --csv fipe.csv --xlsx fipe.xlsx

  # Markdown report written to a file
  fipecrawler crawl --report report.md --report-format markdown`,
		Args: cobra.NoArgs,
		RunE: runCrawlCmd,
	}

	flags := cmd.Flags()
	flags.String("data-dir", "", "Directory for the checkpoint and database (default: XDG data directory)")
	flags.String("checkpoint", "", "Checkpoint file (default: <data-dir>/"+config.DefaultCheckpointFile+")")
	flags.Bool("fresh", false, "Ignore the saved checkpoint and start over")
	flags.String("csv", "", "Append records to this CSV file")
	flags.String("xlsx", "", "Write records to this XLSX workbook")
	flags.String("postgres-dsn", "", "Also store records in PostgreSQL (or set "+postgresDSNEnv+")")
	flags.Bool("save-db", true, "Store records and run history in the SQLite database")
	flags.StringP("report", "r", "", "Write the run report to this file instead of stdout")
	flags.String("report-format", config.ReportFormatText, "Report format: text, markdown or json")
	flags.Bool("json-logs", false, "Print progress as JSON log lines")
	flags.Bool("no-color", false, "Disable colored console output")

	return cmd
}

// buildCrawlConfig loads the configuration file and applies the crawl flags.
func buildCrawlConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if cfg.DataDir, err = flags.GetString("data-dir"); err != nil {
		return nil, err
	}
	if cfg.CheckpointPath, err = flags.GetString("checkpoint"); err != nil {
		return nil, err
	}
	if cfg.Fresh, err = flags.GetBool("fresh"); err != nil {
		return nil, err
	}
	if cfg.CSVPath, err = flags.GetString("csv"); err != nil {
		return nil, err
	}
	if cfg.XLSXPath, err = flags.GetString("xlsx"); err != nil {
		return nil, err
	}
	if cfg.PostgresDSN, err = flags.GetString("postgres-dsn"); err != nil {
		return nil, err
	}
	if cfg.PostgresDSN == "" {
		cfg.PostgresDSN = os.Getenv(postgresDSNEnv)
	}
	if cfg.SaveToDB, err = flags.GetBool("save-db"); err != nil {
		return nil, err
	}
	if cfg.ReportFile, err = flags.GetString("report"); err != nil {
		return nil, err
	}
	if cfg.ReportFormat, err = flags.GetString("report-format"); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runCrawlCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildCrawlConfig(cmd)
	if err != nil {
		return err
	}

	jsonLogs, err := cmd.Flags().GetBool("json-logs")
	if err != nil {
		return err
	}
	noColor, err := cmd.Flags().GetBool("no-color")
	if err != nil {
		return err
	}

	logger := log.NewLogger(cmd.ErrOrStderr(), cfg.Verbose)
	slog.SetDefault(logger)

	var console sink.Sink
	if jsonLogs {
		console = sink.NewLogger(log.NewJSONLogger(cmd.OutOrStdout(), cfg.Verbose))
	} else {
		console = sink.NewConsole(cmd.OutOrStdout(),
			sink.WithVerbose(cfg.Verbose),
			sink.WithColor(!noColor),
		)
	}

	signals := make(chan os.Signal, 2)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(signals)

	run := &crawlRun{
		cfg:     cfg,
		logger:  logger,
		out:     cmd.OutOrStdout(),
		console: console,
		signals: signals,
	}
	return run.execute(cmd.Context())
}

// crawlRun wires the configured outputs around one engine run.
type crawlRun struct {
	cfg     *config.Config
	logger  *slog.Logger
	out     io.Writer
	console sink.Sink
	signals <-chan os.Signal

	db      *database.CrawlDB
	pg      *database.PostgresStore
	store   checkpoint.Store
	tally   *sink.Summary
	events  *sink.Async
	runID   string
	started time.Time
}

// execute runs the crawl and writes the report. The error is non-nil for
// configuration problems and output failures; an interrupted run is not an
// error.
func (r *crawlRun) execute(ctx context.Context) error {
	defer r.closeStorage()

	if err := r.openStorage(ctx); err != nil {
		return err
	}
	if err := r.openSinks(ctx); err != nil {
		return err
	}

	engine, err := r.newEngine()
	if err != nil {
		_ = r.events.Close() //nolint:errcheck // already failing
		return err
	}

	summary, runErr := r.run(ctx, engine)
	sinkErr := r.events.Close()

	r.logger.Info("crawl result",
		"state", summary.State.String(),
		"records", summary.Records,
		"no_result", summary.NoResult,
		"skipped", summary.Skipped,
	)

	r.finishRun(ctx, summary)
	if err := r.writeReport(summary, runErr); err != nil {
		return err
	}

	if runErr != nil {
		return runErr
	}
	if sinkErr != nil {
		return fmt.Errorf("failed to write records: %w", sinkErr)
	}
	return nil
}

// openStorage opens the SQLite database when needed and selects the
// checkpoint backend.
func (r *crawlRun) openStorage(ctx context.Context) error {
	cfg := r.cfg

	if cfg.SaveToDB || cfg.CheckpointBackend == config.CheckpointBackendSQLite {
		db, err := database.Open(cfg.ResolvedDataDir(), database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		r.db = db
		r.logger.Debug("database opened", "path", db.Path())
	}

	switch cfg.CheckpointBackend {
	case config.CheckpointBackendSQLite:
		r.store = database.NewCheckpointStore(r.db, cfg.CheckpointInterval, r.logger)
	default:
		r.store = checkpoint.NewFileStore(cfg.ResolvedCheckpointPath(),
			checkpoint.WithInterval(cfg.CheckpointInterval),
			checkpoint.WithLogger(r.logger),
		)
	}

	if cfg.Fresh {
		if resetter, ok := r.store.(checkpoint.Resetter); ok {
			if err := resetter.Reset(ctx); err != nil {
				return fmt.Errorf("failed to reset checkpoint: %w", err)
			}
			r.logger.Info("checkpoint reset")
		}
	}

	r.started = time.Now()
	if cfg.SaveToDB {
		run, err := r.db.StartRun(ctx, r.started)
		if err != nil {
			return err
		}
		r.runID = run.ID
	}

	if cfg.PostgresDSN != "" {
		pg, err := database.OpenPostgres(ctx, cfg.PostgresDSN, database.DefaultPostgresBatch)
		if err != nil {
			return err
		}
		r.pg = pg
	}
	return nil
}

// openSinks builds the event fan-out: console, run tally and every
// configured record output, behind one asynchronous queue.
func (r *crawlRun) openSinks(ctx context.Context) error {
	cfg := r.cfg
	writeCtx := context.WithoutCancel(ctx)

	r.tally = sink.NewSummary()
	sinks := []sink.Sink{r.console, r.tally}

	if cfg.CSVPath != "" {
		csvSink, err := sink.NewCSV(cfg.CSVPath, r.logger)
		if err != nil {
			return err
		}
		sinks = append(sinks, csvSink)
	}
	if cfg.XLSXPath != "" {
		xlsx, err := sink.NewExcel(cfg.XLSXPath, sink.WithExcelLogger(r.logger))
		if err != nil {
			_ = sink.NewMulti(sinks...).Close() //nolint:errcheck // already failing
			return err
		}
		sinks = append(sinks, xlsx)
	}
	if cfg.SaveToDB {
		sinks = append(sinks, sink.NewStore(writeCtx, "sqlite", r.db,
			sink.WithRunID(r.runID),
			sink.WithStoreLogger(r.logger),
		))
	}
	if r.pg != nil {
		sinks = append(sinks, sink.NewStore(writeCtx, "postgres", r.pg,
			sink.WithBatch(database.DefaultPostgresBatch),
			sink.WithRunID(r.runID),
			sink.WithStoreLogger(r.logger),
		))
	}

	r.events = sink.NewAsync(sink.NewMulti(sinks...))
	return nil
}

func (r *crawlRun) newEngine() (*crawler.Engine, error) {
	cfg := r.cfg

	client, err := fipe.NewClient(cfg, fipe.WithLogger(r.logger))
	if err != nil {
		return nil, err
	}
	normalizer := normalize.New(cfg.MonthMapping,
		normalize.WithVehicleTypes(cfg.VehicleTypes),
		normalize.WithFuelTypes(cfg.FuelTypes),
	)
	api := fipe.NewAPI(client, normalizer, fipe.WithMaxYear(cfg.MaxYear))

	opts := []crawler.Option{
		crawler.WithSink(r.events),
		crawler.WithLogger(r.logger),
		crawler.WithVehicleTypes(cfg.CrawlTypes()),
		crawler.WithFuelFilter(cfg.FuelFilter),
	}
	if cfg.MaxLeafFailures != nil {
		opts = append(opts, crawler.WithMaxLeafFailures(*cfg.MaxLeafFailures))
	}
	return crawler.NewEngine(api, normalizer, r.store, opts...), nil
}

// run executes the engine while a second goroutine watches for interrupts.
func (r *crawlRun) run(ctx context.Context, engine *crawler.Engine) (crawler.Summary, error) {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		summary crawler.Summary
		g       errgroup.Group
	)
	done := make(chan struct{})
	g.Go(func() error {
		defer close(done)
		var err error
		summary, err = engine.Run(runCtx)
		return err
	})
	g.Go(func() error {
		w := signalWatcher{
			signals: r.signals,
			stop:    cancel,
			state:   engine.State,
			events:  r.events,
			logger:  r.logger,
		}
		w.watch(done)
		return nil
	})

	err := g.Wait()
	return summary, err
}

// signalWatcher stops a running engine on interrupt.
type signalWatcher struct {
	signals <-chan os.Signal
	stop    context.CancelFunc
	state   func() crawler.State
	events  sink.Sink
	logger  *slog.Logger
}

// watch cancels the crawl on the first signal, which stops it at the next
// table boundary, and exits the process on the second. It returns once done
// is closed.
func (w signalWatcher) watch(done <-chan struct{}) {
	select {
	case <-done:
		return
	case sig := <-w.signals:
		current := w.state()
		w.logger.Info("interrupt received", "signal", sig.String(), "state", current.String())
		if !current.Terminal() {
			w.events.OnLog("Interrupção solicitada. A coleta para ao fim da tabela atual (Ctrl+C de novo para sair imediatamente).", model.LevelWarning)
		}
		w.stop()
	}

	select {
	case <-done:
	case <-w.signals:
		w.logger.Warn("second interrupt, exiting immediately", "state", w.state().String())
		exit(exitInterrupted)
	}
}

// finishRun closes the run history entry.
func (r *crawlRun) finishRun(ctx context.Context, summary crawler.Summary) {
	if r.db == nil || r.runID == "" {
		return
	}
	finished := summary.FinishedAt
	if finished.IsZero() {
		finished = time.Now()
	}
	err := r.db.FinishRun(context.WithoutCancel(ctx), r.runID, finished,
		runStatus(summary.State), summary.Records, summary.Tables)
	if err != nil {
		r.logger.Error("failed to record run", "run_id", r.runID, "error", err)
	}
}

func (r *crawlRun) writeReport(summary crawler.Summary, runErr error) error {
	s := r.tally.Report()
	s.RunID = r.runID
	s.StartedAt = summary.StartedAt
	s.FinishedAt = summary.FinishedAt
	s.Tables = summary.Tables
	s.State = runStatus(summary.State)
	if s.StartedAt.IsZero() {
		s.StartedAt = r.started
	}

	switch summary.State {
	case crawler.StateStopped:
		s.StopReason = "interrupted by user"
	case crawler.StateFailed:
		if runErr != nil {
			s.StopReason = runErr.Error()
		}
	default:
	}

	return withOutput(r.cfg.ReportFile, r.out, func(w io.Writer) error {
		rw, err := report.NewWriter(r.cfg.ReportFormat, w, buildVersion())
		if err != nil {
			return err
		}
		if _, err := rw.Write(s); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
		return nil
	})
}

// closeStorage releases the databases. Sinks are closed by execute.
func (r *crawlRun) closeStorage() {
	var errs []error
	if r.pg != nil {
		errs = append(errs, r.pg.Close())
	}
	if r.db != nil {
		errs = append(errs, r.db.Close())
	}
	if err := errors.Join(errs...); err != nil {
		r.logger.Warn("failed to close storage", "error", err)
	}
}

// runStatus maps an engine state to the stored run status.
func runStatus(state crawler.State) string {
	switch state {
	case crawler.StateDone:
		return database.RunStatusDone
	case crawler.StateStopped:
		return database.RunStatusStopped
	case crawler.StateFailed:
		return database.RunStatusFailed
	default:
		return database.RunStatusRunning
	}
}
