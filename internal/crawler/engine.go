package crawler

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/nao1215/fipecrawler/internal/checkpoint"
	"github.com/nao1215/fipecrawler/internal/fipe"
	"github.com/nao1215/fipecrawler/internal/model"
	"github.com/nao1215/fipecrawler/internal/normalize"
	"github.com/nao1215/fipecrawler/internal/sink"
)

// Engine defaults.
const (
	DefaultFuelFilter      = "1"
	DefaultMaxLeafFailures = 3
)

// API lists the FIPE hierarchy and fetches leaf details.
// *fipe.API implements it.
type API interface {
	Tables(ctx context.Context) ([]model.ReferenceTable, error)
	Brands(ctx context.Context, table model.ReferenceTable, vt model.VehicleType) ([]model.Ref, error)
	Models(ctx context.Context, table model.ReferenceTable, vt model.VehicleType, brand model.Ref) ([]model.Ref, error)
	Years(ctx context.Context, table model.ReferenceTable, vt model.VehicleType, brand, mdl model.Ref) ([]model.Ref, error)
	Vehicle(ctx context.Context, leaf model.Leaf) ([]byte, error)
}

var _ API = (*fipe.API)(nil)

// Engine runs one traversal at a time. It owns the checkpoint state.
type Engine struct {
	api        API
	normalizer *normalize.Normalizer
	store      checkpoint.Store
	sink       sink.Sink
	logger     *slog.Logger
	now        func() time.Time

	types           []model.VehicleType
	fuelFilter      string
	maxLeafFailures int

	state   atomic.Int32
	cp      *checkpoint.State
	summary Summary
}

// Option configures an Engine.
type Option func(*Engine)

// WithSink sets the event receiver. The default discards events.
func WithSink(s sink.Sink) Option {
	return func(e *Engine) {
		e.sink = s
	}
}

// WithLogger sets the logger for diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithVehicleTypes sets the vehicle types walked in every table, in order.
func WithVehicleTypes(types []model.VehicleType) Option {
	return func(e *Engine) {
		if len(types) > 0 {
			e.types = types
		}
	}
}

// WithFuelFilter sets the fuel code a leaf must have. An empty code
// accepts every fuel.
func WithFuelFilter(code string) Option {
	return func(e *Engine) {
		e.fuelFilter = code
	}
}

// WithMaxLeafFailures sets how many empty detail answers a leaf may get
// before it is skipped permanently. Zero never skips.
func WithMaxLeafFailures(n int) Option {
	return func(e *Engine) {
		e.maxLeafFailures = max(n, 0)
	}
}

// WithClock sets the time source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// NewEngine creates an engine that reads the hierarchy from api, maps
// details with normalizer and keeps progress in store.
func NewEngine(api API, normalizer *normalize.Normalizer, store checkpoint.Store, opts ...Option) *Engine {
	e := &Engine{
		api:             api,
		normalizer:      normalizer,
		store:           store,
		sink:            sink.Discard{},
		logger:          slog.Default(),
		now:             time.Now,
		types:           []model.VehicleType{{ID: 1, Label: "carro"}},
		fuelFilter:      DefaultFuelFilter,
		maxLeafFailures: DefaultMaxLeafFailures,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// State returns the current traversal state. It is safe to call from any
// goroutine.
func (e *Engine) State() State {
	return State(e.state.Load())
}

func (e *Engine) setState(s State) {
	e.state.Store(int32(s))
}

// Run walks every table and returns when all are done, when ctx is
// cancelled at a table boundary, or when a configuration error occurs.
// The error is non-nil only in the last case.
func (e *Engine) Run(ctx context.Context) (Summary, error) {
	// Requests outlive cancellation; ctx is only polled between tables.
	work := context.WithoutCancel(ctx)

	e.summary = Summary{StartedAt: e.now()}
	e.cp = e.store.Load(work)
	if n := e.cp.Processed(); n > 0 {
		e.log(model.LevelInfo, "Checkpoint carregado: %d veículos já processados", n)
	}

	e.setState(StateEnumeratingTables)
	tables, err := e.api.Tables(work)
	if err != nil {
		if fipe.IsFatal(err) {
			return e.fail(work, err)
		}
		e.log(model.LevelError, "Falha ao listar tabelas de referência: %v", err)
	}
	e.summary.TotalTables = len(tables)
	e.sink.OnProgress(model.StageTables, 0, len(tables))
	e.log(model.LevelInfo, "Iniciando coleta de dados para %d tabelas", len(tables))

	for i, table := range tables {
		if ctx.Err() != nil {
			e.log(model.LevelWarning, "Coleta interrompida pelo usuário!")
			return e.finish(work, StateStopped), nil
		}

		e.cp.SetCurrentTable(table.ID)
		e.save(work, true)
		e.log(model.LevelInfo, "Processando tabela %s", table)

		if err := e.walkTable(work, table); err != nil {
			return e.fail(work, err)
		}
		e.summary.Tables++
		e.sink.OnProgress(model.StageTables, i+1, len(tables))
	}

	e.log(model.LevelSuccess, "Coleta concluída! %d veículos coletados.", e.summary.Records)
	return e.finish(work, StateDone), nil
}

func (e *Engine) fail(ctx context.Context, err error) (Summary, error) {
	e.log(model.LevelError, "Erro: %v", err)
	return e.finish(ctx, StateFailed), err
}

func (e *Engine) finish(ctx context.Context, state State) Summary {
	e.save(ctx, true)
	e.setState(state)
	e.summary.State = state
	e.summary.FinishedAt = e.now()
	e.logger.Info("crawl finished",
		"state", state.String(),
		"records", e.summary.Records,
		"tables", e.summary.Tables,
		"elapsed", e.summary.Elapsed(),
	)
	return e.summary
}

// save persists the checkpoint. Failures are reported and retried by the
// store on the next save.
func (e *Engine) save(ctx context.Context, force bool) {
	if err := e.store.Save(ctx, e.cp, force); err != nil {
		e.logger.Warn("failed to save checkpoint", "error", err)
		e.log(model.LevelWarning, "Falha ao salvar checkpoint: %v", err)
	}
}

func (e *Engine) log(level model.LogLevel, format string, args ...any) {
	e.sink.OnLog(fmt.Sprintf(format, args...), level)
}
