package sink

import (
	"fmt"
	"io"
	"sync"

	"github.com/fatih/color"

	"github.com/nao1215/fipecrawler/internal/model"
)

// vehicleEvery is how often the record counter is printed outside verbose mode.
const vehicleEvery = 100

// Console prints log lines and progress to a terminal.
type Console struct {
	mu      sync.Mutex
	out     io.Writer
	verbose bool
	colors  map[model.LogLevel]*color.Color
	stage   *color.Color
}

var _ Sink = (*Console)(nil)

// ConsoleOption configures a Console.
type ConsoleOption func(*Console)

// WithVerbose prints every progress change and the current vehicle.
func WithVerbose(verbose bool) ConsoleOption {
	return func(c *Console) {
		c.verbose = verbose
	}
}

// WithColor forces colored output on or off. By default color follows
// whether stdout is a terminal.
func WithColor(enabled bool) ConsoleOption {
	return func(c *Console) {
		for _, col := range c.colors {
			setColor(col, enabled)
		}
		setColor(c.stage, enabled)
	}
}

func setColor(c *color.Color, enabled bool) {
	if enabled {
		c.EnableColor()
		return
	}
	c.DisableColor()
}

// NewConsole creates a Console writing to out.
func NewConsole(out io.Writer, opts ...ConsoleOption) *Console {
	c := &Console{
		out: out,
		colors: map[model.LogLevel]*color.Color{
			model.LevelInfo:    color.New(color.Reset),
			model.LevelWarning: color.New(color.FgYellow),
			model.LevelError:   color.New(color.FgRed),
			model.LevelSuccess: color.New(color.FgGreen),
		},
		stage: color.New(color.FgCyan),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// OnRecord implements Sink.
func (c *Console) OnRecord(model.VehicleRecord) {}

// OnProgress implements Sink.
func (c *Console) OnProgress(stage model.Stage, current, total int) {
	if !c.showProgress(stage, current) {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	_, _ = fmt.Fprintf(c.out, "%s %d/%d\n", c.stage.Sprintf("[%s]", stage), current, total) //nolint:errcheck // best effort terminal output
}

// showProgress limits non-verbose output to table progress and every
// vehicleEvery records.
func (c *Console) showProgress(stage model.Stage, current int) bool {
	switch {
	case c.verbose, stage == model.StageTables:
		return true
	case stage == model.StageVehicles:
		return current > 0 && current%vehicleEvery == 0
	default:
		return false
	}
}

// OnCurrentVehicle implements Sink.
func (c *Console) OnCurrentVehicle(brand, modelName, year string) {
	if !c.verbose {
		return
	}
	c.OnLog(fmt.Sprintf("Processando veículo: %s %s (%s)", brand, modelName, year), model.LevelInfo)
}

// OnLog implements Sink.
func (c *Console) OnLog(message string, level model.LogLevel) {
	col, ok := c.colors[level]
	if !ok {
		col = c.colors[model.LevelInfo]
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	_, _ = col.Fprintln(c.out, message) //nolint:errcheck // best effort terminal output
}
