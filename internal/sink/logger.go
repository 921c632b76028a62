package sink

import (
	"context"
	"log/slog"

	"github.com/nao1215/fipecrawler/internal/log"
	"github.com/nao1215/fipecrawler/internal/model"
)

// Logger forwards crawl events to a slog.Logger. It replaces the console
// when the output is read by another program.
type Logger struct {
	logger *slog.Logger
}

var _ Sink = (*Logger)(nil)

// NewLogger creates a sink writing to logger.
func NewLogger(logger *slog.Logger) *Logger {
	return &Logger{logger: logger}
}

// OnRecord implements Sink.
func (l *Logger) OnRecord(record model.VehicleRecord) {
	l.logger.Debug("record",
		"key", record.Key,
		"brand", record.Brand,
		"model", record.Model,
		"price", record.Price.StringFixed(2),
	)
}

// OnProgress implements Sink.
func (l *Logger) OnProgress(stage model.Stage, current, total int) {
	l.logger.Debug("progress", "stage", string(stage), "current", current, "total", total)
}

// OnCurrentVehicle implements Sink.
func (l *Logger) OnCurrentVehicle(brand, modelName, year string) {
	l.logger.Debug("vehicle", "brand", brand, "model", modelName, "year", year)
}

// OnLog implements Sink.
func (l *Logger) OnLog(message string, level model.LogLevel) {
	log.Log(context.Background(), l.logger, message, level)
}
