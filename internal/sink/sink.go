package sink

import (
	"errors"
	"io"

	"github.com/nao1215/fipecrawler/internal/model"
)

// Sink receives crawl events. Implementations must not block for long:
// wrap slow sinks with Async.
type Sink interface {
	// OnRecord is called once per normalized vehicle record.
	OnRecord(record model.VehicleRecord)

	// OnProgress reports the counter of one stage.
	OnProgress(stage model.Stage, current, total int)

	// OnCurrentVehicle names the vehicle whose record was just emitted.
	OnCurrentVehicle(brand, model, year string)

	// OnLog delivers a user-facing message.
	OnLog(message string, level model.LogLevel)
}

// Close closes s if it holds resources.
func Close(s Sink) error {
	if c, ok := s.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Discard ignores every event.
type Discard struct{}

var _ Sink = Discard{}

// OnRecord implements Sink.
func (Discard) OnRecord(model.VehicleRecord) {}

// OnProgress implements Sink.
func (Discard) OnProgress(model.Stage, int, int) {}

// OnCurrentVehicle implements Sink.
func (Discard) OnCurrentVehicle(string, string, string) {}

// OnLog implements Sink.
func (Discard) OnLog(string, model.LogLevel) {}

// Multi delivers every event to each sink in order.
type Multi []Sink

var _ Sink = Multi(nil)

// NewMulti returns a Multi of the non-nil sinks.
func NewMulti(sinks ...Sink) Multi {
	m := make(Multi, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			m = append(m, s)
		}
	}
	return m
}

// OnRecord implements Sink.
func (m Multi) OnRecord(record model.VehicleRecord) {
	for _, s := range m {
		s.OnRecord(record)
	}
}

// OnProgress implements Sink.
func (m Multi) OnProgress(stage model.Stage, current, total int) {
	for _, s := range m {
		s.OnProgress(stage, current, total)
	}
}

// OnCurrentVehicle implements Sink.
func (m Multi) OnCurrentVehicle(brand, modelName, year string) {
	for _, s := range m {
		s.OnCurrentVehicle(brand, modelName, year)
	}
}

// OnLog implements Sink.
func (m Multi) OnLog(message string, level model.LogLevel) {
	for _, s := range m {
		s.OnLog(message, level)
	}
}

// Close closes every sink and joins their errors.
func (m Multi) Close() error {
	var errs []error
	for _, s := range m {
		if err := Close(s); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
