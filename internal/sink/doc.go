// Package sink delivers crawl events to observers.
//
// The crawl engine reports every record, progress change, current vehicle
// and user-facing log line through the Sink interface. Implementations
// print to the console or to slog, append to CSV and XLSX files, store
// records in SQLite or PostgreSQL, and collect the run summary. Multi fans
// events out to several sinks and Async moves delivery off the engine
// goroutine.
package sink
