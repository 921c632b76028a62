// Package log builds the slog loggers used by fipecrawler.
//
// Records pass through a RedactingHandler before they reach the text or JSON
// handler. It masks proxy credentials embedded in URLs, cookie and
// authorization headers and database passwords, so verbose logs of a crawl
// can be shared without leaking them.
//
//	logger := log.NewLogger(os.Stderr, verbose)
//	slog.SetDefault(logger)
//
// FromLevel converts a crawl log level (info, warning, error, success) into
// the matching slog level; success is logged as info with outcome=success.
package log
