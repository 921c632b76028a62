// Package fipe talks to the FIPE vehicle price API.
//
// Client sends form-encoded POST requests through a shared token bucket and
// absorbs ordinary failures: transport errors and non-2xx answers are retried
// on a fixed schedule, 429 answers are retried after honoring Retry-After
// without spending the retry budget. When a request cannot be completed the
// caller gets a *TransportError wrapping ErrNoResult and is expected to skip
// that branch. Only an unknown endpoint, a configuration error, is fatal.
//
// API layers the hierarchy calls on top of Client:
//
//	tables, _ := api.Tables(ctx)
//	brands, _ := api.Brands(ctx, tables[0], carType)
//	models, _ := api.Models(ctx, tables[0], carType, brands[0])
//	years, _ := api.Years(ctx, tables[0], carType, brands[0], models[0])
//	detail, _ := api.Vehicle(ctx, leaf)
package fipe
