// Package crawler walks the FIPE hierarchy and emits vehicle records.
//
// The Engine enumerates reference tables, then for each configured vehicle
// type the brands, models and model-years, and fetches the detail record of
// every leaf that passes the fuel filter and is not already in the
// checkpoint. Traversal order is the order returned by the API at each
// level, so a resumed run emits the remaining records in the same relative
// order as a cold run.
//
// # Cancellation
//
// The context passed to Run is checked once per table. Requests are issued
// with a context detached from its cancellation, so the table being walked
// always completes and the checkpoint stays consistent with the emitted
// records.
//
// # Failures
//
// A failed listing skips its branch and a leaf without detail is counted
// in the checkpoint; after the configured number of empty answers the leaf
// is skipped permanently. Only configuration errors abort a run.
package crawler
