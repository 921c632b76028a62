// Package model defines the core data structures used throughout fipecrawler.
//
// This package contains the following main types:
//   - ReferenceTable: A dated snapshot of the FIPE price table
//   - Ref: A value/label pair returned by each hierarchy level (brand, model, year)
//   - Leaf and VehicleKey: The most specific traversal node and its dedup key
//   - VehicleRecord: The normalized output record emitted for each leaf
//   - Stage and LogLevel: Progress and log vocabulary shared with sinks
//
// Models live in their own package so that the crawler, the sinks and the
// storage layer can share them without import cycles.
package model
