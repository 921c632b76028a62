// Package main provides the entry point for the fipecrawler CLI.
//
// fipecrawler walks the FIPE reference price tables (table, brand, model,
// model-year) and stores one record per vehicle. Runs are resumable: an
// interrupted crawl continues from its checkpoint.
//
// Usage:
//
//	fipecrawler init
//	fipecrawler crawl --csv fipe.csv
//	fipecrawler export --xlsx fipe.xlsx --table 308
//
// See --help for all available options.
package main

func main() {
	Execute()
}
