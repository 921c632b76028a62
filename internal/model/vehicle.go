package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// VehicleRecord is the normalized output row for one leaf.
// It is created only from a successful, non-empty detail response and is
// immutable once handed to a sink.
type VehicleRecord struct {
	// Key is the dedup key of the leaf that produced this record.
	Key VehicleKey `json:"key"`

	TableID    string          `json:"tabela_id"`
	RefYear    string          `json:"anoref"`
	RefMonth   string          `json:"mesref"`
	Type       string          `json:"tipo"`
	FipeCode   string          `json:"fipe_cod"`
	Brand      string          `json:"marca"`
	Model      string          `json:"modelo"`
	ModelYear  string          `json:"anomod"`
	FuelCode   string          `json:"comb_cod"`
	FuelAbbrev string          `json:"comb_sigla"`
	FuelName   string          `json:"comb"`
	Price      decimal.Decimal `json:"valor"`
	QueriedAt  time.Time       `json:"consulta"`
}

// RecordColumns is the column order used by every tabular export.
// It matches the spreadsheet layout users already have.
var RecordColumns = []string{
	"tabela_id", "anoref", "mesref", "tipo", "fipe_cod",
	"marca", "modelo", "anomod", "comb_cod", "comb_sigla",
	"comb", "valor", "consulta",
}

// Row returns the record as strings in RecordColumns order.
func (r VehicleRecord) Row() []string {
	return []string{
		r.TableID,
		r.RefYear,
		r.RefMonth,
		r.Type,
		r.FipeCode,
		r.Brand,
		r.Model,
		r.ModelYear,
		r.FuelCode,
		r.FuelAbbrev,
		r.FuelName,
		r.Price.StringFixed(2),
		r.QueriedAt.Format(time.RFC3339),
	}
}
