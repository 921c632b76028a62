package model

import "fmt"

// ReferenceTable is a dated snapshot of the FIPE price table.
// Tables are listed once per run and never modified afterwards.
type ReferenceTable struct {
	// ID is the numeric table code (codigoTabelaReferencia).
	ID int `json:"id"`

	// Year is the four digit reference year, e.g. "2024".
	Year string `json:"year"`

	// MonthNumber is the two digit month, e.g. "01". Unknown months are "00".
	MonthNumber string `json:"month_number"`

	// MonthName is the display month, e.g. "Janeiro".
	MonthName string `json:"month_name"`
}

// String returns the table in "Janeiro/2024 (ID: 308)" form.
func (t ReferenceTable) String() string {
	return fmt.Sprintf("%s/%s (ID: %d)", t.MonthName, t.Year, t.ID)
}

// VehicleType is one of the fixed vehicle categories served by the API.
// The set of types comes from configuration; it is never discovered.
type VehicleType struct {
	// ID is the numeric type code (codigoTipoVeiculo): 1 car, 2 motorcycle, 3 truck.
	ID int `json:"id"`

	// Label is the name sent back to the API as tipoVeiculo, e.g. "carro".
	Label string `json:"label"`
}
