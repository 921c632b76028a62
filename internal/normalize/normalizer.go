package normalize

import (
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/nao1215/fipecrawler/internal/model"
)

// Sentinels used when the payload and the leaf both lack a value.
const (
	NotAvailable = "N/A"
	UnknownType  = "desconhecido"
	UnknownFuel  = "Desconhecido"
	UnknownMonth = "00"
)

// Normalizer holds the lookup tables needed to normalize payloads.
// It is safe for concurrent use once built.
type Normalizer struct {
	months       map[string]string
	vehicleTypes map[int]string
	fuelTypes    map[int]string
	now          func() time.Time
	fold         cases.Caser
	title        cases.Caser
}

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithClock sets the clock used for VehicleRecord.QueriedAt.
func WithClock(now func() time.Time) Option {
	return func(n *Normalizer) {
		n.now = now
	}
}

// WithVehicleTypes sets the vehicle type id to label table.
func WithVehicleTypes(types map[int]string) Option {
	return func(n *Normalizer) {
		n.vehicleTypes = types
	}
}

// WithFuelTypes sets the fuel code to name table.
func WithFuelTypes(fuels map[int]string) Option {
	return func(n *Normalizer) {
		n.fuelTypes = fuels
	}
}

// New creates a Normalizer. months maps Portuguese month names to two digit
// numbers; keys are matched without regard to case.
func New(months map[string]string, opts ...Option) *Normalizer {
	n := &Normalizer{
		months: make(map[string]string, len(months)),
		now:    time.Now,
		fold:   cases.Fold(),
		title:  cases.Title(language.BrazilianPortuguese),
	}
	for name, num := range months {
		n.months[n.fold.String(strings.TrimSpace(name))] = num
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// MonthNumber returns the two digit number of a month name, or "00".
func (n *Normalizer) MonthNumber(name string) string {
	if num, ok := n.months[n.fold.String(strings.TrimSpace(name))]; ok {
		return num
	}
	return UnknownMonth
}

// SplitMonthYear splits "<MonthName>/<YYYY>" into the month number and year.
// Unknown months become "00"; a value without "/" yields ("00", "").
func (n *Normalizer) SplitMonthYear(raw string) (monthNumber, year string) {
	name, y, ok := strings.Cut(raw, "/")
	if !ok {
		return UnknownMonth, ""
	}
	return n.MonthNumber(name), strings.TrimSpace(y)
}

// ParseReferenceMonth reads the detail form "janeiro de 2024".
// An empty value yields empty strings; an unknown month yields "00".
func (n *Normalizer) ParseReferenceMonth(raw string) (monthNumber, year string) {
	fields := strings.Fields(raw)
	if len(fields) == 0 {
		return "", ""
	}
	monthNumber = n.MonthNumber(fields[0])
	if len(fields) > 2 {
		year = fields[2]
	}
	return monthNumber, year
}

// Table builds a ReferenceTable from a listing entry such as
// {Codigo: 308, Mes: "janeiro/2024 "}. ok is false when the month label
// has no "/" or the year is not numeric.
func (n *Normalizer) Table(code int, mes string) (model.ReferenceTable, bool) {
	name, y, found := strings.Cut(mes, "/")
	if !found {
		return model.ReferenceTable{}, false
	}
	year := strings.TrimSpace(y)
	if _, err := strconv.Atoi(year); err != nil {
		return model.ReferenceTable{}, false
	}
	return model.ReferenceTable{
		ID:          code,
		Year:        year,
		MonthNumber: n.MonthNumber(name),
		MonthName:   n.title.String(strings.TrimSpace(name)),
	}, true
}

// VehicleTypeLabel returns the label of a vehicle type id, or "desconhecido".
func (n *Normalizer) VehicleTypeLabel(id int) string {
	if label, ok := n.vehicleTypes[id]; ok && label != "" {
		return label
	}
	return UnknownType
}

// FuelName returns the display name of a fuel code, or "Desconhecido".
func (n *Normalizer) FuelName(code string) string {
	id, err := strconv.Atoi(strings.TrimSpace(code))
	if err != nil {
		return UnknownFuel
	}
	if name, ok := n.fuelTypes[id]; ok && name != "" {
		return name
	}
	return UnknownFuel
}
