package normalize

import (
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/nao1215/fipecrawler/internal/model"
)

// Detail payload fields.
const (
	fieldTable      = "CodigoTabelaReferencia"
	fieldRefMonth   = "MesReferencia"
	fieldType       = "CodigoTipoVeiculo"
	fieldFipeCode   = "CodigoFipe"
	fieldBrand      = "Marca"
	fieldModel      = "Modelo"
	fieldModelYear  = "AnoModelo"
	fieldFuelCode   = "CodigoTipoCombustivel"
	fieldFuelAbbrev = "SiglaCombustivel"
	fieldPrice      = "Valor"
	fieldError      = "erro"
)

// IsEmpty reports whether a detail payload carries no vehicle: no body,
// JSON null, an empty object, or an API error object.
func IsEmpty(payload []byte) bool {
	if len(strings.TrimSpace(string(payload))) == 0 {
		return true
	}
	root := gjson.ParseBytes(payload)
	if !root.IsObject() {
		return true
	}
	if root.Get(fieldError).Exists() {
		return true
	}
	empty := true
	root.ForEach(func(_, _ gjson.Result) bool {
		empty = false
		return false
	})
	return empty
}

// Normalize maps a vehicle detail payload to a record for leaf.
// It returns false when the payload is empty.
func (n *Normalizer) Normalize(payload []byte, leaf model.Leaf) (*model.VehicleRecord, bool) {
	if IsEmpty(payload) {
		return nil, false
	}
	root := gjson.ParseBytes(payload)
	leafYear, leafFuel, _ := leaf.SplitYear()

	refMonth, refYear := n.ParseReferenceMonth(root.Get(fieldRefMonth).String())
	if refMonth == "" {
		refMonth = leaf.Table.MonthNumber
	}
	if refYear == "" {
		refYear = leaf.Table.Year
	}

	vehicleType := UnknownType
	if r := root.Get(fieldType); r.Exists() {
		vehicleType = n.VehicleTypeLabel(int(r.Int()))
	} else if leaf.Type.Label != "" {
		vehicleType = leaf.Type.Label
	}

	fuelCode := firstNonEmpty(text(root, fieldFuelCode), leafFuel)

	rec := &model.VehicleRecord{
		Key:        leaf.Key(),
		TableID:    firstNonEmpty(text(root, fieldTable), tableID(leaf)),
		RefYear:    orNA(refYear),
		RefMonth:   orNA(refMonth),
		Type:       vehicleType,
		FipeCode:   orNA(text(root, fieldFipeCode)),
		Brand:      orNA(firstNonEmpty(text(root, fieldBrand), leaf.Brand.Label)),
		Model:      orNA(firstNonEmpty(text(root, fieldModel), leaf.Model.Label)),
		ModelYear:  orNA(firstNonEmpty(text(root, fieldModelYear), leafYear)),
		FuelCode:   orNA(fuelCode),
		FuelAbbrev: orNA(text(root, fieldFuelAbbrev)),
		FuelName:   n.FuelName(fuelCode),
		Price:      ParsePrice(root.Get(fieldPrice).String()),
		QueriedAt:  n.now(),
	}
	return rec, true
}

// text returns a field as trimmed text; numbers keep their JSON form.
func text(root gjson.Result, path string) string {
	r := root.Get(path)
	if !r.Exists() || r.Type == gjson.Null {
		return ""
	}
	return strings.TrimSpace(r.String())
}

func tableID(leaf model.Leaf) string {
	if leaf.Table.ID == 0 {
		return NotAvailable
	}
	return strconv.Itoa(leaf.Table.ID)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func orNA(s string) string {
	if s == "" {
		return NotAvailable
	}
	return s
}
