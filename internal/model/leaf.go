package model

import (
	"strconv"
	"strings"
)

// VehicleKey identifies a leaf for deduplication and checkpointing.
// It is built as "<tableId>-<type>-<brand>-<model>-<year>".
type VehicleKey string

// Leaf is the most specific traversal node: the combination for which a
// detail record is fetched.
type Leaf struct {
	Table ReferenceTable
	Type  VehicleType
	Brand Ref
	Model Ref
	Year  Ref
}

// Key returns the dedup key of the leaf. The field order is fixed.
func (l Leaf) Key() VehicleKey {
	var b strings.Builder
	b.WriteString(strconv.Itoa(l.Table.ID))
	b.WriteByte('-')
	b.WriteString(strconv.Itoa(l.Type.ID))
	b.WriteByte('-')
	b.WriteString(l.Brand.Value)
	b.WriteByte('-')
	b.WriteString(l.Model.Value)
	b.WriteByte('-')
	b.WriteString(l.Year.Value)
	return VehicleKey(b.String())
}

// SplitYear splits the model-year value "<year>-<fuelCode>" into its parts.
// ok is false unless the value has exactly two non-empty parts.
func (l Leaf) SplitYear() (modelYear, fuelCode string, ok bool) {
	return SplitYearValue(l.Year.Value)
}

// SplitYearValue splits a raw model-year value such as "2020-1".
func SplitYearValue(value string) (modelYear, fuelCode string, ok bool) {
	parts := strings.Split(value, "-")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}
