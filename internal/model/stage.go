package model

// Stage names one progress counter reported to sinks.
// The values are the labels shown to users, so they stay in Portuguese.
type Stage string

const (
	// StageTables counts reference tables processed out of the filtered list.
	StageTables Stage = "tabelas"

	// StageBrands counts brands of the current table and vehicle type.
	StageBrands Stage = "marcas"

	// StageModels counts models of the current brand.
	StageModels Stage = "modelos"

	// StageYears counts model-years of the current model.
	StageYears Stage = "anos"

	// StageVehicles is the cumulative number of records emitted in the run.
	StageVehicles Stage = "veiculos"
)

// Stages lists every stage in hierarchy order.
var Stages = []Stage{StageTables, StageBrands, StageModels, StageYears, StageVehicles}

// LogLevel is the severity of a user-facing log line delivered to sinks.
type LogLevel int

const (
	// LevelInfo is routine progress information.
	LevelInfo LogLevel = iota

	// LevelWarning is a recoverable problem, e.g. a skipped branch.
	LevelWarning

	// LevelError is a failure the run continued past.
	LevelError

	// LevelSuccess marks a completed milestone.
	LevelSuccess
)

// String returns the lower-case level name.
func (l LogLevel) String() string {
	switch l {
	case LevelInfo:
		return "info"
	case LevelWarning:
		return "warning"
	case LevelError:
		return "error"
	case LevelSuccess:
		return "success"
	default:
		return "unknown"
	}
}
