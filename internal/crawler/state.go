package crawler

import "time"

// State is the position of the engine in the traversal.
type State int32

const (
	// StateIdle is the state before Run.
	StateIdle State = iota
	// StateEnumeratingTables lists the reference tables.
	StateEnumeratingTables
	// StateEnumeratingBrands lists brands of a table and vehicle type.
	StateEnumeratingBrands
	// StateEnumeratingModels lists models of a brand.
	StateEnumeratingModels
	// StateEnumeratingYears lists model-years of a model.
	StateEnumeratingYears
	// StateFetchingDetail requests the detail of a leaf.
	StateFetchingDetail
	// StateDone means every table was walked.
	StateDone
	// StateStopped means the run was cancelled at a table boundary.
	StateStopped
	// StateFailed means a configuration error aborted the run.
	StateFailed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateEnumeratingTables:
		return "enumerating_tables"
	case StateEnumeratingBrands:
		return "enumerating_brands"
	case StateEnumeratingModels:
		return "enumerating_models"
	case StateEnumeratingYears:
		return "enumerating_years"
	case StateFetchingDetail:
		return "fetching_detail"
	case StateDone:
		return "done"
	case StateStopped:
		return "stopped"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether the run has ended.
func (s State) Terminal() bool {
	return s == StateDone || s == StateStopped || s == StateFailed
}

// Summary is the outcome of one Run.
type Summary struct {
	// State is StateDone, StateStopped or StateFailed.
	State State

	// Records is the number of records emitted in this run.
	Records int

	// Tables is the number of tables walked to the end.
	Tables int

	// TotalTables is the number of tables listed.
	TotalTables int

	// NoResult counts leaves whose detail request gave nothing.
	NoResult int

	// Skipped counts leaves given up on permanently in this run.
	Skipped int

	StartedAt  time.Time
	FinishedAt time.Time
}

// Elapsed returns the duration of the run.
func (s Summary) Elapsed() time.Duration {
	return s.FinishedAt.Sub(s.StartedAt)
}
