package report

import (
	"cmp"
	"slices"
	"time"
)

// Run states reported in a Summary.
const (
	StateDone    = "done"
	StateStopped = "stopped"
	StateFailed  = "failed"
)

// Count is a named tally, e.g. records per brand.
type Count struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Summary describes one crawl run.
type Summary struct {
	// RunID is empty when the run was not recorded in the database.
	RunID      string    `json:"run_id,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	State      string    `json:"state"`
	StopReason string    `json:"stop_reason,omitempty"`

	Records  int `json:"records"`
	Tables   int `json:"tables"`
	Warnings int `json:"warnings"`
	Errors   int `json:"errors"`

	ByTable []Count `json:"by_table"`
	ByBrand []Count `json:"by_brand"`
}

// Elapsed returns the wall time of the run.
func (s *Summary) Elapsed() time.Duration {
	if s.FinishedAt.IsZero() || s.FinishedAt.Before(s.StartedAt) {
		return 0
	}
	return s.FinishedAt.Sub(s.StartedAt)
}

// Complete reports whether the run visited every table.
func (s *Summary) Complete() bool {
	return s.State == StateDone
}

// Counts converts a tally map into a slice ordered by count, largest first.
// Ties are ordered by name.
func Counts(m map[string]int) []Count {
	out := make([]Count, 0, len(m))
	for name, n := range m {
		out = append(out, Count{Name: name, Count: n})
	}
	slices.SortFunc(out, func(a, b Count) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})
	return out
}

// top returns at most n counts and folds the rest into "others".
func top(counts []Count, n int) []Count {
	if len(counts) <= n {
		return counts
	}
	out := slices.Clone(counts[:n])
	rest := 0
	for _, c := range counts[n:] {
		rest += c.Count
	}
	return append(out, Count{Name: "others", Count: rest})
}
