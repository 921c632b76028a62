// Package checkpoint records crawl progress so an interrupted run can resume.
//
// The State holds the keys of every leaf already emitted, the keys given up
// on after repeated empty answers, and the table being walked. A Store loads
// the state once when a run starts and persists it every N processed leaves
// and on explicit flushes. Loading never fails a run: a missing or unreadable
// checkpoint is logged and replaced by an empty state.
package checkpoint
