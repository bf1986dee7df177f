// Package ingest defines ingestion run results and the pipeline error taxonomy.
package ingest

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// RunKind distinguishes polling from indexing invocations.
type RunKind string

// RunKind values.
const (
	RunKindPoll  RunKind = "poll"
	RunKindIndex RunKind = "index"
)

// Run identifies one polling or indexing invocation. It exists only for the
// duration of the call; its counters become the returned result. Recording
// is safe for concurrent use, so parallel embed batches can share one run.
type Run struct {
	id        string
	kind      RunKind
	startedAt time.Time

	mu        sync.Mutex
	processed int
	skipped   int
	errors    []string
}

// NewRun starts a run of the given kind.
func NewRun(kind RunKind) *Run {
	return &Run{
		id:        uuid.NewString(),
		kind:      kind,
		startedAt: time.Now().UTC(),
	}
}

// ID returns the run identifier used for log correlation.
func (r *Run) ID() string { return r.id }

// Kind returns the run kind.
func (r *Run) Kind() RunKind { return r.kind }

// StartedAt returns the run start time.
func (r *Run) StartedAt() time.Time { return r.startedAt }

// Duration returns the elapsed time since the run started.
func (r *Run) Duration() time.Duration { return time.Since(r.startedAt) }

// RecordProcessed counts one successfully processed item.
func (r *Run) RecordProcessed() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.processed++
}

// RecordProcessedN counts n successfully processed items.
func (r *Run) RecordProcessedN(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.processed += n
}

// RecordSkipped counts one skipped item.
func (r *Run) RecordSkipped() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.skipped++
}

// RecordSkippedN counts n skipped items.
func (r *Run) RecordSkippedN(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.skipped += n
}

// RecordError counts one item-scoped failure description.
func (r *Run) RecordError(desc string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors = append(r.errors, desc)
}

// Processed returns the processed item count.
func (r *Run) Processed() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.processed
}

// Skipped returns the skipped item count.
func (r *Run) Skipped() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.skipped
}

// Errors returns the recorded item-scoped failure descriptions.
func (r *Run) Errors() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.errors == nil {
		return []string{}
	}
	out := make([]string, len(r.errors))
	copy(out, r.errors)
	return out
}

// PollResult is the terminal result of one polling run.
type PollResult struct {
	Processed int      `json:"processed_count"`
	Skipped   int      `json:"skipped_count"`
	Errors    []string `json:"errors"`
}

// PollResultFromRun builds the terminal polling result.
func PollResultFromRun(r *Run) PollResult {
	return PollResult{
		Processed: r.Processed(),
		Skipped:   r.Skipped(),
		Errors:    r.Errors(),
	}
}

// IndexResult is the terminal result of one indexing run.
type IndexResult struct {
	Success   bool     `json:"success"`
	Processed int      `json:"processed_count"`
	Skipped   int      `json:"skipped_count"`
	Errors    []string `json:"errors"`
}

// IndexResultFromRun builds the terminal indexing result.
func IndexResultFromRun(r *Run, success bool) IndexResult {
	return IndexResult{
		Success:   success,
		Processed: r.Processed(),
		Skipped:   r.Skipped(),
		Errors:    r.Errors(),
	}
}
