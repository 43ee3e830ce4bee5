package ferry

import (
	"fmt"
	"sync"

	"github.com/hashicorp/go-multierror"
)

// Direction tells which way a job moves a file.
type Direction string

const (
	// Upload moves a local file to the remote.
	Upload Direction = "upload"
	// Download moves a remote file to the local filesystem.
	Download Direction = "download"
)

// Job is one file's local-to-remote mapping.
type Job struct {
	LocalPath  string
	RemotePath string
	// RelPath is the slash-separated path relative to the transfer root.
	RelPath   string
	Direction Direction
}

// ItemResult is the outcome of one job, delivered to a ProgressFunc.
type ItemResult struct {
	Job      Job
	Attempts int
	Err      error
}

// ProgressFunc receives each finished job in completion order. Calls are
// serialized; the function never runs concurrently with itself.
type ProgressFunc func(item ItemResult, done, total int)

// ItemError records the failure of one job.
type ItemError struct {
	Path string
	Err  error
}

// Error implements the error interface
func (e ItemError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

// Unwrap returns the underlying error
func (e ItemError) Unwrap() error {
	return e.Err
}

// Status classifies the outcome of an operation.
type Status string

const (
	StatusSuccess Status = "success"
	StatusPartial Status = "partial"
	StatusFailed  Status = "failed"
)

// Result is the outcome of a transfer operation. Single-file operations
// carry a Message and Total 1; batch operations carry per-item counts.
type Result struct {
	// OperationID identifies the operation in logs.
	OperationID string

	// Message is a human-readable summary for single-file operations.
	Message string

	// DryRun is set when nothing was transferred; Files then lists the
	// candidates.
	DryRun bool
	Files  []string

	Total     int
	Succeeded int
	Failed    int
	Errors    []ItemError
}

// Status reports full success, partial success or total failure.
// A batch with no items is a success.
func (r *Result) Status() Status {
	switch {
	case r.Failed == 0:
		return StatusSuccess
	case r.Succeeded == 0:
		return StatusFailed
	default:
		return StatusPartial
	}
}

// Success reports whether every item succeeded.
func (r *Result) Success() bool {
	return r.Status() == StatusSuccess
}

// Err aggregates the per-item errors, or returns nil when none failed.
func (r *Result) Err() error {
	if len(r.Errors) == 0 {
		return nil
	}
	var merr *multierror.Error
	for _, e := range r.Errors {
		merr = multierror.Append(merr, e)
	}
	return merr.ErrorOrNil()
}

// tally collects item results from concurrent workers.
type tally struct {
	mu       sync.Mutex
	result   *Result
	progress ProgressFunc
}

func newTally(id string, total int, progress ProgressFunc) *tally {
	return &tally{
		result:   &Result{OperationID: id, Total: total},
		progress: progress,
	}
}

// grow raises the expected total for walks that discover items as they go.
func (t *tally) grow(n int) {
	t.mu.Lock()
	t.result.Total += n
	t.mu.Unlock()
}

// record counts an item and forwards it to the progress callback.
func (t *tally) record(item ItemResult) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if item.Err != nil {
		t.result.Failed++
		path := item.Job.RelPath
		if path == "" {
			path = item.Job.LocalPath
		}
		t.result.Errors = append(t.result.Errors, ItemError{Path: path, Err: item.Err})
	} else {
		t.result.Succeeded++
	}

	if t.progress != nil {
		t.progress(item, t.result.Succeeded+t.result.Failed, t.result.Total)
	}
}

// snapshot returns the accumulated result.
func (t *tally) snapshot() *Result {
	t.mu.Lock()
	defer t.mu.Unlock()
	r := *t.result
	r.Errors = append([]ItemError(nil), t.result.Errors...)
	return &r
}
