package ferry

import (
	"context"
	"os"

	"golang.org/x/sync/errgroup"
)

// UploadDir uploads every file below localRoot to the mirrored path below
// remoteRoot.
//
// Files are admitted in listing order to a worker pool capped at the
// configured concurrency. Each file gets its own freshly opened session and
// the whole connect, mkdir, put sequence is retried on any failure. A file
// that exhausts its retries is counted as failed and never stops its
// siblings, so Succeeded+Failed always equals Total. Only an unreadable
// local root fails the call itself.
func (c *Client) UploadDir(ctx context.Context, name, localRoot, remoteRoot string, progress ProgressFunc) (*Result, error) {
	if _, err := os.Stat(localRoot); err != nil {
		if os.IsNotExist(err) {
			return nil, &PathError{Op: "upload", Path: localRoot, Err: ErrNotFound}
		}
		return nil, &PathError{Op: "upload", Path: localRoot, Err: err}
	}

	files, err := ListLocalFiles(localRoot, nil)
	if err != nil {
		return nil, &PathError{Op: "upload", Path: localRoot, Err: err}
	}
	jobs, err := uploadJobs(localRoot, remoteRoot, files)
	if err != nil {
		return nil, &PathError{Op: "upload", Path: localRoot, Err: err}
	}

	id := newOperationID()
	logger := c.logger.With("operation", id, "profile", name)
	logger.Info("batch upload started", "files", len(jobs), "concurrency", c.settings.concurrency)

	t := newTally(id, len(jobs), progress)

	var g errgroup.Group
	g.SetLimit(c.settings.concurrency)

	for i, job := range jobs {
		if err := ctx.Err(); err != nil {
			for _, skipped := range jobs[i:] {
				t.record(ItemResult{Job: skipped, Err: err})
			}
			break
		}

		g.Go(func() error {
			attempts, err := Retry(ctx, c.settings.retry, "upload "+job.RelPath, func() error {
				return c.push(ctx, name, job)
			})
			if err != nil {
				logger.Warn("upload failed", "file", job.RelPath, "attempts", attempts, "error", err)
			}
			t.record(ItemResult{Job: job, Attempts: attempts, Err: err})
			return nil
		})
	}
	_ = g.Wait()

	result := t.snapshot()
	logger.Info("batch upload finished", "succeeded", result.Succeeded, "failed", result.Failed)
	return result, nil
}
