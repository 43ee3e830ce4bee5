package ferry

import (
	"context"
	"os"
	"path/filepath"
)

// Sync pushes every non-ignored file below localRoot to remoteRoot.
//
// It is a one-way push: nothing is deleted on the remote and nothing is
// compared. Files are pushed one at a time, each with its own session and
// without retry. A failed file is logged and recorded and the sync moves on.
func (c *Client) Sync(ctx context.Context, name, localRoot, remoteRoot string, opts SyncOptions) (*Result, error) {
	matcher, err := c.ignoreMatcher(opts.IgnoreFile)
	if err != nil {
		return nil, err
	}

	jobs, err := c.syncJobs(localRoot, remoteRoot, matcher)
	if err != nil {
		return nil, err
	}

	id := newOperationID()

	if opts.DryRun {
		files := make([]string, len(jobs))
		for i, job := range jobs {
			files[i] = job.RelPath
		}
		return &Result{OperationID: id, DryRun: true, Files: files, Total: len(files)}, nil
	}

	logger := c.logger.With("operation", id, "profile", name)
	logger.Info("sync started", "files", len(jobs))

	t := newTally(id, len(jobs), opts.Progress)
	c.pushSequential(ctx, name, jobs, t)

	result := t.snapshot()
	logger.Info("sync finished", "uploaded", result.Succeeded, "failed", result.Failed)
	return result, nil
}

// pushSequential uploads jobs in order, recording every outcome. Once ctx is
// done the remaining jobs are recorded as failed without being attempted.
func (c *Client) pushSequential(ctx context.Context, name string, jobs []Job, t *tally) {
	for _, job := range jobs {
		if err := ctx.Err(); err != nil {
			t.record(ItemResult{Job: job, Err: err})
			continue
		}

		err := c.push(ctx, name, job)
		if err != nil {
			c.logger.Warn("sync failed", "profile", name, "file", job.RelPath, "error", err)
		}
		t.record(ItemResult{Job: job, Attempts: 1, Err: err})
	}
}

func (c *Client) syncJobs(localRoot, remoteRoot string, matcher *IgnoreMatcher) ([]Job, error) {
	if _, err := os.Stat(localRoot); err != nil {
		if os.IsNotExist(err) {
			return nil, &PathError{Op: "sync", Path: localRoot, Err: ErrNotFound}
		}
		return nil, &PathError{Op: "sync", Path: localRoot, Err: err}
	}

	files, err := ListLocalFiles(localRoot, matcher)
	if err != nil {
		return nil, &PathError{Op: "sync", Path: localRoot, Err: err}
	}
	jobs, err := uploadJobs(localRoot, remoteRoot, files)
	if err != nil {
		return nil, &PathError{Op: "sync", Path: localRoot, Err: err}
	}
	return jobs, nil
}

// ignoreMatcher builds the sync matcher: the built-in patterns, then the
// project ignore file if it exists, otherwise .gitignore. Both are looked up
// in the client's working directory unless name is absolute.
func (c *Client) ignoreMatcher(name string) (*IgnoreMatcher, error) {
	m, err := NewIgnoreMatcher(DefaultIgnorePatterns...)
	if err != nil {
		return nil, err
	}

	if name == "" {
		name = c.settings.ignoreFile
	}

	for _, candidate := range []string{name, ".gitignore"} {
		if candidate == "" {
			continue
		}
		p := candidate
		if !filepath.IsAbs(p) {
			p = filepath.Join(c.workDir, p)
		}

		info, err := os.Stat(p)
		if err != nil || info.IsDir() {
			continue
		}
		if err := m.AddFile(p); err != nil {
			return nil, err
		}
		c.logger.Debug("loaded ignore file", "path", p)
		break
	}

	return m, nil
}
