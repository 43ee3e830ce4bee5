package ferry

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// DownloadDir mirrors the remote tree below remoteRoot into localRoot.
//
// Unlike UploadDir it opens one session for the whole walk and releases it
// once at the end. The walk is depth first and sequential. A file that fails
// to download is recorded and skipped without retry; failing to list a
// directory or to create a local directory aborts the walk, in which case
// the partial result is returned together with the error.
func (c *Client) DownloadDir(ctx context.Context, name, remoteRoot, localRoot string, progress ProgressFunc) (*Result, error) {
	id := newOperationID()
	logger := c.logger.With("operation", id, "profile", name)

	s, err := c.sessions.Connect(ctx, name)
	if err != nil {
		return nil, err
	}
	defer c.sessions.Release(s)

	logger.Info("recursive download started", "remote", remoteRoot, "local", localRoot)

	t := newTally(id, 0, progress)
	w := &remoteWalker{
		session: s,
		tally:   t,
		onError: func(job Job, err error) {
			logger.Warn("download failed", "file", job.RelPath, "error", err)
		},
	}
	err = w.walk(ctx, remoteRoot, localRoot, "")

	result := t.snapshot()
	logger.Info("recursive download finished", "downloaded", result.Succeeded, "failed", result.Failed)
	return result, err
}

type remoteWalker struct {
	session Session
	tally   *tally
	onError func(Job, error)
}

func (w *remoteWalker) walk(ctx context.Context, remoteDir, localDir, relDir string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := os.MkdirAll(localDir, 0755); err != nil {
		return &PathError{Op: "download", Path: localDir, Err: err}
	}

	entries, err := w.session.List(ctx, remoteDir)
	if err != nil {
		return &PathError{Op: "list", Path: remoteDir, Err: err}
	}

	for _, entry := range entries {
		if entry.Name == "." || entry.Name == ".." {
			continue
		}

		remotePath := path.Join(remoteDir, entry.Name)
		rel := path.Join(relDir, entry.Name)

		if !validEntryName(entry.Name) {
			job := Job{RemotePath: remotePath, RelPath: rel, Direction: Download}
			err := &PathError{Op: "list", Path: remotePath, Err: fmt.Errorf("%w: unsafe entry name %q", ErrTransfer, entry.Name)}
			w.tally.grow(1)
			w.onError(job, err)
			w.tally.record(ItemResult{Job: job, Err: err})
			continue
		}
		localPath := filepath.Join(localDir, entry.Name)

		if entry.IsDir {
			if err := w.walk(ctx, remotePath, localPath, rel); err != nil {
				return err
			}
			continue
		}

		job := Job{
			LocalPath:  localPath,
			RemotePath: remotePath,
			RelPath:    rel,
			Direction:  Download,
		}

		w.tally.grow(1)
		err := w.session.Get(ctx, remotePath, localPath)
		if err != nil {
			err = transferError("get", remotePath, err)
			w.onError(job, err)
		}
		w.tally.record(ItemResult{Job: job, Attempts: 1, Err: err})
	}

	return nil
}

// validEntryName reports whether a name from a remote listing is a single
// path element that stays below the local directory it is joined to.
func validEntryName(name string) bool {
	return name != "" && filepath.IsLocal(name) && !strings.ContainsAny(name, `/\`)
}
