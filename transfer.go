package ferry

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
)

// Test checks that the named profile can connect. See SessionFactory.Test.
func (c *Client) Test(ctx context.Context, name string) TestResult {
	return c.sessions.Test(ctx, name)
}

// Upload transfers a local file to remote using a session opened for this
// call only.
//
// With opts.DryRun nothing is opened on the network; the result lists the
// file, or every file below localPath when it is a directory and
// opts.Recursive is set. A recursive upload of a directory is delegated to
// UploadDir.
func (c *Client) Upload(ctx context.Context, name, localPath, remotePath string, opts UploadOptions) (*Result, error) {
	info, err := os.Stat(localPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &PathError{Op: "upload", Path: localPath, Err: ErrNotFound}
		}
		return nil, &PathError{Op: "upload", Path: localPath, Err: err}
	}

	recursive := opts.Recursive && info.IsDir()

	if opts.DryRun {
		return c.planUpload(localPath, recursive)
	}

	if recursive {
		return c.UploadDir(ctx, name, localPath, remotePath, opts.Progress)
	}

	job := Job{
		LocalPath:  localPath,
		RemotePath: remotePath,
		RelPath:    filepath.Base(localPath),
		Direction:  Upload,
	}
	if err := c.push(ctx, name, job); err != nil {
		return nil, err
	}

	return &Result{
		OperationID: newOperationID(),
		Message:     fmt.Sprintf("Uploaded: %s", filepath.Base(localPath)),
		Total:       1,
		Succeeded:   1,
	}, nil
}

// planUpload lists what an upload would transfer without touching the
// network.
func (c *Client) planUpload(localPath string, recursive bool) (*Result, error) {
	files := []string{localPath}
	if recursive {
		var err error
		files, err = ListLocalFiles(localPath, nil)
		if err != nil {
			return nil, &PathError{Op: "upload", Path: localPath, Err: err}
		}
	}

	return &Result{
		OperationID: newOperationID(),
		DryRun:      true,
		Files:       files,
		Total:       len(files),
	}, nil
}

// push runs the acquire, ensure-dir, put, release sequence for one file.
func (c *Client) push(ctx context.Context, name string, job Job) error {
	return c.sessions.withSession(ctx, name, func(s Session) error {
		dir := path.Dir(job.RemotePath)
		if err := s.EnsureDir(ctx, dir); err != nil {
			return transferError("mkdir", dir, err)
		}
		if err := s.Put(ctx, job.LocalPath, job.RemotePath); err != nil {
			return transferError("put", job.RemotePath, err)
		}
		return nil
	})
}

// Download transfers remotePath to localPath using a session opened for this
// call only. Missing local parent directories are created. A recursive
// download is delegated to DownloadDir.
func (c *Client) Download(ctx context.Context, name, remotePath, localPath string, opts DownloadOptions) (*Result, error) {
	if opts.Recursive {
		return c.DownloadDir(ctx, name, remotePath, localPath, opts.Progress)
	}

	if _, err := c.store.Get(name); err != nil {
		return nil, err
	}

	dir := filepath.Dir(localPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, &PathError{Op: "download", Path: dir, Err: err}
	}

	err := c.sessions.withSession(ctx, name, func(s Session) error {
		if err := s.Get(ctx, remotePath, localPath); err != nil {
			return transferError("get", remotePath, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &Result{
		OperationID: newOperationID(),
		Message:     fmt.Sprintf("Downloaded: %s", filepath.Base(localPath)),
		Total:       1,
		Succeeded:   1,
	}, nil
}
