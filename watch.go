package ferry

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"
)

const defaultDebounce = 500 * time.Millisecond

// Watch runs an initial Sync and then keeps pushing files below localRoot
// as they are created or written, until ctx is cancelled.
//
// Events are coalesced: a batch is pushed once no new event has arrived for
// the debounce window. Pushes are sequential and not retried, and files
// matching the sync ignore rules are never pushed. Removals and renames are
// not propagated. Watch returns nil when ctx is cancelled.
func (c *Client) Watch(ctx context.Context, name, localRoot, remoteRoot string, opts WatchOptions) error {
	if opts.DryRun {
		return fmt.Errorf("watch: dry run is not supported: %w", ErrValidation)
	}

	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = c.settings.debounce
	}

	matcher, err := c.ignoreMatcher(opts.IgnoreFile)
	if err != nil {
		return err
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	defer w.Close()

	tw := &treeWatcher{watcher: w, root: localRoot, matcher: matcher}
	if err := tw.addTree(localRoot); err != nil {
		return &PathError{Op: "watch", Path: localRoot, Err: err}
	}

	result, err := c.Sync(ctx, name, localRoot, remoteRoot, opts.SyncOptions)
	if err != nil {
		return err
	}

	logger := c.logger.With("profile", name, "local", localRoot)
	logger.Info("watching for changes", "synced", result.Succeeded, "failed", result.Failed)

	pending := make(map[string]struct{})
	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil

		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			for _, p := range tw.handle(event) {
				pending[p] = struct{}{}
			}
			if len(pending) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(debounce)
			} else {
				timer.Reset(debounce)
			}
			fire = timer.C

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch error", "error", err)

		case <-fire:
			fire = nil
			files := make([]string, 0, len(pending))
			for p := range pending {
				files = append(files, p)
			}
			clear(pending)
			sort.Strings(files)

			c.pushChanged(ctx, name, localRoot, remoteRoot, files, opts.Progress)
		}
	}
}

// pushChanged uploads files that still exist as regular files.
func (c *Client) pushChanged(ctx context.Context, name, localRoot, remoteRoot string, files []string, progress ProgressFunc) {
	existing := files[:0]
	for _, f := range files {
		if info, err := os.Stat(f); err == nil && !info.IsDir() {
			existing = append(existing, f)
		}
	}
	if len(existing) == 0 {
		return
	}

	jobs, err := uploadJobs(localRoot, remoteRoot, existing)
	if err != nil {
		c.logger.Warn("watch mapping failed", "error", err)
		return
	}

	id := newOperationID()
	t := newTally(id, len(jobs), progress)
	c.pushSequential(ctx, name, jobs, t)

	result := t.snapshot()
	c.logger.Info("pushed changes", "operation", id, "profile", name,
		"uploaded", result.Succeeded, "failed", result.Failed)
}

// treeWatcher keeps an fsnotify watch on every non-ignored directory of a
// local tree.
type treeWatcher struct {
	watcher *fsnotify.Watcher
	root    string
	matcher *IgnoreMatcher
}

// addTree watches dir and every non-ignored directory below it.
func (tw *treeWatcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		rel, err := RelPath(tw.root, p)
		if err != nil {
			return err
		}
		if rel != "" && tw.matcher.IgnoresDir(rel) {
			return filepath.SkipDir
		}
		return tw.watcher.Add(p)
	})
}

// handle returns the files an event makes eligible for upload. A newly
// created directory is watched and its current files are returned, since
// they may have been written before the watch was in place.
func (tw *treeWatcher) handle(event fsnotify.Event) []string {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return nil
	}

	rel, err := RelPath(tw.root, event.Name)
	if err != nil || rel == "" {
		return nil
	}

	info, err := os.Stat(event.Name)
	if err != nil {
		return nil
	}

	if !info.IsDir() {
		if tw.matcher.Ignores(rel) {
			return nil
		}
		return []string{event.Name}
	}

	if !event.Has(fsnotify.Create) || tw.matcher.IgnoresDir(rel) {
		return nil
	}
	if err := tw.addTree(event.Name); err != nil {
		return nil
	}

	files, err := ListLocalFiles(event.Name, FuncSelector(func(sub string) bool {
		return !tw.matcher.Ignores(rel + "/" + sub)
	}))
	if err != nil {
		return nil
	}
	return files
}
