package ferry

import (
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// ListLocalFiles returns every regular file below root, depth first in
// lexical order. Directories are traversed, not returned. When root is a
// file the result is just root.
//
// The selector, if non-nil, decides which files are kept and which
// directories are entered; paths handed to it are relative to root and
// slash separated. Symlinks to files are kept, symlinks to directories are
// not followed.
func ListLocalFiles(root string, selector FileSelector) ([]string, error) {
	if selector == nil {
		selector = All()
	}

	var files []string
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		rel, err := RelPath(root, p)
		if err != nil {
			return err
		}

		if d.IsDir() {
			if rel != "" && !selector.TraverseDescendants(rel) {
				return filepath.SkipDir
			}
			return nil
		}

		if d.Type()&fs.ModeSymlink != 0 {
			info, err := os.Stat(p)
			if err != nil || info.IsDir() {
				return nil
			}
		}

		if rel == "" || selector.Match(rel) {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return files, nil
}

// RelPath returns target relative to root with forward slashes. It returns
// "" when target is root itself.
func RelPath(root, target string) (string, error) {
	rel, err := filepath.Rel(root, target)
	if err != nil {
		return "", err
	}
	if rel == "." {
		return "", nil
	}
	return filepath.ToSlash(rel), nil
}

// MapRemote joins a slash-separated relative path onto a remote root.
// Local separators in rel are converted first.
func MapRemote(remoteRoot, rel string) string {
	rel = strings.ReplaceAll(rel, `\`, "/")
	return path.Join(remoteRoot, rel)
}

// MapLocal joins a slash-separated relative path onto a local root.
func MapLocal(localRoot, rel string) string {
	return filepath.Join(localRoot, filepath.FromSlash(rel))
}

// uploadJobs maps local files below localRoot onto remoteRoot.
func uploadJobs(localRoot, remoteRoot string, files []string) ([]Job, error) {
	jobs := make([]Job, 0, len(files))
	for _, f := range files {
		rel, err := RelPath(localRoot, f)
		if err != nil {
			return nil, err
		}
		if rel == "" {
			rel = filepath.Base(f)
		}
		jobs = append(jobs, Job{
			LocalPath:  f,
			RemotePath: MapRemote(remoteRoot, rel),
			RelPath:    rel,
			Direction:  Upload,
		})
	}
	return jobs, nil
}
