package testrunner

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/mattn/go-zglob"
	"github.com/pkg/errors"
	"golang.org/x/exp/slices"

	"github.com/armadaproject/loadgate/internal/common/gateerrors"
)

// DefaultIncludePattern selects every test plan below the test files directory.
const DefaultIncludePattern = "**/*.jmx"

// TestFile is a discovered test plan.
type TestFile struct {
	// Path relative to the test files directory, with forward slashes.
	Name string
	// Absolute path.
	Path string
}

// Discover returns the files below dir that match at least one include pattern and no exclude
// pattern, in lexical order of their relative path. Patterns are matched against the relative
// path and may use ** to match any number of directories.
func Discover(dir string, includes, excludes []string) ([]TestFile, error) {
	if len(includes) == 0 {
		includes = []string{DefaultIncludePattern}
	}
	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, gateerrors.NewExecutionError("discover tests", err, "unable to resolve %s", dir)
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, gateerrors.NewExecutionError("discover tests", err, "unable to read test files directory %s", dir)
	}
	if !info.IsDir() {
		return nil, gateerrors.NewExecutionError("discover tests", nil, "%s is not a directory", dir)
	}

	var files []TestFile
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		included, err := matchesAny(includes, rel)
		if err != nil || !included {
			return err
		}
		excluded, err := matchesAny(excludes, rel)
		if err != nil || excluded {
			return err
		}
		files = append(files, TestFile{Name: rel, Path: path})
		return nil
	})
	if err != nil {
		return nil, gateerrors.NewExecutionError("discover tests", err, "unable to scan %s", dir)
	}
	slices.SortFunc(files, func(a, b TestFile) bool { return a.Name < b.Name })
	return files, nil
}

func matchesAny(patterns []string, name string) (bool, error) {
	for _, pattern := range patterns {
		pattern = filepath.ToSlash(pattern)
		ok, err := zglob.Match(pattern, name)
		if err != nil {
			return false, errors.WithMessagef(err, "invalid pattern %q", pattern)
		}
		// A leading **/ also matches files directly in the root.
		if !ok && strings.HasPrefix(pattern, "**/") {
			ok, err = zglob.Match(strings.TrimPrefix(pattern, "**/"), name)
			if err != nil {
				return false, errors.WithMessagef(err, "invalid pattern %q", pattern)
			}
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}
