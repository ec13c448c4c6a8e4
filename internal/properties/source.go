package properties

import (
	"archive/zip"
	"io"
	"os"
	"path"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/armadaproject/loadgate/internal/common/fileutil"
	"github.com/armadaproject/loadgate/internal/common/gateerrors"
)

// DefaultSource provides the default file of each category, as shipped with the engine.
type DefaultSource interface {
	// Read returns the raw content of the default file for c, or an ErrNotFound.
	Read(c Category) ([]byte, error)
}

// NewDefaultSource returns a DefaultSource for the engine config artifact at location, which is
// either a directory or a jar. In both cases files are looked up under bin/ first.
func NewDefaultSource(location string) (DefaultSource, error) {
	info, err := os.Stat(location)
	if err != nil {
		return nil, errors.WithStack(&gateerrors.ErrNotFound{
			Type:    "config artifact",
			Value:   location,
			Message: err.Error(),
		})
	}
	if info.IsDir() {
		return &dirSource{root: location}, nil
	}
	return &archiveSource{path: location}, nil
}

type dirSource struct {
	root string
}

func (s *dirSource) Read(c Category) ([]byte, error) {
	for _, candidate := range []string{
		filepath.Join(s.root, "bin", c.FileName()),
		filepath.Join(s.root, c.FileName()),
	} {
		data, err := os.ReadFile(candidate)
		if err == nil {
			return data, nil
		}
		if !os.IsNotExist(err) {
			return nil, errors.WithStack(err)
		}
	}
	return nil, notFound(c, s.root)
}

type archiveSource struct {
	path string
}

func (s *archiveSource) Read(c Category) ([]byte, error) {
	r, err := zip.OpenReader(s.path)
	if err != nil {
		return nil, errors.WithMessagef(err, "opening config artifact %s", s.path)
	}
	defer fileutil.CloseResource(s.path, r)

	for _, name := range []string{path.Join("bin", c.FileName()), c.FileName()} {
		for _, f := range r.File {
			if f.Name != name {
				continue
			}
			rc, err := f.Open()
			if err != nil {
				return nil, errors.WithStack(err)
			}
			data, err := io.ReadAll(rc)
			fileutil.CloseResource(f.Name, rc)
			if err != nil {
				return nil, errors.WithStack(err)
			}
			return data, nil
		}
	}
	return nil, notFound(c, s.path)
}

func notFound(c Category, location string) error {
	return errors.WithStack(&gateerrors.ErrNotFound{
		Type:    "properties file",
		Value:   c.FileName(),
		Message: "not found in " + location,
	})
}
