package classpath

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/mattn/go-zglob"
	"github.com/pkg/errors"
	"golang.org/x/exp/slices"

	"github.com/armadaproject/loadgate/internal/common/fileutil"
	"github.com/armadaproject/loadgate/internal/common/gateerrors"
)

const (
	// DefaultPluginPrefix marks the artifacts that are engine components and must be placed in lib/ext.
	DefaultPluginPrefix = "ApacheJMeter_"
	// ConfigArtifactID is the artifact holding the default properties files.
	ConfigArtifactID = "ApacheJMeter_config"
)

// Artifact is a resolved library, as supplied by the build.
type Artifact struct {
	ID   string `json:"id"`
	File string `json:"file"`
}

// IsPlugin reports whether a is an engine component that has to be copied into lib/ext.
func (a Artifact) IsPlugin(prefix string) bool {
	return strings.HasPrefix(a.ID, prefix)
}

// LoadManifest reads a JSON or YAML list of artifacts. Relative file paths are resolved
// against the directory of the manifest.
func LoadManifest(path string) ([]Artifact, error) {
	var artifacts []Artifact
	if err := fileutil.BindJsonOrYaml(path, &artifacts); err != nil {
		return nil, err
	}
	base := filepath.Dir(path)
	for i, a := range artifacts {
		if a.ID == "" || a.File == "" {
			return nil, errors.WithStack(&gateerrors.ErrInvalidArgument{
				Name:    "artifacts",
				Value:   a,
				Message: "every artifact needs an id and a file",
			})
		}
		if !filepath.IsAbs(a.File) {
			artifacts[i].File = filepath.Join(base, a.File)
		}
	}
	return artifacts, nil
}

var versionSuffix = regexp.MustCompile(`-\d.*$`)

// IDFromFileName derives an artifact id from a jar name by dropping the extension and version,
// e.g., ApacheJMeter_core-5.5.jar becomes ApacheJMeter_core.
func IDFromFileName(name string) string {
	id := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	return versionSuffix.ReplaceAllString(id, "")
}

// ScanDirs returns an artifact for every jar found below the given directories.
// Artifacts are ordered by directory, then by path.
func ScanDirs(dirs ...string) ([]Artifact, error) {
	var artifacts []Artifact
	for _, dir := range dirs {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			continue
		}
		matches, err := zglob.Glob(filepath.Join(dir, "**", "*.jar"))
		if err != nil {
			return nil, errors.WithMessagef(err, "scanning %s for jars", dir)
		}
		slices.Sort(matches)
		for _, m := range matches {
			artifacts = append(artifacts, Artifact{ID: IDFromFileName(m), File: m})
		}
	}
	return artifacts, nil
}

// Find returns the artifact with the given id.
func Find(artifacts []Artifact, id string) (Artifact, error) {
	for _, a := range artifacts {
		if a.ID == id {
			return a, nil
		}
	}
	return Artifact{}, errors.WithStack(&gateerrors.ErrNotFound{
		Type:    "artifact",
		Value:   id,
		Message: "Unable to find artifact '" + id + "'!",
	})
}
