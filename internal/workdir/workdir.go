// Package workdir lays out the directory tree the engine runs in.
package workdir

import (
	"os"
	"path/filepath"

	"github.com/armadaproject/loadgate/internal/common/gateerrors"
)

// Tree is the working tree of one orchestration. All paths are absolute.
type Tree struct {
	Root string
	// Engine log files and captured process output.
	Logs string
	// Merged properties files. This is the engine's base directory.
	Bin string
	// Plugin jars loaded by the engine at startup.
	LibExt string
	// Reserved for JUnit samplers.
	LibJunit string
	// Result artifacts and summaries.
	Report string
}

// Dirs returns every directory of the tree, root first.
func (t *Tree) Dirs() []string {
	return []string{t.Root, t.Logs, t.Bin, t.LibExt, t.LibJunit, t.Report}
}

// Layout computes the tree under root without touching the filesystem.
func Layout(root string) (*Tree, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, gateerrors.NewExecutionError("prepare working tree", err, "unable to resolve %s", root)
	}
	return &Tree{
		Root:     abs,
		Logs:     filepath.Join(abs, "logs"),
		Bin:      filepath.Join(abs, "bin"),
		LibExt:   filepath.Join(abs, "lib", "ext"),
		LibJunit: filepath.Join(abs, "lib", "junit"),
		Report:   filepath.Join(abs, "report"),
	}, nil
}

// Prepare creates the tree under root. Directories that already exist are left as they are,
// so preparing the same root twice is safe. Nothing is ever removed.
func Prepare(root string) (*Tree, error) {
	tree, err := Layout(root)
	if err != nil {
		return nil, err
	}
	for _, dir := range tree.Dirs() {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, gateerrors.NewExecutionError("prepare working tree", err, "unable to create %s", dir)
		}
	}
	return tree, nil
}
