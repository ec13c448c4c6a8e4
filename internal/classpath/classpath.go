// Package classpath assembles the engine's classpath and installs its plugins.
package classpath

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/armadaproject/loadgate/internal/common/fileutil"
	"github.com/armadaproject/loadgate/internal/common/gatecontext"
	"github.com/armadaproject/loadgate/internal/common/gateerrors"
)

// Result is the outcome of Assemble.
type Result struct {
	// Canonical path of every artifact, in input order.
	Entries []string
	// Paths of the plugins copied into lib/ext.
	Plugins []string
}

// String joins the entries with the platform's list separator.
func (r *Result) String() string {
	return strings.Join(r.Entries, string(os.PathListSeparator))
}

// Assemble copies every plugin artifact into extDir and builds the classpath from the
// canonical path of every artifact. Any copy or path resolution failure aborts.
func Assemble(ctx *gatecontext.Context, artifacts []Artifact, extDir, pluginPrefix string) (*Result, error) {
	result := &Result{}
	for _, a := range artifacts {
		if a.IsPlugin(pluginPrefix) {
			target := filepath.Join(extDir, filepath.Base(a.File))
			if err := fileutil.CopyFile(a.File, target); err != nil {
				return nil, gateerrors.NewExecutionError("assemble classpath", err, "unable to copy %s to %s", a.ID, extDir)
			}
			ctx.Log.Debugf("Copied plugin %s to %s", a.ID, target)
			result.Plugins = append(result.Plugins, target)
		}
		canonical, err := fileutil.CanonicalPath(a.File)
		if err != nil {
			return nil, gateerrors.NewExecutionError("assemble classpath", err, "Unable to get the canonical path for %s", a.File)
		}
		result.Entries = append(result.Entries, canonical)
	}
	ctx.Log.Infof("Classpath has %d entries, %d plugins installed", len(result.Entries), len(result.Plugins))
	return result, nil
}
