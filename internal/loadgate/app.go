// Package loadgate runs a directory of test plans through the engine and turns the results into a pass/fail verdict.
package loadgate

import (
	"crypto/rand"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"k8s.io/utils/clock"
	"k8s.io/utils/exec"

	"github.com/armadaproject/loadgate/internal/common/build"
	"github.com/armadaproject/loadgate/internal/common/gatecontext"
	"github.com/armadaproject/loadgate/internal/loadgate/configuration"
)

type App struct {
	// Parameters passed to the CLI by the user.
	Params *Params
	// Out is used to write the output. Defaults to standard out,
	// but can be overridden in tests to make assertions on the applications's output.
	Out io.Writer
	// Source of randomness. Tests can use a mocked random source in order to provide
	// deterministic testing behavior.
	Random io.Reader
	// Starts engine processes.
	Exec exec.Interface
	// Drives the grace period after every engine exit.
	Clock clock.Clock
}

// Params struct holds all user-customizable parameters.
// Using a single struct for all CLI commands ensures that all flags are distinct
// and that they can be provided either dynamically on a command line, or
// statically in a config file that's reused between command runs.
type Params struct {
	Config configuration.LoadgateConfig
}

// New instantiates an App with default parameters, including standard output
// and cryptographically secure random source.
func New() *App {
	return &App{
		Params: &Params{},
		Out:    os.Stdout,
		Random: rand.Reader,
		Exec:   exec.New(),
		Clock:  clock.RealClock{},
	}
}

// Version prints build information (e.g., current git commit) to the app output.
func (a *App) Version() error {
	w := tabwriter.NewWriter(a.Out, 1, 1, 1, ' ', 0)
	defer w.Flush()
	fmt.Fprintf(w, "Version:\t%s\n", build.ReleaseVersion)
	fmt.Fprintf(w, "Commit:\t%s\n", build.GitCommit)
	fmt.Fprintf(w, "Go version:\t%s\n", build.GoVersion)
	fmt.Fprintf(w, "Built:\t%s\n", build.BuildTime)
	return nil
}

func (a *App) newRunID() (string, error) {
	id, err := uuid.NewRandomFromReader(a.Random)
	if err != nil {
		return "", errors.WithStack(err)
	}
	return id.String(), nil
}

func (a *App) now() time.Time {
	return a.Clock.Now()
}

// withRunID adds the run id to every log line of the orchestration.
func withRunID(ctx *gatecontext.Context, runID string) *gatecontext.Context {
	return gatecontext.WithLogField(ctx, "run_id", runID)
}
