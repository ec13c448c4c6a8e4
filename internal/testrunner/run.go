package testrunner

import (
	"fmt"
	"time"

	"github.com/armadaproject/loadgate/internal/engine"
)

// State is the lifecycle stage of a Run. A run only ever moves to the next state.
type State int

const (
	// Dispatched runs have been handed to the manager but their process has not started.
	Dispatched State = iota
	// Running runs have a live engine process.
	Running
	// ExitedRaw runs have a process that exited, but the engine may still be cleaning up.
	ExitedRaw
	// GracePeriodElapsed runs have waited out the exit check pause.
	GracePeriodElapsed
	// Collected runs have a result artifact on disk.
	Collected
)

func (s State) String() string {
	switch s {
	case Dispatched:
		return "Dispatched"
	case Running:
		return "Running"
	case ExitedRaw:
		return "ExitedRaw"
	case GracePeriodElapsed:
		return "GracePeriodElapsed"
	case Collected:
		return "Collected"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Run is a single engine invocation for one target.
type Run struct {
	// Position in dispatch order, starting at 0.
	Seq        int
	Target     Target
	Invocation engine.Invocation
	// File the engine's stdout and stderr are captured in.
	OutputFile string
	State      State
	ExitCode   int
	Started    time.Time
	Exited     time.Time
	Finished   time.Time
}

func newRun(seq int, target Target, invocation engine.Invocation, outputFile string) *Run {
	return &Run{
		Seq:        seq,
		Target:     target,
		Invocation: invocation,
		OutputFile: outputFile,
		State:      Dispatched,
		ExitCode:   -1,
	}
}

func (r *Run) advance(to State) {
	if to != r.State+1 {
		panic(fmt.Sprintf("invalid transition of run %d from %s to %s", r.Seq, r.State, to))
	}
	r.State = to
}

// Duration is the time between process start and the end of the grace period.
func (r *Run) Duration() time.Duration {
	if r.Started.IsZero() || r.Finished.IsZero() {
		return 0
	}
	return r.Finished.Sub(r.Started)
}

// ArtifactPaths returns the result artifact of every run, in dispatch order.
func ArtifactPaths(runs []*Run) []string {
	paths := make([]string, len(runs))
	for i, r := range runs {
		paths[i] = r.Invocation.ResultFile
	}
	return paths
}
