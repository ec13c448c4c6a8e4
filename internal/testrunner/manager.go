// Package testrunner discovers test plans, runs them through the engine and collects their results.
package testrunner

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sanity-io/litter"
	"github.com/sirupsen/logrus"
	"k8s.io/utils/clock"
	"k8s.io/utils/exec"

	"github.com/armadaproject/loadgate/internal/common/fileutil"
	"github.com/armadaproject/loadgate/internal/common/gatecontext"
	"github.com/armadaproject/loadgate/internal/common/gateerrors"
	"github.com/armadaproject/loadgate/internal/engine"
)

// Config controls which test plans are run and how.
type Config struct {
	TestFilesDir string
	Includes     []string
	Excludes     []string
	// Capture engine output in files only instead of also streaming it to the log.
	SuppressOutput bool
	Remote         RemoteConfig
	Probe          ProbeConfig
	// Time to wait after each engine exit before its results are collected.
	ExitCheckPause time.Duration
	// Maximum number of engines running at once. Values below 1 mean 1.
	Parallelism int
}

// Launcher prepares engine processes.
type Launcher interface {
	Command(args []string, stdout, stderr io.Writer) exec.Cmd
}

// Manager runs every target of an orchestration.
type Manager struct {
	config   Config
	template *engine.ArgumentModel
	launcher Launcher
	logsDir  string
	clock    clock.Clock
	prober   Prober
	// Called once per run after it has been collected, or has failed.
	onRunFinished func(*Run)
}

func NewManager(config Config, template *engine.ArgumentModel, launcher Launcher, logsDir string, clk clock.Clock) *Manager {
	if config.Parallelism < 1 {
		config.Parallelism = 1
	}
	return &Manager{
		config:   config,
		template: template,
		launcher: launcher,
		logsDir:  logsDir,
		clock:    clk,
		prober:   NewTCPProber(config.Probe),
	}
}

// WithProber replaces the prober used to check remote agents.
func (m *Manager) WithProber(p Prober) *Manager {
	m.prober = p
	return m
}

// OnRunFinished registers a callback invoked after every run, successful or not.
func (m *Manager) OnRunFinished(f func(*Run)) *Manager {
	m.onRunFinished = f
	return m
}

// Execute discovers the test plans, runs one engine per target and returns the runs in dispatch
// order. Any run that fails to start, exits with a non-zero code or leaves no result artifact
// aborts the execution: runs that have not been dispatched yet are skipped and an execution
// error is returned. Engines already running are waited for.
func (m *Manager) Execute(ctx *gatecontext.Context) ([]*Run, error) {
	files, err := Discover(m.config.TestFilesDir, m.config.Includes, m.config.Excludes)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		ctx.Log.Warnf("No test files found in %s", m.config.TestFilesDir)
		return nil, nil
	}
	targets := BuildTargets(files, m.config.Remote)
	ctx.Log.Infof("Running %d test plan(s) as %d target(s)", len(files), len(targets))

	if m.config.Probe.Enabled && m.config.Remote.Enabled() {
		if err := probeAgents(ctx, m.prober, m.config.Remote.UniqueHosts()); err != nil {
			return nil, err
		}
	}

	invocations := make([]engine.Invocation, len(targets))
	for i, target := range targets {
		invocations[i] = target.Invocation(m.template)
	}
	if err := checkDistinctArtifacts(targets, invocations); err != nil {
		return nil, err
	}

	runs := make([]*Run, 0, len(targets))
	skipped := map[int]bool{}
	var mu sync.Mutex
	g, gctx := gatecontext.ErrGroup(ctx)
	g.SetLimit(m.config.Parallelism)
	for i, target := range targets {
		target := target
		if gctx.Err() != nil {
			break
		}
		inv := invocations[i]
		run := newRun(i, target, inv, m.outputFile(inv))
		mu.Lock()
		runs = append(runs, run)
		mu.Unlock()
		// Go blocks until a slot frees up, by which time an earlier run may have failed.
		g.Go(func() error {
			if gctx.Err() != nil {
				mu.Lock()
				skipped[run.Seq] = true
				mu.Unlock()
				return nil
			}
			err := m.execute(gatecontext.WithLogFields(gctx, logrus.Fields{"target": target.Name(), "kind": target.Kind()}), run)
			if m.onRunFinished != nil {
				mu.Lock()
				m.onRunFinished(run)
				mu.Unlock()
			}
			return err
		})
	}
	err = g.Wait()
	dispatched := runs[:0]
	for _, run := range runs {
		if !skipped[run.Seq] {
			dispatched = append(dispatched, run)
		}
	}
	return dispatched, err
}

// checkDistinctArtifacts fails when two targets would write the same result or log file.
func checkDistinctArtifacts(targets []Target, invocations []engine.Invocation) error {
	owners := map[string]string{}
	for i, inv := range invocations {
		for _, path := range []string{inv.ResultFile, inv.LogFile} {
			if owner, ok := owners[path]; ok {
				return errors.WithStack(&gateerrors.ErrInvalidArgument{
					Name:    "test files",
					Value:   targets[i].Name(),
					Message: fmt.Sprintf("%s and %s would both write %s", owner, targets[i].Name(), path),
				})
			}
			owners[path] = targets[i].Name()
		}
	}
	return nil
}

func (m *Manager) execute(ctx *gatecontext.Context, run *Run) error {
	ctx.Log.Infof("Executing test: %s", run.Invocation.TestFile)
	ctx.Log.Debugf("Engine invocation: %s", litter.Sdump(run.Invocation))

	out, err := os.Create(run.OutputFile)
	if err != nil {
		return gateerrors.NewExecutionError("run test", err, "unable to create output file %s", run.OutputFile)
	}
	defer fileutil.CloseResource(run.OutputFile, out)

	stdout, stderr := io.Writer(out), io.Writer(out)
	if !m.config.SuppressOutput {
		infoWriter := ctx.Log.WriterLevel(logrus.InfoLevel)
		defer fileutil.CloseResource("engine stdout", infoWriter)
		warnWriter := ctx.Log.WriterLevel(logrus.WarnLevel)
		defer fileutil.CloseResource("engine stderr", warnWriter)
		stdout = io.MultiWriter(out, infoWriter)
		stderr = io.MultiWriter(out, warnWriter)
	}

	cmd := m.launcher.Command(run.Invocation.Args, stdout, stderr)
	run.Started = m.clock.Now()
	if err := cmd.Start(); err != nil {
		return gateerrors.NewExecutionError("run test", err, "unable to start engine for %s", run.Target.Name())
	}
	run.advance(Running)

	waitErr := cmd.Wait()
	run.Exited = m.clock.Now()
	code, exited := engine.ExitCode(waitErr)
	run.ExitCode = code
	run.advance(ExitedRaw)

	<-m.clock.After(m.config.ExitCheckPause)
	run.Finished = m.clock.Now()
	run.advance(GracePeriodElapsed)

	if !exited {
		return gateerrors.NewExecutionError("run test", waitErr, "engine for %s did not exit cleanly", run.Target.Name())
	}
	if code != 0 {
		return gateerrors.NewExecutionError("run test", nil, "engine for %s exited with code %d, see %s", run.Target.Name(), code, run.OutputFile)
	}
	if _, err := os.Stat(run.Invocation.ResultFile); err != nil {
		return gateerrors.NewExecutionError("run test", err, "engine for %s produced no result file", run.Target.Name())
	}
	run.advance(Collected)
	ctx.Log.Infof("Completed test: %s in %s", run.Invocation.TestFile, run.Duration())
	return nil
}

func (m *Manager) outputFile(inv engine.Invocation) string {
	base := strings.TrimSuffix(filepath.Base(inv.ResultFile), filepath.Ext(inv.ResultFile))
	return filepath.Join(m.logsDir, base+".out")
}
