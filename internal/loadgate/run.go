package loadgate

import (
	"path/filepath"
	"time"

	"github.com/pkg/errors"

	"github.com/armadaproject/loadgate/internal/classpath"
	"github.com/armadaproject/loadgate/internal/common/fileutil"
	"github.com/armadaproject/loadgate/internal/common/gatecontext"
	"github.com/armadaproject/loadgate/internal/common/gateerrors"
	"github.com/armadaproject/loadgate/internal/engine"
	"github.com/armadaproject/loadgate/internal/history"
	"github.com/armadaproject/loadgate/internal/metrics"
	"github.com/armadaproject/loadgate/internal/properties"
	"github.com/armadaproject/loadgate/internal/report"
	"github.com/armadaproject/loadgate/internal/scanner"
	"github.com/armadaproject/loadgate/internal/testrunner"
	"github.com/armadaproject/loadgate/internal/workdir"
)

const banner = "P E R F O R M A N C E    T E S T S"

// orchestration is the state shared by the steps of a single Run.
type orchestration struct {
	runID    string
	started  time.Time
	tree     *workdir.Tree
	recorder *metrics.Recorder
	runs     []*testrunner.Run
	results  *scanner.Aggregate
}

// Run stages the working tree, runs every test plan and scans the results. It returns nil if the
// build passes, an ErrTestFailures if the results contain errors or failures that are not ignored,
// and an ErrExecution if the tests could not be run.
func (a *App) Run(ctx *gatecontext.Context) error {
	runID, err := a.newRunID()
	if err != nil {
		return err
	}
	ctx = withRunID(ctx, runID)
	o := &orchestration{
		runID:    runID,
		started:  a.now(),
		recorder: metrics.NewRecorder(runID),
	}

	ctx.Log.Info(" ")
	ctx.Log.Info("-------------------------------------------------------")
	ctx.Log.Info(" " + banner)
	ctx.Log.Info("-------------------------------------------------------")

	err = a.execute(ctx, o)
	if err == nil {
		err = a.verdict(ctx, o)
	}
	a.publish(ctx, o, err)
	return err
}

func (a *App) execute(ctx *gatecontext.Context, o *orchestration) error {
	config := a.Params.Config

	tree, err := workdir.Prepare(config.Root)
	if err != nil {
		return err
	}
	o.tree = tree

	artifacts, err := a.artifacts()
	if err != nil {
		return err
	}
	configArtifact, err := classpath.Find(artifacts, config.Engine.ConfigArtifact)
	if err != nil {
		return gateerrors.NewExecutionError("configure properties", err, "no default properties")
	}
	source, err := properties.NewDefaultSource(configArtifact.File)
	if err != nil {
		return gateerrors.NewExecutionError("configure properties", err, "no default properties")
	}
	handler := properties.NewHandler(source, tree.Bin, config.Properties.Mode, config.TestFilesDir)
	if err := handler.Configure(ctx, config.Properties.ToOverrides()); err != nil {
		return err
	}

	raw, found := handler.Lookup(properties.JMeter, testrunner.ExitCheckPauseProperty)
	pause := testrunner.ResolveExitCheckPause(ctx, raw, found, config.Engine.ExitCheckPauseMargin)
	ctx.Log.Debugf("Waiting %s after every engine exit", pause)

	cp, err := classpath.Assemble(ctx, artifacts, tree.LibExt, config.Engine.PluginPrefix)
	if err != nil {
		return err
	}

	template := engine.NewArgumentModel(engine.ArgumentOptions{
		Home:             tree.Root,
		ResultsDir:       tree.Report,
		LogsDir:          tree.Logs,
		TimestampResults: config.TimestampResults,
		Timestamp:        o.started,
		Proxy: engine.Proxy{
			Host:          config.Proxy.Host,
			Port:          config.Proxy.Port,
			Username:      config.Proxy.Username,
			Password:      config.Proxy.Password,
			NonProxyHosts: config.Proxy.NonProxyHosts,
		},
		GlobalPropertiesFile: handler.GlobalPropertiesFile(),
	})
	ctx.Log.Info(template.ProxyDetails())

	launcher := engine.NewLauncher(a.Exec, engine.LauncherConfig{
		Executable: config.Engine.Executable,
		Java:       config.Engine.Java,
		JvmArgs:    config.Engine.JvmArgs,
		Classpath:  cp.String(),
		BaseDir:    tree.Bin,
	})

	manager := testrunner.NewManager(a.runnerConfig(pause), template, launcher, tree.Logs, a.Clock).
		OnRunFinished(func(r *testrunner.Run) {
			o.recorder.RecordRun(r.Target.Kind(), r.State == testrunner.Collected, r.Duration())
		})
	runs, err := manager.Execute(ctx)
	o.runs = runs
	if err != nil {
		return err
	}

	results, err := scanner.New(config.IgnoreErrors, config.IgnoreFailures).Scan(testrunner.ArtifactPaths(runs))
	if err != nil {
		return err
	}
	o.results = results
	return nil
}

func (a *App) runnerConfig(pause time.Duration) testrunner.Config {
	config := a.Params.Config
	return testrunner.Config{
		TestFilesDir:   config.TestFilesDir,
		Includes:       config.Include,
		Excludes:       config.Exclude,
		SuppressOutput: config.SuppressOutput,
		Remote: testrunner.RemoteConfig{
			Hosts:            config.Remote.Hosts,
			StartAll:         config.Remote.StartAll,
			Stop:             config.Remote.Stop,
			StartAndStopOnce: config.Remote.StartAndStopOnce,
		},
		Probe: testrunner.ProbeConfig{
			Enabled:  config.Remote.Probe.Enabled,
			Port:     config.Remote.Probe.Port,
			Attempts: config.Remote.Probe.Attempts,
			Delay:    config.Remote.Probe.Delay,
		},
		ExitCheckPause: pause,
		Parallelism:    config.Parallelism,
	}
}

func (a *App) artifacts() ([]classpath.Artifact, error) {
	config := a.Params.Config.Artifacts
	if config.Manifest != "" {
		return classpath.LoadManifest(config.Manifest)
	}
	artifacts, err := classpath.ScanDirs(config.LibDirs...)
	if err != nil {
		return nil, gateerrors.NewExecutionError("resolve artifacts", err, "unable to scan %v", config.LibDirs)
	}
	return artifacts, nil
}

func (a *App) verdict(ctx *gatecontext.Context, o *orchestration) error {
	config := a.Params.Config
	results := o.results
	ctx.Log.Infof("Tests Run: %d, Failures: %d, Errors: %d", results.TestsRun(), results.TotalFailures, results.TotalErrors)
	for i, r := range results.Results {
		o.recorder.RecordResult(o.runs[i].Target.Name(), r.Errors, r.Failures)
	}
	o.recorder.RecordVerdict(results.TotalErrors, results.TotalFailures, results.AnyFailed)
	if !results.AnyFailed {
		return nil
	}
	return errors.WithStack(&gateerrors.ErrTestFailures{
		Errors:          results.TotalErrors,
		Failures:        results.TotalFailures,
		ErrorsCounted:   !config.IgnoreErrors,
		FailuresCounted: !config.IgnoreFailures,
	})
}

// publish writes the optional reports of the orchestration. None of them can change the verdict.
func (a *App) publish(ctx *gatecontext.Context, o *orchestration, verdict error) {
	config := a.Params.Config
	finished := a.now()

	if o.tree != nil && o.results != nil {
		path, err := report.WriteJUnit(o.tree.Report, a.summary(o, finished))
		if err != nil {
			ctx.Log.WithError(err).Warn("Unable to write the JUnit summary")
		} else {
			ctx.Log.Infof("JUnit summary written to %s", path)
		}
	}

	if verdict != nil && !gateerrors.IsTestFailure(verdict) {
		o.recorder.RecordVerdict(0, 0, true)
	}
	if config.Metrics.Textfile != "" {
		if err := o.recorder.WriteTextfile(config.Metrics.Textfile); err != nil {
			ctx.Log.WithError(err).Warnf("Unable to write metrics to %s", config.Metrics.Textfile)
		}
	}
	if config.Metrics.Pushgateway != "" {
		if err := o.recorder.Push(config.Metrics.Pushgateway); err != nil {
			ctx.Log.WithError(err).Warn("Unable to push metrics")
		}
	}

	if config.History.Database != "" {
		if err := a.record(ctx, o, finished, verdict); err != nil {
			ctx.Log.WithError(err).Warnf("Unable to record the run in %s", config.History.Database)
		}
	}
}

func (a *App) summary(o *orchestration, finished time.Time) report.Summary {
	config := a.Params.Config
	cases := make([]report.Case, len(o.results.Results))
	for i, r := range o.results.Results {
		run := o.runs[i]
		cases[i] = report.Case{
			Name:     run.Target.Name(),
			Kind:     run.Target.Kind(),
			Duration: run.Duration(),
			Result:   r,
		}
	}
	return report.Summary{
		RunID:          o.runID,
		Timestamp:      o.started,
		Duration:       finished.Sub(o.started),
		IgnoreErrors:   config.IgnoreErrors,
		IgnoreFailures: config.IgnoreFailures,
		Cases:          cases,
		TotalErrors:    o.results.TotalErrors,
		TotalFailures:  o.results.TotalFailures,
	}
}

func (a *App) record(ctx *gatecontext.Context, o *orchestration, finished time.Time, verdict error) error {
	store, err := history.Open(a.Params.Config.History.Database)
	if err != nil {
		return err
	}
	defer fileutil.CloseResource("history store", store)

	entry := history.Orchestration{
		RunID:    o.runID,
		Started:  o.started.UnixMilli(),
		Finished: finished.UnixMilli(),
		Tests:    len(o.runs),
		Failed:   verdict != nil,
	}
	if verdict != nil {
		entry.Message = verdict.Error()
	}
	if o.results != nil {
		entry.Errors = o.results.TotalErrors
		entry.Failures = o.results.TotalFailures
	}

	runs := make([]history.TestRun, len(o.runs))
	for i, r := range o.runs {
		runs[i] = history.TestRun{
			RunID:      o.runID,
			Seq:        r.Seq,
			Target:     r.Target.Name(),
			Kind:       r.Target.Kind(),
			Artifact:   relativeTo(o.tree.Root, r.Invocation.ResultFile),
			DurationMs: r.Duration().Milliseconds(),
		}
		if o.results != nil {
			result := o.results.Results[i]
			runs[i].Errors = result.Errors
			runs[i].Failures = result.Failures
			runs[i].Passed = result.Passed
		}
	}
	return store.Record(ctx, entry, runs)
}

func relativeTo(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return path
	}
	return rel
}
