package loadgate

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/utils/clock"
	"k8s.io/utils/exec"

	"github.com/armadaproject/loadgate/internal/common/gatecontext"
	"github.com/armadaproject/loadgate/internal/common/gateerrors"
	"github.com/armadaproject/loadgate/internal/history"
	"github.com/armadaproject/loadgate/internal/loadgate/configuration"
	"github.com/armadaproject/loadgate/internal/properties"
	"github.com/armadaproject/loadgate/internal/report"
)

// fakeEngine copies the test plan to the result file, so the plan's content decides what the
// scanner finds. Plans containing EXIT_7 make it fail.
const fakeEngine = `#!/bin/sh
result=""
plan=""
while [ $# -gt 0 ]; do
  case "$1" in
    -l) result="$2"; shift ;;
    -t) plan="$2"; shift ;;
  esac
  shift
done
if grep -q EXIT_7 "$plan"; then exit 7; fi
cat "$plan" > "$result"
`

const (
	passingPlan = `<httpSample t="12" s="true" lb="home"/>` + "\n"
	failingPlan = `<httpSample t="12" s="false" lb="home"/>` + "\n"
	erroredPlan = "<assertionResult>\n  <error>true</error>\n</assertionResult>\n"
)

// fixedRandom yields the run id 00000000-0000-4000-8000-000000000000.
func fixedRandom() *bytes.Reader {
	return bytes.NewReader(make([]byte, 16))
}

type fixture struct {
	dir    string
	config configuration.LoadgateConfig
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires /bin/sh")
	}
	dir := t.TempDir()
	f := &fixture{dir: dir}

	libs := filepath.Join(dir, "libs")
	require.NoError(t, os.MkdirAll(libs, 0o755))
	writeJar(t, filepath.Join(libs, "ApacheJMeter_config-5.5.jar"), map[string]string{
		"bin/jmeter.properties":      "jmeter.exit.check.pause=0\nlanguage=en\n",
		"bin/saveservice.properties": "_version=5.5\n",
		"bin/upgrade.properties":     "",
		"bin/user.properties":        "",
		"bin/system.properties":      "",
	})
	writeJar(t, filepath.Join(libs, "ApacheJMeter_core-5.5.jar"), map[string]string{"org/apache/jmeter/NewDriver.class": ""})
	writeJar(t, filepath.Join(libs, "commons-io-2.11.0.jar"), map[string]string{"org/apache/commons/io/IOUtils.class": ""})

	engine := filepath.Join(dir, "fake-engine.sh")
	require.NoError(t, os.WriteFile(engine, []byte(fakeEngine), 0o755))

	tests := filepath.Join(dir, "tests")
	require.NoError(t, os.MkdirAll(tests, 0o755))

	f.config = configuration.LoadgateConfig{
		Root:           filepath.Join(dir, "work"),
		TestFilesDir:   tests,
		Include:        []string{"**/*.jmx"},
		SuppressOutput: true,
		Parallelism:    1,
		Properties:     configuration.PropertiesConfig{Mode: properties.Replace},
		Engine: configuration.EngineConfig{
			Executable:     engine,
			ConfigArtifact: "ApacheJMeter_config",
			PluginPrefix:   "ApacheJMeter_",
		},
		Artifacts: configuration.ArtifactsConfig{LibDirs: []string{libs}},
	}
	return f
}

func writeJar(t *testing.T, path string, files map[string]string) {
	t.Helper()
	out, err := os.Create(path)
	require.NoError(t, err)
	w := zip.NewWriter(out)
	for name, content := range files {
		fw, err := w.Create(name)
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	require.NoError(t, out.Close())
}

func (f *fixture) plan(t *testing.T, name, content string) {
	t.Helper()
	path := filepath.Join(f.config.TestFilesDir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func (f *fixture) app() *App {
	return &App{
		Params: &Params{Config: f.config},
		Out:    &bytes.Buffer{},
		Random: fixedRandom(),
		Exec:   exec.New(),
		Clock:  clock.RealClock{},
	}
}

func (f *fixture) work(parts ...string) string {
	return filepath.Join(append([]string{f.config.Root}, parts...)...)
}

func TestRun_Passes(t *testing.T) {
	f := newFixture(t)
	f.plan(t, "a.jmx", passingPlan)
	f.plan(t, "nested/b.jmx", passingPlan)
	f.config.Metrics.Textfile = filepath.Join(f.dir, "metrics", "loadgate.prom")
	f.config.History.Database = filepath.Join(f.dir, "history.db")
	require.NoError(t, os.MkdirAll(filepath.Dir(f.config.Metrics.Textfile), 0o755))

	require.NoError(t, f.app().Run(gatecontext.Background()))

	for _, dir := range []string{"logs", "bin", "lib/ext", "lib/junit", "report"} {
		assert.DirExists(t, f.work(dir))
	}
	assert.FileExists(t, f.work("bin", "jmeter.properties"))
	assert.NoFileExists(t, f.work("bin", "global.properties"))
	assert.FileExists(t, f.work("lib", "ext", "ApacheJMeter_core-5.5.jar"))
	assert.FileExists(t, f.work("lib", "ext", "ApacheJMeter_config-5.5.jar"))
	assert.NoFileExists(t, f.work("lib", "ext", "commons-io-2.11.0.jar"))
	assert.FileExists(t, f.work("report", "a.jtl"))
	assert.FileExists(t, f.work("report", "nested_b.jtl"))
	assert.FileExists(t, f.work("report", report.JUnitFileName))

	textfile, err := os.ReadFile(f.config.Metrics.Textfile)
	require.NoError(t, err)
	assert.Contains(t, string(textfile), "loadgate_build_failed 0")

	store, err := history.Open(f.config.History.Database)
	require.NoError(t, err)
	defer store.Close()
	recent, err := store.Recent(gatecontext.Background(), 0)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "00000000-0000-4000-8000-000000000000", recent[0].RunID)
	assert.Equal(t, 2, recent[0].Tests)
	assert.False(t, recent[0].Failed)
	runs, err := store.Runs(gatecontext.Background(), recent[0].RunID)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "a.jmx", runs[0].Target)
	assert.Equal(t, filepath.Join("report", "a.jtl"), runs[0].Artifact)
	assert.True(t, runs[1].Passed)
}

func TestRun_Verdict(t *testing.T) {
	tests := map[string]struct {
		plans          map[string]string
		ignoreErrors   bool
		ignoreFailures bool
		wantMessage    string
	}{
		"failures": {
			plans:       map[string]string{"a.jmx": passingPlan, "b.jmx": failingPlan},
			wantMessage: "There were test failures.  See the jmeter logs for details.",
		},
		"errors": {
			plans:       map[string]string{"a.jmx": erroredPlan},
			wantMessage: "There were test errors.  See the jmeter logs for details.",
		},
		"errors and failures": {
			plans:       map[string]string{"a.jmx": erroredPlan, "b.jmx": failingPlan},
			wantMessage: "There were test errors and failures.  See the jmeter logs for details.",
		},
		"errors ignored": {
			plans:        map[string]string{"a.jmx": erroredPlan, "b.jmx": failingPlan},
			ignoreErrors: true,
			wantMessage:  "There were test failures.  See the jmeter logs for details.",
		},
		"everything ignored": {
			plans:          map[string]string{"a.jmx": erroredPlan, "b.jmx": failingPlan},
			ignoreErrors:   true,
			ignoreFailures: true,
		},
		"no test files": {
			plans: map[string]string{"readme.txt": failingPlan},
		},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t)
			for name, content := range tc.plans {
				f.plan(t, name, content)
			}
			f.config.IgnoreErrors = tc.ignoreErrors
			f.config.IgnoreFailures = tc.ignoreFailures

			err := f.app().Run(gatecontext.Background())
			if tc.wantMessage == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, gateerrors.IsTestFailure(err))
			assert.False(t, gateerrors.IsExecutionError(err))
			assert.Equal(t, tc.wantMessage, err.Error())
		})
	}
}

func TestRun_ExecutionErrors(t *testing.T) {
	tests := map[string]func(f *fixture){
		"engine exits non-zero": func(*fixture) {},
		"missing config artifact": func(f *fixture) {
			f.config.Engine.ConfigArtifact = "ApacheJMeter_missing"
		},
		"missing manifest": func(f *fixture) {
			f.config.Artifacts.LibDirs = nil
			f.config.Artifacts.Manifest = filepath.Join(f.dir, "missing.yaml")
		},
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t)
			f.plan(t, "a.jmx", "EXIT_7")
			f.config.History.Database = filepath.Join(f.dir, "history.db")
			mutate(f)

			err := f.app().Run(gatecontext.Background())
			require.Error(t, err)
			assert.False(t, gateerrors.IsTestFailure(err))
			assert.NoFileExists(t, f.work("report", report.JUnitFileName))

			store, err := history.Open(f.config.History.Database)
			require.NoError(t, err)
			defer store.Close()
			recent, err := store.Recent(gatecontext.Background(), 1)
			require.NoError(t, err)
			require.Len(t, recent, 1)
			assert.True(t, recent[0].Failed)
			assert.NotEmpty(t, recent[0].Message)
		})
	}
}

func TestRun_PropertyOverrides(t *testing.T) {
	f := newFixture(t)
	f.plan(t, "a.jmx", passingPlan)
	f.config.Properties = configuration.PropertiesConfig{
		Mode: properties.Merge,
		Overrides: []configuration.PropertyOverride{
			{Category: properties.JMeter, Key: "language", Value: "de"},
			{Category: properties.Global, Key: "threads", Value: "5"},
		},
	}

	require.NoError(t, f.app().Run(gatecontext.Background()))

	jmeter, err := properties.ReadFile(f.work("bin", "jmeter.properties"))
	require.NoError(t, err)
	assert.Equal(t, "de", jmeter.GetString("language", ""))
	assert.Equal(t, "0", jmeter.GetString("jmeter.exit.check.pause", ""))

	global, err := properties.ReadFile(f.work("bin", "global.properties"))
	require.NoError(t, err)
	assert.Equal(t, "5", global.GetString("threads", ""))
}

func TestRun_UnparsableExitCheckPauseFallsBack(t *testing.T) {
	f := newFixture(t)
	f.plan(t, "a.jmx", passingPlan)
	f.config.Properties = configuration.PropertiesConfig{
		Mode: properties.Merge,
		Overrides: []configuration.PropertyOverride{
			{Category: properties.JMeter, Key: "jmeter.exit.check.pause", Value: "soon"},
		},
	}
	start := time.Now()
	require.NoError(t, f.app().Run(gatecontext.Background()))
	assert.GreaterOrEqual(t, time.Since(start), 2500*time.Millisecond)
}

func TestVersion(t *testing.T) {
	out := &bytes.Buffer{}
	app := New()
	app.Out = out
	require.NoError(t, app.Version())
	for _, field := range []string{"Version:", "Commit:", "Go version:", "Built:"} {
		assert.Contains(t, out.String(), field)
	}
}

func TestNewRunID(t *testing.T) {
	app := New()
	app.Random = fixedRandom()
	id, err := app.newRunID()
	require.NoError(t, err)
	assert.Equal(t, "00000000-0000-4000-8000-000000000000", id)

	app.Random = bytes.NewReader(nil)
	_, err = app.newRunID()
	assert.Error(t, err)
}
