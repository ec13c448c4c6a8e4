package configuration

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/armadaproject/loadgate/internal/common/gateerrors"
	"github.com/armadaproject/loadgate/internal/properties"
)

const configYaml = `
root: /tmp/perf
testFilesDir: tests
include: ["smoke/**/*.jmx"]
exclude:
  - "**/broken.jmx"
parallelism: 2
properties:
  mode: MERGE
  overrides:
    - category: jmeter
      key: jmeter.save.saveservice.output_format
      value: xml
    - category: Global
      key: threads
      value: "10"
remote:
  hosts: [agent-1, agent-2]
  probe:
    enabled: true
    delay: 250ms
engine:
  jvmArgs: ["-Xmx1g"]
artifacts:
  manifest: artifacts.yaml
metrics:
  pushgateway: http://localhost:9091
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "loadgate.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	c, err := Load(writeConfig(t, configYaml), nil)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/perf", c.Root)
	assert.Equal(t, "tests", c.TestFilesDir)
	assert.Equal(t, []string{"smoke/**/*.jmx"}, c.Include)
	assert.Equal(t, []string{"**/broken.jmx"}, c.Exclude)
	assert.Equal(t, 2, c.Parallelism)
	assert.Equal(t, properties.Merge, c.Properties.Mode)
	assert.Equal(t, []PropertyOverride{
		{Category: properties.JMeter, Key: "jmeter.save.saveservice.output_format", Value: "xml"},
		{Category: properties.Global, Key: "threads", Value: "10"},
	}, c.Properties.Overrides)
	assert.Equal(t, []string{"agent-1", "agent-2"}, c.Remote.Hosts)
	assert.True(t, c.Remote.Probe.Enabled)
	assert.Equal(t, 250*time.Millisecond, c.Remote.Probe.Delay)
	assert.Equal(t, []string{"-Xmx1g"}, c.Engine.JvmArgs)

	// Defaults
	assert.True(t, c.TimestampResults)
	assert.True(t, c.SuppressOutput)
	assert.Equal(t, 1099, c.Remote.Probe.Port)
	assert.Equal(t, uint(3), c.Remote.Probe.Attempts)
	assert.Equal(t, "java", c.Engine.Java)
	assert.Equal(t, "ApacheJMeter_config", c.Engine.ConfigArtifact)
	assert.Equal(t, "ApacheJMeter_", c.Engine.PluginPrefix)
	assert.Equal(t, 500*time.Millisecond, c.Engine.ExitCheckPauseMargin)
}

func TestLoad_Defaults(t *testing.T) {
	c, err := Load(writeConfig(t, "artifacts:\n  libDirs: [lib]\n"), nil)
	require.NoError(t, err)
	assert.Equal(t, "target/jmeter", c.Root)
	assert.Equal(t, "src/test/jmeter", c.TestFilesDir)
	assert.Equal(t, []string{"**/*.jmx"}, c.Include)
	assert.Equal(t, 1, c.Parallelism)
	assert.Equal(t, properties.Replace, c.Properties.Mode)
	assert.Empty(t, c.Properties.Overrides)
}

func TestLoad_FlagsWin(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	AddFlags(fs)
	require.NoError(t, fs.Parse([]string{
		"--parallelism=4",
		"--ignore-failures",
		"--property", "user:greeting=a=b",
		"--property", "system:javax.net.ssl.trustStore=",
	}))

	c, err := Load(writeConfig(t, configYaml), fs)
	require.NoError(t, err)
	assert.Equal(t, 4, c.Parallelism)
	assert.True(t, c.IgnoreFailures)
	assert.Equal(t, "/tmp/perf", c.Root)
	require.Len(t, c.Properties.Overrides, 4)
	assert.Equal(t, PropertyOverride{Category: properties.User, Key: "greeting", Value: "a=b"}, c.Properties.Overrides[2])
	assert.Equal(t, PropertyOverride{Category: properties.System, Key: "javax.net.ssl.trustStore"}, c.Properties.Overrides[3])
}

func TestLoad_Invalid(t *testing.T) {
	tests := map[string]struct {
		yaml  string
		field string
	}{
		"parallelism": {
			yaml:  "parallelism: 0\nartifacts:\n  libDirs: [lib]\n",
			field: "Parallelism",
		},
		"no artifacts": {
			yaml:  "root: foo\n",
			field: "Artifacts.Manifest",
		},
		"bad pushgateway": {
			yaml:  "artifacts:\n  libDirs: [lib]\nmetrics:\n  pushgateway: not a url\n",
			field: "Metrics.Pushgateway",
		},
		"missing override key": {
			yaml:  "artifacts:\n  libDirs: [lib]\nproperties:\n  overrides:\n    - category: user\n      value: x\n",
			field: "Properties.Overrides[0].Key",
		},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.yaml), nil)
			require.Error(t, err)
			var merr *multierror.Error
			require.True(t, errors.As(err, &merr), "%T", err)
			var names []string
			for _, e := range merr.Errors {
				var invalid *gateerrors.ErrInvalidArgument
				require.True(t, errors.As(e, &invalid))
				names = append(names, invalid.Name)
			}
			assert.Contains(t, names, tc.field)
		})
	}
}

func TestLoad_InvalidEnumsFailDecoding(t *testing.T) {
	for name, yaml := range map[string]string{
		"mode":     "artifacts:\n  libDirs: [lib]\nproperties:\n  mode: overwrite\n",
		"category": "artifacts:\n  libDirs: [lib]\nproperties:\n  overrides:\n    - category: httpclient\n      key: x\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, yaml), nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "must be one of")
		})
	}
}

func TestParsePropertyOverride(t *testing.T) {
	tests := map[string]struct {
		input   string
		want    PropertyOverride
		wantErr bool
	}{
		"simple":          {input: "jmeter:a.b=c", want: PropertyOverride{Category: properties.JMeter, Key: "a.b", Value: "c"}},
		"empty value":     {input: "global:threads=", want: PropertyOverride{Category: properties.Global, Key: "threads"}},
		"equals in value": {input: "user:x=a=b", want: PropertyOverride{Category: properties.User, Key: "x", Value: "a=b"}},
		"upper case":      {input: "SaveService:k=v", want: PropertyOverride{Category: properties.SaveService, Key: "k", Value: "v"}},
		"no category":     {input: "a.b=c", wantErr: true},
		"no value":        {input: "jmeter:a.b", wantErr: true},
		"no key":          {input: "jmeter:=c", wantErr: true},
		"unknown":         {input: "httpclient:a=b", wantErr: true},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			got, err := ParsePropertyOverride(tc.input)
			if tc.wantErr {
				var invalid *gateerrors.ErrInvalidArgument
				assert.True(t, errors.As(err, &invalid))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestToOverrides(t *testing.T) {
	c := PropertiesConfig{Overrides: []PropertyOverride{
		{Category: properties.User, Key: "a", Value: "1"},
		{Category: properties.User, Key: "a", Value: "2"},
		{Category: properties.Global, Key: "b", Value: "3"},
	}}
	overrides := c.ToOverrides()
	require.Len(t, overrides, 2)
	v, ok := overrides[properties.User].Get("a")
	assert.True(t, ok)
	assert.Equal(t, "2", v)
	assert.Equal(t, 1, overrides[properties.Global].Len())
}
