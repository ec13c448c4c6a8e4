package configuration

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/armadaproject/loadgate/internal/common/gateerrors"
	"github.com/armadaproject/loadgate/internal/properties"
)

// PropertyFlag is the repeatable flag adding property overrides on the command line.
const PropertyFlag = "property"

// SetDefaults registers the default value of every key.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("root", "target/jmeter")
	v.SetDefault("testFilesDir", "src/test/jmeter")
	v.SetDefault("include", []string{"**/*.jmx"})
	v.SetDefault("exclude", []string{})
	v.SetDefault("timestampResults", true)
	v.SetDefault("ignoreErrors", false)
	v.SetDefault("ignoreFailures", false)
	v.SetDefault("suppressOutput", true)
	v.SetDefault("parallelism", 1)
	v.SetDefault("properties.mode", string(properties.Replace))
	v.SetDefault("remote.probe.port", 1099)
	v.SetDefault("remote.probe.attempts", 3)
	v.SetDefault("remote.probe.delay", "1s")
	v.SetDefault("engine.java", "java")
	v.SetDefault("engine.configArtifact", "ApacheJMeter_config")
	v.SetDefault("engine.pluginPrefix", "ApacheJMeter_")
	v.SetDefault("engine.exitCheckPauseMargin", "500ms")
}

// AddFlags adds a flag for the commonly overridden keys to fs.
func AddFlags(fs *pflag.FlagSet) {
	fs.String("root", "", "Working directory the engine runs in")
	fs.String("test-files-dir", "", "Directory containing the test plans")
	fs.StringSlice("include", nil, "Patterns of test plans to run, e.g., '**/*.jmx'")
	fs.StringSlice("exclude", nil, "Patterns of test plans to skip; takes precedence over --include")
	fs.Bool("timestamp-results", true, "Append a timestamp to result file names")
	fs.Bool("ignore-errors", false, "Don't fail on errors in the results")
	fs.Bool("ignore-failures", false, "Don't fail on failures in the results")
	fs.Bool("suppress-output", true, "Only write engine output to the logs directory")
	fs.Int("parallelism", 1, "Maximum number of engines running at once")
	fs.String("mode", "", "How property overrides combine with the defaults: replace or merge")
	fs.StringArray(PropertyFlag, nil, "Property override as <category>:<key>=<value>; may be repeated")
	fs.String("artifact-manifest", "", "JSON or YAML list of the artifacts to run the engine with")
	fs.StringSlice("lib-dir", nil, "Directories to scan for artifacts when there is no manifest")
	fs.StringSlice("remote-host", nil, "Remote agents to dispatch every test plan to")
	fs.String("metrics-file", "", "Write metrics to this file in the Prometheus text format")
	fs.String("pushgateway", "", "Push metrics to this Pushgateway")
	fs.String("history-db", "", "Record the orchestration in this SQLite database")
}

var flagKeys = map[string]string{
	"root":              "root",
	"test-files-dir":    "testFilesDir",
	"include":           "include",
	"exclude":           "exclude",
	"timestamp-results": "timestampResults",
	"ignore-errors":     "ignoreErrors",
	"ignore-failures":   "ignoreFailures",
	"suppress-output":   "suppressOutput",
	"parallelism":       "parallelism",
	"mode":              "properties.mode",
	"artifact-manifest": "artifacts.manifest",
	"lib-dir":           "artifacts.libDirs",
	"remote-host":       "remote.hosts",
	"metrics-file":      "metrics.textfile",
	"pushgateway":       "metrics.pushgateway",
	"history-db":        "history.database",
}

// BindFlags binds the flags added by AddFlags to their config keys. Flags only take effect when set.
func BindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	for flag, key := range flagKeys {
		f := fs.Lookup(flag)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return errors.WithStack(err)
		}
	}
	return nil
}

// PropertyOverridesFromFlags parses every --property flag.
func PropertyOverridesFromFlags(fs *pflag.FlagSet) ([]PropertyOverride, error) {
	if fs.Lookup(PropertyFlag) == nil {
		return nil, nil
	}
	values, err := fs.GetStringArray(PropertyFlag)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	overrides := make([]PropertyOverride, 0, len(values))
	for _, value := range values {
		o, err := ParsePropertyOverride(value)
		if err != nil {
			return nil, err
		}
		overrides = append(overrides, o)
	}
	return overrides, nil
}

// ParsePropertyOverride parses <category>:<key>=<value>. The value may be empty and may contain '='.
func ParsePropertyOverride(s string) (PropertyOverride, error) {
	invalid := func(msg string) error {
		return errors.WithStack(&gateerrors.ErrInvalidArgument{Name: PropertyFlag, Value: s, Message: msg})
	}
	categoryName, rest, ok := strings.Cut(s, ":")
	if !ok {
		return PropertyOverride{}, invalid("expected <category>:<key>=<value>")
	}
	key, value, ok := strings.Cut(rest, "=")
	if !ok || key == "" {
		return PropertyOverride{}, invalid("expected <category>:<key>=<value>")
	}
	category, err := properties.ParseCategory(categoryName)
	if err != nil {
		return PropertyOverride{}, err
	}
	return PropertyOverride{Category: category, Key: key, Value: value}, nil
}

// ToOverrides converts the configured overrides for the property handler.
func (c PropertiesConfig) ToOverrides() properties.Overrides {
	list := make([]properties.Override, len(c.Overrides))
	for i, o := range c.Overrides {
		list[i] = properties.Override{Category: o.Category, Key: o.Key, Value: o.Value}
	}
	return properties.OverridesFromList(list)
}
