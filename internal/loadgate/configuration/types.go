package configuration

import (
	"time"

	"github.com/armadaproject/loadgate/internal/properties"
)

type LoadgateConfig struct {
	// Working directory the engine's tree is created in.
	Root string `yaml:"root" validate:"required"`
	// Directory searched for test plans. Custom <category>.properties files are also picked up from here.
	TestFilesDir string   `yaml:"testFilesDir" validate:"required"`
	Include      []string `yaml:"include"`
	Exclude      []string `yaml:"exclude"`
	// Append a timestamp to the name of every result file.
	TimestampResults bool `yaml:"timestampResults"`
	IgnoreErrors     bool `yaml:"ignoreErrors"`
	IgnoreFailures   bool `yaml:"ignoreFailures"`
	// Only write engine output to files in the logs directory.
	SuppressOutput bool `yaml:"suppressOutput"`
	// Maximum number of engines running at once.
	Parallelism int              `yaml:"parallelism" validate:"gte=1"`
	Properties  PropertiesConfig `yaml:"properties"`
	Proxy       ProxyConfig      `yaml:"proxy"`
	Remote      RemoteConfig     `yaml:"remote"`
	Engine      EngineConfig     `yaml:"engine"`
	Artifacts   ArtifactsConfig  `yaml:"artifacts"`
	Metrics     MetricsConfig    `yaml:"metrics"`
	History     HistoryConfig    `yaml:"history"`
}

type PropertiesConfig struct {
	Mode properties.MergeMode `yaml:"mode" validate:"oneof=replace merge"`
	// Given as a list so that keys keep their case and may contain dots.
	Overrides []PropertyOverride `yaml:"overrides" validate:"dive"`
}

type PropertyOverride struct {
	Category properties.Category `yaml:"category" validate:"oneof=jmeter saveservice upgrade user system global"`
	Key      string              `yaml:"key" validate:"required"`
	Value    string              `yaml:"value"`
}

type ProxyConfig struct {
	Host          string `yaml:"host"`
	Port          int    `yaml:"port" validate:"gte=0,lte=65535"`
	Username      string `yaml:"username"`
	Password      string `yaml:"password,omitempty"`
	NonProxyHosts string `yaml:"nonProxyHosts"`
}

type RemoteConfig struct {
	Hosts            []string    `yaml:"hosts" validate:"dive,required"`
	StartAll         bool        `yaml:"startAll"`
	Stop             bool        `yaml:"stop"`
	StartAndStopOnce bool        `yaml:"startAndStopOnce"`
	Probe            ProbeConfig `yaml:"probe"`
}

type ProbeConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Port     int           `yaml:"port" validate:"gte=0,lte=65535"`
	Attempts uint          `yaml:"attempts"`
	Delay    time.Duration `yaml:"delay"`
}

type EngineConfig struct {
	// Run this executable instead of starting the engine through the JVM.
	Executable string   `yaml:"executable"`
	Java       string   `yaml:"java"`
	JvmArgs    []string `yaml:"jvmArgs"`
	// Id of the artifact holding the default properties files.
	ConfigArtifact string `yaml:"configArtifact" validate:"required"`
	// Artifacts whose id starts with this are copied into lib/ext.
	PluginPrefix         string        `yaml:"pluginPrefix" validate:"required"`
	ExitCheckPauseMargin time.Duration `yaml:"exitCheckPauseMargin" validate:"gte=0"`
}

type ArtifactsConfig struct {
	// JSON or YAML list of {id, file}.
	Manifest string `yaml:"manifest" validate:"required_without=LibDirs"`
	// Directories scanned for jars when there is no manifest.
	LibDirs []string `yaml:"libDirs" validate:"required_without=Manifest"`
}

type MetricsConfig struct {
	// File the metrics are written to in the Prometheus text format.
	Textfile    string `yaml:"textfile"`
	Pushgateway string `yaml:"pushgateway" validate:"omitempty,url"`
}

type HistoryConfig struct {
	// SQLite database orchestrations are recorded in. Disabled if empty.
	Database string `yaml:"database"`
}
