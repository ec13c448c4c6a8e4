// Package engine builds engine command lines and launches engine processes.
package engine

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// ResultTimestampFormat is appended to result file names when timestamping is enabled.
const ResultTimestampFormat = "060102-150405"

// Proxy holds the HTTP proxy the engine should send its traffic through.
type Proxy struct {
	Host          string
	Port          int
	Username      string
	Password      string
	NonProxyHosts string
}

// Remote selects how a target is dispatched to remote agents. The zero value runs locally.
type Remote struct {
	// Host of a single remote agent.
	Host string
	// All starts every remote agent configured in the engine's properties.
	All bool
	// Stop asks the engine to shut down the remote agents once the test has finished.
	Stop bool
}

func (r Remote) IsRemote() bool {
	return r.Host != "" || r.All
}

// ArgumentOptions configures an ArgumentModel.
type ArgumentOptions struct {
	// Engine home, passed to the engine as its installation directory.
	Home string
	// Directory result artifacts are written to.
	ResultsDir string
	// Directory engine log files are written to.
	LogsDir string
	// Append Timestamp to every result file name.
	TimestampResults bool
	Timestamp        time.Time
	Proxy            Proxy
	// Written global.properties, if any.
	GlobalPropertiesFile string
}

// ArgumentModel is the immutable template that every engine invocation is derived from.
type ArgumentModel struct {
	opts ArgumentOptions
}

func NewArgumentModel(opts ArgumentOptions) *ArgumentModel {
	return &ArgumentModel{opts: opts}
}

// Invocation is the fully specialised command line of one engine run.
type Invocation struct {
	TestFile   string
	ResultFile string
	LogFile    string
	Args       []string
}

// ForTarget specialises the template for a single test plan. name identifies the plan and is used
// to derive the result and log file names. Distinct targets may map to the same names, callers
// check for collisions.
// The returned arguments never share memory with other invocations.
func (m *ArgumentModel) ForTarget(name, testFile string, remote Remote) Invocation {
	base := m.artifactBaseName(name, remote)
	inv := Invocation{
		TestFile:   testFile,
		ResultFile: filepath.Join(m.opts.ResultsDir, base+".jtl"),
		LogFile:    filepath.Join(m.opts.LogsDir, base+".log"),
	}

	args := []string{
		"-n",
		"-t", testFile,
		"-l", inv.ResultFile,
		"-d", m.opts.Home,
		"-j", inv.LogFile,
	}
	if m.opts.GlobalPropertiesFile != "" {
		args = append(args, "-G", m.opts.GlobalPropertiesFile)
	}
	args = append(args, m.proxyArgs()...)
	switch {
	case remote.Host != "":
		args = append(args, "-R", remote.Host)
	case remote.All:
		args = append(args, "-r")
	}
	if remote.IsRemote() && remote.Stop {
		args = append(args, "-X")
	}
	inv.Args = args
	return inv
}

// ProxyDetails describes the proxy configuration for the orchestration log.
func (m *ArgumentModel) ProxyDetails() string {
	p := m.opts.Proxy
	if p.Host == "" {
		return "Proxy server is not being used."
	}
	details := fmt.Sprintf("Proxy server is being used: %s:%d", p.Host, p.Port)
	if p.Username != "" {
		details += fmt.Sprintf(", username: %s", p.Username)
	}
	if p.NonProxyHosts != "" {
		details += fmt.Sprintf(", non-proxy hosts: %s", p.NonProxyHosts)
	}
	return details
}

func (m *ArgumentModel) proxyArgs() []string {
	p := m.opts.Proxy
	if p.Host == "" {
		return nil
	}
	args := []string{"-H", p.Host}
	if p.Port > 0 {
		args = append(args, "-P", strconv.Itoa(p.Port))
	}
	if p.Username != "" {
		args = append(args, "-u", p.Username, "-a", p.Password)
	}
	if p.NonProxyHosts != "" {
		args = append(args, "-N", p.NonProxyHosts)
	}
	return args
}

func (m *ArgumentModel) artifactBaseName(name string, remote Remote) string {
	parts := []string{sanitize(strings.TrimSuffix(name, filepath.Ext(name)))}
	switch {
	case remote.Host != "":
		parts = append(parts, sanitize(remote.Host))
	case remote.All:
		parts = append(parts, "remote")
	}
	if m.opts.TimestampResults {
		parts = append(parts, m.opts.Timestamp.Format(ResultTimestampFormat))
	}
	return strings.Join(parts, "-")
}

var unsafeChars = strings.NewReplacer("/", "_", "\\", "_", ":", "_", " ", "_")

func sanitize(s string) string {
	return unsafeChars.Replace(s)
}
