package testrunner

import (
	"k8s.io/apimachinery/pkg/util/sets"

	"github.com/armadaproject/loadgate/internal/engine"
)

// Target is anything that produces one result artifact from the argument template.
// Local test plans and test plans dispatched to remote agents are handled alike.
type Target interface {
	// Name identifies the target in logs and reports.
	Name() string
	// Kind is either "local" or "remote".
	Kind() string
	// Invocation specialises the template for this target.
	Invocation(template *engine.ArgumentModel) engine.Invocation
}

// LocalTarget runs a test plan in the local engine.
type LocalTarget struct {
	Test TestFile
}

func (t *LocalTarget) Name() string { return t.Test.Name }

func (t *LocalTarget) Kind() string { return "local" }

func (t *LocalTarget) Invocation(template *engine.ArgumentModel) engine.Invocation {
	return template.ForTarget(t.Test.Name, t.Test.Path, engine.Remote{})
}

// RemoteTarget runs a test plan on one remote agent, or on all agents when Host is empty.
type RemoteTarget struct {
	Test TestFile
	Host string
	Stop bool
}

func (t *RemoteTarget) Name() string {
	if t.Host == "" {
		return t.Test.Name + "@all-remotes"
	}
	return t.Test.Name + "@" + t.Host
}

func (t *RemoteTarget) Kind() string { return "remote" }

func (t *RemoteTarget) Invocation(template *engine.ArgumentModel) engine.Invocation {
	return template.ForTarget(t.Test.Name, t.Test.Path, engine.Remote{
		Host: t.Host,
		All:  t.Host == "",
		Stop: t.Stop,
	})
}

// RemoteConfig describes the remote agents every test plan is additionally dispatched to.
type RemoteConfig struct {
	// Agents to start the tests on, in dispatch order.
	Hosts []string
	// Start the tests on every agent listed in the engine's remote_hosts property.
	// Only used when Hosts is empty.
	StartAll bool
	// Stop the agents once their test has finished.
	Stop bool
	// Only stop the agents after the last remote target.
	StartAndStopOnce bool
}

func (c RemoteConfig) Enabled() bool {
	return len(c.Hosts) > 0 || c.StartAll
}

// UniqueHosts returns the configured hosts without duplicates, keeping the first occurrence.
func (c RemoteConfig) UniqueHosts() []string {
	seen := sets.NewString()
	var hosts []string
	for _, h := range c.Hosts {
		if h == "" || seen.Has(h) {
			continue
		}
		seen.Insert(h)
		hosts = append(hosts, h)
	}
	return hosts
}

// BuildTargets returns one local target per test file followed by the remote targets.
// Remote targets are ordered by host, then by test file.
func BuildTargets(files []TestFile, remote RemoteConfig) []Target {
	targets := make([]Target, 0, len(files))
	for _, f := range files {
		targets = append(targets, &LocalTarget{Test: f})
	}
	if !remote.Enabled() {
		return targets
	}

	var remotes []*RemoteTarget
	hosts := remote.UniqueHosts()
	if len(hosts) == 0 {
		hosts = []string{""}
	}
	for _, host := range hosts {
		for _, f := range files {
			remotes = append(remotes, &RemoteTarget{
				Test: f,
				Host: host,
				Stop: remote.Stop && !remote.StartAndStopOnce,
			})
		}
	}
	if remote.StartAndStopOnce && len(remotes) > 0 {
		remotes[len(remotes)-1].Stop = true
	}
	for _, r := range remotes {
		targets = append(targets, r)
	}
	return targets
}
