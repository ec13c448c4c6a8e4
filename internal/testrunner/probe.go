package testrunner

import (
	"context"
	"net"
	"strconv"
	"time"

	"github.com/avast/retry-go"
	"github.com/pkg/errors"

	"github.com/armadaproject/loadgate/internal/common/gatecontext"
	"github.com/armadaproject/loadgate/internal/common/gateerrors"
)

// DefaultAgentPort is the RMI registry port remote agents listen on unless told otherwise.
const DefaultAgentPort = 1099

// ProbeConfig controls the reachability check run against remote agents before any remote target is dispatched.
type ProbeConfig struct {
	Enabled bool
	// Port used for hosts given without one.
	Port     int
	Attempts uint
	Delay    time.Duration
	// Timeout of a single connection attempt.
	Timeout time.Duration
}

// Prober checks that a remote agent accepts connections.
type Prober interface {
	Probe(ctx context.Context, host string) error
}

// TCPProber dials the agent, retrying with a fixed delay.
type TCPProber struct {
	config ProbeConfig
	dialer *net.Dialer
}

func NewTCPProber(config ProbeConfig) *TCPProber {
	if config.Port == 0 {
		config.Port = DefaultAgentPort
	}
	if config.Attempts == 0 {
		config.Attempts = 3
	}
	if config.Delay == 0 {
		config.Delay = time.Second
	}
	if config.Timeout == 0 {
		config.Timeout = 5 * time.Second
	}
	return &TCPProber{config: config, dialer: &net.Dialer{Timeout: config.Timeout}}
}

func (p *TCPProber) Probe(ctx context.Context, host string) error {
	address := host
	if _, _, err := net.SplitHostPort(host); err != nil {
		address = net.JoinHostPort(host, strconv.Itoa(p.config.Port))
	}
	return retry.Do(
		func() error {
			conn, err := p.dialer.DialContext(ctx, "tcp", address)
			if err != nil {
				return err
			}
			return conn.Close()
		},
		retry.Context(ctx),
		retry.Attempts(p.config.Attempts),
		retry.Delay(p.config.Delay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
	)
}

func probeAgents(ctx *gatecontext.Context, prober Prober, hosts []string) error {
	for _, host := range hosts {
		ctx.Log.Infof("Checking remote agent %s is reachable", host)
		if err := prober.Probe(ctx, host); err != nil {
			return gateerrors.NewExecutionError("probe remote agent", errors.WithStack(err), "remote agent %s is not reachable", host)
		}
	}
	return nil
}
