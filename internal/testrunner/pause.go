package testrunner

import (
	"strconv"
	"strings"
	"time"

	"github.com/armadaproject/loadgate/internal/common/gatecontext"
)

const (
	// ExitCheckPauseProperty is the engine property holding the time, in milliseconds, the engine
	// waits for its threads after a test before forcing its own exit.
	ExitCheckPauseProperty = "jmeter.exit.check.pause"
	// ExitCheckPauseMargin is added on top of the engine's own pause.
	ExitCheckPauseMargin = 500 * time.Millisecond
	// DefaultExitCheckPause is used when the engine's pause can't be determined.
	DefaultExitCheckPause = 2500 * time.Millisecond
)

// ResolveExitCheckPause computes the grace period to wait after every engine exit from the raw
// value of the exit check pause property. A missing or unparsable value is not an error:
// a warning is logged and DefaultExitCheckPause is returned.
func ResolveExitCheckPause(ctx *gatecontext.Context, raw string, found bool, margin time.Duration) time.Duration {
	if found {
		ms, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err == nil && ms >= 0 {
			return time.Duration(ms)*time.Millisecond + margin
		}
	}
	ctx.Log.Warnf(
		"Unable to parse the '%s' entry in jmeter.properties!  Falling back to a default value of '%d'.",
		ExitCheckPauseProperty,
		DefaultExitCheckPause.Milliseconds(),
	)
	return DefaultExitCheckPause
}
