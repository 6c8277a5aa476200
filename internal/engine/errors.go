package engine

import (
	"fmt"

	"github.com/shadowsim/corengine/internal/simtime"
)

// Each error kind is a distinct exported type so callers can
// errors.As() them instead of string-matching.

// ConfigInvalidError wraps a missing/illegal configuration. Fatal at startup.
type ConfigInvalidError struct {
	Reason string
}

func (e *ConfigInvalidError) Error() string {
	return fmt.Sprintf("engine: invalid configuration: %s", e.Reason)
}

// WorkerPoolFailureError reports an inability to spawn the worker pool.
// Fatal at startup.
type WorkerPoolFailureError struct {
	Reason string
}

func (e *WorkerPoolFailureError) Error() string {
	return fmt.Sprintf("engine: worker pool setup failed: %s", e.Reason)
}

// LookaheadViolationError reports a cross-host event scheduled with
// insufficient delay. Fatal at runtime: it corrupts determinism.
type LookaheadViolationError struct {
	SrcHostID    HostID
	DstHostID    HostID
	EmitTime     simtime.Time
	DeliveryTime simtime.Time
	MinTimeJump  simtime.Time
}

func (e *LookaheadViolationError) Error() string {
	return fmt.Sprintf(
		"engine: lookahead violation: event from host %d to host %d emitted at %d delivers at %d, need >= %d",
		e.SrcHostID, e.DstHostID, e.EmitTime, e.DeliveryTime, e.EmitTime.Add(e.MinTimeJump),
	)
}

// ExitCode maps a startup/runtime error to the process exit code:
// 0 normal, non-zero on any fatal error.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	return 1
}
