package topology

import "fmt"

// GraphUnloadableError reports a missing or malformed graph description
// file. Fatal at startup.
type GraphUnloadableError struct {
	Path   string
	Reason string
}

func (e *GraphUnloadableError) Error() string {
	return fmt.Sprintf("topology: cannot load graph %s: %s", e.Path, e.Reason)
}

// UnconnectedTopologyError reports that the loaded graph is not strongly
// connected. Fatal at startup.
type UnconnectedTopologyError struct {
	ComponentCount int
}

func (e *UnconnectedTopologyError) Error() string {
	return fmt.Sprintf("topology: graph is not strongly connected: %d components", e.ComponentCount)
}

// AddressUnattachedError reports a query against a virtual IP with no PoI
// attachment. Local: the public API returns the documented sentinel and
// logs this at warning level; it never unwinds the window.
type AddressUnattachedError struct {
	Address string
}

func (e *AddressUnattachedError) Error() string {
	return fmt.Sprintf("topology: address %s is not attached", e.Address)
}

// PathComputationFailedError reports that the underlying graph query
// returned an error. Local: surfaces as the AddressUnattached-equivalent
// sentinel for that query, logged at the logger's error level (logrus has
// no distinct "critical" level).
type PathComputationFailedError struct {
	Src, Dst string
	Reason   string
}

func (e *PathComputationFailedError) Error() string {
	return fmt.Sprintf("topology: path computation from %s to %s failed: %s", e.Src, e.Dst, e.Reason)
}

// UnsupportedHintError reports a Connect hint no PoI candidate can
// satisfy. Hints are honored, not silently ignored, so an unsatisfiable
// hint is a hard error rather than a no-op.
type UnsupportedHintError struct {
	Hint string
}

func (e *UnsupportedHintError) Error() string {
	return fmt.Sprintf("topology: unsupported connect hint: %s", e.Hint)
}
