// Package responder implements the per-interface probe/announce/defend
// state machine that owns the engine's local services and hosts (spec
// §4.2).
package responder

// State is a PCB's position in the probe/announce/run lifecycle.
type State int

const (
	// Off means the PCB has no interface/protocol pairing enabled.
	Off State = iota

	// Init means the PCB is enabled but has not yet scheduled its first
	// probe.
	Init

	// Probe1, Probe2 and Probe3 are the three probe rounds, 250ms apart,
	// during which the PCB asks "does anyone already own these names?"
	Probe1
	Probe2
	Probe3

	// Announce1 and Announce2 are the first two of three unsolicited
	// authoritative announcements.
	Announce1
	Announce2

	// Announce3 is the final announcement; after it is sent the PCB
	// transitions to Running.
	Announce3

	// Running is the steady state: the PCB answers queries and defends
	// its owned names.
	Running

	// Dup marks a PCB recognized as sharing a link with another PCB; it
	// defers to its peer and does not probe, announce, or answer.
	Dup
)

func (s State) String() string {
	switch s {
	case Off:
		return "OFF"
	case Init:
		return "INIT"
	case Probe1:
		return "PROBE_1"
	case Probe2:
		return "PROBE_2"
	case Probe3:
		return "PROBE_3"
	case Announce1:
		return "ANNOUNCE_1"
	case Announce2:
		return "ANNOUNCE_2"
	case Announce3:
		return "ANNOUNCE_3"
	case Running:
		return "RUNNING"
	case Dup:
		return "DUP"
	default:
		return "UNKNOWN"
	}
}

// Probing reports whether s is one of the three probe rounds.
func (s State) Probing() bool {
	return s == Probe1 || s == Probe2 || s == Probe3
}

// Announcing reports whether s is one of the three announce rounds.
func (s State) Announcing() bool {
	return s == Announce1 || s == Announce2 || s == Announce3
}
