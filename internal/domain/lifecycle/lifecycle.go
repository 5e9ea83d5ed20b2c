// Package lifecycle holds the engine's startup/teardown flags and
// configuration surface (§4.F, §3).
package lifecycle

import "sync/atomic"

// Flags are the two independently toggleable unload/detach
// permissions (§3). They default to false and are toggled by the
// control dispatcher. The engine's stop path does not read them: a
// stop signal tears the engine down whatever their values.
type Flags struct {
	acceptUnload atomic.Bool
	acceptDetach atomic.Bool
}

// SetAcceptUnload sets the unload permission.
func (f *Flags) SetAcceptUnload(v bool) { f.acceptUnload.Store(v) }

// AcceptUnload reports the current unload permission.
func (f *Flags) AcceptUnload() bool { return f.acceptUnload.Load() }

// SetAcceptDetach sets the detach permission.
func (f *Flags) SetAcceptDetach(v bool) { f.acceptDetach.Store(v) }

// AcceptDetach reports the current detach permission.
func (f *Flags) AcceptDetach() bool { return f.acceptDetach.Load() }

// Phase is the engine's coarse lifecycle state, set by the start
// command as the engine moves through boot and teardown. The control
// dispatcher does not consult it.
type Phase int32

const (
	PhaseStarting Phase = iota
	PhaseRunning
	PhaseStopping
	PhaseStopped
)

// String renders the phase for logs.
func (p Phase) String() string {
	switch p {
	case PhaseStarting:
		return "starting"
	case PhaseRunning:
		return "running"
	case PhaseStopping:
		return "stopping"
	case PhaseStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// State tracks the current Phase atomically so it can be read from
// any inbound adapter goroutine without a lock.
type State struct {
	phase atomic.Int32
}

// NewState returns a State in PhaseStarting.
func NewState() *State {
	s := &State{}
	s.phase.Store(int32(PhaseStarting))
	return s
}

// Set transitions to phase.
func (s *State) Set(phase Phase) { s.phase.Store(int32(phase)) }

// Get returns the current phase.
func (s *State) Get() Phase { return Phase(s.phase.Load()) }
