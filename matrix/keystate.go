package matrix

import "time"

// State is a confirmed key state.
type State uint8

const (
	Off State = iota
	On
)

func (s State) String() string {
	if s == On {
		return "on"
	}
	return "off"
}

// KeyState is the debounce cell of one matrix position.
//
// A raw level that disagrees with the confirmed state must be seen for
// debounce consecutive cycles before the state flips; any agreeing reading in
// between drops the evidence. While Off, idle is set once the raw level has
// agreed for idle consecutive cycles.
type KeyState struct {
	state   State
	idle    bool
	cycles  uint32 // since last confirmed transition
	pending uint32 // consecutive disagreeing cycles
	quiet   uint32 // consecutive agreeing cycles while Off
}

// NewKeyState returns a cell in the initial Off/idle state.
func NewKeyState() KeyState {
	return KeyState{state: Off, idle: true}
}

// Record feeds one raw level observed this scan cycle and returns the
// confirmed state, the idle flag (only meaningful while Off) and the number
// of cycles since the last confirmed transition.
func (k *KeyState) Record(on bool, debounce, idle uint32) (State, bool, uint32) {
	if k.cycles != ^uint32(0) {
		k.cycles++
	}

	raw := Off
	if on {
		raw = On
	}

	if raw == k.state {
		k.pending = 0
		if k.state == Off && !k.idle {
			k.quiet++
			if k.quiet >= idle {
				k.idle = true
			}
		}
		return k.state, k.idle && k.state == Off, k.cycles
	}

	k.pending++
	k.idle = false
	k.quiet = 0

	if debounce < 1 {
		debounce = 1
	}
	if k.pending >= debounce {
		k.state = raw
		k.pending = 0
		k.cycles = 0
	}
	return k.state, k.idle && k.state == Off, k.cycles
}

// State returns the confirmed state without recording a sample.
func (k *KeyState) State() State { return k.state }

// Idle reports whether the cell is confirmed Off and idle.
func (k *KeyState) Idle() bool { return k.state == Off && k.idle }

// Cycles returns the cycles since the last confirmed transition.
func (k *KeyState) Cycles() uint32 { return k.cycles }

// KeyEvent is the classified result for one row of the strobed column.
type KeyEvent struct {
	State  State
	Idle   bool
	Cycles uint32
}

// Pressed reports whether the key is confirmed On.
func (e KeyEvent) Pressed() bool { return e.State == On }

// Elapsed converts the cycle count into wall time for a given scan period.
func (e KeyEvent) Elapsed(period time.Duration) time.Duration {
	return time.Duration(e.Cycles) * period
}
