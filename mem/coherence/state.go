package coherence

// State is the coherence state of a cache line.
type State int

// The stable MESI states, the transient states that wait for a downstream
// response, and the flush-pending states.
const (
	StateI State = iota
	StateS
	StateE
	StateM
	StateIS
	StateIM
	StateSM
	StateSB
	StateIB
)

var stateNames = [...]string{
	StateI:  "I",
	StateS:  "S",
	StateE:  "E",
	StateM:  "M",
	StateIS: "IS",
	StateIM: "IM",
	StateSM: "SM",
	StateSB: "S_B",
	StateIB: "I_B",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "Unknown"
	}

	return stateNames[s]
}

// IsStable returns true for I, S, E and M.
func (s State) IsStable() bool {
	switch s {
	case StateI, StateS, StateE, StateM:
		return true
	default:
		return false
	}
}

// InTransition returns true if a transaction on the line is outstanding.
func (s State) InTransition() bool {
	switch s {
	case StateIS, StateIM, StateSM, StateSB, StateIB:
		return true
	default:
		return false
	}
}

// HoldsData returns true if a line in this state has readable data.
func (s State) HoldsData() bool {
	switch s {
	case StateS, StateE, StateM, StateSM, StateSB:
		return true
	default:
		return false
	}
}

// IsOwner returns true for the states that grant sole write permission.
func (s State) IsOwner() bool {
	return s == StateE || s == StateM
}

// AllStates lists every state in declaration order.
func AllStates() []State {
	return []State{
		StateI, StateS, StateE, StateM,
		StateIS, StateIM, StateSM, StateSB, StateIB,
	}
}
