package behaviour

// State is the position of an attempt in the self-assessment lifecycle.
// It is the state recorded on the most recent step.
type State string

const (
	StateTodo         State = "todo"
	StateInvalid      State = "invalid"
	StateComplete     State = "complete"
	StateNeedsGrading State = "needsgrading"
	StateGaveUp       State = "gaveup"
	StateManFinished  State = "manfinished"
)

// AllStates lists every state, unfinished states first.
var AllStates = []State{
	StateTodo,
	StateInvalid,
	StateComplete,
	StateNeedsGrading,
	StateGaveUp,
	StateManFinished,
}

// IsFinished reports whether the response can no longer be edited.
// A finished attempt only moves forward into StateManFinished.
func (s State) IsFinished() bool {
	switch s {
	case StateNeedsGrading, StateGaveUp, StateManFinished:
		return true
	default:
		return false
	}
}

// IsValid reports whether s is one of the known states.
func (s State) IsValid() bool {
	for _, v := range AllStates {
		if s == v {
			return true
		}
	}
	return false
}

func (s State) String() string { return string(s) }
