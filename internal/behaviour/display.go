package behaviour

// ParamType is the primitive type a behaviour variable is cleaned to.
type ParamType string

const (
	ParamBool ParamType = "bool"
	ParamInt  ParamType = "int"
	ParamRaw  ParamType = "raw"
)

// ExpectedData lists the behaviour variables accepted in the current state.
// Before the attempt is finished only submit is expected; afterwards only
// the self-assessment fields are.
func ExpectedData(finished bool) map[string]ParamType {
	if !finished {
		return map[string]ParamType{
			VarSubmit: ParamBool,
		}
	}
	return map[string]ParamType{
		VarStars:             ParamInt,
		VarSelfComment:       ParamRaw,
		VarSelfCommentFormat: ParamInt,
		VarRate:              ParamBool,
	}
}

// ReadOnly controls which parts of an attempt a viewer may edit.
type ReadOnly int

const (
	Editable    ReadOnly = 0
	ReadOnlyAll ReadOnly = 1

	// ReadOnlyExceptSelfAssess freezes the response but leaves the
	// self-assessment form editable.
	ReadOnlyExceptSelfAssess ReadOnly = 0x10
)

func (r ReadOnly) String() string {
	switch r {
	case Editable:
		return "editable"
	case ReadOnlyExceptSelfAssess:
		return "readonly-except-selfassess"
	default:
		return "readonly"
	}
}

// DisplayOptions is the subset of display settings this behaviour adjusts.
type DisplayOptions struct {
	ReadOnly ReadOnly
}

// AdjustDisplayOptions freezes finished attempts. The student who started
// the attempt keeps an editable self-assessment form unless the options were
// already read-only.
func AdjustDisplayOptions(opts DisplayOptions, viewerID string, h History) DisplayOptions {
	if !h.IsFinished() {
		return opts
	}
	original := opts.ReadOnly
	opts.ReadOnly = ReadOnlyAll
	if original == Editable && viewerID != "" && viewerID == h.FirstStep().UserID {
		opts.ReadOnly = ReadOnlyExceptSelfAssess
	}
	return opts
}
