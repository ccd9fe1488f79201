package behaviour

// ActionKind is the closed set of actions the engine understands.
type ActionKind int

const (
	ActionSave ActionKind = iota
	ActionSubmit
	ActionFinish
	ActionSelfAssess
	ActionComment
)

func (k ActionKind) String() string {
	switch k {
	case ActionSubmit:
		return "submit"
	case ActionFinish:
		return "finish"
	case ActionSelfAssess:
		return "selfassess"
	case ActionComment:
		return "comment"
	default:
		return "save"
	}
}

// Classify picks the handler for a pending action.
// Priority: submit > finish > rate > comment > save. Once the attempt is
// finished nothing but assessment is legal, so a plain save becomes an
// implicit self-assessment.
func Classify(v Vars, finished bool) ActionKind {
	switch {
	case v.Submit:
		return ActionSubmit
	case v.Finish:
		return ActionFinish
	case v.Rate:
		return ActionSelfAssess
	case v.Comment != nil:
		return ActionComment
	case finished:
		return ActionSelfAssess
	default:
		return ActionSave
	}
}

// ClassifyStep picks the summary form for a committed step. A step is a
// self-assessment when it carries either the rate flag or the implicit
// marker.
func ClassifyStep(v Vars) ActionKind {
	switch {
	case v.Submit:
		return ActionSubmit
	case v.Finish:
		return ActionFinish
	case v.Rate || v.Implicit:
		return ActionSelfAssess
	case v.Comment != nil:
		return ActionComment
	default:
		return ActionSave
	}
}

// IsSelfAssessment reports whether a committed step records a self-assessment.
func IsSelfAssessment(s Step) bool {
	return ClassifyStep(s.Vars) == ActionSelfAssess
}
