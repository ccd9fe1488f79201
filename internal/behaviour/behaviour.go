package behaviour

import (
	"time"

	"go.uber.org/zap"
)

// Response holds the question-type variables of a step, keyed by name.
type Response map[string]string

// Step is one committed entry in an attempt's history.
type Step struct {
	Seq             int
	State           State
	Fraction        *float64 // nil when the step carries no score
	Vars            Vars
	Response        Response // nil for steps that did not touch the response
	ResponseSummary string
	UserID          string
	CreatedAt       time.Time
}

// Pending is one user action waiting to be processed.
type Pending struct {
	Vars     Vars
	Response Response // nil means "reuse the last recorded response"
	UserID   string
}

// Decision tells the host what to do with a pending step.
type Decision int

const (
	Discard Decision = iota
	Keep
)

func (d Decision) String() string {
	if d == Keep {
		return "keep"
	}
	return "discard"
}

// Transition is the outcome of processing one pending action. When Decision
// is Discard the other fields are zero.
type Transition struct {
	Decision        Decision
	Action          ActionKind
	State           State
	Fraction        *float64
	Vars            Vars
	Response        Response
	ResponseSummary string
}

// Step builds the committed step for a kept transition.
func (t Transition) Step(seq int, userID string, at time.Time) Step {
	return Step{
		Seq:             seq,
		State:           t.State,
		Fraction:        t.Fraction,
		Vars:            t.Vars,
		Response:        t.Response,
		ResponseSummary: t.ResponseSummary,
		UserID:          userID,
		CreatedAt:       at,
	}
}

// History is the read-only view of an attempt the engine needs.
type History interface {
	// State is the state of the most recent step.
	State() State

	// IsFinished reports whether State is a finished state.
	IsFinished() bool

	// LastVar walks the steps backwards and returns the most recent value of
	// the named behaviour variable.
	LastVar(name string) (string, bool)

	// LastResponse returns the most recently recorded response, or nil.
	LastResponse() Response

	// LastAssessment returns the variables of the most recent
	// self-assessment step.
	LastAssessment() (Vars, bool)

	// FirstStep is the step that started the attempt.
	FirstStep() Step
}

// Question is what the engine needs from the question being attempted.
type Question interface {
	IsCompleteResponse(r Response) bool
	IsGradableResponse(r Response) bool
	IsSameResponse(prev, next Response) bool
	SummariseResponse(r Response) string
	CanSelfRate() bool
	CanSelfComment() bool
}

// Formatter renders a catalog string with named arguments.
type Formatter interface {
	Format(key string, args map[string]string) string
}

// Behaviour is the self-assessment state machine for one question. It holds
// no per-attempt state and may be shared between goroutines.
type Behaviour struct {
	question Question
	strings  Formatter
	logger   *zap.Logger
}

// Option configures a Behaviour.
type Option func(*Behaviour)

// WithLogger sets the logger used for decisions and contract violations.
func WithLogger(l *zap.Logger) Option {
	return func(b *Behaviour) {
		if l != nil {
			b.logger = l
		}
	}
}

// New creates a Behaviour for q using f for summary text.
func New(q Question, f Formatter, opts ...Option) *Behaviour {
	b := &Behaviour{
		question: q,
		strings:  f,
		logger:   zap.NewNop(),
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

// Question returns the question this behaviour drives.
func (b *Behaviour) Question() Question { return b.question }

// ProcessAction routes a pending action to its handler. A non-nil error is
// always a ContractViolation; user mistakes surface as StateInvalid.
func (b *Behaviour) ProcessAction(h History, p Pending) (Transition, error) {
	kind := Classify(p.Vars, h.IsFinished())

	var (
		t   Transition
		err error
	)
	switch kind {
	case ActionSubmit:
		t = b.processSubmit(h, p)
	case ActionFinish:
		t = b.processFinish(h, p)
	case ActionSelfAssess:
		t, err = b.processSelfAssess(h, p)
	case ActionComment:
		t, err = b.processComment(h, p)
	case ActionSave:
		t = b.processSave(h, p)
	}
	if err != nil {
		b.logger.DPanic("self-assessment contract violated",
			zap.String("action", kind.String()),
			zap.String("state", h.State().String()),
			zap.Error(err))
		return Transition{}, err
	}

	t.Action = kind
	b.logger.Debug("processed action",
		zap.String("action", kind.String()),
		zap.String("decision", t.Decision.String()),
		zap.String("from", h.State().String()),
		zap.String("to", t.State.String()))
	return t, nil
}

func (b *Behaviour) processSubmit(h History, p Pending) Transition {
	if h.IsFinished() {
		return Transition{Decision: Discard}
	}
	response := effectiveResponse(h, p)
	if !b.question.IsCompleteResponse(response) {
		return Transition{
			Decision: Keep,
			State:    StateInvalid,
			Vars:     p.Vars,
			Response: response,
		}
	}
	return b.processFinish(h, p)
}

func (b *Behaviour) processFinish(h History, p Pending) Transition {
	if h.IsFinished() {
		return Transition{Decision: Discard}
	}
	response := effectiveResponse(h, p)
	state := StateNeedsGrading
	if !b.question.IsGradableResponse(response) {
		state = StateGaveUp
	}
	return Transition{
		Decision:        Keep,
		State:           state,
		Vars:            p.Vars,
		Response:        response,
		ResponseSummary: b.question.SummariseResponse(response),
	}
}

// processSave records a changed response. A complete response stays todo;
// only submit moves the attempt on.
func (b *Behaviour) processSave(h History, p Pending) Transition {
	if h.IsFinished() || p.Response == nil {
		return Transition{Decision: Discard}
	}
	if b.question.IsSameResponse(h.LastResponse(), p.Response) {
		return Transition{Decision: Discard}
	}
	return Transition{
		Decision: Keep,
		State:    StateTodo,
		Vars:     p.Vars,
		Response: p.Response,
	}
}

func effectiveResponse(h History, p Pending) Response {
	if p.Response != nil {
		return p.Response
	}
	return h.LastResponse()
}
