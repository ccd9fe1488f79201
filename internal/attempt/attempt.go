package attempt

import (
	"strings"
	"time"

	"github.com/abhisek/selfassess/internal/behaviour"
)

// Attempt is one student's interaction with a question: an append-only
// list of steps, the first of which is the start step.
type Attempt struct {
	ID         string
	QuestionID string
	UserID     string
	MaxMark    float64
	CreatedAt  time.Time
	Steps      []behaviour.Step
}

var _ behaviour.History = (*Attempt)(nil)

// New creates an attempt with its start step in StateTodo.
func New(id, questionID, userID string, maxMark float64, now time.Time) *Attempt {
	return &Attempt{
		ID:         id,
		QuestionID: questionID,
		UserID:     userID,
		MaxMark:    maxMark,
		CreatedAt:  now,
		Steps: []behaviour.Step{{
			Seq:       0,
			State:     behaviour.StateTodo,
			UserID:    userID,
			CreatedAt: now,
		}},
	}
}

// Apply runs one pending action through b and appends the resulting step
// when it is kept.
func (a *Attempt) Apply(b *behaviour.Behaviour, p behaviour.Pending, now time.Time) (behaviour.Transition, error) {
	t, err := b.ProcessAction(a, p)
	if err != nil {
		return behaviour.Transition{}, err
	}
	if t.Decision == behaviour.Keep {
		a.Steps = append(a.Steps, t.Step(len(a.Steps), p.UserID, now))
	}
	return t, nil
}

// StepCount is the number of committed steps, including the start step.
func (a *Attempt) StepCount() int { return len(a.Steps) }

// LastStep returns the most recent step.
func (a *Attempt) LastStep() behaviour.Step {
	return a.Steps[len(a.Steps)-1]
}

func (a *Attempt) State() behaviour.State { return a.LastStep().State }

func (a *Attempt) IsFinished() bool { return a.State().IsFinished() }

func (a *Attempt) FirstStep() behaviour.Step { return a.Steps[0] }

// Fraction is the fraction recorded on the last step, nil when it has none.
func (a *Attempt) Fraction() *float64 { return a.LastStep().Fraction }

// Mark scales Fraction by MaxMark. It is nil when there is no fraction.
func (a *Attempt) Mark() *float64 {
	f := a.Fraction()
	if f == nil {
		return nil
	}
	m := *f * a.MaxMark
	return &m
}

func (a *Attempt) LastVar(name string) (string, bool) {
	for i := len(a.Steps) - 1; i >= 0; i-- {
		if v, ok := a.Steps[i].Vars.Lookup(name); ok {
			return v, true
		}
	}
	return "", false
}

func (a *Attempt) LastResponse() behaviour.Response {
	for i := len(a.Steps) - 1; i >= 0; i-- {
		if a.Steps[i].Response != nil {
			return a.Steps[i].Response
		}
	}
	return nil
}

func (a *Attempt) LastAssessment() (behaviour.Vars, bool) {
	for i := len(a.Steps) - 1; i >= 0; i-- {
		if behaviour.IsSelfAssessment(a.Steps[i]) {
			return a.Steps[i].Vars, true
		}
	}
	return behaviour.Vars{}, false
}

// LastSelfComment returns the most recent self comment. A blank latest
// comment means the student cleared it, so none is reported.
func (a *Attempt) LastSelfComment() (string, bool) {
	c, ok := a.LastVar(behaviour.VarSelfComment)
	if !ok || strings.TrimSpace(c) == "" {
		return "", false
	}
	return c, true
}

// LastStars returns the star rating of the most recent self-assessment.
func (a *Attempt) LastStars() (int, bool) {
	v, ok := a.LastAssessment()
	if !ok || v.Stars == nil {
		return 0, false
	}
	return *v.Stars, true
}
