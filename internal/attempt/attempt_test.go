package attempt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/selfassess/internal/behaviour"
	"github.com/abhisek/selfassess/internal/lang"
	"github.com/abhisek/selfassess/internal/question"
)

var t0 = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func newQuestion(maxMark float64) *question.Definition {
	return &question.Definition{
		ID:          "q1",
		Name:        "Describe a sunset",
		MaxMark:     maxMark,
		SelfRate:    true,
		SelfComment: true,
	}
}

// setup returns a fresh attempt and the behaviour driving it.
func setup(q *question.Definition) (*Attempt, *behaviour.Behaviour) {
	a := New("a1", q.ID, "student", q.MaxMark, t0)
	return a, behaviour.New(q, lang.English())
}

func apply(t *testing.T, a *Attempt, b *behaviour.Behaviour, v behaviour.Vars, r behaviour.Response) behaviour.Transition {
	t.Helper()
	tr, err := a.Apply(b, behaviour.Pending{Vars: v, Response: r, UserID: "student"}, t0.Add(time.Duration(a.StepCount())*time.Minute))
	require.NoError(t, err)
	return tr
}

// submitted returns an attempt already in needsgrading.
func submitted(t *testing.T, q *question.Definition) (*Attempt, *behaviour.Behaviour) {
	t.Helper()
	a, b := setup(q)
	apply(t, a, b, behaviour.Vars{Submit: true}, behaviour.Response{question.AnswerVar: "An orange sky."})
	require.Equal(t, behaviour.StateNeedsGrading, a.State())
	return a, b
}

func assessVars(comment string, stars int) behaviour.Vars {
	return behaviour.Vars{
		Rate:        true,
		Stars:       behaviour.IntPtr(stars),
		SelfComment: behaviour.StringPtr(comment),
	}
}

func TestNewAttempt(t *testing.T) {
	a := New("a1", "q1", "student", 5, t0)
	require.Equal(t, 1, a.StepCount())
	assert.Equal(t, behaviour.StateTodo, a.State())
	assert.Equal(t, "student", a.FirstStep().UserID)
	assert.False(t, a.IsFinished())
	assert.Nil(t, a.Mark())
}

func TestScenarioIncompleteSubmit(t *testing.T) {
	a, b := setup(newQuestion(5))

	tr := apply(t, a, b, behaviour.Vars{Submit: true}, behaviour.Response{question.AnswerVar: "  "})

	assert.Equal(t, behaviour.Keep, tr.Decision)
	assert.Equal(t, behaviour.StateInvalid, a.State())
	assert.Equal(t, 2, a.StepCount())
	assert.Nil(t, a.Mark())
}

func TestScenarioRateWithComment(t *testing.T) {
	a, b := submitted(t, newQuestion(5))

	apply(t, a, b, assessVars("Sounds OK", 4), nil)

	assert.Equal(t, behaviour.StateManFinished, a.State())
	require.NotNil(t, a.Mark())
	assert.InDelta(t, 4.0, *a.Mark(), 1e-9)
	assert.Equal(t, "Self-assessed 4 stars with comment: Sounds OK", b.SummariseAction(a.LastStep()))
}

func TestScenarioRepeatIsDiscarded(t *testing.T) {
	a, b := submitted(t, newQuestion(5))
	apply(t, a, b, assessVars("Sounds OK", 4), nil)
	count := a.StepCount()

	tr := apply(t, a, b, assessVars("Sounds OK", 4), nil)

	assert.Equal(t, behaviour.Discard, tr.Decision)
	assert.Equal(t, count, a.StepCount())
	require.NotNil(t, a.Mark())
	assert.InDelta(t, 4.0, *a.Mark(), 1e-9)
}

func TestScenarioCommentOnlyZeroMark(t *testing.T) {
	a, b := submitted(t, newQuestion(0))

	apply(t, a, b, behaviour.Vars{Rate: true, SelfComment: behaviour.StringPtr("Sounds OK")}, nil)

	assert.Equal(t, behaviour.StateManFinished, a.State())
	assert.Nil(t, a.Mark())
	assert.Equal(t, "Commented: Sounds OK", b.SummariseAction(a.LastStep()))
}

func TestScenarioImplicitAssessment(t *testing.T) {
	a, b := submitted(t, newQuestion(5))

	tr := apply(t, a, b, behaviour.Vars{Stars: behaviour.IntPtr(3), SelfComment: behaviour.StringPtr("Seems OK")}, nil)

	assert.Equal(t, behaviour.ActionSelfAssess, tr.Action)
	assert.True(t, a.LastStep().Vars.Implicit)
	assert.Equal(t, behaviour.StateManFinished, a.State())
	require.NotNil(t, a.Mark())
	assert.InDelta(t, 3.0, *a.Mark(), 1e-9)
	assert.Contains(t, b.SummariseAction(a.LastStep()), "Self-assessed 3 stars with comment: Seems OK")
}

func TestReassessmentReplacesMark(t *testing.T) {
	a, b := submitted(t, newQuestion(10))
	apply(t, a, b, assessVars("first", 2), nil)
	apply(t, a, b, assessVars("first", 5), nil)

	require.NotNil(t, a.Mark())
	assert.InDelta(t, 10.0, *a.Mark(), 1e-9)
	stars, ok := a.LastStars()
	assert.True(t, ok)
	assert.Equal(t, 5, stars)
}

func TestHistoryLookups(t *testing.T) {
	a, b := submitted(t, newQuestion(5))
	apply(t, a, b, assessVars("Great", 4), nil)
	apply(t, a, b, assessVars("", 3), nil)

	v, ok := a.LastVar(behaviour.VarSelfComment)
	assert.True(t, ok)
	assert.Equal(t, "", v)

	// The blank comment above cleared the earlier one.
	_, ok = a.LastSelfComment()
	assert.False(t, ok)

	assert.Equal(t, "An orange sky.", a.LastResponse()[question.AnswerVar])

	last, ok := a.LastAssessment()
	require.True(t, ok)
	assert.Equal(t, 3, *last.Stars)
}

func TestLastAssessmentNone(t *testing.T) {
	a, _ := submitted(t, newQuestion(5))
	_, ok := a.LastAssessment()
	assert.False(t, ok)
	_, ok = a.LastStars()
	assert.False(t, ok)
	_, ok = a.LastSelfComment()
	assert.False(t, ok)
}

func TestApplyContractViolationLeavesAttempt(t *testing.T) {
	a, b := setup(newQuestion(5))

	_, err := a.Apply(b, behaviour.Pending{Vars: assessVars("early", 3), UserID: "student"}, t0)

	assert.ErrorIs(t, err, behaviour.ErrContractViolation)
	assert.Equal(t, 1, a.StepCount())
}

func TestApplyAssignsSequence(t *testing.T) {
	a, b := setup(newQuestion(5))
	apply(t, a, b, behaviour.Vars{}, behaviour.Response{question.AnswerVar: "draft"})
	apply(t, a, b, behaviour.Vars{Submit: true}, behaviour.Response{question.AnswerVar: "final"})

	for i, s := range a.Steps {
		assert.Equal(t, i, s.Seq)
	}
	assert.Equal(t, behaviour.StateTodo, a.Steps[1].State)
	assert.Equal(t, "final", a.Steps[2].ResponseSummary)
}
