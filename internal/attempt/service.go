package attempt

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/abhisek/selfassess/internal/action"
	"github.com/abhisek/selfassess/internal/behaviour"
	"github.com/abhisek/selfassess/internal/question"
	"github.com/abhisek/selfassess/internal/store"
)

// ErrNotOwner is returned when someone other than the student who started
// an attempt tries to self-assess it.
var ErrNotOwner = errors.New("only the student who started the attempt may self-assess it")

// CapabilityError reports a self-assessment field the question does not
// offer.
type CapabilityError struct {
	QuestionID string
	Field      string
}

func (e *CapabilityError) Error() string {
	return fmt.Sprintf("question %s does not offer %s", e.QuestionID, e.Field)
}

// HistoryEntry is a committed step together with its summary line.
type HistoryEntry struct {
	Step    behaviour.Step
	Summary string
}

// Result is the outcome of Service.Act.
type Result struct {
	Attempt    *Attempt
	Transition behaviour.Transition
}

// Kept reports whether the action produced a new step.
func (r Result) Kept() bool { return r.Transition.Decision == behaviour.Keep }

// Service runs attempts against persisted questions and steps.
type Service struct {
	questions store.QuestionRepo
	attempts  store.AttemptRepo
	strings   behaviour.Formatter
	logger    *zap.Logger
	now       func() time.Time
	newID     func() string
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithServiceLogger sets the logger for the service and the behaviours it
// builds.
func WithServiceLogger(l *zap.Logger) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

// NewService creates an attempt Service.
func NewService(questions store.QuestionRepo, attempts store.AttemptRepo, f behaviour.Formatter, opts ...ServiceOption) *Service {
	s := &Service{
		questions: questions,
		attempts:  attempts,
		strings:   f,
		logger:    zap.NewNop(),
		now:       time.Now,
		newID:     uuid.NewString,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Behaviour builds the state machine for q.
func (s *Service) Behaviour(q *question.Definition) *behaviour.Behaviour {
	return behaviour.New(q, s.strings, behaviour.WithLogger(s.logger.Named("behaviour")))
}

// AddQuestion validates and stores a question, assigning an ID and creation
// time when they are unset.
func (s *Service) AddQuestion(ctx context.Context, q *question.Definition) error {
	if err := q.Validate(); err != nil {
		return err
	}
	if q.ID == "" {
		q.ID = s.newID()
	}
	if q.CreatedAt.IsZero() {
		q.CreatedAt = s.now().UTC().Truncate(time.Millisecond)
	}
	q.Name = strings.TrimSpace(q.Name)
	if err := s.questions.Put(ctx, q); err != nil {
		return fmt.Errorf("add question: %w", err)
	}
	s.logger.Info("question added", zap.String("question_id", q.ID), zap.String("name", q.Name))
	return nil
}

// Question returns a stored question.
func (s *Service) Question(ctx context.Context, id string) (*question.Definition, error) {
	return s.questions.Get(ctx, id)
}

// Questions lists all stored questions.
func (s *Service) Questions(ctx context.Context) ([]*question.Definition, error) {
	return s.questions.List(ctx)
}

// Start creates a new attempt at questionID for userID.
func (s *Service) Start(ctx context.Context, questionID, userID string) (*Attempt, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, errors.New("start attempt: user id is required")
	}
	q, err := s.questions.Get(ctx, questionID)
	if err != nil {
		return nil, fmt.Errorf("start attempt: %w", err)
	}

	now := s.now().UTC().Truncate(time.Millisecond)
	a := New(s.newID(), q.ID, userID, q.MaxMark, now)
	header := store.Attempt{
		ID:         a.ID,
		QuestionID: a.QuestionID,
		UserID:     a.UserID,
		MaxMark:    a.MaxMark,
		State:      a.State(),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.attempts.Create(ctx, header, a.FirstStep()); err != nil {
		return nil, fmt.Errorf("start attempt: %w", err)
	}

	s.logger.Info("attempt started",
		zap.String("attempt_id", a.ID),
		zap.String("question_id", q.ID),
		zap.String("user_id", userID))
	return a, nil
}

// Get loads an attempt with all its steps.
func (s *Service) Get(ctx context.Context, attemptID string) (*Attempt, error) {
	header, steps, err := s.attempts.Get(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	if len(steps) == 0 {
		return nil, fmt.Errorf("attempt %s has no start step", attemptID)
	}
	return &Attempt{
		ID:         header.ID,
		QuestionID: header.QuestionID,
		UserID:     header.UserID,
		MaxMark:    header.MaxMark,
		CreatedAt:  header.CreatedAt,
		Steps:      steps,
	}, nil
}

// ListByUser returns the stored headers of a user's attempts.
func (s *Service) ListByUser(ctx context.Context, userID string) ([]store.Attempt, error) {
	return s.attempts.ListByUser(ctx, userID)
}

// Capabilities returns the self-assessment inputs offered by the question
// an attempt is at.
func (s *Service) Capabilities(ctx context.Context, a *Attempt) (action.Capabilities, error) {
	q, err := s.questions.Get(ctx, a.QuestionID)
	if err != nil {
		return action.Capabilities{}, fmt.Errorf("load question for attempt %s: %w", a.ID, err)
	}
	return action.CapabilitiesOf(q), nil
}

// load returns an attempt together with its question.
func (s *Service) load(ctx context.Context, attemptID string) (*Attempt, *question.Definition, error) {
	a, err := s.Get(ctx, attemptID)
	if err != nil {
		return nil, nil, err
	}
	q, err := s.questions.Get(ctx, a.QuestionID)
	if err != nil {
		return nil, nil, fmt.Errorf("load question for attempt %s: %w", attemptID, err)
	}
	return a, q, nil
}

// authorize rejects a self-assessment by anyone but the attempt's owner and
// fields the question does not offer.
func authorize(a *Attempt, q *question.Definition, p behaviour.Pending) error {
	if !a.IsFinished() || behaviour.Classify(p.Vars, true) != behaviour.ActionSelfAssess {
		return nil
	}
	if p.UserID != a.FirstStep().UserID {
		return fmt.Errorf("attempt %s: %w", a.ID, ErrNotOwner)
	}
	caps := action.CapabilitiesOf(q)
	switch {
	case !caps.Rate && p.Vars.Stars != nil:
		return &CapabilityError{QuestionID: q.ID, Field: behaviour.VarStars}
	case !caps.Comment && p.Vars.SelfComment != nil:
		return &CapabilityError{QuestionID: q.ID, Field: behaviour.VarSelfComment}
	case !caps.Comment && p.Vars.SelfCommentFormat != nil:
		return &CapabilityError{QuestionID: q.ID, Field: behaviour.VarSelfCommentFormat}
	}
	return nil
}

// Act processes one user action. A kept step is persisted before Act
// returns; a discarded one leaves the attempt unchanged. Only the owner may
// self-assess a finished attempt, and only with the fields its question
// offers. Two concurrent writers on the same attempt cannot both succeed:
// the loser gets an error wrapping store.ErrConflict and should reload and
// retry.
func (s *Service) Act(ctx context.Context, attemptID string, p behaviour.Pending) (Result, error) {
	a, q, err := s.load(ctx, attemptID)
	if err != nil {
		return Result{}, err
	}
	if p.UserID == "" {
		p.UserID = a.UserID
	}
	if err := authorize(a, q, p); err != nil {
		if errors.Is(err, ErrNotOwner) {
			s.logger.Warn("self-assessment by non-owner rejected",
				zap.String("attempt_id", attemptID),
				zap.String("user_id", p.UserID))
		}
		return Result{}, err
	}

	t, err := a.Apply(s.Behaviour(q), p, s.now().UTC().Truncate(time.Millisecond))
	if err != nil {
		return Result{}, fmt.Errorf("attempt %s: %w", attemptID, err)
	}
	if t.Decision == behaviour.Discard {
		s.logger.Debug("action discarded",
			zap.String("attempt_id", attemptID),
			zap.String("action", t.Action.String()))
		return Result{Attempt: a, Transition: t}, nil
	}

	step := a.LastStep()
	if err := s.attempts.AppendStep(ctx, attemptID, step); err != nil {
		if errors.Is(err, store.ErrConflict) {
			s.logger.Warn("concurrent step rejected",
				zap.String("attempt_id", attemptID),
				zap.Int("seq", step.Seq))
		}
		return Result{}, fmt.Errorf("save step: %w", err)
	}

	s.logger.Info("step saved",
		zap.String("attempt_id", attemptID),
		zap.Int("seq", step.Seq),
		zap.String("action", t.Action.String()),
		zap.String("state", step.State.String()))
	return Result{Attempt: a, Transition: t}, nil
}

// History returns every step of an attempt with its summary.
func (s *Service) History(ctx context.Context, attemptID string) ([]HistoryEntry, error) {
	a, q, err := s.load(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	b := s.Behaviour(q)
	out := make([]HistoryEntry, len(a.Steps))
	for i, st := range a.Steps {
		out[i] = HistoryEntry{Step: st, Summary: b.SummariseAction(st)}
	}
	return out, nil
}

// Expected returns the behaviour variables accepted in the attempt's
// current state, limited to what its question offers.
func (s *Service) Expected(ctx context.Context, attemptID string) (map[string]behaviour.ParamType, error) {
	a, q, err := s.load(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	return action.Expected(a.IsFinished(), action.CapabilitiesOf(q)), nil
}

// DisplayOptions adjusts base for viewerID looking at the attempt.
func (s *Service) DisplayOptions(ctx context.Context, attemptID, viewerID string, base behaviour.DisplayOptions) (behaviour.DisplayOptions, error) {
	a, err := s.Get(ctx, attemptID)
	if err != nil {
		return base, err
	}
	return behaviour.AdjustDisplayOptions(base, viewerID, a), nil
}
