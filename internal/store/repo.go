package store

import (
	"context"
	"errors"
	"time"

	"github.com/abhisek/selfassess/internal/behaviour"
	"github.com/abhisek/selfassess/internal/question"
)

var (
	// ErrNotFound is returned when a requested row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when a write collides with a concurrent one,
	// for example two steps appended at the same position of an attempt.
	ErrConflict = errors.New("conflict")
)

// Attempt is the stored header of an attempt. Its steps are stored
// separately and returned alongside it.
type Attempt struct {
	ID         string
	QuestionID string
	UserID     string
	MaxMark    float64
	State      behaviour.State
	Fraction   *float64
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// QuestionRepo manages question definitions.
type QuestionRepo interface {
	// Put inserts or replaces a question.
	Put(ctx context.Context, q *question.Definition) error

	// Get returns the question with id, or ErrNotFound.
	Get(ctx context.Context, id string) (*question.Definition, error)

	// List returns all questions ordered by creation time.
	List(ctx context.Context) ([]*question.Definition, error)
}

// AttemptRepo manages attempts and their append-only step history.
type AttemptRepo interface {
	// Create stores a new attempt together with its start step.
	Create(ctx context.Context, a Attempt, first behaviour.Step) error

	// Get returns the attempt header and all its steps in order.
	Get(ctx context.Context, id string) (Attempt, []behaviour.Step, error)

	// AppendStep stores step as the next entry of the attempt and updates the
	// attempt's current state and fraction. It returns ErrConflict when a
	// step with the same sequence number already exists.
	AppendStep(ctx context.Context, attemptID string, step behaviour.Step) error

	// ListByUser returns a user's attempts ordered by creation time.
	ListByUser(ctx context.Context, userID string) ([]Attempt, error)
}
