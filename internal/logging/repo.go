package logging

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/abhisek/selfassess/internal/behaviour"
	"github.com/abhisek/selfassess/internal/store"
)

// attemptRepo is a decorator that logs every attempt write with its latency.
type attemptRepo struct {
	inner  store.AttemptRepo
	logger *zap.Logger
}

// WithAttemptLogging wraps repo so writes are logged at debug level and
// failures at warn.
func WithAttemptLogging(repo store.AttemptRepo, l *zap.Logger) store.AttemptRepo {
	return &attemptRepo{inner: repo, logger: l.Named("store")}
}

func (r *attemptRepo) Create(ctx context.Context, a store.Attempt, first behaviour.Step) error {
	start := time.Now()
	err := r.inner.Create(ctx, a, first)
	r.log("create attempt", start, err, zap.String("attempt_id", a.ID))
	return err
}

func (r *attemptRepo) AppendStep(ctx context.Context, attemptID string, step behaviour.Step) error {
	start := time.Now()
	err := r.inner.AppendStep(ctx, attemptID, step)
	r.log("append step", start, err,
		zap.String("attempt_id", attemptID),
		zap.Int("seq", step.Seq),
		zap.String("state", step.State.String()))
	return err
}

func (r *attemptRepo) Get(ctx context.Context, id string) (store.Attempt, []behaviour.Step, error) {
	return r.inner.Get(ctx, id)
}

func (r *attemptRepo) ListByUser(ctx context.Context, userID string) ([]store.Attempt, error) {
	return r.inner.ListByUser(ctx, userID)
}

func (r *attemptRepo) log(op string, start time.Time, err error, fields ...zap.Field) {
	fields = append(fields, zap.Duration("latency", time.Since(start)))
	if err != nil {
		r.logger.Warn(op+" failed", append(fields, zap.Error(err))...)
		return
	}
	r.logger.Debug(op, fields...)
}
