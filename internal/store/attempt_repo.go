package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/jackc/pgx/v5/pgconn"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/abhisek/selfassess/internal/behaviour"
)

type attemptRepo struct {
	drv *entsql.Driver
}

var (
	attemptColumns = []string{"id", "question_id", "user_id", "max_mark", "state", "fraction", "created_at", "updated_at"}
	stepColumns    = []string{"attempt_id", "seq", "state", "fraction", "vars_json", "response_json", "response_summary", "user_id", "created_at"}
)

func (r *attemptRepo) Create(ctx context.Context, a Attempt, first behaviour.Step) error {
	b := builder(r.drv)
	query, args := b.Insert("attempts").
		Columns(attemptColumns...).
		Values(a.ID, a.QuestionID, a.UserID, a.MaxMark, string(first.State), nullFloat(first.Fraction),
			a.CreatedAt.UnixMilli(), a.CreatedAt.UnixMilli()).
		Query()

	return r.inTx(ctx, func(tx dialect.Tx) error {
		if err := tx.Exec(ctx, query, args, nil); err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("create attempt %s: %w", a.ID, ErrConflict)
			}
			return fmt.Errorf("create attempt: %w", err)
		}
		return insertStep(ctx, tx, b, a.ID, first)
	})
}

func (r *attemptRepo) AppendStep(ctx context.Context, attemptID string, step behaviour.Step) error {
	b := builder(r.drv)
	query, args := b.Update("attempts").
		Set("state", string(step.State)).
		Set("fraction", nullFloat(step.Fraction)).
		Set("updated_at", step.CreatedAt.UnixMilli()).
		Where(entsql.EQ("id", attemptID)).
		Query()

	return r.inTx(ctx, func(tx dialect.Tx) error {
		var res sql.Result
		if err := tx.Exec(ctx, query, args, &res); err != nil {
			return fmt.Errorf("update attempt: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("update attempt: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("attempt %s: %w", attemptID, ErrNotFound)
		}
		return insertStep(ctx, tx, b, attemptID, step)
	})
}

func (r *attemptRepo) Get(ctx context.Context, id string) (Attempt, []behaviour.Step, error) {
	b := builder(r.drv)
	query, args := b.Select(attemptColumns...).
		From(b.Table("attempts")).
		Where(entsql.EQ("id", id)).
		Query()

	var rows entsql.Rows
	if err := r.drv.Query(ctx, query, args, &rows); err != nil {
		return Attempt{}, nil, fmt.Errorf("query attempt: %w", err)
	}
	if !rows.Next() {
		err := rows.Err()
		rows.Close()
		if err != nil {
			return Attempt{}, nil, fmt.Errorf("query attempt: %w", err)
		}
		return Attempt{}, nil, fmt.Errorf("attempt %s: %w", id, ErrNotFound)
	}
	a, err := scanAttempt(&rows)
	rows.Close()
	if err != nil {
		return Attempt{}, nil, err
	}

	steps, err := r.steps(ctx, id)
	if err != nil {
		return Attempt{}, nil, err
	}
	return a, steps, nil
}

func (r *attemptRepo) ListByUser(ctx context.Context, userID string) ([]Attempt, error) {
	b := builder(r.drv)
	query, args := b.Select(attemptColumns...).
		From(b.Table("attempts")).
		Where(entsql.EQ("user_id", userID)).
		Query()

	var rows entsql.Rows
	if err := r.drv.Query(ctx, query, args, &rows); err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	defer rows.Close()

	var out []Attempt
	for rows.Next() {
		a, err := scanAttempt(&rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *attemptRepo) steps(ctx context.Context, attemptID string) ([]behaviour.Step, error) {
	b := builder(r.drv)
	query, args := b.Select(stepColumns[1:]...).
		From(b.Table("steps")).
		Where(entsql.EQ("attempt_id", attemptID)).
		OrderBy("seq").
		Query()

	var rows entsql.Rows
	if err := r.drv.Query(ctx, query, args, &rows); err != nil {
		return nil, fmt.Errorf("query steps: %w", err)
	}
	defer rows.Close()

	var out []behaviour.Step
	for rows.Next() {
		s, err := scanStep(&rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query steps: %w", err)
	}
	return out, nil
}

func (r *attemptRepo) inTx(ctx context.Context, fn func(tx dialect.Tx) error) error {
	tx, err := r.drv.Tx(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func insertStep(ctx context.Context, tx dialect.Tx, b *entsql.DialectBuilder, attemptID string, s behaviour.Step) error {
	varsJSON, err := json.Marshal(s.Vars.Raw())
	if err != nil {
		return fmt.Errorf("encode step vars: %w", err)
	}
	var responseJSON sql.NullString
	if s.Response != nil {
		buf, err := json.Marshal(s.Response)
		if err != nil {
			return fmt.Errorf("encode step response: %w", err)
		}
		responseJSON = sql.NullString{String: string(buf), Valid: true}
	}

	query, args := b.Insert("steps").
		Columns(stepColumns...).
		Values(attemptID, s.Seq, string(s.State), nullFloat(s.Fraction), string(varsJSON), responseJSON,
			s.ResponseSummary, s.UserID, s.CreatedAt.UnixMilli()).
		Query()
	if err := tx.Exec(ctx, query, args, nil); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("step %d of attempt %s: %w", s.Seq, attemptID, ErrConflict)
		}
		return fmt.Errorf("insert step: %w", err)
	}
	return nil
}

func scanAttempt(rows *entsql.Rows) (Attempt, error) {
	var (
		a                    Attempt
		state                string
		fraction             sql.NullFloat64
		createdAt, updatedAt int64
	)
	if err := rows.Scan(&a.ID, &a.QuestionID, &a.UserID, &a.MaxMark, &state, &fraction, &createdAt, &updatedAt); err != nil {
		return Attempt{}, fmt.Errorf("scan attempt: %w", err)
	}
	a.State = behaviour.State(state)
	if !a.State.IsValid() {
		return Attempt{}, fmt.Errorf("scan attempt %s: unknown state %q", a.ID, state)
	}
	a.Fraction = floatPtr(fraction)
	a.CreatedAt = fromMillis(createdAt)
	a.UpdatedAt = fromMillis(updatedAt)
	return a, nil
}

func scanStep(rows *entsql.Rows) (behaviour.Step, error) {
	var (
		s            behaviour.Step
		state        string
		fraction     sql.NullFloat64
		varsJSON     string
		responseJSON sql.NullString
		createdAt    int64
	)
	if err := rows.Scan(&s.Seq, &state, &fraction, &varsJSON, &responseJSON, &s.ResponseSummary, &s.UserID, &createdAt); err != nil {
		return behaviour.Step{}, fmt.Errorf("scan step: %w", err)
	}
	s.State = behaviour.State(state)
	if !s.State.IsValid() {
		return behaviour.Step{}, fmt.Errorf("scan step %d: unknown state %q", s.Seq, state)
	}
	s.Fraction = floatPtr(fraction)
	s.CreatedAt = fromMillis(createdAt)

	raw := map[string]string{}
	if err := json.Unmarshal([]byte(varsJSON), &raw); err != nil {
		return behaviour.Step{}, fmt.Errorf("decode step vars: %w", err)
	}
	vars, err := behaviour.ParseVars(raw)
	if err != nil {
		return behaviour.Step{}, fmt.Errorf("decode step vars: %w", err)
	}
	s.Vars = vars

	if responseJSON.Valid {
		if err := json.Unmarshal([]byte(responseJSON.String), &s.Response); err != nil {
			return behaviour.Step{}, fmt.Errorf("decode step response: %w", err)
		}
	}
	return s, nil
}

// isUniqueViolation reports whether err is a primary key or unique
// constraint failure from either backend.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3.SQLITE_CONSTRAINT_UNIQUE:
			return true
		case sqlite3.SQLITE_CONSTRAINT:
			// Extended result codes disabled on this connection.
			return strings.Contains(liteErr.Error(), "UNIQUE constraint failed")
		}
	}
	return false
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func floatPtr(f sql.NullFloat64) *float64 {
	if !f.Valid {
		return nil
	}
	v := f.Float64
	return &v
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
