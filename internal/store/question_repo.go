package store

import (
	"context"
	"fmt"
	"sort"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/abhisek/selfassess/internal/question"
)

type questionRepo struct {
	drv *entsql.Driver
}

var questionColumns = []string{"id", "name", "text", "max_mark", "self_rate", "self_comment", "created_at"}

func (r *questionRepo) Put(ctx context.Context, q *question.Definition) error {
	b := builder(r.drv)
	query, args := b.Insert("questions").
		Columns(questionColumns...).
		Values(q.ID, q.Name, q.Text, q.MaxMark, boolToInt(q.SelfRate), boolToInt(q.SelfComment), q.CreatedAt.UnixMilli()).
		OnConflict(entsql.ConflictColumns("id"), entsql.ResolveWithNewValues()).
		Query()
	if err := r.drv.Exec(ctx, query, args, nil); err != nil {
		return fmt.Errorf("save question: %w", err)
	}
	return nil
}

func (r *questionRepo) Get(ctx context.Context, id string) (*question.Definition, error) {
	b := builder(r.drv)
	query, args := b.Select(questionColumns...).
		From(b.Table("questions")).
		Where(entsql.EQ("id", id)).
		Query()

	var rows entsql.Rows
	if err := r.drv.Query(ctx, query, args, &rows); err != nil {
		return nil, fmt.Errorf("query question: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("query question: %w", err)
		}
		return nil, fmt.Errorf("question %s: %w", id, ErrNotFound)
	}
	return scanQuestion(&rows)
}

func (r *questionRepo) List(ctx context.Context) ([]*question.Definition, error) {
	b := builder(r.drv)
	query, args := b.Select(questionColumns...).
		From(b.Table("questions")).
		Query()

	var rows entsql.Rows
	if err := r.drv.Query(ctx, query, args, &rows); err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	defer rows.Close()

	var out []*question.Definition
	for rows.Next() {
		q, err := scanQuestion(&rows)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func scanQuestion(rows *entsql.Rows) (*question.Definition, error) {
	var (
		q                     question.Definition
		selfRate, selfComment int64
		createdAt             int64
	)
	if err := rows.Scan(&q.ID, &q.Name, &q.Text, &q.MaxMark, &selfRate, &selfComment, &createdAt); err != nil {
		return nil, fmt.Errorf("scan question: %w", err)
	}
	q.SelfRate = selfRate != 0
	q.SelfComment = selfComment != 0
	q.CreatedAt = fromMillis(createdAt)
	return &q, nil
}
