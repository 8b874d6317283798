package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Sequences keeps one row per prefix in id_sequences.
type Sequences struct{ db *sql.DB }

func NewSequences(db *sql.DB) *Sequences { return &Sequences{db: db} }

func (q *Sequences) Seed(ctx context.Context, prefix string, floor int64) error {
	_, err := q.db.ExecContext(ctx, seedSeqSQL, prefix, floor)
	return err
}

func (q *Sequences) Current(ctx context.Context, prefix string) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, currentSeqSQL, prefix).Scan(&n)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("current seq %s: %w", prefix, err)
	}
	return n, nil
}

func (q *Sequences) Next(ctx context.Context, prefix string) (int64, error) {
	res, err := q.db.ExecContext(ctx, nextSeqSQL, prefix)
	if err != nil {
		return 0, err
	}
	n, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("next seq %s: %w", prefix, err)
	}
	return n, nil
}
