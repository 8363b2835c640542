package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/garnizeh/talentflow/internal/errs"
)

func nextOrder(ctx context.Context, q querier) (int, error) {
	var n int
	if err := q.QueryRowContext(ctx, `SELECT COALESCE(MAX(ord) + 1, 0) FROM jobs`).Scan(&n); err != nil {
		return 0, fmt.Errorf("next order: %w", err)
	}
	return n, nil
}

// ReorderJob moves the job at fromOrder to toOrder. Jobs strictly between the
// two endpoints, plus the one at toOrder, shift by one towards fromOrder.
// Either every order changes or none does. UpdatedAt is left untouched.
func (r *SQLiteRepo) ReorderJob(ctx context.Context, id string, fromOrder, toOrder int) error {
	return r.conn.WithTx(ctx, func(tx *sql.Tx) error {
		var n int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(1) FROM jobs`).Scan(&n); err != nil {
			return fmt.Errorf("count jobs: %w", err)
		}

		var cur int
		if err := tx.QueryRowContext(ctx, `SELECT ord FROM jobs WHERE id = ?`, id).Scan(&cur); err != nil {
			if err == sql.ErrNoRows {
				return errs.NotFound("job", id)
			}
			return fmt.Errorf("load job order: %w", err)
		}
		if toOrder < 0 || toOrder >= n {
			return errs.Validation("toOrder out of range", map[string]string{
				"toOrder": fmt.Sprintf("must be between 0 and %d", n-1),
			})
		}
		if cur != fromOrder {
			return errs.Conflict("job %s is at order %d, not %d", id, cur, fromOrder)
		}
		if fromOrder == toOrder {
			return nil
		}

		var err error
		if fromOrder < toOrder {
			_, err = tx.ExecContext(ctx, `UPDATE jobs SET ord = ord - 1 WHERE ord > ? AND ord <= ?`, fromOrder, toOrder)
		} else {
			_, err = tx.ExecContext(ctx, `UPDATE jobs SET ord = ord + 1 WHERE ord >= ? AND ord < ?`, toOrder, fromOrder)
		}
		if err != nil {
			return fmt.Errorf("shift orders: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `UPDATE jobs SET ord = ? WHERE id = ?`, toOrder, id); err != nil {
			return fmt.Errorf("place job: %w", err)
		}

		r.logger.Debug("job reordered", slog.String("id", id), slog.Int("from", fromOrder), slog.Int("to", toOrder))
		return nil
	})
}

// JobOrders returns the order of every job keyed by id.
func (r *SQLiteRepo) JobOrders(ctx context.Context) (map[string]int, error) {
	return jobOrders(ctx, r.q())
}

func jobOrders(ctx context.Context, q querier) (map[string]int, error) {
	rows, err := q.QueryContext(ctx, `SELECT id, ord FROM jobs`)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	out := map[string]int{}
	for rows.Next() {
		var (
			id  string
			ord int
		)
		if err := rows.Scan(&id, &ord); err != nil {
			return nil, err
		}
		out[id] = ord
	}
	return out, rows.Err()
}

// RestoreOrders puts back a previously captured ordering. Ids that no longer
// exist are ignored.
func (r *SQLiteRepo) RestoreOrders(ctx context.Context, orders map[string]int) error {
	return r.conn.WithTx(ctx, func(tx *sql.Tx) error {
		return restoreOrders(ctx, tx, orders)
	})
}

func restoreOrders(ctx context.Context, q querier, orders map[string]int) error {
	for id, ord := range orders {
		if _, err := q.ExecContext(ctx, `UPDATE jobs SET ord = ? WHERE id = ?`, ord, id); err != nil {
			return fmt.Errorf("restore order of %s: %w", id, err)
		}
	}
	return nil
}
