package balance

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

var (
	ErrInsufficientFunds = errors.New("insufficient points")
)

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

// Get returns the balance for accountID, or a zero balance if none exists yet.
func (r *repository) Get(ctx context.Context, accountID string) (*Balance, error) {
	b := &Balance{}
	err := r.db.GetContext(ctx, b,
		`SELECT account_id, points, version, updated_at
		 FROM loyalty_balances
		 WHERE account_id = $1`,
		accountID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return &Balance{AccountID: accountID}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load balance: %w", err)
	}
	return b, nil
}

// ApplyTx adds delta to the balance row with a single atomic statement so
// concurrent callers never overwrite each other. Credits create the row on
// first use. Debits only succeed while the result stays non-negative.
func (r *repository) ApplyTx(ctx context.Context, q sqlx.QueryerContext, accountID string, delta int64) (int64, error) {
	var points int64

	if delta >= 0 {
		err := sqlx.GetContext(ctx, q, &points,
			`INSERT INTO loyalty_balances (account_id, points, version, updated_at)
			 VALUES ($1, $2, 1, NOW())
			 ON CONFLICT (account_id) DO UPDATE
			 SET points = loyalty_balances.points + EXCLUDED.points,
			     version = loyalty_balances.version + 1,
			     updated_at = NOW()
			 RETURNING points`,
			accountID, delta,
		)
		if err != nil {
			return 0, fmt.Errorf("credit balance: %w", err)
		}
		return points, nil
	}

	err := sqlx.GetContext(ctx, q, &points,
		`UPDATE loyalty_balances
		 SET points = points + $2,
		     version = version + 1,
		     updated_at = NOW()
		 WHERE account_id = $1 AND points + $2 >= 0
		 RETURNING points`,
		accountID, delta,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrInsufficientFunds
	}
	if err != nil {
		return 0, fmt.Errorf("debit balance: %w", err)
	}
	return points, nil
}

// ListDrift finds accounts whose balance row differs from the ledger sum,
// including ledger accounts with no balance row and balance rows with no
// ledger entries.
func (r *repository) ListDrift(ctx context.Context, limit int) ([]Drift, error) {
	if limit <= 0 {
		limit = 100
	}

	drift := []Drift{}
	err := r.db.SelectContext(ctx, &drift, `
		SELECT COALESCE(l.account_id, b.account_id) AS account_id,
		       COALESCE(b.points, 0) AS cached_points,
		       COALESCE(l.total, 0) AS ledger_points
		FROM (
			SELECT account_id, SUM(delta_points) AS total
			FROM loyalty_ledger
			GROUP BY account_id
		) l
		FULL OUTER JOIN loyalty_balances b ON b.account_id = l.account_id
		WHERE b.account_id IS NULL OR b.points <> COALESCE(l.total, 0)
		ORDER BY 1
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list balance drift: %w", err)
	}
	return drift, nil
}

// Rebuild recomputes one balance row from the ledger while holding the row
// lock, so it serializes with ApplyTx on the same account.
func (r *repository) Rebuild(ctx context.Context, accountID string) (int64, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO loyalty_balances (account_id, points, version, updated_at)
		 VALUES ($1, 0, 0, NOW())
		 ON CONFLICT (account_id) DO NOTHING`,
		accountID,
	)
	if err != nil {
		return 0, fmt.Errorf("ensure balance row: %w", err)
	}

	if _, err = tx.ExecContext(ctx,
		`SELECT points FROM loyalty_balances WHERE account_id = $1 FOR UPDATE`,
		accountID,
	); err != nil {
		return 0, fmt.Errorf("lock balance row: %w", err)
	}

	var total int64
	if err = tx.GetContext(ctx, &total,
		`SELECT COALESCE(SUM(delta_points), 0) FROM loyalty_ledger WHERE account_id = $1`,
		accountID,
	); err != nil {
		return 0, fmt.Errorf("sum ledger: %w", err)
	}
	if total < 0 {
		return 0, fmt.Errorf("ledger for %s sums to %d: %w", accountID, total, ErrInsufficientFunds)
	}

	if _, err = tx.ExecContext(ctx,
		`UPDATE loyalty_balances
		 SET points = $2, version = version + 1, updated_at = NOW()
		 WHERE account_id = $1`,
		accountID, total,
	); err != nil {
		return 0, fmt.Errorf("rewrite balance: %w", err)
	}

	return total, tx.Commit()
}
