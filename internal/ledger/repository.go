package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"cnoloyalty/internal/balance"
	"cnoloyalty/internal/db"
)

var (
	ErrDuplicate     = errors.New("ledger entry already applied")
	ErrInvalidAmount = errors.New("delta points must be non-zero")
	ErrMissingKey    = errors.New("idempotency key is required")
	ErrNotFound      = errors.New("ledger entry not found")
)

type repository struct {
	db       *sqlx.DB
	balances balance.Repository
}

func NewRepository(db *sqlx.DB, balances balance.Repository) Repository {
	return &repository{db: db, balances: balances}
}

// Append records the entry and applies it to the balance in one transaction.
func (r *repository) Append(ctx context.Context, p AppendParams) (*Entry, error) {
	var entry *Entry
	err := db.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		var err error
		entry, err = r.AppendTx(ctx, tx, p)
		return err
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// AppendTx inserts the entry inside tx and moves the balance by the same
// delta. A repeated idempotency key yields ErrDuplicate with nothing written;
// a debit that would overdraw yields balance.ErrInsufficientFunds and the
// caller must roll tx back.
func (r *repository) AppendTx(ctx context.Context, tx *sqlx.Tx, p AppendParams) (*Entry, error) {
	if p.DeltaPoints == 0 {
		return nil, ErrInvalidAmount
	}
	if strings.TrimSpace(p.IdempotencyKey) == "" {
		return nil, ErrMissingKey
	}

	entry := &Entry{}
	err := tx.QueryRowxContext(ctx,
		`INSERT INTO loyalty_ledger (id, account_id, delta_points, reason, idempotency_key)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (idempotency_key) DO NOTHING
		 RETURNING id, account_id, delta_points, reason, idempotency_key, created_at`,
		uuid.New(), p.AccountID, p.DeltaPoints, p.Reason, p.IdempotencyKey,
	).StructScan(entry)
	if errors.Is(err, sql.ErrNoRows) || db.IsUniqueViolation(err, "") {
		return nil, ErrDuplicate
	}
	if err != nil {
		return nil, fmt.Errorf("insert ledger entry: %w", err)
	}

	if _, err := r.balances.ApplyTx(ctx, tx, p.AccountID, p.DeltaPoints); err != nil {
		return nil, err
	}

	return entry, nil
}

func (r *repository) GetByIdempotencyKey(ctx context.Context, key string) (*Entry, error) {
	entry := &Entry{}
	err := r.db.GetContext(ctx, entry,
		`SELECT id, account_id, delta_points, reason, idempotency_key, created_at
		 FROM loyalty_ledger
		 WHERE idempotency_key = $1`,
		key,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return entry, nil
}

func (r *repository) ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]Entry, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	entries := []Entry{}
	err := r.db.SelectContext(ctx, &entries, `
		SELECT id, account_id, delta_points, reason, idempotency_key, created_at
		FROM loyalty_ledger
		WHERE account_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`, accountID, limit, offset)
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// SumByAccount totals every entry for accountID. It is the authoritative
// balance the projection is checked against.
func (r *repository) SumByAccount(ctx context.Context, accountID string) (int64, error) {
	var total int64
	err := r.db.GetContext(ctx, &total,
		`SELECT COALESCE(SUM(delta_points), 0) FROM loyalty_ledger WHERE account_id = $1`,
		accountID,
	)
	if err != nil {
		return 0, fmt.Errorf("sum ledger: %w", err)
	}
	return total, nil
}
