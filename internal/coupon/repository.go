package coupon

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"cnoloyalty/internal/db"
)

const codeConstraint = "reward_coupons_code_key"

var (
	ErrNotFound        = errors.New("coupon not found")
	ErrCodeTaken       = errors.New("coupon code already in use")
	ErrAlreadyRedeemed = errors.New("coupon already redeemed")
	ErrExpired         = errors.New("coupon expired")
)

const couponColumns = `id, account_id, reward_id, code, ledger_entry_id, created_at, expires_at, redeemed_at`

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

// CreateTx inserts the coupon inside tx. A code collision leaves tx usable
// and returns ErrCodeTaken so the caller can retry with a fresh code.
func (r *repository) CreateTx(ctx context.Context, tx *sqlx.Tx, p CreateParams) (*Coupon, error) {
	c := &Coupon{}
	err := tx.QueryRowxContext(ctx,
		`INSERT INTO reward_coupons (id, account_id, reward_id, code, ledger_entry_id, created_at, expires_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (code) DO NOTHING
		 RETURNING `+couponColumns,
		uuid.New(), p.AccountID, p.RewardID, p.Code, p.LedgerEntryID, p.CreatedAt, p.ExpiresAt,
	).StructScan(c)
	if errors.Is(err, sql.ErrNoRows) || db.IsUniqueViolation(err, codeConstraint) {
		return nil, ErrCodeTaken
	}
	if err != nil {
		return nil, fmt.Errorf("insert coupon: %w", err)
	}
	return c, nil
}

func (r *repository) GetByLedgerEntry(ctx context.Context, entryID uuid.UUID) (*Coupon, error) {
	return r.getOne(ctx, `SELECT `+couponColumns+` FROM reward_coupons WHERE ledger_entry_id = $1`, entryID)
}

func (r *repository) GetForAccount(ctx context.Context, accountID string, id uuid.UUID) (*Coupon, error) {
	return r.getOne(ctx, `SELECT `+couponColumns+` FROM reward_coupons WHERE id = $1 AND account_id = $2`, id, accountID)
}

func (r *repository) getOne(ctx context.Context, query string, args ...interface{}) (*Coupon, error) {
	c := &Coupon{}
	err := r.db.GetContext(ctx, c, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (r *repository) ListByAccount(ctx context.Context, accountID string) ([]Coupon, error) {
	coupons := []Coupon{}
	err := r.db.SelectContext(ctx, &coupons, `
		SELECT `+couponColumns+`
		FROM reward_coupons
		WHERE account_id = $1
		ORDER BY created_at DESC
	`, accountID)
	if err != nil {
		return nil, err
	}
	return coupons, nil
}

// MarkRedeemed sets redeemed_at exactly once for an unexpired coupon.
func (r *repository) MarkRedeemed(ctx context.Context, code string) (*Coupon, error) {
	c := &Coupon{}
	err := r.db.QueryRowxContext(ctx,
		`UPDATE reward_coupons
		 SET redeemed_at = NOW()
		 WHERE code = $1 AND redeemed_at IS NULL AND expires_at > NOW()
		 RETURNING `+couponColumns,
		code,
	).StructScan(c)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	existing, err := r.getOne(ctx, `SELECT `+couponColumns+` FROM reward_coupons WHERE code = $1`, code)
	if err != nil {
		return nil, err
	}
	if existing.RedeemedAt != nil {
		return nil, ErrAlreadyRedeemed
	}
	return nil, ErrExpired
}
