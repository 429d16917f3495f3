package coupon

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type Repository interface {
	CreateTx(ctx context.Context, tx *sqlx.Tx, p CreateParams) (*Coupon, error)
	GetByLedgerEntry(ctx context.Context, entryID uuid.UUID) (*Coupon, error)
	GetForAccount(ctx context.Context, accountID string, id uuid.UUID) (*Coupon, error)
	ListByAccount(ctx context.Context, accountID string) ([]Coupon, error)
	MarkRedeemed(ctx context.Context, code string) (*Coupon, error)
}
