package balance

import (
	"context"

	"github.com/jmoiron/sqlx"
)

type Repository interface {
	Get(ctx context.Context, accountID string) (*Balance, error)
	ApplyTx(ctx context.Context, q sqlx.QueryerContext, accountID string, delta int64) (int64, error)
	ListDrift(ctx context.Context, limit int) ([]Drift, error)
	Rebuild(ctx context.Context, accountID string) (int64, error)
}
