package ledger

import (
	"context"

	"github.com/jmoiron/sqlx"
)

type Repository interface {
	Append(ctx context.Context, p AppendParams) (*Entry, error)
	AppendTx(ctx context.Context, tx *sqlx.Tx, p AppendParams) (*Entry, error)
	GetByIdempotencyKey(ctx context.Context, key string) (*Entry, error)
	ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]Entry, error)
	SumByAccount(ctx context.Context, accountID string) (int64, error)
}
