package identity

import "context"

type Repository interface {
	Get(ctx context.Context, externalCustomerID string) (*Mapping, error)
	Upsert(ctx context.Context, m Mapping) error
}
