package identity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

var ErrNotFound = errors.New("identity mapping not found")

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Get(ctx context.Context, externalCustomerID string) (*Mapping, error) {
	m := &Mapping{}
	err := r.db.GetContext(ctx, m,
		`SELECT external_customer_id, account_id, email, created_at, updated_at
		 FROM identity_mappings
		 WHERE external_customer_id = $1`,
		externalCustomerID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load identity mapping: %w", err)
	}
	return m, nil
}

// Upsert stores m, replacing the account and email of an existing mapping.
func (r *repository) Upsert(ctx context.Context, m Mapping) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO identity_mappings (external_customer_id, account_id, email)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (external_customer_id) DO UPDATE
		 SET account_id = EXCLUDED.account_id,
		     email = EXCLUDED.email,
		     updated_at = NOW()`,
		m.ExternalCustomerID, m.AccountID, m.Email,
	)
	if err != nil {
		return fmt.Errorf("save identity mapping: %w", err)
	}
	return nil
}
