package payment

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// Order is the shadow record of a payment kept for support and audits.
type Order struct {
	RefID       string    `db:"ref_id" json:"ref_id"`
	PaymentID   string    `db:"payment_id" json:"payment_id"`
	OrderID     string    `db:"order_id" json:"order_id"`
	LocationID  string    `db:"location_id" json:"location_id"`
	CustomerID  string    `db:"customer_id" json:"customer_id"`
	AccountID   string    `db:"account_id" json:"account_id"`
	AmountCents int64     `db:"amount_cents" json:"amount_cents"`
	Currency    string    `db:"currency" json:"currency"`
	Points      int64     `db:"points" json:"points"`
	Status      string    `db:"status" json:"status"`
	ReceivedAt  time.Time `db:"received_at" json:"received_at"`
}

type OrderRepository interface {
	Record(ctx context.Context, o Order) (bool, error)
}

type orderRepository struct {
	db *sqlx.DB
}

func NewOrderRepository(db *sqlx.DB) OrderRepository {
	return &orderRepository{db: db}
}

// Record stores o once per ref id. A payment first seen as unmapped is
// updated when a later delivery credits it. It reports false when the ref
// id was already credited and nothing changed.
func (r *orderRepository) Record(ctx context.Context, o Order) (bool, error) {
	if o.Currency == "" {
		o.Currency = "USD"
	}
	res, err := r.db.NamedExecContext(ctx, `
		INSERT INTO payment_orders
			(ref_id, payment_id, order_id, location_id, customer_id, account_id, amount_cents, currency, points, status)
		VALUES
			(:ref_id, :payment_id, :order_id, :location_id, :customer_id, :account_id, :amount_cents, :currency, :points, :status)
		ON CONFLICT (ref_id) DO UPDATE
		SET account_id = EXCLUDED.account_id,
		    status = EXCLUDED.status
		WHERE payment_orders.status <> 'credited'
	`, o)
	if err != nil {
		return false, fmt.Errorf("record payment order: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("record payment order: %w", err)
	}
	return n > 0, nil
}
