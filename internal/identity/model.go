package identity

import "time"

// Mapping links a payment-provider customer to a loyalty account.
type Mapping struct {
	ExternalCustomerID string    `db:"external_customer_id" json:"external_customer_id"`
	AccountID          string    `db:"account_id" json:"account_id"`
	Email              string    `db:"email" json:"email"`
	CreatedAt          time.Time `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time `db:"updated_at" json:"updated_at"`
}
