package coupon

import (
	"time"

	"github.com/google/uuid"
)

const (
	StatusActive   = "active"
	StatusRedeemed = "redeemed"
	StatusExpired  = "expired"
)

type Coupon struct {
	ID            uuid.UUID  `db:"id" json:"id"`
	AccountID     string     `db:"account_id" json:"-"`
	RewardID      string     `db:"reward_id" json:"reward_id"`
	Code          string     `db:"code" json:"code"`
	LedgerEntryID uuid.UUID  `db:"ledger_entry_id" json:"-"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	ExpiresAt     time.Time  `db:"expires_at" json:"expires_at"`
	RedeemedAt    *time.Time `db:"redeemed_at" json:"redeemed_at,omitempty"`
}

// Status derives the coupon state at now. Redemption is terminal.
func (c *Coupon) Status(now time.Time) string {
	switch {
	case c.RedeemedAt != nil:
		return StatusRedeemed
	case !now.Before(c.ExpiresAt):
		return StatusExpired
	default:
		return StatusActive
	}
}

type CreateParams struct {
	AccountID     string
	RewardID      string
	Code          string
	LedgerEntryID uuid.UUID
	CreatedAt     time.Time
	ExpiresAt     time.Time
}
