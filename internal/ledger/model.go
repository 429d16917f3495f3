package ledger

import (
	"time"

	"github.com/google/uuid"
)

const (
	ReasonEarnSquare   = "earn:square"
	reasonRedeemPrefix = "redeem:"
)

// Entry is one immutable point-changing event.
type Entry struct {
	ID             uuid.UUID `db:"id" json:"id"`
	AccountID      string    `db:"account_id" json:"account_id"`
	DeltaPoints    int64     `db:"delta_points" json:"delta_points"`
	Reason         string    `db:"reason" json:"reason"`
	IdempotencyKey string    `db:"idempotency_key" json:"-"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

type AppendParams struct {
	AccountID      string
	DeltaPoints    int64
	Reason         string
	IdempotencyKey string
}

// RedeemReason tags a debit for the given reward.
func RedeemReason(rewardID string) string {
	return reasonRedeemPrefix + rewardID
}
