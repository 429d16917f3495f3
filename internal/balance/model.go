package balance

import "time"

// Balance is the running point total for one account, a projection of the ledger.
type Balance struct {
	AccountID string     `db:"account_id" json:"account_id"`
	Points    int64      `db:"points" json:"points"`
	Version   int64      `db:"version" json:"-"`
	UpdatedAt *time.Time `db:"updated_at" json:"updated_at"`
}

// Drift describes an account whose balance row disagrees with its ledger.
type Drift struct {
	AccountID    string `db:"account_id" json:"account_id"`
	CachedPoints int64  `db:"cached_points" json:"cached_points"`
	LedgerPoints int64  `db:"ledger_points" json:"ledger_points"`
}
