package ledger

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
)

// DailyStats summarizes ledger activity for one calendar day (UTC).
type DailyStats struct {
	Day            string `db:"day" json:"day"`
	PointsEarned   int64  `db:"points_earned" json:"points_earned"`
	PointsRedeemed int64  `db:"points_redeemed" json:"points_redeemed"`
	Credits        int    `db:"credits" json:"credits"`
	Redemptions    int    `db:"redemptions" json:"redemptions"`
	Accounts       int    `db:"accounts" json:"accounts"`
}

type Analytics struct {
	db *sqlx.DB
}

func NewAnalytics(db *sqlx.DB) *Analytics {
	return &Analytics{db: db}
}

// StatsByDay buckets entries created in [from, to) by day.
func (a *Analytics) StatsByDay(ctx context.Context, from, to time.Time) ([]DailyStats, error) {
	query := `
SELECT
  TO_CHAR(DATE(created_at AT TIME ZONE 'UTC'), 'YYYY-MM-DD')            AS day,
  COALESCE(SUM(delta_points) FILTER (WHERE delta_points > 0), 0)        AS points_earned,
  COALESCE(-SUM(delta_points) FILTER (WHERE delta_points < 0), 0)       AS points_redeemed,
  COUNT(*) FILTER (WHERE delta_points > 0)                              AS credits,
  COUNT(*) FILTER (WHERE delta_points < 0)                              AS redemptions,
  COUNT(DISTINCT account_id)                                            AS accounts
FROM loyalty_ledger
WHERE created_at >= $1 AND created_at < $2
GROUP BY DATE(created_at AT TIME ZONE 'UTC')
ORDER BY day;
`
	stats := []DailyStats{}
	if err := a.db.SelectContext(ctx, &stats, query, from, to); err != nil {
		return nil, err
	}
	return stats, nil
}
