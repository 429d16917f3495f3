package integration_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cnoloyalty/internal/balance"
	"cnoloyalty/internal/ledger"
)

func TestLedger_ConcurrentAppendsKeepBalanceEqualToSum(t *testing.T) {
	conn := setupTestDB(t)
	ctx := context.Background()
	balances := balance.NewRepository(conn)
	repo := ledger.NewRepository(conn, balances)

	const writers = 20
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := repo.Append(ctx, ledger.AppendParams{
				AccountID:      "acct-1",
				DeltaPoints:    5,
				Reason:         ledger.ReasonEarnSquare,
				IdempotencyKey: fmt.Sprintf("square:evt-%d", i),
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	b, err := balances.Get(ctx, "acct-1")
	require.NoError(t, err)
	sum, err := repo.SumByAccount(ctx, "acct-1")
	require.NoError(t, err)

	assert.Equal(t, int64(writers*5), b.Points)
	assert.Equal(t, b.Points, sum)
}

func TestLedger_DuplicateKeyAppliesOnce(t *testing.T) {
	conn := setupTestDB(t)
	ctx := context.Background()
	balances := balance.NewRepository(conn)
	repo := ledger.NewRepository(conn, balances)

	p := ledger.AppendParams{AccountID: "acct-1", DeltaPoints: 4, Reason: ledger.ReasonEarnSquare, IdempotencyKey: "square:evt-1"}

	_, err := repo.Append(ctx, p)
	require.NoError(t, err)
	_, err = repo.Append(ctx, p)
	assert.ErrorIs(t, err, ledger.ErrDuplicate)

	b, err := balances.Get(ctx, "acct-1")
	require.NoError(t, err)
	assert.Equal(t, int64(4), b.Points)
}

func TestLedger_OverdraftRejectedAndRolledBack(t *testing.T) {
	conn := setupTestDB(t)
	ctx := context.Background()
	balances := balance.NewRepository(conn)
	repo := ledger.NewRepository(conn, balances)

	_, err := repo.Append(ctx, ledger.AppendParams{AccountID: "acct-1", DeltaPoints: 10, Reason: ledger.ReasonEarnSquare, IdempotencyKey: "square:evt-1"})
	require.NoError(t, err)

	_, err = repo.Append(ctx, ledger.AppendParams{AccountID: "acct-1", DeltaPoints: -11, Reason: ledger.RedeemReason("x"), IdempotencyKey: "redeem:1"})
	assert.ErrorIs(t, err, balance.ErrInsufficientFunds)

	_, err = repo.GetByIdempotencyKey(ctx, "redeem:1")
	assert.ErrorIs(t, err, ledger.ErrNotFound)

	b, err := balances.Get(ctx, "acct-1")
	require.NoError(t, err)
	assert.Equal(t, int64(10), b.Points)
}

func TestLedger_RowsAreAppendOnly(t *testing.T) {
	conn := setupTestDB(t)
	ctx := context.Background()
	repo := ledger.NewRepository(conn, balance.NewRepository(conn))

	_, err := repo.Append(ctx, ledger.AppendParams{AccountID: "acct-1", DeltaPoints: 10, Reason: ledger.ReasonEarnSquare, IdempotencyKey: "square:evt-1"})
	require.NoError(t, err)

	_, err = conn.ExecContext(ctx, `UPDATE loyalty_ledger SET delta_points = 1000`)
	assert.Error(t, err)
	_, err = conn.ExecContext(ctx, `DELETE FROM loyalty_ledger`)
	assert.Error(t, err)
}

func TestReconciler_RepairsDrift(t *testing.T) {
	conn := setupTestDB(t)
	ctx := context.Background()
	balances := balance.NewRepository(conn)
	repo := ledger.NewRepository(conn, balances)

	_, err := repo.Append(ctx, ledger.AppendParams{AccountID: "acct-1", DeltaPoints: 30, Reason: ledger.ReasonEarnSquare, IdempotencyKey: "square:evt-1"})
	require.NoError(t, err)
	_, err = conn.ExecContext(ctx, `UPDATE loyalty_balances SET points = 7 WHERE account_id = 'acct-1'`)
	require.NoError(t, err)

	repaired, err := balance.NewReconciler(balances).RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, repaired)

	b, err := balances.Get(ctx, "acct-1")
	require.NoError(t, err)
	assert.Equal(t, int64(30), b.Points)
}

func TestReconciler_ResetsBalanceWithoutLedger(t *testing.T) {
	conn := setupTestDB(t)
	ctx := context.Background()
	balances := balance.NewRepository(conn)

	_, err := conn.ExecContext(ctx, `INSERT INTO loyalty_balances (account_id, points) VALUES ('acct-9', 40)`)
	require.NoError(t, err)

	repaired, err := balance.NewReconciler(balances).RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, repaired)

	b, err := balances.Get(ctx, "acct-9")
	require.NoError(t, err)
	assert.Zero(t, b.Points)
}
