package redemption

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/mock"

	"cnoloyalty/internal/balance"
	"cnoloyalty/internal/coupon"
	"cnoloyalty/internal/ledger"
)

type MockBalanceRepo struct{ mock.Mock }
type MockLedgerRepo struct{ mock.Mock }
type MockCouponRepo struct{ mock.Mock }
type MockNotifier struct{ mock.Mock }
type MockService struct{ mock.Mock }

func (m *MockBalanceRepo) Get(ctx context.Context, accountID string) (*balance.Balance, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*balance.Balance), args.Error(1)
}

func (m *MockBalanceRepo) ApplyTx(ctx context.Context, q sqlx.QueryerContext, accountID string, delta int64) (int64, error) {
	args := m.Called(ctx, q, accountID, delta)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockBalanceRepo) ListDrift(ctx context.Context, limit int) ([]balance.Drift, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]balance.Drift), args.Error(1)
}

func (m *MockBalanceRepo) Rebuild(ctx context.Context, accountID string) (int64, error) {
	args := m.Called(ctx, accountID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockLedgerRepo) Append(ctx context.Context, p ledger.AppendParams) (*ledger.Entry, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Entry), args.Error(1)
}

func (m *MockLedgerRepo) SumByAccount(ctx context.Context, accountID string) (int64, error) {
	args := m.Called(ctx, accountID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockLedgerRepo) AppendTx(ctx context.Context, tx *sqlx.Tx, p ledger.AppendParams) (*ledger.Entry, error) {
	args := m.Called(ctx, tx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Entry), args.Error(1)
}

func (m *MockLedgerRepo) GetByIdempotencyKey(ctx context.Context, key string) (*ledger.Entry, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Entry), args.Error(1)
}

func (m *MockLedgerRepo) ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]ledger.Entry, error) {
	args := m.Called(ctx, accountID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]ledger.Entry), args.Error(1)
}

func (m *MockCouponRepo) CreateTx(ctx context.Context, tx *sqlx.Tx, p coupon.CreateParams) (*coupon.Coupon, error) {
	args := m.Called(ctx, tx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*coupon.Coupon), args.Error(1)
}

func (m *MockCouponRepo) GetByLedgerEntry(ctx context.Context, entryID uuid.UUID) (*coupon.Coupon, error) {
	args := m.Called(ctx, entryID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*coupon.Coupon), args.Error(1)
}

func (m *MockCouponRepo) GetForAccount(ctx context.Context, accountID string, id uuid.UUID) (*coupon.Coupon, error) {
	args := m.Called(ctx, accountID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*coupon.Coupon), args.Error(1)
}

func (m *MockCouponRepo) ListByAccount(ctx context.Context, accountID string) ([]coupon.Coupon, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]coupon.Coupon), args.Error(1)
}

func (m *MockCouponRepo) MarkRedeemed(ctx context.Context, code string) (*coupon.Coupon, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*coupon.Coupon), args.Error(1)
}

func (m *MockNotifier) SendCouponIssued(ctx context.Context, to, rewardName, discount, code string, expiresAt time.Time) error {
	return m.Called(ctx, to, rewardName, discount, code, expiresAt).Error(0)
}

func (m *MockService) Redeem(ctx context.Context, req RedeemRequest) (*coupon.Coupon, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*coupon.Coupon), args.Error(1)
}
