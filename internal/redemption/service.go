package redemption

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"cnoloyalty/internal/balance"
	"cnoloyalty/internal/coupon"
	"cnoloyalty/internal/db"
	"cnoloyalty/internal/ledger"
	"cnoloyalty/internal/logger"
	"cnoloyalty/internal/metrics"
	"cnoloyalty/internal/rewards"
)

const maxCodeAttempts = 5

var ErrCodeExhausted = errors.New("could not allocate a unique coupon code")

type RedeemRequest struct {
	AccountID      string
	Email          string
	RewardID       string
	IdempotencyKey string
}

// Notifier delivers the coupon to the customer. Failures never undo a redemption.
type Notifier interface {
	SendCouponIssued(ctx context.Context, to, rewardName, discount, code string, expiresAt time.Time) error
}

type Service interface {
	Redeem(ctx context.Context, req RedeemRequest) (*coupon.Coupon, error)
}

type service struct {
	db       *sqlx.DB
	catalog  *rewards.Catalog
	balances balance.Repository
	ledger   ledger.Repository
	coupons  coupon.Repository
	codes    *coupon.Generator
	notifier Notifier
	ttl      time.Duration
	now      func() time.Time
}

func NewService(
	db *sqlx.DB,
	catalog *rewards.Catalog,
	balances balance.Repository,
	ledgerRepo ledger.Repository,
	coupons coupon.Repository,
	codes *coupon.Generator,
	notifier Notifier,
	ttl time.Duration,
) Service {
	return &service{
		db:       db,
		catalog:  catalog,
		balances: balances,
		ledger:   ledgerRepo,
		coupons:  coupons,
		codes:    codes,
		notifier: notifier,
		ttl:      ttl,
		now:      time.Now,
	}
}

// Redeem debits the reward cost and issues a coupon atomically. Either both
// the ledger entry and the coupon exist afterwards or neither does.
func (s *service) Redeem(ctx context.Context, req RedeemRequest) (*coupon.Coupon, error) {
	def, err := s.catalog.Lookup(req.RewardID)
	if err != nil {
		metrics.RecordRedemption(req.RewardID, "unknown_reward")
		return nil, err
	}

	bal, err := s.balances.Get(ctx, req.AccountID)
	if err != nil {
		return nil, err
	}
	key := idempotencyKey(req.AccountID, req.IdempotencyKey)

	if bal.Points < def.CostPoints {
		// A retried request may have spent the points itself.
		if strings.TrimSpace(req.IdempotencyKey) != "" {
			if c, err := s.replay(ctx, key); err == nil {
				metrics.RecordRedemption(def.ID, "replayed")
				return c, nil
			} else if !errors.Is(err, ledger.ErrNotFound) {
				return nil, err
			}
		}
		metrics.RecordRedemption(def.ID, "insufficient_funds")
		return nil, balance.ErrInsufficientFunds
	}

	var issued *coupon.Coupon
	err = db.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		entry, err := s.ledger.AppendTx(ctx, tx, ledger.AppendParams{
			AccountID:      req.AccountID,
			DeltaPoints:    -def.CostPoints,
			Reason:         ledger.RedeemReason(def.ID),
			IdempotencyKey: key,
		})
		if err != nil {
			return err
		}

		issued, err = s.issueTx(ctx, tx, req.AccountID, def.ID, entry.ID)
		return err
	})

	switch {
	case errors.Is(err, ledger.ErrDuplicate):
		metrics.RecordRedemption(def.ID, "replayed")
		return s.replay(ctx, key)
	case errors.Is(err, balance.ErrInsufficientFunds):
		metrics.RecordRedemption(def.ID, "insufficient_funds")
		return nil, err
	case err != nil:
		metrics.RecordRedemption(def.ID, "failed")
		return nil, err
	}

	metrics.RecordRedemption(def.ID, "issued")
	metrics.RecordPointsDebited(def.CostPoints)
	logger.Info("Coupon issued", "account_id", req.AccountID, "reward_id", def.ID, "coupon_id", issued.ID)

	s.notify(ctx, req.Email, def, issued)
	return issued, nil
}

func (s *service) issueTx(ctx context.Context, tx *sqlx.Tx, accountID, rewardID string, entryID uuid.UUID) (*coupon.Coupon, error) {
	created := s.now().UTC()
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := s.codes.New()
		if err != nil {
			return nil, err
		}

		c, err := s.coupons.CreateTx(ctx, tx, coupon.CreateParams{
			AccountID:     accountID,
			RewardID:      rewardID,
			Code:          code,
			LedgerEntryID: entryID,
			CreatedAt:     created,
			ExpiresAt:     created.Add(s.ttl),
		})
		if errors.Is(err, coupon.ErrCodeTaken) {
			continue
		}
		return c, err
	}
	return nil, ErrCodeExhausted
}

// replay returns the coupon issued by the first request carrying key.
func (s *service) replay(ctx context.Context, key string) (*coupon.Coupon, error) {
	entry, err := s.ledger.GetByIdempotencyKey(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("load replayed entry: %w", err)
	}
	return s.coupons.GetByLedgerEntry(ctx, entry.ID)
}

func (s *service) notify(ctx context.Context, to string, def rewards.Definition, c *coupon.Coupon) {
	if s.notifier == nil || to == "" {
		return
	}
	if err := s.notifier.SendCouponIssued(ctx, to, def.Name, def.Discount.Display(), c.Code, c.ExpiresAt); err != nil {
		logger.Warn("Coupon email not queued", "coupon_id", c.ID, "error", err)
	}
}

// idempotencyKey scopes a client-supplied key to the account so one
// customer can never replay another's redemption.
func idempotencyKey(accountID, clientKey string) string {
	clientKey = strings.TrimSpace(clientKey)
	if clientKey == "" {
		return "redeem:" + uuid.NewString()
	}
	return "redeem:" + accountID + ":" + clientKey
}
