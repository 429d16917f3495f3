package payment

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"cnoloyalty/internal/ledger"
	"cnoloyalty/internal/logger"
	"cnoloyalty/internal/metrics"
)

const (
	StatusIgnored      = "ignored"
	StatusNeedsMapping = "needs_mapping"
	StatusCredited     = "credited"
	StatusDuplicate    = "duplicate"
)

var ErrStorage = errors.New("ledger storage failure")

// IdentityResolver finds the loyalty account behind a payment. An empty
// result means unresolved.
type IdentityResolver interface {
	Resolve(ctx context.Context, externalCustomerID string) string
	ResolveEmail(ctx context.Context, email string) string
}

// Outcome is the result reported back to the provider.
type Outcome struct {
	Status    string `json:"status"`
	Points    int64  `json:"points"`
	RefID     string `json:"ref_id,omitempty"`
	Detail    string `json:"detail,omitempty"`
	AccountID string `json:"-"`
}

type Service struct {
	verifier *Verifier
	resolver IdentityResolver
	ledger   ledger.Repository
	orders   OrderRepository
	timeout  time.Duration

	wg sync.WaitGroup
}

func NewService(verifier *Verifier, resolver IdentityResolver, ledgerRepo ledger.Repository, orders OrderRepository, timeout time.Duration) *Service {
	return &Service{
		verifier: verifier,
		resolver: resolver,
		ledger:   ledgerRepo,
		orders:   orders,
		timeout:  timeout,
	}
}

// Ingest runs one webhook delivery through verification, filtering,
// identity resolution and the idempotent credit. Errors returned before
// the credit is attempted are the caller's fault; ErrStorage is ours.
func (s *Service) Ingest(ctx context.Context, body []byte, signature string) (Outcome, error) {
	if err := s.verifier.Verify(body, signature); err != nil {
		metrics.RecordWebhookEvent("rejected")
		return Outcome{}, err
	}

	ev, err := ParseEvent(body)
	if err != nil {
		metrics.RecordWebhookEvent("malformed")
		return Outcome{}, err
	}

	if !ev.Completed() {
		metrics.RecordWebhookEvent(StatusIgnored)
		return Outcome{Status: StatusIgnored, Detail: ignoredDetail(ev)}, nil
	}

	refID, err := ev.RefID()
	if err != nil {
		metrics.RecordWebhookEvent("malformed")
		return Outcome{}, err
	}

	p := ev.Payment()
	out := Outcome{RefID: refID, Points: PointsFor(p.AmountMoney.Amount)}

	out.AccountID = s.resolve(ctx, p)
	if out.AccountID == "" {
		logger.Warn("Payment needs customer mapping",
			"ref_id", refID, "payment_id", p.ID, "customer_id", p.CustomerID, "points", out.Points)
		out.Status = StatusNeedsMapping
		metrics.RecordWebhookEvent(out.Status)
		s.recordOrder(ev, out)
		return out, nil
	}

	if out.Points > 0 {
		_, err = s.ledger.Append(ctx, ledger.AppendParams{
			AccountID:      out.AccountID,
			DeltaPoints:    out.Points,
			Reason:         ledger.ReasonEarnSquare,
			IdempotencyKey: refID,
		})
		switch {
		case errors.Is(err, ledger.ErrDuplicate):
			out.Status = StatusDuplicate
			metrics.RecordWebhookEvent(out.Status)
			return out, nil
		case err != nil:
			metrics.RecordWebhookEvent("error")
			return Outcome{}, fmt.Errorf("%w: %w", ErrStorage, err)
		}
		metrics.RecordPointsCredited(out.Points)
	}

	out.Status = StatusCredited

	if out.Points == 0 && s.orders != nil {
		// Zero-point payments dedupe on the shadow order.
		recordCtx, cancel := context.WithTimeout(ctx, s.timeout)
		applied, err := s.orders.Record(recordCtx, s.orderFor(ev, out))
		cancel()
		switch {
		case err != nil:
			metrics.RecordWebhookEvent("error")
			return Outcome{}, fmt.Errorf("%w: %w", ErrStorage, err)
		case !applied:
			out.Status = StatusDuplicate
			metrics.RecordWebhookEvent(out.Status)
			return out, nil
		}
		metrics.RecordWebhookEvent(out.Status)
		logger.Info("Points credited", "account_id", out.AccountID, "ref_id", refID, "points", out.Points)
		return out, nil
	}

	metrics.RecordWebhookEvent(out.Status)
	logger.Info("Points credited", "account_id", out.AccountID, "ref_id", refID, "points", out.Points)

	s.recordOrder(ev, out)
	return out, nil
}

func (s *Service) resolve(ctx context.Context, p *Payment) string {
	switch {
	case p.CustomerID != "":
		return s.resolver.Resolve(ctx, p.CustomerID)
	case p.BuyerEmailAddress != "":
		return s.resolver.ResolveEmail(ctx, p.BuyerEmailAddress)
	default:
		return ""
	}
}

// recordOrder writes the shadow order in the background. Failures are
// logged and never affect the webhook response.
func (s *Service) recordOrder(ev *Event, out Outcome) {
	if s.orders == nil {
		return
	}
	order := s.orderFor(ev, out)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()

		if _, err := s.orders.Record(ctx, order); err != nil {
			logger.Warn("Shadow order not recorded", "ref_id", order.RefID, "error", err)
		}
	}()
}

func (s *Service) orderFor(ev *Event, out Outcome) Order {
	p := ev.Payment()
	return Order{
		RefID:       out.RefID,
		PaymentID:   p.ID,
		OrderID:     p.OrderID,
		LocationID:  p.LocationID,
		CustomerID:  p.CustomerID,
		AccountID:   out.AccountID,
		AmountCents: p.AmountMoney.Amount,
		Currency:    p.AmountMoney.Currency,
		Points:      out.Points,
		Status:      out.Status,
	}
}

// Wait blocks until pending shadow-order writes finish.
func (s *Service) Wait() {
	s.wg.Wait()
}

func ignoredDetail(ev *Event) string {
	if ev.Type != EventPaymentUpdated {
		return ev.Type
	}
	if p := ev.Payment(); p != nil {
		return p.Status
	}
	return ""
}
