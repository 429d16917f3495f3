package identity

import (
	"context"
	"errors"
	"strings"
	"time"

	"cnoloyalty/internal/logger"
	"cnoloyalty/internal/metrics"
)

const (
	sourceCache      = "redis"
	sourceMapping    = "mapping"
	sourceEmail      = "email"
	sourceUnresolved = "unresolved"
)

// CustomerEmailFetcher reads a customer's email from the payment provider.
type CustomerEmailFetcher interface {
	CustomerEmail(ctx context.Context, customerID string) (string, error)
}

// AccountDirectory finds a loyalty account by email.
type AccountDirectory interface {
	FindAccountByEmail(ctx context.Context, email string) (string, error)
}

// Resolver maps payment-provider customers to loyalty accounts. It never
// returns an error: an empty account id means unresolved.
type Resolver struct {
	mappings  Repository
	cache     Cache
	customers CustomerEmailFetcher
	directory AccountDirectory
	timeout   time.Duration
}

// NewResolver builds a resolver. cache may be nil.
func NewResolver(mappings Repository, cache Cache, customers CustomerEmailFetcher, directory AccountDirectory, timeout time.Duration) *Resolver {
	return &Resolver{
		mappings:  mappings,
		cache:     cache,
		customers: customers,
		directory: directory,
		timeout:   timeout,
	}
}

func (r *Resolver) Resolve(ctx context.Context, externalCustomerID string) string {
	externalCustomerID = strings.TrimSpace(externalCustomerID)
	if externalCustomerID == "" {
		metrics.RecordIdentityResolution(sourceUnresolved)
		return ""
	}

	if accountID := r.fromCache(ctx, externalCustomerID); accountID != "" {
		metrics.RecordIdentityResolution(sourceCache)
		return accountID
	}

	if accountID, ok := r.fromMapping(ctx, externalCustomerID); ok {
		metrics.RecordIdentityResolution(sourceMapping)
		r.remember(ctx, externalCustomerID, accountID)
		return accountID
	}

	email, err := r.customerEmail(ctx, externalCustomerID)
	if err != nil || email == "" {
		logger.Warn("Customer has no usable email", "customer_id", externalCustomerID, "error", err)
		metrics.RecordIdentityResolution(sourceUnresolved)
		return ""
	}

	accountID := r.lookup(ctx, email)
	if accountID == "" {
		logger.Warn("No account for customer email", "customer_id", externalCustomerID)
		metrics.RecordIdentityResolution(sourceUnresolved)
		return ""
	}

	if err := r.persist(ctx, Mapping{ExternalCustomerID: externalCustomerID, AccountID: accountID, Email: email}); err != nil {
		logger.Warn("Identity mapping not saved", "customer_id", externalCustomerID, "error", err)
	} else {
		r.remember(ctx, externalCustomerID, accountID)
	}

	metrics.RecordIdentityResolution(sourceEmail)
	return accountID
}

// ResolveEmail finds the account for an email captured on the payment
// itself. Nothing is persisted since there is no customer id to key by.
func (r *Resolver) ResolveEmail(ctx context.Context, email string) string {
	email = strings.TrimSpace(email)
	if email == "" {
		metrics.RecordIdentityResolution(sourceUnresolved)
		return ""
	}

	accountID := r.lookup(ctx, email)
	if accountID == "" {
		metrics.RecordIdentityResolution(sourceUnresolved)
		return ""
	}
	metrics.RecordIdentityResolution(sourceEmail)
	return accountID
}

func (r *Resolver) fromCache(ctx context.Context, id string) string {
	if r.cache == nil {
		return ""
	}
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	accountID, ok, err := r.cache.Get(ctx, id)
	if err != nil {
		logger.Debug("Identity cache unavailable", "error", err)
		return ""
	}
	if !ok {
		return ""
	}
	return accountID
}

func (r *Resolver) remember(ctx context.Context, id, accountID string) {
	if r.cache == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if err := r.cache.Set(ctx, id, accountID); err != nil {
		logger.Debug("Identity cache write failed", "error", err)
	}
}

func (r *Resolver) fromMapping(ctx context.Context, id string) (string, bool) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	m, err := r.mappings.Get(ctx, id)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			logger.Warn("Identity mapping lookup failed", "customer_id", id, "error", err)
		}
		return "", false
	}
	return m.AccountID, m.AccountID != ""
}

func (r *Resolver) customerEmail(ctx context.Context, id string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	email, err := r.customers.CustomerEmail(ctx, id)
	return strings.TrimSpace(email), err
}

func (r *Resolver) lookup(ctx context.Context, email string) string {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	accountID, err := r.directory.FindAccountByEmail(ctx, email)
	if err != nil {
		logger.Warn("Account directory lookup failed", "error", err)
		return ""
	}
	return accountID
}

func (r *Resolver) persist(ctx context.Context, m Mapping) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	return r.mappings.Upsert(ctx, m)
}
