package identity

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupIdentityMock(t *testing.T) (Repository, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	sqlxDB := sqlx.NewDb(db, "sqlmock")
	return NewRepository(sqlxDB), mock, func() { sqlxDB.Close() }
}

func TestGet(t *testing.T) {
	repo, mock, close := setupIdentityMock(t)
	defer close()

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("FROM identity_mappings WHERE external_customer_id = $1")).
		WithArgs("CUST_1").
		WillReturnRows(sqlmock.NewRows([]string{"external_customer_id", "account_id", "email", "created_at", "updated_at"}).
			AddRow("CUST_1", "acct-1", "ana@example.com", now, now))

	m, err := repo.Get(context.Background(), "CUST_1")
	require.NoError(t, err)
	assert.Equal(t, "acct-1", m.AccountID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGet_NotFound(t *testing.T) {
	repo, mock, close := setupIdentityMock(t)
	defer close()

	mock.ExpectQuery(regexp.QuoteMeta("FROM identity_mappings")).
		WithArgs("CUST_2").
		WillReturnRows(sqlmock.NewRows([]string{"external_customer_id"}))

	_, err := repo.Get(context.Background(), "CUST_2")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpsert(t *testing.T) {
	repo, mock, close := setupIdentityMock(t)
	defer close()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO identity_mappings (external_customer_id, account_id, email) VALUES ($1, $2, $3) ON CONFLICT (external_customer_id) DO UPDATE")).
		WithArgs("CUST_1", "acct-1", "ana@example.com").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Upsert(context.Background(), Mapping{ExternalCustomerID: "CUST_1", AccountID: "acct-1", Email: "ana@example.com"})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsert_Error(t *testing.T) {
	repo, mock, close := setupIdentityMock(t)
	defer close()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO identity_mappings")).
		WillReturnError(errors.New("read-only transaction"))

	err := repo.Upsert(context.Background(), Mapping{ExternalCustomerID: "CUST_1", AccountID: "acct-1"})
	assert.Error(t, err)
}
