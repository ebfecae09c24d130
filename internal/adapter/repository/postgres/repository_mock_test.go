package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/creditledger/internal/domain"
	"github.com/iho/creditledger/internal/usecase"
)

func beginMockTx(t *testing.T) (pgxmock.PgxPoolIface, usecase.Tx) {
	t.Helper()

	mockPool := newMockPool(t)
	mockPool.ExpectBegin()

	tx, err := newTxManagerWithPool(mockPool).Begin(context.Background())
	require.NoError(t, err)

	return mockPool, tx
}

func TestAccountRepository_UpdateBalanceMissingAccount(t *testing.T) {
	mockPool, tx := beginMockTx(t)
	mockPool.ExpectExec("UPDATE accounts SET balance").
		WithArgs("client:c1", pgxmock.AnyArg(), int64(3), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	repo := &AccountRepository{}
	err := repo.UpdateBalance(context.Background(), tx, &domain.Account{
		ID:        "client:c1",
		Balance:   decimal.NewFromInt(10),
		Version:   3,
		UpdatedAt: time.Now(),
	})

	assert.ErrorIs(t, err, domain.ErrAccountNotFound)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestAccountRepository_EnsureExistsIgnoresConflicts(t *testing.T) {
	mockPool, tx := beginMockTx(t)
	mockPool.ExpectExec("INSERT INTO accounts").
		WithArgs("partner:lab", "partner", "lab", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))

	repo := &AccountRepository{}
	err := repo.EnsureExists(context.Background(), tx, domain.NewAccount(domain.OwnerKindPartner, "lab", time.Now()))

	assert.NoError(t, err)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestIntentRepository_CreateDuplicateReference(t *testing.T) {
	mockPool, tx := beginMockTx(t)
	mockPool.ExpectExec("INSERT INTO payment_intents").
		WillReturnError(&pgconn.PgError{Code: pgErrUniqueViolation, ConstraintName: externalReferenceConstraint})

	repo := &IntentRepository{}
	err := repo.Create(context.Background(), tx, &domain.PaymentIntent{
		ID:                "intent-1",
		ExternalReference: "ref-1",
		Recipients:        []domain.IntentRecipient{{Kind: domain.RecipientClient, AccountID: "client:c1"}},
	})

	assert.ErrorIs(t, err, domain.ErrDuplicateReference)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestIntentRepository_UpdateStatus(t *testing.T) {
	now := time.Now()

	t.Run("pending row is closed", func(t *testing.T) {
		mockPool, tx := beginMockTx(t)
		mockPool.ExpectExec("UPDATE payment_intents").
			WithArgs("intent-1", "expired", pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		repo := &IntentRepository{}
		err := repo.UpdateStatus(context.Background(), tx, &domain.PaymentIntent{
			ID:       "intent-1",
			Status:   domain.IntentStatusExpired,
			ClosedAt: &now,
		})

		assert.NoError(t, err)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("missing row", func(t *testing.T) {
		mockPool, tx := beginMockTx(t)
		mockPool.ExpectExec("UPDATE payment_intents").
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))
		mockPool.ExpectQuery("FROM payment_intents WHERE id").
			WithArgs("intent-1").
			WillReturnError(pgx.ErrNoRows)

		repo := &IntentRepository{}
		err := repo.UpdateStatus(context.Background(), tx, &domain.PaymentIntent{
			ID:       "intent-1",
			Status:   domain.IntentStatusCancelled,
			ClosedAt: &now,
		})

		assert.ErrorIs(t, err, domain.ErrIntentNotFound)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}

func TestSplitConfigRepository_WriteErrors(t *testing.T) {
	cfg := &domain.SplitConfiguration{
		ID:              "split-1",
		ServiceCategory: "exam",
		Shares:          []domain.SplitShare{{RecipientKind: domain.RecipientPlatform, Percentage: decimal.NewFromInt(100)}},
	}

	t.Run("duplicate key", func(t *testing.T) {
		mockPool, tx := beginMockTx(t)
		mockPool.ExpectExec("INSERT INTO split_configurations").
			WillReturnError(&pgconn.PgError{Code: pgErrUniqueViolation, ConstraintName: splitKeyConstraint})

		err := (&SplitConfigRepository{}).Create(context.Background(), tx, cfg)
		assert.ErrorIs(t, err, domain.ErrSplitConfigurationExists)
	})

	t.Run("update of missing row", func(t *testing.T) {
		mockPool, tx := beginMockTx(t)
		mockPool.ExpectExec("UPDATE split_configurations").
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err := (&SplitConfigRepository{}).Update(context.Background(), tx, cfg)
		assert.ErrorIs(t, err, domain.ErrSplitConfigurationMissing)
	})

	t.Run("delete of missing row", func(t *testing.T) {
		mockPool, tx := beginMockTx(t)
		mockPool.ExpectExec("DELETE FROM split_configurations").
			WithArgs("split-1").
			WillReturnResult(pgxmock.NewResult("DELETE", 0))

		err := (&SplitConfigRepository{}).Delete(context.Background(), tx, "split-1")
		assert.ErrorIs(t, err, domain.ErrSplitConfigurationMissing)
	})

	t.Run("storage error passes through", func(t *testing.T) {
		mockPool, tx := beginMockTx(t)
		boom := errors.New("connection reset")
		mockPool.ExpectExec("INSERT INTO split_configurations").WillReturnError(boom)

		err := (&SplitConfigRepository{}).Create(context.Background(), tx, cfg)
		assert.ErrorIs(t, err, boom)
	})
}

func TestNumericRoundTrip(t *testing.T) {
	for _, s := range []string{"0", "12.34", "-0.01", "10000000000.00"} {
		d := decimal.RequireFromString(s)
		assert.True(t, numericToDecimal(decimalToNumeric(d)).Equal(d), s)
	}
}
