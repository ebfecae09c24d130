package usecase_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/creditledger/internal/domain"
	"github.com/iho/creditledger/internal/usecase"
)

func TestQuery_CursorPagesAreStableUnderAppends(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		h.credit(t, "client:c1", "1")
	}

	first, err := h.query.ListTransactions(ctx, usecase.ListTransactionsInput{AccountID: "client:c1", Limit: 2})
	require.NoError(t, err)
	require.Len(t, first.Transactions, 2)
	assert.Equal(t, int64(5), first.Transactions[0].Sequence)
	assert.Equal(t, int64(4), first.Transactions[1].Sequence)
	require.NotEmpty(t, first.NextCursor)

	// New entries land above the cursor and do not shift later pages.
	h.credit(t, "client:c1", "1")
	h.credit(t, "client:c1", "1")

	second, err := h.query.ListTransactions(ctx, usecase.ListTransactionsInput{AccountID: "client:c1", Limit: 2, Cursor: first.NextCursor})
	require.NoError(t, err)
	require.Len(t, second.Transactions, 2)
	assert.Equal(t, int64(3), second.Transactions[0].Sequence)
	assert.Equal(t, int64(2), second.Transactions[1].Sequence)

	last, err := h.query.ListTransactions(ctx, usecase.ListTransactionsInput{AccountID: "client:c1", Limit: 2, Cursor: second.NextCursor})
	require.NoError(t, err)
	require.Len(t, last.Transactions, 1)
	assert.Equal(t, int64(1), last.Transactions[0].Sequence)
	assert.Empty(t, last.NextCursor)
}

func TestQuery_FiltersByKind(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.credit(t, "client:c1", "10")
	_, err := h.ledger.Append(ctx, usecase.AppendInput{AccountID: "client:c1", Kind: domain.KindUsage, Amount: dec("-3")})
	require.NoError(t, err)

	page, err := h.query.ListTransactions(ctx, usecase.ListTransactionsInput{
		AccountID: "client:c1",
		Kinds:     []domain.TransactionKind{domain.KindUsage},
	})
	require.NoError(t, err)
	require.Len(t, page.Transactions, 1)
	assert.Equal(t, domain.KindUsage, page.Transactions[0].Kind)

	_, err = h.query.ListTransactions(ctx, usecase.ListTransactionsInput{
		AccountID: "client:c1",
		Kinds:     []domain.TransactionKind{"gift"},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidTransactionKind)
}

func TestQuery_InvalidCursor(t *testing.T) {
	h := newHarness(t)

	for _, cursor := range []string{"!!!", usecase.EncodeCursor(0), "c2VxOmFiYw"} {
		_, err := h.query.ListTransactions(context.Background(), usecase.ListTransactionsInput{AccountID: "client:c1", Cursor: cursor})
		assert.ErrorIs(t, err, usecase.ErrInvalidCursor, cursor)
	}
}

func TestQuery_CursorRoundTrip(t *testing.T) {
	seq, err := usecase.DecodeCursor(usecase.EncodeCursor(42))
	require.NoError(t, err)
	assert.Equal(t, int64(42), seq)

	seq, err = usecase.DecodeCursor("")
	require.NoError(t, err)
	assert.Zero(t, seq)
}

func TestQuery_BalanceAt(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	start := h.clock.Now()

	h.credit(t, "client:c1", "10")
	h.clock.Advance(time.Hour)
	h.credit(t, "client:c1", "5")

	balance, err := h.query.BalanceAt(ctx, "client:c1", start.Add(-time.Minute))
	require.NoError(t, err)
	assert.True(t, balance.IsZero())

	balance, err = h.query.BalanceAt(ctx, "client:c1", start.Add(30*time.Minute))
	require.NoError(t, err)
	assert.True(t, balance.Equal(dec("10")))

	balance, err = h.query.BalanceAt(ctx, "client:c1", h.clock.Now())
	require.NoError(t, err)
	assert.True(t, balance.Equal(dec("15")))
}

func TestQuery_BalancesAndAccounts(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.credit(t, "client:c1", "10")
	h.credit(t, "company:acme", "20")

	balance, err := h.query.GetOwnerBalance(ctx, domain.OwnerKindCompany, "acme")
	require.NoError(t, err)
	assert.True(t, balance.Equal(dec("20")))

	balance, err = h.query.GetBalance(ctx, "client:never-seen")
	require.NoError(t, err)
	assert.True(t, balance.IsZero())

	_, err = h.query.GetBalance(ctx, "robot:1")
	assert.ErrorIs(t, err, domain.ErrInvalidAccountID)

	accounts, err := h.query.ListAccounts(ctx, domain.OwnerKindClient, 10, 0)
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, "client:c1", accounts[0].ID)

	all, err := h.query.ListAccounts(ctx, "", 10, 0)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
