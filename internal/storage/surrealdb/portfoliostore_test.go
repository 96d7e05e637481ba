package surrealdb

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/tradesim/internal/interfaces"
	"github.com/bobmcallan/tradesim/internal/models"
)

func samplePortfolio(userID string) *models.Portfolio {
	p := models.NewPortfolio(userID, 100000)
	txn := &models.Transaction{
		OrderID:     "order-1",
		Symbol:      "AAPL",
		Type:        models.TradeTypeBuy,
		Quantity:    10,
		Price:       150,
		TotalAmount: 1500,
		Fees:        1.5,
		Timestamp:   time.Now().Truncate(time.Second),
		Status:      models.TransactionStatusExecuted,
	}
	if err := p.Apply(txn); err != nil {
		panic(err)
	}
	p.AddWatch("MSFT")
	return p
}

func TestPortfolioStoreSaveGet(t *testing.T) {
	db := testDB(t)
	store := NewPortfolioStore(db, testLogger())
	ctx := context.Background()

	portfolio := samplePortfolio("user1")
	require.NoError(t, store.Save(ctx, portfolio))

	got, err := store.Get(ctx, "user1")
	require.NoError(t, err)
	assert.Equal(t, "user1", got.UserID)
	assert.InDelta(t, portfolio.Balance, got.Balance, 1e-9)
	require.Len(t, got.Transactions, 1)
	assert.Equal(t, "order-1", got.Transactions[0].OrderID)
	require.NotNil(t, got.Holding("AAPL"))
	assert.Equal(t, int64(10), got.Holding("AAPL").Quantity)
	assert.Equal(t, []string{"MSFT"}, got.Watchlist)
}

func TestPortfolioStoreGetNotFound(t *testing.T) {
	db := testDB(t)
	store := NewPortfolioStore(db, testLogger())

	_, err := store.Get(context.Background(), "nobody")
	assert.True(t, errors.Is(err, interfaces.ErrPortfolioNotFound))
}

func TestPortfolioStoreSaveOverwrite(t *testing.T) {
	db := testDB(t)
	store := NewPortfolioStore(db, testLogger())
	ctx := context.Background()

	portfolio := samplePortfolio("user1")
	require.NoError(t, store.Save(ctx, portfolio))

	portfolio.Balance = 42000
	require.NoError(t, store.Save(ctx, portfolio))

	got, err := store.Get(ctx, "user1")
	require.NoError(t, err)
	assert.InDelta(t, 42000.0, got.Balance, 1e-9)
	assert.Len(t, got.Transactions, 1)
}

func TestPortfolioStoreDelete(t *testing.T) {
	db := testDB(t)
	store := NewPortfolioStore(db, testLogger())
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, samplePortfolio("user1")))
	require.NoError(t, store.Delete(ctx, "user1"))

	_, err := store.Get(ctx, "user1")
	assert.True(t, errors.Is(err, interfaces.ErrPortfolioNotFound))

	// Deleting a missing portfolio is not an error.
	assert.NoError(t, store.Delete(ctx, "user1"))
}

func TestPortfolioStoreListUserIDs(t *testing.T) {
	db := testDB(t)
	store := NewPortfolioStore(db, testLogger())
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, samplePortfolio("alice")))
	require.NoError(t, store.Save(ctx, samplePortfolio("bob")))

	ids, err := store.ListUserIDs(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"alice", "bob"}, ids)
}
