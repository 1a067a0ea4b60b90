package repository

import (
	"context"
	"testing"

	"github.com/nimasrn/community-gateway/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransactionRepository_CompletePending(t *testing.T) {
	db := setupTestDB(t)
	repo := NewTransactionRepository(db)
	ctx := context.Background()

	owner := createTestUser(t, db, "owner@example.com", "Owner")
	payer := createTestUser(t, db, "payer@example.com", "Payer")
	g := createTestGroup(t, db, owner.ID, "VIP", model.GroupPaid, 100000)

	txn, err := repo.Create(ctx, &model.Transaction{
		Price:   g.Price,
		OwnerID: owner.ID,
		UserID:  payer.ID,
		GroupID: g.ID,
		Type:    model.TransactionPending,
	})
	require.NoError(t, err)

	t.Run("first completion wins", func(t *testing.T) {
		ok, err := repo.CompletePending(ctx, txn.ID, model.TransactionSuccess)
		require.NoError(t, err)
		assert.True(t, ok)

		found, err := repo.FindByID(ctx, txn.ID)
		require.NoError(t, err)
		assert.Equal(t, model.TransactionSuccess, found.Type)
		require.NotNil(t, found.Group)
		assert.Equal(t, "VIP", found.Group.Name)
	})

	t.Run("terminal status is never rewritten", func(t *testing.T) {
		ok, err := repo.CompletePending(ctx, txn.ID, model.TransactionFailed)
		require.NoError(t, err)
		assert.False(t, ok)

		found, err := repo.FindByID(ctx, txn.ID)
		require.NoError(t, err)
		assert.Equal(t, model.TransactionSuccess, found.Type)
	})

	t.Run("missing transaction", func(t *testing.T) {
		_, err := repo.CompletePending(ctx, "missing", model.TransactionSuccess)
		assert.ErrorIs(t, err, ErrTransactionNotFound)
	})
}

func TestTransactionRepository_SuccessTotals(t *testing.T) {
	db := setupTestDB(t)
	repo := NewTransactionRepository(db)
	ctx := context.Background()

	owner := createTestUser(t, db, "owner@example.com", "Owner")
	payer := createTestUser(t, db, "payer@example.com", "Payer")
	g := createTestGroup(t, db, owner.ID, "VIP", model.GroupPaid, 100000)

	for _, typ := range []model.TransactionType{model.TransactionSuccess, model.TransactionSuccess, model.TransactionFailed, model.TransactionPending} {
		_, err := repo.Create(ctx, &model.Transaction{Price: 100000, OwnerID: owner.ID, UserID: payer.ID, GroupID: g.ID, Type: typ})
		require.NoError(t, err)
	}

	total, err := repo.SumSuccessByOwner(ctx, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(200000), total)

	total, err = repo.SumSuccessByOwner(ctx, payer.ID)
	require.NoError(t, err)
	assert.Zero(t, total)

	list, err := repo.ListSuccessByOwner(ctx, owner.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.NotNil(t, list[0].User)
	assert.Equal(t, "Payer", list[0].User.Name)
}
