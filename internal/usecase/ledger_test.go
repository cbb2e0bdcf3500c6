package usecase_test

import (
	"context"
	"testing"

	"stockledger/internal/domain/model"
	repo "stockledger/internal/repository"
	"stockledger/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testRef = usecase.LedgerRef{Reason: model.AdjustmentOrderLineAdd, ReferenceType: "sale_order", ReferenceID: 1, ActorID: 1}

func TestLedger_ReserveAndCommit(t *testing.T) {
	s := newMemStore()
	s.seedVariant(10, "1.00", 10, 0)
	s.seedVariant(11, "1.00", 0, 0)

	err := s.WithinTx(context.Background(), func(r repo.TxRepos) error {
		l := usecase.NewLedger(r.Inventory())
		require.NoError(t, l.Commit(context.Background(), 11, 2, 0, testRef))
		require.NoError(t, l.Commit(context.Background(), 10, 4, -4, testRef))
		require.NoError(t, l.Reserve(context.Background(), 10, -1, testRef))

		//最初に触った順、値は最新
		snaps := l.Snapshots()
		require.Len(t, snaps, 2)
		assert.Equal(t, int64(11), snaps[0].VariantID)
		assert.Equal(t, int64(10), snaps[1].VariantID)
		assert.Equal(t, int64(6), snaps[1].Available)
		assert.Equal(t, int64(3), snaps[1].Reserved)
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, int64(6), s.stock(10).Available)
	assert.Equal(t, int64(3), s.stock(10).Reserved)
	assert.Len(t, s.adjustments, 3)
}

func TestLedger_NegativeIsStockError(t *testing.T) {
	s := newMemStore()
	s.seedVariant(10, "1.00", 2, 1)

	err := s.WithinTx(context.Background(), func(r repo.TxRepos) error {
		l := usecase.NewLedger(r.Inventory())
		if err := l.Commit(context.Background(), 10, 1, -1, testRef); err != nil {
			return err
		}
		return l.Reserve(context.Background(), 10, -5, testRef)
	})
	he := requireKind(t, err, usecase.KindStock)
	assert.True(t, he.IsBadRequest())

	//Tx全体が戻る
	inv := s.stock(10)
	assert.Equal(t, int64(2), inv.Available)
	assert.Equal(t, int64(1), inv.Reserved)
	assert.Empty(t, s.adjustments)
}

func TestLedger_MissingInventory(t *testing.T) {
	s := newMemStore()

	err := s.WithinTx(context.Background(), func(r repo.TxRepos) error {
		return usecase.NewLedger(r.Inventory()).Reserve(context.Background(), 10, 1, testRef)
	})
	he := requireKind(t, err, usecase.KindNotFound)
	assert.Equal(t, "stock not found", he.Message)
}

func TestLedger_ZeroDeltaIsNoop(t *testing.T) {
	s := newMemStore()
	s.seedVariant(10, "1.00", 2, 0)

	err := s.WithinTx(context.Background(), func(r repo.TxRepos) error {
		l := usecase.NewLedger(r.Inventory())
		if err := l.Apply(context.Background(), 10, usecase.Delta{}, testRef); err != nil {
			return err
		}
		assert.Empty(t, l.Snapshots())
		return nil
	})
	require.NoError(t, err)
	assert.Empty(t, s.adjustments)
}

func TestLedger_AdjustmentCarriesReference(t *testing.T) {
	s := newMemStore()
	s.seedVariant(10, "1.00", 2, 0)
	ref := usecase.LedgerRef{Reason: model.AdjustmentReturnApprove, ReferenceType: "sale_item_return", ReferenceID: 55, ActorID: 7}

	err := s.WithinTx(context.Background(), func(r repo.TxRepos) error {
		return usecase.NewLedger(r.Inventory()).Apply(context.Background(), 10, usecase.Delta{Available: 3}, ref)
	})
	require.NoError(t, err)

	require.Len(t, s.adjustments, 1)
	a := s.adjustments[0]
	assert.Equal(t, int64(510), a.InventoryID)
	assert.Equal(t, int64(3), a.AvailableDelta)
	assert.Equal(t, int64(0), a.ReservedDelta)
	assert.Equal(t, model.AdjustmentReturnApprove, a.Reason)
	assert.Equal(t, "sale_item_return", a.ReferenceType)
	assert.Equal(t, int64(55), a.ReferenceID)
	assert.Equal(t, int64(7), a.ActorUserID)
}
