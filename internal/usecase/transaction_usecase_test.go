package usecase_test

import (
	"context"
	"testing"
	"time"

	"stockledger/internal/domain/model"
	repo "stockledger/internal/repository"
	"stockledger/internal/usecase"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransactionUsecase_GetIncludesApprovedReturns(t *testing.T) {
	f := newFixture(t, model.OrderKindSale)
	lineID := completedSale(t, f, 10, "100.00", 2, nil)
	ctx := context.Background()

	req, err := f.returns.RequestReturn(ctx, agent, usecase.RequestReturnInput{TransactionLineID: lineID, Quantity: 1})
	require.NoError(t, err)

	uc := usecase.NewTransactionUsecase(model.OrderKindSale, f.store)
	txnID := f.store.txLines[lineID].TransactionID

	//承認前は返品に数えない
	view, err := uc.Get(ctx, agent, txnID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), view.TotalItems)
	assert.Equal(t, int64(0), view.TotalReturnItems)
	assert.Len(t, view.Returns, 1)

	_, err = f.returns.ApproveReturn(ctx, req.ID, other)
	require.NoError(t, err)

	view, err = uc.Get(ctx, agent, txnID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), view.TotalReturnItems)
	assert.True(t, decimal.RequireFromString("100").Equal(view.TotalReturnPrice))
	//集計は返品分を差し引いた値
	assert.Equal(t, int64(1), view.TotalItems)
	assert.True(t, decimal.RequireFromString("100").Equal(view.TotalPrice))
}

func TestTransactionUsecase_ScopedToOwnerAndKind(t *testing.T) {
	f := newFixture(t, model.OrderKindSale)
	lineID := completedSale(t, f, 10, "100.00", 2, nil)
	ctx := context.Background()
	txnID := f.store.txLines[lineID].TransactionID

	sales := usecase.NewTransactionUsecase(model.OrderKindSale, f.store)
	_, err := sales.Get(ctx, other, txnID)
	requireKind(t, err, usecase.KindForbidden)

	purchases := usecase.NewTransactionUsecase(model.OrderKindPurchase, f.store)
	_, err = purchases.Get(ctx, agent, txnID)
	requireKind(t, err, usecase.KindNotFound)

	list, err := sales.List(ctx, other, 1, 20, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(0), list.Total)

	list, err = sales.List(ctx, admin, 1, 20, &agent.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), list.Total)
}

func TestAuditUsecase_List(t *testing.T) {
	f := newFixture(t, model.OrderKindSale)
	completedSale(t, f, 10, "100.00", 1, nil)
	ctx := context.Background()
	uc := usecase.NewAuditUsecase(f.store)

	_, err := uc.List(ctx, agent, repo.AuditLogFilter{Limit: 10})
	requireKind(t, err, usecase.KindForbidden)

	action := model.AuditActionCompleteOrder
	out, err := uc.List(ctx, admin, repo.AuditLogFilter{Action: &action, Limit: 10})
	require.NoError(t, err)
	require.Len(t, out.Items, 1)
	assert.Equal(t, int64(1), out.Total)
	assert.Equal(t, 1, out.Page)
	assert.Equal(t, model.AuditResourceTransaction, out.Items[0].ResourceType)
	assert.NotEmpty(t, out.Items[0].BeforeJSON)
	assert.NotEmpty(t, out.Items[0].AfterJSON)

	from := time.Now().Add(time.Hour)
	to := time.Now()
	_, err = uc.List(ctx, admin, repo.AuditLogFilter{From: &from, To: &to})
	requireKind(t, err, usecase.KindBadRequest)
}
