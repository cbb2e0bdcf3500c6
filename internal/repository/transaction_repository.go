package repository

import (
	"context"

	"stockledger/internal/domain/model"
)

type TransactionListFilter struct {
	Kind    model.OrderKind
	AgentID *int64
	Page    int
	Limit   int
}

// 完了済み履歴（Sale/Purchase と明細）
type TransactionRepository interface {
	Create(ctx context.Context, t model.Transaction) (model.Transaction, error)
	CreateLines(ctx context.Context, lines []model.TransactionLine) ([]model.TransactionLine, error)
	FindByID(ctx context.Context, id int64) (model.Transaction, error)
	List(ctx context.Context, f TransactionListFilter) ([]model.Transaction, int64, error)
	ListLines(ctx context.Context, transactionID int64) ([]model.TransactionLine, error)
	FindLineByID(ctx context.Context, lineID int64) (model.TransactionLine, error)
	// 返品申請の直列化用
	LockLineByID(ctx context.Context, lineID int64) (model.TransactionLine, error)
}
