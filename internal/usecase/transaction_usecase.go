package usecase

import (
	"context"

	"stockledger/internal/domain/model"
	repo "stockledger/internal/repository"
)

// 完了済み履歴の参照（Sale / Purchase）
type TransactionUsecase struct {
	kind model.OrderKind
	tx   repo.TransactionManager
}

func NewTransactionUsecase(kind model.OrderKind, tx repo.TransactionManager) *TransactionUsecase {
	return &TransactionUsecase{kind: kind, tx: tx}
}

type TransactionView struct {
	model.Transaction
	model.TransactionTotals
	Lines   []model.TransactionLine `json:"items"`
	Returns []model.SaleItemReturn  `json:"returns,omitempty"`
}

type ListTransactionsOutput struct {
	Items []model.Transaction `json:"items"`
	Total int64               `json:"total"`
	Page  int                 `json:"page"`
	Limit int                 `json:"limit"`
}

func (u *TransactionUsecase) List(ctx context.Context, actor Actor, page, limit int, agentID *int64) (ListTransactionsOutput, error) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if !actor.IsAdmin() {
		agentID = &actor.ID
	}

	var out ListTransactionsOutput
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		items, total, err := r.Transactions().List(ctx, repo.TransactionListFilter{Kind: u.kind, AgentID: agentID, Page: page, Limit: limit})
		if err != nil {
			return dbError(err)
		}
		out = ListTransactionsOutput{Items: items, Total: total, Page: page, Limit: limit}
		return nil
	})
	if err != nil {
		return ListTransactionsOutput{}, err
	}
	return out, nil
}

func (u *TransactionUsecase) Get(ctx context.Context, actor Actor, id int64) (TransactionView, error) {
	var view TransactionView
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		txn, err := r.Transactions().FindByID(ctx, id)
		if err != nil {
			return dbError(err)
		}
		if txn.Kind != u.kind {
			return errNotFound("")
		}
		if txn.AgentID != actor.ID && !actor.IsAdmin() {
			return errForbidden("")
		}
		lines, err := r.Transactions().ListLines(ctx, txn.ID)
		if err != nil {
			return dbError(err)
		}
		var returns []model.SaleItemReturn
		if u.kind == model.OrderKindSale {
			ids := make([]int64, 0, len(lines))
			for _, l := range lines {
				ids = append(ids, l.ID)
			}
			returns, err = r.Returns().ListByLineIDs(ctx, ids)
			if err != nil {
				return dbError(err)
			}
		}
		view = TransactionView{
			Transaction:       txn,
			TransactionTotals: transactionTotals(u.kind, lines, returns),
			Lines:             lines,
			Returns:           returns,
		}
		return nil
	})
	if err != nil {
		return TransactionView{}, err
	}
	return view, nil
}
