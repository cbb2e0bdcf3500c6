package repository

import (
	"context"

	"stockledger/internal/domain/model"
)

type ReturnListFilter struct {
	Status            *model.ReturnStatus
	TransactionLineID *int64
	RequestedBy       *int64
	Page              int
	Limit             int
}

type SaleItemReturnRepository interface {
	Create(ctx context.Context, r model.SaleItemReturn) (model.SaleItemReturn, error)
	LockByID(ctx context.Context, id int64) (model.SaleItemReturn, error)
	ListByLineIDs(ctx context.Context, lineIDs []int64) ([]model.SaleItemReturn, error)
	List(ctx context.Context, f ReturnListFilter) ([]model.SaleItemReturn, int64, error)
	Update(ctx context.Context, r model.SaleItemReturn) error
	Delete(ctx context.Context, id int64) error
}
