package repository

import (
	"context"

	"stockledger/internal/domain/model"
)

type OrderListFilter struct {
	Kind    model.OrderKind
	AgentID *int64
	Page    int
	Limit   int
}

// 下書き注文の保存・取得
type OrderRepository interface {
	Create(ctx context.Context, o model.DraftOrder) (model.DraftOrder, error)
	FindByID(ctx context.Context, kind model.OrderKind, id int64) (model.DraftOrder, error)
	// 同じ注文への操作を直列化する
	LockByID(ctx context.Context, kind model.OrderKind, id int64) (model.DraftOrder, error)
	List(ctx context.Context, f OrderListFilter) ([]model.DraftOrder, int64, error)
	Touch(ctx context.Context, id int64) error
	Delete(ctx context.Context, id int64) error
}

// 注文行
type OrderLineRepository interface {
	ListByOrderID(ctx context.Context, orderID int64) ([]model.OrderLine, error)
	FindByID(ctx context.Context, orderID, lineID int64) (model.OrderLine, error)
	CreateBulk(ctx context.Context, lines []model.OrderLine) ([]model.OrderLine, error)
	Update(ctx context.Context, line model.OrderLine) error
	Delete(ctx context.Context, lineID int64) error
	DeleteByOrderID(ctx context.Context, orderID int64) error
}
