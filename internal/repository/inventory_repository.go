package repository

import (
	"context"

	"stockledger/internal/domain/model"
)

// 在庫一覧の絞り込み
type InventoryListFilter struct {
	Status model.StockStatus
	Page   int
	Limit  int
}

type InventoryRepository interface {
	// variant_id 昇順で FOR UPDATE。存在しないものは結果に含まれない
	LockByVariantIDs(ctx context.Context, variantIDs []int64) ([]model.Inventory, error)

	// 両方のカウンタに差分を足す。負になる場合は ErrNegativeStock
	Adjust(ctx context.Context, variantID int64, reservedDelta, availableDelta int64) (model.Inventory, error)

	Create(ctx context.Context, inv model.Inventory) (model.Inventory, error)
	FindByVariantID(ctx context.Context, variantID int64) (model.Inventory, error)
	UpdateMinimum(ctx context.Context, variantID int64, minimum int64) (model.Inventory, error)
	List(ctx context.Context, f InventoryListFilter) ([]model.Inventory, int64, error)

	// 調整履歴
	CreateAdjustment(ctx context.Context, adjustment model.InventoryAdjustment) error
	ListAdjustments(ctx context.Context, variantID int64, limit, offset int) ([]model.InventoryAdjustment, error)
}
