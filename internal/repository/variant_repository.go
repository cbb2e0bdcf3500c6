package repository

import (
	"context"

	"stockledger/internal/domain/model"
)

// 商品バリエーションの保存・取得。
type VariantRepository interface {
	// 論理削除済みも含めて返す
	FindByIDs(ctx context.Context, ids []int64) ([]model.ProductVariant, error)
	Create(ctx context.Context, v model.ProductVariant) (model.ProductVariant, error)
	SoftDelete(ctx context.Context, id int64) error
	Restore(ctx context.Context, id int64) error
}
