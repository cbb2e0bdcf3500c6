package repository

import (
	"context"
	"time"

	"stockledger/internal/domain/model"
	repo "stockledger/internal/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type InventoryGormRepository struct {
	db *gorm.DB
}

func NewInventoryGormRepository(db *gorm.DB) *InventoryGormRepository {
	return &InventoryGormRepository{db: db}
}

// variant_id昇順でロックする（デッドロック回避）
func (r *InventoryGormRepository) LockByVariantIDs(ctx context.Context, variantIDs []int64) ([]model.Inventory, error) {
	if len(variantIDs) == 0 {
		return nil, nil
	}
	var invs []model.Inventory
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("variant_id IN ?", variantIDs).
		Order("variant_id ASC").
		Find(&invs).Error
	if err != nil {
		return nil, translateError(err)
	}
	return invs, nil
}

// 負にならないときだけ両カウンタを更新
func (r *InventoryGormRepository) Adjust(ctx context.Context, variantID int64, reservedDelta, availableDelta int64) (model.Inventory, error) {
	var rows []model.Inventory
	res := r.db.WithContext(ctx).
		Model(&rows).
		Clauses(clause.Returning{}).
		Where("variant_id = ? AND available + ? >= 0 AND reserved + ? >= 0", variantID, availableDelta, reservedDelta).
		Updates(map[string]interface{}{
			"available":  gorm.Expr("available + ?", availableDelta),
			"reserved":   gorm.Expr("reserved + ?", reservedDelta),
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return model.Inventory{}, translateError(res.Error)
	}
	if res.RowsAffected == 0 || len(rows) == 0 {
		//行がないのか、足りないのかを分ける
		if _, err := r.FindByVariantID(ctx, variantID); err != nil {
			return model.Inventory{}, err
		}
		return model.Inventory{}, repo.ErrNegativeStock
	}
	return rows[0], nil
}

func (r *InventoryGormRepository) Create(ctx context.Context, inv model.Inventory) (model.Inventory, error) {
	if err := r.db.WithContext(ctx).Create(&inv).Error; err != nil {
		return model.Inventory{}, translateError(err)
	}
	return inv, nil
}

func (r *InventoryGormRepository) FindByVariantID(ctx context.Context, variantID int64) (model.Inventory, error) {
	var inv model.Inventory
	if err := r.db.WithContext(ctx).Where("variant_id = ?", variantID).First(&inv).Error; err != nil {
		return model.Inventory{}, translateError(err)
	}
	return inv, nil
}

func (r *InventoryGormRepository) UpdateMinimum(ctx context.Context, variantID int64, minimum int64) (model.Inventory, error) {
	res := r.db.WithContext(ctx).
		Model(&model.Inventory{}).
		Where("variant_id = ?", variantID).
		Update("minimum", minimum)
	if res.Error != nil {
		return model.Inventory{}, translateError(res.Error)
	}
	if res.RowsAffected == 0 {
		return model.Inventory{}, repo.ErrNotFound
	}
	return r.FindByVariantID(ctx, variantID)
}

func (r *InventoryGormRepository) List(ctx context.Context, f repo.InventoryListFilter) ([]model.Inventory, int64, error) {
	page, limit := normalizePage(f.Page, f.Limit)

	q := r.db.WithContext(ctx).Model(&model.Inventory{})
	switch f.Status {
	case model.StockStatusOutOfStock:
		q = q.Where("available + reserved <= 0")
	case model.StockStatusLowStock:
		q = q.Where("available + reserved <= minimum")
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, translateError(err)
	}

	var invs []model.Inventory
	if err := q.Order("variant_id ASC").Limit(limit).Offset((page - 1) * limit).Find(&invs).Error; err != nil {
		return nil, 0, translateError(err)
	}
	return invs, total, nil
}

// 調整履歴作成
func (r *InventoryGormRepository) CreateAdjustment(ctx context.Context, adj model.InventoryAdjustment) error {
	if err := r.db.WithContext(ctx).Create(&adj).Error; err != nil {
		return translateError(err)
	}
	return nil
}

func (r *InventoryGormRepository) ListAdjustments(ctx context.Context, variantID int64, limit, offset int) ([]model.InventoryAdjustment, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	var adjs []model.InventoryAdjustment
	err := r.db.WithContext(ctx).
		Where("variant_id = ?", variantID).
		Order("id DESC").
		Limit(limit).
		Offset(offset).
		Find(&adjs).Error
	if err != nil {
		return nil, translateError(err)
	}
	return adjs, nil
}
