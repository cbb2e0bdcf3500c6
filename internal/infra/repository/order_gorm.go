package repository

import (
	"context"
	"time"

	"stockledger/internal/domain/model"
	repo "stockledger/internal/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type OrderGormRepository struct {
	db *gorm.DB
}

func NewOrderGormRepository(db *gorm.DB) *OrderGormRepository {
	return &OrderGormRepository{db: db}
}

func (r *OrderGormRepository) Create(ctx context.Context, o model.DraftOrder) (model.DraftOrder, error) {
	if err := r.db.WithContext(ctx).Create(&o).Error; err != nil {
		return model.DraftOrder{}, translateError(err)
	}
	return o, nil
}

func (r *OrderGormRepository) FindByID(ctx context.Context, kind model.OrderKind, id int64) (model.DraftOrder, error) {
	var o model.DraftOrder
	err := r.db.WithContext(ctx).Where("id = ? AND kind = ?", id, kind).First(&o).Error
	if err != nil {
		return model.DraftOrder{}, translateError(err)
	}
	return o, nil
}

func (r *OrderGormRepository) LockByID(ctx context.Context, kind model.OrderKind, id int64) (model.DraftOrder, error) {
	var o model.DraftOrder
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ? AND kind = ?", id, kind).
		First(&o).Error
	if err != nil {
		return model.DraftOrder{}, translateError(err)
	}
	return o, nil
}

func (r *OrderGormRepository) List(ctx context.Context, f repo.OrderListFilter) ([]model.DraftOrder, int64, error) {
	page, limit := normalizePage(f.Page, f.Limit)

	q := r.db.WithContext(ctx).Model(&model.DraftOrder{}).Where("kind = ?", f.Kind)
	if f.AgentID != nil {
		q = q.Where("agent_id = ?", *f.AgentID)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return []model.DraftOrder{}, 0, translateError(err)
	}

	var items []model.DraftOrder
	err := q.Order("id desc").
		Limit(limit).
		Offset((page - 1) * limit).
		Find(&items).Error
	if err != nil {
		return []model.DraftOrder{}, 0, translateError(err)
	}
	return items, total, nil
}

// updated_atだけ進める
func (r *OrderGormRepository) Touch(ctx context.Context, id int64) error {
	res := r.db.WithContext(ctx).Model(&model.DraftOrder{}).
		Where("id = ?", id).
		Update("updated_at", time.Now())
	if res.Error != nil {
		return translateError(res.Error)
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *OrderGormRepository) Delete(ctx context.Context, id int64) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.DraftOrder{})
	if res.Error != nil {
		return translateError(res.Error)
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}
