package repository

import (
	"context"

	"stockledger/internal/domain/model"
	repo "stockledger/internal/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SaleItemReturnGormRepository struct {
	db *gorm.DB
}

func NewSaleItemReturnGormRepository(db *gorm.DB) *SaleItemReturnGormRepository {
	return &SaleItemReturnGormRepository{db: db}
}

func (r *SaleItemReturnGormRepository) Create(ctx context.Context, ret model.SaleItemReturn) (model.SaleItemReturn, error) {
	if err := r.db.WithContext(ctx).Create(&ret).Error; err != nil {
		return model.SaleItemReturn{}, translateError(err)
	}
	return ret, nil
}

func (r *SaleItemReturnGormRepository) LockByID(ctx context.Context, id int64) (model.SaleItemReturn, error) {
	var ret model.SaleItemReturn
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&ret).Error
	if err != nil {
		return model.SaleItemReturn{}, translateError(err)
	}
	return ret, nil
}

func (r *SaleItemReturnGormRepository) ListByLineIDs(ctx context.Context, lineIDs []int64) ([]model.SaleItemReturn, error) {
	if len(lineIDs) == 0 {
		return nil, nil
	}
	var rets []model.SaleItemReturn
	err := r.db.WithContext(ctx).
		Where("transaction_line_id IN ?", lineIDs).
		Order("id asc").
		Find(&rets).Error
	if err != nil {
		return nil, translateError(err)
	}
	return rets, nil
}

func (r *SaleItemReturnGormRepository) List(ctx context.Context, f repo.ReturnListFilter) ([]model.SaleItemReturn, int64, error) {
	page, limit := normalizePage(f.Page, f.Limit)

	q := r.db.WithContext(ctx).Model(&model.SaleItemReturn{})
	if f.Status != nil {
		q = q.Where("status = ?", *f.Status)
	}
	if f.TransactionLineID != nil {
		q = q.Where("transaction_line_id = ?", *f.TransactionLineID)
	}
	if f.RequestedBy != nil {
		q = q.Where("requested_by = ?", *f.RequestedBy)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, translateError(err)
	}

	var rets []model.SaleItemReturn
	if err := q.Order("id desc").Limit(limit).Offset((page - 1) * limit).Find(&rets).Error; err != nil {
		return nil, 0, translateError(err)
	}
	return rets, total, nil
}

func (r *SaleItemReturnGormRepository) Update(ctx context.Context, ret model.SaleItemReturn) error {
	res := r.db.WithContext(ctx).Model(&model.SaleItemReturn{}).
		Where("id = ?", ret.ID).
		Updates(map[string]interface{}{
			"status":      ret.Status,
			"approved_by": ret.ApprovedBy,
			"returned_at": ret.ReturnedAt,
		})
	if res.Error != nil {
		return translateError(res.Error)
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *SaleItemReturnGormRepository) Delete(ctx context.Context, id int64) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.SaleItemReturn{})
	if res.Error != nil {
		return translateError(res.Error)
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}
