package repository

import (
	"context"

	"stockledger/internal/domain/model"
	repo "stockledger/internal/repository"

	"gorm.io/gorm"
)

type OrderLineGormRepository struct {
	db *gorm.DB
}

func NewOrderLineGormRepository(db *gorm.DB) *OrderLineGormRepository {
	return &OrderLineGormRepository{db: db}
}

func (r *OrderLineGormRepository) ListByOrderID(ctx context.Context, orderID int64) ([]model.OrderLine, error) {
	var lines []model.OrderLine
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("id asc").
		Find(&lines).Error
	if err != nil {
		return nil, translateError(err)
	}
	return lines, nil
}

func (r *OrderLineGormRepository) FindByID(ctx context.Context, orderID, lineID int64) (model.OrderLine, error) {
	var l model.OrderLine
	err := r.db.WithContext(ctx).Where("id = ? AND order_id = ?", lineID, orderID).First(&l).Error
	if err != nil {
		return model.OrderLine{}, translateError(err)
	}
	return l, nil
}

func (r *OrderLineGormRepository) CreateBulk(ctx context.Context, lines []model.OrderLine) ([]model.OrderLine, error) {
	if len(lines) == 0 {
		return lines, nil
	}
	if err := r.db.WithContext(ctx).Create(&lines).Error; err != nil {
		return nil, translateError(err)
	}
	return lines, nil
}

func (r *OrderLineGormRepository) Update(ctx context.Context, line model.OrderLine) error {
	res := r.db.WithContext(ctx).Model(&model.OrderLine{}).
		Where("id = ?", line.ID).
		Updates(map[string]interface{}{
			"quantity":   line.Quantity,
			"unit_price": line.UnitPrice,
			"discount":   line.Discount,
			"updated_at": line.UpdatedAt,
		})
	if res.Error != nil {
		return translateError(res.Error)
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *OrderLineGormRepository) Delete(ctx context.Context, lineID int64) error {
	res := r.db.WithContext(ctx).Where("id = ?", lineID).Delete(&model.OrderLine{})
	if res.Error != nil {
		return translateError(res.Error)
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *OrderLineGormRepository) DeleteByOrderID(ctx context.Context, orderID int64) error {
	if err := r.db.WithContext(ctx).Where("order_id = ?", orderID).Delete(&model.OrderLine{}).Error; err != nil {
		return translateError(err)
	}
	return nil
}
