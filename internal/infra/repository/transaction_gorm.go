package repository

import (
	"context"

	"stockledger/internal/domain/model"
	repo "stockledger/internal/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type TransactionGormRepository struct {
	db *gorm.DB
}

func NewTransactionGormRepository(db *gorm.DB) *TransactionGormRepository {
	return &TransactionGormRepository{db: db}
}

func (r *TransactionGormRepository) Create(ctx context.Context, t model.Transaction) (model.Transaction, error) {
	if err := r.db.WithContext(ctx).Create(&t).Error; err != nil {
		return model.Transaction{}, translateError(err)
	}
	return t, nil
}

// 元の行の時刻を保つため autoCreateTime は使わない
func (r *TransactionGormRepository) CreateLines(ctx context.Context, lines []model.TransactionLine) ([]model.TransactionLine, error) {
	if len(lines) == 0 {
		return lines, nil
	}
	if err := r.db.WithContext(ctx).Create(&lines).Error; err != nil {
		return nil, translateError(err)
	}
	return lines, nil
}

func (r *TransactionGormRepository) FindByID(ctx context.Context, id int64) (model.Transaction, error) {
	var t model.Transaction
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&t).Error; err != nil {
		return model.Transaction{}, translateError(err)
	}
	return t, nil
}

func (r *TransactionGormRepository) List(ctx context.Context, f repo.TransactionListFilter) ([]model.Transaction, int64, error) {
	page, limit := normalizePage(f.Page, f.Limit)

	q := r.db.WithContext(ctx).Model(&model.Transaction{}).Where("kind = ?", f.Kind)
	if f.AgentID != nil {
		q = q.Where("agent_id = ?", *f.AgentID)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, translateError(err)
	}

	var items []model.Transaction
	if err := q.Order("id desc").Limit(limit).Offset((page - 1) * limit).Find(&items).Error; err != nil {
		return nil, 0, translateError(err)
	}
	return items, total, nil
}

func (r *TransactionGormRepository) ListLines(ctx context.Context, transactionID int64) ([]model.TransactionLine, error) {
	var lines []model.TransactionLine
	err := r.db.WithContext(ctx).
		Where("transaction_id = ?", transactionID).
		Order("id asc").
		Find(&lines).Error
	if err != nil {
		return nil, translateError(err)
	}
	return lines, nil
}

func (r *TransactionGormRepository) FindLineByID(ctx context.Context, lineID int64) (model.TransactionLine, error) {
	var l model.TransactionLine
	if err := r.db.WithContext(ctx).Where("id = ?", lineID).First(&l).Error; err != nil {
		return model.TransactionLine{}, translateError(err)
	}
	return l, nil
}

func (r *TransactionGormRepository) LockLineByID(ctx context.Context, lineID int64) (model.TransactionLine, error) {
	var l model.TransactionLine
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", lineID).
		First(&l).Error
	if err != nil {
		return model.TransactionLine{}, translateError(err)
	}
	return l, nil
}
