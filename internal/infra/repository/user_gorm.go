package repository

import (
	"context"
	"errors"

	"stockledger/internal/domain/model"
	domainrepo "stockledger/internal/repository"

	"gorm.io/gorm"
)

type userGormRepository struct {
	db *gorm.DB
}

// DI
// main.goでこれをnewしてmiddleware/usecaseに注入します。
func NewUserGormRepository(db *gorm.DB) domainrepo.UserRepository {
	return &userGormRepository{db: db}
}

// IDでユーザーを1件取得
func (r *userGormRepository) FindByID(ctx context.Context, id int64) (*model.User, error) {
	return r.find(r.db.WithContext(ctx), id)
}

// 論理削除済みも含めて取得
func (r *userGormRepository) FindByIDUnscoped(ctx context.Context, id int64) (*model.User, error) {
	return r.find(r.db.WithContext(ctx).Unscoped(), id)
}

func (r *userGormRepository) find(q *gorm.DB, id int64) (*model.User, error) {
	var u model.User

	err := q.Where("id = ?", id).First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, translateError(err)
	}

	return &u, nil
}
