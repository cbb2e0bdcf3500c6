package repository

import (
	"context"

	"stockledger/internal/domain/model"
)

// 取得を約束。見つからなければ (nil, nil)
type UserRepository interface {
	// IDからユーザーを1件取得する。
	FindByID(ctx context.Context, userID int64) (*model.User, error)
	// 削除済みも含めて取得する（注文の持ち主確認用）。
	FindByIDUnscoped(ctx context.Context, userID int64) (*model.User, error)
}
