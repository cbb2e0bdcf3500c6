package repository

import "errors"

var ErrNotFound = errors.New("not found")

// 条件付き更新が0件（在庫がマイナスになる）
var ErrNegativeStock = errors.New("stock would become negative")

// シリアライズ失敗・デッドロック・一意制約違反など。呼び出し側で再試行できる。
var ErrConflict = errors.New("concurrent modification conflict")
