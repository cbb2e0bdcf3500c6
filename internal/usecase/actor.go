package usecase

import "stockledger/internal/domain/model"

// 操作する人。handlerがJWTから作って渡す
type Actor struct {
	ID   int64
	Role model.Role
}

func (a Actor) IsAdmin() bool {
	return a.Role == model.RoleAdmin
}
