package middleware

import (
	"net/http"
	"slices"

	"stockledger/internal/domain/model"

	"github.com/labstack/echo/v4"
)

//contextに入っているroleがADMINかどうかを確認します。

func AdminRoleGuard() echo.MiddlewareFunc {
	return roleGuard([]model.Role{model.RoleAdmin}, "admin only")
}

// 指定ロール以外は403
func RoleGuard(roles ...model.Role) echo.MiddlewareFunc {
	return roleGuard(roles, "forbidden")
}

func roleGuard(allowed []model.Role, deniedMsg string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, ok := c.Get(CtxUserRoleKey).(model.Role)
			if !ok || role == "" {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}
			if !slices.Contains(allowed, role) {
				return c.JSON(http.StatusForbidden, errorJSON(deniedMsg))
			}
			return next(c)
		}
	}
}
