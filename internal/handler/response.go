package handler

import (
	"net/http"
	"strconv"

	"stockledger/internal/domain/model"
	"stockledger/internal/middleware"
	"stockledger/internal/usecase"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// エラーレスポンス。errorTypeと行ごとのerrorsは必要な時だけ
type ErrorResponse struct {
	Error     string                `json:"error"`
	ErrorType usecase.ErrorKind     `json:"errorType,omitempty"`
	Errors    []usecase.ErrorDetail `json:"errors,omitempty"`
	Available *int64                `json:"available,omitempty"`
}

// SuccessResponse は { message: string } の形に寄せます。
type SuccessResponse struct {
	Message string `json:"message"`
}

func writeError(c echo.Context, log *zap.Logger, err error) error {
	if err == nil {
		return nil
	}
	if he, ok := usecase.AsHTTPError(err); ok {
		return c.JSON(he.Status, ErrorResponse{
			Error:     he.Message,
			ErrorType: he.Kind,
			Errors:    he.Errors,
			Available: he.Available,
		})
	}

	//500
	log.Error("internal error",
		zap.String("method", c.Request().Method),
		zap.String("path", c.Path()),
		zap.Error(err),
	)
	return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
}

// AuthJWTが入れた値から操作者を作る
func actorFromContext(c echo.Context) (usecase.Actor, bool) {
	uid, ok := c.Get(middleware.CtxUserIDKey).(int64)
	if !ok || uid <= 0 {
		return usecase.Actor{}, false
	}
	role, ok := c.Get(middleware.CtxUserRoleKey).(model.Role)
	if !ok || role == "" {
		return usecase.Actor{}, false
	}
	return usecase.Actor{ID: uid, Role: role}, true
}

func unauthorized(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg, ErrorType: usecase.KindBadRequest})
}

// :name のパスパラメータ（正の整数）
func pathID(c echo.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// page/limit のクエリ。未指定はdefault
func pageQuery(c echo.Context, defLimit int) (page, limit int, msg string) {
	page, limit = 1, defLimit
	if v := c.QueryParam("page"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return 0, 0, "invalid page"
		}
		page = p
	}
	if v := c.QueryParam("limit"); v != "" {
		l, err := strconv.Atoi(v)
		if err != nil {
			return 0, 0, "invalid limit"
		}
		limit = l
	}
	return page, limit, ""
}

func optionalInt64Query(c echo.Context, name string) (*int64, bool) {
	v := c.QueryParam(name)
	if v == "" {
		return nil, true
	}
	x, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return nil, false
	}
	return &x, true
}
