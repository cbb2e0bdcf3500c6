package handler

import (
	"net/http"
	"strings"
	"time"

	"stockledger/internal/config"
	"stockledger/internal/domain/model"
	"stockledger/internal/middleware"
	"stockledger/internal/repository"
	"stockledger/internal/usecase"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// /admin/audit-logs
type AuditHandler struct {
	uc  *usecase.AuditUsecase
	log *zap.Logger
}

// DI
func NewAuditHandler(uc *usecase.AuditUsecase, log *zap.Logger) *AuditHandler {
	return &AuditHandler{uc: uc, log: log}
}

func (h *AuditHandler) RegisterRoutes(e *echo.Echo, cfg config.Config, userRepo repository.UserRepository) {
	admin := e.Group("/admin")

	admin.Use(middleware.AuthJWT(cfg))
	admin.Use(middleware.ActiveUserGuard(userRepo))
	admin.Use(middleware.AdminRoleGuard())

	admin.GET("/audit-logs", h.list)
}

func (h *AuditHandler) list(c echo.Context) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	page, limit, msg := pageQuery(c, 50)
	if msg != "" {
		return badRequest(c, msg)
	}
	if page < 1 {
		return badRequest(c, "invalid page")
	}
	if limit < 1 || limit > 200 {
		return badRequest(c, "invalid limit")
	}

	f := repository.AuditLogFilter{Page: page, Limit: limit}

	actorUserID, ok := optionalInt64Query(c, "actor_user_id")
	if !ok {
		return badRequest(c, "invalid actor_user_id")
	}
	f.ActorUserID = actorUserID
	resourceID, ok := optionalInt64Query(c, "resource_id")
	if !ok {
		return badRequest(c, "invalid resource_id")
	}
	f.ResourceID = resourceID
	if v := c.QueryParam("action"); v != "" {
		a := model.AuditAction(strings.ToUpper(v))
		f.Action = &a
	}
	if v := c.QueryParam("resource_type"); v != "" {
		rt := model.AuditResourceType(strings.ToLower(v))
		f.ResourceType = &rt
	}

	//RFC3339
	if v := c.QueryParam("from"); v != "" {
		tm, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return badRequest(c, "invalid from")
		}
		f.From = &tm
	}
	if v := c.QueryParam("to"); v != "" {
		tm, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return badRequest(c, "invalid to")
		}
		f.To = &tm
	}

	out, err := h.uc.List(c.Request().Context(), actor, f)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, out)
}
