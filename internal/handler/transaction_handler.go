package handler

import (
	"net/http"

	"stockledger/internal/config"
	"stockledger/internal/domain/model"
	"stockledger/internal/middleware"
	"stockledger/internal/repository"
	"stockledger/internal/usecase"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// 完了済みの /sales と /purchases（参照のみ）
type TransactionHandler struct {
	kind model.OrderKind
	uc   *usecase.TransactionUsecase
	log  *zap.Logger
}

// DI
func NewTransactionHandler(kind model.OrderKind, uc *usecase.TransactionUsecase, log *zap.Logger) *TransactionHandler {
	return &TransactionHandler{kind: kind, uc: uc, log: log}
}

func (h *TransactionHandler) RegisterRoutes(e *echo.Echo, cfg config.Config, userRepo repository.UserRepository) {
	path := "/sales"
	if h.kind == model.OrderKindPurchase {
		path = "/purchases"
	}
	g := e.Group(path)

	g.Use(middleware.AuthJWT(cfg))
	g.Use(middleware.ActiveUserGuard(userRepo))
	g.Use(middleware.RoleGuard(model.StockRoles...))

	g.GET("", h.list)
	g.GET("/:id", h.get)
}

func (h *TransactionHandler) list(c echo.Context) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	page, limit, msg := pageQuery(c, 50)
	if msg != "" {
		return badRequest(c, msg)
	}
	agentID, ok := optionalInt64Query(c, "agent_id")
	if !ok {
		return badRequest(c, "invalid agent_id")
	}

	out, err := h.uc.List(c.Request().Context(), actor, page, limit, agentID)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *TransactionHandler) get(c echo.Context) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}

	view, err := h.uc.Get(c.Request().Context(), actor, id)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, view)
}
