package handler

import (
	"net/http"

	"stockledger/internal/config"
	"stockledger/internal/domain/model"
	"stockledger/internal/middleware"
	"stockledger/internal/repository"
	"stockledger/internal/usecase"
	"stockledger/internal/validator"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type requestReturnRequest struct {
	SaleItemID int64  `json:"sale_item_id" validate:"required"`
	Quantity   int64  `json:"quantity" validate:"required"`
	Reason     string `json:"reason" validate:"omitempty,oneof=damaged expired wrong_item customer_changed_mind defective other"`
	Notes      string `json:"notes" validate:"max=1000"`
}

// /sale-item-returns
type ReturnHandler struct {
	uc    *usecase.ReturnUsecase
	retry RetryPolicy
	log   *zap.Logger
}

// DI
func NewReturnHandler(uc *usecase.ReturnUsecase, retry RetryPolicy, log *zap.Logger) *ReturnHandler {
	return &ReturnHandler{uc: uc, retry: retry, log: log}
}

func (h *ReturnHandler) RegisterRoutes(e *echo.Echo, cfg config.Config, userRepo repository.UserRepository) {
	g := e.Group("/sale-item-returns")

	g.Use(middleware.AuthJWT(cfg))
	g.Use(middleware.ActiveUserGuard(userRepo))
	g.Use(middleware.RoleGuard(model.StockRoles...))

	g.GET("", h.list)
	g.POST("", h.request)
	g.POST("/:id/approve", h.approve)
	g.DELETE("/:id", h.cancel)
}

func (h *ReturnHandler) request(c echo.Context) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	var req requestReturnRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if err := c.Validate(&req); err != nil {
		return badRequest(c, validator.Message(err))
	}

	ctx := c.Request().Context()
	out, err := withRetry(ctx, h.retry, c.Path(), func() (usecase.ReturnOutput, error) {
		return h.uc.RequestReturn(ctx, actor, usecase.RequestReturnInput{
			TransactionLineID: req.SaleItemID,
			Quantity:          req.Quantity,
			Reason:            model.ReturnReason(req.Reason),
			Notes:             req.Notes,
		})
	})
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, out)
}

func (h *ReturnHandler) approve(c echo.Context) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}

	ctx := c.Request().Context()
	out, err := withRetry(ctx, h.retry, c.Path(), func() (usecase.ReturnOutput, error) {
		return h.uc.ApproveReturn(ctx, id, actor)
	})
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *ReturnHandler) cancel(c echo.Context) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}

	ctx := c.Request().Context()
	out, err := withRetry(ctx, h.retry, c.Path(), func() (usecase.ReturnOutput, error) {
		return h.uc.CancelReturn(ctx, id, actor)
	})
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *ReturnHandler) list(c echo.Context) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	page, limit, msg := pageQuery(c, 50)
	if msg != "" {
		return badRequest(c, msg)
	}

	in := usecase.ListReturnsInput{Page: page, Limit: limit}
	if v := c.QueryParam("status"); v != "" {
		st := model.ReturnStatus(v)
		if st != model.ReturnStatusPending && st != model.ReturnStatusApproved {
			return badRequest(c, "invalid status")
		}
		in.Status = &st
	}
	lineID, ok := optionalInt64Query(c, "sale_item_id")
	if !ok {
		return badRequest(c, "invalid sale_item_id")
	}
	in.TransactionLineID = lineID

	out, err := h.uc.List(c.Request().Context(), actor, in)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, out)
}
