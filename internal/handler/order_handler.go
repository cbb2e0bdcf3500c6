package handler

import (
	"encoding/json"
	"net/http"

	"stockledger/internal/config"
	"stockledger/internal/domain/model"
	"stockledger/internal/middleware"
	"stockledger/internal/repository"
	"stockledger/internal/usecase"
	"stockledger/internal/validator"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type createOrderRequest struct {
	CounterpartyID *int64 `json:"counterparty_id" validate:"omitempty,gt=0"`
}

type addLineRequest struct {
	VariantID int64            `json:"variant_id" validate:"required"`
	Quantity  int64            `json:"quantity"`
	Price     *decimal.Decimal `json:"price"`
	Discount  *decimal.Decimal `json:"discount"`
}

// ボディは配列。diveで1行ずつ検証する
type addLinesRequest struct {
	Lines []addLineRequest `json:"items" validate:"min=1,dive"`
}

type updateLineRequest struct {
	Quantity int64            `json:"quantity"`
	Price    *decimal.Decimal `json:"price"`
	Discount *decimal.Decimal `json:"discount"`
}

// /sale-orders と /purchase-orders（kindごとに1つ）
type OrderHandler struct {
	kind   model.OrderKind
	orders *usecase.OrderUsecase
	lines  *usecase.OrderLineUsecase
	retry  RetryPolicy
	log    *zap.Logger
}

// DI
func NewOrderHandler(kind model.OrderKind, orders *usecase.OrderUsecase, lines *usecase.OrderLineUsecase, retry RetryPolicy, log *zap.Logger) *OrderHandler {
	return &OrderHandler{kind: kind, orders: orders, lines: lines, retry: retry, log: log}
}

func (h *OrderHandler) RegisterRoutes(e *echo.Echo, cfg config.Config, userRepo repository.UserRepository) {
	g := e.Group("/" + h.kind.Prefix() + "-orders")

	g.Use(middleware.AuthJWT(cfg))
	g.Use(middleware.ActiveUserGuard(userRepo))
	g.Use(middleware.RoleGuard(model.StockRoles...))

	g.POST("", h.create)
	g.GET("", h.list)
	g.GET("/:id", h.get)
	g.DELETE("/:id", h.delete)
	g.POST("/:id/complete", h.complete)

	g.GET("/:id/items", h.listLines)
	g.POST("/:id/items", h.addLines)
	g.PATCH("/:id/items/:item_id", h.updateLine)
	g.DELETE("/:id/items/:item_id", h.removeLine)
}

func (h *OrderHandler) create(c echo.Context) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	var req createOrderRequest
	//ボディなしも許可
	if c.Request().ContentLength != 0 {
		if err := c.Bind(&req); err != nil {
			return badRequest(c, "invalid body")
		}
	}
	if err := c.Validate(&req); err != nil {
		return badRequest(c, validator.Message(err))
	}

	order, err := h.orders.Create(c.Request().Context(), actor, req.CounterpartyID)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, order)
}

func (h *OrderHandler) list(c echo.Context) error {
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

	out, err := h.orders.List(c.Request().Context(), actor, usecase.ListOrdersInput{Page: page, Limit: limit, AgentID: agentID})
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *OrderHandler) get(c echo.Context) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}

	view, err := h.orders.Get(c.Request().Context(), actor, id)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, view)
}

func (h *OrderHandler) delete(c echo.Context) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}

	ctx := c.Request().Context()
	view, err := withRetry(ctx, h.retry, c.Path(), func() (usecase.OrderView, error) {
		return h.orders.Delete(ctx, id, actor)
	})
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, view)
}

func (h *OrderHandler) complete(c echo.Context) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}

	ctx := c.Request().Context()
	out, err := withRetry(ctx, h.retry, c.Path(), func() (usecase.CompleteOrderOutput, error) {
		return h.orders.Complete(ctx, id, actor)
	})
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *OrderHandler) listLines(c echo.Context) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}

	lines, err := h.lines.ListLines(c.Request().Context(), id, actor)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, lines)
}

func (h *OrderHandler) addLines(c echo.Context) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}

	//echoのBindは配列ボディを構造体に入れられないので直接decodeする
	var req addLinesRequest
	if err := json.NewDecoder(c.Request().Body).Decode(&req.Lines); err != nil {
		return badRequest(c, "invalid body")
	}
	if err := c.Validate(&req); err != nil {
		return badRequest(c, validator.Message(err))
	}

	in := make([]usecase.AddLineInput, 0, len(req.Lines))
	for _, l := range req.Lines {
		in = append(in, usecase.AddLineInput{
			VariantID: l.VariantID,
			Quantity:  l.Quantity,
			Price:     l.Price,
			Discount:  l.Discount,
		})
	}

	ctx := c.Request().Context()
	out, err := withRetry(ctx, h.retry, c.Path(), func() (usecase.OrderLinesOutput, error) {
		return h.lines.AddLines(ctx, id, actor, in)
	})
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, out)
}

func (h *OrderHandler) updateLine(c echo.Context) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	lineID, ok := pathID(c, "item_id")
	if !ok {
		return badRequest(c, "invalid item_id")
	}

	var req updateLineRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	ctx := c.Request().Context()
	out, err := withRetry(ctx, h.retry, c.Path(), func() (usecase.OrderLinesOutput, error) {
		return h.lines.UpdateLine(ctx, id, lineID, actor, usecase.UpdateLineInput{
			Quantity: req.Quantity,
			Price:    req.Price,
			Discount: req.Discount,
		})
	})
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *OrderHandler) removeLine(c echo.Context) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	lineID, ok := pathID(c, "item_id")
	if !ok {
		return badRequest(c, "invalid item_id")
	}

	ctx := c.Request().Context()
	out, err := withRetry(ctx, h.retry, c.Path(), func() (usecase.OrderLinesOutput, error) {
		return h.lines.RemoveLine(ctx, id, lineID, actor)
	})
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, out)
}
