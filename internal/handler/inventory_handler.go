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
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type minimumUpdateRequest struct {
	Minimum *int64 `json:"minimum" validate:"required,gte=0"`
}

type variantCreateRequest struct {
	Name    string          `json:"name" validate:"required,max=255"`
	SKU     string          `json:"sku" validate:"required,max=64"`
	Price   decimal.Decimal `json:"price"`
	Minimum *int64          `json:"minimum" validate:"omitempty,gte=0"`
}

// /inventory と /admin/variants, /admin/inventory
type InventoryHandler struct {
	uc  *usecase.InventoryUsecase
	log *zap.Logger
}

// DI
func NewInventoryHandler(uc *usecase.InventoryUsecase, log *zap.Logger) *InventoryHandler {
	return &InventoryHandler{uc: uc, log: log}
}

func (h *InventoryHandler) RegisterRoutes(e *echo.Echo, cfg config.Config, userRepo repository.UserRepository) {
	inv := e.Group("/inventory")
	inv.Use(middleware.AuthJWT(cfg))
	inv.Use(middleware.ActiveUserGuard(userRepo))
	inv.Use(middleware.RoleGuard(model.StockRoles...))

	inv.GET("", h.list)
	inv.GET("/:variant_id/adjustments", h.adjustments)

	admin := e.Group("/admin")
	admin.Use(middleware.AuthJWT(cfg))
	admin.Use(middleware.ActiveUserGuard(userRepo))
	admin.Use(middleware.AdminRoleGuard())

	admin.PUT("/inventory/:variant_id/minimum", h.updateMinimum)
	admin.POST("/variants", h.createVariant)
	admin.DELETE("/variants/:id", h.deleteVariant)
}

func (h *InventoryHandler) list(c echo.Context) error {
	page, limit, msg := pageQuery(c, 50)
	if msg != "" {
		return badRequest(c, msg)
	}

	out, err := h.uc.List(c.Request().Context(), usecase.ListInventoryInput{
		Page:   page,
		Limit:  limit,
		Status: c.QueryParam("status"),
	})
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *InventoryHandler) adjustments(c echo.Context) error {
	variantID, ok := pathID(c, "variant_id")
	if !ok {
		return badRequest(c, "invalid variant_id")
	}
	page, limit, msg := pageQuery(c, 50)
	if msg != "" {
		return badRequest(c, msg)
	}

	rows, err := h.uc.ListAdjustments(c.Request().Context(), variantID, page, limit)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, rows)
}

func (h *InventoryHandler) updateMinimum(c echo.Context) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	variantID, ok := pathID(c, "variant_id")
	if !ok {
		return badRequest(c, "invalid variant_id")
	}

	var req minimumUpdateRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if err := c.Validate(&req); err != nil {
		return badRequest(c, validator.Message(err))
	}

	inv, err := h.uc.AdminSetMinimum(c.Request().Context(), actor, variantID, *req.Minimum)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, usecase.InventoryView{Inventory: inv, Status: inv.StockStatus()})
}

func (h *InventoryHandler) createVariant(c echo.Context) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	var req variantCreateRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if err := c.Validate(&req); err != nil {
		return badRequest(c, validator.Message(err))
	}

	out, err := h.uc.AdminCreateVariant(c.Request().Context(), actor, usecase.AdminCreateVariantInput{
		Name:    req.Name,
		SKU:     req.SKU,
		Price:   req.Price,
		Minimum: req.Minimum,
	})
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, out)
}

func (h *InventoryHandler) deleteVariant(c echo.Context) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}

	if err := h.uc.AdminDeleteVariant(c.Request().Context(), actor, id); err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, SuccessResponse{Message: "variant deleted"})
}
