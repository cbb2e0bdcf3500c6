package server

import (
	"net/http"

	"stockledger/internal/config"
	"stockledger/internal/handler"
	"stockledger/internal/repository"

	"github.com/labstack/echo/v4"
)

// 各ハンドラが自分のグループとガードを登録する
type routeRegistrar interface {
	RegisterRoutes(e *echo.Echo, cfg config.Config, userRepo repository.UserRepository)
}

type Handlers struct {
	SaleOrders     *handler.OrderHandler
	PurchaseOrders *handler.OrderHandler
	Sales          *handler.TransactionHandler
	Purchases      *handler.TransactionHandler
	Returns        *handler.ReturnHandler
	Inventory      *handler.InventoryHandler
	Audit          *handler.AuditHandler
}

func (h Handlers) all() []routeRegistrar {
	return []routeRegistrar{
		h.SaleOrders,
		h.PurchaseOrders,
		h.Sales,
		h.Purchases,
		h.Returns,
		h.Inventory,
		h.Audit,
	}
}

func RegisterRoutes(e *echo.Echo, cfg config.Config, userRepo repository.UserRepository, h Handlers) {
	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, handler.SuccessResponse{Message: "ok"})
	})
	for _, r := range h.all() {
		r.RegisterRoutes(e, cfg, userRepo)
	}
}
