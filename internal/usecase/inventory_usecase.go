package usecase

import (
	"context"
	"net/http"
	"strings"
	"time"

	"stockledger/internal/domain/model"
	repo "stockledger/internal/repository"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// 在庫の参照と、バリエーション/在庫行のライフサイクル（管理者）
type InventoryUsecase struct {
	tx       repo.TransactionManager
	notifier Notifier
	log      *zap.Logger
	now      func() time.Time
}

// DI
func NewInventoryUsecase(tx repo.TransactionManager, notifier Notifier, log *zap.Logger) *InventoryUsecase {
	return &InventoryUsecase{tx: tx, notifier: notifier, log: log, now: time.Now}
}

// GET /inventoryの入力DTO
type ListInventoryInput struct {
	Page   int
	Limit  int
	Status string
}

type InventoryView struct {
	model.Inventory
	Status model.StockStatus `json:"status,omitempty"`
}

type ListInventoryOutput struct {
	Items []InventoryView `json:"items"`
	Total int64           `json:"total"`
	Page  int             `json:"page"`
	Limit int             `json:"limit"`
}

func (u *InventoryUsecase) List(ctx context.Context, in ListInventoryInput) (ListInventoryOutput, error) {
	if in.Page < 1 {
		return ListInventoryOutput{}, NewHTTPError(http.StatusBadRequest, "invalid page")
	}
	if in.Limit < 1 || in.Limit > 200 {
		return ListInventoryOutput{}, NewHTTPError(http.StatusBadRequest, "invalid limit")
	}
	status := model.StockStatus(strings.ToLower(strings.TrimSpace(in.Status)))
	switch status {
	case "", model.StockStatusOutOfStock, model.StockStatusLowStock:
	default:
		return ListInventoryOutput{}, NewHTTPError(http.StatusBadRequest, "invalid status")
	}

	var out ListInventoryOutput
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		invs, total, err := r.Inventory().List(ctx, repo.InventoryListFilter{Status: status, Page: in.Page, Limit: in.Limit})
		if err != nil {
			return dbError(err)
		}
		items := make([]InventoryView, 0, len(invs))
		for _, inv := range invs {
			items = append(items, InventoryView{Inventory: inv, Status: inv.StockStatus()})
		}
		out = ListInventoryOutput{Items: items, Total: total, Page: in.Page, Limit: in.Limit}
		return nil
	})
	if err != nil {
		return ListInventoryOutput{}, err
	}
	return out, nil
}

func (u *InventoryUsecase) ListAdjustments(ctx context.Context, variantID int64, page, limit int) ([]model.InventoryAdjustment, error) {
	if variantID <= 0 {
		return nil, NewHTTPError(http.StatusBadRequest, "invalid variant id")
	}
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 200 {
		limit = 50
	}

	var adjs []model.InventoryAdjustment
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		if _, err := r.Inventory().FindByVariantID(ctx, variantID); err != nil {
			return dbError(err)
		}
		var err error
		adjs, err = r.Inventory().ListAdjustments(ctx, variantID, limit, (page-1)*limit)
		return dbError(err)
	})
	if err != nil {
		return nil, err
	}
	return adjs, nil
}

// 発注点の変更
func (u *InventoryUsecase) AdminSetMinimum(ctx context.Context, actor Actor, variantID int64, minimum int64) (model.Inventory, error) {
	if !actor.IsAdmin() {
		return model.Inventory{}, errForbidden("")
	}
	if variantID <= 0 {
		return model.Inventory{}, NewHTTPError(http.StatusBadRequest, "invalid variant id")
	}
	if minimum < 0 {
		return model.Inventory{}, NewHTTPError(http.StatusBadRequest, "minimum must be >= 0")
	}

	var inv model.Inventory
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		before, err := r.Inventory().FindByVariantID(ctx, variantID)
		if err != nil {
			return dbError(err)
		}
		inv, err = r.Inventory().UpdateMinimum(ctx, variantID, minimum)
		if err != nil {
			return dbError(err)
		}
		entry, err := auditEntry(actor.ID, model.AuditActionUpdateMinimum, model.AuditResourceInventory, inv.ID,
			map[string]int64{"minimum": before.Minimum}, map[string]int64{"minimum": inv.Minimum}, u.now())
		if err != nil {
			return err
		}
		return dbError(r.AuditLogs().Create(ctx, entry))
	})
	if err != nil {
		return model.Inventory{}, err
	}

	publishAfterCommit(ctx, u.notifier, u.log, []Event{
		newEvent(EventInventoryUpdate, entityInventory, "inventory is updated successfully", []InventoryView{{Inventory: inv, Status: inv.StockStatus()}}, u.now()),
	})
	return inv, nil
}

type AdminCreateVariantInput struct {
	Name    string
	SKU     string
	Price   decimal.Decimal
	Minimum *int64
}

type VariantView struct {
	model.ProductVariant
	Inventory model.Inventory `json:"inventory"`
}

// バリエーションと在庫行（0,0）を同じTxで作る
func (u *InventoryUsecase) AdminCreateVariant(ctx context.Context, actor Actor, in AdminCreateVariantInput) (VariantView, error) {
	if !actor.IsAdmin() {
		return VariantView{}, errForbidden("")
	}
	if strings.TrimSpace(in.Name) == "" {
		return VariantView{}, NewHTTPError(http.StatusBadRequest, "name required")
	}
	if in.Price.IsNegative() {
		return VariantView{}, NewHTTPError(http.StatusBadRequest, "price must be >= 0")
	}
	minimum := model.DefaultInventoryMinimum
	if in.Minimum != nil {
		if *in.Minimum < 0 {
			return VariantView{}, NewHTTPError(http.StatusBadRequest, "minimum must be >= 0")
		}
		minimum = *in.Minimum
	}

	var view VariantView
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		v, err := r.Variants().Create(ctx, model.ProductVariant{
			Name:  strings.TrimSpace(in.Name),
			SKU:   strings.TrimSpace(in.SKU),
			Price: in.Price,
		})
		if err != nil {
			return dbError(err)
		}
		inv, err := r.Inventory().Create(ctx, model.Inventory{VariantID: v.ID, Minimum: minimum})
		if err != nil {
			return dbError(err)
		}
		view = VariantView{ProductVariant: v, Inventory: inv}
		return nil
	})
	if err != nil {
		return VariantView{}, err
	}

	now := u.now()
	publishAfterCommit(ctx, u.notifier, u.log, []Event{
		newEvent(EventVariantCreate, entityVariant, "product_variant is created successfully", []VariantView{view}, now),
		newEvent(EventInventoryCreate, entityInventory, "inventory is created successfully", []InventorySnapshot{snapshotOf(view.Inventory)}, now),
	})
	return view, nil
}

// available/reservedが両方0のときだけ論理削除できる。在庫行は返品のために残す
func (u *InventoryUsecase) AdminDeleteVariant(ctx context.Context, actor Actor, variantID int64) error {
	if !actor.IsAdmin() {
		return errForbidden("")
	}
	if variantID <= 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid variant id")
	}

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		inv, err := lockOne(ctx, r, variantID)
		if err != nil {
			return err
		}
		if !inv.IsEmpty() {
			return errBadRequest("variant cannot be deleted while stock is available or reserved")
		}
		if err := r.Variants().SoftDelete(ctx, variantID); err != nil {
			return dbError(err)
		}
		entry, err := auditEntry(actor.ID, model.AuditActionDeleteVariant, model.AuditResourceVariant, variantID, snapshotOf(inv), nil, u.now())
		if err != nil {
			return err
		}
		return dbError(r.AuditLogs().Create(ctx, entry))
	})
	if err != nil {
		return err
	}

	publishAfterCommit(ctx, u.notifier, u.log, []Event{
		newEvent(EventVariantDelete, entityVariant, "product_variant is deleted successfully", []idRef{{ID: variantID}}, u.now()),
	})
	return nil
}
