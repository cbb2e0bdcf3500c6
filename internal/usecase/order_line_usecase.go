package usecase

import (
	"context"
	"fmt"
	"sort"
	"time"

	"stockledger/internal/domain/model"
	repo "stockledger/internal/repository"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// 下書き注文の行を増減し、台帳を同じTxで動かす
type OrderLineUsecase struct {
	kind     model.OrderKind
	policy   kindPolicy
	tx       repo.TransactionManager
	notifier Notifier
	log      *zap.Logger
	now      func() time.Time
}

// DI
func NewOrderLineUsecase(kind model.OrderKind, tx repo.TransactionManager, notifier Notifier, log *zap.Logger) *OrderLineUsecase {
	return &OrderLineUsecase{
		kind:     kind,
		policy:   policyFor(kind),
		tx:       tx,
		notifier: notifier,
		log:      log,
		now:      time.Now,
	}
}

type AddLineInput struct {
	VariantID int64
	Quantity  int64
	Price     *decimal.Decimal
	Discount  *decimal.Decimal
}

type UpdateLineInput struct {
	Quantity int64
	Price    *decimal.Decimal
	Discount *decimal.Decimal
}

// 注文IDと集計値
type OrderSummary struct {
	ID int64 `json:"id"`
	model.OrderTotals
}

type OrderLinesOutput struct {
	Detail string            `json:"detail"`
	Order  OrderSummary      `json:"order"`
	Lines  []model.OrderLine `json:"items,omitempty"`
}

// 行をまとめて追加する。1行でもエラーがあれば何も書かない
func (u *OrderLineUsecase) AddLines(ctx context.Context, orderID int64, actor Actor, in []AddLineInput) (OrderLinesOutput, error) {
	if len(in) == 0 {
		return OrderLinesOutput{}, errBadRequest("items are required")
	}
	for _, item := range in {
		if item.VariantID <= 0 {
			return OrderLinesOutput{}, errBadRequest("invalid variant_id")
		}
		if err := u.validateLineValues(item.Quantity, item.Price, item.Discount); err != nil {
			return OrderLinesOutput{}, err
		}
	}

	var out OrderLinesOutput
	var events []Event
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		events = nil

		order, err := u.lockOwnedOrder(ctx, r, orderID, actor)
		if err != nil {
			return err
		}

		ids := distinctVariantIDs(in)
		invs, err := r.Inventory().LockByVariantIDs(ctx, ids)
		if err != nil {
			return dbError(err)
		}
		invByVariant := make(map[int64]model.Inventory, len(invs))
		for _, inv := range invs {
			invByVariant[inv.VariantID] = inv
		}

		variants, err := r.Variants().FindByIDs(ctx, ids)
		if err != nil {
			return dbError(err)
		}
		variantByID := make(map[int64]model.ProductVariant, len(variants))
		for _, v := range variants {
			variantByID[v.ID] = v
		}

		existing, err := r.OrderLines().ListByOrderID(ctx, order.ID)
		if err != nil {
			return dbError(err)
		}
		existingByVariant := make(map[int64]model.OrderLine, len(existing))
		for _, l := range existing {
			existingByVariant[l.VariantID] = l
		}

		now := u.now()

		//書き込み前に全行をまとめて検証する（同じvariantは合算）
		var details []ErrorDetail
		requested := map[int64]int64{}
		working := map[int64]*model.OrderLine{}
		var workingOrder []int64
		for _, item := range in {
			inv, hasInv := invByVariant[item.VariantID]
			v, hasVariant := variantByID[item.VariantID]
			if !hasInv || !hasVariant || v.IsDeleted() {
				details = append(details, ErrorDetail{ID: item.VariantID, ErrorType: KindNotFound, Detail: "product variant not found"})
				continue
			}
			requested[item.VariantID] += item.Quantity

			line, ok := working[item.VariantID]
			if !ok {
				if ex, found := existingByVariant[item.VariantID]; found {
					line = &ex
				} else {
					line = &model.OrderLine{
						OrderID:   order.ID,
						VariantID: item.VariantID,
						UnitPrice: v.Price,
						Discount:  decimal.Zero,
						CreatedAt: now,
					}
				}
				working[item.VariantID] = line
				workingOrder = append(workingOrder, item.VariantID)
			}
			if item.Price != nil {
				line.UnitPrice = *item.Price
			}
			if item.Discount != nil {
				line.Discount = line.Discount.Add(*item.Discount)
			}
			line.Quantity += item.Quantity
			line.UpdatedAt = now

			if !u.policy.isSale() {
				continue
			}
			if inv.Available < requested[item.VariantID] {
				details = append(details, ErrorDetail{
					ID:        item.VariantID,
					ErrorType: KindStock,
					Detail:    fmt.Sprintf("sorry! you do not have enough stock, available %d", inv.Available),
				})
			}
			if !u.policy.discountValid(line.UnitPrice, line.Discount, line.Quantity) {
				details = append(details, ErrorDetail{ID: item.VariantID, ErrorType: KindDiscount, Detail: msgDiscount})
			}
		}
		if len(details) > 0 {
			return errValidation("some items could not be added", details)
		}

		ledger := NewLedger(r.Inventory())
		ref := u.ref(model.AdjustmentOrderLineAdd, order.ID, actor)
		for _, vid := range ids {
			if err := ledger.Apply(ctx, vid, u.policy.claim(requested[vid]), ref); err != nil {
				return err
			}
		}

		var creates, updates []model.OrderLine
		for _, vid := range workingOrder {
			l := *working[vid]
			if l.ID == 0 {
				creates = append(creates, l)
				continue
			}
			if err := r.OrderLines().Update(ctx, l); err != nil {
				return dbError(err)
			}
			updates = append(updates, l)
		}
		created, err := r.OrderLines().CreateBulk(ctx, creates)
		if err != nil {
			return dbError(err)
		}

		summary, err := u.touchAndSummarize(ctx, r, order.ID)
		if err != nil {
			return err
		}

		out = OrderLinesOutput{
			Detail: "successfully created!",
			Order:  summary,
			Lines:  append(created, updates...),
		}

		if len(created) > 0 {
			events = append(events, newEvent(orderLineEvent(u.kind, "create"), u.policy.lineEntity(), "order_item is created successfully", created, now))
		}
		if len(updates) > 0 {
			events = append(events, newEvent(orderLineEvent(u.kind, "update"), u.policy.lineEntity(), "order_item is updated successfully", updates, now))
		}
		events = append(events, inventoryEvents(ledger.Snapshots(), now)...)
		events = append(events, newEvent(orderEvent(u.kind, "update"), u.policy.orderEntity(), "order is updated successfully", []OrderSummary{summary}, now))
		return nil
	})
	if err != nil {
		return OrderLinesOutput{}, err
	}

	publishAfterCommit(ctx, u.notifier, u.log, events)
	return out, nil
}

// 数量・単価・値引きを変更する。差分だけ台帳を動かす
func (u *OrderLineUsecase) UpdateLine(ctx context.Context, orderID, lineID int64, actor Actor, in UpdateLineInput) (OrderLinesOutput, error) {
	if err := u.validateLineValues(in.Quantity, in.Price, in.Discount); err != nil {
		return OrderLinesOutput{}, err
	}

	var out OrderLinesOutput
	var events []Event
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		events = nil

		order, err := u.lockOwnedOrder(ctx, r, orderID, actor)
		if err != nil {
			return err
		}

		line, err := r.OrderLines().FindByID(ctx, order.ID, lineID)
		if err != nil {
			return dbError(err)
		}

		inv, err := lockOne(ctx, r, line.VariantID)
		if err != nil {
			return err
		}

		var d Delta
		switch {
		case in.Quantity < line.Quantity:
			d = u.policy.release(line.Quantity - in.Quantity)
		case in.Quantity > line.Quantity:
			change := in.Quantity - line.Quantity
			if u.policy.isSale() && inv.Available < change {
				return errStock("sorry! you do not have enough stock", inv.Available)
			}
			d = u.policy.claim(change)
		}

		line.Quantity = in.Quantity
		if in.Price != nil {
			line.UnitPrice = *in.Price
		}
		if in.Discount != nil {
			line.Discount = *in.Discount
		}
		if u.policy.isSale() && !u.policy.discountValid(line.UnitPrice, line.Discount, line.Quantity) {
			available := inv.Available
			return errDiscount(msgDiscount, &available)
		}

		ledger := NewLedger(r.Inventory())
		if err := ledger.Apply(ctx, line.VariantID, d, u.ref(model.AdjustmentOrderLineUpdate, order.ID, actor)); err != nil {
			return err
		}

		now := u.now()
		line.UpdatedAt = now
		if err := r.OrderLines().Update(ctx, line); err != nil {
			return dbError(err)
		}

		summary, err := u.touchAndSummarize(ctx, r, order.ID)
		if err != nil {
			return err
		}
		out = OrderLinesOutput{Detail: "successfully updated", Order: summary, Lines: []model.OrderLine{line}}

		events = append(events, newEvent(orderLineEvent(u.kind, "update"), u.policy.lineEntity(), "order_item is updated successfully", []model.OrderLine{line}, now))
		events = append(events, inventoryEvents(ledger.Snapshots(), now)...)
		events = append(events, newEvent(orderEvent(u.kind, "update"), u.policy.orderEntity(), "order is updated successfully", []OrderSummary{summary}, now))
		return nil
	})
	if err != nil {
		return OrderLinesOutput{}, err
	}

	publishAfterCommit(ctx, u.notifier, u.log, events)
	return out, nil
}

// 行を消して予約を全部戻す
func (u *OrderLineUsecase) RemoveLine(ctx context.Context, orderID, lineID int64, actor Actor) (OrderLinesOutput, error) {
	var out OrderLinesOutput
	var events []Event
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		events = nil

		order, err := u.lockOwnedOrder(ctx, r, orderID, actor)
		if err != nil {
			return err
		}

		line, err := r.OrderLines().FindByID(ctx, order.ID, lineID)
		if err != nil {
			return dbError(err)
		}
		if _, err := lockOne(ctx, r, line.VariantID); err != nil {
			return err
		}

		ledger := NewLedger(r.Inventory())
		if err := ledger.Apply(ctx, line.VariantID, u.policy.release(line.Quantity), u.ref(model.AdjustmentOrderLineRemove, order.ID, actor)); err != nil {
			return err
		}
		if err := r.OrderLines().Delete(ctx, line.ID); err != nil {
			return dbError(err)
		}

		summary, err := u.touchAndSummarize(ctx, r, order.ID)
		if err != nil {
			return err
		}
		out = OrderLinesOutput{Detail: "successfully deleted", Order: summary}

		now := u.now()
		events = append(events, newEvent(orderLineEvent(u.kind, "delete"), u.policy.lineEntity(), "order_item is deleted successfully", []idRef{{ID: line.ID}}, now))
		events = append(events, inventoryEvents(ledger.Snapshots(), now)...)
		events = append(events, newEvent(orderEvent(u.kind, "update"), u.policy.orderEntity(), "order is updated successfully", []OrderSummary{summary}, now))
		return nil
	})
	if err != nil {
		return OrderLinesOutput{}, err
	}

	publishAfterCommit(ctx, u.notifier, u.log, events)
	return out, nil
}

// 行一覧（持ち主か管理者）
func (u *OrderLineUsecase) ListLines(ctx context.Context, orderID int64, actor Actor) ([]model.OrderLine, error) {
	var lines []model.OrderLine
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		order, err := r.Orders().FindByID(ctx, u.kind, orderID)
		if err != nil {
			return dbError(err)
		}
		if order.AgentID != actor.ID && !actor.IsAdmin() {
			return errForbidden("")
		}
		lines, err = r.OrderLines().ListByOrderID(ctx, order.ID)
		return dbError(err)
	})
	if err != nil {
		return nil, err
	}
	return lines, nil
}

// 数量・単価・値引きだけを見る（追加と更新で共通）
func (u *OrderLineUsecase) validateLineValues(qty int64, price, discount *decimal.Decimal) error {
	if qty <= 0 {
		return errBadRequest("quantity must be greater than 0")
	}
	if price != nil && price.IsNegative() {
		return errBadRequest("price must not be negative")
	}
	if discount != nil && discount.IsNegative() {
		return errBadRequest("discount must not be negative")
	}
	if !u.policy.isSale() && discount != nil && !discount.IsZero() {
		return errBadRequest("discount is not allowed on purchase orders")
	}
	return nil
}

// 注文をロックして持ち主を確認
func (u *OrderLineUsecase) lockOwnedOrder(ctx context.Context, r repo.TxRepos, orderID int64, actor Actor) (model.DraftOrder, error) {
	order, err := r.Orders().LockByID(ctx, u.kind, orderID)
	if err != nil {
		return model.DraftOrder{}, dbError(err)
	}
	if order.AgentID != actor.ID {
		return model.DraftOrder{}, errForbidden("")
	}
	return order, nil
}

func (u *OrderLineUsecase) touchAndSummarize(ctx context.Context, r repo.TxRepos, orderID int64) (OrderSummary, error) {
	if err := r.Orders().Touch(ctx, orderID); err != nil {
		return OrderSummary{}, dbError(err)
	}
	lines, err := r.OrderLines().ListByOrderID(ctx, orderID)
	if err != nil {
		return OrderSummary{}, dbError(err)
	}
	return OrderSummary{ID: orderID, OrderTotals: orderTotals(u.kind, lines)}, nil
}

func (u *OrderLineUsecase) ref(reason model.AdjustmentReason, orderID int64, actor Actor) LedgerRef {
	return LedgerRef{Reason: reason, ReferenceType: u.policy.referenceType(), ReferenceID: orderID, ActorID: actor.ID}
}

// 1件だけロック。なければNotFound
func lockOne(ctx context.Context, r repo.TxRepos, variantID int64) (model.Inventory, error) {
	invs, err := r.Inventory().LockByVariantIDs(ctx, []int64{variantID})
	if err != nil {
		return model.Inventory{}, dbError(err)
	}
	if len(invs) == 0 {
		return model.Inventory{}, errNotFound("stock not found")
	}
	return invs[0], nil
}

func distinctVariantIDs(in []AddLineInput) []int64 {
	ids := make([]int64, 0, len(in))
	for _, item := range in {
		ids = append(ids, item.VariantID)
	}
	return sortedIDs(ids)
}

// 重複なし・昇順（ロック順をそろえる）
func sortedIDs(ids []int64) []int64 {
	out := make([]int64, 0, len(ids))
	seen := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
