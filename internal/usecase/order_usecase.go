package usecase

import (
	"context"
	"fmt"
	"time"

	"stockledger/internal/domain/model"
	repo "stockledger/internal/repository"

	"go.uber.org/zap"
)

// 下書き注文の作成・削除・完了
// DRAFT -> COMPLETED（履歴を作って消す） / DRAFT -> DELETED（予約を戻して消す）
type OrderUsecase struct {
	kind     model.OrderKind
	policy   kindPolicy
	tx       repo.TransactionManager
	notifier Notifier
	log      *zap.Logger
	now      func() time.Time
}

func NewOrderUsecase(kind model.OrderKind, tx repo.TransactionManager, notifier Notifier, log *zap.Logger) *OrderUsecase {
	return &OrderUsecase{
		kind:     kind,
		policy:   policyFor(kind),
		tx:       tx,
		notifier: notifier,
		log:      log,
		now:      time.Now,
	}
}

// 注文と行と集計値
type OrderView struct {
	model.DraftOrder
	model.OrderTotals
	Lines []model.OrderLine `json:"items"`
}

type ListOrdersInput struct {
	Page    int
	Limit   int
	AgentID *int64
}

type ListOrdersOutput struct {
	Items []model.DraftOrder `json:"items"`
	Total int64              `json:"total"`
	Page  int                `json:"page"`
	Limit int                `json:"limit"`
}

type CompleteOrderOutput struct {
	Detail        string `json:"detail"`
	TransactionID int64  `json:"transaction_id"`
}

func (u *OrderUsecase) Create(ctx context.Context, actor Actor, counterpartyID *int64) (model.DraftOrder, error) {
	if counterpartyID != nil && *counterpartyID <= 0 {
		return model.DraftOrder{}, errBadRequest("invalid counterparty_id")
	}

	var order model.DraftOrder
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		var err error
		order, err = r.Orders().Create(ctx, model.DraftOrder{
			Kind:           u.kind,
			AgentID:        actor.ID,
			CounterpartyID: counterpartyID,
			Status:         model.OrderStatusPending,
		})
		return dbError(err)
	})
	if err != nil {
		return model.DraftOrder{}, err
	}

	publishAfterCommit(ctx, u.notifier, u.log, []Event{
		newEvent(orderEvent(u.kind, "create"), u.policy.orderEntity(), "order is created successfully", []model.DraftOrder{order}, u.now()),
	})
	return order, nil
}

// 一般ユーザーは自分の注文だけ
func (u *OrderUsecase) List(ctx context.Context, actor Actor, in ListOrdersInput) (ListOrdersOutput, error) {
	page, limit := in.Page, in.Limit
	if page < 1 {
		page = 1
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	agentID := in.AgentID
	if !actor.IsAdmin() {
		agentID = &actor.ID
	}

	var out ListOrdersOutput
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		items, total, err := r.Orders().List(ctx, repo.OrderListFilter{Kind: u.kind, AgentID: agentID, Page: page, Limit: limit})
		if err != nil {
			return dbError(err)
		}
		out = ListOrdersOutput{Items: items, Total: total, Page: page, Limit: limit}
		return nil
	})
	if err != nil {
		return ListOrdersOutput{}, err
	}
	return out, nil
}

func (u *OrderUsecase) Get(ctx context.Context, actor Actor, orderID int64) (OrderView, error) {
	var view OrderView
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		order, err := r.Orders().FindByID(ctx, u.kind, orderID)
		if err != nil {
			return dbError(err)
		}
		if order.AgentID != actor.ID && !actor.IsAdmin() {
			return errForbidden("")
		}
		lines, err := r.OrderLines().ListByOrderID(ctx, order.ID)
		if err != nil {
			return dbError(err)
		}
		view = u.viewOf(order, lines)
		return nil
	})
	if err != nil {
		return OrderView{}, err
	}
	return view, nil
}

// 注文を消して全行の予約を戻す。
// 持ち主が無効化・削除済みなら管理者だけが消せる
func (u *OrderUsecase) Delete(ctx context.Context, orderID int64, actor Actor) (OrderView, error) {
	var view OrderView
	var events []Event
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		events = nil

		order, err := r.Orders().LockByID(ctx, u.kind, orderID)
		if err != nil {
			return dbError(err)
		}

		owner, err := r.Users().FindByIDUnscoped(ctx, order.AgentID)
		if err != nil {
			return dbError(err)
		}
		override := false
		if owner == nil || owner.IsDeactivated() {
			if !actor.IsAdmin() {
				return errForbidden("")
			}
			override = true
		} else if order.AgentID != actor.ID {
			return errForbidden("")
		}

		lines, err := r.OrderLines().ListByOrderID(ctx, order.ID)
		if err != nil {
			return dbError(err)
		}
		if _, err := u.lockLineInventories(ctx, r, lines); err != nil {
			return err
		}

		ledger := NewLedger(r.Inventory())
		ref := LedgerRef{Reason: model.AdjustmentOrderDelete, ReferenceType: u.policy.referenceType(), ReferenceID: order.ID, ActorID: actor.ID}
		for _, l := range lines {
			if err := ledger.Apply(ctx, l.VariantID, u.policy.release(l.Quantity), ref); err != nil {
				return err
			}
		}

		if err := r.OrderLines().DeleteByOrderID(ctx, order.ID); err != nil {
			return dbError(err)
		}
		if err := r.Orders().Delete(ctx, order.ID); err != nil {
			return dbError(err)
		}

		now := u.now()
		view = u.viewOf(order, lines)
		if override {
			entry, err := auditEntry(actor.ID, model.AuditActionDeleteOrderOverride, model.AuditResourceOrder, order.ID, view, nil, now)
			if err != nil {
				return err
			}
			if err := r.AuditLogs().Create(ctx, entry); err != nil {
				return dbError(err)
			}
		}

		events = append(events, newEvent(orderEvent(u.kind, "delete"), u.policy.orderEntity(), "order is deleted successfully", []idRef{{ID: order.ID}}, now))
		if len(lines) > 0 {
			events = append(events, newEvent(orderLineEvent(u.kind, "delete"), u.policy.lineEntity(), "order_item is deleted successfully", lineRefs(lines), now))
		}
		events = append(events, inventoryEvents(ledger.Snapshots(), now)...)
		return nil
	})
	if err != nil {
		return OrderView{}, err
	}

	publishAfterCommit(ctx, u.notifier, u.log, events)
	return view, nil
}

// 注文を確定して履歴（Transaction/TransactionLine）にする。
// 在庫行が1つでも無ければ全体を中止する
func (u *OrderUsecase) Complete(ctx context.Context, orderID int64, actor Actor) (CompleteOrderOutput, error) {
	var out CompleteOrderOutput
	var events []Event
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		events = nil

		order, err := r.Orders().LockByID(ctx, u.kind, orderID)
		if err != nil {
			return dbError(err)
		}
		if order.AgentID != actor.ID {
			return errForbidden("")
		}

		lines, err := r.OrderLines().ListByOrderID(ctx, order.ID)
		if err != nil {
			return dbError(err)
		}
		if len(lines) == 0 {
			return errBadRequest(fmt.Sprintf("%s order cannot be completed as it has no items.", u.kind.Prefix()))
		}

		invByVariant, err := u.lockLineInventories(ctx, r, lines)
		if err != nil {
			return err
		}
		var details []ErrorDetail
		for _, l := range lines {
			if _, ok := invByVariant[l.VariantID]; !ok {
				details = append(details, ErrorDetail{ID: l.VariantID, ErrorType: KindNotFound, Detail: "stock not found"})
			}
		}
		if len(details) > 0 {
			return errValidation("order cannot be completed", details)
		}

		ledger := NewLedger(r.Inventory())
		ref := LedgerRef{Reason: model.AdjustmentOrderComplete, ReferenceType: u.policy.referenceType(), ReferenceID: order.ID, ActorID: actor.ID}
		for _, l := range lines {
			if err := ledger.Apply(ctx, l.VariantID, u.policy.consume(l.Quantity), ref); err != nil {
				return err
			}
		}

		now := u.now()
		txn, err := r.Transactions().Create(ctx, model.Transaction{
			Kind:           u.kind,
			AgentID:        order.AgentID,
			CounterpartyID: order.CounterpartyID,
			SourceOrderID:  order.ID,
			CreatedAt:      now,
		})
		if err != nil {
			return dbError(err)
		}

		txLines := make([]model.TransactionLine, 0, len(lines))
		for _, l := range lines {
			txLines = append(txLines, model.TransactionLine{
				TransactionID: txn.ID,
				VariantID:     l.VariantID,
				Quantity:      l.Quantity,
				UnitPrice:     l.UnitPrice,
				Discount:      l.Discount,
				CreatedAt:     l.CreatedAt,
				UpdatedAt:     l.UpdatedAt,
			})
		}
		txLines, err = r.Transactions().CreateLines(ctx, txLines)
		if err != nil {
			return dbError(err)
		}

		if err := r.OrderLines().DeleteByOrderID(ctx, order.ID); err != nil {
			return dbError(err)
		}
		if err := r.Orders().Delete(ctx, order.ID); err != nil {
			return dbError(err)
		}

		entry, err := auditEntry(actor.ID, model.AuditActionCompleteOrder, model.AuditResourceTransaction, txn.ID, u.viewOf(order, lines), txn, now)
		if err != nil {
			return err
		}
		if err := r.AuditLogs().Create(ctx, entry); err != nil {
			return dbError(err)
		}

		out = CompleteOrderOutput{Detail: "successfully completed", TransactionID: txn.ID}

		events = append(events,
			newEvent(orderEvent(u.kind, "complete"), u.policy.orderEntity(), "order is completed successfully", []idRef{{ID: order.ID}}, now),
			newEvent(orderLineEvent(u.kind, "delete"), u.policy.lineEntity(), "order_item is deleted successfully", lineRefs(lines), now),
		)
		events = append(events, inventoryEvents(ledger.Snapshots(), now)...)
		events = append(events,
			newEvent(transactionEvent(u.kind, "create"), u.policy.txEntity(), u.kind.Prefix()+" is created successfully", []model.Transaction{txn}, now),
			newEvent(transactionLineEvent(u.kind, "create"), u.policy.txLineEntity(), u.kind.Prefix()+"_item is created successfully", txLines, now),
		)
		return nil
	})
	if err != nil {
		return CompleteOrderOutput{}, err
	}

	publishAfterCommit(ctx, u.notifier, u.log, events)
	return out, nil
}

// 行のvariantの在庫をまとめてロック
func (u *OrderUsecase) lockLineInventories(ctx context.Context, r repo.TxRepos, lines []model.OrderLine) (map[int64]model.Inventory, error) {
	ids := make([]int64, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.VariantID)
	}
	invs, err := r.Inventory().LockByVariantIDs(ctx, sortedIDs(ids))
	if err != nil {
		return nil, dbError(err)
	}
	out := make(map[int64]model.Inventory, len(invs))
	for _, inv := range invs {
		out[inv.VariantID] = inv
	}
	return out, nil
}

func (u *OrderUsecase) viewOf(order model.DraftOrder, lines []model.OrderLine) OrderView {
	if lines == nil {
		lines = []model.OrderLine{}
	}
	return OrderView{DraftOrder: order, OrderTotals: orderTotals(u.kind, lines), Lines: lines}
}

func lineRefs(lines []model.OrderLine) []idRef {
	refs := make([]idRef, 0, len(lines))
	for _, l := range lines {
		refs = append(refs, idRef{ID: l.ID})
	}
	return refs
}
