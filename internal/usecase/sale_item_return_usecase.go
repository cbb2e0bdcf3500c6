package usecase

import (
	"context"
	"fmt"
	"time"

	"stockledger/internal/domain/model"
	repo "stockledger/internal/repository"

	"go.uber.org/zap"
)

// 販売明細の返品。申請 -> 承認（申請者以外）、承認前なら取消
type ReturnUsecase struct {
	tx       repo.TransactionManager
	notifier Notifier
	log      *zap.Logger
	now      func() time.Time
}

func NewReturnUsecase(tx repo.TransactionManager, notifier Notifier, log *zap.Logger) *ReturnUsecase {
	return &ReturnUsecase{tx: tx, notifier: notifier, log: log, now: time.Now}
}

type RequestReturnInput struct {
	TransactionLineID int64
	Quantity          int64
	Reason            model.ReturnReason
	Notes             string
}

type ReturnOutput struct {
	Detail string `json:"detail"`
	ID     int64  `json:"id"`
}

type ListReturnsInput struct {
	Status            *model.ReturnStatus
	TransactionLineID *int64
	Page              int
	Limit             int
}

type ListReturnsOutput struct {
	Items []model.SaleItemReturn `json:"items"`
	Total int64                  `json:"total"`
	Page  int                    `json:"page"`
	Limit int                    `json:"limit"`
}

// 明細と返品の通知用
type saleItemReturns struct {
	ID      int64                  `json:"id"`
	Returns []model.SaleItemReturn `json:"saleItemReturns"`
}

type transactionSummary struct {
	ID int64 `json:"id"`
	model.TransactionTotals
}

const (
	msgReturnNotOwner     = "Return denied: The sale item does not belong to you."
	msgReturnPending      = "sorry! first approve the previous request"
	msgReturnSelfApproval = "sorry! you can't approve. because you requested the approval"
	msgReturnApproved     = "the returned sale is already Approved"
)

func (u *ReturnUsecase) RequestReturn(ctx context.Context, actor Actor, in RequestReturnInput) (ReturnOutput, error) {
	if in.TransactionLineID <= 0 {
		return ReturnOutput{}, errBadRequest("invalid sale_item_id")
	}
	if in.Quantity <= 0 {
		return ReturnOutput{}, errBadRequest("quantity must be greater than 0")
	}
	if in.Reason == "" {
		in.Reason = model.ReturnReasonCustomerChangedMind
	}
	if !in.Reason.Valid() {
		return ReturnOutput{}, errBadRequest("invalid reason")
	}

	var out ReturnOutput
	var events []Event
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		events = nil

		//同じ明細への申請を直列化
		line, err := r.Transactions().LockLineByID(ctx, in.TransactionLineID)
		if err != nil {
			return dbError(err)
		}
		txn, err := r.Transactions().FindByID(ctx, line.TransactionID)
		if err != nil {
			return dbError(err)
		}
		if txn.Kind != model.OrderKindSale {
			return errNotFound("sale item not found")
		}
		if txn.AgentID != actor.ID {
			return errForbidden(msgReturnNotOwner)
		}

		existing, err := r.Returns().ListByLineIDs(ctx, []int64{line.ID})
		if err != nil {
			return dbError(err)
		}
		var returned int64
		for _, ret := range existing {
			if ret.IsPending() {
				return errBadRequest(msgReturnPending)
			}
			returned += ret.Quantity
		}
		remaining := line.Quantity - returned
		if in.Quantity > remaining {
			return errBadRequest(fmt.Sprintf("you can not return that is not sold, maximum should be %d", remaining))
		}

		now := u.now()
		ret, err := r.Returns().Create(ctx, model.SaleItemReturn{
			TransactionLineID: line.ID,
			Quantity:          in.Quantity,
			Refund:            refundFor(line, in.Quantity),
			Status:            model.ReturnStatusPending,
			Reason:            in.Reason,
			Notes:             in.Notes,
			RequestedBy:       actor.ID,
			RequestedAt:       now,
		})
		if err != nil {
			return dbError(err)
		}

		out = ReturnOutput{Detail: "successfully return is requested", ID: ret.ID}
		events = append(events,
			newEvent(EventSaleItemReturnCreate, entityReturn, "sale_item_return is created successfully", []model.SaleItemReturn{ret}, now),
			newEvent(transactionLineEvent(model.OrderKindSale, "update"), "sale_item", "sale_item is updated successfully",
				[]saleItemReturns{{ID: line.ID, Returns: append(existing, ret)}}, now),
		)
		return nil
	})
	if err != nil {
		return ReturnOutput{}, err
	}

	publishAfterCommit(ctx, u.notifier, u.log, events)
	return out, nil
}

// 承認で available を戻す（1回だけ）
func (u *ReturnUsecase) ApproveReturn(ctx context.Context, returnID int64, actor Actor) (ReturnOutput, error) {
	var out ReturnOutput
	var events []Event
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		events = nil

		ret, err := r.Returns().LockByID(ctx, returnID)
		if err != nil {
			return dbError(err)
		}
		if ret.RequestedBy == actor.ID {
			return errForbidden(msgReturnSelfApproval)
		}
		if !ret.IsPending() {
			return errBadRequest(msgReturnApproved)
		}

		line, err := r.Transactions().FindLineByID(ctx, ret.TransactionLineID)
		if err != nil {
			return dbError(err)
		}
		if _, err := lockOne(ctx, r, line.VariantID); err != nil {
			return err
		}

		ledger := NewLedger(r.Inventory())
		ref := LedgerRef{Reason: model.AdjustmentReturnApprove, ReferenceType: entityReturn, ReferenceID: ret.ID, ActorID: actor.ID}
		if err := ledger.Commit(ctx, line.VariantID, 0, ret.Quantity, ref); err != nil {
			return err
		}

		//販売終了のvariantも返品で復活させる
		variants, err := r.Variants().FindByIDs(ctx, []int64{line.VariantID})
		if err != nil {
			return dbError(err)
		}
		if len(variants) == 1 && variants[0].IsDeleted() {
			if err := r.Variants().Restore(ctx, line.VariantID); err != nil {
				return dbError(err)
			}
		}

		now := u.now()
		before := ret
		approver := actor.ID
		ret.Status = model.ReturnStatusApproved
		ret.ApprovedBy = &approver
		ret.ReturnedAt = &now
		if err := r.Returns().Update(ctx, ret); err != nil {
			return dbError(err)
		}

		txn, err := r.Transactions().FindByID(ctx, line.TransactionID)
		if err != nil {
			return dbError(err)
		}
		lines, err := r.Transactions().ListLines(ctx, txn.ID)
		if err != nil {
			return dbError(err)
		}
		lineIDs := make([]int64, 0, len(lines))
		for _, l := range lines {
			lineIDs = append(lineIDs, l.ID)
		}
		allReturns, err := r.Returns().ListByLineIDs(ctx, lineIDs)
		if err != nil {
			return dbError(err)
		}
		totals := transactionTotals(txn.Kind, lines, allReturns)

		entry, err := auditEntry(actor.ID, model.AuditActionApproveReturn, model.AuditResourceReturn, ret.ID, before, ret, now)
		if err != nil {
			return err
		}
		if err := r.AuditLogs().Create(ctx, entry); err != nil {
			return dbError(err)
		}

		var lineReturns []model.SaleItemReturn
		for _, x := range allReturns {
			if x.TransactionLineID == line.ID {
				lineReturns = append(lineReturns, x)
			}
		}

		out = ReturnOutput{Detail: "successfully confirmed the return process", ID: ret.ID}
		events = append(events, newEvent(EventSaleItemReturnAccept, entityReturn, "sale_item_return is confirmed successfully", []model.SaleItemReturn{ret}, now))
		events = append(events, inventoryEvents(ledger.Snapshots(), now)...)
		events = append(events,
			newEvent(transactionLineEvent(model.OrderKindSale, "update"), "sale_item", "sale_item is updated successfully",
				[]saleItemReturns{{ID: line.ID, Returns: lineReturns}}, now),
			newEvent(transactionEvent(model.OrderKindSale, "update"), "sale", "sale is updated successfully",
				[]transactionSummary{{ID: txn.ID, TransactionTotals: totals}}, now),
		)
		return nil
	})
	if err != nil {
		return ReturnOutput{}, err
	}

	publishAfterCommit(ctx, u.notifier, u.log, events)
	return out, nil
}

// 承認前の申請だけ取り消せる。台帳は動かさない
func (u *ReturnUsecase) CancelReturn(ctx context.Context, returnID int64, actor Actor) (ReturnOutput, error) {
	var out ReturnOutput
	var events []Event
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		events = nil

		ret, err := r.Returns().LockByID(ctx, returnID)
		if err != nil {
			return dbError(err)
		}
		if !ret.IsPending() {
			return errBadRequest("approved return cannot be cancelled")
		}
		if ret.RequestedBy != actor.ID && !actor.IsAdmin() {
			return errForbidden("")
		}
		if err := r.Returns().Delete(ctx, ret.ID); err != nil {
			return dbError(err)
		}
		remaining, err := r.Returns().ListByLineIDs(ctx, []int64{ret.TransactionLineID})
		if err != nil {
			return dbError(err)
		}

		now := u.now()
		out = ReturnOutput{Detail: "successfully cancelled", ID: ret.ID}
		events = append(events,
			newEvent(EventSaleItemReturnDelete, entityReturn, "sale_item_return is deleted successfully", []idRef{{ID: ret.ID}}, now),
			newEvent(transactionLineEvent(model.OrderKindSale, "update"), "sale_item", "sale_item is updated successfully",
				[]saleItemReturns{{ID: ret.TransactionLineID, Returns: remaining}}, now),
		)
		return nil
	})
	if err != nil {
		return ReturnOutput{}, err
	}

	publishAfterCommit(ctx, u.notifier, u.log, events)
	return out, nil
}

// 一般ユーザーは自分の申請だけ
func (u *ReturnUsecase) List(ctx context.Context, actor Actor, in ListReturnsInput) (ListReturnsOutput, error) {
	page, limit := in.Page, in.Limit
	if page < 1 {
		page = 1
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	f := repo.ReturnListFilter{Status: in.Status, TransactionLineID: in.TransactionLineID, Page: page, Limit: limit}
	if !actor.IsAdmin() {
		f.RequestedBy = &actor.ID
	}

	var out ListReturnsOutput
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		items, total, err := r.Returns().List(ctx, f)
		if err != nil {
			return dbError(err)
		}
		out = ListReturnsOutput{Items: items, Total: total, Page: page, Limit: limit}
		return nil
	})
	if err != nil {
		return ListReturnsOutput{}, err
	}
	return out, nil
}
