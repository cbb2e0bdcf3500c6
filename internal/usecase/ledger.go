package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"stockledger/internal/domain/model"
	repo "stockledger/internal/repository"
)

// 台帳を動かした文脈（履歴に残す）
type LedgerRef struct {
	Reason        model.AdjustmentReason
	ReferenceType string
	ReferenceID   int64
	ActorID       int64
}

// 在庫台帳への書き込み口。呼び出し側のTx内でだけ使う。
// available/reserved を直接書き換えるのはここだけ。
type Ledger struct {
	inv     repo.InventoryRepository
	touched map[int64]model.Inventory
	order   []int64
}

func NewLedger(inv repo.InventoryRepository) *Ledger {
	return &Ledger{
		inv:     inv,
		touched: map[int64]model.Inventory{},
	}
}

// reserved に delta を足す（負なら解放）
func (l *Ledger) Reserve(ctx context.Context, variantID int64, delta int64, ref LedgerRef) error {
	return l.Commit(ctx, variantID, delta, 0, ref)
}

// reserved と available を1回の書き込みで動かす
func (l *Ledger) Commit(ctx context.Context, variantID int64, reservedDelta, availableDelta int64, ref LedgerRef) error {
	if reservedDelta == 0 && availableDelta == 0 {
		return nil
	}

	inv, err := l.inv.Adjust(ctx, variantID, reservedDelta, availableDelta)
	if err != nil {
		switch {
		case errors.Is(err, repo.ErrNegativeStock):
			return &HTTPError{
				Status:  http.StatusBadRequest,
				Kind:    KindStock,
				Message: fmt.Sprintf("stock for variant %d would become negative", variantID),
			}
		case errors.Is(err, repo.ErrNotFound):
			return errNotFound("stock not found")
		}
		return dbError(err)
	}

	if err := l.inv.CreateAdjustment(ctx, model.InventoryAdjustment{
		InventoryID:    inv.ID,
		VariantID:      variantID,
		ActorUserID:    ref.ActorID,
		ReservedDelta:  reservedDelta,
		AvailableDelta: availableDelta,
		Reason:         ref.Reason,
		ReferenceType:  ref.ReferenceType,
		ReferenceID:    ref.ReferenceID,
	}); err != nil {
		return dbError(err)
	}

	if _, ok := l.touched[variantID]; !ok {
		l.order = append(l.order, variantID)
	}
	l.touched[variantID] = inv
	return nil
}

// 差分の種類でReserve/Commitを選ぶ
func (l *Ledger) Apply(ctx context.Context, variantID int64, d Delta, ref LedgerRef) error {
	if d.Available == 0 {
		return l.Reserve(ctx, variantID, d.Reserved, ref)
	}
	return l.Commit(ctx, variantID, d.Reserved, d.Available, ref)
}

// 触った在庫の最新値（最初に触った順）
func (l *Ledger) Snapshots() []InventorySnapshot {
	out := make([]InventorySnapshot, 0, len(l.order))
	for _, id := range l.order {
		out = append(out, snapshotOf(l.touched[id]))
	}
	return out
}

// 台帳の差分
type Delta struct {
	Reserved  int64
	Available int64
}
