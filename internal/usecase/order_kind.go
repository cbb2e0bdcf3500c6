package usecase

import (
	"stockledger/internal/domain/model"

	"github.com/shopspring/decimal"
)

// 販売と仕入で違うところだけを持つ
type kindPolicy struct {
	kind model.OrderKind
}

func policyFor(kind model.OrderKind) kindPolicy {
	return kindPolicy{kind: kind}
}

func (p kindPolicy) isSale() bool { return p.kind == model.OrderKindSale }

// 行の追加・増量。販売はavailableから即時に引く
func (p kindPolicy) claim(q int64) Delta {
	if p.isSale() {
		return Delta{Reserved: q, Available: -q}
	}
	//仕入はreservedだけ（上限チェックなし）
	return Delta{Reserved: q}
}

// 行の削除・減量・注文削除
func (p kindPolicy) release(q int64) Delta {
	if p.isSale() {
		return Delta{Reserved: -q, Available: q}
	}
	return Delta{Reserved: -q}
}

// 注文完了。仕入はここで入荷
func (p kindPolicy) consume(q int64) Delta {
	if p.isSale() {
		return Delta{Reserved: -q}
	}
	return Delta{Reserved: -q, Available: q}
}

// 値引きは販売だけ。0は常に可、それ以外は単価×数量未満
func (p kindPolicy) discountValid(price, discount decimal.Decimal, qty int64) bool {
	if discount.IsZero() {
		return true
	}
	return discount.LessThan(price.Mul(decimal.NewFromInt(qty)))
}

func (p kindPolicy) orderEntity() string   { return p.kind.Prefix() + "_order" }
func (p kindPolicy) lineEntity() string    { return p.kind.Prefix() + "_order_item" }
func (p kindPolicy) txEntity() string      { return p.kind.Prefix() }
func (p kindPolicy) txLineEntity() string  { return p.kind.Prefix() + "_item" }
func (p kindPolicy) referenceType() string { return p.kind.Prefix() + "_order" }

const msgDiscount = "sorry! discount should be less than the product price"

// 注文の集計。販売は値引き後、仕入は単価×数量
func orderTotals(kind model.OrderKind, lines []model.OrderLine) model.OrderTotals {
	t := model.OrderTotals{TotalPrice: decimal.Zero, TotalDiscount: decimal.Zero}
	for _, l := range lines {
		t.TotalItems += l.Quantity
		if kind == model.OrderKindSale {
			t.TotalPrice = t.TotalPrice.Add(l.Gross().Sub(l.Discount))
			t.TotalDiscount = t.TotalDiscount.Add(l.Discount)
			continue
		}
		t.TotalPrice = t.TotalPrice.Add(l.Gross())
	}
	return t
}

// 履歴の集計。返品は承認済みだけ数える
func transactionTotals(kind model.OrderKind, lines []model.TransactionLine, returns []model.SaleItemReturn) model.TransactionTotals {
	t := model.TransactionTotals{
		TotalPrice:       decimal.Zero,
		TotalDiscount:    decimal.Zero,
		TotalReturnPrice: decimal.Zero,
	}
	for _, l := range lines {
		gross := l.UnitPrice.Mul(decimal.NewFromInt(l.Quantity))
		t.TotalItems += l.Quantity
		if kind == model.OrderKindSale {
			t.TotalPrice = t.TotalPrice.Add(gross.Sub(l.Discount))
			t.TotalDiscount = t.TotalDiscount.Add(l.Discount)
			continue
		}
		t.TotalPrice = t.TotalPrice.Add(gross)
	}
	for _, r := range returns {
		if r.Status != model.ReturnStatusApproved {
			continue
		}
		t.TotalReturnItems += r.Quantity
		t.TotalReturnPrice = t.TotalReturnPrice.Add(r.Refund)
	}
	t.TotalItems -= t.TotalReturnItems
	t.TotalPrice = t.TotalPrice.Sub(t.TotalReturnPrice)
	return t
}

// 返金額 = 単価×数量 − 数量×(値引き/元の数量)
func refundFor(line model.TransactionLine, qty int64) decimal.Decimal {
	q := decimal.NewFromInt(qty)
	perUnitDiscount := decimal.Zero
	if line.Quantity > 0 {
		perUnitDiscount = line.Discount.Div(decimal.NewFromInt(line.Quantity))
	}
	return line.UnitPrice.Mul(q).Sub(q.Mul(perUnitDiscount)).Round(2)
}
