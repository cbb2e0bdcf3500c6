package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// 販売(SALE)か仕入(PURCHASE)か
type OrderKind string

const (
	OrderKindSale     OrderKind = "SALE"
	OrderKindPurchase OrderKind = "PURCHASE"
)

func (k OrderKind) Valid() bool {
	return k == OrderKindSale || k == OrderKindPurchase
}

// イベント名などの接頭辞
func (k OrderKind) Prefix() string {
	if k == OrderKindPurchase {
		return "purchase"
	}
	return "sale"
}

type OrderStatus string

const (
	OrderStatusPending OrderStatus = "pending"
)

// 確定前の注文（カート）。完了か削除で行ごと消える。
type DraftOrder struct {
	ID             int64       `gorm:"primaryKey;autoIncrement" json:"id"`
	Kind           OrderKind   `gorm:"type:varchar(20);not null;index" json:"kind"`
	AgentID        int64       `gorm:"not null;index" json:"agent_id"`
	CounterpartyID *int64      `gorm:"index" json:"counterparty_id,omitempty"`
	Status         OrderStatus `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	CreatedAt      time.Time   `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time   `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

// 注文の1行。(order_id, variant_id) で一意。
type OrderLine struct {
	ID        int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID   int64           `gorm:"not null;uniqueIndex:idx_order_lines_order_variant" json:"order_id"`
	VariantID int64           `gorm:"not null;uniqueIndex:idx_order_lines_order_variant;index" json:"variant_id"`
	Quantity  int64           `gorm:"not null;check:chk_order_lines_quantity,quantity > 0" json:"quantity"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"price"`
	Discount  decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"discount"`
	CreatedAt time.Time       `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time       `gorm:"not null" json:"updated_at"`
}

// 単価×数量
func (l OrderLine) Gross() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(l.Quantity))
}

// 注文の集計値
type OrderTotals struct {
	TotalItems    int64           `json:"total_items"`
	TotalPrice    decimal.Decimal `json:"total_price"`
	TotalDiscount decimal.Decimal `json:"total_discount"`
}
