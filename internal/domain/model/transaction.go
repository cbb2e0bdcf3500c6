package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// 注文完了で作られる履歴（Sale / Purchase）。作成後は変更しない。
type Transaction struct {
	ID             int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Kind           OrderKind `gorm:"type:varchar(20);not null;index" json:"kind"`
	AgentID        int64     `gorm:"not null;index" json:"agent_id"`
	CounterpartyID *int64    `gorm:"index" json:"counterparty_id,omitempty"`
	SourceOrderID  int64     `gorm:"not null" json:"source_order_id"`
	CreatedAt      time.Time `gorm:"not null" json:"created_at"`
}

// 履歴の明細（SaleItem / PurchaseItem）。元の行の値と時刻をそのまま写す。
type TransactionLine struct {
	ID            int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	TransactionID int64           `gorm:"not null;index" json:"transaction_id"`
	VariantID     int64           `gorm:"not null;index" json:"variant_id"`
	Quantity      int64           `gorm:"not null" json:"quantity"`
	UnitPrice     decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"price"`
	Discount      decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"discount"`
	CreatedAt     time.Time       `gorm:"not null" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"not null" json:"updated_at"`
}

// 返品を含めた集計値
type TransactionTotals struct {
	TotalItems       int64           `json:"total_items"`
	TotalPrice       decimal.Decimal `json:"total_price"`
	TotalDiscount    decimal.Decimal `json:"total_discount"`
	TotalReturnItems int64           `json:"total_return_items"`
	TotalReturnPrice decimal.Decimal `json:"total_return_price"`
}
