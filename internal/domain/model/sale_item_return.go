package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type ReturnStatus string

const (
	ReturnStatusPending  ReturnStatus = "pending"
	ReturnStatusApproved ReturnStatus = "approved"
)

type ReturnReason string

const (
	ReturnReasonDamaged             ReturnReason = "damaged"
	ReturnReasonExpired             ReturnReason = "expired"
	ReturnReasonWrongItem           ReturnReason = "wrong_item"
	ReturnReasonCustomerChangedMind ReturnReason = "customer_changed_mind"
	ReturnReasonDefective           ReturnReason = "defective"
	ReturnReasonOther               ReturnReason = "other"
)

func (r ReturnReason) Valid() bool {
	switch r {
	case ReturnReasonDamaged, ReturnReasonExpired, ReturnReasonWrongItem,
		ReturnReasonCustomerChangedMind, ReturnReasonDefective, ReturnReasonOther:
		return true
	}
	return false
}

// 販売明細に対する返品申請。承認は申請者以外。
type SaleItemReturn struct {
	ID                int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	TransactionLineID int64           `gorm:"not null;index" json:"transaction_line_id"`
	Quantity          int64           `gorm:"not null;check:chk_sale_item_returns_quantity,quantity > 0" json:"quantity"`
	Refund            decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"refund"`
	Status            ReturnStatus    `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	Reason            ReturnReason    `gorm:"type:varchar(40);not null;default:'customer_changed_mind'" json:"reason"`
	Notes             string          `gorm:"type:text" json:"notes,omitempty"`
	RequestedBy       int64           `gorm:"not null;index" json:"requested_by"`
	ApprovedBy        *int64          `json:"approved_by,omitempty"`
	RequestedAt       time.Time       `gorm:"not null" json:"requested_at"`
	ReturnedAt        *time.Time      `json:"returned_at,omitempty"`
}

func (r SaleItemReturn) IsPending() bool {
	return r.Status == ReturnStatusPending
}
