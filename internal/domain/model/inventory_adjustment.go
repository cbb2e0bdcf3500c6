package model

import "time"

// 台帳を動かした理由
type AdjustmentReason string

const (
	AdjustmentOrderLineAdd    AdjustmentReason = "ORDER_LINE_ADD"
	AdjustmentOrderLineUpdate AdjustmentReason = "ORDER_LINE_UPDATE"
	AdjustmentOrderLineRemove AdjustmentReason = "ORDER_LINE_REMOVE"
	AdjustmentOrderDelete     AdjustmentReason = "ORDER_DELETE"
	AdjustmentOrderComplete   AdjustmentReason = "ORDER_COMPLETE"
	AdjustmentReturnApprove   AdjustmentReason = "RETURN_APPROVE"
)

// 在庫調整の履歴。台帳の更新と同じTxで1件ずつ残す。
type InventoryAdjustment struct {
	ID             int64            `gorm:"primaryKey;autoIncrement" json:"id"`
	InventoryID    int64            `gorm:"not null;index" json:"inventory_id"`
	VariantID      int64            `gorm:"not null;index" json:"variant_id"`
	ActorUserID    int64            `gorm:"not null;index" json:"actor_user_id"`
	ReservedDelta  int64            `gorm:"not null" json:"reserved_delta"`
	AvailableDelta int64            `gorm:"not null" json:"available_delta"`
	Reason         AdjustmentReason `gorm:"type:varchar(50);not null" json:"reason"`
	ReferenceType  string           `gorm:"type:varchar(50);not null" json:"reference_type"`
	ReferenceID    int64            `gorm:"not null" json:"reference_id"`
	CreatedAt      time.Time        `gorm:"not null;autoCreateTime" json:"created_at"`
}
