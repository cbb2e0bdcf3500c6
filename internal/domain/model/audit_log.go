package model

import "time"

// 注文削除、注文完了、返品承認など。
type AuditAction string

const (
	//管理者が無効化済み担当者の注文を削除した操作。
	AuditActionDeleteOrderOverride AuditAction = "DELETE_ORDER_OVERRIDE"
	//注文を完了した操作。
	AuditActionCompleteOrder AuditAction = "COMPLETE_ORDER"
	//返品を承認した操作。
	AuditActionApproveReturn AuditAction = "APPROVE_RETURN"
	//発注点を変更した操作。
	AuditActionUpdateMinimum AuditAction = "UPDATE_MINIMUM"
	//バリエーションを削除した操作。
	AuditActionDeleteVariant AuditAction = "DELETE_VARIANT"
)

// 何に対する操作か
type AuditResourceType string

const (
	AuditResourceOrder AuditResourceType = "order"

	AuditResourceTransaction AuditResourceType = "transaction"

	AuditResourceReturn AuditResourceType = "sale_item_return"

	AuditResourceInventory AuditResourceType = "inventory"

	AuditResourceVariant AuditResourceType = "product_variant"
)

// 監査ログ。
// 「誰が」「何を」「どの対象に」「どう変えたか」を残す。
type AuditLog struct {
	ID int64 `gorm:"primaryKey;autoIncrement" json:"id"`

	//操作したユーザーのID。
	ActorUserID int64 `gorm:"not null;index" json:"actor_user_id"`

	Action AuditAction `gorm:"type:varchar(50);not null;index" json:"action"`

	ResourceType AuditResourceType `gorm:"type:varchar(50);not null;index" json:"resource_type"`

	ResourceID int64 `gorm:"not null;index" json:"resource_id"`

	//JSON文字列で保存する。
	BeforeJSON string `gorm:"type:text" json:"before_json"`

	//JSON文字列で保存する。
	AfterJSON string `gorm:"type:text" json:"after_json"`

	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
}
