package model

import (
	"time"

	"gorm.io/gorm"
)

type Role string

const (
	RoleAdmin   Role = "ADMIN"
	RoleUser    Role = "USER"
	RoleStaff   Role = "STAFF"
	RoleCashier Role = "CASHIER"
)

// 在庫・注文・返品を扱えるロール。USERはログインのみ
var StockRoles = []Role{RoleAdmin, RoleCashier, RoleStaff}

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleUser, RoleStaff, RoleCashier:
		return true
	}
	return false
}

// 担当者（レジ係・スタッフ・管理者）。認証自体は外部。
type User struct {
	ID           int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	Email        string         `gorm:"uniqueIndex;not null" json:"email"`
	Role         Role           `gorm:"type:varchar(20);not null;default:'CASHIER'" json:"role"`
	TokenVersion int            `gorm:"not null;default:0" json:"-"`
	IsActive     bool           `gorm:"not null;default:true" json:"is_active"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

// 無効化または削除済みか
func (u User) IsDeactivated() bool {
	return !u.IsActive || u.DeletedAt.Valid
}
