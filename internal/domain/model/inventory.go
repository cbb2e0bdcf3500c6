package model

import "time"

// 発注点のデフォルト
const DefaultInventoryMinimum int64 = 15

// バリエーションごとの在庫台帳。available/reserved は負にならない。
type Inventory struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	VariantID int64     `gorm:"not null;uniqueIndex" json:"variant_id"`
	Available int64     `gorm:"not null;default:0;check:chk_inventories_available,available >= 0" json:"available"`
	Reserved  int64     `gorm:"not null;default:0;check:chk_inventories_reserved,reserved >= 0" json:"reserved"`
	Minimum   int64     `gorm:"not null;default:15" json:"minimum"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

type StockStatus string

const (
	StockStatusOutOfStock StockStatus = "out_of_stock"
	StockStatusLowStock   StockStatus = "low_stock"
)

// available+reserved で判定
func (i Inventory) StockStatus() StockStatus {
	total := i.Available + i.Reserved
	switch {
	case total <= 0:
		return StockStatusOutOfStock
	case total <= i.Minimum:
		return StockStatusLowStock
	}
	return ""
}

func (i Inventory) IsEmpty() bool {
	return i.Available == 0 && i.Reserved == 0
}
