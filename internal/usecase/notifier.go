package usecase

import (
	"context"
	"time"

	"stockledger/internal/domain/model"

	"go.uber.org/zap"
)

type EventName string

const (
	EventInventoryCreate      EventName = "inventory_create"
	EventInventoryUpdate      EventName = "inventory_update"
	EventVariantCreate        EventName = "product_variant_create"
	EventVariantUpdate        EventName = "product_variant_update"
	EventVariantDelete        EventName = "product_variant_delete"
	EventSaleItemReturnCreate EventName = "sale_item_return_create"
	EventSaleItemReturnDelete EventName = "sale_item_return_delete"
	EventSaleItemReturnAccept EventName = "sale_item_return_confirm"
)

const (
	entityInventory = "inventory"
	entityVariant   = "product_variant"
	entityReturn    = "sale_item_return"
)

// sale_order_create / purchase_order_item_delete など
func orderEvent(kind model.OrderKind, action string) EventName {
	return EventName(kind.Prefix() + "_order_" + action)
}

func orderLineEvent(kind model.OrderKind, action string) EventName {
	return EventName(kind.Prefix() + "_order_item_" + action)
}

// sale_create / purchase_item_create など
func transactionEvent(kind model.OrderKind, action string) EventName {
	return EventName(kind.Prefix() + "_" + action)
}

func transactionLineEvent(kind model.OrderKind, action string) EventName {
	return EventName(kind.Prefix() + "_item_" + action)
}

// 通知チャネルへ流すイベント
type Event struct {
	Event     EventName `json:"event"`
	Status    string    `json:"status"`
	Entity    string    `json:"entity"`
	Count     int       `json:"count"`
	Data      []any     `json:"data"`
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
}

// Notification Sink。失敗してもcommit済みの変更には影響させない
type Notifier interface {
	Publish(ctx context.Context, events ...Event) error
}

func newEvent[T any](name EventName, entity, message string, data []T, now time.Time) Event {
	items := make([]any, 0, len(data))
	for _, d := range data {
		items = append(items, d)
	}
	return Event{
		Event:     name,
		Status:    "success",
		Entity:    entity,
		Count:     len(items),
		Data:      items,
		Timestamp: now,
		Message:   message,
	}
}

// 在庫の通知用スナップショット
type InventorySnapshot struct {
	ID        int64 `json:"id"`
	VariantID int64 `json:"variant_id"`
	Available int64 `json:"available"`
	Reserved  int64 `json:"reserved"`
}

type VariantSnapshot struct {
	ID        int64             `json:"id"`
	Inventory InventorySnapshot `json:"inventory"`
}

type idRef struct {
	ID int64 `json:"id"`
}

func snapshotOf(inv model.Inventory) InventorySnapshot {
	return InventorySnapshot{ID: inv.ID, VariantID: inv.VariantID, Available: inv.Available, Reserved: inv.Reserved}
}

// 台帳の変更に付く2つのイベント（inventory_update / product_variant_update）
func inventoryEvents(snaps []InventorySnapshot, now time.Time) []Event {
	if len(snaps) == 0 {
		return nil
	}
	variants := make([]VariantSnapshot, 0, len(snaps))
	for _, s := range snaps {
		variants = append(variants, VariantSnapshot{ID: s.VariantID, Inventory: s})
	}
	return []Event{
		newEvent(EventInventoryUpdate, entityInventory, "inventory is updated successfully", snaps, now),
		newEvent(EventVariantUpdate, entityVariant, "product_variant is updated successfully", variants, now),
	}
}

// commit後に呼ぶ。失敗はログだけ
func publishAfterCommit(ctx context.Context, n Notifier, log *zap.Logger, events []Event) {
	if n == nil || len(events) == 0 {
		return
	}
	if err := n.Publish(ctx, events...); err != nil {
		log.Warn("notification publish failed",
			zap.Error(err),
			zap.Int("events", len(events)),
			zap.String("first_event", string(events[0].Event)),
		)
	}
}
