package models

import (
	"time"

	"github.com/google/uuid"
)

// OrderLineItem captures the snapshot of each item within a shop order.
// Name and price are copied from the menu item at checkout time so later
// menu edits never alter a placed order.
type OrderLineItem struct {
	ID         uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID    uuid.UUID  `gorm:"column:order_id;type:uuid;not null;index"`
	MenuItemID *uuid.UUID `gorm:"column:menu_item_id;type:uuid"`
	Name       string     `gorm:"column:name;not null"`
	UnitPrice  int64      `gorm:"column:unit_price;not null"`
	Qty        int        `gorm:"column:qty;not null"`
	Total      int64      `gorm:"column:total;not null"`
	CreatedAt  time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
