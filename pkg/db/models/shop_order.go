package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/skyserve/skyserve-backend/pkg/enums"
	"github.com/skyserve/skyserve-backend/pkg/types"
)

// ShopOrder is the per-shop order produced by checkout fan-out. SessionID
// correlates every shop order born from the same checkout request.
type ShopOrder struct {
	ID             uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SessionID      uuid.UUID           `gorm:"column:session_id;type:uuid;not null;index"`
	ShopID         uuid.UUID           `gorm:"column:shop_id;type:uuid;not null;index"`
	OperatorID     uuid.UUID           `gorm:"column:operator_id;type:uuid;not null"`
	CustomerID     uuid.UUID           `gorm:"column:customer_id;type:uuid;not null;index"`
	Status         enums.OrderStatus   `gorm:"column:status;type:text;not null;default:'pending'"`
	PaymentMethod  enums.PaymentMethod `gorm:"column:payment_method;type:text;not null"`
	PaymentStatus  enums.PaymentStatus `gorm:"column:payment_status;type:text;not null;default:'pending'"`
	Subtotal       int64               `gorm:"column:subtotal;not null"`
	ShippingFee    int64               `gorm:"column:shipping_fee;not null;default:0"`
	Total          int64               `gorm:"column:total;not null"`
	DeliveryTo     types.Address       `gorm:"embedded"`
	Note           *string             `gorm:"column:note"`
	AssignedUnitID *uuid.UUID          `gorm:"column:assigned_unit_id;type:uuid"`
	HandedOverAt   *time.Time          `gorm:"column:handed_over_at"`
	DeliveredAt    *time.Time          `gorm:"column:delivered_at"`
	CancelReason   *string             `gorm:"column:cancel_reason"`
	CancelledAt    *time.Time          `gorm:"column:cancelled_at"`
	Items          []OrderLineItem     `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt      time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
