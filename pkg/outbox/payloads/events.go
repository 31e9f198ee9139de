package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/skyserve/skyserve-backend/pkg/enums"
)

// OrderCreatedEvent signals a checkout fanned out into per-shop orders.
type OrderCreatedEvent struct {
	SessionID    uuid.UUID   `json:"session_id"`
	ShopOrderIDs []uuid.UUID `json:"shop_order_ids"`
	CustomerID   uuid.UUID   `json:"customer_id"`
}

// OrderStatusChangedEvent is emitted on every shop order transition.
type OrderStatusChangedEvent struct {
	OrderID    uuid.UUID         `json:"order_id"`
	SessionID  uuid.UUID         `json:"session_id"`
	ShopID     uuid.UUID         `json:"shop_id"`
	CustomerID uuid.UUID         `json:"customer_id"`
	From       enums.OrderStatus `json:"from"`
	To         enums.OrderStatus `json:"to"`
}

// OrderDeliveredEvent fires when the customer confirms receipt.
type OrderDeliveredEvent struct {
	OrderID     uuid.UUID `json:"order_id"`
	SessionID   uuid.UUID `json:"session_id"`
	ShopID      uuid.UUID `json:"shop_id"`
	CustomerID  uuid.UUID `json:"customer_id"`
	DeliveredAt time.Time `json:"delivered_at"`
}

// OrderCancelledEvent fires when a pending order is cancelled.
type OrderCancelledEvent struct {
	OrderID     uuid.UUID `json:"order_id"`
	SessionID   uuid.UUID `json:"session_id"`
	ShopID      uuid.UUID `json:"shop_id"`
	CustomerID  uuid.UUID `json:"customer_id"`
	CancelledAt time.Time `json:"cancelled_at"`
	Reason      string    `json:"reason,omitempty"`
}

// UnitAssignedEvent reports a drone claimed for a delivery.
type UnitAssignedEvent struct {
	UnitID  uuid.UUID `json:"unit_id"`
	ShopID  uuid.UUID `json:"shop_id"`
	OrderID uuid.UUID `json:"order_id"`
}

// UnitReleasedEvent reports a drone returned to the pool.
type UnitReleasedEvent struct {
	UnitID  uuid.UUID `json:"unit_id"`
	ShopID  uuid.UUID `json:"shop_id"`
	OrderID uuid.UUID `json:"order_id"`
}

// PaymentSettledEvent is emitted when the gateway confirms a wallet charge
// or cash is reconciled on delivery.
type PaymentSettledEvent struct {
	PaymentID uuid.UUID           `json:"payment_id"`
	SessionID uuid.UUID           `json:"session_id"`
	Method    enums.PaymentMethod `json:"method"`
	Amount    int64               `json:"amount"`
	SettledAt time.Time           `json:"settled_at"`
}

// PaymentFailedEvent is emitted on a terminal gateway failure.
type PaymentFailedEvent struct {
	PaymentID  uuid.UUID `json:"payment_id"`
	SessionID  uuid.UUID `json:"session_id"`
	ResultCode int       `json:"result_code"`
	Reason     string    `json:"reason,omitempty"`
}
