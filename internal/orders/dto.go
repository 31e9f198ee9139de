package orders

import (
	"time"

	"github.com/google/uuid"

	"github.com/skyserve/skyserve-backend/pkg/db/models"
	"github.com/skyserve/skyserve-backend/pkg/enums"
	"github.com/skyserve/skyserve-backend/pkg/types"
)

// Actor carries the authenticated identity into order operations.
type Actor struct {
	UserID uuid.UUID
	ShopID *uuid.UUID
	Role   enums.ActorRole
}

// UpdateStatusInput is the operator status-edit payload.
type UpdateStatusInput struct {
	SessionID uuid.UUID
	OrderID   uuid.UUID
	Target    enums.OrderStatus
	Actor     Actor
}

// ConfirmDeliveryInput is the customer delivery confirmation payload.
type ConfirmDeliveryInput struct {
	SessionID uuid.UUID
	OrderID   uuid.UUID
	Actor     Actor
}

// CancelInput is the customer cancellation payload.
type CancelInput struct {
	SessionID uuid.UUID
	OrderID   uuid.UUID
	Reason    string
	Actor     Actor
}

// ListFilters narrows order list queries.
type ListFilters struct {
	Status *enums.OrderStatus
}

// LineItemDTO is the API shape of an order line item snapshot.
type LineItemDTO struct {
	ID         uuid.UUID  `json:"id"`
	MenuItemID *uuid.UUID `json:"menuItemId,omitempty"`
	Name       string     `json:"name"`
	UnitPrice  int64      `json:"unitPrice"`
	Qty        int        `json:"qty"`
	Total      int64      `json:"total"`
}

// OrderDTO is the API shape of a shop order.
type OrderDTO struct {
	ID             uuid.UUID           `json:"id"`
	SessionID      uuid.UUID           `json:"sessionId"`
	ShopID         uuid.UUID           `json:"shopId"`
	OperatorID     uuid.UUID           `json:"operatorId"`
	CustomerID     uuid.UUID           `json:"customerId"`
	Status         enums.OrderStatus   `json:"status"`
	PaymentMethod  enums.PaymentMethod `json:"paymentMethod"`
	PaymentStatus  enums.PaymentStatus `json:"paymentStatus"`
	Subtotal       int64               `json:"subtotal"`
	ShippingFee    int64               `json:"shippingFee"`
	Total          int64               `json:"total"`
	DeliveryTo     types.Address       `json:"deliveryTo"`
	Note           *string             `json:"note,omitempty"`
	AssignedUnitID *uuid.UUID          `json:"assignedUnitId,omitempty"`
	HandedOverAt   *time.Time          `json:"handedOverAt,omitempty"`
	DeliveredAt    *time.Time          `json:"deliveredAt,omitempty"`
	CancelReason   *string             `json:"cancelReason,omitempty"`
	CancelledAt    *time.Time          `json:"cancelledAt,omitempty"`
	Items          []LineItemDTO       `json:"items,omitempty"`
	CreatedAt      time.Time           `json:"createdAt"`
}

// OrderList is a cursor-paginated page of orders.
type OrderList struct {
	Orders     []OrderDTO `json:"orders"`
	NextCursor string     `json:"next_cursor,omitempty"`
}

func toLineItemDTO(item *models.OrderLineItem) LineItemDTO {
	return LineItemDTO{
		ID:         item.ID,
		MenuItemID: item.MenuItemID,
		Name:       item.Name,
		UnitPrice:  item.UnitPrice,
		Qty:        item.Qty,
		Total:      item.Total,
	}
}

// ToOrderDTO maps a shop order row, including any preloaded items.
func ToOrderDTO(order *models.ShopOrder) *OrderDTO {
	dto := &OrderDTO{
		ID:             order.ID,
		SessionID:      order.SessionID,
		ShopID:         order.ShopID,
		OperatorID:     order.OperatorID,
		CustomerID:     order.CustomerID,
		Status:         order.Status,
		PaymentMethod:  order.PaymentMethod,
		PaymentStatus:  order.PaymentStatus,
		Subtotal:       order.Subtotal,
		ShippingFee:    order.ShippingFee,
		Total:          order.Total,
		DeliveryTo:     order.DeliveryTo,
		Note:           order.Note,
		AssignedUnitID: order.AssignedUnitID,
		HandedOverAt:   order.HandedOverAt,
		DeliveredAt:    order.DeliveredAt,
		CancelReason:   order.CancelReason,
		CancelledAt:    order.CancelledAt,
		CreatedAt:      order.CreatedAt,
	}
	for i := range order.Items {
		dto.Items = append(dto.Items, toLineItemDTO(&order.Items[i]))
	}
	return dto
}
