package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type enum in Postgres.
type OutboxAggregateType string

const (
	AggregateCheckoutSession OutboxAggregateType = "checkout_session"
	AggregateShopOrder       OutboxAggregateType = "shop_order"
	AggregateFleetUnit       OutboxAggregateType = "fleet_unit"
	AggregatePayment         OutboxAggregateType = "payment"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateCheckoutSession,
	AggregateShopOrder,
	AggregateFleetUnit,
	AggregatePayment,
}

// IsValid reports whether the value matches the canonical aggregate_type enum.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType maps to the event_type enum in Postgres.
type OutboxEventType string

const (
	EventOrderCreated       OutboxEventType = "order_created"
	EventOrderStatusChanged OutboxEventType = "order_status_changed"
	EventOrderDelivered     OutboxEventType = "order_delivered"
	EventOrderCancelled     OutboxEventType = "order_cancelled"
	EventUnitAssigned       OutboxEventType = "unit_assigned"
	EventUnitReleased       OutboxEventType = "unit_released"
	EventPaymentSettled     OutboxEventType = "payment_settled"
	EventPaymentFailed      OutboxEventType = "payment_failed"
)

var validOutboxEventTypes = []OutboxEventType{
	EventOrderCreated,
	EventOrderStatusChanged,
	EventOrderDelivered,
	EventOrderCancelled,
	EventUnitAssigned,
	EventUnitReleased,
	EventPaymentSettled,
	EventPaymentFailed,
}

// IsValid reports whether the value matches the canonical event_type enum.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
